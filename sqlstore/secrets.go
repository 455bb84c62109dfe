package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/MrEthical07/lockana/vault"
)

// InsertRecord implements vault.Repository.
func (s *Store) InsertRecord(ctx context.Context, rec vault.Record) error {
	_, err := s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO secrets (username, name, ciphertext, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`),
		rec.Owner, rec.Name, rec.Ciphertext, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return vault.ErrExists
		}
		return s.storageError("insert secret", err)
	}
	return nil
}

// GetRecord implements vault.Repository.
func (s *Store) GetRecord(ctx context.Context, owner, name string) (*vault.Record, error) {
	rec := &vault.Record{Owner: owner}
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT name, ciphertext, created_at, updated_at FROM secrets WHERE username = ? AND name = ?`),
		owner, name,
	).Scan(&rec.Name, &rec.Ciphertext, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, vault.ErrNotFound
		}
		return nil, s.storageError("get secret", err)
	}
	return rec, nil
}

// ListRecords implements vault.Repository.
func (s *Store) ListRecords(ctx context.Context, owner string) ([]vault.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT name, ciphertext, created_at, updated_at FROM secrets WHERE username = ? ORDER BY name`),
		owner,
	)
	if err != nil {
		return nil, s.storageError("list secrets", err)
	}
	defer rows.Close()

	var out []vault.Record
	for rows.Next() {
		rec := vault.Record{Owner: owner}
		if err := rows.Scan(&rec.Name, &rec.Ciphertext, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, s.storageError("scan secret", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storageError("iterate secrets", err)
	}
	return out, nil
}

// UpdateRecord implements vault.Repository.
func (s *Store) UpdateRecord(ctx context.Context, owner, name, ciphertext string, updatedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		s.rebind(`UPDATE secrets SET ciphertext = ?, updated_at = ? WHERE username = ? AND name = ?`),
		ciphertext, updatedAt, owner, name,
	)
	if err != nil {
		return s.storageError("update secret", err)
	}
	return s.expectRow(res, vault.ErrNotFound)
}

// DeleteRecord implements vault.Repository.
func (s *Store) DeleteRecord(ctx context.Context, owner, name string) error {
	res, err := s.db.ExecContext(ctx,
		s.rebind(`DELETE FROM secrets WHERE username = ? AND name = ?`),
		owner, name,
	)
	if err != nil {
		return s.storageError("delete secret", err)
	}
	return s.expectRow(res, vault.ErrNotFound)
}
