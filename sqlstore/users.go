package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/lockana"
	"github.com/MrEthical07/lockana/errs"
)

var (
	// ErrUserExists is returned by CreateUser for a taken username.
	ErrUserExists = errs.New(errs.KindValidation, "user already exists")
	// ErrRoleExists is returned by CreateRole for a taken name.
	ErrRoleExists = errs.New(errs.KindValidation, "role already exists")
	// ErrPermissionExists is returned by CreatePermission for a taken name.
	ErrPermissionExists = errs.New(errs.KindValidation, "permission already exists")
	// ErrRoleNotFound is returned when a named role does not exist.
	ErrRoleNotFound = errs.New(errs.KindNotFound, "role not found")
	// ErrPermissionNotFound is returned when a named permission does not exist.
	ErrPermissionNotFound = errs.New(errs.KindNotFound, "permission not found")
	// ErrInvalidName is returned for empty user, role and permission names.
	ErrInvalidName = errs.New(errs.KindValidation, "name is required")
)

// UserRecord is the admin listing view of a user. It never carries the secret.
type UserRecord struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// FindByUsername implements lockana.UserProvider. Roles come back with their
// granted permissions. The database is authoritative: a role with no rows in
// role_permissions grants nothing, whatever the configured catalog lists.
func (s *Store) FindByUsername(ctx context.Context, username string) (*lockana.User, error) {
	var (
		id   int64
		user = &lockana.User{}
	)
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT id, username, totp_secret FROM users WHERE username = ?`),
		username,
	).Scan(&id, &user.Username, &user.Secret)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, lockana.ErrUserNotFound
		}
		return nil, s.storageError("find user", err)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT r.name, p.name
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		LEFT JOIN role_permissions rp ON rp.role_id = r.id
		LEFT JOIN permissions p ON p.id = rp.permission_id
		WHERE ur.user_id = ?
		ORDER BY r.name, p.name
	`), id)
	if err != nil {
		return nil, s.storageError("load roles", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			role string
			perm sql.NullString
		)
		if err := rows.Scan(&role, &perm); err != nil {
			return nil, s.storageError("scan role", err)
		}
		last := len(user.Roles) - 1
		if last < 0 || user.Roles[last].Name != role {
			user.Roles = append(user.Roles, lockana.Role{Name: role, Permissions: []string{}})
			last++
		}
		if perm.Valid {
			user.Roles[last].Permissions = append(user.Roles[last].Permissions, perm.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, s.storageError("iterate roles", err)
	}

	return user, nil
}

// UpdateSecret implements lockana.UserProvider.
func (s *Store) UpdateSecret(ctx context.Context, username, secret string) error {
	res, err := s.db.ExecContext(ctx,
		s.rebind(`UPDATE users SET totp_secret = ? WHERE username = ?`),
		secret, username,
	)
	if err != nil {
		return s.storageError("update secret", err)
	}
	return s.expectRow(res, lockana.ErrUserNotFound)
}

// CreateUser inserts a user with the given one-time-code secret.
func (s *Store) CreateUser(ctx context.Context, username, secret string) (*UserRecord, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrInvalidName
	}

	rec := &UserRecord{Username: username, CreatedAt: time.Now().UTC()}
	err := s.db.QueryRowContext(ctx,
		s.rebind(`INSERT INTO users (username, totp_secret, created_at) VALUES (?, ?, ?) RETURNING id`),
		username, secret, rec.CreatedAt,
	).Scan(&rec.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUserExists
		}
		return nil, s.storageError("create user", err)
	}

	s.logger.Info("user created", "username", username)
	return rec, nil
}

// DeleteUser removes a user together with their role assignments and vault records.
func (s *Store) DeleteUser(ctx context.Context, username string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.storageError("begin delete user", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, s.rebind(`SELECT id FROM users WHERE username = ?`), username).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("delete of unknown user", "username", username)
			return lockana.ErrUserNotFound
		}
		return s.storageError("delete user", err)
	}

	stmts := []struct {
		query string
		arg   any
	}{
		{`DELETE FROM secrets WHERE username = ?`, username},
		{`DELETE FROM user_roles WHERE user_id = ?`, id},
		{`DELETE FROM users WHERE id = ?`, id},
	}
	for _, st := range stmts {
		if _, err := tx.ExecContext(ctx, s.rebind(st.query), st.arg); err != nil {
			return s.storageError("delete user", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return s.storageError("commit delete user", err)
	}
	s.logger.Info("user deleted", "username", username)
	return nil
}

// ListUsers returns every user ordered by id.
func (s *Store) ListUsers(ctx context.Context) ([]UserRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, username, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, s.storageError("list users", err)
	}
	defer rows.Close()

	out := []UserRecord{}
	for rows.Next() {
		var rec UserRecord
		if err := rows.Scan(&rec.ID, &rec.Username, &rec.CreatedAt); err != nil {
			return nil, s.storageError("scan user", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storageError("iterate users", err)
	}
	return out, nil
}

// CreateRole inserts a role.
func (s *Store) CreateRole(ctx context.Context, name string) error {
	return s.insertName(ctx, `INSERT INTO roles (name) VALUES (?)`, name, ErrRoleExists)
}

// CreatePermission inserts a permission name into the universe.
func (s *Store) CreatePermission(ctx context.Context, name string) error {
	return s.insertName(ctx, `INSERT INTO permissions (name) VALUES (?)`, name, ErrPermissionExists)
}

// AssignRole gives username the role. Assigning a role twice is a no-op.
func (s *Store) AssignRole(ctx context.Context, username, role string) error {
	userID, err := s.lookupID(ctx, `SELECT id FROM users WHERE username = ?`, username, lockana.ErrUserNotFound)
	if err != nil {
		return err
	}
	roleID, err := s.lookupID(ctx, `SELECT id FROM roles WHERE name = ?`, role, ErrRoleNotFound)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO user_roles (user_id, role_id) VALUES (?, ?) ON CONFLICT DO NOTHING`),
		userID, roleID,
	)
	if err != nil {
		return s.storageError("assign role", err)
	}
	return nil
}

// GrantPermission adds permission to role. Granting twice is a no-op.
func (s *Store) GrantPermission(ctx context.Context, role, permission string) error {
	roleID, err := s.lookupID(ctx, `SELECT id FROM roles WHERE name = ?`, role, ErrRoleNotFound)
	if err != nil {
		return err
	}
	permID, err := s.lookupID(ctx, `SELECT id FROM permissions WHERE name = ?`, permission, ErrPermissionNotFound)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO role_permissions (role_id, permission_id) VALUES (?, ?) ON CONFLICT DO NOTHING`),
		roleID, permID,
	)
	if err != nil {
		return s.storageError("grant permission", err)
	}
	return nil
}

// Permissions implements permission.Universe.
func (s *Store) Permissions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM permissions ORDER BY name`)
	if err != nil {
		return nil, s.storageError("list permissions", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, s.storageError("scan permission", err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storageError("iterate permissions", err)
	}
	return out, nil
}

func (s *Store) insertName(ctx context.Context, query, name string, exists error) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}
	if _, err := s.db.ExecContext(ctx, s.rebind(query), name); err != nil {
		if isUniqueViolation(err) {
			return exists
		}
		return s.storageError("insert name", err)
	}
	return nil
}

func (s *Store) lookupID(ctx context.Context, query, name string, notFound error) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, s.rebind(query), name).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, notFound
		}
		return 0, s.storageError("lookup id", err)
	}
	return id, nil
}

func (s *Store) expectRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return s.storageError("rows affected", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
