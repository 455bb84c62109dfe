package vault

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/MrEthical07/lockana/errs"
	"github.com/MrEthical07/lockana/internal/logger"
)

const maxNameLength = 255

var (
	// ErrNotFound is returned when the owner has no secret with the given name.
	ErrNotFound = errs.New(errs.KindNotFound, "secret not found")
	// ErrExists is returned by Add when the name is already taken for the owner.
	ErrExists = errs.New(errs.KindValidation, "secret already exists")
	// ErrInvalidName is returned for empty or over-long names.
	ErrInvalidName = errs.New(errs.KindValidation, "secret name must be 1-255 characters")
	// ErrInvalidOwner is returned when no owner is given.
	ErrInvalidOwner = errs.New(errs.KindValidation, "secret owner is required")
)

// Record is a stored secret. Ciphertext is the sealed value.
type Record struct {
	Owner      string
	Name       string
	Ciphertext string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Entry is an opened secret.
type Entry struct {
	Name      string    `json:"name"`
	Data      string    `json:"data"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository persists records. Get, Update and Delete return an error of kind
// errs.KindNotFound for a missing (owner, name); Insert returns [ErrExists] for a
// duplicate. List returns records ordered by name.
type Repository interface {
	InsertRecord(ctx context.Context, rec Record) error
	GetRecord(ctx context.Context, owner, name string) (*Record, error)
	ListRecords(ctx context.Context, owner string) ([]Record, error)
	UpdateRecord(ctx context.Context, owner, name, ciphertext string, updatedAt time.Time) error
	DeleteRecord(ctx context.Context, owner, name string) error
}

// Sealer encrypts and decrypts values. *lockana.Engine satisfies it.
type Sealer interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// Service is the secret-storage path.
type Service struct {
	repo   Repository
	sealer Sealer
	logger *slog.Logger
	now    func() time.Time
}

// NewService returns a Service. log may be nil.
func NewService(repo Repository, sealer Sealer, log *slog.Logger) (*Service, error) {
	if repo == nil {
		return nil, errors.New("vault: repository is required")
	}
	if sealer == nil {
		return nil, errors.New("vault: sealer is required")
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Service{repo: repo, sealer: sealer, logger: log, now: time.Now}, nil
}

// Add seals data and stores it under (owner, name).
func (s *Service) Add(ctx context.Context, owner, name, data string) error {
	owner, name, err := checkKey(owner, name)
	if err != nil {
		return err
	}

	sealed, err := s.sealer.Encrypt(data)
	if err != nil {
		s.logger.Error("seal secret", "owner", owner, "error", err)
		return errs.Wrap(errs.KindCrypto, err, "")
	}

	now := s.now().UTC()
	err = s.repo.InsertRecord(ctx, Record{
		Owner:      owner,
		Name:       name,
		Ciphertext: sealed,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return s.repoError("add secret", owner, err)
	}

	s.logger.Info("secret added", "owner", owner)
	return nil
}

// Get returns the opened secret (owner, name).
func (s *Service) Get(ctx context.Context, owner, name string) (*Entry, error) {
	owner, name, err := checkKey(owner, name)
	if err != nil {
		return nil, err
	}

	rec, err := s.repo.GetRecord(ctx, owner, name)
	if err != nil {
		return nil, s.repoError("get secret", owner, err)
	}

	entry, err := s.open(rec)
	if err != nil {
		return nil, err
	}
	s.logger.Info("secret accessed", "owner", owner)
	return entry, nil
}

// List returns all of owner's secrets, opened, ordered by name.
func (s *Service) List(ctx context.Context, owner string) ([]Entry, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, ErrInvalidOwner
	}

	recs, err := s.repo.ListRecords(ctx, owner)
	if err != nil {
		return nil, s.repoError("list secrets", owner, err)
	}

	out := make([]Entry, 0, len(recs))
	for i := range recs {
		entry, err := s.open(&recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *entry)
	}
	return out, nil
}

// Update replaces the value of (owner, name).
func (s *Service) Update(ctx context.Context, owner, name, data string) error {
	owner, name, err := checkKey(owner, name)
	if err != nil {
		return err
	}

	sealed, err := s.sealer.Encrypt(data)
	if err != nil {
		s.logger.Error("seal secret", "owner", owner, "error", err)
		return errs.Wrap(errs.KindCrypto, err, "")
	}

	if err := s.repo.UpdateRecord(ctx, owner, name, sealed, s.now().UTC()); err != nil {
		return s.repoError("update secret", owner, err)
	}

	s.logger.Info("secret updated", "owner", owner)
	return nil
}

// Delete removes (owner, name).
func (s *Service) Delete(ctx context.Context, owner, name string) error {
	owner, name, err := checkKey(owner, name)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteRecord(ctx, owner, name); err != nil {
		return s.repoError("delete secret", owner, err)
	}

	s.logger.Info("secret deleted", "owner", owner)
	return nil
}

func (s *Service) open(rec *Record) (*Entry, error) {
	data, err := s.sealer.Decrypt(rec.Ciphertext)
	if err != nil {
		s.logger.Error("open secret", "owner", rec.Owner, "error", err)
		return nil, errs.Wrap(errs.KindCrypto, err, "")
	}
	return &Entry{
		Name:      rec.Name,
		Data:      data,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

func (s *Service) repoError(op, owner string, err error) error {
	switch errs.KindOf(err) {
	case errs.KindNotFound:
		s.logger.Warn(op+": not found", "owner", owner)
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return ErrNotFound
	case errs.KindValidation:
		return err
	}
	s.logger.Error(op, "owner", owner, "error", err)
	return errs.Wrap(errs.KindStorage, err, "")
}

func checkKey(owner, name string) (string, string, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return "", "", ErrInvalidOwner
	}
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLength {
		return "", "", ErrInvalidName
	}
	return owner, name, nil
}
