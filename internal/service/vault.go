package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/keywarden/keywarden/internal/models"
	"github.com/keywarden/keywarden/internal/repository"
	"github.com/keywarden/keywarden/internal/server/crypto"
)

// ErrInvalidMasterPassword means an item could not be opened with the
// supplied master password.
var ErrInvalidMasterPassword = errors.New("master password rejected")

// ErrItemNotFound mirrors the repository sentinel at the service boundary.
var ErrItemNotFound = errors.New("vault item not found")

// VaultRepository defines the persistence operations needed by the
// vault service.
type VaultRepository interface {
	Insert(ctx context.Context, userID string, item models.VaultItem) error
	Update(ctx context.Context, userID string, item models.VaultItem) error
	SoftDelete(ctx context.Context, userID, id string) error
	GetByID(ctx context.Context, userID, id string) (models.VaultItem, error)
	ListByUser(ctx context.Context, userID, category, search string) ([]models.VaultItem, error)
}

// LogRecorder records activity entries. Recording is best-effort
// everywhere it is used.
type LogRecorder interface {
	Record(ctx context.Context, userID, action, itemID, detail string) error
}

// BreachCounter reports how many times a password appears in breach
// corpora. It is advisory: errors and nonzero counts never block a
// write.
type BreachCounter func(ctx context.Context, password string) (int, error)

// VaultService implements item CRUD and per-item decryption. Items are
// sealed under a key derived from the master password; the service
// proves master-password correctness only by successfully opening an
// item's ciphertext.
type VaultService struct {
	repo        VaultRepository
	logs        LogRecorder
	breachCount BreachCounter
	log         *zap.Logger
}

// NewVaultService constructs a VaultService. breachCount and log may be
// nil.
func NewVaultService(repo VaultRepository, logs LogRecorder, breachCount BreachCounter, log *zap.Logger) *VaultService {
	if log == nil {
		log = zap.NewNop()
	}
	return &VaultService{repo: repo, logs: logs, breachCount: breachCount, log: log}
}

// List returns the user's live items. Ciphertext stays opaque to the
// client but is included so item payloads are self-contained.
func (s *VaultService) List(ctx context.Context, userID, category, search string) ([]models.VaultItem, error) {
	return s.repo.ListByUser(ctx, userID, category, search)
}

// Create seals and stores a new item. The returned warning is non-empty
// when the password was found in breach corpora; the item is stored
// regardless.
func (s *VaultService) Create(ctx context.Context, userID string, req models.ItemRequest) (models.VaultItem, string, error) {
	if err := req.Validate(); err != nil {
		return models.VaultItem{}, "", err
	}

	ciphertext, salt, err := crypto.SealItem(req.MasterPassword, req.Password)
	if err != nil {
		return models.VaultItem{}, "", err
	}

	now := time.Now().UTC()
	item := models.VaultItem{
		ID:         uuid.NewString(),
		Name:       req.Name,
		Username:   req.Username,
		Ciphertext: ciphertext,
		Salt:       salt,
		Note:       req.Note,
		CategoryID: req.CategoryID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Insert(ctx, userID, item); err != nil {
		return models.VaultItem{}, "", err
	}
	s.record(ctx, userID, "item_created", item.ID)

	return item, s.breachWarning(ctx, req.Password), nil
}

// breachWarning consults the breach counter. A lookup failure yields no
// warning rather than a false one.
func (s *VaultService) breachWarning(ctx context.Context, password string) string {
	if s.breachCount == nil {
		return ""
	}
	count, err := s.breachCount(ctx, password)
	if err != nil {
		s.log.Debug("breach lookup failed during create", zap.Error(err))
		return ""
	}
	if count == 0 {
		return ""
	}
	return fmt.Sprintf("this password was found in known data breaches %d times; consider a stronger one", count)
}

// Update reseals an existing item. The master password is verified by
// opening the current ciphertext first, so a wrong secret can never
// silently re-encrypt an item under a different key.
func (s *VaultService) Update(ctx context.Context, userID, id string, req models.ItemRequest) (models.VaultItem, error) {
	if err := req.Validate(); err != nil {
		return models.VaultItem{}, err
	}

	existing, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return models.VaultItem{}, mapNotFound(err)
	}
	if _, err := crypto.OpenItem(req.MasterPassword, existing.Ciphertext, existing.Salt); err != nil {
		return models.VaultItem{}, ErrInvalidMasterPassword
	}

	ciphertext, salt, err := crypto.SealItem(req.MasterPassword, req.Password)
	if err != nil {
		return models.VaultItem{}, err
	}

	item := models.VaultItem{
		ID:         id,
		Name:       req.Name,
		Username:   req.Username,
		Ciphertext: ciphertext,
		Salt:       salt,
		Note:       req.Note,
		CategoryID: req.CategoryID,
		CreatedAt:  existing.CreatedAt,
		UpdatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Update(ctx, userID, item); err != nil {
		return models.VaultItem{}, mapNotFound(err)
	}
	s.record(ctx, userID, "item_updated", id)
	return item, nil
}

// Delete soft-deletes an item after verifying the master password
// against its ciphertext.
func (s *VaultService) Delete(ctx context.Context, userID, id, masterPassword string) error {
	existing, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return mapNotFound(err)
	}
	if _, err := crypto.OpenItem(masterPassword, existing.Ciphertext, existing.Salt); err != nil {
		return ErrInvalidMasterPassword
	}

	if err := s.repo.SoftDelete(ctx, userID, id); err != nil {
		return mapNotFound(err)
	}
	s.record(ctx, userID, "item_deleted", id)
	return nil
}

// Decrypt opens one item with the supplied master password. This is the
// only place the plaintext ever exists server-side, for the duration of
// one response.
func (s *VaultService) Decrypt(ctx context.Context, userID, id, masterPassword string) (string, error) {
	item, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return "", mapNotFound(err)
	}

	plaintext, err := crypto.OpenItem(masterPassword, item.Ciphertext, item.Salt)
	if err != nil {
		s.record(ctx, userID, "decrypt_rejected", id)
		return "", ErrInvalidMasterPassword
	}
	s.record(ctx, userID, "item_decrypted", id)
	return plaintext, nil
}

// record writes an activity entry, absorbing failures.
func (s *VaultService) record(ctx context.Context, userID, action, itemID string) {
	if s.logs == nil {
		return
	}
	if err := s.logs.Record(ctx, userID, action, itemID, ""); err != nil {
		s.log.Warn("activity log write failed", zap.String("action", action), zap.Error(err))
	}
}

// mapNotFound translates the repository sentinel so the handler layer
// only ever sees the service one.
func mapNotFound(err error) error {
	if errors.Is(err, repository.ErrItemNotFound) {
		return ErrItemNotFound
	}
	return err
}
