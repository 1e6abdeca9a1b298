// Package credentials stores provider API keys encrypted at rest. The
// vault binds every blob to this machine; a blob that fails to open is
// reported as lost so the caller can prompt for re-entry, never
// partially recovered.
package credentials

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoseDiazCodes/LibertyLM/internal/domain/vault"
	"github.com/JoseDiazCodes/LibertyLM/internal/platform/errors"
	"github.com/JoseDiazCodes/LibertyLM/internal/platform/logging"
	"github.com/JoseDiazCodes/LibertyLM/internal/platform/storage"
)

// rotationAge is when a stored key starts being flagged for rotation.
const rotationAge = 90 * 24 * time.Hour

// Info describes a stored credential without exposing key material.
type Info struct {
	Provider     string    `json:"provider"`
	KeyCreatedAt time.Time `json:"keyCreatedAt"`
	RotationDue  bool      `json:"rotationDue"`
}

// Service encrypts, stores and retrieves provider keys.
type Service struct {
	db     *gorm.DB
	vault  *vault.Vault
	logger *logging.Logger
}

// NewService builds the credential service.
func NewService(db *gorm.DB, v *vault.Vault, logger *logging.Logger) *Service {
	return &Service{db: db, vault: v, logger: logger}
}

// Store encrypts and saves a key, replacing any existing key for the
// same provider. KeyCreatedAt resets because the key material changed.
func (s *Service) Store(ctx context.Context, userID uint, provider, apiKey string) error {
	if provider == "" || apiKey == "" {
		return errors.New(errors.KindTransport, "credentials.store", "provider and key are required")
	}

	blob, err := s.vault.Encrypt(apiKey)
	if err != nil {
		return err
	}

	now := time.Now()
	cred := storage.Credential{
		UserID:       userID,
		Provider:     provider,
		Blob:         blob,
		KeyCreatedAt: now,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "provider"}},
		DoUpdates: clause.AssignmentColumns([]string{"blob", "key_created_at", "updated_at"}),
	}).Create(&cred).Error
	if err != nil {
		return errors.Wrap(errors.KindStorage, "credentials.store", "save credential", err)
	}

	s.logger.InfoTag("VAULT", "stored credential", "provider", provider)
	return nil
}

// Reveal decrypts a stored key. A decryption failure (tampered row,
// different machine) is surfaced as-is; the stored blob is left in place
// so the caller decides whether to overwrite it.
func (s *Service) Reveal(ctx context.Context, userID uint, provider string) (string, error) {
	var cred storage.Credential
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		First(&cred).Error
	if err != nil {
		return "", errors.Wrap(errors.KindStorage, "credentials.reveal", "credential not found", err)
	}

	key, err := s.vault.Decrypt(cred.Blob)
	if err != nil {
		s.logger.WarnTag("VAULT", "stored credential failed to decrypt",
			"provider", provider)
		return "", err
	}
	return key, nil
}

// List reports stored providers and rotation advisories, never keys.
func (s *Service) List(ctx context.Context, userID uint) ([]Info, error) {
	var creds []storage.Credential
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("provider asc").
		Find(&creds).Error
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "credentials.list", "list credentials", err)
	}

	infos := make([]Info, 0, len(creds))
	now := time.Now()
	for _, cred := range creds {
		infos = append(infos, Info{
			Provider:     cred.Provider,
			KeyCreatedAt: cred.KeyCreatedAt,
			RotationDue:  now.Sub(cred.KeyCreatedAt) > rotationAge,
		})
	}
	return infos, nil
}

// Delete removes a stored credential.
func (s *Service) Delete(ctx context.Context, userID uint, provider string) error {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		Delete(&storage.Credential{})
	if result.Error != nil {
		return errors.Wrap(errors.KindStorage, "credentials.delete", "delete credential", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.New(errors.KindStorage, "credentials.delete", "credential not found")
	}
	return nil
}
