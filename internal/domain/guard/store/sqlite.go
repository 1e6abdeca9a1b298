package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/JoseDiazCodes/LibertyLM/internal/platform/storage"
)

type sqliteStore struct {
	db *gorm.DB
}

// NewSQLite builds a failure store on top of an existing gorm handle.
// The failed_logins table is created by the shared migration.
func NewSQLite(db *gorm.DB) (FailureStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite driver requires database handle")
	}
	if !db.Migrator().HasTable(&storage.FailedLogin{}) {
		if err := db.AutoMigrate(&storage.FailedLogin{}); err != nil {
			return nil, fmt.Errorf("migrate failed_logins: %w", err)
		}
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Append(ctx context.Context, identifier string, at time.Time) error {
	row := storage.FailedLogin{Identifier: identifier, AttemptedAt: at}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *sqliteStore) List(ctx context.Context, identifier string) ([]time.Time, error) {
	var rows []storage.FailedLogin
	err := s.db.WithContext(ctx).
		Where("identifier = ?", identifier).
		Order("attempted_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	stamps := make([]time.Time, 0, len(rows))
	for _, row := range rows {
		stamps = append(stamps, row.AttemptedAt)
	}
	return stamps, nil
}

func (s *sqliteStore) Prune(ctx context.Context, identifier string, cutoff time.Time) error {
	return s.db.WithContext(ctx).
		Where("identifier = ? AND attempted_at <= ?", identifier, cutoff).
		Delete(&storage.FailedLogin{}).Error
}

func (s *sqliteStore) Clear(ctx context.Context, identifier string) error {
	return s.db.WithContext(ctx).
		Where("identifier = ?", identifier).
		Delete(&storage.FailedLogin{}).Error
}

func (s *sqliteStore) Close(_ context.Context) error {
	// The gorm handle is shared; its lifecycle belongs to the caller.
	return nil
}
