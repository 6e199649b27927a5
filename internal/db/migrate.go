package db

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/NBMedia786/chabot/internal/models"
)

// AllModels returns every GORM model the gateway persists.
func AllModels() []interface{} {
	return []interface{}{
		&models.Profile{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// UpsertProfile inserts p, or updates the existing row with the same email.
func UpsertProfile(db *gorm.DB, p *models.Profile) error {
	p.UpdatedAt = time.Now().UTC()
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "phone", "age", "updated_at"}),
	}).Create(p)
	if result.Error != nil {
		return fmt.Errorf("db: upsert profile %q: %w", p.Email, result.Error)
	}
	return nil
}

// ProfileStore adapts a *gorm.DB to the profile service.
type ProfileStore struct {
	DB *gorm.DB
}

// UpsertProfile stores p keyed by email.
func (s ProfileStore) UpsertProfile(p *models.Profile) error {
	return UpsertProfile(s.DB, p)
}

// Ping reports whether the database answers.
func (s ProfileStore) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return fmt.Errorf("db: underlying connection: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("db: ping: %w", err)
	}
	return nil
}
