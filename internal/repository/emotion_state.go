// Package repository provides the PostgreSQL-backed emotion state store.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/easeaico/emotion-engine/internal/storage"
)

// EmotionStateRecord is the emotion_states table row. The detected-emotion
// vector is stored as a JSON document so the persisted schema matches the
// file and Redis backends field for field.
type EmotionStateRecord struct {
	SessionKey     string `gorm:"primaryKey;column:session_key"`
	PrimaryEmotion string `gorm:"column:primary_emotion"`
	Intensity      float64
	Stability      float64
	Emotions       string `gorm:"type:jsonb"`
	RecentChanges  string `gorm:"column:recent_changes"`
	Timestamp      string
	UpdatedAt      time.Time
}

// TableName sets the table used by gorm.
func (EmotionStateRecord) TableName() string {
	return "emotion_states"
}

// Store persists emotion state records in PostgreSQL.
type Store struct {
	db *gorm.DB
}

// NewStore initializes the PostgreSQL pool and migrates the emotion_states
// table.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&EmotionStateRecord{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate emotion_states: %w", err)
	}
	return &Store{db: db}, nil
}

// Load fetches the record for sessionKey.
func (s *Store) Load(ctx context.Context, sessionKey string) (storage.Record, error) {
	var row EmotionStateRecord
	err := s.db.WithContext(ctx).First(&row, "session_key = ?", sessionKey).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return storage.Record{}, storage.ErrNotFound
		}
		return storage.Record{}, fmt.Errorf("failed to load emotion state: %w", err)
	}

	emotions := make(map[string]float64)
	if err := json.Unmarshal([]byte(row.Emotions), &emotions); err != nil {
		return storage.Record{}, fmt.Errorf("failed to unmarshal emotions column: %w", err)
	}
	return storage.Record{
		PrimaryEmotion: row.PrimaryEmotion,
		Intensity:      row.Intensity,
		Stability:      row.Stability,
		Emotions:       emotions,
		RecentChanges:  row.RecentChanges,
		Timestamp:      row.Timestamp,
	}, nil
}

// Save upserts the record for sessionKey in a single statement.
func (s *Store) Save(ctx context.Context, sessionKey string, rec storage.Record) error {
	emotions, err := json.Marshal(rec.Emotions)
	if err != nil {
		return fmt.Errorf("failed to marshal emotions column: %w", err)
	}

	row := EmotionStateRecord{
		SessionKey:     sessionKey,
		PrimaryEmotion: rec.PrimaryEmotion,
		Intensity:      rec.Intensity,
		Stability:      rec.Stability,
		Emotions:       string(emotions),
		RecentChanges:  rec.RecentChanges,
		Timestamp:      rec.Timestamp,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_key"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save emotion state: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	if s.db == nil {
		return
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return
	}
	_ = sqlDB.Close()
}

var _ storage.Store = (*Store)(nil)
