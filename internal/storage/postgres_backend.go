package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVRecord is a row of the kv_records table (PostgreSQL)
type KVRecord struct {
	Key       string    `gorm:"primaryKey;size:255"`
	Value     []byte    `gorm:"type:bytea;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (KVRecord) TableName() string { return "kv_records" }

// PostgresBackend stores entries in PostgreSQL through GORM.
// The kv_records table is created by AutoMigrate at startup.
type PostgresBackend struct {
	db *gorm.DB
}

func NewPostgresBackend(db *gorm.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

func (b *PostgresBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var rec KVRecord
	if err := b.db.WithContext(ctx).Where("key = ?", key).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec.Value, nil
}

func (b *PostgresBackend) Put(ctx context.Context, key string, value []byte) error {
	rec := KVRecord{Key: key, Value: value, UpdatedAt: time.Now()}
	return b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
}

func (b *PostgresBackend) Delete(ctx context.Context, key string) error {
	return b.db.WithContext(ctx).Where("key = ?", key).Delete(&KVRecord{}).Error
}

func (b *PostgresBackend) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := b.db.WithContext(ctx).Model(&KVRecord{}).Order("key").Pluck("key", &keys).Error
	return keys, err
}

func (b *PostgresBackend) Usage(ctx context.Context) (int64, error) {
	var n int64
	err := b.db.WithContext(ctx).Model(&KVRecord{}).
		Select("COALESCE(SUM(octet_length(key) + octet_length(value)), 0)").
		Scan(&n).Error
	return n, err
}
