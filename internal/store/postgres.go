package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type resumeToken struct {
	Key        string `gorm:"primaryKey"`
	RoomCode   string `gorm:"not null"`
	PlayerName string `gorm:"not null"`
	UpdatedAt  time.Time
}

func (resumeToken) TableName() string { return "resume_tokens" }

// Postgres stores the token in a resume_tokens row keyed by Key. Useful when
// the client runs on a host without a writable home directory.
type Postgres struct {
	db  *gorm.DB
	key string
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&resumeToken{}); err != nil {
		return nil, fmt.Errorf("migrate resume_tokens: %w", err)
	}
	return &Postgres{db: db, key: Key}, nil
}

func (p *Postgres) Load(ctx context.Context) (Token, error) {
	var row resumeToken
	err := p.db.WithContext(ctx).First(&row, "key = ?", p.key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Token{}, ErrNoToken
	}
	if err != nil {
		return Token{}, fmt.Errorf("load token: %w", err)
	}
	return Token{RoomCode: row.RoomCode, PlayerName: row.PlayerName}, nil
}

func (p *Postgres) Save(ctx context.Context, tok Token) error {
	row := resumeToken{Key: p.key, RoomCode: tok.RoomCode, PlayerName: tok.PlayerName}
	err := p.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context) error {
	if err := p.db.WithContext(ctx).Delete(&resumeToken{}, "key = ?", p.key).Error; err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
