package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type highScoreRow struct {
	Player    string `gorm:"primaryKey;size:64"`
	Score     int    `gorm:"not null;index"`
	UpdatedAt time.Time
}

func (highScoreRow) TableName() string { return "high_scores" }

// Postgres persists high scores through gorm.
type Postgres struct {
	db  *gorm.DB
	log *zap.Logger
}

func OpenPostgres(dsn string, log *zap.Logger) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewGorm(db, log)
}

// NewGorm wraps an existing connection and migrates the high_scores table.
func NewGorm(db *gorm.DB, log *zap.Logger) (*Postgres, error) {
	if err := db.AutoMigrate(&highScoreRow{}); err != nil {
		return nil, fmt.Errorf("migrate high_scores: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	log.Info("high score store ready", zap.String("dialect", db.Dialector.Name()))
	return &Postgres{db: db, log: log}, nil
}

func (p *Postgres) HighScore(ctx context.Context, player string) (int, error) {
	if err := validPlayer(player); err != nil {
		return 0, err
	}
	var row highScoreRow
	err := p.db.WithContext(ctx).
		Where("player = ?", player).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return 0, fmt.Errorf("load high score for %s: %w", player, err)
	}
	return row.Score, nil
}

func (p *Postgres) SaveHighScore(ctx context.Context, player string, score int) error {
	if err := validPlayer(player); err != nil {
		return err
	}
	row := highScoreRow{Player: player, Score: score, UpdatedAt: time.Now().UTC()}
	err := p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "player"}},
		DoUpdates: clause.Assignments(map[string]any{
			"score":      gorm.Expr("GREATEST(high_scores.score, EXCLUDED.score)"),
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save high score for %s: %w", player, err)
	}
	return nil
}

func (p *Postgres) Top(ctx context.Context, n int) ([]Entry, error) {
	var rows []highScoreRow
	q := p.db.WithContext(ctx).Order("score DESC").Order("player ASC")
	if n > 0 {
		q = q.Limit(n)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list high scores: %w", err)
	}

	entries := make([]Entry, len(rows))
	for i, r := range rows {
		entries[i] = Entry{Player: r.Player, Score: r.Score}
	}
	return entries, nil
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
