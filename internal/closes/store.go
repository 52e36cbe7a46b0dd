package closes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"kickday/internal/strategy"
)

const sessionLayout = "2006-01-02"

// ErrNoSession is returned when the store holds no session old enough.
var ErrNoSession = errors.New("no evening clearing session recorded")

// EveningPrice is one instrument's evening clearing price for a session.
type EveningPrice struct {
	ID         uint            `gorm:"primaryKey"`
	Symbol     string          `gorm:"uniqueIndex:idx_symbol_session;not null"`
	Session    string          `gorm:"uniqueIndex:idx_symbol_session;index;not null"`
	Price      decimal.Decimal `gorm:"type:text;not null"`
	ObservedAt time.Time
}

// Store keeps evening clearing prices in sqlite.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open closes db: %w", err)
	}
	if err := db.AutoMigrate(&EveningPrice{}); err != nil {
		return nil, fmt.Errorf("migrate closes db: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// WithClock replaces the time source used to decide which sessions are
// in the past.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func SessionKey(day time.Time) string {
	return day.Format(sessionLayout)
}

// Save upserts prices keyed by symbol and session.
func (s *Store) Save(ctx context.Context, prices []EveningPrice) error {
	if len(prices) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}, {Name: "session"}},
		DoUpdates: clause.AssignmentColumns([]string{"price", "observed_at"}),
	}).Create(&prices).Error
	if err != nil {
		return fmt.Errorf("save evening prices: %w", err)
	}
	return nil
}

// Sessions lists recorded sessions strictly before the current day, newest
// first.
func (s *Store) Sessions(ctx context.Context, limit int) ([]string, error) {
	today := SessionKey(s.now())
	var sessions []string
	err := s.db.WithContext(ctx).Model(&EveningPrice{}).
		Where("session < ?", today).
		Distinct().
		Order("session desc").
		Limit(limit).
		Pluck("session", &sessions).Error
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// PreviousSessionCloses returns the closes of the daysBack-th most recent
// session before today. daysBack=1 is the previous session.
func (s *Store) PreviousSessionCloses(ctx context.Context, daysBack int) (map[string]strategy.PriceRecord, error) {
	if daysBack < 1 {
		return nil, fmt.Errorf("days back must be >= 1, got %d", daysBack)
	}
	sessions, err := s.Sessions(ctx, daysBack)
	if err != nil {
		return nil, err
	}
	if len(sessions) < daysBack {
		return nil, ErrNoSession
	}

	var prices []EveningPrice
	if err := s.db.WithContext(ctx).Where("session = ?", sessions[daysBack-1]).Order("symbol").Find(&prices).Error; err != nil {
		return nil, fmt.Errorf("read session %s: %w", sessions[daysBack-1], err)
	}

	result := make(map[string]strategy.PriceRecord, len(prices))
	for _, p := range prices {
		result[p.Symbol] = strategy.PriceRecord{Price: p.Price, Time: p.ObservedAt}
	}
	return result, nil
}
