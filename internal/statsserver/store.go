// Package statsserver is a small reference implementation of the stats
// service: it records endpoint hits and reports per-URI hit counts.
package statsserver

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Shivanand-hulikatti/eventhub/internal/config"
	"github.com/Shivanand-hulikatti/eventhub/internal/stats"
)

// Hit is a persisted endpoint visit.
type Hit struct {
	ID        int64     `gorm:"primaryKey"`
	App       string    `gorm:"size:255;not null"`
	URI       string    `gorm:"column:uri;size:512;not null;index:idx_endpoint_hits_uri_visited"`
	IP        string    `gorm:"column:ip;size:64;not null"`
	VisitedAt time.Time `gorm:"not null;index:idx_endpoint_hits_uri_visited"`
}

func (Hit) TableName() string { return "endpoint_hits" }

// Open connects to the configured database and migrates the hit table.
func Open(cfg config.StatsStoreConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported stats driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gorm open: %w", err)
	}
	if err := db.AutoMigrate(&Hit{}); err != nil {
		return nil, fmt.Errorf("migrate endpoint_hits: %w", err)
	}
	return db, nil
}

// Store persists hits with GORM.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Save inserts hit and fills in its id.
func (s *Store) Save(ctx context.Context, hit *Hit) error {
	return s.db.WithContext(ctx).Create(hit).Error
}

// Stats groups hits inside [start, end] by app and uri, most visited first.
// When unique is set each ip counts once per group. A non-empty app keeps
// only that application's hits.
func (s *Store) Stats(ctx context.Context, app string, start, end time.Time, uris []string, unique bool) ([]stats.ViewStats, error) {
	count := "COUNT(*)"
	if unique {
		count = "COUNT(DISTINCT ip)"
	}

	q := s.db.WithContext(ctx).
		Model(&Hit{}).
		Select("app, uri, "+count+" AS hits").
		Where("visited_at BETWEEN ? AND ?", start.UTC(), end.UTC())
	if app != "" {
		q = q.Where("app = ?", app)
	}
	if len(uris) > 0 {
		q = q.Where("uri IN ?", uris)
	}

	rows := []stats.ViewStats{}
	err := q.Group("app, uri").
		Order("hits DESC").
		Order("uri ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	return rows, nil
}
