package gazetteer

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ppiankov/epitab/internal/cache"
)

// Match is a place found by name, with the alternate name that matched and
// the number of alternate names the place has
type Match struct {
	Place       `gorm:"embedded"`
	MatchedName string `gorm:"column:matched_name" json:"matched_name" yaml:"matched_name"`
	NameCount   int64  `gorm:"column:name_count" json:"name_count" yaml:"name_count"`
}

// Store is a read-only view of a built gazetteer database
type Store struct {
	db    *gorm.DB
	cache cache.Cache[[]Match]
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithCache caches lookups by normalized name
func WithCache(c cache.Cache[[]Match]) StoreOption {
	return func(s *Store) { s.cache = c }
}

// Open opens an existing gazetteer database
func Open(path string, opts ...StoreOption) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("gazetteer database: %w", err)
	}

	db, err := openDB(path)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Lookup returns the places with an alternate name equal to name after
// normalization, most alternate names first. A limit of 0 returns all.
func (s *Store) Lookup(ctx context.Context, name string, limit int) ([]Match, error) {
	key := Normalize(name)
	if key == "" {
		return []Match{}, nil
	}

	cacheKey := cache.Key("lookup", key, strconv.Itoa(limit))
	if s.cache != nil {
		if matches, ok := s.cache.Get(cacheKey); ok {
			return matches, nil
		}
	}

	q := s.db.WithContext(ctx).
		Table("alternatenames AS a").
		Select("g.*, MIN(a.alternatename) AS matched_name, COALESCE(c.count, 0) AS name_count").
		Joins("JOIN geonames AS g ON g.geonameid = a.geonameid").
		Joins("LEFT JOIN alternatename_counts AS c ON c.geonameid = a.geonameid").
		Where("a.alternatename_lemmatized = ?", key).
		Group("a.geonameid").
		Order("name_count DESC, g.geonameid")
	if limit > 0 {
		q = q.Limit(limit)
	}

	matches := []Match{}
	if err := q.Scan(&matches).Error; err != nil {
		return nil, fmt.Errorf("lookup %q: %w", name, err)
	}

	if s.cache != nil {
		s.cache.Set(cacheKey, matches, 0)
	}
	return matches, nil
}

func openDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	return db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
