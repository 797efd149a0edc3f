package gazetteer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ppiankov/epitab/internal/logger"
	"github.com/ppiankov/epitab/internal/model"
)

// Builder imports the place-name dataset into a new sqlite database
type Builder struct {
	cfg       model.GazetteerConfig
	client    *http.Client
	userAgent string
	source    string
	log       *zap.Logger
}

// Option configures a Builder
type Option func(*Builder)

// WithHTTPClient sets the client used to download the dataset
func WithHTTPClient(client *http.Client) Option {
	return func(b *Builder) { b.client = client }
}

// WithUserAgent sets the User-Agent header of the download request
func WithUserAgent(ua string) Option {
	return func(b *Builder) { b.userAgent = ua }
}

// WithSource reads an already downloaded archive instead of fetching one
func WithSource(path string) Option {
	return func(b *Builder) { b.source = path }
}

// WithLogger sets the progress logger
func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) { b.log = l }
}

// NewBuilder creates a gazetteer builder
func NewBuilder(cfg model.GazetteerConfig, opts ...Option) *Builder {
	b := &Builder{cfg: cfg}
	for _, opt := range opts {
		opt(b)
	}
	b.log = logger.OrNop(b.log)
	if b.client == nil {
		b.client = &http.Client{Timeout: cfg.DownloadTimeout}
	}
	return b
}

// BuildStats summarizes an import run
type BuildStats struct {
	Skipped         bool          `json:"skipped" yaml:"skipped"`
	Places          int64         `json:"places" yaml:"places"`
	AlternateNames  int64         `json:"alternate_names" yaml:"alternate_names"`
	DefaultedFields int64         `json:"defaulted_fields" yaml:"defaulted_fields"`
	Commits         int           `json:"commits" yaml:"commits"`
	Duration        time.Duration `json:"duration" yaml:"duration"`
}

// Build creates the database at targetPath. An existing database is left
// untouched and reported as skipped. Download and decompression failures are
// fatal; an interrupted import leaves the rows committed so far in place.
func (b *Builder) Build(ctx context.Context, targetPath string) (*BuildStats, error) {
	start := time.Now()

	if _, err := os.Stat(targetPath); err == nil {
		b.log.Info("gazetteer database already exists", zap.String("path", targetPath))
		return &BuildStats{Skipped: true}, nil
	}

	archivePath, cleanup, err := b.archive(ctx)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	entry, err := OpenArchive(archivePath, b.cfg.EntryName)
	if err != nil {
		return nil, err
	}
	defer func() { _ = entry.Close() }()

	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := openDB(targetPath)
	if err != nil {
		return nil, err
	}
	defer closeDB(db)

	if err := db.AutoMigrate(&Place{}, &AlternateName{}, &AlternateNameCount{}); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}

	stats := &BuildStats{}
	if err := b.load(ctx, db, NewReader(entry), stats); err != nil {
		return stats, err
	}

	b.log.Info("creating alternate name index")
	if err := db.Exec(alternateNameIndexSQL).Error; err != nil {
		return stats, fmt.Errorf("create index: %w", err)
	}

	b.log.Info("computing alternate name counts")
	if err := db.Exec(alternateNameCountsSQL).Error; err != nil {
		return stats, fmt.Errorf("compute alternate name counts: %w", err)
	}

	stats.Duration = time.Since(start)
	b.log.Info("gazetteer import complete",
		zap.String("path", targetPath),
		zap.Int64("places", stats.Places),
		zap.Int64("alternate_names", stats.AlternateNames),
		zap.Duration("duration", stats.Duration),
	)
	return stats, nil
}

// archive returns the path of the dataset archive and a cleanup function
func (b *Builder) archive(ctx context.Context) (string, func(), error) {
	if b.source != "" {
		return b.source, func() {}, nil
	}

	tmp, err := os.CreateTemp("", "geonames-*.zip")
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }

	if b.cfg.DownloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.DownloadTimeout)
		defer cancel()
	}

	b.log.Info("downloading dataset", zap.String("url", b.cfg.DatasetURL))
	n, err := Download(ctx, b.client, b.cfg.DatasetURL, b.userAgent, tmp)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("%w: %v", ErrDownload, cerr)
	}
	if err != nil {
		cleanup()
		return "", nil, err
	}
	b.log.Info("dataset downloaded", zap.Int64("bytes", n))

	return tmp.Name(), cleanup, nil
}

// load inserts records batch by batch and commits every CommitEvery records
func (b *Builder) load(ctx context.Context, db *gorm.DB, r *Reader, stats *BuildStats) error {
	batchSize := b.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	commitEvery := b.cfg.CommitEvery()

	tx := db.Begin()
	if tx.Error != nil {
		return fmt.Errorf("begin transaction: %w", tx.Error)
	}

	places := make([]Place, 0, batchSize)
	var names []AlternateName
	sinceCommit := 0

	flush := func() error {
		if len(places) == 0 {
			return nil
		}
		if err := tx.Create(&places).Error; err != nil {
			return fmt.Errorf("insert places: %w", err)
		}
		if len(names) > 0 {
			if err := tx.CreateInBatches(&names, 1000).Error; err != nil {
				return fmt.Errorf("insert alternate names: %w", err)
			}
		}
		stats.Places += int64(len(places))
		stats.AlternateNames += int64(len(names))
		sinceCommit += len(places)
		places = places[:0]
		names = names[:0]
		return nil
	}

	commit := func() error {
		if err := tx.Commit().Error; err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		stats.Commits++
		sinceCommit = 0
		b.log.Info("gazetteer import progress",
			zap.Int64("places", stats.Places),
			zap.Int64("alternate_names", stats.AlternateNames),
		)
		return nil
	}

	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("%w: %v", ErrDecompress, err)
		}

		if len(rec.Defaulted) > 0 {
			stats.DefaultedFields += int64(len(rec.Defaulted))
			b.log.Debug("defaulted numeric fields",
				zap.String("geonameid", rec.Place.GeonameID),
				zap.Strings("fields", rec.Defaulted),
			)
		}
		places = append(places, rec.Place)
		names = append(names, rec.AlternateNameRows()...)

		if len(places) < batchSize {
			continue
		}

		if err := flush(); err != nil {
			tx.Rollback()
			return err
		}
		if commitEvery > 0 && sinceCommit >= commitEvery {
			if err := commit(); err != nil {
				return err
			}
			tx = db.Begin()
			if tx.Error != nil {
				return fmt.Errorf("begin transaction: %w", tx.Error)
			}
		}

		if err := ctx.Err(); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := flush(); err != nil {
		tx.Rollback()
		return err
	}
	return commit()
}
