package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/epitab/internal/logger"
	"github.com/ppiankov/epitab/internal/model"
)

// Limiter throttles requests per host
type Limiter interface {
	WaitWithDelay(ctx context.Context, rawURL string, additionalDelay time.Duration) error
}

// Loader reads annotated documents from files or http(s) URLs
type Loader struct {
	fetcher *Fetcher
	robots  *RobotsChecker
	limiter Limiter
	log     *zap.Logger
}

// NewLoader creates a loader. Robots.txt is only consulted when the
// configuration asks for it.
func NewLoader(cfg model.HTTPConfig, cacheCfg model.CacheConfig, log *zap.Logger) *Loader {
	l := &Loader{
		fetcher: NewFetcher(cfg),
		log:     logger.OrNop(log),
	}
	if cfg.RespectRobots {
		l.robots = NewRobotsChecker(cfg.UserAgent, cfg.Timeout, cacheCfg.TTL)
	}
	return l
}

// WithLimiter throttles remote loads
func (l *Loader) WithLimiter(limiter Limiter) *Loader {
	l.limiter = limiter
	return l
}

// IsRemote reports whether source is an http(s) URL
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Load reads and decodes the document at source
func (l *Loader) Load(ctx context.Context, source string) (*DocumentFile, error) {
	if !IsRemote(source) {
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("read document: %w", err)
		}
		return ParseDocumentFile(data)
	}

	var crawlDelay time.Duration
	if l.robots != nil {
		allowed, delay, err := l.robots.CanFetch(ctx, source)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %s", ErrDisallowed, source)
		}
		crawlDelay = delay
	}

	if l.limiter != nil {
		if err := l.limiter.WaitWithDelay(ctx, source, crawlDelay); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	l.log.Debug("fetching document", zap.String("url", source))
	result, err := l.fetcher.FetchWithRetry(ctx, source)
	if err != nil {
		return nil, err
	}
	return ParseDocumentFile(result.Body)
}
