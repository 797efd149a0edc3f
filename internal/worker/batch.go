package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/epitab/internal/logger"
	"github.com/ppiankov/epitab/internal/model"
	"github.com/ppiankov/epitab/internal/pipeline"
)

// Annotator annotates the document found at a source path or URL
type Annotator interface {
	AnnotateSource(ctx context.Context, source string) (*pipeline.Result, error)
}

// AnnotateJob annotates one document
type AnnotateJob struct {
	Index     int
	Source    string
	Timeout   time.Duration
	Annotator Annotator
}

// Execute runs the annotator under the job timeout
func (j *AnnotateJob) Execute(ctx context.Context) Result {
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	res := &DocumentResult{Index: j.Index, Source: j.Source}
	result, err := j.Annotator.AnnotateSource(ctx, j.Source)
	if err != nil {
		res.Error = err
		return res
	}
	res.Report = result.Report
	return res
}

// DocumentResult is the outcome of annotating one source
type DocumentResult struct {
	Index  int
	Source string
	Report *model.Report
	Error  error
}

// GetError returns the annotation error, if any
func (r *DocumentResult) GetError() error {
	return r.Error
}

// BatchProcessor annotates many documents concurrently. Documents are
// independent, so a failure only marks its own result.
type BatchProcessor struct {
	annotator   Annotator
	concurrency int
	timeout     time.Duration
	log         *zap.Logger
}

// NewBatchProcessor creates a batch processor. A zero timeout disables the
// per-document deadline.
func NewBatchProcessor(annotator Annotator, concurrency int, timeout time.Duration, log *zap.Logger) *BatchProcessor {
	return &BatchProcessor{
		annotator:   annotator,
		concurrency: concurrency,
		timeout:     timeout,
		log:         logger.OrNop(log),
	}
}

// ProcessSources annotates every source and returns results in input order.
// Sources not started before ctx is cancelled carry the context error.
func (b *BatchProcessor) ProcessSources(ctx context.Context, sources []string) []*DocumentResult {
	if len(sources) == 0 {
		return []*DocumentResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, source := range sources {
		job := &AnnotateJob{
			Index:     i,
			Source:    source,
			Timeout:   b.timeout,
			Annotator: b.annotator,
		}
		if !pool.Submit(job) {
			break
		}
	}

	out := make([]*DocumentResult, len(sources))
	for _, r := range pool.Wait() {
		res := r.(*DocumentResult)
		out[res.Index] = res
	}

	for i, res := range out {
		if res != nil {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		out[i] = &DocumentResult{Index: i, Source: sources[i], Error: err}
	}

	failed := 0
	for _, res := range out {
		if res.Error != nil {
			failed++
			b.log.Warn("document failed", zap.String("source", res.Source), zap.Error(res.Error))
		}
	}
	b.log.Info("batch complete",
		zap.Int("documents", len(out)),
		zap.Int("failed", failed),
	)
	return out
}

// ProcessFile reads sources from a list file and annotates them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*DocumentResult, error) {
	sources, err := ReadSourcesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}

	return b.ProcessSources(ctx, sources), nil
}

// ReadSourcesFromFile reads document paths or URLs, one per line. Blank
// lines and # comments are skipped and duplicates dropped.
func ReadSourcesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var sources []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			sources = append(sources, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return sources, nil
}
