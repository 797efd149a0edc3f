package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/epitab/internal/model"
	"github.com/ppiankov/epitab/internal/pipeline"
)

type mockAnnotator struct {
	fail  map[string]bool
	delay time.Duration
	calls atomic.Int32
}

func (m *mockAnnotator) AnnotateSource(ctx context.Context, source string) (*pipeline.Result, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.fail[source] {
		return nil, errors.New("annotate error")
	}
	return &pipeline.Result{
		Source: source,
		Report: &model.Report{DocumentID: strings.TrimSuffix(filepath.Base(source), ".json"), Source: source},
	}, nil
}

func writeList(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestProcessSources(t *testing.T) {
	annotator := &mockAnnotator{fail: map[string]bool{"b.json": true}}
	processor := NewBatchProcessor(annotator, 2, 0, nil)

	sources := []string{"a.json", "b.json", "c.json", "d.json"}
	results := processor.ProcessSources(context.Background(), sources)

	require.Len(t, results, 4)
	for i, res := range results {
		assert.Equal(t, i, res.Index)
		assert.Equal(t, sources[i], res.Source)
	}

	assert.Error(t, results[1].Error)
	assert.Nil(t, results[1].Report)
	assert.NoError(t, results[0].GetError())
	assert.Equal(t, "c", results[2].Report.DocumentID)
	assert.Equal(t, int32(4), annotator.calls.Load(), "a failing document does not stop the batch")
}

func TestProcessSourcesEmpty(t *testing.T) {
	results := NewBatchProcessor(&mockAnnotator{}, 2, 0, nil).ProcessSources(context.Background(), nil)
	assert.Empty(t, results)
}

func TestProcessSourcesTimeout(t *testing.T) {
	annotator := &mockAnnotator{delay: time.Second}
	processor := NewBatchProcessor(annotator, 2, 20*time.Millisecond, nil)

	results := processor.ProcessSources(context.Background(), []string{"slow.json"})
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Error, context.DeadlineExceeded)
}

func TestProcessSourcesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := NewBatchProcessor(&mockAnnotator{}, 1, 0, nil).ProcessSources(ctx, []string{"a.json", "b.json"})
	require.Len(t, results, 2)
	for _, res := range results {
		assert.ErrorIs(t, res.Error, context.Canceled)
	}
}

func TestProcessFile(t *testing.T) {
	path := writeList(t, "a.json\nhttps://example.org/b.json\n# comment\n\na.json\n")

	results, err := NewBatchProcessor(&mockAnnotator{}, 2, 0, nil).ProcessFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "https://example.org/b.json", results[1].Source)
}

func TestProcessFileMissing(t *testing.T) {
	_, err := NewBatchProcessor(&mockAnnotator{}, 2, 0, nil).ProcessFile(context.Background(), filepath.Join(t.TempDir(), "none.txt"))
	assert.Error(t, err)
}

func TestReadSourcesFromFile(t *testing.T) {
	path := writeList(t, "docs/a.json\n# comment\nhttps://example.org/b.yaml\n   \n  docs/c.yaml   \ndocs/a.json")

	sources, err := ReadSourcesFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/a.json", "https://example.org/b.yaml", "docs/c.yaml"}, sources)
}

func TestDocumentResultGetError(t *testing.T) {
	assert.NoError(t, (&DocumentResult{}).GetError())

	want := errors.New("failed")
	assert.Equal(t, want, (&DocumentResult{Error: want}).GetError())
}
