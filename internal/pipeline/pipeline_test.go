package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/epitab/internal/annotation"
	"github.com/ppiankov/epitab/internal/model"
)

func testConfig() *model.Config {
	cfg := model.DefaultConfig()
	cfg.HTTP = testHTTPConfig()
	return cfg
}

func TestAnnotateCountTable(t *testing.T) {
	p := NewPipeline(testConfig(), nil)

	report, err := p.Annotate(context.Background(), tableDocument(countTable...), "inline")
	require.NoError(t, err)

	assert.Equal(t, "doc-1", report.DocumentID)
	assert.Equal(t, 1, report.Tables)
	require.Len(t, report.Incidents, 9)

	first := report.Incidents[0]
	assert.Equal(t, "caseCount", first.Type)
	assert.Equal(t, 3.0, first.Value)
	assert.Equal(t, "3", first.Text)

	assert.Equal(t, map[string]int{
		"caseCount":            1,
		"cumulativeCaseCount":  3,
		"deathCount":           1,
		"cumulativeDeathCount": 4,
	}, report.CountByType())
}

func TestAnnotateYAMLDateRange(t *testing.T) {
	data := []byte(`
id: dated
text: "Date / Cases\nJune 2014 / 413"
tiers:
  spacy.tokens:
    - {start: 0, end: 4}
    - {start: 7, end: 12}
    - {start: 13, end: 17}
    - {start: 18, end: 22}
    - {start: 25, end: 28}
  spacy.nes: []
  geonames: []
  resolved_keywords: []
  dates:
    - start: 13
      end: 22
      metadata:
        datetime_range: [2014-06-01, 2014-07-01]
tables:
  - start: 0
    end: 28
    rows:
      - [{start: 0, end: 4}, {start: 7, end: 12}]
      - [{start: 13, end: 22}, {start: 25, end: 28}]
`)

	file, err := ParseDocumentFile(data)
	require.NoError(t, err)

	report, err := NewPipeline(testConfig(), nil).Annotate(context.Background(), file, "")
	require.NoError(t, err)
	require.Len(t, report.Incidents, 1)

	inc := report.Incidents[0]
	assert.Equal(t, "caseCount", inc.Type)
	assert.Equal(t, 413.0, inc.Value)
	assert.Equal(t, []time.Time{
		time.Date(2014, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2014, 7, 1, 0, 0, 0, 0, time.UTC),
	}, inc.DateRange)
}

func TestAnnotateMissingTier(t *testing.T) {
	file := tableDocument(countTable...)
	delete(file.Tiers, annotation.TierDates)

	_, err := NewPipeline(testConfig(), nil).Annotate(context.Background(), file, "")
	assert.True(t, errors.Is(err, annotation.ErrMissingTier))
}

func TestAnnotateSourceFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.yaml")
	data, err := yaml.Marshal(tableDocument(countTable...))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	result, err := NewPipeline(testConfig(), nil).AnnotateSource(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, result.Source)
	assert.Len(t, result.Report.Incidents, 9)
}

func TestAnnotateSourceMissingFile(t *testing.T) {
	_, err := NewPipeline(testConfig(), nil).AnnotateSource(context.Background(), filepath.Join(t.TempDir(), "none.json"))
	assert.Error(t, err)
}

type countingLimiter struct {
	calls atomic.Int32
}

func (l *countingLimiter) WaitWithDelay(ctx context.Context, rawURL string, additionalDelay time.Duration) error {
	l.calls.Add(1)
	return nil
}

func TestLoaderRemote(t *testing.T) {
	body, err := json.Marshal(tableDocument(countTable...))
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
		case "/docs/1.json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(body)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	cfg := testConfig()
	limiter := &countingLimiter{}
	loader := NewLoader(cfg.HTTP, cfg.Cache, nil).WithLimiter(limiter)

	file, err := loader.Load(context.Background(), server.URL+"/docs/1.json")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", file.ID)
	assert.Equal(t, int32(1), limiter.calls.Load())

	_, err = loader.Load(context.Background(), server.URL+"/private/2.json")
	assert.True(t, errors.Is(err, ErrDisallowed))
	assert.Equal(t, int32(1), limiter.calls.Load(), "disallowed sources are not fetched")
}

func TestLoaderIgnoresRobotsWhenDisabled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /\n")
			return
		}
		_, _ = fmt.Fprint(w, "text: hello\n")
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.HTTP.RespectRobots = false

	file, err := NewLoader(cfg.HTTP, cfg.Cache, nil).Load(context.Background(), server.URL+"/doc.yaml")
	require.NoError(t, err)
	assert.Equal(t, "hello", file.Text)
}

func TestRenderer(t *testing.T) {
	report, err := NewPipeline(testConfig(), nil).Annotate(context.Background(), tableDocument(countTable...), "")
	require.NoError(t, err)

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewRenderer(OutputJSON).Render(report, &buf))

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		incidents := decoded["incidents"].([]any)
		require.Len(t, incidents, 9)

		first := incidents[0].(map[string]any)
		assert.Equal(t, "caseCount", first["type"])
		assert.Equal(t, []any{}, first["attributes"])
		assert.NotContains(t, first, "location", "absent entities are omitted")
		assert.NotContains(t, first, "dateRange")
	})

	t.Run("yaml file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out", "report.yaml")
		require.NoError(t, NewRenderer(OutputJSON).RenderFile(report, path))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var decoded model.Report
		require.NoError(t, yaml.Unmarshal(data, &decoded))
		assert.Len(t, decoded.Incidents, 9)
		assert.Equal(t, "cumulativeCaseCount", decoded.Incidents[1].Type)
		assert.Equal(t, []string{"confirmed"}, decoded.Incidents[1].Attributes)
	})

	t.Run("format by extension", func(t *testing.T) {
		r := NewRenderer(OutputYAML)
		assert.Equal(t, OutputJSON, r.FormatFor("x.json"))
		assert.Equal(t, OutputYAML, r.FormatFor("x.yml"))
		assert.Equal(t, OutputYAML, r.FormatFor("x.out"))
		assert.Equal(t, OutputJSON, NewRenderer("").FormatFor("x.out"))
	})
}

func TestRenderSummary(t *testing.T) {
	report := &model.Report{
		DocumentID: "doc-1",
		Tables:     1,
		Incidents: []model.IncidentSpan{
			{Incident: model.Incident{Type: "caseCount", Value: 3}},
			{Incident: model.Incident{Type: "caseCount", Value: 4}},
		},
	}

	var buf bytes.Buffer
	RenderSummary(report, &buf)
	assert.Contains(t, buf.String(), "Incidents: 2")
	assert.Contains(t, buf.String(), "caseCount")
}
