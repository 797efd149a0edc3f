package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/epitab/internal/annotation"
	"github.com/ppiankov/epitab/internal/extract"
	"github.com/ppiankov/epitab/internal/logger"
	"github.com/ppiankov/epitab/internal/model"
)

// Pipeline loads annotated documents, adds structured incidents and builds
// reports
type Pipeline struct {
	loader    *Loader
	annotator *extract.StructuredIncidentAnnotator
	renderer  *Renderer
	log       *zap.Logger
	now       func() time.Time
}

// NewPipeline creates a pipeline from the configuration
func NewPipeline(cfg *model.Config, log *zap.Logger) *Pipeline {
	log = logger.OrNop(log)
	return &Pipeline{
		loader:    NewLoader(cfg.HTTP, cfg.Cache, log),
		annotator: extract.NewStructuredIncidentAnnotator(log),
		renderer:  NewRenderer(cfg.Output.Format),
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Loader returns the document loader
func (p *Pipeline) Loader() *Loader {
	return p.loader
}

// Result is the outcome of annotating one source
type Result struct {
	Source string
	Report *model.Report
}

// AnnotateSource loads the document at source and annotates it
func (p *Pipeline) AnnotateSource(ctx context.Context, source string) (*Result, error) {
	file, err := p.loader.Load(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	report, err := p.Annotate(ctx, file, source)
	if err != nil {
		return nil, err
	}
	return &Result{Source: source, Report: report}, nil
}

// Annotate runs the structured incident stage over a decoded document
func (p *Pipeline) Annotate(ctx context.Context, file *DocumentFile, source string) (*model.Report, error) {
	doc, err := file.Document()
	if err != nil {
		return nil, fmt.Errorf("build document: %w", err)
	}

	if err := doc.Apply(ctx, p.annotator); err != nil {
		return nil, fmt.Errorf("annotate: %w", err)
	}

	report := &model.Report{
		DocumentID:  doc.ID,
		Source:      source,
		AnnotatedAt: p.now(),
		Tables:      countTables(doc),
		Incidents:   []model.IncidentSpan{},
	}

	incidents, err := doc.Tier(annotation.TierStructuredIncidents)
	if err != nil {
		return nil, err
	}
	for _, span := range incidents.Spans() {
		inc, ok := extract.IncidentOf(span)
		if !ok {
			continue
		}
		report.Incidents = append(report.Incidents, model.IncidentSpan{
			Start:    span.Start,
			End:      span.End,
			Text:     span.Text(),
			Incident: inc,
		})
	}

	p.log.Info("document annotated",
		zap.String("document", report.DocumentID),
		zap.String("source", source),
		zap.Int("tables", report.Tables),
		zap.Int("incidents", len(report.Incidents)),
	)
	return report, nil
}

// RenderReport writes the report to path, or stdout when path is empty
func (p *Pipeline) RenderReport(report *model.Report, path string) error {
	if path == "" {
		return p.renderer.Render(report, nil)
	}
	return p.renderer.RenderFile(report, path)
}

func countTables(doc *annotation.Document) int {
	structured, err := doc.Tier(annotation.TierStructuredData)
	if err != nil {
		return 0
	}
	n := 0
	for _, span := range structured.Spans() {
		if rows, ok := extract.TableRows(span); ok && len(rows) > 0 {
			n++
		}
	}
	return n
}
