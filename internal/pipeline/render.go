package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/epitab/internal/model"
)

// Report output formats
const (
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// Renderer writes reports as JSON or YAML
type Renderer struct {
	format string
}

// NewRenderer creates a renderer. Unknown formats fall back to JSON.
func NewRenderer(format string) *Renderer {
	return &Renderer{format: format}
}

// FormatFor picks the output format from a file extension, else the default
func (r *Renderer) FormatFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return OutputYAML
	case ".json":
		return OutputJSON
	}
	if r.format == OutputYAML {
		return OutputYAML
	}
	return OutputJSON
}

// Render writes the report in the renderer's format. A nil writer means stdout.
func (r *Renderer) Render(report *model.Report, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}
	return r.write(report, w, r.FormatFor(""))
}

// RenderFile writes the report to path, choosing the format by extension
func (r *Renderer) RenderFile(report *model.Report, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := r.write(report, f, r.FormatFor(path)); err != nil {
		return err
	}
	return f.Close()
}

func (r *Renderer) write(report *model.Report, w io.Writer, format string) error {
	switch format {
	case OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("marshal YAML: %w", err)
		}
		return enc.Close()
	default:
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
		data = append(data, '\n')
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("write: %w", err)
		}
		return nil
	}
}

// RenderSummary prints a short per-type tally to w
func RenderSummary(report *model.Report, w io.Writer) {
	counts := report.CountByType()
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)

	_, _ = fmt.Fprintf(w, "Document: %s\n", report.DocumentID)
	if report.Source != "" {
		_, _ = fmt.Fprintf(w, "Source:   %s\n", report.Source)
	}
	_, _ = fmt.Fprintf(w, "Tables:   %d\n", report.Tables)
	_, _ = fmt.Fprintf(w, "Incidents: %d\n", len(report.Incidents))
	for _, t := range types {
		_, _ = fmt.Fprintf(w, "  %-24s %d\n", t, counts[t])
	}
}
