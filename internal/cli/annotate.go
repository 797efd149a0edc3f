package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/epitab/internal/pipeline"
)

var (
	outPath      string
	outputFormat string
)

var annotateCmd = &cobra.Command{
	Use:   "annotate <document>",
	Short: "Extract structured incidents from one annotated document",
	Long: `Annotate reads a document with its pre-computed annotation tiers and
detected tables (JSON or YAML, from a file or an http(s) URL), interprets each
table and reports the case and death counts found in it.

Example:
  epitab annotate report.json
  epitab annotate https://example.org/report.yaml --out incidents.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runAnnotate,
}

func init() {
	rootCmd.AddCommand(annotateCmd)

	annotateCmd.Flags().StringVar(&outPath, "out", "", "output path (default: stdout)")
	annotateCmd.Flags().StringVar(&outputFormat, "format", "", "output format: json or yaml (overrides output.format)")
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if outputFormat != "" {
		if outputFormat != pipeline.OutputJSON && outputFormat != pipeline.OutputYAML {
			return fmt.Errorf("%w: output %q", pipeline.ErrUnsupportedFormat, outputFormat)
		}
		cfg.Output.Format = outputFormat
	}

	p := pipeline.NewPipeline(cfg, log)

	result, err := p.AnnotateSource(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("annotate failed: %w", err)
	}

	if outPath == "" {
		return pipeline.NewRenderer(cfg.Output.Format).Render(result.Report, cmd.OutOrStdout())
	}
	if err := p.RenderReport(result.Report, outPath); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	if cfg.Output.Verbose {
		pipeline.RenderSummary(result.Report, os.Stderr)
	}
	_, _ = fmt.Fprintf(os.Stderr, "✓ %d incidents written to %s\n", len(result.Report.Incidents), outPath)
	return nil
}
