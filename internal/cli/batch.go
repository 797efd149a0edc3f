package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/epitab/internal/pipeline"
	"github.com/ppiankov/epitab/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Annotate many documents listed in a file in parallel",
	Long: `Batch annotates every document listed in the input file (one path or
URL per line, # starts a comment) with a pool of workers. Remote documents are
rate limited per host and honour robots.txt. One report is written per
document; a failing document does not stop the batch.

Example:
  epitab batch documents.txt
  epitab batch documents.txt --concurrency 8 --output-dir ./incidents --timeout 1m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: concurrency.workers)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./epitab-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 2*time.Minute, "timeout per document")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	file := args[0]
	if concurrency > 0 {
		cfg.Concurrency.Workers = concurrency
	}

	_, _ = fmt.Fprintf(os.Stderr, "\n")
	_, _ = fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	_, _ = fmt.Fprintf(os.Stderr, "  Epitab Batch Annotation\n")
	_, _ = fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	_, _ = fmt.Fprintf(os.Stderr, "\n")
	_, _ = fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	_, _ = fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	_, _ = fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	_, _ = fmt.Fprintf(os.Stderr, "  Timeout:      %v per document\n", batchTimeout)
	_, _ = fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p := pipeline.NewPipeline(cfg, log)
	p.Loader().WithLimiter(worker.NewLimiterFromConfig(cfg.RateLimiting))

	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers, batchTimeout, log)
	results, err := processor.ProcessFile(cmd.Context(), file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	renderer := pipeline.NewRenderer(cfg.Output.Format)
	successCount, failureCount := writeBatchReports(renderer, results, outputDir)

	_, _ = fmt.Fprintf(os.Stderr, "\n")
	_, _ = fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	_, _ = fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	_, _ = fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	_, _ = fmt.Fprintf(os.Stderr, "\n")
	_, _ = fmt.Fprintf(os.Stderr, "  Total:     %d documents\n", len(results))
	_, _ = fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	_, _ = fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	_, _ = fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	_, _ = fmt.Fprintf(os.Stderr, "\n")

	if failureCount > 0 && successCount == 0 {
		return fmt.Errorf("all %d documents failed", failureCount)
	}
	return nil
}

// writeBatchReports writes one report per successful result and returns the
// success and failure counts
func writeBatchReports(renderer *pipeline.Renderer, results []*worker.DocumentResult, dir string) (int, int) {
	success, failure := 0, 0
	for _, result := range results {
		if result.Error != nil {
			failure++
			_, _ = fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Source, result.Error)
			continue
		}

		path := filepath.Join(dir, reportFileName(result, renderer.FormatFor("")))
		if err := renderer.RenderFile(result.Report, path); err != nil {
			failure++
			_, _ = fmt.Fprintf(os.Stderr, "✗ %s: failed to write report: %v\n", result.Source, err)
			continue
		}

		success++
		_, _ = fmt.Fprintf(os.Stderr, "✓ %s (%d incidents)\n", result.Source, len(result.Report.Incidents))
	}
	return success, failure
}

// reportFileName names the report of one batch entry. The index prefix keeps
// names unique when documents share an id.
func reportFileName(result *worker.DocumentResult, format string) string {
	name := result.Report.DocumentID
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(result.Source), filepath.Ext(result.Source))
	}
	return fmt.Sprintf("%04d-%s.%s", result.Index+1, sanitizeFilename(name), format)
}

// sanitizeFilename replaces characters that are unsafe in file names
func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s = replacer.Replace(strings.TrimSpace(s))
	s = strings.Trim(s, ".")

	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "document"
	}
	return s
}
