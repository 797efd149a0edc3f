package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/epitab/internal/cache"
	"github.com/ppiankov/epitab/internal/gazetteer"
)

var (
	dbPath        string
	sourceArchive string
	datasetURL    string
	batchSize     int
	lookupLimit   int
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Build the place-name gazetteer database",
	Long: `Import downloads the geonames allCountries dataset (or reads an archive
already on disk) and loads it into a local sqlite database with an index on
lowercased alternate names and per-place name counts.

An existing database is left untouched.

Example:
  epitab import
  epitab import --source ./allCountries.zip --db ./geonames.sqlite`,
	Args: cobra.NoArgs,
	RunE: runImport,
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <name>...",
	Short: "Look up places by name in the gazetteer",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLookup,
}

func init() {
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(lookupCmd)

	importCmd.Flags().StringVar(&dbPath, "db", "", "database path (default: $HOME/.epitab/geonames.sqlite)")
	importCmd.Flags().StringVar(&sourceArchive, "source", "", "local dataset archive instead of downloading")
	importCmd.Flags().StringVar(&datasetURL, "url", "", "dataset URL (overrides gazetteer.dataset_url)")
	importCmd.Flags().IntVar(&batchSize, "batch-size", 0, "records per bulk insert (overrides gazetteer.batch_size)")

	lookupCmd.Flags().StringVar(&dbPath, "db", "", "database path (default: $HOME/.epitab/geonames.sqlite)")
	lookupCmd.Flags().IntVar(&lookupLimit, "limit", 10, "maximum number of places")
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if dbPath != "" {
		cfg.Gazetteer.DBPath = dbPath
	}
	if datasetURL != "" {
		cfg.Gazetteer.DatasetURL = datasetURL
	}
	if batchSize > 0 {
		cfg.Gazetteer.BatchSize = batchSize
	}
	target, err := databasePath(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := []gazetteer.Option{
		gazetteer.WithLogger(log),
		gazetteer.WithUserAgent(cfg.HTTP.UserAgent),
	}
	if sourceArchive != "" {
		opts = append(opts, gazetteer.WithSource(sourceArchive))
	}

	_, _ = fmt.Fprintf(os.Stderr, "\n")
	_, _ = fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	_, _ = fmt.Fprintf(os.Stderr, "  Epitab Gazetteer Import\n")
	_, _ = fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	_, _ = fmt.Fprintf(os.Stderr, "\n")
	_, _ = fmt.Fprintf(os.Stderr, "  Database:     %s\n", target)
	if sourceArchive != "" {
		_, _ = fmt.Fprintf(os.Stderr, "  Source:       %s\n", sourceArchive)
	} else {
		_, _ = fmt.Fprintf(os.Stderr, "  Source:       %s\n", cfg.Gazetteer.DatasetURL)
	}
	_, _ = fmt.Fprintf(os.Stderr, "  Batch size:   %d\n", cfg.Gazetteer.BatchSize)
	_, _ = fmt.Fprintf(os.Stderr, "  Commit every: %d records\n", cfg.Gazetteer.CommitEvery())
	_, _ = fmt.Fprintf(os.Stderr, "\n")

	stats, err := gazetteer.NewBuilder(cfg.Gazetteer, opts...).Build(ctx, target)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	if stats.Skipped {
		_, _ = fmt.Fprintf(os.Stderr, "✓ Database already exists, nothing to do\n\n")
		return nil
	}

	_, _ = fmt.Fprintf(os.Stderr, "✓ Imported %d places, %d alternate names in %v\n", stats.Places, stats.AlternateNames, stats.Duration.Round(time.Millisecond))
	if stats.DefaultedFields > 0 {
		_, _ = fmt.Fprintf(os.Stderr, "  %d malformed numeric fields defaulted to 0\n", stats.DefaultedFields)
	}
	_, _ = fmt.Fprintf(os.Stderr, "\n")
	return nil
}

func runLookup(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if dbPath != "" {
		cfg.Gazetteer.DBPath = dbPath
	}
	path, err := databasePath(cfg)
	if err != nil {
		return err
	}

	var opts []gazetteer.StoreOption
	if cfg.Cache.Enabled {
		opts = append(opts, gazetteer.WithCache(cache.NewMemory[[]gazetteer.Match](cfg.Cache.TTL, cfg.Cache.CleanupInterval)))
	}

	store, err := gazetteer.Open(path, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return lookupNames(cmd.Context(), store, args, lookupLimit, cmd.OutOrStdout())
}

type placeLookup interface {
	Lookup(ctx context.Context, name string, limit int) ([]gazetteer.Match, error)
}

// lookupNames prints the matches for each name. Repeated names in one run
// are served from the store cache.
func lookupNames(ctx context.Context, store placeLookup, names []string, limit int, out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "QUERY\tGEONAMEID\tNAME\tCOUNTRY\tFEATURE\tPOPULATION\tNAMES")
	for _, name := range names {
		matches, err := store.Lookup(ctx, name, limit)
		if err != nil {
			return fmt.Errorf("lookup %q: %w", name, err)
		}
		if len(matches) == 0 {
			_, _ = fmt.Fprintf(os.Stderr, "No places named %q\n", name)
			continue
		}
		for _, m := range matches {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s.%s\t%d\t%d\n",
				name, m.GeonameID, m.Name, m.CountryCode, m.FeatureClass, m.FeatureCode, m.Population, m.NameCount)
		}
	}
	return w.Flush()
}
