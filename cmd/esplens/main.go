// ABOUTME: esplens command line: scan plugin directories, watch them, inspect single plugins
// ABOUTME: Wires configuration, logging, the checker, and metrics together

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/prateek/esplens"
	"github.com/prateek/esplens/checker"
	"github.com/prateek/esplens/game"
	"github.com/prateek/esplens/internal/config"
	"github.com/prateek/esplens/plugin"
)

// errWarnings is returned by a strict scan that raised warnings
var errWarnings = errors.New("plugins have warnings")

type options struct {
	configPath string
	logLevel   string
	game       string
	dir        string
	format     string
	output     string
	strict     bool
	metrics    string
	headerOnly bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:          "esplens",
		Short:        "Check Bethesda plugins for light, medium, and update plugin problems",
		Version:      esplens.Version,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file path")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (overrides config)")
	rootCmd.PersistentFlags().StringVar(&opts.game, "game", "", "Game to check against (overrides config)")

	scanCmd := &cobra.Command{
		Use:   "scan [dir]",
		Short: "Scan a plugin directory once and print a report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.dir = args[0]
			}
			return runScan(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
	scanCmd.Flags().StringVar(&opts.format, "format", "", "Report format: json or yaml (overrides config)")
	scanCmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the report to a file instead of stdout")
	scanCmd.Flags().BoolVar(&opts.strict, "strict", false, "Exit with an error when any plugin has warnings")

	watchCmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Rescan a plugin directory whenever its plugins change",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.dir = args[0]
			}
			return runWatch(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
	watchCmd.Flags().StringVar(&opts.format, "format", "", "Report format: json or yaml (overrides config)")
	watchCmd.Flags().StringVar(&opts.metrics, "metrics-addr", "", "Serve Prometheus metrics on this address")

	inspectCmd := &cobra.Command{
		Use:   "inspect <plugin>",
		Short: "Print the header and subtype checks of one plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], cmd.OutOrStdout())
		},
	}
	inspectCmd.Flags().BoolVar(&opts.headerOnly, "header-only", false, "Read only the file header")

	gamesCmd := &cobra.Command{
		Use:   "games",
		Short: "List supported games and their plugin rules",
		Run: func(cmd *cobra.Command, args []string) {
			printGames(cmd.OutOrStdout())
		},
	}

	rootCmd.AddCommand(scanCmd, watchCmd, inspectCmd, gamesCmd)
	return rootCmd
}

// loadConfig loads the config file and applies flag overrides. Validation
// runs once, after the overrides, so a flag can correct a bad config value.
func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.LoadUnvalidated(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.game != "" {
		cfg.Game = opts.game
	}
	if opts.dir != "" {
		cfg.PluginDir = opts.dir
	}
	if opts.format != "" {
		cfg.Scan.Format = opts.format
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func setupLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}

func newScanner(cfg *config.Config, logger *logrus.Logger, cache *checker.Cache, metrics *checker.Metrics) (*checker.Scanner, error) {
	id, err := cfg.GameID()
	if err != nil {
		return nil, err
	}
	dirty, err := cfg.LoadDirtyList()
	if err != nil {
		return nil, err
	}
	if dirty != nil {
		logger.WithField("releases", dirty.Len()).Debug("Loaded dirty plugin lists")
	}
	return checker.NewScanner(checker.Options{
		Game:        id,
		Concurrency: cfg.Scan.Concurrency,
		Cache:       cache,
		Metrics:     metrics,
		Dirty:       dirty,
		Logger:      logger,
	})
}

func runScan(ctx context.Context, opts *options, stdout io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Log)

	format, err := cfg.ReportFormat()
	if err != nil {
		return err
	}
	scanner, err := newScanner(cfg, logger, nil, nil)
	if err != nil {
		return err
	}

	report, err := scanner.Scan(ctx, cfg.PluginDir)
	if err != nil {
		return err
	}

	if opts.output != "" {
		err = writeReportFile(opts.output, report, format)
	} else {
		err = report.Write(stdout, format)
	}
	if err != nil {
		return err
	}

	if opts.strict && report.WarningCount() > 0 {
		return fmt.Errorf("%w: %d warnings", errWarnings, report.WarningCount())
	}
	return nil
}

// writeReportFile writes the report to path. A failed close is an error,
// since it can mean the report never reached the disk.
func writeReportFile(path string, report *checker.Report, format checker.Format) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := report.Write(f, format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close report file: %w", err)
	}
	return nil
}

func runWatch(ctx context.Context, opts *options, stdout io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Log)

	format, err := cfg.ReportFormat()
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	metrics := checker.NewMetrics(registry)
	cache := checker.NewCache(cfg.Cache.Size, cfg.Cache.TTL)

	scanner, err := newScanner(cfg, logger, cache, metrics)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.metrics != "" {
		srv := &http.Server{
			Addr:              opts.metrics,
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.WithField("addr", opts.metrics).Info("Serving metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.WithError(err).Error("Metrics server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	watcher := checker.NewWatcher(scanner, cfg.PluginDir, cfg.Watch.Debounce, func(report *checker.Report) {
		if err := report.Write(stdout, format); err != nil {
			logger.WithError(err).Error("Failed to write report")
		}
	})
	return watcher.Run(ctx)
}

func runInspect(opts *options, path string, stdout io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	p, err := plugin.NewFromName(cfg.Game, path)
	if err != nil {
		return err
	}
	parseOpts := plugin.WholePlugin()
	if opts.headerOnly {
		parseOpts = plugin.HeaderOnly()
	}
	if err := p.ParseFile(parseOpts); err != nil {
		return err
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Plugin:\t%s\n", p.Filename())
	fmt.Fprintf(w, "Game:\t%s\n", p.Game())
	fmt.Fprintf(w, "Parsed:\t%s\n", p.State())
	fmt.Fprintf(w, "Version:\t%.2f\n", p.HeaderVersion())
	fmt.Fprintf(w, "Master:\t%t\n", p.IsMasterFile())
	fmt.Fprintf(w, "Masters:\t%d\n", len(p.Masters()))
	for _, m := range p.Masters() {
		fmt.Fprintf(w, "\t%s\n", m)
	}
	if p.Author() != "" {
		fmt.Fprintf(w, "Author:\t%s\n", p.Author())
	}
	fmt.Fprintf(w, "Light:\t%t\t%s\n", p.IsLightPlugin(), validity(p.IsValidAsLightPlugin()))
	fmt.Fprintf(w, "Medium:\t%t\t%s\n", p.IsMediumPlugin(), validity(p.IsValidAsMediumPlugin()))
	fmt.Fprintf(w, "Update:\t%t\t%s\n", p.IsUpdatePlugin(), validity(p.IsValidAsUpdatePlugin()))
	if n, err := p.NewRecordCount(); err == nil {
		fmt.Fprintf(w, "New records:\t%d\n", n)
	}
	if n, err := p.OverrideRecordCount(); err == nil {
		fmt.Fprintf(w, "Override records:\t%d\n", n)
	}
	return w.Flush()
}

func validity(valid bool, err error) string {
	switch {
	case plugin.IsNotParsedError(err):
		return "(not checked)"
	case err != nil:
		return "(" + err.Error() + ")"
	case valid:
		return "(valid)"
	default:
		return "(invalid)"
	}
}

func printGames(stdout io.Writer) {
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GAME\tHEADER\tLIGHT\tMEDIUM\tUPDATE")
	for _, id := range game.All() {
		rules := id.Rules()
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
			id,
			rules.RecordHeaderSize,
			lightColumn(rules),
			rangeColumn(rules.MediumFlag, rules.MediumRange),
			flagColumn(rules.UpdateFlag),
		)
	}
	w.Flush()
}

func flagColumn(flag uint32) string {
	if flag == 0 {
		return "-"
	}
	return fmt.Sprintf("0x%X", flag)
}

func rangeColumn(flag uint32, r game.Range) string {
	if flag == 0 {
		return "-"
	}
	return fmt.Sprintf("0x%X [%03X-%03X]", flag, r.Min, r.Max)
}

func lightColumn(rules game.Rules) string {
	col := rangeColumn(rules.LightFlag, rules.LightRange)
	if rules.LightFlag != 0 && rules.ExtendedLightSince != 0 {
		r := rules.ExtendedLightRange
		col += fmt.Sprintf(" [%03X-%03X] from %.2f", r.Min, r.Max, rules.ExtendedLightSince)
	}
	return col
}
