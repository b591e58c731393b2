package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"portfolioPlot/internal/config"
	"portfolioPlot/internal/finance"
	"portfolioPlot/internal/openai"
	"portfolioPlot/internal/pipeline"
	"portfolioPlot/internal/report"
	"portfolioPlot/internal/storage"
	"portfolioPlot/internal/telegram"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	holdingsPath   string
	period         string
	interval       string
	exclusionsPath string
	outDir         string
	dbPath         string
	noCache        bool
	noPublish      bool
	verbose        bool
)

var rootCmd = &cobra.Command{
	Use:   "plot",
	Short: "Plot cumulative portfolio and holding returns",
	Long: `plot loads a share-count holdings file, downloads daily adjusted closes
from Yahoo Finance and computes the cumulative return of every holding and of
the share-weighted portfolio. Charts and CSV tables are written to the output
directory.

Example usage:
  plot                                         # ytd, daily, portfolio/portfolio.json
  plot --period 6m --exclusions exclusions.yaml
  plot --holdings my.json --out reports/ --no-cache`,
	SilenceUsage: true,
	RunE:         runPlot,
}

func init() {
	rootCmd.Flags().StringVar(&holdingsPath, "holdings", "", "Holdings JSON file (env HOLDINGS_PATH)")
	rootCmd.Flags().StringVar(&period, "period", "", "Window: ytd, 1y, max, or a count like 10d, 3w, 6m (env PERIOD)")
	rootCmd.Flags().StringVar(&interval, "interval", "", "Sampling interval: 1d, 5d, 1wk, 1mo, 3mo (env INTERVAL)")
	rootCmd.Flags().StringVar(&exclusionsPath, "exclusions", "", "YAML list of excluded tickers (env EXCLUSIONS_PATH)")
	rootCmd.Flags().StringVar(&outDir, "out", "", "Output directory (env OUT_DIR)")
	rootCmd.Flags().StringVar(&dbPath, "db", "", "SQLite price cache (env DB_PATH)")
	rootCmd.Flags().BoolVar(&noCache, "no-cache", false, "Always download prices")
	rootCmd.Flags().BoolVar(&noPublish, "no-publish", false, "Skip commentary and Telegram even when configured")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("holdings") {
		cfg.HoldingsPath = holdingsPath
	}
	if flags.Changed("period") {
		cfg.Period = period
	}
	if flags.Changed("interval") {
		cfg.Interval = interval
	}
	if flags.Changed("exclusions") {
		cfg.ExclusionsPath = exclusionsPath
	}
	if flags.Changed("out") {
		cfg.OutDir = outDir
	}
	if flags.Changed("db") {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}

func openCache(cfg config.Config) (finance.SeriesCache, func(), error) {
	if noCache || cfg.DBPath == "" {
		return nil, func() {}, nil
	}
	// Ensure parent directory for the DB exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create db dir: %w", err)
	}
	db, err := storage.OpenSQLite("file:" + cfg.DBPath + "?_fk=1")
	if err != nil {
		return nil, nil, err
	}
	if err := storage.InitSchema(db); err != nil {
		db.Close()
		return nil, nil, err
	}
	log.Debug().Str("path", cfg.DBPath).Msg("db: price cache ready")
	return storage.NewStore(db), func() { db.Close() }, nil
}

func runPlot(cmd *cobra.Command, _ []string) error {
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	exclusions, err := config.LoadExclusions(cfg.ExclusionsPath)
	if err != nil {
		return err
	}

	cache, closeCache, err := openCache(cfg)
	if err != nil {
		return fmt.Errorf("failed to open price cache: %w", err)
	}
	defer closeCache()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider := finance.NewProvider(finance.NewClient(), cache, cfg.CacheTTL)
	res, err := pipeline.Run(ctx, pipeline.Options{
		HoldingsPath: cfg.HoldingsPath,
		Period:       cfg.Period,
		Interval:     cfg.Interval,
		Exclusions:   exclusions,
	}, pipeline.Deps{Prices: provider})
	if err != nil {
		return err
	}

	out, err := report.Write(cfg.OutDir, res.Weights, res.Tickers, res.Portfolio, res.Excluded)
	if err != nil {
		return err
	}
	pr := res.Portfolio
	fmt.Fprintf(cmd.OutOrStdout(), "Portfolio %s to %s: %+.2f%%\n",
		pr.Dates[0].Format("2006-01-02"), pr.Dates[len(pr.Dates)-1].Format("2006-01-02"), (pr.Final()-1)*100)
	for _, f := range out.Files {
		fmt.Fprintln(cmd.OutOrStdout(), "  wrote", f)
	}

	if !noPublish {
		share(ctx, cfg, res, out)
	}
	return nil
}

// share runs the optional sinks. Their failures never fail the run.
func share(ctx context.Context, cfg config.Config, res *pipeline.Result, out *report.Output) {
	var caption string
	if cfg.OpenAIKey != "" {
		c := openai.NewCommentator(cfg.OpenAIKey, cfg.OpenAIModel)
		text, err := c.Caption(ctx, res.Tickers, res.Portfolio, res.Excluded)
		if err != nil {
			log.Warn().Err(err).Msg("openai: commentary failed")
		} else {
			caption = text
			path := filepath.Join(out.Dir, "commentary.txt")
			if err := os.WriteFile(path, []byte(text+"\n"), 0o644); err != nil {
				log.Warn().Err(err).Msg("openai: failed to save commentary")
			}
		}
	}

	if !cfg.PublishEnabled() {
		return
	}
	if len(out.Charts) == 0 {
		log.Warn().Msg("telegram: nothing to publish")
		return
	}
	pub, err := telegram.NewPublisher(cfg.TelegramToken, cfg.TelegramChatID)
	if err != nil {
		log.Warn().Err(err).Msg("telegram: failed to init bot")
		return
	}
	if err := pub.Publish(out.Charts, caption); err != nil {
		log.Warn().Err(err).Msg("telegram: publish failed")
		return
	}
	log.Info().Int("charts", len(out.Charts)).Int64("chat_id", cfg.TelegramChatID).Msg("telegram: charts published")
}
