package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/zentat/internal/conversion"
	"github.com/GriffinCanCode/zentat/internal/dom"
	"github.com/GriffinCanCode/zentat/internal/infrastructure/logging"
	"github.com/GriffinCanCode/zentat/internal/rates"
	"github.com/GriffinCanCode/zentat/internal/session"
	"github.com/GriffinCanCode/zentat/internal/settings"
)

func main() {
	var opts options
	flag.StringVar(&opts.In, "in", "-", "Input HTML file or directory (- for stdin)")
	flag.StringVar(&opts.Out, "out", "-", "Output file or directory (- for stdout)")
	flag.StringVar(&opts.Host, "host", "", "Hostname the documents were served from")
	flag.StringVar(&opts.RatesFile, "rates", "", "Rate table file")
	flag.StringVar(&opts.SettingsFile, "settings", "", "Settings file (json, yaml or toml)")
	flag.BoolVar(&opts.Fetch, "fetch", false, "Fetch rates from public tickers")
	flag.StringVar(&opts.Unit, "unit", conversion.DefaultUnit, "Target unit label")
	flag.BoolVar(&opts.Sanitize, "sanitize", false, "Sanitize input markup")
	flag.BoolVar(&opts.Compress, "compress", false, "Write gzip compressed output")
	flag.IntVar(&opts.Jobs, "jobs", runtime.NumCPU(), "Files converted in parallel")
	level := flag.String("log-level", "info", "Log level")
	flag.Parse()

	logger, err := logging.New(logging.CLIConfig(*level))
	if err != nil {
		fmt.Fprintf(os.Stderr, "zentat: %v\n", err)
		os.Exit(2)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, logger.Logger); err != nil {
		logger.Error("Conversion failed", zap.Error(err))
		stop()
		os.Exit(1)
	}
}

// options holds the parsed command line.
type options struct {
	In           string
	Out          string
	Host         string
	RatesFile    string
	SettingsFile string
	Fetch        bool
	Unit         string
	Sanitize     bool
	Compress     bool
	Jobs         int
}

// converter holds what every file conversion shares.
type converter struct {
	rates    *rates.Store
	settings *settings.Store
	cfg      session.Config
	opts     options
	logger   *zap.Logger
}

func run(ctx context.Context, opts options, logger *zap.Logger) error {
	c, err := newConverter(ctx, opts, logger)
	if err != nil {
		return err
	}

	info, err := os.Stat(opts.In)
	switch {
	case opts.In == "-":
		_, err := c.convertStream(ctx, os.Stdin, opts.Out)
		return err
	case err != nil:
		return fmt.Errorf("failed to stat input: %w", err)
	case info.IsDir():
		return c.convertTree(ctx, opts.In, opts.Out)
	default:
		n, err := c.convertFile(ctx, opts.In, opts.Out)
		if err == nil {
			logger.Info("Converted", zap.String("file", opts.In), zap.Int("elements", n))
		}
		return err
	}
}

// newConverter loads rates and settings concurrently.
func newConverter(ctx context.Context, opts options, logger *zap.Logger) (*converter, error) {
	if opts.RatesFile == "" && !opts.Fetch {
		return nil, errors.New("no rates: pass -rates or -fetch")
	}

	var (
		table   rates.Table
		current = settings.Defaults()
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if opts.RatesFile != "" {
			t, err := rates.LoadFile(opts.RatesFile)
			if err == nil && !(opts.Fetch && t.IsStale(timeNow(), rates.DefaultMaxAge)) {
				table = t
				return nil
			}
			if !opts.Fetch {
				return err
			}
		}
		client := rates.NewClient(rates.DefaultClientConfig())
		sources, err := rates.NewSources(client, "coingecko", "kraken")
		if err != nil {
			return err
		}
		t, err := rates.Fetch(gctx, sources...)
		if err != nil {
			return err
		}
		table = t
		if opts.RatesFile != "" {
			if err := rates.SaveFile(opts.RatesFile, t); err != nil {
				logger.Warn("Failed to save rates", zap.Error(err))
			}
		}
		return nil
	})
	if opts.SettingsFile != "" {
		g.Go(func() error {
			s, err := settings.LoadFile(opts.SettingsFile)
			if err != nil {
				return err
			}
			current = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Debug("Rates ready",
		zap.String("source", table.Source),
		zap.Int("currencies", len(table.Rates)),
	)

	cfg := session.DefaultConfig()
	cfg.Unit = opts.Unit
	cfg.Load = dom.DefaultLoadOptions()
	cfg.Load.Sanitize = opts.Sanitize

	return &converter{
		rates:    rates.NewStore(table),
		settings: settings.NewStore(current),
		cfg:      cfg,
		opts:     opts,
		logger:   logger,
	}, nil
}
