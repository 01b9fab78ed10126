// Command absfeat computes absence-seizure feature tables from EDF
// recordings.
//
// Usage:
//
//	absfeat [flags] [glob]
//
// Every recording matching the glob is loaded, re-referenced to the
// behind-the-ear montage, resampled, cut into labelled epochs and turned
// into one feature record per epoch pair. Records are written as JSON
// files (one per recording), to PostgreSQL or to an MQTT broker.
//
// Examples:
//
//	absfeat '/data/mxspir/Seize*.EDF'
//	absfeat -out features -naming base -workers 8 '/data/*.edf'
//	absfeat -config absfeat.yaml -postgres postgres://localhost/eeg -migrate
//	absfeat -mqtt tcp://localhost:1883 '/data/*.edf'
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/cwbudde/algo-absence/eeg/absence"
	"github.com/cwbudde/algo-absence/eeg/pipeline"
	"github.com/cwbudde/algo-absence/eeg/store"
	"github.com/cwbudde/algo-absence/eeg/store/mqtt"
	"github.com/cwbudde/algo-absence/eeg/store/pg"
	"github.com/cwbudde/algo-absence/internal/config"
	"github.com/cwbudde/algo-absence/internal/logger"
	"github.com/rs/zerolog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type flags struct {
	config   string
	out      string
	naming   string
	postgres string
	mqtt     string
	workers  int
	migrate  bool
	meta     bool
	verbose  bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var f flags
	fs := flag.NewFlagSet("absfeat", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.config, "config", "", "YAML configuration file")
	fs.StringVar(&f.out, "out", "", "output directory for JSON files")
	fs.StringVar(&f.naming, "naming", "", "JSON file naming: index or base")
	fs.StringVar(&f.postgres, "postgres", "", "write to PostgreSQL at this URL instead of JSON")
	fs.StringVar(&f.mqtt, "mqtt", "", "publish to the MQTT broker at this address instead of JSON")
	fs.IntVar(&f.workers, "workers", -1, "concurrent extractions (0 = GOMAXPROCS)")
	fs.BoolVar(&f.migrate, "migrate", false, "create the PostgreSQL tables before writing")
	fs.BoolVar(&f.meta, "meta", false, "also write <name>.meta.json next to each JSON file")
	fs.BoolVar(&f.verbose, "v", false, "debug logging")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: absfeat [flags] [glob]\n\n")
		fmt.Fprintf(stderr, "Computes absence-seizure features from EDF recordings.\n")
		fmt.Fprintf(stderr, "The glob defaults to pipeline.input from the configuration.\n\n")
		fmt.Fprintf(stderr, "Flags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nEnvironment:\n")
		for _, k := range config.EnvKeys() {
			fmt.Fprintf(stderr, "  %s\n", k)
		}
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(f, fs.Args())
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}

	logger.Init(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Writer: stderr})
	log := logger.Named("absfeat")

	if cfg.Pipeline.Input == "" {
		fmt.Fprintf(stderr, "error: no input glob\n")
		fs.Usage()
		return 2
	}

	sink, closeSink, err := openSink(ctx, cfg, f.migrate)
	if err != nil {
		log.Error().Err(err).Msg("open output")
		return 1
	}
	defer closeSink()

	p, err := newPipeline(cfg, sink, log)
	if err != nil {
		log.Error().Err(err).Msg("configure pipeline")
		return 1
	}

	sums, err := p.RunGlob(ctx, cfg.Pipeline.Input)
	if len(sums) > 0 {
		printSummary(stdout, sums)
	}
	if err != nil {
		log.Error().Err(err).Int("files", len(sums)).Msg("batch finished with errors")
		return 1
	}
	return 0
}

// loadConfig applies flags on top of the file and environment.
func loadConfig(f flags, args []string) (*config.Root, error) {
	cfg, err := config.Load(f.config)
	if err != nil {
		return nil, err
	}
	if len(args) > 1 {
		return nil, fmt.Errorf("expected one glob, got %d arguments", len(args))
	}
	if len(args) == 1 {
		cfg.Pipeline.Input = args[0]
	}
	if f.out != "" {
		cfg.Output.Dir = f.out
	}
	if f.naming != "" {
		cfg.Output.Naming = f.naming
	}
	if f.postgres != "" {
		cfg.Output.Kind = "postgres"
		cfg.Output.PostgresURL = f.postgres
	}
	if f.mqtt != "" {
		cfg.Output.Kind = "mqtt"
		cfg.Output.MQTT.Broker = f.mqtt
	}
	if f.workers >= 0 {
		cfg.Pipeline.Workers = f.workers
	}
	if f.meta {
		cfg.Output.Metadata = true
	}
	if f.verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openSink(ctx context.Context, cfg *config.Root, migrate bool) (store.Sink, func(), error) {
	switch cfg.Output.Kind {
	case "postgres":
		s, err := pg.Open(ctx, pg.Config{URL: cfg.Output.PostgresURL, MaxConns: cfg.Output.MaxConns}, nil)
		if err != nil {
			return nil, nil, err
		}
		if migrate {
			if err := s.Migrate(ctx); err != nil {
				s.Close()
				return nil, nil, err
			}
		}
		return s, s.Close, nil
	case "mqtt":
		m := cfg.Output.MQTT
		s, err := mqtt.Dial(mqtt.Config{
			Broker:   m.Broker,
			ClientID: m.ClientID,
			Username: m.Username,
			Password: m.Password,
			Prefix:   m.Prefix,
			QoS:      m.QoS,
			Retain:   m.Retain,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "none":
		return store.Discard{}, func() {}, nil
	default:
		naming, err := store.ParseNaming(cfg.Output.Naming)
		if err != nil {
			return nil, nil, err
		}
		opts := []store.JSONOption{store.WithNaming(naming)}
		if cfg.Output.Metadata {
			opts = append(opts, store.WithMetadata())
		}
		s, err := store.NewJSONSink(cfg.Output.Dir, opts...)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	}
}

func newPipeline(cfg *config.Root, sink store.Sink, log *zerolog.Logger) (*pipeline.Pipeline, error) {
	ec, err := cfg.EngineConfig()
	if err != nil {
		return nil, err
	}
	ex, err := absence.New(ec)
	if err != nil {
		return nil, err
	}

	opts := pipeline.Options{
		Channels: cfg.Pipeline.Channels,
		Pairs:    cfg.MontagePairs(),
		Epochs:   cfg.EpochOptions(),
		Events:   cfg.AnnotationOptions(),
		Workers:  cfg.Pipeline.Workers,
	}
	return pipeline.New(opts, ex, sink, log)
}

func printSummary(w io.Writer, sums []pipeline.Summary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "File\tEvents\tRecords\tSeizure\tStatus\n")
	fmt.Fprintf(tw, "----\t------\t-------\t-------\t------\n")
	for _, s := range sums {
		status := "ok"
		if s.Err != nil {
			status = "failed"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n", s.Path, s.Events, s.Records, s.Positives, status)
	}
	if err := tw.Flush(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: failed to flush output: %v\n", err)
	}
}
