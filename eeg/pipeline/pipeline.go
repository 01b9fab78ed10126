// Package pipeline turns EDF recordings into labelled feature tables.
//
// For each recording it selects the configured channels, builds the
// bipolar montage, resamples to the engine rate, extracts seizure events
// from the annotations, cuts overlapping epochs and computes the feature
// vector of every consecutive epoch pair on a bounded worker pool. The
// finished [store.Recording] goes to a [store.Sink].
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"slices"
	"sync/atomic"
	"time"

	"github.com/cwbudde/algo-absence/dsp/resample"
	"github.com/cwbudde/algo-absence/eeg/absence"
	"github.com/cwbudde/algo-absence/eeg/annotation"
	"github.com/cwbudde/algo-absence/eeg/edf"
	"github.com/cwbudde/algo-absence/eeg/epoch"
	"github.com/cwbudde/algo-absence/eeg/montage"
	"github.com/cwbudde/algo-absence/eeg/quality"
	"github.com/cwbudde/algo-absence/eeg/store"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Errors returned by the pipeline.
var (
	ErrNoInput    = errors.New("pipeline: no input files")
	ErrMixedRates = errors.New("pipeline: channels have different sample rates")
)

// flatRange is the peak-to-peak range, in physical units, below which a
// derivation is reported as flat.
const flatRange = 1e-6

// pairSkip leaves the last two epochs without a record, so every record
// has a successor epoch and one spare.
const pairSkip = 2

// Options configures a Pipeline.
type Options struct {
	// Channels are looked up in the file, in this order, and name the
	// montage inputs.
	Channels []string
	Pairs    []montage.Pair
	Epochs   epoch.Options
	Events   annotation.Options
	// Workers bounds concurrent extraction; 0 uses GOMAXPROCS.
	Workers int
	// Resample configures the rate conversion to the engine rate.
	Resample []resample.Option
}

// DefaultOptions uses the behind-the-ear montage and 2 s epochs.
func DefaultOptions() Options {
	return Options{
		Channels: montage.EarChannels,
		Pairs:    montage.EarPairs,
		Epochs:   epoch.DefaultOptions(),
	}
}

// Pipeline processes recordings. It is safe for concurrent use.
type Pipeline struct {
	opts  Options
	ex    *absence.Extractor
	sink  store.Sink
	log   *zerolog.Logger
	index atomic.Int64
}

// New returns a Pipeline. A nil sink discards results and a nil logger
// disables logging.
func New(opts Options, ex *absence.Extractor, sink store.Sink, log *zerolog.Logger) (*Pipeline, error) {
	if ex == nil {
		return nil, errors.New("pipeline: nil extractor")
	}
	if len(opts.Channels) == 0 || len(opts.Pairs) == 0 {
		return nil, errors.New("pipeline: no channels or pairs")
	}
	if _, err := epoch.Bounds(0, ex.Config().SampleRate, opts.Epochs); err != nil {
		return nil, err
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if sink == nil {
		sink = store.Discard{}
	}
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Pipeline{opts: opts, ex: ex, sink: sink, log: log}, nil
}

// Run processes one recording with the next batch index.
func (p *Pipeline) Run(ctx context.Context, path string) (*store.Recording, error) {
	return p.process(ctx, path, int(p.index.Add(1)-1))
}

// Summary describes the outcome for one file of a batch.
type Summary struct {
	Path      string
	Records   int
	Positives int
	Events    int
	Err       error
}

// RunGlob processes every file matching pattern in lexical order. A
// failing file is logged and does not stop the batch; all failures are
// returned joined.
func (p *Pipeline) RunGlob(ctx context.Context, pattern string) ([]Summary, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoInput, pattern)
	}
	slices.Sort(paths)

	var errs []error
	out := make([]Summary, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		rec, err := p.Run(ctx, path)
		s := Summary{Path: path, Err: err}
		if err != nil {
			p.log.Error().Err(err).Str("path", path).Msg("recording failed")
			errs = append(errs, err)
		} else {
			s.Records, s.Positives, s.Events = len(rec.Records), rec.Positives(), len(rec.Events)
		}
		out = append(out, s)
	}

	return out, errors.Join(errs...)
}

func (p *Pipeline) process(ctx context.Context, path string, index int) (*store.Recording, error) {
	started := time.Now()
	log := p.log.With().Str("path", path).Int("index", index).Logger()
	log.Info().Msg("loading recording")

	in, err := load(path, p.opts.Channels)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %s: %w", path, err)
	}

	signals, names, err := montage.Bipolar(in.data, p.opts.Channels, p.opts.Pairs)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %s: %w", path, err)
	}

	stats := make([]quality.Stats, len(signals))
	for i, s := range signals {
		stats[i] = quality.Measure(s)
		ev := log.Debug()
		if stats[i].Flat(flatRange) {
			ev = log.Warn()
		}
		ev.Str("derivation", names[i]).
			Float64("rms", stats[i].RMS).
			Float64("peak", stats[i].Peak).
			Float64("dominant_hz", stats[i].DominantHz(in.rate)).
			Bool("flat", stats[i].Flat(flatRange)).
			Msg("derivation quality")
	}

	fs := p.ex.Config().SampleRate
	for i, s := range signals {
		if signals[i], err = resample.ToRate(s, in.rate, fs, p.opts.Resample...); err != nil {
			return nil, fmt.Errorf("pipeline: %s: resample %s: %w", path, names[i], err)
		}
	}
	n := len(signals[0])

	events := annotation.Extract(in.annotations, p.opts.Events)
	sum := annotation.Summarize(events)
	log.Info().
		Float64("source_rate", in.rate).
		Int("samples", n).
		Int("events", sum.Count).
		Float64("median_event_s", sum.MedianDuration).
		Float64("total_event_s", sum.TotalDuration).
		Msg("recording loaded")

	epochs := make([][][]float64, len(signals))
	for c, s := range signals {
		if epochs[c], err = epoch.Split(s, fs, p.opts.Epochs); err != nil {
			return nil, fmt.Errorf("pipeline: %s: %w", path, err)
		}
	}
	labels, err := epoch.Labels(events, n, fs, p.opts.Epochs)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %s: %w", path, err)
	}

	rec := store.NewRecording(path, index, names, fs)
	rec.Events = events
	rec.Quality = stats
	rec.Records, err = p.extract(ctx, epochs, labels, &log)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %s: %w", path, err)
	}

	if err := p.sink.Write(ctx, rec); err != nil {
		return nil, fmt.Errorf("pipeline: %s: write: %w", path, err)
	}

	log.Info().
		Str("run_id", rec.RunID.String()).
		Int("records", len(rec.Records)).
		Int("positives", rec.Positives()).
		Dur("elapsed", time.Since(started)).
		Msg("recording done")
	return rec, nil
}

// extract computes one record per epoch pair. epochs is indexed by
// channel, then epoch.
func (p *Pipeline) extract(ctx context.Context, epochs [][][]float64, labels []bool, log *zerolog.Logger) ([]store.Record, error) {
	pairs := epoch.Pairs(len(labels), pairSkip)
	records := make([]store.Record, len(pairs))

	var fallbacks atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)

	for k, pr := range pairs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			feats := make([]absence.Vector, len(epochs))
			for c := range epochs {
				r, err := p.ex.ExtractDetailed(epochs[c][pr.Current], epochs[c][pr.Next])
				if err != nil {
					return fmt.Errorf("epoch %d channel %d: %w", pr.Current, c, err)
				}
				if r.CovarianceFallback {
					fallbacks.Add(1)
				}
				feats[c] = r.Vector
			}
			records[k] = store.Record{Epoch: pr.Current, Label: labels[pr.Current], Features: feats}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Debug().
		Int("pairs", len(pairs)).
		Int64("covariance_fallbacks", fallbacks.Load()).
		Msg("features extracted")
	return records, nil
}

type input struct {
	data        [][]float64
	rate        float64
	annotations []edf.Annotation
}

// load reads the wanted channels and all annotations of an EDF file.
func load(path string, channels []string) (*input, error) {
	f, err := edf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	idx, err := montage.Find(f.Labels(), channels)
	if err != nil {
		return nil, err
	}

	in := &input{data: make([][]float64, len(idx))}
	for k, i := range idx {
		rate := f.SampleRate(i)
		if k == 0 {
			in.rate = rate
		} else if rate != in.rate {
			return nil, fmt.Errorf("%w: %s at %g Hz, %s at %g Hz",
				ErrMixedRates, channels[0], in.rate, channels[k], rate)
		}
		if in.data[k], err = f.Samples(i); err != nil {
			return nil, err
		}
	}

	if in.annotations, err = f.Annotations(); err != nil {
		return nil, err
	}
	return in, nil
}
