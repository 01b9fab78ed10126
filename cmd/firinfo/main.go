// Command firinfo prints the band-pass kernels used by the feature engine.
//
// Usage:
//
//	firinfo [flags]
//
// It designs both kernels from the configuration and prints their length,
// group delay and magnitude response on a frequency grid.
//
// Examples:
//
//	firinfo
//	firinfo -step 0.5 -max 20
//	firinfo -config absfeat.yaml -taps 255
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/cwbudde/algo-absence/dsp/filter/fir"
	"github.com/cwbudde/algo-absence/eeg/absence"
	"github.com/cwbudde/algo-absence/internal/config"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("firinfo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "", "YAML configuration file")
	taps := fs.Int("taps", 0, "override the kernel length")
	step := fs.Float64("step", 1, "frequency grid step in Hz")
	maxHz := fs.Float64("max", 0, "highest frequency to print (default Nyquist)")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: firinfo [flags]\n\n")
		fmt.Fprintf(stderr, "Prints the band-pass kernels of the absence feature engine.\n\n")
		fmt.Fprintf(stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	root, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	cfg, err := root.EngineConfig()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	if *taps > 0 {
		cfg.FilterTaps = *taps
	}

	ex, err := absence.New(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	if !(*step > 0) {
		fmt.Fprintf(stderr, "error: step must be positive\n")
		return 2
	}

	top := cfg.SampleRate / 2
	if *maxHz > 0 && *maxHz < top {
		top = *maxHz
	}

	if err := printResponse(stdout, cfg, ex.BroadKernel(), ex.NarrowKernel(), *step, top); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func printResponse(w io.Writer, cfg absence.Config, broad, narrow *fir.Kernel, step, top float64) error {
	if _, err := fmt.Fprintf(w, "sample rate %g Hz, %d taps, delay %.1f samples, %s window\n\n",
		cfg.SampleRate, broad.Len(), broad.Delay(), cfg.Window); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Frequency [Hz]\tBroad %s [dB]\tNarrow %s [dB]\n", cfg.BroadBand, cfg.NarrowBand)
	fmt.Fprintf(tw, "--------------\t-----------\t------------\n")

	for i := 0; ; i++ {
		f := float64(i) * step
		if f > top+1e-9 {
			break
		}
		fmt.Fprintf(tw, "%.2f\t%.2f\t%.2f\n", f, broad.MagnitudeDB(f), narrow.MagnitudeDB(f))
	}
	return tw.Flush()
}
