// Command pitchscan prints the pitch of each window of a WAV file.
//
//	pitchscan [-window 8192] [-hop 0] [-threshold 0.4] [-min 50] file.wav
//
// Each output line is "offset_seconds frequency_hz probability"; unvoiced
// windows print "-" for both values.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"music-tuner/internal/wavscan"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	def := wavscan.DefaultOptions()
	fs := flag.NewFlagSet("pitchscan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	window := fs.Int("window", def.WindowSize, "analysis window in samples (power of two)")
	hop := fs.Int("hop", 0, "samples between windows (0 means one window)")
	threshold := fs.Float64("threshold", def.Threshold, "YIN absolute threshold")
	minFreq := fs.Float64("min", def.MinFrequency, "ignore estimates at or below this frequency")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: pitchscan [flags] file.wav")
		fs.PrintDefaults()
		return 2
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "pitchscan: %v\n", err)
		return 1
	}
	defer f.Close()

	readings, err := wavscan.Scan(f, wavscan.Options{
		WindowSize:   *window,
		Hop:          *hop,
		Threshold:    *threshold,
		MinFrequency: *minFreq,
	})
	if err != nil {
		fmt.Fprintf(stderr, "pitchscan: %s: %v\n", fs.Arg(0), err)
		return 1
	}
	for _, r := range readings {
		if !r.Voiced {
			fmt.Fprintf(stdout, "%.3f - -\n", r.Offset.Seconds())
			continue
		}
		fmt.Fprintf(stdout, "%.3f %.2f %.2f\n", r.Offset.Seconds(), r.Frequency, r.Probability)
	}
	return 0
}
