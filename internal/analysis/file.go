package analysis

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/jingnanl/infant-guard/internal/audioanalysis"
	"github.com/jingnanl/infant-guard/internal/errors"
	"github.com/jingnanl/infant-guard/internal/logger"
	"github.com/jingnanl/infant-guard/internal/myaudio"
)

// Output formats for file analysis.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// FileResult is the outcome of analysing one audio file.
type FileResult struct {
	Path           string                            `json:"path"`
	SampleRate     int                               `json:"sampleRate"`
	Classification audioanalysis.AudioClassification `json:"classification"`
	Features       audioanalysis.Features            `json:"features"`
	Elapsed        time.Duration                     `json:"-"`
}

// FileAnalysis decodes a WAV or FLAC file and classifies it.
func FileAnalysis(path string, th audioanalysis.Thresholds) (*FileResult, error) {
	if err := validateAudioFile(path); err != nil {
		return nil, err
	}

	analyzer, err := audioanalysis.NewAnalyzer(th)
	if err != nil {
		return nil, err
	}

	clip, err := myaudio.ReadAudioFile(path)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := analyzer.Analyze(clip.Samples, clip.SampleRate)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	GetLogger().Debug("file analyzed",
		logger.String("file", filepath.Base(path)),
		logger.Int("sample_rate", clip.SampleRate),
		logger.Duration("elapsed", elapsed))

	return &FileResult{
		Path:           path,
		SampleRate:     clip.SampleRate,
		Classification: res.Classification,
		Features:       res.Features,
		Elapsed:        elapsed,
	}, nil
}

// validateAudioFile rejects directories and empty files before decoding.
func validateAudioFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.New(err).
			Component(componentName).
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}
	if info.IsDir() {
		return errors.Newf("%s is a directory, not a file", filepath.Base(path)).
			Component(componentName).
			Category(errors.CategoryValidation).
			Build()
	}
	if info.Size() == 0 {
		return errors.Newf("%s is empty", filepath.Base(path)).
			Component(componentName).
			Category(errors.CategoryValidation).
			FileContext(path, 0).
			Build()
	}
	return nil
}

// WriteResult renders r in the given format.
func WriteResult(w io.Writer, r *FileResult, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatTable, "":
		return writeTable(w, r)
	default:
		return errors.Newf("unknown output format %q", format).
			Component(componentName).
			Category(errors.CategoryValidation).
			Build()
	}
}

func writeTable(w io.Writer, r *FileResult) error {
	c, f := r.Classification, r.Features
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "File\t%s\n", filepath.Base(r.Path))
	fmt.Fprintf(tw, "Duration\t%.2f s @ %d Hz\n", f.Duration, r.SampleRate)
	fmt.Fprintf(tw, "Crying\t%s\n", yesNo(c.HasCrying))
	fmt.Fprintf(tw, "Laughter\t%s\n", yesNo(c.HasLaughter))
	fmt.Fprintf(tw, "Intensity\t%.3f\n", c.Intensity)
	fmt.Fprintln(tw, "\t")
	fmt.Fprintf(tw, "RMS\t%.4f\n", f.RMS)
	fmt.Fprintf(tw, "Fundamental ratio\t%.4f\n", f.Spectral.FundamentalRatio)
	fmt.Fprintf(tw, "Harmonic ratio\t%.4f\n", f.Spectral.HarmonicRatio)
	fmt.Fprintf(tw, "Transients\t%d of %d frames\n", f.Temporal.TransientCount, f.Temporal.FrameCount)
	fmt.Fprintf(tw, "Sustained energy\t%.4f\n", f.Temporal.SustainedEnergy)
	fmt.Fprintf(tw, "Rhythmic pattern\t%.4f\n", f.Temporal.RhythmicPattern)

	return tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
