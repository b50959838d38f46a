// Package pregen renders every phrase the narration aggregator can produce to
// an audio file, named exactly like the aggregator's output string.
//
// Synthesis calls run on a bounded worker pool. A failed phrase is reported
// and the rest carry on; files are written atomically so anything present in
// the directory is complete.
package pregen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/menta2k/scene-narrator/internal/utils"
	"github.com/menta2k/scene-narrator/pkg/narration"
	"github.com/menta2k/scene-narrator/pkg/speech"
)

// LockFile is created inside the audio directory while a run is in progress
const LockFile = ".pregen.lock"

// ErrLocked is returned when another run holds the directory lock
var ErrLocked = errors.New("audio directory is locked by another run")

// Config controls which phrases are generated and how
type Config struct {
	Dir              string        `json:"dir" yaml:"dir" toml:"dir"`
	MaxObjPerSegment int           `json:"max_obj_per_segment" yaml:"max_obj_per_segment" toml:"max_obj_per_segment"`
	RankLabels       []string      `json:"rank_labels" yaml:"rank_labels" toml:"rank_labels"`
	HorizontalLabels []string      `json:"horizontal_labels" yaml:"horizontal_labels" toml:"horizontal_labels"`
	VerticalLabels   []string      `json:"vertical_labels" yaml:"vertical_labels" toml:"vertical_labels"`
	HorizontalOnly   bool          `json:"horizontal_only" yaml:"horizontal_only" toml:"horizontal_only"`
	Language         string        `json:"language" yaml:"language" toml:"language"`
	Extension        string        `json:"extension" yaml:"extension" toml:"extension"`
	Workers          int           `json:"workers" yaml:"workers" toml:"workers"`
	MaxRetries       int           `json:"max_retries" yaml:"max_retries" toml:"max_retries"`
	RetryDelay       time.Duration `json:"retry_delay" yaml:"retry_delay" toml:"retry_delay"`
	SkipExisting     bool          `json:"skip_existing" yaml:"skip_existing" toml:"skip_existing"`
}

// DefaultConfig returns up to 5 objects per phrase, close/near/far, English MP3
func DefaultConfig() Config {
	return Config{
		Dir:              "audio",
		MaxObjPerSegment: 5,
		RankLabels:       []string{"close", "near", "far"},
		HorizontalLabels: []string{"left", "middle", "right"},
		VerticalLabels:   []string{"above", "midst", "bottom"},
		HorizontalOnly:   true,
		Language:         "en",
		Extension:        "mp3",
		Workers:          4,
		MaxRetries:       3,
		RetryDelay:       500 * time.Millisecond,
	}
}

// Validate checks the configuration before any file is touched
func (c Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("audio directory cannot be empty")
	}
	if c.MaxObjPerSegment < 1 {
		return fmt.Errorf("max_obj_per_segment must be at least 1, got %d", c.MaxObjPerSegment)
	}
	if len(c.RankLabels) == 0 || len(c.HorizontalLabels) == 0 {
		return fmt.Errorf("rank and horizontal labels cannot be empty")
	}
	if !c.HorizontalOnly && len(c.VerticalLabels) == 0 {
		return fmt.Errorf("vertical labels cannot be empty unless horizontal_only is set")
	}
	for _, group := range [][]string{c.RankLabels, c.HorizontalLabels, c.VerticalLabels} {
		if err := narration.ValidateVocabulary(group); err != nil {
			return err
		}
	}
	if _, err := speech.ParseLanguage(c.Language); err != nil {
		return err
	}
	if c.Extension == "" || strings.ContainsAny(c.Extension, `./\`) {
		return fmt.Errorf("invalid audio extension %q", c.Extension)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative")
	}
	return nil
}

// Job is one phrase to synthesize
type Job struct {
	Name string // narration string, also the file name without extension
	Text string // spoken phrase
	Path string
}

// Failure records a job that could not be generated
type Failure struct {
	Name string
	Err  error
}

// Report summarizes a run
type Report struct {
	RunID     string
	Total     int
	Generated int
	Skipped   int
	Failed    []Failure
	Duration  time.Duration
}

// Pregenerator renders narration phrases through a Synthesizer
type Pregenerator struct {
	synth  speech.Synthesizer
	config Config
	logger *slog.Logger
}

// New creates a Pregenerator; a nil logger discards output
func New(synth speech.Synthesizer, config Config, logger *slog.Logger) *Pregenerator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pregenerator{synth: synth, config: config, logger: logger}
}

// Plan enumerates every job for classLabels. With distinct labels the total is
// len(classLabels) * MaxObjPerSegment * len(RankLabels) * len(HorizontalLabels),
// times len(VerticalLabels) unless horizontal-only. Repeated labels yield one job.
func (p *Pregenerator) Plan(classLabels []string) ([]Job, error) {
	if err := p.config.Validate(); err != nil {
		return nil, err
	}
	if len(classLabels) == 0 {
		return nil, fmt.Errorf("class labels cannot be empty")
	}
	if err := narration.ValidateVocabulary(classLabels); err != nil {
		return nil, fmt.Errorf("class labels: %w", err)
	}

	verticals := []string{""}
	if !p.config.HorizontalOnly {
		verticals = p.config.VerticalLabels
	}

	var jobs []Job
	seen := make(map[string]bool)
	for _, class := range classLabels {
		for count := 1; count <= p.config.MaxObjPerSegment; count++ {
			for _, distance := range p.config.RankLabels {
				for _, v := range verticals {
					for _, h := range p.config.HorizontalLabels {
						name := narration.AssetName(count, class, h, v, distance)
						if seen[name] {
							continue
						}
						seen[name] = true
						jobs = append(jobs, Job{
							Name: name,
							Text: Phrase(count, class, h, v, distance),
							Path: filepath.Join(p.config.Dir, name+"."+p.config.Extension),
						})
					}
				}
			}
		}
	}
	return jobs, nil
}

// Run generates every phrase for classLabels. The returned error joins the
// per-phrase failures; the report is returned in either case once the run
// has started.
func (p *Pregenerator) Run(ctx context.Context, classLabels []string) (*Report, error) {
	start := time.Now()
	jobs, err := p.Plan(classLabels)
	if err != nil {
		return nil, err
	}

	if err := utils.EnsureDir(p.config.Dir); err != nil {
		return nil, fmt.Errorf("failed to create audio directory: %w", err)
	}

	lock := flock.New(filepath.Join(p.config.Dir, LockFile))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			p.logger.Warn("failed to release audio directory lock", "error", err)
		}
	}()

	report := &Report{RunID: uuid.NewString(), Total: len(jobs)}
	logger := p.logger.With("run_id", report.RunID)
	logger.Info("pregeneration started", "dir", p.config.Dir, "phrases", len(jobs), "workers", p.config.Workers)

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(p.config.Workers)

	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			skipped, err := p.generate(ctx, job)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				report.Failed = append(report.Failed, Failure{Name: job.Name, Err: err})
				logger.Warn("phrase failed", "name", job.Name, "error", err)
			case skipped:
				report.Skipped++
			default:
				report.Generated++
				logger.Debug("phrase written", "path", job.Path)
			}
			return nil
		})
	}
	_ = g.Wait()
	report.Duration = time.Since(start)

	logger.Info("pregeneration finished",
		"generated", report.Generated,
		"skipped", report.Skipped,
		"failed", len(report.Failed),
		"duration", report.Duration.Round(time.Millisecond))

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("pregeneration interrupted: %w", err)
	}
	errs := make([]error, 0, len(report.Failed))
	for _, f := range report.Failed {
		errs = append(errs, fmt.Errorf("%s: %w", f.Name, f.Err))
	}
	return report, errors.Join(errs...)
}

func (p *Pregenerator) generate(ctx context.Context, job Job) (skipped bool, err error) {
	if p.config.SkipExisting && utils.FileExists(job.Path) {
		return true, nil
	}

	audio, err := p.synthesize(ctx, job.Text)
	if err != nil {
		return false, err
	}
	if err := utils.WriteFileAtomic(job.Path, audio, 0644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", job.Path, err)
	}
	return false, nil
}

// synthesize retries transient failures with exponential backoff
func (p *Pregenerator) synthesize(ctx context.Context, text string) ([]byte, error) {
	delay := p.config.RetryDelay
	for attempt := 0; ; attempt++ {
		audio, err := p.synth.Synthesize(ctx, text, p.config.Language)
		if err == nil {
			return audio, nil
		}
		if !errors.Is(err, speech.ErrTransient) || attempt >= p.config.MaxRetries {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}
