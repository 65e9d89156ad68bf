// Package pipeline renders a deck's narration scripts into per-slide audio
// segments, one synthesis request at a time.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/narration-service/internal/core"
	"github.com/book-expert/narration-service/internal/narration"
)

const (
	// DefaultInterRequestDelay spaces consecutive synthesis requests to
	// respect the speech service's rate limits.
	DefaultInterRequestDelay = 5 * time.Second

	// DefaultRequestTimeout bounds one synthesis call.
	DefaultRequestTimeout = 60 * time.Second

	// File and directory permissions.
	filePermissions = 0o600
	dirPermissions  = 0o750
)

// Static errors.
var (
	ErrScriptsPathEmpty = errors.New("scripts path cannot be empty")
	ErrOutputDirEmpty   = errors.New("output directory cannot be empty")
	ErrTextEmpty        = errors.New("text cannot be empty")
	ErrOutputPathEmpty  = errors.New("output path cannot be empty")
	ErrNoScriptsFound   = errors.New("no scripts found")
)

const (
	// Log formats and file patterns.
	segmentFileFormat       = "segment_%04d.mp3"
	errFmtSegmentFailed     = "segment %d failed: %w"
	logFmtProcessingScripts = "Processing %d narration scripts sequentially"
	logFmtSegmentFailed     = "Failed to process segment %d: %v"
	logFmtSegmentProcessed  = "Processed segment %d/%d"
	logFmtGeneratedAudio    = "Generated audio: %s (%d bytes)"
)

// Options configures a segment engine. Zero-valued fields fall back to the
// package defaults; VoiceID must be set.
type Options struct {
	VoiceID           string
	Speed             float64
	Volume            float64
	Pitch             int
	InterRequestDelay time.Duration
	RequestTimeout    time.Duration
}

// Engine turns narration scripts into audio segment files. Segments are
// processed strictly sequentially with a deliberate delay between requests;
// the engine itself issues no concurrent calls.
type Engine struct {
	synthesizer core.SpeechSynthesizer
	normalizer  *narration.Normalizer
	opts        Options
	log         *logger.Logger
}

// New creates a segment engine around a speech synthesizer.
func New(synthesizer core.SpeechSynthesizer, opts Options, log *logger.Logger) *Engine {
	if opts.InterRequestDelay <= 0 {
		opts.InterRequestDelay = DefaultInterRequestDelay
	}

	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}

	return &Engine{
		synthesizer: synthesizer,
		normalizer:  narration.NewNormalizer(),
		opts:        opts,
		log:         log,
	}
}

// ProcessScripts reads a JSON file containing an array of narration scripts
// and renders each one into a sequentially numbered segment file
// (segment_0001.mp3, segment_0002.mp3, ...). Failed segments are logged and
// skipped so the remaining slides still render; the last failure is returned.
func (e *Engine) ProcessScripts(scriptsPath, outputDir string) error {
	if scriptsPath == "" {
		return ErrScriptsPathEmpty
	}

	if outputDir == "" {
		return ErrOutputDirEmpty
	}

	scripts, scriptsErr := e.readScriptsFile(scriptsPath)
	if scriptsErr != nil {
		return fmt.Errorf("failed to read scripts: %w", scriptsErr)
	}

	dirErr := os.MkdirAll(outputDir, dirPermissions)
	if dirErr != nil {
		return fmt.Errorf("failed to create output directory: %w", dirErr)
	}

	e.log.Info(logFmtProcessingScripts, len(scripts))

	return e.processScriptsSequential(scripts, outputDir)
}

// ProcessSingleScript synthesizes one script and writes the audio to the
// given output path, creating parent directories as needed.
func (e *Engine) ProcessSingleScript(text, outputPath string) error {
	if text == "" {
		return ErrTextEmpty
	}

	if outputPath == "" {
		return ErrOutputPathEmpty
	}

	dirErr := os.MkdirAll(filepath.Dir(outputPath), dirPermissions)
	if dirErr != nil {
		return fmt.Errorf("failed to create output directory: %w", dirErr)
	}

	audioData, synthesisErr := e.synthesizeScript(text)
	if synthesisErr != nil {
		return synthesisErr
	}

	writeErr := os.WriteFile(outputPath, audioData, filePermissions)
	if writeErr != nil {
		return fmt.Errorf("failed to write audio file: %w", writeErr)
	}

	e.log.Info(logFmtGeneratedAudio, outputPath, len(audioData))

	return nil
}

func (e *Engine) synthesizeScript(text string) ([]byte, error) {
	job := core.SpeechJob{
		Text:    e.normalizer.Normalize(text),
		VoiceID: e.opts.VoiceID,
		Speed:   e.opts.Speed,
		Volume:  e.opts.Volume,
		Pitch:   e.opts.Pitch,
	}

	ctx, cancel := context.WithTimeout(
		context.Background(),
		e.opts.RequestTimeout,
	)
	defer cancel()

	audioData, synthesisErr := e.synthesizer.Synthesize(ctx, job)
	if synthesisErr != nil {
		return nil, fmt.Errorf("failed to synthesize script: %w", synthesisErr)
	}

	return audioData, nil
}

// readScriptsFile reads and parses a JSON file containing an array of
// narration scripts, one per slide.
func (e *Engine) readScriptsFile(scriptsPath string) ([]string, error) {
	data, err := os.ReadFile(scriptsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var scripts []string

	err = json.Unmarshal(data, &scripts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scripts JSON: %w", err)
	}

	if len(scripts) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoScriptsFound, scriptsPath)
	}

	return scripts, nil
}

// processScriptsSequential renders segments one at a time, sleeping between
// requests to stay under the service's rate limits.
func (e *Engine) processScriptsSequential(scripts []string, outputDir string) error {
	var lastError error

	for index, script := range scripts {
		outputPath := filepath.Join(
			outputDir,
			fmt.Sprintf(segmentFileFormat, index+1),
		)

		err := e.ProcessSingleScript(script, outputPath)
		if err != nil {
			lastError = fmt.Errorf(errFmtSegmentFailed, index+1, err)

			e.log.Error(logFmtSegmentFailed, index+1, err)
		} else {
			e.log.Info(logFmtSegmentProcessed, index+1, len(scripts))
		}

		if index < len(scripts)-1 {
			time.Sleep(e.opts.InterRequestDelay)
		}
	}

	return lastError
}
