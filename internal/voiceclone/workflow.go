// Package voiceclone composes the upload, clone-registration, and synthesis
// steps of the speech service into one guarded voice-cloning workflow.
package voiceclone

import (
	"context"
	"fmt"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/narration-service/internal/minimax"
)

// DefaultSettleDelay is the pause between clone registration and the first
// synthesis call, covering asynchronous clone processing on the remote side.
const DefaultSettleDelay = 2 * time.Second

// DefaultTestText is spoken with the cloned voice when the caller supplies no
// narration text.
const DefaultTestText = "Hello, this is a test of my cloned voice. How does it sound?"

// Log formats.
const (
	logFmtUploaded      = "Voice sample uploaded, file id: %s"
	logFmtCloned        = "Voice clone registered under id: %s"
	logFmtIDSubstituted = "Service returned voice id %q, superseding requested id %q"
	logFmtSynthesized   = "Synthesized %d bytes with voice %s"
)

// Error formats.
const (
	errFmtUploadFailed    = "upload failed: %w"
	errFmtCloneFailed     = "clone registration failed: %s"
	errFmtSynthesisFailed = "synthesis failed: %w"
)

// State names the workflow's position. FAILED is absorbing; a single failure
// at any step terminates the workflow with no retries. Retrying a cloning
// workflow is the caller's responsibility because repeated registration under
// the same id is not guaranteed idempotent by the service.
type State string

const (
	StateStart       State = "START"
	StateUploaded    State = "UPLOADED"
	StateCloned      State = "CLONED"
	StateSynthesized State = "SYNTHESIZED"
	StateFailed      State = "FAILED"
)

// SpeechClient is the slice of the speech service the workflow needs.
type SpeechClient interface {
	UploadVoiceSample(ctx context.Context, samplePath string) (string, error)
	RegisterClone(ctx context.Context, fileID, voiceID string) minimax.CloneResult
	SynthesizeSpeech(
		ctx context.Context,
		text string,
		voice minimax.VoiceSettings,
		audio minimax.AudioSettings,
	) ([]byte, error)
}

// Result reports where the workflow ended and what it produced. Audio is
// non-empty only in the SYNTHESIZED state.
type Result struct {
	State            State
	FileID           string
	EffectiveVoiceID string
	Audio            []byte
	Err              error
}

// Workflow runs upload, clone registration, and a first synthesis with the
// cloned voice as one guarded sequence. The only mutable state it carries
// across steps is the effective voice id of the current run; instances share
// no mutable fields.
type Workflow struct {
	client      SpeechClient
	audio       minimax.AudioSettings
	settleDelay time.Duration
	log         *logger.Logger
}

// New creates a voice-cloning workflow. A non-positive settleDelay falls back
// to DefaultSettleDelay.
func New(
	client SpeechClient,
	audio minimax.AudioSettings,
	settleDelay time.Duration,
	log *logger.Logger,
) *Workflow {
	if settleDelay <= 0 {
		settleDelay = DefaultSettleDelay
	}

	return &Workflow{
		client:      client,
		audio:       audio,
		settleDelay: settleDelay,
		log:         log,
	}
}

// Run executes the workflow: upload the sample, register the clone under the
// requested voice id, then synthesize the narration text with the effective
// voice id. If the registration returns a different voice id, that id
// supersedes the requested one for the synthesis step; the substitution is
// logged. An empty narrationText falls back to DefaultTestText.
func (w *Workflow) Run(
	ctx context.Context,
	samplePath, requestedVoiceID, narrationText string,
) Result {
	if narrationText == "" {
		narrationText = DefaultTestText
	}

	fileID, uploadErr := w.client.UploadVoiceSample(ctx, samplePath)
	if uploadErr != nil {
		return Result{
			State: StateFailed,
			Err:   fmt.Errorf(errFmtUploadFailed, uploadErr),
		}
	}

	w.log.Info(logFmtUploaded, fileID)

	cloneResult := w.client.RegisterClone(ctx, fileID, requestedVoiceID)
	if !cloneResult.Success {
		return Result{
			State:  StateFailed,
			FileID: fileID,
			Err:    fmt.Errorf(errFmtCloneFailed, cloneResult.Err),
		}
	}

	effectiveVoiceID := cloneResult.EffectiveVoiceID()
	if effectiveVoiceID != requestedVoiceID {
		w.log.Warn(logFmtIDSubstituted, effectiveVoiceID, requestedVoiceID)
	}

	w.log.Info(logFmtCloned, effectiveVoiceID)

	// Clone processing is asynchronous on the remote side; give it a moment
	// before referencing the new voice.
	time.Sleep(w.settleDelay)

	audio, synthesisErr := w.client.SynthesizeSpeech(
		ctx,
		narrationText,
		minimax.DefaultVoiceSettings(effectiveVoiceID),
		w.audio,
	)
	if synthesisErr != nil {
		return Result{
			State:            StateFailed,
			FileID:           fileID,
			EffectiveVoiceID: effectiveVoiceID,
			Err:              fmt.Errorf(errFmtSynthesisFailed, synthesisErr),
		}
	}

	w.log.Info(logFmtSynthesized, len(audio), effectiveVoiceID)

	return Result{
		State:            StateSynthesized,
		FileID:           fileID,
		EffectiveVoiceID: effectiveVoiceID,
		Audio:            audio,
		Err:              nil,
	}
}
