// Package worker provides a NATS worker that turns per-slide narration text
// into synthesized audio segments.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/narration-service/internal/core"
	"github.com/book-expert/narration-service/internal/narration"
)

const handleMessageTimeout = 60 * time.Second

const audioKeySuffix = ".mp3"

var (
	// ErrTextEmpty indicates that the downloaded narration text is empty.
	ErrTextEmpty = errors.New("narration text cannot be empty")
	// ErrVoiceEmpty indicates that no voice id was supplied and no default
	// is configured.
	ErrVoiceEmpty = errors.New("voice cannot be empty")
	// ErrSpeedRange indicates that the speed parameter is not positive.
	ErrSpeedRange = errors.New("speed must be positive")
	// ErrVolumeRange indicates that the volume parameter is not positive.
	ErrVolumeRange = errors.New("volume must be positive")
)

// VoiceDefaults fills the synthesis parameters a job event leaves unset.
type VoiceDefaults struct {
	VoiceID string
	Speed   float64
	Volume  float64
	Pitch   int
}

// NatsWorker listens for narration jobs on a NATS subject, synthesizes
// speech for each one, and replies with the audio segment's object key.
// Slides are processed one message at a time; the worker issues no
// concurrent synthesis requests.
type NatsWorker struct {
	natsConnection *nats.Conn
	subject        string
	store          core.ObjectStore
	synthesizer    core.SpeechSynthesizer
	normalizer     *narration.Normalizer
	defaults       VoiceDefaults
	log            *logger.Logger
}

// NewNatsWorker creates a new instance of a NATS worker.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subject string,
	store core.ObjectStore,
	synthesizer core.SpeechSynthesizer,
	defaults VoiceDefaults,
	log *logger.Logger,
) (*NatsWorker, error) {
	return &NatsWorker{
		natsConnection: natsConnection,
		subject:        subject,
		store:          store,
		synthesizer:    synthesizer,
		normalizer:     narration.NewNormalizer(),
		defaults:       defaults,
		log:            log,
	}, nil
}

// Run starts the worker and begins listening for messages.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	event, err := parseEvent(msg)
	if err != nil {
		w.log.Error("Failed to parse narration job event: %v", err)

		return
	}

	audioKey, processErr := w.processNarrationJob(ctx, event)
	if processErr != nil {
		w.log.Error(
			"Failed to process narration job for workflow %s: %v",
			event.Header.WorkflowID,
			processErr,
		)

		return
	}

	replyEvent := &events.AudioChunkCreatedEvent{
		Header:     event.Header,
		AudioKey:   audioKey,
		PageNumber: event.PageNumber,
		TotalPages: event.TotalPages,
	}

	err = w.publishReplyEvent(msg, replyEvent)
	if err != nil {
		w.log.Error(
			"Failed to publish reply event for workflow %s: %v",
			event.Header.WorkflowID,
			err,
		)
	}
}

// processNarrationJob downloads the slide's narration text, synthesizes
// speech for it, and uploads the resulting audio segment.
func (w *NatsWorker) processNarrationJob(
	ctx context.Context,
	event *events.TextProcessedEvent,
) (string, error) {
	textData, err := w.store.Download(ctx, event.TextKey)
	if err != nil {
		return "", fmt.Errorf(
			"failed to download narration text for key '%s': %w",
			event.TextKey,
			err,
		)
	}

	job := w.buildSpeechJob(string(textData), event.Voice)

	validationErr := validateSpeechJob(job)
	if validationErr != nil {
		return "", validationErr
	}

	audioData, err := w.synthesizer.Synthesize(ctx, job)
	if err != nil {
		return "", fmt.Errorf("failed to synthesize narration: %w", err)
	}

	audioKey := uuid.NewString() + audioKeySuffix

	err = w.store.Upload(ctx, audioKey, audioData)
	if err != nil {
		return "", fmt.Errorf(
			"failed to upload audio segment for key '%s': %w",
			audioKey,
			err,
		)
	}

	w.log.Info(
		"Synthesized segment %s for page %d/%d (%d bytes)",
		audioKey,
		event.PageNumber,
		event.TotalPages,
		len(audioData),
	)

	return audioKey, nil
}

// buildSpeechJob normalizes the narration text and overlays the configured
// voice defaults onto the event's voice selection.
func (w *NatsWorker) buildSpeechJob(text, eventVoice string) core.SpeechJob {
	voiceID := eventVoice
	if voiceID == "" {
		voiceID = w.defaults.VoiceID
	}

	return core.SpeechJob{
		Text:    w.normalizer.Normalize(text),
		VoiceID: voiceID,
		Speed:   w.defaults.Speed,
		Volume:  w.defaults.Volume,
		Pitch:   w.defaults.Pitch,
	}
}

// publishReplyEvent marshals and responds with the AudioChunkCreatedEvent.
func (w *NatsWorker) publishReplyEvent(
	msg *nats.Msg,
	replyEvent *events.AudioChunkCreatedEvent,
) error {
	replyData, err := json.Marshal(replyEvent)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}

	err = msg.Respond(replyData)
	if err != nil {
		return fmt.Errorf("failed to publish reply event: %w", err)
	}

	return nil
}

func parseEvent(msg *nats.Msg) (*events.TextProcessedEvent, error) {
	var event events.TextProcessedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	return &event, nil
}

// validateSpeechJob ensures the job carries values the speech service will
// accept before any network call is made.
func validateSpeechJob(job core.SpeechJob) error {
	if job.Text == "" {
		return ErrTextEmpty
	}

	if job.VoiceID == "" {
		return ErrVoiceEmpty
	}

	if job.Speed <= 0 {
		return fmt.Errorf("%w: got %f", ErrSpeedRange, job.Speed)
	}

	if job.Volume <= 0 {
		return fmt.Errorf("%w: got %f", ErrVolumeRange, job.Volume)
	}

	return nil
}
