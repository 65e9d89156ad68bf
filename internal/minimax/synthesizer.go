package minimax

import (
	"context"

	"github.com/book-expert/narration-service/internal/core"
)

// Synthesizer adapts Client to the core.SpeechSynthesizer interface using a
// fixed set of audio format parameters.
type Synthesizer struct {
	client *Client
	audio  AudioSettings
}

// NewSynthesizer wraps a client with the audio settings shared by every
// synthesis call the service issues.
func NewSynthesizer(client *Client, audio AudioSettings) *Synthesizer {
	return &Synthesizer{
		client: client,
		audio:  audio,
	}
}

// Synthesize converts one job into a synthesis call, filling in neutral
// defaults for unset speed and volume.
func (s *Synthesizer) Synthesize(
	ctx context.Context,
	job core.SpeechJob,
) ([]byte, error) {
	voice := VoiceSettings{
		VoiceID: job.VoiceID,
		Speed:   job.Speed,
		Volume:  job.Volume,
		Pitch:   job.Pitch,
	}

	if voice.Speed <= 0 {
		voice.Speed = defaultSpeed
	}

	if voice.Volume <= 0 {
		voice.Volume = defaultVolume
	}

	return s.client.SynthesizeSpeech(ctx, job.Text, voice, s.audio)
}
