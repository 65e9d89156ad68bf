// Package core defines the core business logic and interfaces for the
// narration service.
package core

import "context"

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}

// SpeechJob holds the parameters for a single synthesis request. This allows
// for per-slide customization of the narration audio.
type SpeechJob struct {
	Text    string
	VoiceID string
	Speed   float64
	Volume  float64
	Pitch   int
}

// SpeechSynthesizer defines the interface for a remote text-to-speech backend.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, job SpeechJob) ([]byte, error)
}

// NarrationGenerator produces narration text for a slide prompt. It degrades
// to the supplied fallback text instead of failing.
type NarrationGenerator interface {
	Generate(ctx context.Context, prompt, fallbackText string) string
}
