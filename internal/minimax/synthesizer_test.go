package minimax

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/book-expert/narration-service/internal/core"
)

func TestSynthesizerFillsNeutralDefaults(t *testing.T) {
	t.Parallel()

	var capturedRequest synthesisRequest

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			decodeErr := json.NewDecoder(r.Body).Decode(&capturedRequest)
			if decodeErr != nil {
				t.Errorf("Failed to decode request body: %v", decodeErr)
			}

			_, _ = w.Write([]byte(successBodyHex))
		},
	))
	defer server.Close()

	client := newTestClient(t, server.URL, "")
	synthesizer := NewSynthesizer(client, DefaultAudioSettings())

	_, err := synthesizer.Synthesize(context.Background(), core.SpeechJob{
		Text:    "Hello",
		VoiceID: testVoiceID,
		Speed:   0,
		Volume:  0,
		Pitch:   0,
	})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if capturedRequest.VoiceSetting.Speed != defaultSpeed {
		t.Errorf("Expected neutral speed, got %f", capturedRequest.VoiceSetting.Speed)
	}

	if capturedRequest.VoiceSetting.Volume != defaultVolume {
		t.Errorf("Expected neutral volume, got %f", capturedRequest.VoiceSetting.Volume)
	}

	if capturedRequest.VoiceSetting.VoiceID != testVoiceID {
		t.Errorf("Unexpected voice id: %s", capturedRequest.VoiceSetting.VoiceID)
	}
}
