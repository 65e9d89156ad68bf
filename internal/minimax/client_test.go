package minimax

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	testAPIKey  = "test-api-key"
	testGroupID = "group-1234"
	testVoiceID = "lecture-voice"

	// data.audio is "Hello" hex-encoded.
	successBodyHex = `{
		"base_resp": {"status_code": 0, "status_msg": "success"},
		"data": {"audio": "48656c6c6f"}
	}`
	rejectionBody = `{
		"base_resp": {"status_code": 1002, "status_msg": "insufficient balance"}
	}`
	emptySuccessBody = `{"base_resp": {"status_code": 0}}`
	undecodableBody  = `{
		"base_resp": {"status_code": 0},
		"data": {"audio": "!!not-audio!!"}
	}`
)

// newTestClient builds a client pointed at the given test server.
func newTestClient(t *testing.T, serverURL, groupID string) *Client {
	t.Helper()

	client, err := NewClient(ClientConfig{
		BaseURL: serverURL,
		Model:   "test-model",
		Credentials: Credentials{
			APIKey:  testAPIKey,
			GroupID: groupID,
		},
		Timeout: 0,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	return client
}

func TestNewClient_MissingAPIKey(t *testing.T) {
	t.Parallel()

	_, err := NewClient(ClientConfig{})
	if !errors.Is(err, ErrAPIKeyMissing) {
		t.Errorf("Expected ErrAPIKeyMissing, got: %v", err)
	}
}

func TestSynthesizeSpeech_Success(t *testing.T) {
	t.Parallel()

	var capturedRequest synthesisRequest

	var capturedAuth string

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("Expected POST, got %s", r.Method)
			}

			if r.URL.Path != "/v1/t2a_v2" {
				t.Errorf("Unexpected path: %s", r.URL.Path)
			}

			capturedAuth = r.Header.Get("Authorization")

			decodeErr := json.NewDecoder(r.Body).Decode(&capturedRequest)
			if decodeErr != nil {
				t.Errorf("Failed to decode request body: %v", decodeErr)
			}

			_, _ = w.Write([]byte(successBodyHex))
		},
	))
	defer server.Close()

	client := newTestClient(t, server.URL, "")

	audio, err := client.SynthesizeSpeech(
		context.Background(),
		"Hello, slide one.",
		DefaultVoiceSettings(testVoiceID),
		DefaultAudioSettings(),
	)
	if err != nil {
		t.Fatalf("SynthesizeSpeech failed: %v", err)
	}

	if !bytes.Equal(audio, []byte("Hello")) {
		t.Errorf("Expected decoded hex audio 'Hello', got %q", audio)
	}

	if capturedAuth != "Bearer "+testAPIKey {
		t.Errorf("Unexpected Authorization header: %s", capturedAuth)
	}

	if capturedRequest.Model != "test-model" {
		t.Errorf("Unexpected model in request: %s", capturedRequest.Model)
	}

	if capturedRequest.Stream {
		t.Error("Expected stream flag to be false")
	}

	if capturedRequest.VoiceSetting.VoiceID != testVoiceID {
		t.Errorf("Unexpected voice id: %s", capturedRequest.VoiceSetting.VoiceID)
	}

	if capturedRequest.AudioSetting.SampleRate != defaultSampleRate {
		t.Errorf(
			"Unexpected sample rate: %d",
			capturedRequest.AudioSetting.SampleRate,
		)
	}
}

func TestSynthesizeSpeech_GroupIDQueryParameter(t *testing.T) {
	t.Parallel()

	var capturedGroupID string

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			capturedGroupID = r.URL.Query().Get("GroupId")

			_, _ = w.Write([]byte(successBodyHex))
		},
	))
	defer server.Close()

	client := newTestClient(t, server.URL, testGroupID)

	_, err := client.SynthesizeSpeech(
		context.Background(),
		"Hello",
		DefaultVoiceSettings(testVoiceID),
		DefaultAudioSettings(),
	)
	if err != nil {
		t.Fatalf("SynthesizeSpeech failed: %v", err)
	}

	if capturedGroupID != testGroupID {
		t.Errorf("Expected GroupId %q, got %q", testGroupID, capturedGroupID)
	}
}

func TestSynthesizeSpeech_EmptyText(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, "http://localhost:1", "")

	_, err := client.SynthesizeSpeech(
		context.Background(),
		"",
		DefaultVoiceSettings(testVoiceID),
		DefaultAudioSettings(),
	)
	if !errors.Is(err, ErrTextEmpty) {
		t.Errorf("Expected ErrTextEmpty, got: %v", err)
	}
}

func TestSynthesizeSpeech_RemoteRejection(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(rejectionBody))
		},
	))
	defer server.Close()

	client := newTestClient(t, server.URL, "")

	audio, err := client.SynthesizeSpeech(
		context.Background(),
		"Hello",
		DefaultVoiceSettings(testVoiceID),
		DefaultAudioSettings(),
	)
	if audio != nil {
		t.Errorf("Expected nil audio on rejection, got %d bytes", len(audio))
	}

	if !errors.Is(err, ErrRemoteRejection) {
		t.Fatalf("Expected ErrRemoteRejection, got: %v", err)
	}

	var remoteErr *RemoteError

	if !errors.As(err, &remoteErr) {
		t.Fatalf("Expected RemoteError, got: %v", err)
	}

	if remoteErr.StatusCode != 1002 {
		t.Errorf("Expected status code 1002, got %d", remoteErr.StatusCode)
	}

	if !strings.Contains(remoteErr.Message, "insufficient balance") {
		t.Errorf("Expected service message to be preserved, got: %s", remoteErr.Message)
	}
}

func TestSynthesizeSpeech_NoAudioShape(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(emptySuccessBody))
		},
	))
	defer server.Close()

	client := newTestClient(t, server.URL, "")

	_, err := client.SynthesizeSpeech(
		context.Background(),
		"Hello",
		DefaultVoiceSettings(testVoiceID),
		DefaultAudioSettings(),
	)
	if !errors.Is(err, ErrShapeNotFound) {
		t.Errorf("Expected ErrShapeNotFound, got: %v", err)
	}
}

func TestSynthesizeSpeech_UndecodableAudio(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(undecodableBody))
		},
	))
	defer server.Close()

	client := newTestClient(t, server.URL, "")

	_, err := client.SynthesizeSpeech(
		context.Background(),
		"Hello",
		DefaultVoiceSettings(testVoiceID),
		DefaultAudioSettings(),
	)
	if !errors.Is(err, ErrDecodeFailed) {
		t.Errorf("Expected ErrDecodeFailed, got: %v", err)
	}
}

func TestSynthesizeSpeech_AudioFileURL(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)

	defer server.Close()

	mux.HandleFunc("/audio.mp3", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("raw-mp3-bytes"))
	})
	mux.HandleFunc("/v1/t2a_v2", func(w http.ResponseWriter, _ *http.Request) {
		response := map[string]any{
			"base_resp":  map[string]any{"status_code": 0},
			"audio_file": server.URL + "/audio.mp3",
		}
		_ = json.NewEncoder(w).Encode(response)
	})

	client := newTestClient(t, server.URL, "")

	audio, err := client.SynthesizeSpeech(
		context.Background(),
		"Hello",
		DefaultVoiceSettings(testVoiceID),
		DefaultAudioSettings(),
	)
	if err != nil {
		t.Fatalf("SynthesizeSpeech failed: %v", err)
	}

	if !bytes.Equal(audio, []byte("raw-mp3-bytes")) {
		t.Errorf("Expected fetched URL bytes verbatim, got %q", audio)
	}
}

func TestSynthesizeSpeech_NonOKStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
		},
	))
	defer server.Close()

	client := newTestClient(t, server.URL, "")

	_, err := client.SynthesizeSpeech(
		context.Background(),
		"Hello",
		DefaultVoiceSettings(testVoiceID),
		DefaultAudioSettings(),
	)
	if err == nil {
		t.Fatal("Expected error for non-OK HTTP status")
	}

	if !strings.Contains(err.Error(), "502") {
		t.Errorf("Expected status in error, got: %v", err)
	}
}

func TestUploadVoiceSample_MissingFile(t *testing.T) {
	t.Parallel()

	requestCount := 0

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			requestCount++

			_, _ = w.Write([]byte(`{}`))
		},
	))
	defer server.Close()

	client := newTestClient(t, server.URL, "")

	_, err := client.UploadVoiceSample(
		context.Background(),
		filepath.Join(t.TempDir(), "missing.wav"),
	)
	if !errors.Is(err, ErrSampleNotFound) {
		t.Errorf("Expected ErrSampleNotFound, got: %v", err)
	}

	if requestCount != 0 {
		t.Errorf("Expected no network request for a missing sample, got %d", requestCount)
	}
}

func TestUploadVoiceSample_Success(t *testing.T) {
	t.Parallel()

	samplePath := filepath.Join(t.TempDir(), "sample.wav")

	writeErr := os.WriteFile(samplePath, []byte("fake-wav-bytes"), 0o600)
	if writeErr != nil {
		t.Fatalf("Failed to write sample file: %v", writeErr)
	}

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/files/upload" {
				t.Errorf("Unexpected path: %s", r.URL.Path)
			}

			parseErr := r.ParseMultipartForm(1 << 20)
			if parseErr != nil {
				t.Errorf("Failed to parse multipart form: %v", parseErr)
			}

			if purpose := r.FormValue("purpose"); purpose != "voice_clone" {
				t.Errorf("Expected purpose voice_clone, got %q", purpose)
			}

			_, header, fileErr := r.FormFile("file")
			if fileErr != nil {
				t.Errorf("Expected a file part: %v", fileErr)
			} else if header.Filename != "sample.wav" {
				t.Errorf("Unexpected file name: %s", header.Filename)
			}

			_, _ = w.Write([]byte(
				`{"file": {"file_id": "file-123"}, "base_resp": {"status_code": 0}}`,
			))
		},
	))
	defer server.Close()

	client := newTestClient(t, server.URL, "")

	fileID, err := client.UploadVoiceSample(context.Background(), samplePath)
	if err != nil {
		t.Fatalf("UploadVoiceSample failed: %v", err)
	}

	if fileID != "file-123" {
		t.Errorf("Expected file id 'file-123', got %q", fileID)
	}
}

func TestUploadVoiceSample_MalformedResponse(t *testing.T) {
	t.Parallel()

	samplePath := filepath.Join(t.TempDir(), "sample.wav")

	writeErr := os.WriteFile(samplePath, []byte("fake-wav-bytes"), 0o600)
	if writeErr != nil {
		t.Fatalf("Failed to write sample file: %v", writeErr)
	}

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"base_resp": {"status_code": 0}}`))
		},
	))
	defer server.Close()

	client := newTestClient(t, server.URL, "")

	_, err := client.UploadVoiceSample(context.Background(), samplePath)
	if !errors.Is(err, ErrMalformedUploadResponse) {
		t.Errorf("Expected ErrMalformedUploadResponse, got: %v", err)
	}
}

func TestRegisterClone_NestedIdentifiers(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/voice_clone" {
				t.Errorf("Unexpected path: %s", r.URL.Path)
			}

			var request cloneRequest

			decodeErr := json.NewDecoder(r.Body).Decode(&request)
			if decodeErr != nil {
				t.Errorf("Failed to decode clone request: %v", decodeErr)
			}

			if request.FileID != "file-123" {
				t.Errorf("Unexpected file id: %s", request.FileID)
			}

			_, _ = w.Write([]byte(`{
				"base_resp": {"status_code": 0},
				"data": {"voice_id": "assigned-voice", "clone_id": "clone-9"}
			}`))
		},
	))
	defer server.Close()

	client := newTestClient(t, server.URL, "")

	result := client.RegisterClone(context.Background(), "file-123", "my-voice")
	if !result.Success {
		t.Fatalf("Expected success, got error: %s", result.Err)
	}

	if result.ReturnedVoiceID != "assigned-voice" {
		t.Errorf("Unexpected returned voice id: %s", result.ReturnedVoiceID)
	}

	if result.CloneID != "clone-9" {
		t.Errorf("Unexpected clone id: %s", result.CloneID)
	}

	if result.EffectiveVoiceID() != "assigned-voice" {
		t.Errorf(
			"Expected the returned id to supersede the requested one, got %s",
			result.EffectiveVoiceID(),
		)
	}
}

func TestRegisterClone_TopLevelIdentifiersWin(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{
				"base_resp": {"status_code": 0},
				"voice_id": "top-level-voice",
				"data": {"voice_id": "nested-voice"}
			}`))
		},
	))
	defer server.Close()

	client := newTestClient(t, server.URL, "")

	result := client.RegisterClone(context.Background(), "file-123", "my-voice")
	if !result.Success {
		t.Fatalf("Expected success, got error: %s", result.Err)
	}

	if result.ReturnedVoiceID != "top-level-voice" {
		t.Errorf("Expected top-level id to win, got %s", result.ReturnedVoiceID)
	}
}

func TestRegisterClone_NoIdentifiers(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"base_resp": {"status_code": 0}}`))
		},
	))
	defer server.Close()

	client := newTestClient(t, server.URL, "")

	result := client.RegisterClone(context.Background(), "file-123", "my-voice")
	if !result.Success {
		t.Fatalf("Expected success, got error: %s", result.Err)
	}

	if result.EffectiveVoiceID() != "my-voice" {
		t.Errorf(
			"Expected requested id when no id is returned, got %s",
			result.EffectiveVoiceID(),
		)
	}
}

func TestRegisterClone_RemoteFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{
				"base_resp": {"status_code": 2001, "status_msg": "clone quota exceeded"}
			}`))
		},
	))
	defer server.Close()

	client := newTestClient(t, server.URL, "")

	result := client.RegisterClone(context.Background(), "file-123", "my-voice")
	if result.Success {
		t.Fatal("Expected failure for non-zero status code")
	}

	if !strings.Contains(result.Err, "clone quota exceeded") {
		t.Errorf("Expected service message in Err, got: %s", result.Err)
	}
}
