// Package minimax provides a client for the MiniMax speech API: text-to-speech
// synthesis, voice sample upload, and voice clone registration.
//
// The client is a set of request/decode primitives with no retry logic of its
// own; retry and backoff policy belongs to the callers that compose it.
package minimax

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// API endpoints and paths.
const (
	apiSynthesize = "/v1/t2a_v2"
	apiFileUpload = "/v1/files/upload"
	apiVoiceClone = "/v1/voice_clone"
)

// HTTP headers.
const (
	headerContentType   = "Content-Type"
	headerAuthorization = "Authorization"
	contentTypeJSON     = "application/json"
	bearerPrefix        = "Bearer "
	groupIDParam        = "GroupId"
)

// Default values.
const (
	DefaultBaseURL = "https://api.minimax.io"
	DefaultModel   = "speech-2.5-hd-preview"
	DefaultTimeout = 60 * time.Second

	defaultSpeed  = 1.0
	defaultVolume = 1.0

	defaultSampleRate = 32000
	defaultBitrate    = 128000
	defaultFormat     = "mp3"
	defaultChannels   = 1
)

const uploadPurposeVoiceClone = "voice_clone"

// Error and log format strings.
const (
	errFmtMarshalRequest  = "failed to marshal synthesis request: %w"
	errFmtCreateRequest   = "failed to create request: %w"
	errFmtSendRequest     = "failed to send request to %s: %w"
	errFmtReadBody        = "failed to read response body: %w"
	errFmtParseBody       = "failed to parse response body: %w"
	errFmtNonOKStatus     = "speech service returned non-OK status: %s, body: %s"
	errFmtFetchAudio      = "failed to fetch audio from %s: %w"
	errFmtFetchAudioCode  = "audio fetch from %s returned status: %s"
)

// Credentials holds the API key and optional group identifier for the speech
// service. The value is immutable after construction; the absence of an API
// key is a fatal configuration error caught before any network call.
type Credentials struct {
	APIKey  string
	GroupID string
}

// Validate reports whether the credential set is usable.
func (c Credentials) Validate() error {
	if c.APIKey == "" {
		return ErrAPIKeyMissing
	}

	return nil
}

// VoiceSettings are the voice parameters sent verbatim with every synthesis
// request.
type VoiceSettings struct {
	VoiceID string  `json:"voice_id"`
	Speed   float64 `json:"speed"`
	Volume  float64 `json:"vol"`
	Pitch   int     `json:"pitch"`
}

// DefaultVoiceSettings returns voice parameters with neutral speed, volume,
// and pitch for the given voice identifier.
func DefaultVoiceSettings(voiceID string) VoiceSettings {
	return VoiceSettings{
		VoiceID: voiceID,
		Speed:   defaultSpeed,
		Volume:  defaultVolume,
		Pitch:   0,
	}
}

// AudioSettings are the output format parameters sent with every synthesis
// request.
type AudioSettings struct {
	SampleRate int    `json:"sample_rate"`
	Bitrate    int    `json:"bitrate"`
	Format     string `json:"format"`
	Channel    int    `json:"channel"`
}

// DefaultAudioSettings returns the fixed defaults: 32 kHz, 128 kbps, mono MP3.
func DefaultAudioSettings() AudioSettings {
	return AudioSettings{
		SampleRate: defaultSampleRate,
		Bitrate:    defaultBitrate,
		Format:     defaultFormat,
		Channel:    defaultChannels,
	}
}

// synthesisRequest is the JSON payload for the synthesis endpoint. Streaming
// responses are out of scope, so the stream flag is always false.
type synthesisRequest struct {
	Model        string        `json:"model"`
	Text         string        `json:"text"`
	Stream       bool          `json:"stream"`
	VoiceSetting VoiceSettings `json:"voice_setting"`
	AudioSetting AudioSettings `json:"audio_setting"`
}

// ClientConfig configures a Client. Zero-valued fields fall back to the
// package defaults.
type ClientConfig struct {
	BaseURL     string
	Model       string
	Credentials Credentials
	Timeout     time.Duration
}

// Client issues synthesis, upload, and clone-registration requests against
// the speech service. All calls block until response or timeout; the timeout
// on the underlying HTTP client is the only bound on call duration.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	model       string
	credentials Credentials
}

// NewClient creates a speech service client. It fails fast if the credential
// set is missing an API key, before any network activity.
func NewClient(cfg ClientConfig) (*Client, error) {
	credentialsErr := cfg.Credentials.Validate()
	if credentialsErr != nil {
		return nil, credentialsErr
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		credentials: cfg.Credentials,
	}, nil
}

// SynthesizeSpeech sends one synthesis request and returns the decoded audio
// bytes. Failures are typed: transport errors and non-2xx statuses propagate
// as-is, a non-zero base_resp status code becomes a RemoteError carrying the
// service's message verbatim, and a parseable success without usable audio
// becomes ErrShapeNotFound or ErrDecodeFailed depending on which step failed.
func (c *Client) SynthesizeSpeech(
	ctx context.Context,
	text string,
	voice VoiceSettings,
	audio AudioSettings,
) ([]byte, error) {
	if text == "" {
		return nil, ErrTextEmpty
	}

	requestBody, marshalErr := json.Marshal(synthesisRequest{
		Model:        c.model,
		Text:         text,
		Stream:       false,
		VoiceSetting: voice,
		AudioSetting: audio,
	})
	if marshalErr != nil {
		return nil, fmt.Errorf(errFmtMarshalRequest, marshalErr)
	}

	body, postErr := c.postJSON(ctx, apiSynthesize, requestBody)
	if postErr != nil {
		return nil, postErr
	}

	var envelope synthesisEnvelope

	parseErr := json.Unmarshal(body, &envelope)
	if parseErr != nil {
		return nil, fmt.Errorf(errFmtParseBody, parseErr)
	}

	statusErr := checkBaseResponse(envelope.BaseResp)
	if statusErr != nil {
		return nil, statusErr
	}

	return c.extractAudio(ctx, &envelope)
}

// extractAudio resolves the audio payload across the known envelope shapes
// and turns it into raw bytes, fetching it when referenced by URL.
func (c *Client) extractAudio(
	ctx context.Context,
	envelope *synthesisEnvelope,
) ([]byte, error) {
	payload, found := resolveAudioPayload(envelope)
	if !found {
		return nil, ErrShapeNotFound
	}

	if payload.kind == payloadURL {
		return c.fetchAudio(ctx, payload.value)
	}

	return decodeAudio(payload.value)
}

// fetchAudio performs the plain GET used when the synthesis response refers
// to the audio by URL. The body bytes are used directly, no decoding.
func (c *Client) fetchAudio(ctx context.Context, audioURL string) ([]byte, error) {
	request, requestErr := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		audioURL,
		http.NoBody,
	)
	if requestErr != nil {
		return nil, fmt.Errorf(errFmtCreateRequest, requestErr)
	}

	response, sendErr := c.httpClient.Do(request)
	if sendErr != nil {
		return nil, fmt.Errorf(errFmtFetchAudio, audioURL, sendErr)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(errFmtFetchAudioCode, audioURL, response.Status)
	}

	audioData, readErr := io.ReadAll(response.Body)
	if readErr != nil {
		return nil, fmt.Errorf(errFmtReadBody, readErr)
	}

	if len(audioData) == 0 {
		return nil, ErrEmptyAudio
	}

	return audioData, nil
}

// UploadVoiceSample uploads a local audio sample for voice cloning and
// returns the opaque file handle assigned by the service. The handle has no
// meaning besides being passed to RegisterClone.
func (c *Client) UploadVoiceSample(
	ctx context.Context,
	samplePath string,
) (string, error) {
	_, statErr := os.Stat(samplePath)
	if statErr != nil {
		return "", fmt.Errorf("%w: %s", ErrSampleNotFound, samplePath)
	}

	requestBody, contentType, buildErr := buildUploadBody(samplePath)
	if buildErr != nil {
		return "", buildErr
	}

	request, requestErr := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.endpointURL(apiFileUpload),
		requestBody,
	)
	if requestErr != nil {
		return "", fmt.Errorf(errFmtCreateRequest, requestErr)
	}

	request.Header.Set(headerContentType, contentType)
	request.Header.Set(headerAuthorization, bearerPrefix+c.credentials.APIKey)

	response, sendErr := c.httpClient.Do(request)
	if sendErr != nil {
		return "", fmt.Errorf(errFmtSendRequest, c.baseURL, sendErr)
	}
	defer response.Body.Close()

	body, readErr := io.ReadAll(response.Body)
	if readErr != nil {
		return "", fmt.Errorf(errFmtReadBody, readErr)
	}

	if response.StatusCode < http.StatusOK ||
		response.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf(errFmtNonOKStatus, response.Status, string(body))
	}

	return parseUploadResponse(body)
}

// postJSON issues one authorized POST and returns the raw body of a 2xx
// response. Non-2xx statuses and transport failures propagate unretried.
func (c *Client) postJSON(
	ctx context.Context,
	path string,
	requestBody []byte,
) ([]byte, error) {
	request, requestErr := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.endpointURL(path),
		bytes.NewReader(requestBody),
	)
	if requestErr != nil {
		return nil, fmt.Errorf(errFmtCreateRequest, requestErr)
	}

	request.Header.Set(headerContentType, contentTypeJSON)
	request.Header.Set(headerAuthorization, bearerPrefix+c.credentials.APIKey)

	response, sendErr := c.httpClient.Do(request)
	if sendErr != nil {
		return nil, fmt.Errorf(errFmtSendRequest, c.baseURL, sendErr)
	}
	defer response.Body.Close()

	body, readErr := io.ReadAll(response.Body)
	if readErr != nil {
		return nil, fmt.Errorf(errFmtReadBody, readErr)
	}

	if response.StatusCode < http.StatusOK ||
		response.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf(errFmtNonOKStatus, response.Status, string(body))
	}

	return body, nil
}

// endpointURL joins the base URL with an API path and appends the GroupId
// query parameter when a group identifier is configured.
func (c *Client) endpointURL(path string) string {
	endpoint := c.baseURL + path

	if c.credentials.GroupID != "" {
		endpoint += "?" + groupIDParam + "=" + url.QueryEscape(c.credentials.GroupID)
	}

	return endpoint
}

// checkBaseResponse gates on the nested status field: exactly zero means
// success, anything else is a remote-side failure whose message is surfaced
// verbatim. A missing base_resp is treated as success; the audio resolution
// step catches truly empty responses.
func checkBaseResponse(base *baseResponse) error {
	if base == nil || base.StatusCode == 0 {
		return nil
	}

	return newRemoteError(base.StatusCode, base.StatusMsg)
}

// buildUploadBody constructs the multipart form carrying the sample bytes and
// the fixed voice_clone purpose tag.
func buildUploadBody(samplePath string) (*bytes.Buffer, string, error) {
	sampleFile, openErr := os.Open(samplePath)
	if openErr != nil {
		return nil, "", fmt.Errorf("failed to open voice sample: %w", openErr)
	}
	defer sampleFile.Close()

	requestBody := &bytes.Buffer{}
	writer := multipart.NewWriter(requestBody)

	fieldErr := writer.WriteField("purpose", uploadPurposeVoiceClone)
	if fieldErr != nil {
		return nil, "", fmt.Errorf("failed to write purpose field: %w", fieldErr)
	}

	filePart, partErr := writer.CreateFormFile("file", filepath.Base(samplePath))
	if partErr != nil {
		return nil, "", fmt.Errorf("failed to create file part: %w", partErr)
	}

	_, copyErr := io.Copy(filePart, sampleFile)
	if copyErr != nil {
		return nil, "", fmt.Errorf("failed to copy sample bytes: %w", copyErr)
	}

	closeErr := writer.Close()
	if closeErr != nil {
		return nil, "", fmt.Errorf("failed to finalize multipart body: %w", closeErr)
	}

	return requestBody, writer.FormDataContentType(), nil
}
