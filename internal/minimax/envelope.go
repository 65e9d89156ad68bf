package minimax

// The synthesis endpoint has shipped at least three envelope shapes across
// API versions: a top-level URL pointing at the audio, an encoded string under
// data.audio, and an encoded string under data.task_result.audio. Every field
// is optional; resolution must never fail on absent keys.

// baseResponse is the status container shared by all endpoints.
type baseResponse struct {
	StatusCode int    `json:"status_code"`
	StatusMsg  string `json:"status_msg"`
}

type taskResult struct {
	Audio string `json:"audio"`
}

type synthesisData struct {
	Audio      string      `json:"audio"`
	TaskResult *taskResult `json:"task_result"`
}

// synthesisEnvelope is the union of every response shape observed from the
// synthesis endpoint.
type synthesisEnvelope struct {
	BaseResp  *baseResponse  `json:"base_resp"`
	AudioFile string         `json:"audio_file"`
	Data      *synthesisData `json:"data"`
}

// payloadKind distinguishes how a located audio payload must be handled.
type payloadKind int

const (
	payloadEncoded payloadKind = iota
	payloadURL
)

// audioPayload is a located but not yet decoded audio reference.
type audioPayload struct {
	kind  payloadKind
	value string
}

// audioExtractors lists the known envelope shapes in fixed priority order.
// Each extractor returns the payload and whether it matched.
var audioExtractors = []func(*synthesisEnvelope) (audioPayload, bool){
	extractAudioFileURL,
	extractDataAudio,
	extractTaskResultAudio,
}

// resolveAudioPayload locates the audio payload by trying each known shape in
// priority order. It is a pure function over the parsed envelope.
func resolveAudioPayload(envelope *synthesisEnvelope) (audioPayload, bool) {
	for _, extract := range audioExtractors {
		payload, found := extract(envelope)
		if found {
			return payload, true
		}
	}

	return audioPayload{}, false
}

func extractAudioFileURL(envelope *synthesisEnvelope) (audioPayload, bool) {
	if envelope.AudioFile == "" {
		return audioPayload{}, false
	}

	return audioPayload{kind: payloadURL, value: envelope.AudioFile}, true
}

func extractDataAudio(envelope *synthesisEnvelope) (audioPayload, bool) {
	if envelope.Data == nil || envelope.Data.Audio == "" {
		return audioPayload{}, false
	}

	return audioPayload{kind: payloadEncoded, value: envelope.Data.Audio}, true
}

func extractTaskResultAudio(envelope *synthesisEnvelope) (audioPayload, bool) {
	if envelope.Data == nil || envelope.Data.TaskResult == nil ||
		envelope.Data.TaskResult.Audio == "" {
		return audioPayload{}, false
	}

	return audioPayload{
		kind:  payloadEncoded,
		value: envelope.Data.TaskResult.Audio,
	}, true
}
