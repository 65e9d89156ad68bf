package minimax

import (
	"context"
	"encoding/json"
	"fmt"
)

// CloneResult describes the outcome of a clone registration. Callers must
// check the Success flag explicitly; remote and transport failures are
// reported through the Err field rather than a Go error.
type CloneResult struct {
	Success          bool
	RequestedVoiceID string
	OriginalFileID   string
	ReturnedVoiceID  string
	ReturnedFileID   string
	CloneID          string
	Err              string
}

// EffectiveVoiceID returns the voice identifier that must be used for all
// synthesis calls after registration: the service-returned id when present,
// otherwise the caller-requested one.
func (r CloneResult) EffectiveVoiceID() string {
	if r.ReturnedVoiceID != "" {
		return r.ReturnedVoiceID
	}

	return r.RequestedVoiceID
}

// cloneRequest is the JSON payload for the clone registration endpoint.
type cloneRequest struct {
	FileID  string `json:"file_id"`
	VoiceID string `json:"voice_id"`
}

// cloneIdentifiers holds the optional identifiers the service may return.
type cloneIdentifiers struct {
	VoiceID string `json:"voice_id"`
	FileID  string `json:"file_id"`
	CloneID string `json:"clone_id"`
}

// cloneEnvelope is the JSON shape of a clone registration response. The
// identifiers may appear nested under data, at the top level, or not at all.
type cloneEnvelope struct {
	cloneIdentifiers

	Data     *cloneIdentifiers `json:"data"`
	BaseResp *baseResponse     `json:"base_resp"`
}

// RegisterClone associates an uploaded file handle with a caller-chosen voice
// identifier. Presence of any returned identifier is optional; absence is not
// an error. Repeated registration under the same id is not guaranteed
// idempotent by the service, so this call performs no retries.
func (c *Client) RegisterClone(
	ctx context.Context,
	fileID, voiceID string,
) CloneResult {
	result := CloneResult{
		Success:          false,
		RequestedVoiceID: voiceID,
		OriginalFileID:   fileID,
	}

	requestBody, marshalErr := json.Marshal(cloneRequest{
		FileID:  fileID,
		VoiceID: voiceID,
	})
	if marshalErr != nil {
		result.Err = fmt.Sprintf("failed to marshal clone request: %v", marshalErr)

		return result
	}

	body, postErr := c.postJSON(ctx, apiVoiceClone, requestBody)
	if postErr != nil {
		result.Err = postErr.Error()

		return result
	}

	var envelope cloneEnvelope

	parseErr := json.Unmarshal(body, &envelope)
	if parseErr != nil {
		result.Err = fmt.Sprintf("failed to parse clone response: %v", parseErr)

		return result
	}

	statusErr := checkBaseResponse(envelope.BaseResp)
	if statusErr != nil {
		result.Err = statusErr.Error()

		return result
	}

	result.Success = true
	applyCloneIdentifiers(&result, envelope.Data)
	applyCloneIdentifiers(&result, &envelope.cloneIdentifiers)

	return result
}

// applyCloneIdentifiers copies any identifiers present in the source into the
// result. Applied to the nested data object first and the top level second,
// so top-level identifiers win when both are set.
func applyCloneIdentifiers(result *CloneResult, ids *cloneIdentifiers) {
	if ids == nil {
		return
	}

	if ids.VoiceID != "" {
		result.ReturnedVoiceID = ids.VoiceID
	}

	if ids.FileID != "" {
		result.ReturnedFileID = ids.FileID
	}

	if ids.CloneID != "" {
		result.CloneID = ids.CloneID
	}
}
