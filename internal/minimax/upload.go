package minimax

import (
	"encoding/json"
	"fmt"
)

// uploadedFile is the nested container holding the assigned file handle.
type uploadedFile struct {
	FileID string `json:"file_id"`
}

// uploadEnvelope is the JSON shape of a file upload response.
type uploadEnvelope struct {
	File     *uploadedFile `json:"file"`
	BaseResp *baseResponse `json:"base_resp"`
}

// parseUploadResponse extracts the file handle from a 2xx upload response.
// A success status without the nested file id is a malformed response, not a
// crash.
func parseUploadResponse(body []byte) (string, error) {
	var envelope uploadEnvelope

	parseErr := json.Unmarshal(body, &envelope)
	if parseErr != nil {
		return "", fmt.Errorf(errFmtParseBody, parseErr)
	}

	statusErr := checkBaseResponse(envelope.BaseResp)
	if statusErr != nil {
		return "", statusErr
	}

	if envelope.File == nil || envelope.File.FileID == "" {
		return "", ErrMalformedUploadResponse
	}

	return envelope.File.FileID, nil
}
