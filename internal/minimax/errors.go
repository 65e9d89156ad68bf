package minimax

import (
	"errors"
	"fmt"
)

// Static errors.
var (
	// ErrAPIKeyMissing indicates that no API key was configured. This is a
	// fatal configuration error raised before any network activity.
	ErrAPIKeyMissing = errors.New("api key cannot be empty")
	// ErrTextEmpty indicates that the synthesis text is empty.
	ErrTextEmpty = errors.New("text cannot be empty")
	// ErrShapeNotFound indicates that a successful response carried no audio
	// payload under any known envelope shape.
	ErrShapeNotFound = errors.New("no audio payload found in response")
	// ErrDecodeFailed indicates that the located audio payload was neither
	// valid hex nor valid base64.
	ErrDecodeFailed = errors.New("audio payload could not be decoded")
	// ErrEmptyAudio indicates that decoding succeeded but produced no bytes.
	ErrEmptyAudio = errors.New("decoded audio is empty")
	// ErrRemoteRejection indicates a non-zero base_resp status code.
	ErrRemoteRejection = errors.New("rejected by speech service")
	// ErrMalformedUploadResponse indicates a 2xx upload response without a
	// file id.
	ErrMalformedUploadResponse = errors.New("upload response missing file id")
	// ErrSampleNotFound indicates that the local voice sample does not exist.
	ErrSampleNotFound = errors.New("voice sample file not found")
)

// RemoteError carries the status code and message of a remote-side rejection.
// The message is surfaced verbatim from the service's base_resp.status_msg so
// callers can tell "service says no" apart from transport or decode failures.
type RemoteError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s (status code %d)", e.Message, e.StatusCode)
}

// Unwrap makes RemoteError match ErrRemoteRejection in errors.Is checks.
func (e *RemoteError) Unwrap() error {
	return ErrRemoteRejection
}

func newRemoteError(statusCode int, message string) *RemoteError {
	return &RemoteError{
		StatusCode: statusCode,
		Message:    message,
	}
}
