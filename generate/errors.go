package generate

import "fmt"

// TransportError means the API could not be reached or the call timed out.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("Gemini API unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError means the API answered with an error status or an
// unrecognizable body.
type ProtocolError struct {
	// Status is the HTTP status code, or 0 when the status was 2xx.
	Status  int
	Message string
}

func (e *ProtocolError) Error() string { return e.Message }

const invalidFormat = "Invalid response format from Gemini API"

// statusFallback is used when an error response carries no message.
func statusFallback(status string) string {
	return "Gemini API request failed: " + status
}
