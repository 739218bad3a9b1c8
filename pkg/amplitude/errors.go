package amplitude

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNoAPIKey = errors.New("amplitude: no api key provided")

	// ErrValidation is wrapped by every error returned before a request is sent.
	ErrValidation = errors.New("amplitude: invalid request")

	ErrNoSecretKey      = fmt.Errorf("%w: secretKey must be set", ErrValidation)
	ErrMissingParameter = fmt.Errorf("%w: missing required parameter", ErrValidation)
)

func secretKeyError(method string) error {
	return fmt.Errorf("%w to use the %s method", ErrNoSecretKey, method)
}

func missingParameterError(message string) error {
	return fmt.Errorf("%w: %s", ErrMissingParameter, message)
}

// APIError is returned when Amplitude answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       []byte
	// Data is Body decoded as JSON, nil when Body is not JSON.
	Data   interface{}
	Header http.Header
	// ReadErr is set when the body could not be read in full.
	ReadErr error
}

func newAPIError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Body:       body,
		Header:     resp.Header,
	}
	var data interface{}
	if err := json.Unmarshal(body, &data); err == nil {
		apiErr.Data = data
	}
	return apiErr
}

func (e *APIError) Unwrap() error {
	return e.ReadErr
}

func (e *APIError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("amplitude: request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("amplitude: request failed with status %d: %s", e.StatusCode, e.Body)
}
