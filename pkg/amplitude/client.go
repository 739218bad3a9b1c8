package amplitude

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Client is an Amplitude API client. It is safe for concurrent use.
type Client struct {
	apiKey        string
	secretKey     string
	tokenEndpoint string
	defaults      Defaults
	insertIDs     bool
	userAgent     string

	httpClient Doer
	log        logrus.FieldLogger
	metrics    *metrics
}

// NewClient creates a new Amplitude API client. A nil config uses DefaultConfig.
func NewClient(apiKey string, config *Config) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return NewClientWithHTTPClient(apiKey, config, &http.Client{Timeout: timeout})
}

// NewClientWithHTTPClient creates a new Amplitude API client that sends
// requests through httpClient.
func NewClientWithHTTPClient(apiKey string, config *Config, httpClient Doer) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if config == nil {
		config = DefaultConfig()
	}
	m, err := newMetrics(config.Registerer)
	if err != nil {
		return nil, err
	}

	return &Client{
		apiKey:        apiKey,
		secretKey:     config.SecretKey,
		tokenEndpoint: strings.TrimSuffix(config.tokenEndpoint(), "/"),
		defaults:      config.defaults(),
		insertIDs:     config.GenerateInsertIDs,
		userAgent:     fmt.Sprintf("amplitude-go/%s %s (%s/%s)", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH),
		httpClient:    httpClient,
		log:           config.logger(),
		metrics:       m,
	}, nil
}

// TokenEndpoint returns the base URL used for identify and track requests.
func (c *Client) TokenEndpoint() string {
	return c.tokenEndpoint
}

// send performs req and returns the response of a 2xx exchange with its body
// unread. Transport errors are returned as is.
func (c *Client) send(operation string, req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)

	log := c.log.WithFields(logrus.Fields{
		"operation": operation,
		"method":    req.Method,
		"path":      req.URL.Path,
	})
	log.Debug("sending amplitude request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.observe(operation, 0, elapsed)
		return nil, err
	}
	c.metrics.observe(operation, resp.StatusCode, elapsed)
	log.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"duration": elapsed,
	}).Debug("amplitude request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		apiErr := newAPIError(resp, body)
		if err != nil {
			apiErr.ReadErr = fmt.Errorf("failed to read response: %w", err)
		}
		return nil, apiErr
	}

	return resp, nil
}

// doRequest performs req and returns the body of a successful response.
func (c *Client) doRequest(operation string, req *http.Request) ([]byte, error) {
	resp, err := c.send(operation, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

// doJSON performs req and decodes the response body into result.
func (c *Client) doJSON(operation string, req *http.Request, result interface{}) error {
	body, err := c.doRequest(operation, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *Client) newDashboardRequest(ctx context.Context, path string, query url.Values) (*http.Request, error) {
	u := DashboardEndpoint + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.apiKey, c.secretKey)
	return req, nil
}

// Identify sends user identifications to /identify. A single event and a
// one element slice produce the same request.
func (c *Client) Identify(ctx context.Context, events ...Event) (string, error) {
	identification, err := json.Marshal(BuildPayloads(c.defaults, events...))
	if err != nil {
		return "", fmt.Errorf("failed to marshal identification: %w", err)
	}
	form := url.Values{
		"api_key":        {c.apiKey},
		"identification": {string(identification)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenEndpoint+"/identify", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.doRequest("identify", req)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Track uploads events to the HTTP V2 API. options may be nil.
func (c *Client) Track(ctx context.Context, events []Event, options *TrackOptions) (*TrackResponse, error) {
	payloads := BuildPayloads(c.defaults, events...)
	if c.insertIDs {
		for _, p := range payloads {
			if _, ok := p["insert_id"]; !ok {
				p["insert_id"] = uuid.NewString()
			}
		}
	}

	bodyBytes, err := json.Marshal(&trackRequest{
		APIKey:  c.apiKey,
		Events:  payloads,
		Options: options,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenEndpoint+"/2/httpapi", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var result TrackResponse
	if err := c.doJSON("track", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Export starts a raw event export. The caller owns the returned response
// and must close its body.
func (c *Client) Export(ctx context.Context, options ExportOptions) (*http.Response, error) {
	if c.secretKey == "" {
		return nil, secretKeyError("export")
	}
	if options.Start == "" || options.End == "" {
		return nil, missingParameterError("`start` and `end` are required options")
	}

	req, err := c.newDashboardRequest(ctx, "/export", url.Values{
		"start": {options.Start},
		"end":   {options.End},
	})
	if err != nil {
		return nil, err
	}
	return c.send("export", req)
}

// UserSearch looks up users by user ID, device ID or Amplitude ID.
func (c *Client) UserSearch(ctx context.Context, user string) (*UserSearchResponse, error) {
	if c.secretKey == "" {
		return nil, secretKeyError("userSearch")
	}
	if user == "" {
		return nil, missingParameterError("value to search for must be passed")
	}

	req, err := c.newDashboardRequest(ctx, "/usersearch", url.Values{"user": {user}})
	if err != nil {
		return nil, err
	}

	var result UserSearchResponse
	if err := c.doJSON("userSearch", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UserActivity returns the event stream of one user. params may be nil; its
// "user" entry is always replaced by amplitudeID.
func (c *Client) UserActivity(ctx context.Context, amplitudeID string, params Params) (*UserActivityResponse, error) {
	if c.secretKey == "" {
		return nil, secretKeyError("userActivity")
	}
	if amplitudeID == "" {
		return nil, missingParameterError("Amplitude ID must be passed")
	}

	query, err := encodeParams(params)
	if err != nil {
		return nil, err
	}
	query.Set("user", amplitudeID)

	req, err := c.newDashboardRequest(ctx, "/useractivity", query)
	if err != nil {
		return nil, err
	}

	var result UserActivityResponse
	if err := c.doJSON("userActivity", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// EventSegmentation queries /events/segmentation. params must hold "e",
// "start" and "end". A non-string "e" is sent JSON encoded.
func (c *Client) EventSegmentation(ctx context.Context, params Params) (ResponseBody, error) {
	if c.secretKey == "" {
		return nil, secretKeyError("eventSegmentation")
	}
	for _, key := range []string{"e", "start", "end"} {
		if _, ok := present(Event(params), key); !ok {
			return nil, missingParameterError("`e`, `start` and `end` are required data properties")
		}
	}

	query, err := encodeParams(params)
	if err != nil {
		return nil, err
	}

	req, err := c.newDashboardRequest(ctx, "/events/segmentation", query)
	if err != nil {
		return nil, err
	}

	var result ResponseBody
	if err := c.doJSON("eventSegmentation", req, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// EventList returns the project's event types with their weekly totals.
func (c *Client) EventList(ctx context.Context) (ResponseBody, error) {
	if c.secretKey == "" {
		return nil, secretKeyError("eventList")
	}

	req, err := c.newDashboardRequest(ctx, "/events/list", nil)
	if err != nil {
		return nil, err
	}

	var result ResponseBody
	if err := c.doJSON("eventList", req, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// encodeParams copies params into query values. Strings are sent as is,
// scalars are formatted and everything else is JSON encoded.
func encodeParams(params Params) (url.Values, error) {
	query := make(url.Values, len(params))
	for key, value := range params {
		if value == nil {
			continue
		}
		s, err := encodeValue(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode parameter %q: %w", key, err)
		}
		query.Set(key, s)
	}
	return query, nil
}

func encodeValue(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, json.Number:
		return fmt.Sprint(v), nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
