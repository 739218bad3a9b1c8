package amplitude

import "net/http"

// Version is the library version advertised in the User-Agent header.
const Version = "1.0.0"

const (
	DefaultTokenEndpoint = "https://api.amplitude.com"
	DashboardEndpoint    = "https://amplitude.com/api/2"

	// TokenEndpointEnv overrides DefaultTokenEndpoint when Config.TokenEndpoint is empty.
	TokenEndpointEnv = "AMPLITUDE_TOKEN_ENDPOINT"
)

// Doer performs HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Event is a caller supplied record for Track or Identify. Keys may use
// camelCase or snake_case spelling.
type Event map[string]interface{}

// Payload is the snake_case form of an Event as sent on the wire.
type Payload map[string]interface{}

// Params holds query parameters for dashboard requests.
type Params map[string]interface{}

// ResponseBody is a decoded JSON response with no fixed schema.
type ResponseBody map[string]interface{}

// TrackOptions is sent as the "options" object of a Track request.
type TrackOptions struct {
	MinIDLength int `json:"min_id_length,omitempty"`
}

// ExportOptions selects the export time range. Both bounds use the
// YYYYMMDDTHH format.
type ExportOptions struct {
	Start string
	End   string
}

// TrackResponse is the body returned by /2/httpapi
type TrackResponse struct {
	Code             int   `json:"code"`
	EventsIngested   int   `json:"events_ingested"`
	PayloadSizeBytes int   `json:"payload_size_bytes"`
	ServerUploadTime int64 `json:"server_upload_time"`
}

// UserSearchMatch is a single user returned by /usersearch
type UserSearchMatch struct {
	AmplitudeID int64  `json:"amplitude_id"`
	UserID      string `json:"user_id"`
	Platform    string `json:"platform,omitempty"`
	Country     string `json:"country,omitempty"`
	LastSeen    string `json:"last_seen,omitempty"`
}

// UserSearchResponse is the body returned by /usersearch
type UserSearchResponse struct {
	Matches []UserSearchMatch `json:"matches"`
	Type    string            `json:"type"`
}

// UserActivityResponse is the body returned by /useractivity
type UserActivityResponse struct {
	UserData map[string]interface{}   `json:"userData"`
	Events   []map[string]interface{} `json:"events"`
}

type trackRequest struct {
	APIKey  string        `json:"api_key"`
	Events  []Payload     `json:"events"`
	Options *TrackOptions `json:"options,omitempty"`
}
