package amplitudetest

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// DashboardPrefix is the path prefix of the dashboard REST API.
const DashboardPrefix = "/api/2"

// Config configures the fake.
type Config struct {
	APIKey    string
	SecretKey string
	Logger    logrus.FieldLogger
}

// Handler fakes the Amplitude ingestion and dashboard APIs.
type Handler struct {
	config Config
	router *mux.Router
	store  *store
	log    logrus.FieldLogger

	mu       sync.Mutex
	requests []Request
	failures map[string][]failure
}

type failure struct {
	status int
	body   string
}

// NewHandler creates a fake with empty state.
func NewHandler(config Config) *Handler {
	log := config.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	h := &Handler{
		config:   config,
		store:    newStore(),
		log:      log,
		failures: map[string][]failure{},
	}
	h.router = h.setupRouter()
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// setupRouter creates and configures the HTTP router
func (h *Handler) setupRouter() *mux.Router {
	r := mux.NewRouter()

	r.Use(RecoveryMiddleware)
	r.Use(h.LoggingMiddleware)
	r.Use(h.RecordMiddleware)
	r.Use(h.FailureMiddleware)

	// Ingestion
	r.HandleFunc("/identify", h.Identify).Methods("POST")
	r.HandleFunc("/2/httpapi", h.Track).Methods("POST")

	// Dashboard
	dashboard := r.PathPrefix(DashboardPrefix).Subrouter()
	dashboard.Use(h.BasicAuthMiddleware)
	dashboard.HandleFunc("/export", h.Export).Methods("GET")
	dashboard.HandleFunc("/usersearch", h.UserSearch).Methods("GET")
	dashboard.HandleFunc("/useractivity", h.UserActivity).Methods("GET")
	dashboard.HandleFunc("/events/segmentation", h.EventSegmentation).Methods("GET")
	dashboard.HandleFunc("/events/list", h.EventList).Methods("GET")

	r.NotFoundHandler = http.HandlerFunc(NotFoundHandler)
	return r
}

// Requests returns every request received so far, oldest first.
func (h *Handler) Requests() []Request {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Request, len(h.requests))
	copy(out, h.requests)
	return out
}

// FailNext makes the next request to path answer with status and body
// instead of being handled. Calls queue up.
func (h *Handler) FailNext(path string, status int, body string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures[path] = append(h.failures[path], failure{status: status, body: body})
}

func (h *Handler) nextFailure(path string) (failure, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	queue := h.failures[path]
	if len(queue) == 0 {
		return failure{}, false
	}
	h.failures[path] = queue[1:]
	return queue[0], true
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"code":  status,
		"error": message,
	})
}

// NotFoundHandler handles 404 errors
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, "Resource not found")
}

// Identify handles POST /identify
func (h *Handler) Identify(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	if !h.validAPIKey(r.PostForm.Get("api_key")) {
		respondError(w, http.StatusBadRequest, "invalid_api_key")
		return
	}

	var identification []map[string]interface{}
	if err := json.Unmarshal([]byte(r.PostForm.Get("identification")), &identification); err != nil {
		respondError(w, http.StatusBadRequest, "missing or malformed identification")
		return
	}
	h.store.identify(identification)

	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("success"))
}

type trackBody struct {
	APIKey  string                   `json:"api_key"`
	Events  []map[string]interface{} `json:"events"`
	Options map[string]interface{}   `json:"options"`
}

// Track handles POST /2/httpapi
func (h *Handler) Track(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var req trackBody
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}
	if !h.validAPIKey(req.APIKey) {
		respondError(w, http.StatusBadRequest, "Invalid API key: "+req.APIKey)
		return
	}
	if len(req.Events) == 0 {
		respondError(w, http.StatusBadRequest, "Request missing required field: events")
		return
	}
	for i, e := range req.Events {
		if _, ok := e["event_type"].(string); !ok {
			respondError(w, http.StatusBadRequest, "event at index "+strconv.Itoa(i)+" is missing event_type")
			return
		}
	}
	h.store.addEvents(req.Events)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"code":               200,
		"events_ingested":    len(req.Events),
		"payload_size_bytes": len(body),
		"server_upload_time": time.Now().UnixMilli(),
	})
}

// Export handles GET /api/2/export. Events are streamed as JSON lines.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("start") == "" || q.Get("end") == "" {
		respondError(w, http.StatusBadRequest, "start and end are required")
		return
	}

	events := h.store.allEvents()
	if len(events) == 0 {
		respondError(w, http.StatusNotFound, "Raw data files were not found.")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	enc := json.NewEncoder(w)
	for _, e := range events {
		enc.Encode(e)
	}
}

// UserSearch handles GET /api/2/usersearch
func (h *Handler) UserSearch(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		respondError(w, http.StatusBadRequest, "user is required")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"matches": h.store.search(user),
		"type":    "match_user_or_device_id",
	})
}

// UserActivity handles GET /api/2/useractivity
func (h *Handler) UserActivity(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("user"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "user must be an Amplitude ID")
		return
	}
	data, events, ok := h.store.activity(id)
	if !ok {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"userData": data,
		"events":   events,
	})
}

// EventSegmentation handles GET /api/2/events/segmentation. It returns one
// data point: the number of ingested events of the requested type.
func (h *Handler) EventSegmentation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("e") == "" || q.Get("start") == "" || q.Get("end") == "" {
		respondError(w, http.StatusBadRequest, "e, start and end are required")
		return
	}
	var e struct {
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal([]byte(q.Get("e")), &e); err != nil || e.EventType == "" {
		respondError(w, http.StatusBadRequest, "e must be a JSON event definition")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"series":       [][]int{{h.store.count(e.EventType)}},
			"seriesLabels": []int{0},
			"xValues":      []string{q.Get("start")},
		},
	})
}

// EventList handles GET /api/2/events/list
func (h *Handler) EventList(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"data": h.store.eventList(),
	})
}

func (h *Handler) validAPIKey(key string) bool {
	if h.config.APIKey == "" {
		return key != ""
	}
	return key == h.config.APIKey
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
