package amplitudetest_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexbotov/amplitude/pkg/amplitude"
	"github.com/alexbotov/amplitude/pkg/amplitude/amplitudetest"
)

const (
	apiKey    = "fake-key"
	secretKey = "fake-secret"
)

func newClient(t *testing.T, srv *amplitudetest.Server, secret string) *amplitude.Client {
	t.Helper()
	client, err := amplitude.NewClientWithHTTPClient(apiKey, &amplitude.Config{
		SecretKey:     secret,
		TokenEndpoint: srv.URL,
		DeviceID:      "device-1",
	}, srv.HTTPClient())
	require.NoError(t, err)
	return client
}

func TestFake_TrackThenQuery(t *testing.T) {
	srv := amplitudetest.NewServer(amplitudetest.Config{APIKey: apiKey, SecretKey: secretKey})
	defer srv.Close()
	client := newClient(t, srv, secretKey)
	ctx := context.Background()

	resp, err := client.Track(ctx, []amplitude.Event{
		{"eventType": "open", "userId": "alice"},
		{"eventType": "open", "userId": "alice"},
		{"eventType": "purchase", "userId": "alice", "eventProperties": map[string]interface{}{"price": 3}},
	}, nil)
	require.NoError(t, err)
	require.Equal(t, 200, resp.Code)
	require.Equal(t, 3, resp.EventsIngested)

	body, err := client.Identify(ctx, amplitude.Event{
		"user_id":        "alice",
		"userProperties": map[string]interface{}{"$set": map[string]interface{}{"plan": "pro"}},
	})
	require.NoError(t, err)
	require.Equal(t, "success", body)

	search, err := client.UserSearch(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, search.Matches, 1)
	require.Equal(t, "alice", search.Matches[0].UserID)

	id := strconv.FormatInt(search.Matches[0].AmplitudeID, 10)
	activity, err := client.UserActivity(ctx, id, amplitude.Params{"user": "ignored", "limit": 50})
	require.NoError(t, err)
	require.Len(t, activity.Events, 3)
	require.Equal(t, map[string]interface{}{"plan": "pro"}, activity.UserData["user_properties"])

	seg, err := client.EventSegmentation(ctx, amplitude.Params{
		"e":     map[string]interface{}{"event_type": "open"},
		"start": "20240101",
		"end":   "20240131",
	})
	require.NoError(t, err)
	data := seg["data"].(map[string]interface{})
	require.Equal(t, []interface{}{[]interface{}{float64(2)}}, data["series"])

	list, err := client.EventList(ctx)
	require.NoError(t, err)
	require.Len(t, list["data"], 2)

	export, err := client.Export(ctx, amplitude.ExportOptions{Start: "20240101T00", End: "20240131T23"})
	require.NoError(t, err)
	defer export.Body.Close()
	raw, err := io.ReadAll(export.Body)
	require.NoError(t, err)
	require.Len(t, strings.Split(strings.TrimSpace(string(raw)), "\n"), 3)
}

func TestFake_RecordsRequests(t *testing.T) {
	srv := amplitudetest.NewServer(amplitudetest.Config{APIKey: apiKey})
	defer srv.Close()
	client := newClient(t, srv, "")

	_, err := client.Track(context.Background(), []amplitude.Event{{"event_type": "open"}}, nil)
	require.NoError(t, err)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	require.Equal(t, http.MethodPost, reqs[0].Method)
	require.Equal(t, "/2/httpapi", reqs[0].Path)
	require.NotEmpty(t, reqs[0].ID)

	var body struct {
		Events []map[string]interface{} `json:"events"`
	}
	require.NoError(t, json.Unmarshal(reqs[0].Body, &body))
	require.Equal(t, "device-1", body.Events[0]["device_id"])
	require.True(t, strings.HasPrefix(reqs[0].Header.Get("User-Agent"), "amplitude-go/"))
}

func TestFake_FailNext(t *testing.T) {
	srv := amplitudetest.NewServer(amplitudetest.Config{APIKey: apiKey, SecretKey: secretKey})
	defer srv.Close()
	client := newClient(t, srv, secretKey)

	srv.FailNext("/2/httpapi", http.StatusTooManyRequests, `{"code":429,"error":"Too many requests for some devices and users"}`)

	_, err := client.Track(context.Background(), []amplitude.Event{{"event_type": "open", "user_id": "u"}}, nil)
	var apiErr *amplitude.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	require.Equal(t, float64(429), apiErr.Data.(map[string]interface{})["code"])

	_, err = client.Track(context.Background(), []amplitude.Event{{"event_type": "open", "user_id": "u"}}, nil)
	require.NoError(t, err)
}

func TestFake_RejectsBadCredentials(t *testing.T) {
	srv := amplitudetest.NewServer(amplitudetest.Config{APIKey: apiKey, SecretKey: secretKey})
	defer srv.Close()
	client := newClient(t, srv, "wrong-secret")

	_, err := client.EventList(context.Background())
	var apiErr *amplitude.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	other, err := amplitude.NewClientWithHTTPClient("other-key", &amplitude.Config{TokenEndpoint: srv.URL}, srv.HTTPClient())
	require.NoError(t, err)
	_, err = other.Track(context.Background(), []amplitude.Event{{"event_type": "open", "user_id": "u"}}, nil)
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestFake_TrackRequiresEventType(t *testing.T) {
	srv := amplitudetest.NewServer(amplitudetest.Config{APIKey: apiKey})
	defer srv.Close()
	client := newClient(t, srv, "")

	_, err := client.Track(context.Background(), []amplitude.Event{{"user_id": "u"}}, nil)
	var apiErr *amplitude.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestFake_ExportWithoutData(t *testing.T) {
	srv := amplitudetest.NewServer(amplitudetest.Config{APIKey: apiKey, SecretKey: secretKey})
	defer srv.Close()
	client := newClient(t, srv, secretKey)

	_, err := client.Export(context.Background(), amplitude.ExportOptions{Start: "20240101T00", End: "20240101T01"})
	var apiErr *amplitude.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}
