// Package amplitude provides a client for the Amplitude HTTP API.
//
// The client covers the event ingestion endpoints (identify, track) and the
// dashboard REST endpoints used for reporting (export, user search, user
// activity, event segmentation, event list).
//
// # Authentication
//
// Ingestion requests carry the API key in the request body. Dashboard
// requests use HTTP basic auth with the API key as username and the secret
// key as password, so every dashboard method requires Config.SecretKey.
//
// # Basic Usage
//
//	client, err := amplitude.NewClient("your-api-key", &amplitude.Config{
//	    SecretKey: "your-secret-key",
//	    UserID:    "default-user",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Track an event. camelCase and snake_case keys are both accepted.
//	resp, err := client.Track(ctx, []amplitude.Event{{
//	    "eventType":       "signup",
//	    "eventProperties": map[string]interface{}{"plan": "pro"},
//	}}, nil)
//
//	// Identify a user
//	_, err = client.Identify(ctx, amplitude.Event{
//	    "user_id":         "user-123",
//	    "user_properties": map[string]interface{}{"$set": map[string]interface{}{"tier": "gold"}},
//	})
//
// # Error Handling
//
// Missing configuration or arguments are reported before any request is sent
// and wrap ErrValidation. Non-2xx responses are returned as *APIError:
//
//	_, err := client.UserSearch(ctx, "user-123")
//	var apiErr *amplitude.APIError
//	if errors.As(err, &apiErr) {
//	    switch apiErr.StatusCode {
//	    case http.StatusTooManyRequests:
//	        // Back off
//	    case http.StatusBadRequest:
//	        // Inspect apiErr.Body
//	    }
//	}
//
// Transport failures that produced no response are returned unchanged.
package amplitude
