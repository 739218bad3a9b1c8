package amplitude

// propertyNames maps camelCase event keys to their wire names.
var propertyNames = map[string]string{
	"userId":             "user_id",
	"deviceId":           "device_id",
	"sessionId":          "session_id",
	"eventType":          "event_type",
	"eventProperties":    "event_properties",
	"userProperties":     "user_properties",
	"appVersion":         "app_version",
	"osName":             "os_name",
	"osVersion":          "os_version",
	"deviceBrand":        "device_brand",
	"deviceManufacturer": "device_manufacturer",
	"deviceModel":        "device_model",
	"locationLat":        "location_lat",
	"locationLng":        "location_lng",
}

// defaultedFields are resolved by resolveField rather than renamed.
var defaultedFields = []struct {
	snake string
	camel string
}{
	{"event_type", "eventType"},
	{"device_id", "deviceId"},
	{"session_id", "sessionId"},
	{"user_id", "userId"},
}

// Defaults are the client level identifiers applied to events that carry none.
type Defaults struct {
	UserID    string
	DeviceID  string
	SessionID string
}

func (d Defaults) lookup(field string) string {
	switch field {
	case "user_id":
		return d.UserID
	case "device_id":
		return d.DeviceID
	case "session_id":
		return d.SessionID
	}
	return ""
}

// PropertyName returns the wire name for an event key.
func PropertyName(key string) string {
	if name, ok := propertyNames[key]; ok {
		return name
	}
	return key
}

// BuildPayloads converts events into wire payloads, one per event, in order.
func BuildPayloads(defaults Defaults, events ...Event) []Payload {
	payloads := make([]Payload, 0, len(events))
	for _, event := range events {
		payloads = append(payloads, buildPayload(defaults, event))
	}
	return payloads
}

func buildPayload(defaults Defaults, event Event) Payload {
	payload := make(Payload, len(event)+len(defaultedFields))

	for _, f := range defaultedFields {
		if v, ok := resolveField(event, f.snake, f.camel, defaults.lookup(f.snake)); ok {
			payload[f.snake] = v
		}
	}

	for key, value := range event {
		name := PropertyName(key)
		if isDefaulted(name) {
			continue
		}
		// a present snake_case value wins over its camelCase spelling, and
		// an absent one never shadows a present camelCase value
		if name != key {
			if _, ok := present(event, name); ok {
				continue
			}
		} else if _, ok := present(event, key); !ok && camelPresent(event, name) {
			continue
		}
		payload[name] = value
	}

	return payload
}

// resolveField picks the value for a defaulted field: the snake_case key on
// the event, then the camelCase key, then the client default. ok is false
// when none is set and the field must be left out.
func resolveField(event Event, snake, camel, fallback string) (interface{}, bool) {
	if v, ok := present(event, snake); ok {
		return v, true
	}
	if v, ok := present(event, camel); ok {
		return v, true
	}
	if fallback != "" {
		return fallback, true
	}
	return nil, false
}

func present(event Event, key string) (interface{}, bool) {
	v, ok := event[key]
	if !ok || v == nil {
		return nil, false
	}
	if s, isString := v.(string); isString && s == "" {
		return nil, false
	}
	return v, true
}

func camelPresent(event Event, name string) bool {
	for camel, snake := range propertyNames {
		if snake != name {
			continue
		}
		if _, ok := present(event, camel); ok {
			return true
		}
	}
	return false
}

func isDefaulted(name string) bool {
	for _, f := range defaultedFields {
		if f.snake == name {
			return true
		}
	}
	return false
}
