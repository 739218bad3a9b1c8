package amplitudetest

import (
	"sort"
	"sync"
)

// store keeps what the fake has ingested so dashboard queries can answer from it.
type store struct {
	mu         sync.RWMutex
	nextID     int64
	ids        map[string]int64 // user_id or device_id -> amplitude_id
	users      map[int64]map[string]interface{}
	events     []map[string]interface{}
	eventTypes map[string]int
}

func newStore() *store {
	return &store{
		nextID:     1000,
		ids:        map[string]int64{},
		users:      map[int64]map[string]interface{}{},
		eventTypes: map[string]int{},
	}
}

// amplitudeID returns the id for the user or device of p, assigning one if needed.
// Callers hold the write lock.
func (s *store) amplitudeID(p map[string]interface{}) int64 {
	key, _ := p["user_id"].(string)
	if key == "" {
		key, _ = p["device_id"].(string)
	}
	if id, ok := s.ids[key]; ok {
		return id
	}
	s.nextID++
	s.ids[key] = s.nextID
	s.users[s.nextID] = map[string]interface{}{
		"user_id":      p["user_id"],
		"device_ids":   []interface{}{},
		"amplitude_id": s.nextID,
	}
	if deviceID, ok := p["device_id"].(string); ok && deviceID != "" {
		s.ids[deviceID] = s.nextID
	}
	return s.nextID
}

func (s *store) addEvents(events []map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		id := s.amplitudeID(e)
		e["amplitude_id"] = id
		s.events = append(s.events, e)
		if t, ok := e["event_type"].(string); ok {
			s.eventTypes[t]++
		}
	}
}

func (s *store) identify(payloads []map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range payloads {
		id := s.amplitudeID(p)
		props, _ := p["user_properties"].(map[string]interface{})
		set, ok := props["$set"].(map[string]interface{})
		if !ok {
			set = props
		}
		data := s.users[id]
		userProps, _ := data["user_properties"].(map[string]interface{})
		if userProps == nil {
			userProps = map[string]interface{}{}
			data["user_properties"] = userProps
		}
		for k, v := range set {
			userProps[k] = v
		}
	}
}

// search matches a user id, device id or amplitude id given as text.
func (s *store) search(user string) []map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.ids[user]
	if !ok {
		for candidate := range s.users {
			if formatID(candidate) == user {
				id, ok = candidate, true
				break
			}
		}
	}
	if !ok {
		return []map[string]interface{}{}
	}
	return []map[string]interface{}{{
		"amplitude_id": id,
		"user_id":      s.users[id]["user_id"],
	}}
}

func (s *store) activity(id int64) (map[string]interface{}, []map[string]interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.users[id]
	if !ok {
		return nil, nil, false
	}
	data := make(map[string]interface{}, len(stored))
	for k, v := range stored {
		data[k] = v
	}
	if props, ok := stored["user_properties"].(map[string]interface{}); ok {
		copied := make(map[string]interface{}, len(props))
		for k, v := range props {
			copied[k] = v
		}
		data["user_properties"] = copied
	}
	events := []map[string]interface{}{}
	for _, e := range s.events {
		if e["amplitude_id"] == id {
			events = append(events, e)
		}
	}
	return data, events, true
}

func (s *store) count(eventType string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eventTypes[eventType]
}

func (s *store) eventList() []map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.eventTypes))
	for name := range s.eventTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	list := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		list = append(list, map[string]interface{}{
			"name":   name,
			"totals": s.eventTypes[name],
		})
	}
	return list
}

func (s *store) allEvents() []map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]map[string]interface{}, len(s.events))
	copy(out, s.events)
	return out
}
