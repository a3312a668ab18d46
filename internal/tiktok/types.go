package tiktok

import (
	"bytes"
	"encoding/json"
	"time"
)

// CookieStore is the client-side key/value storage the host runtime exposes.
// Missing keys read as "".
type CookieStore interface {
	Get(key string) string
	Set(key, value string)
}

// Client is the browser context an event was captured in.
type Client struct {
	IP        string
	UserAgent string
	URL       string
	Referrer  string
	// Timestamp is the capture time in unix seconds, possibly fractional.
	// Zero means unknown.
	Timestamp float64
	Cookies   CookieStore
}

// Event is a single analytics event as delivered by the tag runtime.
type Event struct {
	Name    string
	Type    string
	Client  Client
	Payload map[string]any
}

// Settings are the per-tenant component settings.
type Settings struct {
	HideClientIP bool `json:"hideClientIP"`
}

// RequestBody is the Events API 2.0 request body.
type RequestBody struct {
	Data []EventData `json:"data"`
}

// EventData is one entry of RequestBody.Data.
type EventData struct {
	Event      string         `json:"event"`
	EventTime  string         `json:"event_time"`
	EventID    string         `json:"event_id"`
	User       UserField      `json:"user"`
	Page       Page           `json:"page"`
	Properties map[string]any `json:"properties"`
}

// Page is the page the event happened on.
type Page struct {
	URL      string `json:"url"`
	Referrer string `json:"referrer"`
}

// User holds the user matching keys. UserAgent and IP are pointers so that
// hidden values are omitted while empty-but-visible values are still sent.
type User struct {
	UserAgent   *string `json:"user_agent,omitempty"`
	IP          *string `json:"ip,omitempty"`
	Email       string  `json:"email,omitempty"`
	PhoneNumber string  `json:"phone_number,omitempty"`
	ExternalID  string  `json:"external_id,omitempty"`
	TTP         string  `json:"ttp,omitempty"`
}

// UserField is the value of the "user" key. When ClickID is set the whole
// field serializes as that string instead of the User object.
type UserField struct {
	User    User
	ClickID string
}

// IsClickID reports whether the field carries a click identifier in place
// of the user object.
func (u UserField) IsClickID() bool {
	return u.ClickID != ""
}

func (u UserField) MarshalJSON() ([]byte, error) {
	if u.IsClickID() {
		return json.Marshal(u.ClickID)
	}
	return json.Marshal(u.User)
}

func (u *UserField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		*u = UserField{}
		return json.Unmarshal(b, &u.ClickID)
	}
	*u = UserField{}
	return json.Unmarshal(b, &u.User)
}

// Result is the output of a build.
type Result struct {
	Body RequestBody
	// Payload is the working payload with every consumed key removed.
	Payload map[string]any
	// EventTime is the parsed form of Body.Data[0].EventTime.
	EventTime time.Time
}

// Data returns the single event entry of the body.
func (r *Result) Data() *EventData {
	return &r.Body.Data[0]
}
