package models

import "github.com/PratikDhanave/tiktok-events-service/internal/tiktok"

// ClientInput is the browser context as posted by the tag runtime.
// visitor_id is optional; when set, cookies are also kept server-side.
type ClientInput struct {
	IP        string            `json:"ip"`
	UserAgent string            `json:"user_agent"`
	URL       string            `json:"url"`
	Referrer  string            `json:"referrer"`
	Timestamp float64           `json:"timestamp"`
	Cookies   map[string]string `json:"cookies,omitempty"`
	VisitorID string            `json:"visitor_id,omitempty"`
}

// EventInput is a captured event.
type EventInput struct {
	Name    string                 `json:"name"`
	Type    string                 `json:"type"`
	Client  ClientInput            `json:"client"`
	Payload map[string]interface{} `json:"payload"`
}

// ToEvent binds the input to a cookie store.
func (e EventInput) ToEvent(cookies tiktok.CookieStore) tiktok.Event {
	return tiktok.Event{
		Name: e.Name,
		Type: e.Type,
		Client: tiktok.Client{
			IP:        e.Client.IP,
			UserAgent: e.Client.UserAgent,
			URL:       e.Client.URL,
			Referrer:  e.Client.Referrer,
			Timestamp: e.Client.Timestamp,
			Cookies:   cookies,
		},
		Payload: e.Payload,
	}
}

// BuildRequest is the POST /events/:type payload.
// settings is optional; the tenant default applies when absent.
type BuildRequest struct {
	Event    EventInput       `json:"event"`
	Settings *tiktok.Settings `json:"settings,omitempty"`
}

// BuildResponse is returned by POST /events/:type.
// SetCookies lists the cookies the client should persist.
type BuildResponse struct {
	Body       tiktok.RequestBody     `json:"body"`
	Payload    map[string]interface{} `json:"payload"`
	SetCookies map[string]string      `json:"set_cookies"`
}
