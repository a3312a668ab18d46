package tiktok

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Event types with dedicated handling.
const (
	TypePageview  = "pageview"
	TypeEcommerce = "ecommerce"
)

// Cookie names read or written by the builder.
const (
	CookieClickID = "ttclid"
	CookieTTP     = "_ttp"
)

const (
	pageviewEvent = "Pageview"
	ecommerceKey  = "ecommerce"
	// isoMillis matches JavaScript's Date.prototype.toISOString.
	isoMillis = "2006-01-02T15:04:05.000Z"
)

// builtInFields are consumed by the envelope or the user object and never
// copied into properties.
var builtInFields = map[string]bool{
	"ev":           true,
	"email":        true,
	"phone_number": true,
	"external_id":  true,
	"event_id":     true,
}

// userFields lists payload keys moved onto the user object, in output order.
var userFields = []struct {
	key    string
	hashed bool
	set    func(*User, string)
}{
	{"email", true, func(u *User, v string) { u.Email = v }},
	{"phone_number", true, func(u *User, v string) { u.PhoneNumber = v }},
	{"external_id", true, func(u *User, v string) { u.ExternalID = v }},
	{"ttp", false, func(u *User, v string) { u.TTP = v }},
}

// Builder turns tag runtime events into Events API request bodies.
type Builder struct {
	ids IDGenerator
	now func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithIDGenerator sets the source of event ids for payloads without one.
func WithIDGenerator(g IDGenerator) Option {
	return func(b *Builder) {
		b.ids = g
	}
}

// WithClock sets the clock used when the client timestamp is missing.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		b.now = now
	}
}

// NewBuilder returns a Builder drawing random event ids.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		ids: IDGeneratorFunc(RandomID),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildRequestBody builds with a default Builder.
func BuildRequestBody(eventType string, ev Event, settings Settings) (*Result, error) {
	return NewBuilder().Build(eventType, ev, settings)
}

// Build maps ev onto a request body. ev.Payload is not modified; the
// returned Result.Payload holds what is left of it after consumed keys are
// removed. The click identifier, when read from the URL, is written back to
// ev.Client.Cookies.
func (b *Builder) Build(eventType string, ev Event, settings Settings) (*Result, error) {
	top := copyPayload(ev.Payload)
	working := top
	if eventType == TypeEcommerce {
		working = mergeEcommerce(top)
	}

	data := EventData{
		Event: eventName(eventType, ev, top),
		Page: Page{
			URL:      ev.Client.URL,
			Referrer: ev.Client.Referrer,
		},
		Properties: map[string]any{},
	}

	if v := top["event_id"]; truthy(v) {
		data.EventID = stringify(v)
	} else {
		id, err := b.ids.NewID()
		if err != nil {
			return nil, errors.Wrap(err, "build request body")
		}
		data.EventID = id
	}

	// Resolved after the event id so a failed build leaves the cookie
	// store untouched.
	clickID := resolveClickID(ev.Client)

	eventTime := b.now().UTC()
	if ts := ev.Client.Timestamp; ts != 0 && !math.IsNaN(ts) && !math.IsInf(ts, 0) {
		eventTime = time.UnixMilli(int64(math.Round(ts * 1000))).UTC()
	}
	data.EventTime = eventTime.Format(isoMillis)

	user := &data.User.User
	if !settings.HideClientIP {
		ua, ip := ev.Client.UserAgent, ev.Client.IP
		user.UserAgent = &ua
		user.IP = &ip
	}

	delete(top, "ev")
	delete(working, "ev")

	for _, f := range userFields {
		v := working[f.key]
		if !truthy(v) {
			continue
		}
		value := stringify(v)
		if f.hashed {
			value = HashValue(value)
		}
		f.set(user, value)
		delete(working, f.key)
	}

	for k, v := range working {
		if !builtInFields[k] {
			data.Properties[k] = v
		}
	}

	if user.TTP == "" && ev.Client.Cookies != nil {
		if ttp := ev.Client.Cookies.Get(CookieTTP); ttp != "" {
			user.TTP = ttp
		}
	}

	// Replaces the whole user value, not a ttclid key inside it.
	if clickID != "" {
		data.User.ClickID = clickID
	}

	return &Result{
		Body:      RequestBody{Data: []EventData{data}},
		Payload:   working,
		EventTime: eventTime,
	}, nil
}

func eventName(eventType string, ev Event, payload map[string]any) string {
	if eventType == TypePageview {
		return pageviewEvent
	}
	if v := payload["ev"]; truthy(v) {
		return stringify(v)
	}
	if ev.Name != "" {
		return ev.Name
	}
	return ev.Type
}

// resolveClickID prefers the ttclid query parameter, persisting it, over the
// stored cookie.
func resolveClickID(c Client) string {
	var stored string
	if c.Cookies != nil {
		stored = c.Cookies.Get(CookieClickID)
	}

	u, err := url.Parse(c.URL)
	if err != nil {
		return stored
	}
	if id := u.Query().Get(CookieClickID); id != "" {
		if c.Cookies != nil {
			c.Cookies.Set(CookieClickID, id)
		}
		return id
	}
	return stored
}

// mergeEcommerce flattens the ecommerce object with its non built-in
// siblings. Keys of the ecommerce object win on collision.
func mergeEcommerce(top map[string]any) map[string]any {
	merged := map[string]any{}
	if ecom, ok := top[ecommerceKey].(map[string]any); ok {
		for k, v := range ecom {
			merged[k] = v
		}
	}
	delete(top, ecommerceKey)

	for k, v := range top {
		if builtInFields[k] {
			continue
		}
		if _, ok := merged[k]; ok {
			continue
		}
		merged[k] = v
	}
	return merged
}

func copyPayload(p map[string]any) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// truthy reports whether v counts as present: nil, "", false and zero
// numbers do not.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0 && !math.IsNaN(t)
	case float32:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	default:
		return true
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
