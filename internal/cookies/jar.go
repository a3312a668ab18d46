package cookies

import (
	"sync"

	"github.com/PratikDhanave/tiktok-events-service/internal/tiktok"
)

// Store is a key/value cookie store.
type Store = tiktok.CookieStore

// Jar holds the cookies a request arrived with and records every write so
// they can be handed back to the client. Reads that miss fall through to an
// optional backing store; writes go to both.
type Jar struct {
	mu       sync.Mutex
	values   map[string]string
	writes   map[string]string
	fallback Store
}

var _ Store = (*Jar)(nil)

// NewJar copies initial. fallback may be nil.
func NewJar(initial map[string]string, fallback Store) *Jar {
	values := make(map[string]string, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &Jar{
		values:   values,
		writes:   map[string]string{},
		fallback: fallback,
	}
}

func (j *Jar) Get(key string) string {
	j.mu.Lock()
	v, ok := j.values[key]
	j.mu.Unlock()

	if ok && v != "" {
		return v
	}
	if j.fallback != nil {
		return j.fallback.Get(key)
	}
	return v
}

func (j *Jar) Set(key, value string) {
	j.mu.Lock()
	j.values[key] = value
	j.writes[key] = value
	j.mu.Unlock()

	if j.fallback != nil {
		j.fallback.Set(key, value)
	}
}

// Writes returns a copy of the cookies set since the jar was created.
func (j *Jar) Writes() map[string]string {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make(map[string]string, len(j.writes))
	for k, v := range j.writes {
		out[k] = v
	}
	return out
}
