// Package sse streams publish job progress and article changes to
// browsers and CLI clients over Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/starford/hugopub/internal/models"
)

// Event types.
const (
	TypeJobUpdated      = "job.updated"
	TypeArticleCreated  = "article.created"
	TypeArticleUpdated  = "article.updated"
	TypeArticleDeleted  = "article.deleted"
	TypeArticlesChanged = "articles.changed"
)

// Event is one SSE message.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Option configures a Broker.
type Option func(*Broker)

// WithListThrottle sets the minimum gap between articles.changed events.
func WithListThrottle(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.listMin = d
		}
	}
}

// WithKeepAlive makes ServeHTTP write a comment line every d so proxies
// keep idle streams open. Zero disables it.
func WithKeepAlive(d time.Duration) Option {
	return func(b *Broker) { b.keepAlive = d }
}

// Broker fans events out to connected clients. Each client owns a
// buffered channel; a client whose buffer is full misses the event.
type Broker struct {
	listMin   time.Duration
	keepAlive time.Duration

	mu       sync.Mutex
	clients  map[chan []byte]struct{}
	lastList time.Time
	closed   bool
}

// NewBroker returns a broker ready to accept clients.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		listMin:   2 * time.Second,
		keepAlive: 30 * time.Second,
		clients:   make(map[chan []byte]struct{}),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

func encode(event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "event: %s\ndata: %s\n\n", event.Type, payload), nil
}

// send delivers raw to every client. b.mu must be held.
func (b *Broker) send(raw []byte) {
	for ch := range b.clients {
		select {
		case ch <- raw:
		default:
		}
	}
}

// Close disconnects every client. Later calls are no-ops.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.clients {
		close(ch)
	}
	b.clients = nil
}

// Subscribe registers a client. The channel is closed by Unsubscribe or
// Close; after Close it is returned already closed.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.clients[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[ch]; !ok {
		return
	}
	delete(b.clients, ch)
	close(ch)
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Publish broadcasts event. Events whose data cannot be encoded are
// dropped.
func (b *Broker) Publish(event Event) {
	raw, err := encode(event)
	if err != nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.send(raw)
}

// PublishJobEvent broadcasts a job snapshot as job.updated.
func (b *Broker) PublishJobEvent(job models.PublishJob) {
	b.Publish(Event{Type: TypeJobUpdated, Data: job})
}

var articleTypes = map[string]string{
	"created": TypeArticleCreated,
	"updated": TypeArticleUpdated,
	"deleted": TypeArticleDeleted,
}

// PublishArticleEvent broadcasts an article change. At most one
// articles.changed follows per list throttle window. kind is created,
// updated or deleted; anything else is ignored.
func (b *Broker) PublishArticleEvent(kind, path string) {
	typ, ok := articleTypes[kind]
	if !ok {
		return
	}
	raw, err := encode(Event{Type: typ, Data: map[string]string{"path": path}})
	if err != nil {
		return
	}
	list, _ := encode(Event{Type: TypeArticlesChanged, Data: map[string]string{}})

	b.mu.Lock()
	defer b.mu.Unlock()
	b.send(raw)
	if now := time.Now(); now.Sub(b.lastList) >= b.listMin {
		b.lastList = now
		b.send(list)
	}
}

// ServeHTTP streams events to one client (GET /api/events) until the
// request ends or the broker closes.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return
	}

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	var ping <-chan time.Time
	if b.keepAlive > 0 {
		t := time.NewTicker(b.keepAlive)
		defer t.Stop()
		ping = t.C
	}

	for {
		var chunk []byte
		select {
		case <-r.Context().Done():
			return
		case <-ping:
			chunk = []byte(": ping\n\n")
		case msg, ok := <-ch:
			if !ok {
				return
			}
			chunk = msg
		}
		if _, err := w.Write(chunk); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
