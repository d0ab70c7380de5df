// Package realtime broadcasts job state transitions to subscribed
// clients over server-sent events. Grounded on the teacher's
// internal/sse.SSEHub, generalized from a channel-keyed pub/sub (users
// subscribe to named channels) to a single broadcast stream, since
// there is exactly one realtime audience here: whoever is watching the
// job queue. An open connection also counts as a heartbeat signal
// (SPEC_FULL §4.5's expansion), so the hub is handed the scheduler's
// Touch method at construction.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/restoreq/restoreq/internal/domain"
	"github.com/restoreq/restoreq/internal/pkg/logger"
)

// progressThrottle bounds how often a single client receives a
// non-terminal progress update; a job that reports progress many times
// a second would otherwise flood a slow SSE consumer.
const progressThrottle = 200 * time.Millisecond

type Client struct {
	id       uuid.UUID
	outbound chan *domain.Job
	done     chan struct{}
	limiter  *rate.Limiter
}

type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	touch   func()
	log     *logger.Logger
}

// New builds a Hub. touch is called once per new connection so the
// heartbeat monitor treats a live SSE subscriber the same as a polling
// client.
func New(touch func(), log *logger.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		touch:   touch,
		log:     log.With("component", "RealtimeHub"),
	}
}

// JobUpdated satisfies scheduler.Notifier. Terminal states bypass the
// limiter; non-terminal progress ticks are throttled per client so one
// fast-moving job can't starve a slow consumer's outbound buffer. Any
// update, terminal or not, is dropped when a client's buffer is full.
func (h *Hub) JobUpdated(job *domain.Job) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !job.Status.IsTerminal() && !c.limiter.Allow() {
			continue
		}
		select {
		case c.outbound <- job:
		default:
			h.log.Warn("dropping SSE update; client outbound buffer full", "clientID", c.id)
		}
	}
}

func (h *Hub) addClient() *Client {
	c := &Client{
		id:       uuid.New(),
		outbound: make(chan *domain.Job, 16),
		done:     make(chan struct{}),
		limiter:  rate.NewLimiter(rate.Every(progressThrottle), 1),
	}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	return c
}

// clientCount reports the number of currently subscribed clients;
// exposed for tests.
func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.outbound)
	}
}

// ServeHTTP streams job updates to one subscriber until its context is
// cancelled. It is framework-agnostic (plain http.ResponseWriter) so
// gin's c.Writer satisfies it directly.
func (h *Hub) ServeHTTP(ctx context.Context, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	if h.touch != nil {
		h.touch()
	}
	client := h.addClient()
	defer h.removeClient(client)

	ping := time.NewTicker(15 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case job, ok := <-client.outbound:
			if !ok {
				return
			}
			payload, err := json.Marshal(job)
			if err != nil {
				h.log.Warn("failed to marshal job update", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: job\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
