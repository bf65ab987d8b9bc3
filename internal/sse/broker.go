// Package sse streams vault change notifications to HTTP clients so they can
// re-run their searches and base queries. Nothing derived from the vault is
// pushed; clients always re-query.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// Change kinds reported by the watcher.
const (
	Created = "created"
	Updated = "updated"
	Deleted = "deleted"
)

// Event types written on the stream.
const (
	TypeNoteCreated  = "note.created"
	TypeNoteUpdated  = "note.updated"
	TypeNoteDeleted  = "note.deleted"
	TypeBaseUpdated  = "base.updated"
	TypeVaultChanged = "vault.changed"
)

// Change is the payload of note.* and base.updated events.
type Change struct {
	Path string `json:"path"`
	Op   string `json:"op"`
}

// Summary is the payload of vault.changed: every path touched since the
// previous summary, split by what a client has to re-run.
type Summary struct {
	Notes []string `json:"notes,omitempty"`
	Bases []string `json:"bases,omitempty"`
}

// Options tunes a Broker. Zero values pick defaults.
type Options struct {
	// Coalesce is how long changes accumulate before one vault.changed
	// summary is sent.
	Coalesce time.Duration
	// Heartbeat is the interval of keep-alive comments on open streams.
	// Negative disables them.
	Heartbeat time.Duration
	// History is how many frames are kept for Last-Event-ID replay.
	// Negative disables replay.
	History int
}

type change struct {
	kind string
	path string
}

type subscription struct {
	ch    chan []byte
	after uint64
}

// frame is one encoded SSE message with its id.
type frame struct {
	id  uint64
	raw []byte
}

// Broker fans change notifications out to stream subscribers.
//
// A single loop goroutine owns subscribers, history, ids and the pending
// summary; public methods talk to it over channels.
type Broker struct {
	coalesce  time.Duration
	heartbeat time.Duration
	history   int

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	changeCh      chan change
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker and starts its loop.
func NewBroker(opts Options) *Broker {
	if opts.Coalesce <= 0 {
		opts.Coalesce = 2 * time.Second
	}
	if opts.Heartbeat == 0 {
		opts.Heartbeat = 30 * time.Second
	}
	if opts.History == 0 {
		opts.History = 128
	}

	b := &Broker{
		coalesce:      opts.Coalesce,
		heartbeat:     opts.Heartbeat,
		history:       max(opts.History, 0),
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		changeCh:      make(chan change, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

// changeEvent maps a file change to its event type. Base documents get their
// own type because clients re-run them rather than their searches.
func changeEvent(kind, path string) (string, bool) {
	if strings.HasSuffix(path, ".base") {
		switch kind {
		case Created, Updated, Deleted:
			return TypeBaseUpdated, true
		}
		return "", false
	}
	switch kind {
	case Created:
		return TypeNoteCreated, true
	case Updated:
		return TypeNoteUpdated, true
	case Deleted:
		return TypeNoteDeleted, true
	}
	return "", false
}

// pending collects paths for the next summary in first-seen order.
type pending struct {
	seen  map[string]struct{}
	notes []string
	bases []string
}

func (p *pending) add(path string) {
	if p.seen == nil {
		p.seen = make(map[string]struct{})
	}
	if _, ok := p.seen[path]; ok {
		return
	}
	p.seen[path] = struct{}{}
	if strings.HasSuffix(path, ".base") {
		p.bases = append(p.bases, path)
	} else {
		p.notes = append(p.notes, path)
	}
}

func (p *pending) take() Summary {
	s := Summary{Notes: p.notes, Bases: p.bases}
	*p = pending{}
	return s
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		nextID  uint64
		history []frame
		batch   pending
		flush   <-chan time.Time
	)

	emit := func(typ string, data any) {
		payload, err := json.Marshal(data)
		if err != nil {
			return
		}
		nextID++
		f := frame{id: nextID, raw: []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", nextID, typ, payload))}
		if b.history > 0 {
			history = append(history, f)
			if len(history) > b.history {
				history = history[len(history)-b.history:]
			}
		}
		for ch := range clients {
			select {
			case ch <- f.raw:
			default:
				// Slow client; it can catch up through Last-Event-ID.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = struct{}{}
			if sub.after == 0 {
				continue
			}
			for _, f := range history {
				if f.id <= sub.after {
					continue
				}
				select {
				case sub.ch <- f.raw:
				default:
				}
			}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case c := <-b.changeCh:
			typ, ok := changeEvent(c.kind, c.path)
			if !ok {
				continue
			}
			emit(typ, Change{Path: c.path, Op: c.kind})
			batch.add(c.path)
			if flush == nil {
				flush = time.After(b.coalesce)
			}

		case <-flush:
			flush = nil
			emit(TypeVaultChanged, batch.take())

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every subscriber channel. Pending
// summaries are dropped.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client. Frames with ids after afterID still in history
// are replayed first; zero replays nothing.
func (b *Broker) Subscribe(afterID uint64) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{ch: ch, after: afterID}:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// PublishChange announces a vault file change and schedules it into the
// next vault.changed summary. Unknown kinds are ignored.
func (b *Broker) PublishChange(kind, path string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- change{kind: kind, path: path}:
	case <-b.stopped:
	}
}

// lastEventID reads the resume point from the standard header, or from the
// query string for clients that cannot set headers.
func lastEventID(r *http.Request) uint64 {
	v := r.Header.Get("Last-Event-ID")
	if v == "" {
		v = r.URL.Query().Get("lastEventId")
	}
	id, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", b.coalesce.Milliseconds())
	flusher.Flush()

	ch := b.Subscribe(lastEventID(r))
	defer b.Unsubscribe(ch)

	var tick <-chan time.Time
	if b.heartbeat > 0 {
		t := time.NewTicker(b.heartbeat)
		defer t.Stop()
		tick = t.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
