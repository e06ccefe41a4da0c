// Package eventfeed broadcasts property change notifications to websocket clients as JSON.
package eventfeed

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/halharness/pkg/hal"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Event is one notification as sent to clients.
type Event struct {
	Time      time.Time `json:"time"`
	Kind      string    `json:"kind"`
	Object    uint32    `json:"object"`
	Addresses []string  `json:"addresses"`
	Scope     string    `json:"scope,omitempty"`
	Device    uint32    `json:"device,omitempty"`
}

// NewEvent describes a notification for object covering addresses.
func NewEvent(kind string, object hal.ObjectID, addresses []hal.PropertyAddress) Event {
	e := Event{
		Time:      time.Now(),
		Kind:      kind,
		Object:    uint32(object),
		Addresses: make([]string, len(addresses)),
	}
	for i, address := range addresses {
		e.Addresses[i] = address.String()
	}
	return e
}

type Feed struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]bool

	broadcast chan Event
	done      chan struct{}
	closeOnce sync.Once
}

func New(logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Feed{
		logger: logger.With(
			"event feed uuid", uuid.New(),
		),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Event, 256),
		done:      make(chan struct{}),
	}
	go f.handleBroadcasts()
	return f
}

// ServeHTTP upgrades the connection and adds it to the feed.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	f.clientsMu.Lock()
	f.clients[conn] = true
	count := len(f.clients)
	f.clientsMu.Unlock()
	f.logger.Info("client connected", "remote", r.RemoteAddr, "clients", count)

	// clients never send anything, a read error means they are gone
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				f.drop(conn)
				return
			}
		}
	}()
}

func (f *Feed) drop(conn *websocket.Conn) {
	f.clientsMu.Lock()
	defer f.clientsMu.Unlock()
	if f.clients[conn] {
		delete(f.clients, conn)
		conn.Close()
		f.logger.Info("client disconnected", "clients", len(f.clients))
	}
}

func (f *Feed) handleBroadcasts() {
	for {
		select {
		case <-f.done:
			return
		case event := <-f.broadcast:
			f.clientsMu.Lock()
			for client := range f.clients {
				if err := client.WriteJSON(event); err != nil {
					f.logger.Warn("failed to send event", "err", err)
					client.Close()
					delete(f.clients, client)
				}
			}
			f.clientsMu.Unlock()
		}
	}
}

// Publish queues an event for every client. It never blocks: when the queue is full
// the event is dropped and false is returned.
func (f *Feed) Publish(event Event) bool {
	select {
	case <-f.done:
		return false
	default:
	}
	select {
	case f.broadcast <- event:
		return true
	default:
		f.logger.Warn("event queue full, dropping event", "kind", event.Kind)
		return false
	}
}

func (f *Feed) ClientCount() int {
	f.clientsMu.Lock()
	defer f.clientsMu.Unlock()
	return len(f.clients)
}

// Close disconnects every client and stops broadcasting.
func (f *Feed) Close() error {
	f.closeOnce.Do(func() {
		close(f.done)
		f.clientsMu.Lock()
		for client := range f.clients {
			client.Close()
		}
		f.clients = make(map[*websocket.Conn]bool)
		f.clientsMu.Unlock()
	})
	return nil
}

// Serve exposes the feed on addr at /events until ctx is cancelled.
func Serve(ctx context.Context, addr string, feed *Feed) error {
	mux := http.NewServeMux()
	mux.Handle("/events", feed)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		feed.logger.Info("serving event feed", "addr", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
