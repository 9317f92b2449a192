// Package buffermonitor gives producer-consumer sessions an observable
// surface: it implements prodcons.Observer, retains a capped in-memory log
// of buffer operations, and streams each operation as JSON to connected
// websocket clients. The buffer itself stays free of any network or
// logging concern; the monitor is an external collaborator wired in by
// whoever wants visibility into operation order.
package buffermonitor

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/avinashbhat/concurrency-exercises/prodcons"
)

// Event is one observed buffer operation. Seq is assigned by the monitor
// in observation order, giving clients and tests a total order over
// operations.
type Event struct {
	Op   string `json:"op"` // "put" or "take"
	Task int    `json:"task"`
	Item int    `json:"item"`
	Seq  uint64 `json:"seq"`
}

const (
	OpPut  = "put"
	OpTake = "take"
)

const defaultMaxLog = 1024

// sendQueueSize bounds the per-client outbound queue; a client that falls
// this far behind is dropped rather than allowed to stall the session.
const sendQueueSize = 64

// Monitor records buffer events and fans them out to websocket clients.
// It is safe for concurrent use and implements prodcons.Observer.
type Monitor struct {
	upgrader websocket.Upgrader
	maxLog   int

	mu      sync.Mutex
	seq     uint64
	events  []Event
	clients map[*client]struct{}
	closed  bool
}

var _ prodcons.Observer = (*Monitor)(nil)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// New creates a monitor retaining at most maxLog events; maxLog <= 0
// selects a default.
func New(maxLog int) *Monitor {
	if maxLog <= 0 {
		maxLog = defaultMaxLog
	}
	return &Monitor{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // demonstration tool; no origin policy
			},
		},
		maxLog:  maxLog,
		clients: make(map[*client]struct{}),
	}
}

// Produced implements prodcons.Observer.
func (m *Monitor) Produced(producerID, item int) {
	m.record(OpPut, producerID, item)
}

// Consumed implements prodcons.Observer.
func (m *Monitor) Consumed(consumerID, item int) {
	m.record(OpTake, consumerID, item)
}

func (m *Monitor) record(op string, task, item int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	m.seq++
	ev := Event{Op: op, Task: task, Item: item, Seq: m.seq}
	m.events = append(m.events, ev)
	if len(m.events) > m.maxLog {
		m.events = m.events[len(m.events)-m.maxLog:]
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	for c := range m.clients {
		select {
		case c.send <- data:
		default:
			log.Printf("buffermonitor: dropping slow client")
			m.unregister(c)
		}
	}
}

// Events returns a copy of the retained log in observation order.
func (m *Monitor) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Clients returns the number of connected websocket clients.
func (m *Monitor) Clients() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

// ServeHTTP upgrades the request to a websocket and streams subsequent
// events to the client until it disconnects or falls behind.
func (m *Monitor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("buffermonitor: upgrade error: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendQueueSize)}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		conn.Close()
		return
	}
	m.clients[c] = struct{}{}
	m.mu.Unlock()

	go m.writer(c)
	m.reader(c)
}

// writer drains the client's send queue onto the socket. It exits when the
// queue is closed by unregister or when a write fails.
func (m *Monitor) writer(c *client) {
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			break
		}
	}
	c.conn.Close()
}

// reader consumes incoming frames until the peer goes away, then removes
// the client. The monitor has no inbound protocol; reading is only how a
// websocket learns its peer hung up.
func (m *Monitor) reader(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
	m.mu.Lock()
	m.unregister(c)
	m.mu.Unlock()
}

// unregister removes c and closes its send queue exactly once. Caller must
// hold m.mu.
func (m *Monitor) unregister(c *client) {
	if _, ok := m.clients[c]; !ok {
		return
	}
	delete(m.clients, c)
	close(c.send)
}

// Close disconnects every client and stops recording. The retained event
// log stays readable.
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for c := range m.clients {
		m.unregister(c)
	}
}
