package notify

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/shajith240/SHARPFLOW-sub002/errors"
)

// State is a connection's lifecycle phase. Transitions are validated so a
// use-after-close shows up as an error instead of a silent write to a dead
// socket.
type State int32

const (
	// StateConnecting covers the window between upgrade and registration
	StateConnecting State = iota
	// StateOpen means the connection is registered and receiving envelopes
	StateOpen
	// StateClosing means a close has started but the transport is still up
	StateClosing
	// StateClosed is terminal
	StateClosed
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ValidTransition reports whether a connection may move from one state to
// another. Pure function so the lifecycle is testable without a transport.
func ValidTransition(from, to State) bool {
	switch from {
	case StateConnecting:
		return to == StateOpen || to == StateClosed
	case StateOpen:
		return to == StateClosing || to == StateClosed
	case StateClosing:
		return to == StateClosed
	default:
		return false
	}
}

// Liveness is the heartbeat flag the monitor cycles each tick.
type Liveness int32

const (
	// LivenessAlive means a pong arrived since the last ping
	LivenessAlive Liveness = iota
	// LivenessPending means a ping is outstanding; still pending at the
	// next tick means the connection missed a full interval
	LivenessPending
	// LivenessDead marks a connection selected for eviction
	LivenessDead
)

// String returns the string representation of Liveness
func (l Liveness) String() string {
	switch l {
	case LivenessAlive:
		return "alive"
	case LivenessPending:
		return "pending"
	case LivenessDead:
		return "dead"
	default:
		return "unknown"
	}
}

const (
	writeTimeout = 10 * time.Second

	// Inbound control frames are throttled per connection; a client
	// flooding ping frames cannot monopolize the router.
	defaultInboundRate  = rate.Limit(20)
	defaultInboundBurst = 40
)

// Conn is one live duplex session bound to an authenticated identity.
type Conn struct {
	// ID is unique per connection; one identity may own several
	ID       string
	Identity string
	Plan     string

	ws          *websocket.Conn
	state       atomic.Int32
	liveness    atomic.Int32
	connectedAt time.Time

	// Serializes writes: gorilla/websocket does not allow concurrent
	// writers, and the mutex is what preserves per-connection FIFO order.
	writeMu sync.Mutex

	inbound   *rate.Limiter
	closeOnce sync.Once
}

// newConn wraps an upgraded socket for the given identity. The connection
// starts in StateConnecting; the hub moves it to StateOpen on registration.
func newConn(identity, plan string, ws *websocket.Conn) *Conn {
	c := &Conn{
		ID:          uuid.NewString(),
		Identity:    identity,
		Plan:        plan,
		ws:          ws,
		connectedAt: time.Now(),
		inbound:     rate.NewLimiter(defaultInboundRate, defaultInboundBurst),
	}
	c.state.Store(int32(StateConnecting))
	c.liveness.Store(int32(LivenessAlive))
	return c
}

// State returns the connection's current lifecycle state
func (c *Conn) State() State {
	return State(c.state.Load())
}

// transition moves the connection to a new state, validating the edge
func (c *Conn) transition(to State) error {
	for {
		cur := c.state.Load()
		if !ValidTransition(State(cur), to) {
			return errors.WrapValidation(errors.ErrConnectionClosed,
				"Conn", "transition", "move from "+State(cur).String()+" to "+to.String())
		}
		if c.state.CompareAndSwap(cur, int32(to)) {
			return nil
		}
	}
}

// Liveness returns the current heartbeat flag
func (c *Conn) Liveness() Liveness {
	return Liveness(c.liveness.Load())
}

func (c *Conn) markPending() { c.liveness.Store(int32(LivenessPending)) }
func (c *Conn) markAlive()   { c.liveness.Store(int32(LivenessAlive)) }
func (c *Conn) markDead()    { c.liveness.Store(int32(LivenessDead)) }

// allowInbound consumes one token from the inbound frame throttle
func (c *Conn) allowInbound() bool {
	return c.inbound.Allow()
}

// write sends one pre-serialized envelope. Writes are serialized and hold a
// deadline so a stalled client cannot wedge a broadcast.
func (c *Conn) write(data []byte) error {
	if c.State() != StateOpen {
		return errors.ErrConnectionClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// ping sends a WebSocket ping control frame
func (c *Conn) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// close tears down the transport exactly once. A non-zero code is sent to
// the client as the close frame before the socket drops.
func (c *Conn) close(code int, reason string) {
	c.closeOnce.Do(func() {
		if c.State() == StateOpen {
			_ = c.transition(StateClosing)
		}

		if code != 0 {
			deadline := time.Now().Add(time.Second)
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(code, reason), deadline)
		}
		_ = c.ws.Close()

		c.state.Store(int32(StateClosed))
	})
}
