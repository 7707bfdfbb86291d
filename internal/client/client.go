// Package client streams camera frames to a gateway and reports what it
// recognizes. It implements the sender side of the acknowledgement window:
// at most Window frames are unacknowledged at any time and frames captured
// while the window is full are skipped.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ayusman/visionctl/internal/gateway"
)

// Defaults for Options.
const (
	DefaultWindow     = 2
	DefaultAckTimeout = 5 * time.Second
)

// ErrClosed is returned when sending on a closed client.
var ErrClosed = errors.New("client closed")

// Message is one decoded server message. Exactly one payload is set, except
// for pong and subscribed which carry none.
type Message struct {
	Type    string
	Status  *gateway.Status
	Gesture *gateway.GestureDetected
	Combo   *gateway.ComboDetected
	Ack     *gateway.FrameAck
	Error   *gateway.Error
}

// Options configures a Client.
type Options struct {
	// Window is the number of frames that may await acknowledgement.
	Window int
	// AckTimeout frees a window slot whose acknowledgement never came.
	AckTimeout time.Duration
	// OnMessage is called on the read goroutine for every server message.
	OnMessage func(Message)
	Logger    zerolog.Logger
	Now       func() time.Time
}

// Client is a gateway connection.
type Client struct {
	conn   *websocket.Conn
	opts   Options
	logger zerolog.Logger

	writeMu sync.Mutex
	seq     atomic.Int64

	mu      sync.Mutex
	pending map[int64]time.Time

	done   chan struct{}
	err    error
	closed atomic.Bool
}

// Dial connects to the gateway at url.
func Dial(ctx context.Context, url string, opts Options) (*Client, error) {
	if opts.Window < 1 {
		opts.Window = DefaultWindow
	}
	if opts.AckTimeout <= 0 {
		opts.AckTimeout = DefaultAckTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", url, err)
	}

	c := &Client{
		conn:    conn,
		opts:    opts,
		logger:  opts.Logger.With().Str("component", "client").Logger(),
		pending: make(map[int64]time.Time),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// SendFrame sends an encoded frame. It reports false without sending when
// the window is full.
func (c *Client) SendFrame(frame string) (int64, bool, error) {
	if c.closed.Load() {
		return 0, false, ErrClosed
	}

	now := c.opts.Now()
	c.mu.Lock()
	c.expire(now)
	if len(c.pending) >= c.opts.Window {
		c.mu.Unlock()
		return 0, false, nil
	}
	seq := c.seq.Add(1)
	c.pending[seq] = now
	c.mu.Unlock()

	err := c.write(gateway.Inbound{
		Type:      gateway.TypeVideoFrame,
		Frame:     frame,
		Sequence:  seq,
		Timestamp: millis(now),
	})
	if err != nil {
		c.mu.Lock()
		delete(c.pending, seq)
		c.mu.Unlock()
		return 0, false, err
	}
	return seq, true, nil
}

// Ping asks the server to echo the current time.
func (c *Client) Ping() error {
	return c.write(gateway.Inbound{Type: gateway.TypePing, Timestamp: millis(c.opts.Now())})
}

// Subscribe sends a subscribe request.
func (c *Client) Subscribe() error {
	return c.write(gateway.Inbound{Type: gateway.TypeSubscribe})
}

// InFlight is the number of frames awaiting acknowledgement.
func (c *Client) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err is the reason the connection ended. Valid after Done is closed.
func (c *Client) Err() error {
	<-c.done
	return c.err
}

// Close sends a close frame and waits for the read loop to stop.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		<-c.done
		return nil
	}

	c.writeMu.Lock()
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.writeMu.Unlock()

	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
	}
	return c.conn.Close()
}

func (c *Client) write(msg gateway.Inbound) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("send %s: %w", msg.Type, err)
	}
	return nil
}

// expire drops pending frames older than AckTimeout. Caller holds mu.
func (c *Client) expire(now time.Time) {
	for seq, sent := range c.pending {
		if now.Sub(sent) > c.opts.AckTimeout {
			c.logger.Debug().Int64("sequence", seq).Msg("acknowledgement timed out")
			delete(c.pending, seq)
		}
	}
}

func (c *Client) readLoop() {
	defer close(c.done)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !c.closed.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.err = err
			}
			return
		}

		msg, err := decode(data)
		if err != nil {
			c.logger.Debug().Err(err).Msg("ignoring server message")
			continue
		}
		if msg.Ack != nil {
			c.mu.Lock()
			delete(c.pending, msg.Ack.Sequence)
			c.mu.Unlock()
		}
		if c.opts.OnMessage != nil {
			c.opts.OnMessage(msg)
		}
	}
}

func decode(data []byte) (Message, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Message{}, err
	}

	msg := Message{Type: head.Type}
	var target any
	switch head.Type {
	case gateway.TypeStatus:
		msg.Status = &gateway.Status{}
		target = msg.Status
	case gateway.TypeGestureDetected:
		msg.Gesture = &gateway.GestureDetected{}
		target = msg.Gesture
	case gateway.TypeComboDetected:
		msg.Combo = &gateway.ComboDetected{}
		target = msg.Combo
	case gateway.TypeFrameAck:
		msg.Ack = &gateway.FrameAck{}
		target = msg.Ack
	case gateway.TypeError:
		msg.Error = &gateway.Error{}
		target = msg.Error
	case gateway.TypePong, gateway.TypeSubscribed:
		return msg, nil
	default:
		return Message{}, fmt.Errorf("unknown message type %q", head.Type)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return Message{}, fmt.Errorf("decode %s: %w", head.Type, err)
	}
	return msg, nil
}

func millis(t time.Time) json.RawMessage {
	return json.RawMessage(strconv.FormatInt(t.UnixMilli(), 10))
}
