// Package stream maintains a live WebSocket subscription to a LYS
// Labs-shaped provider, feeding matched records to a caller-owned channel
// with an exponential-backoff reconnect state machine, using the same
// connect/readLoop/reconnect shape as this module's other long-lived
// socket clients, generalized from an authenticated per-market subscription
// down to a single bare subscribe frame.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/cortexlabs/cortexd/internal/normaliser"
	"github.com/cortexlabs/cortexd/pkg/logger"
	"github.com/gorilla/websocket"
)

const (
	maxReconnectAttempts = 10
	baseBackoff          = time.Second
	maxBackoffExponent   = 6
)

// envelope is the typed wrapper every inbound text frame is tried against.
// Unrecognized types are ignored rather than treated as errors.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Client maintains one wallet's live subscription.
type Client struct {
	wsURL  string
	apiKey string
}

func NewClient(wsURL, apiKey string) *Client {
	return &Client{wsURL: wsURL, apiKey: apiKey}
}

// Stream connects and reconnects until ctx is cancelled or the reconnect
// budget (maxReconnectAttempts) is exhausted, pushing every record that
// involves wallet to out. Send blocks the reader when out is full —
// back-pressure, not drop.
func (c *Client) Stream(ctx context.Context, wallet string, out chan<- normaliser.RawRecord) error {
	log := logger.WithField("component", "stream").WithField("wallet", wallet)
	attempt := 0

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn, err := c.connect(ctx)
		if err != nil {
			attempt++
			log.Warnf("stream: connect failed (attempt %d): %v", attempt, err)
			if attempt >= maxReconnectAttempts {
				return fmt.Errorf("stream: reconnect budget exhausted after %d attempts", attempt)
			}
			if err := sleepBackoff(ctx, attempt); err != nil {
				return err
			}
			continue
		}

		// A successful connect resets the attempt counter.
		attempt = 0
		log.Debugf("stream: connected")

		err = c.readLoop(ctx, conn, wallet, out)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			// readLoop only returns nil when the context ended; any other
			// exit is a disconnect/error that must be reconnected.
			return nil
		}

		attempt++
		log.Warnf("stream: disconnected (attempt %d): %v", attempt, err)
		if attempt >= maxReconnectAttempts {
			return fmt.Errorf("stream: reconnect budget exhausted after %d attempts", attempt)
		}
		if err := sleepBackoff(ctx, attempt); err != nil {
			return err
		}
	}
}

func sleepBackoff(ctx context.Context, attempt int) error {
	exp := attempt
	if exp > maxBackoffExponent {
		exp = maxBackoffExponent
	}
	delay := baseBackoff * time.Duration(1<<uint(exp))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	u := c.wsURL
	if c.apiKey != "" {
		sep := "?"
		if u, err := url.Parse(c.wsURL); err == nil && u.RawQuery != "" {
			sep = "&"
		}
		u = c.wsURL + sep + "apiKey=" + c.apiKey
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, err
	}

	conn.SetPongHandler(func(string) error { return nil })

	if err := conn.WriteJSON(map[string]string{"action": "subscribe"}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("stream: subscribe: %w", err)
	}
	return conn, nil
}

// readLoop drains inbound frames until the connection errors or ctx ends.
// Ping frames are answered with a pong by the PingHandler installed below.
// A background goroutine closes the connection when ctx ends, so
// ReadMessage's blocking read remains the only suspension point.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, wallet string, out chan<- normaliser.RawRecord) error {
	conn.SetPingHandler(func(data string) error {
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		records := decodeFrame(data)
		for _, rec := range records {
			if !rec.Involves(wallet) {
				continue
			}
			select {
			case out <- rec:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// decodeFrame tries to unwrap an envelope and expand "transaction"/
// "transactions" payloads into zero or more records. Any frame
// that doesn't parse as the expected envelope shape is ignored rather than
// treated as an error — provider payloads are schemaless-in-practice.
func decodeFrame(data []byte) []normaliser.RawRecord {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil
	}

	switch env.Type {
	case "transaction":
		var rec normaliser.RawRecord
		if err := json.Unmarshal(env.Data, &rec); err != nil {
			return nil
		}
		return []normaliser.RawRecord{rec}
	case "transactions":
		var recs []normaliser.RawRecord
		if err := json.Unmarshal(env.Data, &recs); err != nil {
			return nil
		}
		return recs
	default:
		return nil
	}
}
