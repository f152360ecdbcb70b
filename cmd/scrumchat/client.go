package main

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AbhigyanVE/ScrumMaster/internal/transport/ws"
)

// Client is a chat connection bound to one session.
type Client struct {
	conn      *websocket.Conn
	sessionID string

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Dial connects to the server.
func Dial(addr string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// SessionID returns the session bound by Hello.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Hello binds the connection to sessionID, or to a server-minted session
// when sessionID is empty, and waits for hello_ack.
func (c *Client) Hello(sessionID string) error {
	msg := ws.HelloMessage{BaseMessage: ws.BaseMessage{
		Type:      ws.TypeHello,
		Ts:        time.Now().UnixMilli(),
		SessionID: sessionID,
	}}
	if err := c.writeJSON(msg); err != nil {
		return fmt.Errorf("write hello: %w", err)
	}

	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read hello_ack: %w", err)
	}
	var base ws.BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return fmt.Errorf("unmarshal hello_ack: %w", err)
	}
	if base.Type == ws.TypeError {
		var errMsg ws.ErrorMessage
		json.Unmarshal(data, &errMsg)
		return fmt.Errorf("hello failed: %s - %s", errMsg.Code, errMsg.Message)
	}
	if base.Type != ws.TypeHelloAck {
		return fmt.Errorf("expected hello_ack, got: %s", base.Type)
	}

	c.sessionID = base.SessionID
	return nil
}

// Ask sends a query frame and returns its request id.
func (c *Client) Ask(query string) (string, error) {
	requestID := "req_" + uuid.New().String()[:8]
	msg := ws.QueryMessage{
		BaseMessage: ws.BaseMessage{
			Type:      ws.TypeQuery,
			Ts:        time.Now().UnixMilli(),
			SessionID: c.sessionID,
			RequestID: requestID,
		},
		Query: query,
	}
	return requestID, c.writeJSON(msg)
}

// Reset asks the server to clear the session context.
func (c *Client) Reset() error {
	return c.writeJSON(ws.BaseMessage{
		Type:      ws.TypeReset,
		Ts:        time.Now().UnixMilli(),
		SessionID: c.sessionID,
		RequestID: "req_" + uuid.New().String()[:8],
	})
}

// Frame is one decoded server message. Exactly one of Response, Err is set
// for response and error frames.
type Frame struct {
	Type     string
	Response *ws.ResponseMessage
	Err      *ws.ErrorMessage
}

// Next blocks for the next server message.
func (c *Client) Next() (*Frame, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	var base ws.BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("unmarshal frame: %w", err)
	}

	f := &Frame{Type: base.Type}
	switch base.Type {
	case ws.TypeResponse:
		f.Response = &ws.ResponseMessage{}
		if err := json.Unmarshal(data, f.Response); err != nil {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}
	case ws.TypeError:
		f.Err = &ws.ErrorMessage{}
		if err := json.Unmarshal(data, f.Err); err != nil {
			return nil, fmt.Errorf("unmarshal error: %w", err)
		}
	}
	return f, nil
}

func (c *Client) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}
