package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/snamp-platform/snamp-go/pkg/model"
	"github.com/snamp-platform/snamp-go/pkg/subscription"
	"github.com/snamp-platform/snamp-go/pkg/types"
	"github.com/snamp-platform/snamp-go/pkg/wire"
)

// Notification stream subprotocols.
const (
	SubprotocolText = "text"
	SubprotocolCBOR = "cbor"
)

// TextFrame is one notification on the text subprotocol.
type TextFrame struct {
	Message   string          `json:"message"`
	Resource  string          `json:"resource"`
	Category  string          `json:"category"`
	Type      string          `json:"type,omitempty"`
	Sequence  uint64          `json:"sequence"`
	Timestamp int64           `json:"timestamp"`
	Severity  string          `json:"severity"`
	UserData  json.RawMessage `json:"userData,omitempty"`
}

// NewTextFrame builds the text frame of n. User data that cannot be
// rendered as JSON is left out.
func NewTextFrame(n model.Notification) TextFrame {
	f := TextFrame{
		Message:   n.Message,
		Resource:  n.Resource,
		Category:  n.Category,
		Type:      n.Type,
		Sequence:  n.Sequence,
		Timestamp: n.Timestamp.UnixMilli(),
		Severity:  n.Severity.String(),
	}
	if n.UserData != nil {
		if data, err := types.MarshalJSON(n.UserData, types.TypeOf(n.UserData)); err == nil {
			f.UserData = data
		}
	}
	return f
}

var upgrader = websocket.Upgrader{
	Subprotocols:    []string{SubprotocolText, SubprotocolCBOR},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

// wsClient is one notification stream. It is the subscription's listener.
type wsClient struct {
	conn      *websocket.Conn
	protocol  string
	writeWait time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeCode int
	closeText string
}

func newWSClient(conn *websocket.Conn, writeWait time.Duration) *wsClient {
	protocol := conn.Subprotocol()
	if protocol == "" {
		protocol = SubprotocolText
	}
	c := &wsClient{
		conn:      conn,
		protocol:  protocol,
		writeWait: writeWait,
		closeCode: websocket.CloseNoStatusReceived,
	}
	conn.SetCloseHandler(c.echoClose)
	return c
}

// echoClose answers the client's close frame with the same code and reason.
func (c *wsClient) echoClose(code int, text string) error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		c.closeCode, c.closeText = code, text
		c.writeMu.Unlock()
		msg := websocket.FormatCloseMessage(code, text)
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeWait))
	})
	return nil
}

// closeWith closes the stream from the server side.
func (c *wsClient) closeWith(code int, text string) {
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(code, text)
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeWait))
	})
}

func (c *wsClient) closeStatus() (int, string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.closeCode, c.closeText
}

func (c *wsClient) send(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
	return c.conn.WriteMessage(messageType, data)
}

// HandleNotification writes one frame per notification.
func (c *wsClient) HandleNotification(_ context.Context, n model.Notification) error {
	switch c.protocol {
	case SubprotocolCBOR:
		data, err := wire.EncodeNotification(n)
		if err != nil {
			return err
		}
		return c.send(websocket.BinaryMessage, data)
	default:
		data, err := json.Marshal(NewTextFrame(n))
		if err != nil {
			return err
		}
		return c.send(websocket.TextMessage, data)
	}
}

// readLoop consumes client frames until the connection closes. Client data
// frames are ignored.
func (c *wsClient) readLoop(pingInterval time.Duration, stop <-chan struct{}) error {
	if pingInterval > 0 {
		deadline := 2 * pingInterval
		_ = c.conn.SetReadDeadline(time.Now().Add(deadline))
		c.conn.SetPongHandler(func(string) error {
			return c.conn.SetReadDeadline(time.Now().Add(deadline))
		})
		go c.pingLoop(pingInterval, stop)
	} else {
		_ = c.conn.SetReadDeadline(time.Time{})
	}

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return err
		}
	}
}

func (c *wsClient) pingLoop(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeWait)); err != nil {
				return
			}
		}
	}
}

// handleNotifications handles GET /notifications/{namespace}
func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	ns := mux.Vars(r)[varNamespace]
	if _, err := s.resource(ns); err != nil {
		s.writeStatusError(w, r, err, map[string]any{"namespace": ns})
		return
	}
	categories := r.URL.Query()["category"]

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "namespace", ns, "error", err)
		return
	}
	defer conn.Close()

	client := newWSClient(conn, s.config.WriteWait)
	session, err := s.dispatcher.OpenSession(r.RemoteAddr)
	if err != nil {
		client.closeWith(websocket.CloseTryAgainLater, "notification dispatcher closed")
		return
	}
	defer session.Close()

	sub, err := session.Subscribe(ns, categories, client,
		subscription.WithName(fmt.Sprintf("websocket %s %s", client.protocol, r.RemoteAddr)),
		subscription.WithQueueSize(s.config.QueueSize))
	if err != nil {
		client.closeWith(websocket.CloseInternalServerErr, err.Error())
		return
	}

	s.logger.Info("notification stream opened",
		"namespace", ns,
		"protocol", client.protocol,
		"remote", r.RemoteAddr,
		"subscription", sub.ID())

	stop := make(chan struct{})
	err = client.readLoop(s.config.PingInterval, stop)
	close(stop)

	code, text := client.closeStatus()
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		s.logger.Debug("notification stream read failed", "namespace", ns, "error", err)
	}
	s.logger.Info("notification stream closed",
		"namespace", ns,
		"remote", r.RemoteAddr,
		"code", code,
		"reason", text,
		"delivered", sub.Delivered(),
		"dropped", sub.Dropped())
}
