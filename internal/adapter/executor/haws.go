package executor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/smartqasa/pico-connector/internal/config"
	"github.com/smartqasa/pico-connector/internal/core/domain"
	"github.com/smartqasa/pico-connector/internal/util/actorutil"

	"github.com/gorilla/websocket"
	"github.com/reugn/go-quartz/logger"
	"go.uber.org/zap"
)

const wsWriteTimeout = 2 * time.Second

// HAWebsocketExecutor delivers action calls over the Home Assistant
// WebSocket API instead of MQTT. Calls are serialized over a single
// authenticated connection, reconnecting lazily when a write fails.
type HAWebsocketExecutor struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	url    string
	token  string
	nextID uint64
	logger *zap.Logger
}

type haAuthMessage struct {
	Type        string `json:"type"`
	AccessToken string `json:"access_token,omitempty"`
}

type haCallServiceMessage struct {
	ID          uint64         `json:"id"`
	Type        string         `json:"type"`
	Domain      string         `json:"domain"`
	Service     string         `json:"service"`
	ServiceData map[string]any `json:"service_data,omitempty"`
	Target      haTarget       `json:"target"`
}

type haTarget struct {
	EntityID []string `json:"entity_id"`
}

func NewHAWebsocketExecutor(cfg config.HomeAssistantConfig, logger *zap.Logger) *HAWebsocketExecutor {
	return &HAWebsocketExecutor{
		url:    cfg.URL,
		token:  cfg.Token,
		logger: logger.With(zap.String("executor", "websocket")),
	}
}

// Call hands the service call to a background task so the caller never
// blocks on the socket. Delivery errors are logged, not returned.
func (e *HAWebsocketExecutor) Call(call domain.ActionCall) error {
	actorutil.NewBackgroundTaskErr(func() error {
		return e.send(call)
	}).WithTimeout(5 * time.Second).OnError(func(err error) {
		e.logger.Error("ha ws: call_service failed",
			zap.String("action", call.Action()), zap.Error(err))
	}).RunDetached()
	return nil
}

func (e *HAWebsocketExecutor) send(call domain.ActionCall) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.conn == nil {
		if err := e.connectLocked(); err != nil {
			return err
		}
	}
	e.nextID++
	msg := haCallServiceMessage{
		ID:          e.nextID,
		Type:        "call_service",
		Domain:      string(call.Domain),
		Service:     call.Service,
		ServiceData: call.Data,
		Target: haTarget{
			EntityID: call.Entities,
		},
	}
	e.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := e.conn.WriteJSON(msg); err != nil {
		// drop the connection, the next call reconnects
		e.closeLocked()
		return err
	}
	return nil
}

// connectLocked dials and runs the auth handshake. Caller holds the lock.
func (e *HAWebsocketExecutor) connectLocked() error {
	d := websocket.Dialer{
		HandshakeTimeout: 2 * time.Second,
	}
	conn, _, err := d.Dial(e.url, nil)
	if err != nil {
		return err
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var hello haAuthMessage
	if err := conn.ReadJSON(&hello); err != nil {
		conn.Close()
		return err
	}
	if hello.Type != "auth_required" {
		conn.Close()
		return fmt.Errorf("ha ws: unexpected handshake message %q", hello.Type)
	}
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(haAuthMessage{Type: "auth", AccessToken: e.token}); err != nil {
		conn.Close()
		return err
	}
	var authResult haAuthMessage
	if err := conn.ReadJSON(&authResult); err != nil {
		conn.Close()
		return err
	}
	if authResult.Type != "auth_ok" {
		conn.Close()
		return errors.New("ha ws: authentication rejected")
	}
	conn.SetReadDeadline(time.Time{})

	e.conn = conn
	e.logger.Info("ha ws: connected", zap.String("url", e.url))

	// drain command results so the read buffer never fills
	go e.readLoop(conn)
	return nil
}

func (e *HAWebsocketExecutor) readLoop(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !errors.Is(err, websocket.ErrCloseSent) {
				logger.Error(err)
			}
			e.mu.Lock()
			if e.conn == conn {
				e.closeLocked()
			}
			e.mu.Unlock()
			return
		}
	}
}

func (e *HAWebsocketExecutor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closeLocked()
}

func (e *HAWebsocketExecutor) closeLocked() {
	if e.conn != nil {
		e.conn.Close()
		e.conn = nil
	}
}
