package hub

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"burnwatch/internal/model"
)

const (
	// eventName is the single message type crossing the push boundary.
	eventName = "new_burn_event"

	sendBuffer   = 64
	writeTimeout = 10 * time.Second
)

// pushMessage is the wire envelope for one record.
type pushMessage struct {
	Event string                   `json:"event"`
	Data  model.EnrichedBurnRecord `json:"data"`
}

// WSSubscriber adapts one websocket connection to the Subscriber contract.
// Records are queued into a bounded channel drained by a write pump; when
// the queue is full the record is dropped so one slow viewer cannot stall
// the hub.
type WSSubscriber struct {
	conn   *websocket.Conn
	send   chan model.EnrichedBurnRecord
	done   chan struct{}
	once   sync.Once
	logger *zap.Logger
}

// NewWSSubscriber wraps conn and starts its write pump.
func NewWSSubscriber(conn *websocket.Conn, logger *zap.Logger) *WSSubscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &WSSubscriber{
		conn:   conn,
		send:   make(chan model.EnrichedBurnRecord, sendBuffer),
		done:   make(chan struct{}),
		logger: logger,
	}
	go s.writePump()
	return s
}

// Send queues rec for delivery. A full queue drops the record; a closed
// connection returns an error so the hub detaches this subscriber.
func (s *WSSubscriber) Send(rec model.EnrichedBurnRecord) error {
	select {
	case <-s.done:
		return fmt.Errorf("subscriber closed")
	default:
	}

	select {
	case s.send <- rec:
	default:
		s.logger.Debug("subscriber queue full, dropping record", zap.String("tx", rec.TxHash))
	}
	return nil
}

// Close shuts the connection down. Safe to call more than once.
func (s *WSSubscriber) Close() {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

func (s *WSSubscriber) writePump() {
	defer s.Close()
	for {
		select {
		case <-s.done:
			return
		case rec := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteJSON(pushMessage{Event: eventName, Data: rec}); err != nil {
				s.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		}
	}
}

// Handler upgrades HTTP requests into hub subscriptions.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewHandler(h *Hub, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Viewers connect from anywhere.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ServeHTTP upgrades the connection, replays history, registers the
// subscriber, then blocks reading until the peer goes away.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sub := NewWSSubscriber(conn, h.logger)
	h.hub.Attach(r.Context(), sub)

	defer func() {
		h.hub.Detach(sub)
		sub.Close()
	}()

	// The protocol is push-only; reads exist to notice disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
