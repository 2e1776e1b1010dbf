package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"mon-resto/internal/gateway/hub"
	"mon-resto/internal/metrics"
	"mon-resto/internal/mylogger"
	"mon-resto/internal/xpkg/config"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	cfg      *config.Config
	hub      *hub.Hub
	srv      *http.Server
	upgrader websocket.Upgrader
	ctx      context.Context
	mylog    mylogger.Logger
}

func NewServer(ctx context.Context, cfg *config.Config, h *hub.Hub, mylog mylogger.Logger) *Server {
	return &Server{
		ctx:   ctx,
		cfg:   cfg,
		hub:   h,
		mylog: mylog,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Observers are browsers and boards on the restaurant LAN.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Run() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s.srv = &http.Server{
		Addr:        fmt.Sprintf(":%d", s.cfg.GatewayPort),
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	s.mylog.Action("gateway_started").Info("Realtime gateway listening", "port", s.cfg.GatewayPort)

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		} else {
			errCh <- nil
		}
	}()

	select {
	case <-s.ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}

// handleWS upgrades one observer connection and serves it until the
// observer leaves or stops responding.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.mylog.Action("ws_upgrade_failed").Error("Failed to upgrade connection", err)
		return
	}

	client := &hub.Client{
		ID:   uuid.NewString(),
		Send: make(chan []byte, 16),
		// The initial filter may arrive in the query string; a subscribe
		// message can replace it later.
		Subscription: hub.Subscription{
			OrderID: r.URL.Query().Get("order_id"),
			Role:    r.URL.Query().Get("role"),
		},
	}
	s.hub.Register(client)
	metrics.GatewayClients.Inc()

	mylog := s.mylog.With("client_id", client.ID)
	mylog.Action("observer_connected").Info("Observer connected", "order_id", client.Subscription.OrderID, "role", client.Subscription.Role)

	go s.writePump(conn, client, mylog)
	s.readPump(conn, client, mylog)

	s.hub.Unregister(client)
	metrics.GatewayClients.Dec()
	conn.Close()
	mylog.Action("observer_disconnected").Info("Observer disconnected")
}

// writePump drains the client's send queue and emits keepalive frames on
// the ping interval so observers can detect a dead channel.
func (s *Server) writePump(conn *websocket.Conn, client *hub.Client, mylog mylogger.Logger) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.Send:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, KeepaliveFrame()); err != nil {
				return
			}
		case <-s.ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// readPump consumes subscribe/unsubscribe messages. Anything unparseable
// is ignored; the read deadline drops observers that went silent for two
// full ping intervals.
func (s *Server) readPump(conn *websocket.Conn, client *hub.Client, mylog mylogger.Logger) {
	deadline := 2 * s.cfg.PingInterval
	_ = conn.SetReadDeadline(time.Now().Add(deadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(deadline))

		msg, ok := hub.ParseSubscribe(data)
		if !ok {
			mylog.Debug("Ignoring unparseable client message")
			continue
		}
		if msg.Action == "unsubscribe" {
			s.hub.UpdateSubscription(client, hub.Subscription{Muted: true})
			continue
		}
		s.hub.UpdateSubscription(client, hub.Subscription{OrderID: msg.OrderID, Role: msg.Role})
		mylog.Debug("Subscription updated", "order_id", msg.OrderID, "role", msg.Role)
	}
}
