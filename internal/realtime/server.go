package realtime

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/trenches/ip-venue/internal/engine"
	"github.com/trenches/ip-venue/internal/logger"
)

// clientRequest is the envelope clients send over the socket
type clientRequest struct {
	Event   string `json:"event"`
	AssetID string `json:"ipId"`
	Limit   int    `json:"limit"`
}

// errorPayload is the body of trade-error/chart-error events, scoped to the
// requesting connection
type errorPayload struct {
	AssetID string `json:"ipId"`
	Message string `json:"message"`
}

// pricePayload is the body of price events
type pricePayload struct {
	Price   float64 `json:"price"`
	Supply  float64 `json:"supply"`
	Reserve float64 `json:"reserve"`
}

// Server terminates UI websocket connections and serves the room protocol:
// join-room/leave-room plus request/response get-trades and get-candles.
type Server struct {
	hub      *Hub
	engine   *engine.Engine
	upgrader websocket.Upgrader
}

// NewServer creates a realtime server over the given hub and engine
func NewServer(hub *Hub, eng *engine.Engine) *Server {
	return &Server{
		hub:    hub,
		engine: eng,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Hub exposes the hub for broadcasters
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the http handler that upgrades connections and runs the
// session protocol until the client disconnects
func (s *Server) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("Websocket upgrade failed", zap.Error(err))
			return
		}

		session := newSession(conn)
		s.hub.Register(session)
		logger.Debug("Realtime session connected", zap.String("session_id", session.ID()))

		go session.writePump()
		// The request context is canceled the moment this handler returns,
		// while the session lives on. Dispatch on its own context instead.
		go s.readPump(context.Background(), session)
	}
}

// readPump reads client requests until the connection drops. Request
// failures emit connection-scoped error events; they never tear down the
// connection.
func (s *Server) readPump(ctx context.Context, session *wsSession) {
	defer func() {
		s.hub.Unregister(session)
		session.close()
		_ = session.conn.Close()
		logger.Debug("Realtime session disconnected", zap.String("session_id", session.ID()))
	}()

	session.conn.SetReadLimit(1 << 16)
	_ = session.conn.SetReadDeadline(time.Now().Add(pongWait))
	session.conn.SetPongHandler(func(string) error {
		return session.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var req clientRequest
		if err := session.conn.ReadJSON(&req); err != nil {
			return
		}
		s.dispatch(ctx, session, req)
	}
}

func (s *Server) dispatch(ctx context.Context, session *wsSession, req clientRequest) {
	if req.AssetID == "" {
		return
	}

	switch req.Event {
	case "join-room":
		s.hub.Join(session, req.AssetID)
		// Reply with the current snapshot and history so a late joiner is
		// consistent without waiting for the next trade
		snap, err := s.engine.EnsurePrice(ctx, req.AssetID)
		if err != nil {
			logger.ErrorCtx(ctx, err, zap.String("message", "Failed to fetch price on join"), zap.String("asset_id", req.AssetID))
			return
		}
		session.Send(Message{Event: "price", Data: pricePayload{
			Price:   snap.CurrentPrice,
			Supply:  snap.Supply,
			Reserve: snap.Reserve,
		}})
		if fills, err := s.engine.RecentTrades(ctx, req.AssetID, req.Limit); err == nil {
			session.Send(Message{Event: "trades", Data: fills})
		}
		if candles, err := s.engine.Candlesticks(ctx, req.AssetID, req.Limit); err == nil {
			session.Send(Message{Event: "chart-data", Data: candles})
		}

	case "leave-room":
		s.hub.Leave(session, req.AssetID)

	case "get-trades":
		fills, err := s.engine.RecentTrades(ctx, req.AssetID, req.Limit)
		if err != nil {
			logger.ErrorCtx(ctx, err, zap.String("message", "Failed to fetch trades"), zap.String("asset_id", req.AssetID))
			session.Send(Message{Event: "trade-error", Data: errorPayload{AssetID: req.AssetID, Message: "failed to load trades"}})
			return
		}
		session.Send(Message{Event: "trades", Data: fills})

	case "get-candles":
		candles, err := s.engine.Candlesticks(ctx, req.AssetID, req.Limit)
		if err != nil {
			logger.ErrorCtx(ctx, err, zap.String("message", "Failed to fetch chart data"), zap.String("asset_id", req.AssetID))
			session.Send(Message{Event: "chart-error", Data: errorPayload{AssetID: req.AssetID, Message: "failed to load chart data"}})
			return
		}
		session.Send(Message{Event: "chart-data", Data: candles})
	}
}
