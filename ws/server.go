// Package ws is the websocket transport: it upgrades connections,
// verifies identity, and dispatches inbound named events to the core.
// Events from one connection are handled in arrival order by its read
// loop; connections run concurrently.
package ws

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/runtime"
	"chat-relay/services"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type Server struct {
	log          *slog.Logger
	verifier     contract.IdentityVerifier
	orchestrator *runtime.Orchestrator
	fanout       *services.FanoutService
	history      *services.HistoryService
	bufferSize   int
	upgrader     websocket.Upgrader
	validate     *validator.Validate
	handlers     map[string]handlerFunc
}

func NewServer(
	log *slog.Logger,
	verifier contract.IdentityVerifier,
	orchestrator *runtime.Orchestrator,
	fanout *services.FanoutService,
	history *services.HistoryService,
	bufferSize int,
) *Server {
	s := &Server{
		log:          log,
		verifier:     verifier,
		orchestrator: orchestrator,
		fanout:       fanout,
		history:      history,
		bufferSize:   bufferSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		validate: validator.New(),
	}
	s.handlers = s.dispatchTable()
	return s
}

// ServeHTTP upgrades the request, verifies the identity token, and
// runs the connection until the peer disconnects. Cleanup always runs:
// disconnect is tolerated as a no-op when it races other teardown.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := s.verifier.Verify(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		s.log.Warn("rejecting connection", "error", err)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	socket, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("upgrade failed", "error", err)
		return
	}

	connID := domain.ConnectionID(uuid.NewString())
	conn := newConn(connID, socket, s.bufferSize, s.log)
	conn.configure()

	ctx := r.Context()
	if _, err := s.orchestrator.Connect(ctx, connID, identity, conn); err != nil {
		s.log.Error("registration rejected", "connection_id", connID, "error", err)
		conn.close()
		return
	}

	go conn.writePump()
	defer func() {
		s.orchestrator.Disconnect(ctx, connID)
		conn.close()
	}()

	for {
		env, ok := conn.readFrame()
		if !ok {
			return
		}
		if env.Event == "" {
			continue
		}
		handler, ok := s.handlers[env.Event]
		if !ok {
			s.log.Debug("unknown event", "connection_id", connID, "event", env.Event)
			conn.write(ackError, MessageAck{Status: statusError, Error: "unknown event: " + env.Event})
			continue
		}
		handler(ctx, conn, env)
	}
}
