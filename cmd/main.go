package main

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/projection"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"chat-relay/ws"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so every defer (database close, worker
// shutdown) executes before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := newLogger(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Runtime services
	rooms := runtime.NewRoomDirectory()
	registry := runtime.NewRegistry(log, rooms)
	broadcaster := runtime.NewBroadcaster(log, registry, rooms, config.SinkTimeout)
	broadcaster.Add(projection.NewTimeline())
	typing := runtime.NewTypingCoordinator(log, broadcaster, config.TypingTTL)
	presence := runtime.NewPresenceCoordinator(log, registry, broadcaster)

	sup := workers.NewSupervisor(log, config.RestartInterval)
	orchestrator := runtime.NewOrchestrator(log, sup, registry, rooms, broadcaster, typing, presence)

	// 4. Message pipeline
	replacement, err := internal.CharacterRune(config.CensorReplacement)
	if err != nil {
		return err
	}
	moderator, err := moderation.NewDefaultModerator(replacement)
	if err != nil {
		return fmt.Errorf("moderation setup failed: %w", err)
	}
	store := repositories.NewMessageRepository(db, log)
	fanout := services.NewFanoutService(log, store, registry, broadcaster, moderator, config.NotifySenderRead)
	history := services.NewHistoryService(log, store, config.DefaultPageSize, config.MaxPageSize)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Background workers
	orchestrator.Start(ctx, workers.NewTypingJanitor(typing, config.TypingTTL, log))

	// 7. HTTP server with the websocket endpoint
	verifier := auth.NewVerifier(config.JWTSecret, "chat-relay")
	mux := http.NewServeMux()
	mux.Handle("/ws", ws.NewServer(log, verifier, orchestrator, fanout, history, config.ConnectionBufferSize))
	mux.HandleFunc("/token", devTokenHandler(verifier, config.AuthTokenDuration))

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: mux}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 9. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	orchestrator.Stop()
	log.Info("Program stopped cleanly")

	return nil
}

// devTokenHandler mints an identity token for local development and
// the tester client. Production deployments front this with a real
// identity service and never expose the endpoint.
func devTokenHandler(verifier *auth.Verifier, ttl time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		if name == "" {
			http.Error(w, "name required", http.StatusBadRequest)
			return
		}
		principalID := r.URL.Query().Get("principal")
		if principalID == "" {
			principalID = strings.ToLower(name) + "-" + uuid.NewString()[:8]
		}
		token, err := verifier.Mint(domain.Identity{PrincipalID: principalID, DisplayName: name}, ttl)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"token":       token,
			"principalId": principalID,
		})
	}
}
