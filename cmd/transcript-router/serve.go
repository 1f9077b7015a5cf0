package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// objectCreatedNotification is the wire shape of a single object-created
// event, as resolved by open question 5 in SPEC_FULL.md: the webhook
// delivers a batch of notification records, each naming the object key
// that triggered it, and every record is processed independently so one
// bad record in a batch does not block its siblings.
type objectCreatedNotification struct {
	Records []struct {
		Key string `json:"key"`
	} `json:"records"`
}

func buildServeCmd() *cobra.Command {
	var (
		configPath string
		addr       string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the transcript-router HTTP service",
		Long: `Start the transcript-router HTTP service.

The server will:
1. Load configuration from the specified file
2. Wire the blob store, secret adapter, classifier, and agent processors
3. Serve /metrics (Prometheus), /healthz, and /events (webhook intake)

Graceful shutdown is handled on SIGINT/SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, addr)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "transcript-router.yaml", "Path to YAML configuration file")
	cmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")

	return cmd
}

func runServe(ctx context.Context, configPath, addr string) error {
	application, err := buildApp(ctx, configPath)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", application.handleHealthz)
	mux.HandleFunc("/events", application.handleEvents)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			application.logger.Error("http server error", "error", err)
		}
	}()
	application.logger.Info("serving", "addr", addr)

	<-ctx.Done()
	application.logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		application.logger.Warn("http server shutdown error", "error", err)
	}
	return nil
}

func (a *app) handleHealthz(w http.ResponseWriter, r *http.Request) {
	result := a.health.Check(r.Context())
	w.Header().Set("Content-Type", "application/json")
	if !result.OK {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(result); err != nil {
		a.logger.Debug("healthz write failed", "error", err)
	}
}

// handleEvents accepts a batch of object-created notifications and runs
// HandleEvent for each key independently, per spec §9 open question 5.
// A failure on one record is logged and does not abort the rest of the
// batch; the handler still reports 207 if any record failed so the
// caller's retry/redelivery logic can react.
func (a *app) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	var notification objectCreatedNotification
	if err := json.Unmarshal(body, &notification); err != nil {
		http.Error(w, "malformed notification", http.StatusBadRequest)
		return
	}

	anyFailed := false
	for _, record := range notification.Records {
		if record.Key == "" {
			continue
		}
		if err := a.orchestrator.HandleEvent(r.Context(), record.Key); err != nil {
			anyFailed = true
			a.logger.Error("event handling failed", "key", record.Key, "error", err)
		}
	}

	if anyFailed {
		w.WriteHeader(http.StatusMultiStatus)
		return
	}
	w.WriteHeader(http.StatusOK)
}
