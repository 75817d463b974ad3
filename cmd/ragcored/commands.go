package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/baliwise/ragcore/pkg/models"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the query API",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEngine(configPath)
			if err != nil {
				return err
			}
			defer e.close()

			mux := http.NewServeMux()
			mux.HandleFunc("POST /v1/query", e.handleQuery)
			mux.HandleFunc("POST /v1/stream", e.handleStream)
			mux.HandleFunc("GET /healthz", e.handleHealth)
			if e.cfg.Observability.Metrics.Enabled {
				mux.Handle("GET "+e.cfg.Observability.Metrics.Path, promhttp.Handler())
			}

			addr := fmt.Sprintf("%s:%d", e.cfg.Server.Host, e.cfg.Server.HTTPPort)
			server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

			errCh := make(chan error, 1)
			go func() { errCh <- server.ListenAndServe() }()
			e.logger.Slog().Info("serving", "addr", addr)

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return err
			case sig := <-stop:
				e.logger.Slog().Info("shutting down", "signal", sig.String())
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(ctx)
			}
		},
	}
}

func newAskCommand() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Run one query and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEngine(configPath)
			if err != nil {
				return err
			}
			defer e.close()

			result, err := e.orchestrator.ProcessQuery(cmd.Context(), models.Query{
				Text:   strings.Join(args, " "),
				UserID: userID,
			})
			if err != nil {
				return err
			}
			fmt.Println(result.Answer)
			if len(result.Sources) > 0 {
				fmt.Fprintf(os.Stderr, "(%d sources, model %s, $%.4f)\n", result.DocumentCount, result.ModelUsed, result.CostUSD)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id to load memory for")
	return cmd
}

func newHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe every configured model tier",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEngine(configPath)
			if err != nil {
				return err
			}
			defer e.close()

			health := e.gateway.HealthCheck(cmd.Context())
			for tier, ok := range health {
				status := "unavailable"
				if ok {
					status = "ok"
				}
				fmt.Printf("%-10s %s\n", tier, status)
			}
			return nil
		},
	}
}

type queryRequest struct {
	Query     string           `json:"query"`
	UserID    string           `json:"user_id,omitempty"`
	SessionID string           `json:"session_id,omitempty"`
	History   []models.Message `json:"conversation_history,omitempty"`
	Images    []models.Image   `json:"images,omitempty"`
}

func (e *engine) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx, span := e.tracer.StartQuery(r.Context(), "blocking", req.SessionID)
	defer span.End()

	result, err := e.orchestrator.ProcessQuery(ctx, models.Query{
		Text: req.Query, UserID: req.UserID, Session: req.SessionID,
		History: req.History, Images: req.Images,
	})
	if err != nil {
		e.tracer.RecordError(span, err)
	}
	if err != nil && result == nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

func (e *engine) handleStream(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx, span := e.tracer.StartQuery(r.Context(), "streaming", req.SessionID)
	defer span.End()

	events, err := e.orchestrator.StreamQuery(ctx, models.Query{
		Text: req.Query, UserID: req.UserID, Session: req.SessionID,
		History: req.History, Images: req.Images,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	for ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
		flusher.Flush()
	}
}

func (e *engine) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"breakers": e.gateway.Breakers(),
	})
}
