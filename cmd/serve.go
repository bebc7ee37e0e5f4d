package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Mohzrb/drivo-chatmeter-bridge-sub000/internal/normalize"
	"github.com/Mohzrb/drivo-chatmeter-bridge-sub000/internal/pipeline"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the review webhook server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		p := e.buildPipeline(false)
		fix := e.buildPipeline(false, pipeline.WithFixMode())

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(e, p, fix),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newRouter builds the HTTP surface: health, diagnostics, and the two
// webhook endpoints.
func newRouter(e *env, p, fix *pipeline.Pipeline) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/diag", func(w http.ResponseWriter, req *http.Request) {
		circuit := "disabled"
		if e.breaker != nil {
			circuit = e.breaker.State().String()
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"store_driver":   cfg.Store.Driver,
			"locations":      e.locations.Len(),
			"poll_enabled":   e.reviews != nil,
			"zendesk_domain": cfg.Zendesk.Subdomain,
			"circuit":        circuit,
		})
	})

	r.Post("/webhook/review", webhookHandler(p))
	r.Post("/webhook/review/fix", webhookHandler(fix))

	return r
}

// webhookHandler processes one review payload synchronously and returns
// the resulting action.
func webhookHandler(p *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		res, err := p.Process(req.Context(), payload)
		if err != nil {
			if eris.Is(err, normalize.ErrNoReviewID) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			zap.L().Error("webhook processing failed",
				zap.String("review_id", res.ReviewID), zap.Error(err))
			writeJSON(w, http.StatusBadGateway, res)
			return
		}

		zap.L().Info("webhook processed",
			zap.String("review_id", res.ReviewID),
			zap.Int64("ticket_id", res.TicketID),
			zap.String("action", string(res.Action)))
		writeJSON(w, http.StatusOK, res)
	}
}

// requestID tags each request with a correlation id, honoring one the
// caller already set.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := req.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, req)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
