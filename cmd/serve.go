package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leakstopper/leakstopper-cli/internal/engine"
	"github.com/leakstopper/leakstopper-cli/internal/message"
	"github.com/leakstopper/leakstopper-cli/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		gen, err := newGenerator(ctx, cfg.Message.Provider)
		if err != nil {
			return err
		}
		tracker := message.NewTracker()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(gen, tracker),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
			tracker.Wait()
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newRouter(gen message.Generator, tracker *message.Tracker) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/analyze", handleAnalyze)

	r.Post("/api/messages/{customerID}", handleStartMessage(gen, tracker))
	r.Get("/api/messages/{customerID}", handleMessageStatus(tracker))
	r.Delete("/api/messages/{customerID}", handleCancelMessage(tracker))

	return r
}

// handleAnalyze scores the posted customers synchronously. An empty
// customer set returns an explicit absence body rather than zeros.
func handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Customers []model.Customer     `json:"customers"`
		Filters   *model.FilterOptions `json:"filters"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	opts := model.DefaultFilters()
	if req.Filters != nil {
		opts = *req.Filters
		if opts.ThresholdDays <= 0 {
			opts.ThresholdDays = model.DefaultFilters().ThresholdDays
		}
		if opts.RiskLevel == "" {
			opts.RiskLevel = model.RiskFilterAll
		}
	}

	result := engine.Analyze(req.Customers, opts, time.Now())
	if result == nil {
		writeJSON(w, http.StatusOK, map[string]any{"analysis": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"analysis": result})
}

type messageRequest struct {
	Customer model.LeakedCustomer `json:"customer"`
	Sector   string               `json:"sector"`
	Company  string               `json:"company_name"`
	MaxChars int                  `json:"max_chars"`
}

// handleStartMessage kicks off asynchronous generation for one customer.
// A second POST while one is in flight is a no-op 409.
func handleStartMessage(gen message.Generator, tracker *message.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := chi.URLParam(r, "customerID")

		var req messageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Customer.ID = customerID

		sector, err := model.ParseSector(req.Sector)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		company := req.Company
		if company == "" {
			company = cfg.Message.CompanyName
		}

		// Generation outlives the request; the tracker owns cancellation.
		started := tracker.Start(context.WithoutCancel(r.Context()), gen, message.Request{
			Customer:    req.Customer,
			Sector:      sector,
			CompanyName: company,
			MaxChars:    req.MaxChars,
		})
		if !started {
			writeError(w, http.StatusConflict, "generation already in flight for this customer")
			return
		}

		writeJSON(w, http.StatusAccepted, map[string]string{
			"customer_id": customerID,
			"state":       string(message.StatePending),
		})
	}
}

func handleMessageStatus(tracker *message.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := chi.URLParam(r, "customerID")

		status, ok := tracker.Status(customerID)
		if !ok {
			writeError(w, http.StatusNotFound, "no generation for this customer")
			return
		}

		body := map[string]any{
			"customer_id": status.CustomerID,
			"state":       string(status.State),
		}
		if status.Response != nil {
			body["message"] = status.Response
		}
		if status.Err != nil {
			body["error"] = status.Err.Error()
		}
		writeJSON(w, http.StatusOK, body)
	}
}

func handleCancelMessage(tracker *message.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := chi.URLParam(r, "customerID")

		if !tracker.Cancel(customerID) {
			writeError(w, http.StatusNotFound, "no pending generation for this customer")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"customer_id": customerID,
			"state":       "cancelled",
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
