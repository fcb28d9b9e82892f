// Package server exposes the assistant over HTTP: a JSON API for chat,
// catalog, availability and bookings, plus a WebSocket chat channel and
// optional speech endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	bookingx "github.com/primeauto/concierge/assistant/booking"
	catalogx "github.com/primeauto/concierge/assistant/catalog"
	contractx "github.com/primeauto/concierge/assistant/contract"
	orchestratorx "github.com/primeauto/concierge/assistant/orchestrator"
	voicex "github.com/primeauto/concierge/assistant/voice"
)

const maxAudioBytes = 25 << 20

type Config struct {
	Addr            string        `split_words:"true" default:":8080"`
	ReadTimeout     time.Duration `split_words:"true" default:"30s"`
	WriteTimeout    time.Duration `split_words:"true" default:"120s"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
}

type Server struct {
	cfg          Config
	orchestrator *orchestratorx.Orchestrator
	catalog      *catalogx.Catalog
	engine       *bookingx.Engine
	voice        voicex.Providers

	http *http.Server
}

func New(cfg Config, orch *orchestratorx.Orchestrator, cat *catalogx.Catalog, engine *bookingx.Engine, voice voicex.Providers) (*Server, error) {
	if orch == nil {
		return nil, errors.New("orchestrator is required")
	}
	if cat == nil {
		return nil, errors.New("catalog is required")
	}
	if engine == nil {
		return nil, errors.New("booking engine is required")
	}

	s := &Server{
		cfg:          cfg,
		orchestrator: orch,
		catalog:      cat,
		engine:       engine,
		voice:        voice,
	}
	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s, nil
}

// ListenAndServe blocks until the context is cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/ws/chat", s.handleChatSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/chat", s.handleChat)

		r.Get("/vehicles", s.handleListVehicles)
		r.Get("/vehicles/search", s.handleSearchVehicles)
		r.Get("/vehicles/{vehicleID}", s.handleGetVehicle)
		r.Get("/vehicles/{vehicleID}/availability", s.handleAvailability)

		r.Post("/bookings", s.handleCreateBooking)
		r.Get("/bookings", s.handleListBookings)
		r.Get("/bookings/{bookingID}", s.handleGetBooking)
		r.Delete("/bookings/{bookingID}", s.handleCancelBooking)

		r.Get("/dealership", s.handleDealership)

		if s.voice.Enabled() {
			r.Post("/audio/transcribe", s.handleTranscribe)
			r.Post("/audio/speak", s.handleSpeak)
		}
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reply, err := s.orchestrator.HandleTurn(r.Context(), req.SessionID, req.Message)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{SessionID: req.SessionID, Reply: reply})
}

func (s *Server) handleListVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles := s.catalog.ListAll()
	if r.URL.Query().Get("available") == "true" {
		vehicles = s.catalog.Available()
	}
	writeJSON(w, http.StatusOK, map[string]any{"vehicles": vehicles, "count": len(vehicles)})
}

func (s *Server) handleSearchVehicles(w http.ResponseWriter, r *http.Request) {
	q := catalogx.Query{
		Brand:         strings.TrimSpace(r.URL.Query().Get("brand")),
		AvailableOnly: r.URL.Query().Get("available") != "false",
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
		cat, ok := catalogx.ResolveCategory(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown vehicle type %q", raw))
			return
		}
		q.Category = cat
	}
	vehicles := s.catalog.Filter(q)
	writeJSON(w, http.StatusOK, map[string]any{"vehicles": vehicles, "count": len(vehicles)})
}

func (s *Server) handleGetVehicle(w http.ResponseWriter, r *http.Request) {
	vehicle, err := s.catalog.FindByID(chi.URLParam(r, "vehicleID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

type availabilityResponse struct {
	VehicleID         string `json:"vehicle_id"`
	Date              string `json:"date"`
	Time              string `json:"time"`
	Available         bool   `json:"available"`
	ConflictBookingID string `json:"conflict_booking_id,omitempty"`
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	vehicleID := chi.URLParam(r, "vehicleID")
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	start := strings.TrimSpace(r.URL.Query().Get("time"))
	if date == "" || start == "" {
		writeError(w, http.StatusBadRequest, "date and time query parameters are required")
		return
	}

	conflictID, err := s.engine.CheckAvailability(vehicleID, date, start, 0)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, availabilityResponse{
		VehicleID:         vehicleID,
		Date:              date,
		Time:              start,
		Available:         conflictID == "",
		ConflictBookingID: conflictID,
	})
}

type createBookingRequest struct {
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	CustomerEmail string `json:"customer_email"`
	VehicleID     string `json:"vehicle_id"`
	Date          string `json:"date"`
	Time          string `json:"time"`
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	booking, err := s.engine.Commit(r.Context(), bookingx.CommitRequest{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
		VehicleID:     req.VehicleID,
		Date:          req.Date,
		Time:          req.Time,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *Server) handleListBookings(w http.ResponseWriter, _ *http.Request) {
	bookings := s.engine.List()
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings, "count": len(bookings)})
}

func (s *Server) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := s.engine.Get(chi.URLParam(r, "bookingID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *Server) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "bookingID")
	if err := s.engine.Cancel(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"booking_id": id, "status": string(bookingx.StatusCancelled)})
}

func (s *Server) handleDealership(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"dealership":    s.catalog.Dealership(),
		"working_hours": s.catalog.WorkingHours(),
	})
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	audio, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAudioBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio payload too large or unreadable")
		return
	}

	text, err := s.voice.Transcriber.Transcribe(r.Context(), audio)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

type speakRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	var req speakRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	audio, err := s.voice.Synthesizer.Synthesize(r.Context(), req.Text)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("encode response body")
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeDomainError maps assistant errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, contractx.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, contractx.ErrInvalidArguments),
		errors.Is(err, contractx.ErrInvalidDateTime),
		errors.Is(err, contractx.ErrUnknownAction),
		errors.Is(err, contractx.ErrAlreadyCancelled),
		errors.Is(err, orchestratorx.ErrInvalidMessage),
		errors.Is(err, orchestratorx.ErrInvalidSession):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, contractx.ErrSlotConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, contractx.ErrCapacityExceeded):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, contractx.ErrCapabilityTimeout):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
