package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/sketch-calculator/internal/calculator"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const (
	livenessMessage        = "Server is running"
	defaultMaxRequestBytes = 10 << 20
)

// Handler wires the calculator into HTTP handlers.
type Handler struct {
	calculator calculator.Calculator
	logger     *zap.Logger

	clock        func() time.Time
	environment  string
	maxBodyBytes int64
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithEnvironment sets the environment name reported by the health probe.
func WithEnvironment(env string) HandlerOption {
	return func(h *Handler) {
		h.environment = env
	}
}

// WithMaxBodyBytes caps the size of calculation request bodies.
func WithMaxBodyBytes(limit int64) HandlerOption {
	return func(h *Handler) {
		if limit > 0 {
			h.maxBodyBytes = limit
		}
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(calc calculator.Calculator, logger *zap.Logger, opts ...HandlerOption) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		calculator: calc,
		logger:     logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
		maxBodyBytes: defaultMaxRequestBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: livenessMessage})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:      "ok",
		Timestamp:   h.clock(),
		Environment: h.environment,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	var req calculator.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request too large", "canvas image exceeds the request size limit",
				"Reduce the canvas size or brush detail and try again")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	results, err := h.calculator.Calculate(r.Context(), req)
	if err != nil {
		h.writeCalculateError(w, r, err)
		return
	}
	if results == nil {
		results = []calculator.Result{}
	}

	writeJSON(w, http.StatusOK, calculateResponse{
		Message: "Image processed",
		Data:    results,
		Status:  "success",
	})
}

func (h *Handler) writeCalculateError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, calculator.ErrEmptyImage):
		writeError(w, http.StatusBadRequest, "Invalid image", err.Error(), "Draw an expression on the canvas before pressing Run")
	case errors.Is(err, calculator.ErrInvalidImage):
		writeError(w, http.StatusBadRequest, "Invalid image", err.Error())
	case errors.Is(err, calculator.ErrAnalyzerUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Calculator unavailable", err.Error(),
			"Set VISION_API_KEY (or GEMINI_API_KEY) and restart the server")
	case errors.Is(err, calculator.ErrUnparseableAnswer):
		h.logger.Warn("vision model answer rejected", zap.Error(err), zap.String("request_id", requestIDFromContext(r.Context())))
		writeError(w, http.StatusBadGateway, "Unreadable answer", err.Error(), "Try redrawing the expression more clearly")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "Calculation timed out", "the vision model did not answer in time")
	case errors.Is(err, context.Canceled):
		// client went away; nothing useful to send
		h.logger.Debug("calculation canceled", zap.String("request_id", requestIDFromContext(r.Context())))
	default:
		h.logger.Error("calculation failed", zap.Error(err), zap.String("request_id", requestIDFromContext(r.Context())))
		writeInternalError(w, err)
	}
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type messageResponse struct {
	Message string `json:"message"`
}

type healthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Environment string    `json:"environment,omitempty"`
}

type calculateResponse struct {
	Message string              `json:"message"`
	Data    []calculator.Result `json:"data"`
	Status  string              `json:"status"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
