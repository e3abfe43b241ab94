package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"telegramRiskBot/internal/finance"
	"telegramRiskBot/internal/risk"
)

// VarDefaults fill in parameters a query leaves out.
type VarDefaults struct {
	Confidence  float64
	Notional    float64
	HorizonDays int
	Window      string
}

// VarHandler serves GET /api/var as a JSON risk.Report.
type VarHandler struct {
	engine   *risk.Engine
	defaults VarDefaults
	logger   *zap.Logger
	now      func() time.Time
}

func NewVarHandler(engine *risk.Engine, defaults VarDefaults, logger *zap.Logger) *VarHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaults.HorizonDays < 1 {
		defaults.HorizonDays = risk.DefaultHorizonDays
	}
	if defaults.Window == "" {
		defaults.Window = finance.DefaultWindow
	}
	return &VarHandler{engine: engine, defaults: defaults, logger: logger.Named("api"), now: time.Now}
}

type errorBody struct {
	Error string `json:"error"`
}

func (h *VarHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
		return
	}

	req, err := h.parseRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	report, err := h.engine.Run(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		h.logger.Info("var request failed", zap.Int("status", status), zap.Error(err))
		writeJSON(w, status, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, risk.ErrProvider):
		return http.StatusBadGateway
	case errors.Is(err, risk.ErrInsufficientHistory),
		errors.Is(err, risk.ErrNonPositivePrice),
		errors.Is(err, risk.ErrNegativeVariance),
		errors.Is(err, risk.ErrNonPositiveStdDev):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

func (h *VarHandler) parseRequest(r *http.Request) (risk.Request, error) {
	q := r.URL.Query()
	req := risk.Request{
		Confidence: h.defaults.Confidence,
		Notional:   h.defaults.Notional,
	}

	for _, s := range splitList(q.Get("tickers")) {
		req.Tickers = append(req.Tickers, strings.ToUpper(s))
	}
	if len(req.Tickers) == 0 {
		return req, errors.New("tickers is required")
	}
	for _, s := range splitList(q.Get("weights")) {
		w, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return req, fmt.Errorf("invalid weight %q", s)
		}
		req.Weights = append(req.Weights, w)
	}

	var err error
	if v := q.Get("confidence"); v != "" {
		if req.Confidence, err = strconv.ParseFloat(v, 64); err != nil {
			return req, fmt.Errorf("invalid confidence %q", v)
		}
	}
	if v := q.Get("notional"); v != "" {
		if req.Notional, err = strconv.ParseFloat(v, 64); err != nil {
			return req, fmt.Errorf("invalid notional %q", v)
		}
	}
	days := h.defaults.HorizonDays
	if v := q.Get("horizon"); v != "" {
		if days, err = strconv.Atoi(v); err != nil || days < 1 {
			return req, fmt.Errorf("invalid horizon %q", v)
		}
	}
	req.Horizon = risk.HorizonRange(1, days)

	window := q.Get("window")
	if window == "" {
		window = h.defaults.Window
	}
	if req.Start, req.End, err = finance.WindowRange(window, h.now()); err != nil {
		return req, err
	}
	if v := q.Get("start"); v != "" {
		if req.Start, err = time.Parse("2006-01-02", v); err != nil {
			return req, fmt.Errorf("invalid start %q (want YYYY-MM-DD)", v)
		}
	}
	if v := q.Get("end"); v != "" {
		if req.End, err = time.Parse("2006-01-02", v); err != nil {
			return req, fmt.Errorf("invalid end %q (want YYYY-MM-DD)", v)
		}
	}
	return req, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
