package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/momentum/internal/batch"
	"github.com/wonny/momentum/internal/contracts"
	"github.com/wonny/momentum/internal/scoring"
	"github.com/wonny/momentum/internal/service"
	"github.com/wonny/momentum/pkg/logger"
)

// Scorer is the service surface exposed over HTTP
type Scorer interface {
	GetScore(ctx context.Context, ticker string) (contracts.MomentumScore, error)
	GetScores(ctx context.Context, tickers []string) map[string]contracts.MomentumScore
	GetCachedScores(ctx context.Context, tickers []string) (map[string]contracts.MomentumScore, []string)
	BatchCompute(ctx context.Context, tickers []string, opts batch.Options) *batch.Result
	TopN(ctx context.Context, tickers []string, n int, field string) ([]contracts.MomentumScore, error)
	Explain(ctx context.Context, ticker string) (scoring.Breakdown, error)
	Invalidate(tickerOrPattern string) int
	Stats() service.Stats
}

// ScoreHandler handles momentum score endpoints
// ⭐ SSOT: 점수 API 핸들러는 이 구조체에서만
type ScoreHandler struct {
	svc    Scorer
	logger *logger.Logger
}

// NewScoreHandler creates a new score handler
func NewScoreHandler(svc Scorer, log *logger.Logger) *ScoreHandler {
	return &ScoreHandler{
		svc:    svc,
		logger: log.Component("api"),
	}
}

// GetScore returns one ticker's score
// GET /api/scores/{ticker}
func (h *ScoreHandler) GetScore(w http.ResponseWriter, r *http.Request) {
	ticker := mux.Vars(r)["ticker"]

	score, err := h.svc.GetScore(r.Context(), ticker)
	if err != nil {
		h.respondScoreError(w, ticker, err)
		return
	}

	respondJSON(w, http.StatusOK, withSource(score))
}

// GetScores returns scores for many tickers
// GET /api/scores?tickers=AAPL,MSFT[&cached=true]
func (h *ScoreHandler) GetScores(w http.ResponseWriter, r *http.Request) {
	tickers := splitTickers(r.URL.Query()["tickers"])
	if len(tickers) == 0 {
		respondError(w, http.StatusBadRequest, "tickers parameter is required")
		return
	}

	cachedOnly, _ := strconv.ParseBool(r.URL.Query().Get("cached"))
	if cachedOnly {
		found, missing := h.svc.GetCachedScores(r.Context(), tickers)
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"scores":  found,
			"missing": missing,
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"scores": h.svc.GetScores(r.Context(), tickers),
	})
}

// BatchRequest is the body of a batch computation
type BatchRequest struct {
	Tickers    []string `json:"tickers"`
	MaxWorkers int      `json:"max_workers"`
	BatchSize  int      `json:"batch_size"`
	Refresh    bool     `json:"refresh"`
}

// BatchCompute runs a batch and returns the per-ticker outcomes
// POST /api/batch
func (h *ScoreHandler) BatchCompute(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Tickers) == 0 {
		respondError(w, http.StatusBadRequest, "tickers is required")
		return
	}

	res := h.svc.BatchCompute(r.Context(), req.Tickers, batch.Options{
		MaxWorkers: req.MaxWorkers,
		BatchSize:  req.BatchSize,
		Refresh:    req.Refresh,
	})

	errs := make(map[string]string, res.Failed)
	for t, err := range res.Errors() {
		errs[t] = err.Error()
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"result": res,
		"errors": errs,
	})
}

// TopN ranks tickers by a score field
// GET /api/top?tickers=AAPL,MSFT&n=5&field=composite
func (h *ScoreHandler) TopN(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tickers := splitTickers(q["tickers"])
	if len(tickers) == 0 {
		respondError(w, http.StatusBadRequest, "tickers parameter is required")
		return
	}

	n := 10
	if v := q.Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "n must be a positive integer")
			return
		}
		n = parsed
	}

	top, err := h.svc.TopN(r.Context(), tickers, n, q.Get("field"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"field":  q.Get("field"),
		"count":  len(top),
		"scores": top,
	})
}

// Explain returns the indicator breakdown for one ticker
// GET /api/explain/{ticker}
func (h *ScoreHandler) Explain(w http.ResponseWriter, r *http.Request) {
	ticker := mux.Vars(r)["ticker"]

	b, err := h.svc.Explain(r.Context(), ticker)
	if err != nil {
		h.respondScoreError(w, ticker, err)
		return
	}

	respondJSON(w, http.StatusOK, b)
}

// Invalidate drops cached scores for a ticker or glob pattern
// DELETE /api/cache/{pattern}
func (h *ScoreHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	pattern := mux.Vars(r)["pattern"]

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"pattern": pattern,
		"removed": h.svc.Invalidate(pattern),
	})
}

// GetStats returns cache and provider statistics
// GET /api/stats
func (h *ScoreHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.Stats())
}

func (h *ScoreHandler) respondScoreError(w http.ResponseWriter, ticker string, err error) {
	switch {
	case errors.Is(err, contracts.ErrInvalidTicker):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, contracts.ErrProviderFailure):
		h.logger.WithTicker(ticker).WithError(err).Warn("Provider failure")
		respondError(w, http.StatusBadGateway, "Market data provider unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "Score computation timed out")
	default:
		h.logger.WithTicker(ticker).WithError(err).Error("Failed to resolve score")
		respondError(w, http.StatusInternalServerError, "Failed to resolve score")
	}
}

type scoreResponse struct {
	contracts.MomentumScore
	Source string `json:"source"`
}

func withSource(s contracts.MomentumScore) scoreResponse {
	return scoreResponse{MomentumScore: s, Source: s.Source.String()}
}
