package httpserver

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/arb-engine/predictionarb/internal/circuitbreaker"
	"github.com/arb-engine/predictionarb/internal/execution"
)

// DashboardHandler serves read-only JSON snapshots of the orchestrator's
// matched pairs, open positions, the executor's audit ring and the circuit
// breaker's status, for operator visibility.
type DashboardHandler struct {
	orch    DashboardOrchestrator
	exec    *execution.Executor
	breaker *circuitbreaker.BalanceCircuitBreaker
	logger  *zap.Logger
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(
	orch DashboardOrchestrator,
	exec *execution.Executor,
	breaker *circuitbreaker.BalanceCircuitBreaker,
	logger *zap.Logger,
) *DashboardHandler {
	return &DashboardHandler{orch: orch, exec: exec, breaker: breaker, logger: logger}
}

// PairView is the HTTP-facing shape of a matched cross-venue pair.
type PairView struct {
	MarketA    string  `json:"market_a"`
	MarketB    string  `json:"market_b"`
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity"`
}

// HandlePairs handles GET /api/pairs.
func (h *DashboardHandler) HandlePairs(w http.ResponseWriter, r *http.Request) {
	pairs := h.orch.Pairs()
	views := make([]PairView, 0, len(pairs))
	for _, p := range pairs {
		views = append(views, PairView{
			MarketA:    p.OutcomeA.MarketID,
			MarketB:    p.OutcomeB.MarketID,
			Title:      p.OutcomeA.OutcomeTitle,
			Similarity: p.Similarity,
		})
	}
	h.writeJSON(w, views)
}

// HandlePositions handles GET /api/positions.
func (h *DashboardHandler) HandlePositions(w http.ResponseWriter, r *http.Request) {
	positions := h.orch.Positions()
	h.writeJSON(w, positions)
}

// HandleAudit handles GET /api/audit.
func (h *DashboardHandler) HandleAudit(w http.ResponseWriter, r *http.Request) {
	if h.exec == nil {
		h.writeError(w, "executor not configured", http.StatusServiceUnavailable)
		return
	}
	h.writeJSON(w, h.exec.AuditEntries())
}

// HandleCircuitBreaker handles GET /api/circuit-breaker.
func (h *DashboardHandler) HandleCircuitBreaker(w http.ResponseWriter, r *http.Request) {
	if h.breaker == nil {
		h.writeError(w, "circuit breaker not configured", http.StatusServiceUnavailable)
		return
	}
	h.writeJSON(w, h.breaker.GetStatus())
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *DashboardHandler) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

func (h *DashboardHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message}); err != nil {
		h.logger.Error("failed-to-encode-error-response", zap.Error(err))
	}
}
