package api

import (
	"encoding/json"
	"strings"
	"time"

	models "RiskLens/internal/domain/models"
	domrepo "RiskLens/internal/domain/repository"
	domservice "RiskLens/internal/domain/service"
	icache "RiskLens/internal/service/cache"
	"RiskLens/internal/service/metrics"
	"RiskLens/internal/service/ratelimit"
	"RiskLens/internal/usecase"
	xhttp "RiskLens/pkg/http"
	xlogger "RiskLens/pkg/logger"

	"github.com/labstack/echo/v4"
)

const scoresCacheTTL = 30 * time.Second

// RiskEchoHandler exposes the scoring, alert, backtest and analysis API.
type RiskEchoHandler struct {
	logger    *xlogger.Logger
	pipeline  *usecase.ScoringPipeline
	alerts    domrepo.AlertStore
	runner    *usecase.BacktestRunner
	scheduler *usecase.RefreshScheduler
	oracle    domservice.RiskOracle
	vol       domservice.VolForecaster

	cache   icache.BytesCache
	rl      *ratelimit.Limiter
	storage domrepo.Storage
}

func NewRiskEchoHandler(
	logger *xlogger.Logger,
	pipeline *usecase.ScoringPipeline,
	alerts domrepo.AlertStore,
	runner *usecase.BacktestRunner,
	scheduler *usecase.RefreshScheduler,
	oracle domservice.RiskOracle,
	vol domservice.VolForecaster,
) *RiskEchoHandler {
	metrics.Register()
	return &RiskEchoHandler{
		logger:    logger,
		pipeline:  pipeline,
		alerts:    alerts,
		runner:    runner,
		scheduler: scheduler,
		oracle:    oracle,
		vol:       vol,
		rl:        ratelimit.New(),
	}
}

// SetCache injects a response cache for the hot list endpoints.
func (h *RiskEchoHandler) SetCache(c icache.BytesCache) { h.cache = c }

// SetStorage injects the storage backend for health checks.
func (h *RiskEchoHandler) SetStorage(s domrepo.Storage) { h.storage = s }

func (h *RiskEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)
	g := e.Group("/api")
	g.GET("/scores", h.Scores)
	g.GET("/scores/:symbol", h.Score)
	g.GET("/alerts", h.Alerts)
	g.POST("/refresh", h.Refresh)
	g.POST("/backtest/run", h.Backtest)
	g.GET("/analysis/:symbol", h.Analysis)
}

// ScoreView is the list representation of one scored symbol.
type ScoreView struct {
	Symbol        string   `json:"symbol"`
	Date          string   `json:"date"`
	Close         float64  `json:"close"`
	RiskScore     float64  `json:"risk_score"`
	RiskLevel     string   `json:"risk_level"`
	RiskRank      int      `json:"risk_rank"`
	RiskDrivers   []string `json:"risk_drivers"`
	ScoringMethod string   `json:"scoring_method"`
}

// ScoreDetail adds the normalized components and the optional volatility
// forecast to the list view.
type ScoreDetail struct {
	ScoreView
	Components  map[string]float64      `json:"components"`
	Explanation *domservice.Explanation `json:"explanation,omitempty"`
	VolForecast *domservice.VolForecast `json:"vol_forecast,omitempty"`
	RunAt       time.Time               `json:"run_at"`
}

// ScoresResponse is the ranked cross-section of the last completed run.
type ScoresResponse struct {
	RunAt    time.Time   `json:"run_at"`
	Universe int         `json:"universe"`
	Skipped  int         `json:"skipped"`
	Scores   []ScoreView `json:"scores"`
}

func scoreView(r models.RiskScoreRecord) ScoreView {
	return ScoreView{
		Symbol:        r.Symbol,
		Date:          r.Date.Format("2006-01-02"),
		Close:         r.Close,
		RiskScore:     r.RiskScore,
		RiskLevel:     string(r.RiskLevel),
		RiskRank:      r.RiskRank,
		RiskDrivers:   r.RiskDrivers,
		ScoringMethod: string(r.ScoringMethod),
	}
}

func (h *RiskEchoHandler) Scores(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("scores").Observe(time.Since(start).Seconds()) }()

	req := &models.ScoresRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	cacheKey := "scores:" + req.Level
	if h.cache != nil {
		if b, ok, err := h.cache.GetBytes(cacheKey); err == nil && ok {
			var cached ScoresResponse
			if json.Unmarshal(b, &cached) == nil {
				cached.Scores = limitScores(cached.Scores, req.Limit)
				return xhttp.SuccessResponse(c, cached)
			}
		}
	}

	run := h.pipeline.Last()
	if run == nil {
		return xhttp.NotFoundResponse(c, "no scoring run completed yet")
	}

	views := make([]ScoreView, 0, len(run.Records))
	for _, r := range run.Records {
		if req.Level != "" && string(r.RiskLevel) != req.Level {
			continue
		}
		views = append(views, scoreView(r))
	}
	res := ScoresResponse{
		RunAt:    run.RunAt,
		Universe: run.Universe,
		Skipped:  len(run.Skipped),
		Scores:   views,
	}

	if h.cache != nil {
		if b, err := json.Marshal(res); err == nil {
			if err := h.cache.SetBytes(cacheKey, b, scoresCacheTTL); err != nil {
				h.logger.Warn("scores cache set failed", xlogger.Error(err))
			}
		}
	}
	res.Scores = limitScores(res.Scores, req.Limit)
	return xhttp.SuccessResponse(c, res)
}

func limitScores(views []ScoreView, limit int) []ScoreView {
	if limit > 0 && len(views) > limit {
		return views[:limit]
	}
	return views
}

func (h *RiskEchoHandler) Score(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("score").Observe(time.Since(start).Seconds()) }()

	req := &models.ScoreRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	symbol := strings.ToUpper(req.Symbol)

	run := h.pipeline.Last()
	if run == nil {
		return xhttp.NotFoundResponse(c, "no scoring run completed yet")
	}
	rec, ok := run.Record(symbol)
	if !ok {
		if reason, skipped := run.Skipped[symbol]; skipped {
			return xhttp.NotFoundResponse(c, "symbol skipped: "+reason)
		}
		return xhttp.NotFoundResponse(c, "unknown symbol")
	}

	detail := ScoreDetail{
		ScoreView: scoreView(rec),
		Components: map[string]float64{
			"volatility": rec.Normalized.NormVolatility,
			"drawdown":   rec.Normalized.NormDrawdown,
			"sentiment":  rec.Normalized.NormSentiment,
			"liquidity":  rec.Normalized.NormLiquidity,
			"beta":       rec.Normalized.NormBeta,
			"atr":        rec.Normalized.NormATR,
		},
		RunAt: run.RunAt,
	}
	if h.oracle != nil {
		if exp, ok := h.oracle.Explanation(symbol); ok {
			detail.Explanation = &exp
		}
	}
	if h.vol != nil {
		if vf, ok := h.vol.VolForecast(symbol); ok {
			detail.VolForecast = &vf
		}
	}
	return xhttp.SuccessResponse(c, detail)
}

// AlertView is the API representation of one alert.
type AlertView struct {
	Symbol        string   `json:"symbol"`
	AlertType     string   `json:"alert_type"`
	Severity      string   `json:"severity"`
	RiskScore     float64  `json:"risk_score"`
	RiskLevel     string   `json:"risk_level"`
	RiskRank      int      `json:"risk_rank"`
	RiskDrivers   []string `json:"risk_drivers"`
	PrevRiskScore *float64 `json:"prev_risk_score,omitempty"`
	RiskChange    *float64 `json:"risk_change,omitempty"`
	RiskChangePct *float64 `json:"risk_change_pct,omitempty"`
	CreatedAt     string   `json:"created_at"`
}

func (h *RiskEchoHandler) Alerts(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("alerts").Observe(time.Since(start).Seconds()) }()

	req := &models.AlertsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	records, err := h.alerts.RecentAlerts(c.Request().Context(), strings.ToUpper(req.Symbol), req.Limit)
	if err != nil {
		metrics.APIErrors.WithLabelValues("alerts").Inc()
		h.logger.Error("alerts query failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	views := make([]AlertView, 0, len(records))
	for _, a := range records {
		views = append(views, AlertView{
			Symbol:        a.Symbol,
			AlertType:     string(a.AlertType),
			Severity:      string(a.Severity),
			RiskScore:     a.RiskScore,
			RiskLevel:     string(a.RiskLevel),
			RiskRank:      a.RiskRank,
			RiskDrivers:   a.RiskDrivers,
			PrevRiskScore: a.PrevRiskScore,
			RiskChange:    a.RiskChange,
			RiskChangePct: a.RiskChangePct,
			CreatedAt:     a.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return xhttp.ListResponse(c, views, int64(len(views)))
}

func (h *RiskEchoHandler) Refresh(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("refresh").Observe(time.Since(start).Seconds()) }()

	if !h.rl.Allow(c.RealIP()+":refresh", 2, 1.0/30) {
		return xhttp.DataResponse(c, 429, "refresh rate limited")
	}
	if err := h.scheduler.Trigger(c.Request().Context(), "api"); err != nil {
		metrics.APIErrors.WithLabelValues("refresh").Inc()
		h.logger.Error("refresh enqueue failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "queued"})
}

func (h *RiskEchoHandler) Backtest(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("backtest").Observe(time.Since(start).Seconds()) }()

	req := &models.BacktestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if req.Strategy == string(models.StrategyMovingAverage) && req.ShortWindow >= req.LongWindow {
		return xhttp.BadRequestResponse(c, "short_window must be below long_window")
	}

	result, err := h.runner.Run(c.Request().Context(), *req)
	if err != nil {
		metrics.APIErrors.WithLabelValues("backtest").Inc()
		h.logger.Error("backtest failed",
			xlogger.String("symbol", req.Symbol),
			xlogger.String("strategy", req.Strategy),
			xlogger.Error(err),
		)
		return xhttp.BadRequestResponse(c, err.Error())
	}
	return xhttp.SuccessResponse(c, result)
}

func (h *RiskEchoHandler) Healthz(c echo.Context) error {
	status := map[string]string{"status": "ok"}
	if h.storage != nil {
		if err := h.storage.Health(c.Request().Context()); err != nil {
			status["status"] = "degraded"
			status["storage"] = err.Error()
			return xhttp.DataResponse(c, 503, status)
		}
		status["storage"] = "ok"
	}
	if run := h.pipeline.Last(); run != nil {
		status["last_run"] = run.RunAt.UTC().Format(time.RFC3339)
	}
	return xhttp.SuccessResponse(c, status)
}

func (h *RiskEchoHandler) Analysis(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("analysis").Observe(time.Since(start).Seconds()) }()

	req := &models.AnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	report, err := h.runner.Analyze(c.Request().Context(), req.Symbol, req.Days)
	if err != nil {
		metrics.APIErrors.WithLabelValues("analysis").Inc()
		h.logger.Error("analysis failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.BadRequestResponse(c, err.Error())
	}
	return xhttp.SuccessResponse(c, report)
}
