package models

// Requests for the HTTP API. Defined in domain for consistency and reuse.

type ScoresRequest struct {
	Level string `query:"level" json:"level" validate:"omitempty,oneof=Low Medium High"`
	Limit int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

type ScoreRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required"`
}

type AlertsRequest struct {
	Symbol string `query:"symbol" json:"symbol"`
	Limit  int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

type BacktestRequest struct {
	Symbol         string  `json:"symbol" validate:"required"`
	Strategy       string  `json:"strategy" default:"buy_and_hold" validate:"oneof=buy_and_hold risk_based moving_average mean_reversion"`
	StartDaysAgo   int     `json:"start_days_ago" default:"365" validate:"gte=30,lte=3650"`
	InitialCapital float64 `json:"initial_capital" default:"10000" validate:"gt=0"`

	RiskThreshold float64 `json:"risk_threshold" default:"0.6" validate:"gte=0,lte=1"`
	ShortWindow   int     `json:"short_window" default:"20" validate:"gte=2,lte=200"`
	LongWindow    int     `json:"long_window" default:"50" validate:"gte=3,lte=400"`
	Lookback      int     `json:"lookback" default:"20" validate:"gte=2,lte=252"`
	ZEntry        float64 `json:"z_entry" default:"-1.0" validate:"gte=-5,lte=0"`
	ZExit         float64 `json:"z_exit" default:"0.5" validate:"gte=-1,lte=5"`
}

type AnalysisRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required"`
	Days   int    `query:"days" json:"days" default:"365" validate:"gte=30,lte=3650"`
}
