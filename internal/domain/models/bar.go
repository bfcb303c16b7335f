package models

import "time"

// PriceBar represents one daily OHLCV record for an instrument.
// Bars are immutable once ingested and ordered by date per symbol.
type PriceBar struct {
	Symbol string
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// SentimentPoint is an aggregated sentiment scalar for a symbol on a date,
// bounded to [-1, 1]. Absence is legal and defaults to neutral (0).
type SentimentPoint struct {
	Symbol       string    `json:"symbol"`
	Date         time.Time `json:"date"`
	AvgSentiment float64   `json:"avg_sentiment"`
	SentimentStd float64   `json:"sentiment_std"`
	ArticleCount int       `json:"article_count"`
}
