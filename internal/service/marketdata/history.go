package marketdata

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"RiskLens/internal/domain/models"
	xhttp "RiskLens/pkg/http"
)

// HistoryClient fetches daily candle history from the provider's REST API.
// Used to backfill storage on cold start, before the streaming feed has
// accumulated enough bars to score.
type HistoryClient struct {
	baseURL string
	apiKey  string
	client  *xhttp.Client
}

func NewHistoryClient(baseURL, apiKey string, timeout time.Duration) *HistoryClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HistoryClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

// candleResponse is the provider's column-oriented candle payload.
type candleResponse struct {
	Status string    `json:"s"`
	T      []int64   `json:"t"`
	O      []float64 `json:"o"`
	H      []float64 `json:"h"`
	L      []float64 `json:"l"`
	C      []float64 `json:"c"`
	V      []float64 `json:"v"`
}

// Daily returns daily bars for the symbol over [from, to], ascending.
func (h *HistoryClient) Daily(ctx context.Context, symbol string, from, to time.Time) ([]*models.PriceBar, error) {
	var res candleResponse
	err := h.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    h.baseURL + "/stock/candle",
		QueryParams: map[string][]string{
			"symbol":     {symbol},
			"resolution": {"D"},
			"from":       {strconv.FormatInt(from.Unix(), 10)},
			"to":         {strconv.FormatInt(to.Unix(), 10)},
			"token":      {h.apiKey},
		},
	}, &res)
	if err != nil {
		return nil, fmt.Errorf("candle request %s: %w", symbol, err)
	}
	if res.Status != "ok" {
		return nil, fmt.Errorf("candle request %s: status %q", symbol, res.Status)
	}
	n := len(res.T)
	if len(res.O) != n || len(res.H) != n || len(res.L) != n || len(res.C) != n || len(res.V) != n {
		return nil, fmt.Errorf("candle request %s: ragged columns", symbol)
	}

	bars := make([]*models.PriceBar, 0, n)
	for i := 0; i < n; i++ {
		bars = append(bars, &models.PriceBar{
			Symbol: symbol,
			Date:   time.Unix(res.T[i], 0).UTC(),
			Open:   res.O[i],
			High:   res.H[i],
			Low:    res.L[i],
			Close:  res.C[i],
			Volume: res.V[i],
		})
	}
	return bars, nil
}
