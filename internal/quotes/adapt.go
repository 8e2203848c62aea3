package quotes

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the latest price of one symbol.
type Quote struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Exchange      string          `json:"exchange"`
	Currency      string          `json:"currency"`
	Price         decimal.Decimal `json:"price"`
	PreviousClose decimal.Decimal `json:"previousClose"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"changePercent"`
	MarketTime    time.Time       `json:"marketTime"`
}

// HistoryPoint is one trading day.
type HistoryPoint struct {
	Date   string          `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// SearchMatch is one listing returned by Search.
type SearchMatch struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol             string  `json:"symbol"`
		Currency           string  `json:"currency"`
		ExchangeName       string  `json:"exchangeName"`
		LongName           string  `json:"longName"`
		ShortName          string  `json:"shortName"`
		RegularMarketPrice float64 `json:"regularMarketPrice"`
		RegularMarketTime  int64   `json:"regularMarketTime"`
		ChartPreviousClose float64 `json:"chartPreviousClose"`
		PreviousClose      float64 `json:"previousClose"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

type searchResponse struct {
	Quotes []struct {
		Symbol    string `json:"symbol"`
		ShortName string `json:"shortname"`
		LongName  string `json:"longname"`
		Exchange  string `json:"exchange"`
	} `json:"quotes"`
}

func adaptChartQuote(res *chartResult) *Quote {
	m := res.Meta
	prev := m.PreviousClose
	if prev == 0 {
		prev = m.ChartPreviousClose
	}

	price := decimal.NewFromFloat(m.RegularMarketPrice)
	previous := decimal.NewFromFloat(prev)
	change := price.Sub(previous)
	pct := decimal.Zero
	if !previous.IsZero() {
		pct = change.Div(previous).Mul(decimal.NewFromInt(100)).Round(2)
	}

	name := m.LongName
	if name == "" {
		name = m.ShortName
	}

	q := &Quote{
		Symbol:        m.Symbol,
		Name:          name,
		Exchange:      m.ExchangeName,
		Currency:      m.Currency,
		Price:         price,
		PreviousClose: previous,
		Change:        change,
		ChangePercent: pct,
	}
	if m.RegularMarketTime > 0 {
		q.MarketTime = time.Unix(m.RegularMarketTime, 0).UTC()
	}
	return q
}

// adaptChartHistory keys points by UTC date. Close falls back to the adjusted
// close when the raw close is missing; days with neither are skipped.
func adaptChartHistory(res *chartResult) map[string]HistoryPoint {
	out := make(map[string]HistoryPoint, len(res.Timestamp))
	if len(res.Indicators.Quote) == 0 {
		return out
	}
	q := res.Indicators.Quote[0]
	var adj []*float64
	if len(res.Indicators.AdjClose) > 0 {
		adj = res.Indicators.AdjClose[0].AdjClose
	}

	for i, ts := range res.Timestamp {
		closePrice := at(q.Close, i)
		if closePrice == nil {
			closePrice = at(adj, i)
		}
		if closePrice == nil {
			continue
		}

		date := time.Unix(ts, 0).UTC().Format(time.DateOnly)
		point := HistoryPoint{
			Date:  date,
			Open:  decimalOrZero(at(q.Open, i)),
			High:  decimalOrZero(at(q.High, i)),
			Low:   decimalOrZero(at(q.Low, i)),
			Close: decimal.NewFromFloat(*closePrice),
		}
		if v := at(q.Volume, i); v != nil {
			point.Volume = *v
		}
		out[date] = point
	}
	return out
}

// adaptSearch keeps only NSE (.NS) and BSE (.BSE) listings.
func adaptSearch(res searchResponse) []SearchMatch {
	out := make([]SearchMatch, 0, len(res.Quotes))
	for _, q := range res.Quotes {
		if !strings.HasSuffix(q.Symbol, ".NS") && !strings.HasSuffix(q.Symbol, ".BSE") {
			continue
		}
		name := q.ShortName
		if name == "" {
			name = q.LongName
		}
		if name == "" {
			name = "Unknown"
		}
		out = append(out, SearchMatch{Symbol: q.Symbol, Name: name, Exchange: q.Exchange})
	}
	return out
}

func at[T any](values []*T, i int) *T {
	if i < len(values) {
		return values[i]
	}
	return nil
}

func decimalOrZero(v *float64) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*v)
}
