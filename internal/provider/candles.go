package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"groww-scanner/internal/model"
)

const candlesPath = "/v1/historical/candle/range"

type chunkResponse struct {
	Payload struct {
		Candles [][]interface{} `json:"candles"`
	} `json:"payload"`
	Candles [][]interface{} `json:"candles"`
}

func (r *chunkResponse) rows() [][]interface{} {
	if len(r.Payload.Candles) > 0 {
		return r.Payload.Candles
	}
	return r.Candles
}

// FetchCandles pulls [start, end) for one symbol, splitting the span
// into provider-sized chunks. Returned bars are ascending, UTC, with
// malformed rows dropped. Implements model.CandleFetcher.
func (c *Client) FetchCandles(ctx context.Context, symbol string, tf model.Timeframe, start, end time.Time) ([]model.Candle, error) {
	interval, ok := IntervalFor(tf)
	if !ok {
		return nil, fmt.Errorf("unsupported timeframe: %s", tf)
	}

	start, end = start.UTC(), end.UTC()
	if !start.Before(end) {
		return nil, nil
	}

	chunk := time.Duration(interval.MaxDays) * 24 * time.Hour
	var candles []model.Candle

	for cursor := start; cursor.Before(end); {
		chunkEnd := cursor.Add(chunk)
		if chunkEnd.After(end) {
			chunkEnd = end
		}

		rows, err := c.fetchChunk(ctx, symbol, interval, cursor, chunkEnd)
		if err != nil {
			return nil, fmt.Errorf("fetch %s %s: %w", symbol, tf, err)
		}
		candles = append(candles, normalizeCandles(symbol, tf, rows)...)
		cursor = chunkEnd
	}

	log.Printf("[provider] fetched %d %s bars for %s", len(candles), tf, symbol)
	return candles, nil
}

// fetchChunk runs one provider request under the rate limiter, retry
// policy, and circuit breaker.
func (c *Client) fetchChunk(ctx context.Context, symbol string, interval Interval, start, end time.Time) ([][]interface{}, error) {
	var rows [][]interface{}

	op := func() error {
		if c.cfg.Limiter != nil {
			if err := c.cfg.Limiter.Acquire(ctx); err != nil {
				return err
			}
		}
		out, err := c.breaker.Execute(func() (interface{}, error) {
			return c.requestChunk(ctx, symbol, interval, start, end)
		})
		if err != nil {
			return err
		}
		rows = out.([][]interface{})
		return nil
	}

	if err := c.cfg.Retry.Do(ctx, op); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) requestChunk(ctx context.Context, symbol string, interval Interval, start, end time.Time) ([][]interface{}, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("exchange", c.cfg.Exchange)
	q.Set("segment", c.cfg.Segment)
	q.Set("trading_symbol", symbol)
	q.Set("start_time", strconv.FormatInt(start.UnixMilli(), 10))
	q.Set("end_time", strconv.FormatInt(end.UnixMilli(), 10))
	q.Set("interval_in_minutes", strconv.Itoa(interval.Minutes))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+candlesPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.invalidateToken()
		return nil, fmt.Errorf("groww: token rejected (status %d)", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("groww: status %d: %s", resp.StatusCode, raw)
	}

	var out chunkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("groww: decode candles: %w", err)
	}
	return out.rows(), nil
}
