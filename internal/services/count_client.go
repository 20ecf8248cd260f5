package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/firmoscope/backend/internal/cache"
	"github.com/firmoscope/backend/internal/platform/envutil"
	"github.com/firmoscope/backend/internal/platform/logger"
)

// CountResult carries the primary legal-unit count and the optional
// semantic variant the count service may include.
type CountResult struct {
	CountLegal    int64  `json:"count_legal"`
	CountSemantic *int64 `json:"count_semantic,omitempty"`
}

type CountClient interface {
	Count(ctx context.Context, req CountRequest) (CountResult, error)
}

type countClient struct {
	log     *logger.Logger
	baseURL string
	apiKey  string
	http    *http.Client
	cache   cache.CountCache
}

func NewCountClient(log *logger.Logger, countCache cache.CountCache) (CountClient, error) {
	clientLog := log.With("service", "CountClient")

	baseURL := strings.TrimRight(envutil.GetEnv("COUNT_API_URL", "", log), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("missing COUNT_API_URL")
	}
	apiKey := envutil.GetEnv("COUNT_API_KEY", "", log)
	if apiKey == "" {
		clientLog.Warn("COUNT_API_KEY not set, count service will reject requests")
	}
	timeoutSeconds := envutil.GetEnvAsInt("COUNT_API_TIMEOUT_SECONDS", 60, log)

	if countCache == nil {
		countCache = cache.NewNoopCountCache()
	}

	return &countClient{
		log:     clientLog,
		baseURL: baseURL,
		apiKey:  apiKey,
		http: &http.Client{
			Timeout: time.Duration(timeoutSeconds) * time.Second,
		},
		cache: countCache,
	}, nil
}

func (c *countClient) Count(ctx context.Context, req CountRequest) (CountResult, error) {
	var cached CountResult
	if c.cache.Get(ctx, req, &cached) {
		return cached, nil
	}

	result, err := c.countLive(ctx, req)
	if err != nil {
		return CountResult{}, err
	}

	c.cache.Set(ctx, req, result)
	return result, nil
}

func (c *countClient) countLive(ctx context.Context, req CountRequest) (CountResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return CountResult{}, serviceErr(KindCountServiceFailure, "encode count request failed", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/count_bot_v1", bytes.NewReader(body))
	if err != nil {
		return CountResult{}, serviceErr(KindCountServiceFailure, "build count request failed", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return CountResult{}, serviceErr(KindCountServiceFailure, "count service timed out", err)
		}
		return CountResult{}, serviceErr(KindCountServiceFailure, "count service unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return CountResult{}, serviceErr(KindCountServiceFailure, "read count response failed", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var result CountResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return CountResult{}, serviceErr(KindCountServiceFailure, "decode count response failed", err)
		}
		return result, nil
	case http.StatusUnauthorized:
		return CountResult{}, serviceErr(KindCountServiceFailure, "unauthorized: invalid or missing count API key", nil)
	case http.StatusBadRequest:
		return CountResult{}, serviceErr(KindCountServiceFailure, fmt.Sprintf("bad count request: %s", truncateText(raw, 200)), nil)
	case 456:
		return CountResult{}, serviceErr(KindCountServiceFailure, "criteria mismatch: the provided criteria are incompatible", nil)
	default:
		return CountResult{}, serviceErr(
			KindCountServiceFailure,
			fmt.Sprintf("count service returned status=%d body=%s", resp.StatusCode, truncateText(raw, 200)),
			nil,
		)
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncateText(raw []byte, limit int) string {
	text := strings.TrimSpace(string(raw))
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
