package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/firmoscope/backend/internal/cache"
)

func newTestCountClient(t *testing.T, handler http.HandlerFunc) CountClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	t.Setenv("COUNT_API_URL", server.URL)
	t.Setenv("COUNT_API_KEY", "test-key")

	client, err := NewCountClient(testLogger(t), cache.NewNoopCountCache())
	if err != nil {
		t.Fatalf("NewCountClient: %v", err)
	}
	return client
}

func TestCountSuccess(t *testing.T) {
	var gotPath, gotKey string
	var gotBody CountRequest
	client := newTestCountClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-API-Key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{"count_legal": 230, "count_semantic": 180})
	})

	req := BuildCountRequest(&ExtractionResult{
		Localisation: LocationCriteria{Present: true, Region: strPtr("Bretagne")},
	}, nil)
	result, err := client.Count(context.Background(), req)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if result.CountLegal != 230 {
		t.Fatalf("count_legal: %d", result.CountLegal)
	}
	if result.CountSemantic == nil || *result.CountSemantic != 180 {
		t.Fatalf("count_semantic: %v", result.CountSemantic)
	}
	if gotPath != "/count_bot_v1" {
		t.Fatalf("path: %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Fatalf("api key header: %q", gotKey)
	}
	if !gotBody.Location.Present {
		t.Fatalf("request body lost location: %+v", gotBody)
	}
}

func TestCountStatusMapping(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"unauthorized", http.StatusUnauthorized, "", "unauthorized"},
		{"bad request", http.StatusBadRequest, `{"detail": "missing field"}`, "bad count request"},
		{"criteria mismatch", 456, "", "criteria mismatch"},
		{"server error", http.StatusInternalServerError, "boom", "status=500"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestCountClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := client.Count(context.Background(), CountRequest{})
			if !hasKind(err, KindCountServiceFailure) {
				t.Fatalf("kind: want=%s got=%v", KindCountServiceFailure, err)
			}
			if msg := err.Error(); !strings.Contains(msg, tc.wantMsg) {
				t.Fatalf("message: want substring %q got %q", tc.wantMsg, msg)
			}
		})
	}
}

func TestCountUnreachable(t *testing.T) {
	t.Setenv("COUNT_API_URL", "http://127.0.0.1:1")
	t.Setenv("COUNT_API_KEY", "test-key")
	client, err := NewCountClient(testLogger(t), cache.NewNoopCountCache())
	if err != nil {
		t.Fatalf("NewCountClient: %v", err)
	}

	_, err = client.Count(context.Background(), CountRequest{})
	if !hasKind(err, KindCountServiceFailure) {
		t.Fatalf("kind: want=%s got=%v", KindCountServiceFailure, err)
	}
}

func TestCountRequiresBaseURL(t *testing.T) {
	t.Setenv("COUNT_API_URL", "")
	if _, err := NewCountClient(testLogger(t), cache.NewNoopCountCache()); err == nil {
		t.Fatalf("expected error without COUNT_API_URL")
	}
}

func TestCountUsesCache(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]any{"count_legal": 12})
	}))
	t.Cleanup(server.Close)

	t.Setenv("COUNT_API_URL", server.URL)
	t.Setenv("COUNT_API_KEY", "test-key")
	client, err := NewCountClient(testLogger(t), &memoryCountCache{values: map[string][]byte{}})
	if err != nil {
		t.Fatalf("NewCountClient: %v", err)
	}

	req := CountRequest{Location: CountLocation{Present: true, Region: []string{"Bretagne"}}}
	if _, err := client.Count(context.Background(), req); err != nil {
		t.Fatalf("first Count: %v", err)
	}
	if _, err := client.Count(context.Background(), req); err != nil {
		t.Fatalf("second Count: %v", err)
	}
	if calls != 1 {
		t.Fatalf("backend calls: want=1 got=%d", calls)
	}
}

// memoryCountCache is a map-backed CountCache for tests.
type memoryCountCache struct {
	values map[string][]byte
}

func (m *memoryCountCache) Get(_ context.Context, criteria any, out any) bool {
	key, err := json.Marshal(criteria)
	if err != nil {
		return false
	}
	raw, ok := m.values[string(key)]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func (m *memoryCountCache) Set(_ context.Context, criteria any, value any) {
	key, err := json.Marshal(criteria)
	if err != nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	m.values[string(key)] = raw
}

func (m *memoryCountCache) Close() error { return nil }
