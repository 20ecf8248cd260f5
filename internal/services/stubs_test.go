package services

import (
	"context"
	"errors"
	"testing"

	"github.com/firmoscope/backend/internal/catalog"
	"github.com/firmoscope/backend/internal/platform/logger"
	"github.com/firmoscope/backend/internal/platform/openrouter"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(func() { log.Sync() })
	return log
}

type stubLLM struct {
	completions []string
	completeErr error
	calls       int

	streamChunks []string
	streamErr    error
}

func (s *stubLLM) Complete(_ context.Context, _ openrouter.ChatRequest) (string, error) {
	s.calls++
	if s.completeErr != nil {
		return "", s.completeErr
	}
	i := s.calls - 1
	if i >= len(s.completions) {
		i = len(s.completions) - 1
	}
	return s.completions[i], nil
}

func (s *stubLLM) Stream(_ context.Context, _ openrouter.ChatRequest, onDelta func(string) error) error {
	for _, chunk := range s.streamChunks {
		if err := onDelta(chunk); err != nil {
			return err
		}
	}
	return s.streamErr
}

type stubEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (s *stubEmbedder) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = s.vector
	}
	return out, nil
}

func (s *stubEmbedder) Dimension() int { return len(s.vector) }

type stubIndex struct {
	neighbors   []catalog.Neighbor
	neighborErr error
	exact       map[string]catalog.Entry
}

func (s *stubIndex) NearestNeighbors(_ context.Context, _ []float32, _ int) ([]catalog.Neighbor, error) {
	if s.neighborErr != nil {
		return nil, s.neighborErr
	}
	return s.neighbors, nil
}

func (s *stubIndex) ExactLookup(_ context.Context, phrase string) (catalog.Entry, bool, error) {
	entry, ok := s.exact[catalog.NormalizeLabel(phrase)]
	return entry, ok, nil
}

func (s *stubIndex) Len() int { return len(s.exact) + len(s.neighbors) }

type stubCounts struct {
	result   CountResult
	err      error
	calls    int
	lastReq  CountRequest
	requests []CountRequest
}

func (s *stubCounts) Count(_ context.Context, req CountRequest) (CountResult, error) {
	s.calls++
	s.lastReq = req
	s.requests = append(s.requests, req)
	if s.err != nil {
		return CountResult{}, s.err
	}
	return s.result, nil
}

type stubExtractor struct {
	outcome ExtractionOutcome
	err     error
}

func (s *stubExtractor) Extract(_ context.Context, _ string) (ExtractionOutcome, error) {
	if s.err != nil {
		return ExtractionOutcome{}, s.err
	}
	return s.outcome, nil
}

type stubResolver struct {
	matches []ActivityMatch
	err     error
	calls   int
	phrase  string
}

func (s *stubResolver) Resolve(_ context.Context, phrase string) ([]ActivityMatch, error) {
	s.calls++
	s.phrase = phrase
	if s.err != nil {
		return nil, s.err
	}
	return s.matches, nil
}

func strPtr(s string) *string { return &s }

func f64Ptr(f float64) *float64 { return &f }

func hasKind(err error, kind Kind) bool {
	var serr *ServiceError
	return errors.As(err, &serr) && serr.Kind == kind
}
