package services

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestUnionSelectedCodes(t *testing.T) {
	matches := []ActivityMatch{
		{Label: "Boulangerie", Codes: []string{"10.71C", "10.71D"}, Selected: true},
		{Label: "Patisserie", Codes: []string{"10.71D", "10.71B"}, Selected: true},
		{Label: "Restauration", Codes: []string{"56.10A"}, Selected: false},
	}
	got := UnionSelectedCodes(matches)
	want := []string{"10.71C", "10.71D", "10.71B"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("UnionSelectedCodes: want=%v got=%v", want, got)
	}
}

func TestUnionSelectedCodesEmptySelection(t *testing.T) {
	matches := []ActivityMatch{
		{Label: "Boulangerie", Codes: []string{"10.71C"}, Selected: false},
	}
	got := UnionSelectedCodes(matches)
	if got == nil {
		t.Fatalf("expected empty non-nil slice")
	}
	if len(got) != 0 {
		t.Fatalf("want no codes, got=%v", got)
	}

	if got := UnionSelectedCodes(nil); got == nil || len(got) != 0 {
		t.Fatalf("nil matches: want empty non-nil slice, got=%v", got)
	}
}

func TestRecomputeReflectsToggles(t *testing.T) {
	counts := &stubCounts{result: CountResult{CountLegal: 42}}
	svc := NewSelectionService(testLogger(t), counts)

	extraction := &ExtractionResult{
		Activite: ActivityCriteria{Present: true, LibelleSecteur: strPtr("boulangerie")},
	}
	matches := []ActivityMatch{
		{Label: "Boulangerie", Codes: []string{"10.71C"}, Score: 0.9, Selected: true},
		{Label: "Patisserie", Codes: []string{"10.71B"}, Score: 0.5, Selected: false},
	}

	result, err := svc.Recompute(context.Background(), extraction, matches)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if !reflect.DeepEqual(result.Codes, []string{"10.71C"}) {
		t.Fatalf("codes: %v", result.Codes)
	}
	if result.Count == nil || result.Count.CountLegal != 42 {
		t.Fatalf("count: %+v", result.Count)
	}
	if !reflect.DeepEqual(result.CountRequest.Activity.ActivityCodesList, []string{"10.71C"}) {
		t.Fatalf("count request codes: %v", result.CountRequest.Activity.ActivityCodesList)
	}
}

func TestRecomputeIsIdempotent(t *testing.T) {
	counts := &stubCounts{result: CountResult{CountLegal: 7}}
	svc := NewSelectionService(testLogger(t), counts)

	extraction := &ExtractionResult{
		Activite: ActivityCriteria{Present: true, LibelleSecteur: strPtr("conseil")},
	}
	matches := []ActivityMatch{
		{Label: "Conseil", Codes: []string{"70.22Z"}, Score: 0.8, Selected: true},
	}

	first, err := svc.Recompute(context.Background(), extraction, matches)
	if err != nil {
		t.Fatalf("first Recompute: %v", err)
	}
	second, err := svc.Recompute(context.Background(), extraction, matches)
	if err != nil {
		t.Fatalf("second Recompute: %v", err)
	}
	if !reflect.DeepEqual(first.Codes, second.Codes) {
		t.Fatalf("codes diverged: %v vs %v", first.Codes, second.Codes)
	}
	if !reflect.DeepEqual(first.CountRequest, second.CountRequest) {
		t.Fatalf("count requests diverged")
	}
	if !reflect.DeepEqual(counts.requests[0], counts.requests[1]) {
		t.Fatalf("count service saw different requests")
	}
}

func TestRecomputeCountFailureIsNonFatal(t *testing.T) {
	counts := &stubCounts{err: serviceErr(KindCountServiceFailure, "service down", errors.New("boom"))}
	svc := NewSelectionService(testLogger(t), counts)

	matches := []ActivityMatch{
		{Label: "Boulangerie", Codes: []string{"10.71C"}, Selected: true},
	}
	result, err := svc.Recompute(context.Background(), nil, matches)
	if err != nil {
		t.Fatalf("Recompute should not fail on count error: %v", err)
	}
	if result.Count != nil {
		t.Fatalf("count should be nil on failure")
	}
	if !reflect.DeepEqual(result.Codes, []string{"10.71C"}) {
		t.Fatalf("codes must survive count failure: %v", result.Codes)
	}
}

func TestRecomputeZeroSelectionMeansNoActivityFilter(t *testing.T) {
	counts := &stubCounts{result: CountResult{CountLegal: 9000}}
	svc := NewSelectionService(testLogger(t), counts)

	extraction := &ExtractionResult{
		Activite: ActivityCriteria{Present: true, LibelleSecteur: strPtr("boulangerie")},
	}
	matches := []ActivityMatch{
		{Label: "Boulangerie", Codes: []string{"10.71C"}, Selected: false},
	}
	result, err := svc.Recompute(context.Background(), extraction, matches)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if len(result.Codes) != 0 {
		t.Fatalf("codes: want none got=%v", result.Codes)
	}
	if counts.calls != 1 {
		t.Fatalf("count service should still be called, calls=%d", counts.calls)
	}
	if len(result.CountRequest.Activity.ActivityCodesList) != 0 {
		t.Fatalf("count request should carry no codes: %v", result.CountRequest.Activity.ActivityCodesList)
	}
}
