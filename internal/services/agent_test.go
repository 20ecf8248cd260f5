package services

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestMergeQuery(t *testing.T) {
	turns := []Turn{
		{Role: RoleUser, Content: "  boulangeries en Bretagne "},
		{Role: RoleAssistant, Content: "J'ai trouvé 3000 entreprises."},
		{Role: RoleUser, Content: "avec moins de 10 salariés"},
		{Role: RoleUser, Content: "   "},
	}
	got := MergeQuery(turns)
	want := "boulangeries en Bretagne\navec moins de 10 salariés"
	if got != want {
		t.Fatalf("MergeQuery: want=%q got=%q", want, got)
	}
}

func TestMergeQueryGrowsMonotonically(t *testing.T) {
	turns := []Turn{{Role: RoleUser, Content: "boulangeries"}}
	first := MergeQuery(turns)

	turns = append(turns, Turn{Role: RoleUser, Content: "en Bretagne"})
	second := MergeQuery(turns)

	if !strings.HasPrefix(second, first) {
		t.Fatalf("merged query must extend the previous one: %q then %q", first, second)
	}
}

func resolvedExtraction() ExtractionOutcome {
	return ExtractionOutcome{
		Result: &ExtractionResult{
			Localisation: LocationCriteria{Present: true, Region: strPtr("Bretagne")},
			Activite:     ActivityCriteria{Present: true, LibelleSecteur: strPtr("boulangerie")},
		},
	}
}

func TestProcessTurnResolved(t *testing.T) {
	resolver := &stubResolver{
		matches: []ActivityMatch{
			{Label: "Boulangerie", Codes: []string{"10.71C"}, Score: 0.9, Selected: true},
		},
	}
	counts := &stubCounts{result: CountResult{CountLegal: 230}}
	eng := NewEngine(testLogger(t), &stubExtractor{outcome: resolvedExtraction()}, resolver, counts)

	result, err := eng.ProcessTurn(context.Background(), []Turn{{Role: RoleUser, Content: "boulangeries en Bretagne"}}, nil)
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if result.Outcome != OutcomeResolved {
		t.Fatalf("outcome: %s", result.Outcome)
	}
	if result.State == nil || result.State.Extraction == nil {
		t.Fatalf("state missing: %+v", result)
	}
	if result.State.Count == nil || result.State.Count.CountLegal != 230 {
		t.Fatalf("count: %+v", result.State.Count)
	}
	if len(result.Degraded) != 0 {
		t.Fatalf("degraded: %v", result.Degraded)
	}
	if resolver.phrase != "boulangerie" {
		t.Fatalf("resolver phrase: %q", resolver.phrase)
	}
	if !reflect.DeepEqual(counts.lastReq.Activity.ActivityCodesList, []string{"10.71C"}) {
		t.Fatalf("count request codes: %v", counts.lastReq.Activity.ActivityCodesList)
	}
}

func TestProcessTurnRejected(t *testing.T) {
	extractor := &stubExtractor{outcome: ExtractionOutcome{Rejected: true, Message: "Précisez votre recherche."}}
	counts := &stubCounts{}
	eng := NewEngine(testLogger(t), extractor, &stubResolver{}, counts)

	result, err := eng.ProcessTurn(context.Background(), []Turn{{Role: RoleUser, Content: "bonjour"}}, nil)
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if result.Outcome != OutcomeRejected {
		t.Fatalf("outcome: %s", result.Outcome)
	}
	if result.Message != "Précisez votre recherche." {
		t.Fatalf("message: %q", result.Message)
	}
	if result.State != nil {
		t.Fatalf("rejected turn must not carry state")
	}
	if counts.calls != 0 {
		t.Fatalf("rejected turn must not hit the count service")
	}
}

func TestProcessTurnEmptyInput(t *testing.T) {
	eng := NewEngine(testLogger(t), &stubExtractor{}, &stubResolver{}, &stubCounts{})

	if _, err := eng.ProcessTurn(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for empty turn list")
	}
	if _, err := eng.ProcessTurn(context.Background(), []Turn{{Role: RoleAssistant, Content: "Bonjour"}}, nil); err == nil {
		t.Fatalf("expected error when no user turn exists")
	}
}

func TestProcessTurnExtractionFailureAborts(t *testing.T) {
	extractor := &stubExtractor{err: serviceErr(KindExtractionMalformed, "bad json", nil)}
	eng := NewEngine(testLogger(t), extractor, &stubResolver{}, &stubCounts{})

	_, err := eng.ProcessTurn(context.Background(), []Turn{{Role: RoleUser, Content: "boulangeries"}}, nil)
	if !hasKind(err, KindExtractionMalformed) {
		t.Fatalf("kind: want=%s got=%v", KindExtractionMalformed, err)
	}
}

func TestProcessTurnActivityFailureDegrades(t *testing.T) {
	resolver := &stubResolver{err: serviceErr(KindIndexUnavailable, "index down", errors.New("dial refused"))}
	counts := &stubCounts{result: CountResult{CountLegal: 50000}}
	eng := NewEngine(testLogger(t), &stubExtractor{outcome: resolvedExtraction()}, resolver, counts)

	result, err := eng.ProcessTurn(context.Background(), []Turn{{Role: RoleUser, Content: "boulangeries en Bretagne"}}, nil)
	if err != nil {
		t.Fatalf("ProcessTurn must not fail on activity degradation: %v", err)
	}
	if result.Outcome != OutcomeResolved {
		t.Fatalf("outcome: %s", result.Outcome)
	}
	if !reflect.DeepEqual(result.Degraded, []Kind{KindIndexUnavailable}) {
		t.Fatalf("degraded: %v", result.Degraded)
	}
	if result.State.Matches != nil {
		t.Fatalf("matches must be nil when resolution degrades")
	}
	// The other criteria groups still reach the count service.
	if counts.calls != 1 {
		t.Fatalf("count calls: want=1 got=%d", counts.calls)
	}
	if !reflect.DeepEqual(counts.lastReq.Location.Region, []string{"Bretagne"}) {
		t.Fatalf("location lost during degradation: %v", counts.lastReq.Location.Region)
	}
}

func TestProcessTurnCountFailureDegrades(t *testing.T) {
	resolver := &stubResolver{
		matches: []ActivityMatch{{Label: "Boulangerie", Codes: []string{"10.71C"}, Selected: true}},
	}
	counts := &stubCounts{err: serviceErr(KindCountServiceFailure, "timeout", nil)}
	eng := NewEngine(testLogger(t), &stubExtractor{outcome: resolvedExtraction()}, resolver, counts)

	result, err := eng.ProcessTurn(context.Background(), []Turn{{Role: RoleUser, Content: "boulangeries en Bretagne"}}, nil)
	if err != nil {
		t.Fatalf("ProcessTurn must not fail on count degradation: %v", err)
	}
	if result.State.Count != nil {
		t.Fatalf("count must be nil on failure")
	}
	if !reflect.DeepEqual(result.Degraded, []Kind{KindCountServiceFailure}) {
		t.Fatalf("degraded: %v", result.Degraded)
	}
	if len(result.State.Matches) != 1 {
		t.Fatalf("matches must survive count failure: %v", result.State.Matches)
	}
}

func TestProcessTurnReplacesPreviousState(t *testing.T) {
	resolver := &stubResolver{
		matches: []ActivityMatch{{Label: "Boulangerie", Codes: []string{"10.71C"}, Selected: true}},
	}
	eng := NewEngine(testLogger(t), &stubExtractor{outcome: resolvedExtraction()}, resolver, &stubCounts{})

	prev := &ResolutionState{
		Matches: []ActivityMatch{{Label: "Ancienne activité", Codes: []string{"99.99Z"}, Selected: true}},
	}
	result, err := eng.ProcessTurn(context.Background(), []Turn{{Role: RoleUser, Content: "boulangeries"}}, prev)
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	for _, m := range result.State.Matches {
		if m.Label == "Ancienne activité" {
			t.Fatalf("previous matches leaked into the new state")
		}
	}
}

func TestExtractionInputFramesConversation(t *testing.T) {
	turns := []Turn{
		{Role: RoleUser, Content: "boulangeries"},
		{Role: RoleAssistant, Content: "J'ai trouvé 8000 entreprises."},
		{Role: RoleUser, Content: "en Bretagne"},
	}
	got := extractionInput(turns, MergeQuery(turns))

	if !strings.HasPrefix(got, "CONVERSATION:\n") {
		t.Fatalf("multi-turn input must carry the conversation frame: %q", got)
	}
	if !strings.Contains(got, "Utilisateur: boulangeries") || !strings.Contains(got, "Agent: J'ai trouvé 8000 entreprises.") {
		t.Fatalf("conversation lines missing: %q", got)
	}

	single := []Turn{{Role: RoleUser, Content: "boulangeries"}}
	if got := extractionInput(single, MergeQuery(single)); got != "boulangeries" {
		t.Fatalf("single turn should pass through unframed: %q", got)
	}
}
