package services

import (
	"strings"
	"testing"
)

func TestNarrativeDegradedCount(t *testing.T) {
	svc := NewRefinementService(testLogger(t))

	got := svc.Narrative(&ExtractionResult{}, nil)
	if !strings.Contains(got, "indisponible") {
		t.Fatalf("degraded narrative: %q", got)
	}
}

func TestNarrativeDeliveryMessages(t *testing.T) {
	svc := NewRefinementService(testLogger(t))

	zero := svc.Narrative(&ExtractionResult{}, &CountResult{CountLegal: 0})
	if !strings.Contains(zero, "Aucune entreprise") {
		t.Fatalf("zero narrative: %q", zero)
	}

	few := svc.Narrative(&ExtractionResult{}, &CountResult{CountLegal: 7})
	if !strings.Contains(few, "Parfait") || !strings.Contains(few, "7") {
		t.Fatalf("small narrative: %q", few)
	}

	some := svc.Narrative(&ExtractionResult{}, &CountResult{CountLegal: 120})
	if !strings.Contains(some, "120") || strings.Contains(some, "Parfait") {
		t.Fatalf("medium narrative: %q", some)
	}
}

func TestNarrativeAsksForFirstMissingCriterion(t *testing.T) {
	svc := NewRefinementService(testLogger(t))

	// Localisation missing: the question targets it first.
	extraction := &ExtractionResult{
		Activite: ActivityCriteria{Present: true, LibelleSecteur: strPtr("restauration")},
	}
	got := svc.Narrative(extraction, &CountResult{CountLegal: 12000})
	if !strings.Contains(got, "région") {
		t.Fatalf("expected localisation question: %q", got)
	}
	if !strings.Contains(got, "12000") {
		t.Fatalf("question must carry the count: %q", got)
	}

	// Localisation present, size missing: next priority.
	extraction.Localisation = LocationCriteria{Present: true, Region: strPtr("Bretagne")}
	got = svc.Narrative(extraction, &CountResult{CountLegal: 12000})
	if !strings.Contains(got, "taille") {
		t.Fatalf("expected size question: %q", got)
	}
}

func TestNarrativeGenericQuestionWhenAllCriteriaPresent(t *testing.T) {
	svc := NewRefinementService(testLogger(t))

	extraction := &ExtractionResult{
		Localisation:       LocationCriteria{Present: true},
		Activite:           ActivityCriteria{Present: true},
		TailleEntreprise:   SizeCriteria{Present: true},
		CriteresFinanciers: FinancialCriteria{Present: true},
		CriteresJuridiques: LegalCriteria{Present: true},
	}
	got := svc.Narrative(extraction, &CountResult{CountLegal: 9999})
	if !strings.Contains(got, "affiner") {
		t.Fatalf("expected generic refinement question: %q", got)
	}
}

func TestNeedsRefinementThreshold(t *testing.T) {
	t.Setenv("REFINEMENT_THRESHOLD", "100")
	svc := NewRefinementService(testLogger(t))

	if svc.NeedsRefinement(100) {
		t.Fatalf("count at threshold should not refine")
	}
	if !svc.NeedsRefinement(101) {
		t.Fatalf("count above threshold should refine")
	}
}
