package services

import (
	"reflect"
	"testing"
)

func TestTransformEmployeeSizes(t *testing.T) {
	got := TransformEmployeeSizes([]string{"0 salarie", "10 a 19 salaries", "10 000 salaries et plus"})
	want := []string{"0 employees", "10 to 19 employees", "10000+ employees"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("TransformEmployeeSizes: want=%v got=%v", want, got)
	}
}

func TestTransformEmployeeSizesDropsUnknownBands(t *testing.T) {
	got := TransformEmployeeSizes([]string{"42 salaries", "20 a 49 salaries"})
	want := []string{"20 to 49 employees"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("TransformEmployeeSizes: want=%v got=%v", want, got)
	}
}

func TestTransformEmployeeSizesCaseInsensitiveRetry(t *testing.T) {
	got := TransformEmployeeSizes([]string{"0 Salarie"})
	want := []string{"0 employees"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("TransformEmployeeSizes: want=%v got=%v", want, got)
	}
}

func TestIsValidRegion(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"Bretagne", true},
		{"bretagne", true},
		{"Île-de-France", true},
		{"Auvergne-Rhône-Alpes", true},
		{"Atlantide", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsValidRegion(tc.in); got != tc.want {
			t.Fatalf("IsValidRegion(%q): want=%v got=%v", tc.in, tc.want, got)
		}
	}
}

func TestBuildCountRequestLocation(t *testing.T) {
	extraction := &ExtractionResult{
		Localisation: LocationCriteria{
			Present:     true,
			Region:      strPtr("Bretagne"),
			Commune:     strPtr("Rennes"),
			CodePostal:  strPtr("35000"),
			Departement: strPtr("35"),
		},
	}
	req := BuildCountRequest(extraction, nil)

	if !req.Location.Present {
		t.Fatalf("location should be present")
	}
	if !reflect.DeepEqual(req.Location.Region, []string{"Bretagne"}) {
		t.Fatalf("region: %v", req.Location.Region)
	}
	if !reflect.DeepEqual(req.Location.City, []string{"Rennes"}) {
		t.Fatalf("city: %v", req.Location.City)
	}
	if !reflect.DeepEqual(req.Location.PostCode, []string{"35000"}) {
		t.Fatalf("post_code: %v", req.Location.PostCode)
	}
}

func TestBuildCountRequestDropsInvalidRegion(t *testing.T) {
	extraction := &ExtractionResult{
		Localisation: LocationCriteria{Present: true, Region: strPtr("Atlantide")},
	}
	req := BuildCountRequest(extraction, nil)
	if req.Location.Region != nil {
		t.Fatalf("invalid region should be dropped, got %v", req.Location.Region)
	}
}

func TestBuildCountRequestActivityCodes(t *testing.T) {
	extraction := &ExtractionResult{
		Activite: ActivityCriteria{Present: true, LibelleSecteur: strPtr("boulangerie")},
	}
	req := BuildCountRequest(extraction, []string{"10.71C", "10.71D"})

	if !reflect.DeepEqual(req.Activity.ActivityCodesList, []string{"10.71C", "10.71D"}) {
		t.Fatalf("activity_codes_list: %v", req.Activity.ActivityCodesList)
	}
	if req.Activity.OriginalActivityRequest != "boulangerie" {
		t.Fatalf("original_activity_request: %q", req.Activity.OriginalActivityRequest)
	}
}

func TestBuildCountRequestExplicitNAFCodeFallback(t *testing.T) {
	extraction := &ExtractionResult{
		Activite: ActivityCriteria{Present: true, ActiviteEntreprise: strPtr("6201Z")},
	}
	req := BuildCountRequest(extraction, nil)

	if !reflect.DeepEqual(req.Activity.ActivityCodesList, []string{"6201Z"}) {
		t.Fatalf("explicit NAF code not used: %v", req.Activity.ActivityCodesList)
	}
}

func TestBuildCountRequestEmptyCodesStillValid(t *testing.T) {
	extraction := &ExtractionResult{
		Activite: ActivityCriteria{Present: true, LibelleSecteur: strPtr("artisanat rare")},
	}
	req := BuildCountRequest(extraction, []string{})

	if !req.Activity.Present {
		t.Fatalf("activity should stay present without codes")
	}
	if req.Activity.ActivityCodesList == nil || len(req.Activity.ActivityCodesList) != 0 {
		t.Fatalf("activity_codes_list: want empty list got=%v", req.Activity.ActivityCodesList)
	}
}

func TestBuildCountRequestAcronymExpansion(t *testing.T) {
	extraction := &ExtractionResult{
		TailleEntreprise: SizeCriteria{Present: true, Acronyme: strPtr("pme")},
	}
	req := BuildCountRequest(extraction, nil)

	want := []string{
		"10 to 19 employees",
		"20 to 49 employees",
		"50 to 99 employees",
		"100 to 199 employees",
		"200 to 249 employees",
	}
	if !reflect.DeepEqual(req.CompanySize.EmployeesNumberRange, want) {
		t.Fatalf("employees_number_range: %v", req.CompanySize.EmployeesNumberRange)
	}
}

func TestBuildCountRequestBandsWinOverAcronym(t *testing.T) {
	extraction := &ExtractionResult{
		TailleEntreprise: SizeCriteria{
			Present:         true,
			TrancheEffectif: []string{"0 salarie"},
			Acronyme:        strPtr("GE"),
		},
	}
	req := BuildCountRequest(extraction, nil)
	if !reflect.DeepEqual(req.CompanySize.EmployeesNumberRange, []string{"0 employees"}) {
		t.Fatalf("explicit bands should win: %v", req.CompanySize.EmployeesNumberRange)
	}
}

func TestBuildCountRequestFinancialAndLegal(t *testing.T) {
	extraction := &ExtractionResult{
		CriteresFinanciers: FinancialCriteria{
			Present:               true,
			CAPlusRecent:          f64Ptr(1000000),
			ResultatNetPlusRecent: f64Ptr(50000),
		},
		CriteresJuridiques: LegalCriteria{
			Present:         true,
			SiegeEntreprise: strPtr("Oui"),
			Capital:         f64Ptr(10000),
		},
	}
	req := BuildCountRequest(extraction, nil)

	if req.FinancialCriteria.Turnover == nil || *req.FinancialCriteria.Turnover != 1000000 {
		t.Fatalf("turnover: %v", req.FinancialCriteria.Turnover)
	}
	if req.FinancialCriteria.NetProfit == nil || *req.FinancialCriteria.NetProfit != 50000 {
		t.Fatalf("net_profit: %v", req.FinancialCriteria.NetProfit)
	}
	if req.LegalCriteria.Headquarters == nil || !*req.LegalCriteria.Headquarters {
		t.Fatalf("headquarters: %v", req.LegalCriteria.Headquarters)
	}
	if req.LegalCriteria.CapitalThresholdSup == nil || !*req.LegalCriteria.CapitalThresholdSup {
		t.Fatalf("capital_threshold_sup: %v", req.LegalCriteria.CapitalThresholdSup)
	}
}

func TestBuildCountRequestNilExtraction(t *testing.T) {
	req := BuildCountRequest(nil, []string{"10.71C"})
	if req.Location.Present || req.Activity.Present || req.CompanySize.Present {
		t.Fatalf("nil extraction should yield empty request: %+v", req)
	}
}

func TestLooksLikeNAFCode(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"6201Z", true},
		{"1071C", true},
		{"6201z", true},
		{"62.01Z", false},
		{"restauration", false},
		{"620Z", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := looksLikeNAFCode(tc.in); got != tc.want {
			t.Fatalf("looksLikeNAFCode(%q): want=%v got=%v", tc.in, tc.want, got)
		}
	}
}
