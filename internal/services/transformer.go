package services

import (
	"strings"

	"github.com/firmoscope/backend/internal/catalog"
)

// employeeSizeMapping translates INSEE workforce band labels into the count
// service's English wording.
var employeeSizeMapping = map[string]string{
	"0 salarie":               "0 employees",
	"1 ou 2 salaries":         "1 to 2 employees",
	"3 a 5 salaries":          "3 to 5 employees",
	"6 a 9 salaries":          "6 to 9 employees",
	"10 a 19 salaries":        "10 to 19 employees",
	"20 a 49 salaries":        "20 to 49 employees",
	"50 a 99 salaries":        "50 to 99 employees",
	"100 a 199 salaries":      "100 to 199 employees",
	"200 a 249 salaries":      "200 to 249 employees",
	"250 a 499 salaries":      "250 to 499 employees",
	"500 a 999 salaries":      "500 to 999 employees",
	"1 000 a 1 999 salaries":  "1000 to 1999 employees",
	"2 000 a 4 999 salaries":  "2000 to 4999 employees",
	"5 000 a 9 999 salaries":  "5000 to 9999 employees",
	"10 000 salaries et plus": "10000+ employees",
}

// acronymBands expands a size acronym into its INSEE bands when the
// extraction carries only the acronym.
var acronymBands = map[string][]string{
	"MIC": {"0 salarie", "1 ou 2 salaries", "3 a 5 salaries", "6 a 9 salaries"},
	"TPE": {"0 salarie", "1 ou 2 salaries", "3 a 5 salaries", "6 a 9 salaries"},
	"PME": {"10 a 19 salaries", "20 a 49 salaries", "50 a 99 salaries", "100 a 199 salaries", "200 a 249 salaries"},
	"ETI": {"250 a 499 salaries", "500 a 999 salaries", "1 000 a 1 999 salaries", "2 000 a 4 999 salaries"},
	"GE":  {"5 000 a 9 999 salaries", "10 000 salaries et plus"},
}

var validRegions = []string{
	"Ile-de-France",
	"Bretagne",
	"Normandie",
	"Occitanie",
	"Nouvelle-Aquitaine",
	"Auvergne-Rhone-Alpes",
	"Provence-Alpes-Cote d'Azur",
	"Pays de la Loire",
	"Hauts-de-France",
	"Grand Est",
	"Centre-Val de Loire",
	"Bourgogne-Franche-Comte",
	"Corse",
	"Guadeloupe",
	"Martinique",
	"Guyane",
	"La Reunion",
	"Mayotte",
}

// CountRequest is the count service's wire shape.
type CountRequest struct {
	Location          CountLocation    `json:"location"`
	Activity          CountActivity    `json:"activity"`
	CompanySize       CountCompanySize `json:"company_size"`
	FinancialCriteria CountFinancial   `json:"financial_criteria"`
	LegalCriteria     CountLegal       `json:"legal_criteria"`
}

type CountLocation struct {
	Present     bool     `json:"present"`
	City        []string `json:"city,omitempty"`
	Region      []string `json:"region,omitempty"`
	Departement []string `json:"departement,omitempty"`
	PostCode    []string `json:"post_code,omitempty"`
}

type CountActivity struct {
	Present                 bool     `json:"present"`
	ActivityCodesList       []string `json:"activity_codes_list,omitempty"`
	OriginalActivityRequest string   `json:"original_activity_request,omitempty"`
}

type CountCompanySize struct {
	Present              bool     `json:"present"`
	EmployeesNumberRange []string `json:"employees_number_range,omitempty"`
}

type CountFinancial struct {
	Present   bool     `json:"present"`
	Turnover  *float64 `json:"turnover,omitempty"`
	NetProfit *float64 `json:"net_profit,omitempty"`
}

type CountLegal struct {
	Present             bool  `json:"present"`
	Headquarters        *bool `json:"headquarters,omitempty"`
	CapitalThresholdSup *bool `json:"capital_threshold_sup,omitempty"`
}

// BuildCountRequest maps an extraction plus the resolved code list into the
// count service's shape. An empty code list with Activity.Present=true means
// "no activity filter" and is a valid request.
func BuildCountRequest(extraction *ExtractionResult, codes []string) CountRequest {
	var req CountRequest
	if extraction == nil {
		return req
	}

	loc := extraction.Localisation
	req.Location.Present = loc.Present
	if loc.Present {
		req.Location.City = toList(loc.Commune)
		req.Location.Region = validatedRegions(toList(loc.Region))
		req.Location.Departement = toList(loc.Departement)
		req.Location.PostCode = toList(loc.CodePostal)
	}

	act := extraction.Activite
	req.Activity.Present = act.Present
	if act.Present {
		if len(codes) > 0 {
			req.Activity.ActivityCodesList = codes
		} else if act.ActiviteEntreprise != nil && looksLikeNAFCode(*act.ActiviteEntreprise) {
			req.Activity.ActivityCodesList = []string{*act.ActiviteEntreprise}
		} else {
			req.Activity.ActivityCodesList = []string{}
		}
		req.Activity.OriginalActivityRequest = extraction.ActivityPhrase()
	}

	size := extraction.TailleEntreprise
	req.CompanySize.Present = size.Present
	if size.Present {
		bands := size.TrancheEffectif
		if len(bands) == 0 && size.Acronyme != nil {
			bands = acronymBands[strings.ToUpper(strings.TrimSpace(*size.Acronyme))]
		}
		req.CompanySize.EmployeesNumberRange = TransformEmployeeSizes(bands)
	}

	fin := extraction.CriteresFinanciers
	req.FinancialCriteria.Present = fin.Present
	if fin.Present {
		req.FinancialCriteria.Turnover = fin.CAPlusRecent
		req.FinancialCriteria.NetProfit = fin.ResultatNetPlusRecent
	}

	legal := extraction.CriteresJuridiques
	req.LegalCriteria.Present = legal.Present
	if legal.Present {
		if legal.SiegeEntreprise != nil {
			hq := strings.EqualFold(strings.TrimSpace(*legal.SiegeEntreprise), "oui")
			req.LegalCriteria.Headquarters = &hq
		}
		if legal.Capital != nil {
			sup := true
			req.LegalCriteria.CapitalThresholdSup = &sup
		}
	}

	return req
}

// TransformEmployeeSizes maps INSEE band labels to the count service
// wording; unrecognized labels are dropped after a case-insensitive retry.
func TransformEmployeeSizes(bands []string) []string {
	out := make([]string, 0, len(bands))
	for _, band := range bands {
		if mapped, ok := employeeSizeMapping[band]; ok {
			out = append(out, mapped)
			continue
		}
		lowered := strings.ToLower(strings.TrimSpace(band))
		for internal, mapped := range employeeSizeMapping {
			if strings.ToLower(internal) == lowered {
				out = append(out, mapped)
				break
			}
		}
	}
	return out
}

// IsValidRegion reports whether name matches a known region, ignoring case
// and diacritics.
func IsValidRegion(name string) bool {
	normalized := catalog.NormalizeLabel(name)
	for _, region := range validRegions {
		if catalog.NormalizeLabel(region) == normalized {
			return true
		}
	}
	return false
}

func validatedRegions(regions []string) []string {
	out := make([]string, 0, len(regions))
	for _, region := range regions {
		if IsValidRegion(region) {
			out = append(out, region)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func looksLikeNAFCode(value string) bool {
	code := strings.TrimSpace(value)
	if len(code) != 5 {
		return false
	}
	for _, r := range code[:4] {
		if r < '0' || r > '9' {
			return false
		}
	}
	last := code[4]
	return (last >= 'A' && last <= 'Z') || (last >= 'a' && last <= 'z')
}

func toList(value *string) []string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return []string{trimmed}
}
