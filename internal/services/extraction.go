package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/firmoscope/backend/internal/platform/logger"
	"github.com/firmoscope/backend/internal/platform/openrouter"
)

// ExtractionResult holds the five criteria groups extracted from the
// canonical query. Field names follow the completion contract; a group with
// Present=false carries only nil fields.
type ExtractionResult struct {
	Localisation       LocationCriteria  `json:"localisation"`
	Activite           ActivityCriteria  `json:"activite"`
	TailleEntreprise   SizeCriteria      `json:"taille_entreprise"`
	CriteresFinanciers FinancialCriteria `json:"criteres_financiers"`
	CriteresJuridiques LegalCriteria     `json:"criteres_juridiques"`
}

type LocationCriteria struct {
	Present     bool    `json:"present"`
	CodePostal  *string `json:"code_postal"`
	Departement *string `json:"departement"`
	Region      *string `json:"region"`
	Commune     *string `json:"commune"`
}

type ActivityCriteria struct {
	Present            bool    `json:"present"`
	LibelleSecteur     *string `json:"libelle_secteur"`
	ActiviteEntreprise *string `json:"activite_entreprise"`
}

type SizeCriteria struct {
	Present         bool     `json:"present"`
	TrancheEffectif []string `json:"tranche_effectif"`
	Acronyme        *string  `json:"acronyme"`
}

type FinancialCriteria struct {
	Present                bool     `json:"present"`
	CAPlusRecent           *float64 `json:"ca_plus_recent"`
	ResultatNetPlusRecent  *float64 `json:"resultat_net_plus_recent"`
	RentabilitePlusRecente *float64 `json:"rentabilite_plus_recente"`
}

type LegalCriteria struct {
	Present                 bool     `json:"present"`
	CategorieJuridique      *string  `json:"categorie_juridique"`
	SiegeEntreprise         *string  `json:"siege_entreprise"`
	DateCreationEntreprise  *string  `json:"date_creation_entreprise"`
	Capital                 *float64 `json:"capital"`
	DateChangementDirigeant *string  `json:"date_changement_dirigeant"`
	NombreEtablissements    *int     `json:"nombre_etablissements"`
}

// Normalize enforces the group invariant: Present=false wipes every typed
// field, whatever the completion service returned.
func (r *ExtractionResult) Normalize() {
	if !r.Localisation.Present {
		r.Localisation = LocationCriteria{}
	}
	if !r.Activite.Present {
		r.Activite = ActivityCriteria{}
	}
	if !r.TailleEntreprise.Present {
		r.TailleEntreprise = SizeCriteria{}
	}
	if !r.CriteresFinanciers.Present {
		r.CriteresFinanciers = FinancialCriteria{}
	}
	if !r.CriteresJuridiques.Present {
		r.CriteresJuridiques = LegalCriteria{}
	}
}

// ActivityPhrase returns the free-text activity description to resolve
// against the catalog, favoring the sector wording over a raw code.
func (r *ExtractionResult) ActivityPhrase() string {
	if !r.Activite.Present {
		return ""
	}
	if r.Activite.LibelleSecteur != nil {
		if phrase := strings.TrimSpace(*r.Activite.LibelleSecteur); phrase != "" {
			return phrase
		}
	}
	if r.Activite.ActiviteEntreprise != nil {
		return strings.TrimSpace(*r.Activite.ActiviteEntreprise)
	}
	return ""
}

// ExtractionOutcome is the tagged result of one extraction call. Rejection
// is an expected branch, not an error.
type ExtractionOutcome struct {
	Rejected bool
	Message  string
	Result   *ExtractionResult
}

type Extractor interface {
	Extract(ctx context.Context, query string) (ExtractionOutcome, error)
}

const extractorSystemPrompt = `Tu es un agent intelligent pour rechercher des entreprises françaises.

MISSION
-------
Extrais les critères de recherche de la requête utilisateur.
Si la requête est trop vague (aucun critère exploitable), rejette-la.

CRITÈRES EXPLOITABLES
---------------------
- Secteur/activité : restauration, informatique, BTP, santé, conseil, industrie...
- Localisation : région, département, ville, code postal
- Critères financiers : CA, résultat net, rentabilité avec montant
- Taille : TPE/PME/ETI/GE ou nombre de salariés

REQUÊTES TROP VAGUES (à rejeter)
--------------------------------
- "bonjour", "aide-moi", "help"
- "je cherche une entreprise" (sans aucun critère)
- Questions hors-sujet (météo, recettes, etc.)

FORMAT DE SORTIE JSON
---------------------
Si la requête contient AU MOINS UN critère exploitable :
{
  "action": "extract",
  "localisation": {"present": true/false, "code_postal": string ou null, "departement": string ou null, "region": string ou null, "commune": string ou null},
  "activite": {"present": true/false, "libelle_secteur": string ou null, "activite_entreprise": string ou null},
  "taille_entreprise": {"present": true/false, "tranche_effectif": array of strings ou null, "acronyme": string ou null},
  "criteres_financiers": {"present": true/false, "ca_plus_recent": number ou null, "resultat_net_plus_recent": number ou null, "rentabilite_plus_recente": number ou null},
  "criteres_juridiques": {"present": true/false, "categorie_juridique": string ou null, "siege_entreprise": string ou null, "date_creation_entreprise": string ou null, "capital": number ou null, "date_changement_dirigeant": string ou null, "nombre_etablissements": number ou null}
}

Si la requête est TROP VAGUE (aucun critère) :
{
  "action": "reject",
  "message": "Message expliquant ce que l'utilisateur peut rechercher"
}

RÈGLES D'EXTRACTION
-------------------
- libelle_secteur : reprendre le terme utilisé (restauration, informatique...)
- activite_entreprise : code NAF UNIQUEMENT si explicitement mentionné, sinon null
- Ne jamais inventer de valeurs non mentionnées
- Dates : format "YYYY-MM-DD"
- Nombres : retirer les espaces, "€", "k", "K", "M" (ex: "100 k€" -> 100000)

TRANCHES D'EFFECTIF INSEE
-------------------------
- MIC/TPE -> ["0 salarie", "1 ou 2 salaries", "3 a 5 salaries", "6 a 9 salaries"]
- PME -> ["10 a 19 salaries", "20 a 49 salaries", "50 a 99 salaries", "100 a 199 salaries", "200 a 249 salaries"]
- ETI -> ["250 a 499 salaries", "500 a 999 salaries", "1 000 a 1 999 salaries", "2 000 a 4 999 salaries"]
- GE -> ["5 000 a 9 999 salaries", "10 000 salaries et plus"]
- 0-9 salariés -> acronyme "TPE", 10-249 -> "PME", 250-4999 -> "ETI", 5000+ -> "GE"

IMPORTANT : tranche_effectif doit être un ARRAY de strings.
Réponds UNIQUEMENT avec le JSON, sans texte autour.`

const defaultRejectMessage = "Pouvez-vous préciser votre recherche ? (secteur d'activité, localisation, taille...)"

type extractor struct {
	log *logger.Logger
	llm openrouter.Client
}

func NewExtractor(log *logger.Logger, llm openrouter.Client) Extractor {
	return &extractor{
		log: log.With("service", "Extractor"),
		llm: llm,
	}
}

func (e *extractor) Extract(ctx context.Context, query string) (ExtractionOutcome, error) {
	req := openrouter.ChatRequest{
		Messages: []openrouter.Message{
			{Role: "system", Content: extractorSystemPrompt},
			{Role: "user", Content: query},
		},
		JSONMode:    true,
		Temperature: 0,
	}

	outcome, err := e.extractOnce(ctx, req)
	if err == nil {
		return outcome, nil
	}
	if KindOf(err) != KindExtractionMalformed || ctx.Err() != nil {
		return ExtractionOutcome{}, err
	}

	// One retry with identical input before the turn fails.
	e.log.Warn("Extraction response malformed, retrying once", "error", err)
	outcome, retryErr := e.extractOnce(ctx, req)
	if retryErr != nil {
		return ExtractionOutcome{}, retryErr
	}
	return outcome, nil
}

func (e *extractor) extractOnce(ctx context.Context, req openrouter.ChatRequest) (ExtractionOutcome, error) {
	content, err := e.llm.Complete(ctx, req)
	if err != nil {
		return ExtractionOutcome{}, serviceErr(KindExtractionMalformed, "completion call failed", err)
	}

	cleaned := cleanJSONContent(content)

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &envelope); err != nil {
		return ExtractionOutcome{}, serviceErr(KindExtractionMalformed, "response is not a JSON object", err)
	}

	action := "extract"
	if raw, ok := envelope["action"]; ok {
		_ = json.Unmarshal(raw, &action)
	}
	if action == "reject" {
		message := defaultRejectMessage
		if raw, ok := envelope["message"]; ok {
			var m string
			if err := json.Unmarshal(raw, &m); err == nil && strings.TrimSpace(m) != "" {
				message = m
			}
		}
		return ExtractionOutcome{Rejected: true, Message: message}, nil
	}

	if err := requireGroups(envelope); err != nil {
		return ExtractionOutcome{}, err
	}

	var result ExtractionResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return ExtractionOutcome{}, serviceErr(KindExtractionMalformed, "criteria groups do not decode", err)
	}
	result.Normalize()

	return ExtractionOutcome{Result: &result}, nil
}

// requireGroups checks that every criteria group is present and declares a
// boolean "present" flag before the typed decode runs.
func requireGroups(envelope map[string]json.RawMessage) error {
	groups := []string{"localisation", "activite", "taille_entreprise", "criteres_financiers", "criteres_juridiques"}
	for _, group := range groups {
		raw, ok := envelope[group]
		if !ok {
			return serviceErr(KindExtractionMalformed, "missing criteria group "+group, nil)
		}
		var probe struct {
			Present *bool `json:"present"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			return serviceErr(KindExtractionMalformed, "criteria group "+group+" is not an object", err)
		}
		if probe.Present == nil {
			return serviceErr(KindExtractionMalformed, "criteria group "+group+" does not declare present", nil)
		}
	}
	return nil
}

// cleanJSONContent strips markdown code fences and any text surrounding the
// outermost JSON object.
func cleanJSONContent(content string) string {
	cleaned := strings.TrimSpace(content)

	if strings.HasPrefix(cleaned, "```") {
		lines := strings.Split(cleaned, "\n")
		if len(lines) > 0 && strings.HasPrefix(lines[0], "```") {
			lines = lines[1:]
		}
		if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
			lines = lines[:len(lines)-1]
		}
		cleaned = strings.TrimSpace(strings.Join(lines, "\n"))
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start != -1 && end > start {
		cleaned = cleaned[start : end+1]
	}
	return cleaned
}
