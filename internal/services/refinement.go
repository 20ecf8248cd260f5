package services

import (
	"fmt"

	"github.com/firmoscope/backend/internal/platform/envutil"
	"github.com/firmoscope/backend/internal/platform/logger"
)

// refinementPriority is the order in which missing criteria groups get
// asked about when the result set is too large.
var refinementPriority = []string{
	"localisation",
	"taille_entreprise",
	"criteres_financiers",
	"criteres_juridiques",
}

var refinementQuestions = map[string]string{
	"localisation":        "J'ai trouvé %d entreprises. Dans quelle région, département ou ville souhaitez-vous chercher ?",
	"taille_entreprise":   "J'ai trouvé %d entreprises. Quelle taille vous intéresse ? (TPE, PME, ETI, grand groupe)",
	"criteres_financiers": "J'ai trouvé %d entreprises. Avez-vous un critère de chiffre d'affaires minimum ?",
	"criteres_juridiques": "J'ai trouvé %d entreprises. Voulez-vous filtrer uniquement les sièges sociaux ?",
}

// RefinementService phrases the assistant narrative around a count: a
// follow-up question when the count exceeds the threshold, a delivery
// message otherwise. It never influences the engine's accept/reject
// decision.
type RefinementService struct {
	log       *logger.Logger
	threshold int64
}

func NewRefinementService(log *logger.Logger) *RefinementService {
	return &RefinementService{
		log:       log.With("service", "RefinementService"),
		threshold: int64(envutil.GetEnvAsInt("REFINEMENT_THRESHOLD", 500, log)),
	}
}

func (r *RefinementService) Threshold() int64 {
	return r.threshold
}

func (r *RefinementService) NeedsRefinement(count int64) bool {
	return count > r.threshold
}

// Narrative builds the assistant message for a resolved turn. A nil count
// means the count service was degraded.
func (r *RefinementService) Narrative(extraction *ExtractionResult, count *CountResult) string {
	if count == nil {
		return "Critères extraits, mais le décompte d'entreprises est momentanément indisponible."
	}
	if r.NeedsRefinement(count.CountLegal) {
		return r.refinementQuestion(extraction, count.CountLegal)
	}
	return r.deliveryMessage(count.CountLegal)
}

func (r *RefinementService) refinementQuestion(extraction *ExtractionResult, count int64) string {
	for _, criterion := range missingCriteria(extraction) {
		if template, ok := refinementQuestions[criterion]; ok {
			return fmt.Sprintf(template, count)
		}
	}
	return fmt.Sprintf(
		"J'ai trouvé %d entreprises, ce qui est beaucoup. Pouvez-vous préciser vos critères pour affiner la recherche ?",
		count,
	)
}

func (r *RefinementService) deliveryMessage(count int64) string {
	switch {
	case count == 0:
		return "Aucune entreprise ne correspond à ces critères. Essayez d'élargir votre recherche (région plus large, taille différente...)."
	case count <= 10:
		return fmt.Sprintf("Parfait ! J'ai trouvé %d entreprises correspondant exactement à vos critères.", count)
	default:
		return fmt.Sprintf("J'ai trouvé %d entreprises correspondant à vos critères.", count)
	}
}

func missingCriteria(extraction *ExtractionResult) []string {
	if extraction == nil {
		return refinementPriority
	}
	present := map[string]bool{
		"localisation":        extraction.Localisation.Present,
		"taille_entreprise":   extraction.TailleEntreprise.Present,
		"criteres_financiers": extraction.CriteresFinanciers.Present,
		"criteres_juridiques": extraction.CriteresJuridiques.Present,
	}
	missing := make([]string, 0, len(refinementPriority))
	for _, criterion := range refinementPriority {
		if !present[criterion] {
			missing = append(missing, criterion)
		}
	}
	return missing
}
