package pii

import (
	"github.com/finqa/ragqa/pkg/models"
)

// Anonymizer wraps Anonymize with the deployment's default strategy,
// placeholder, and minimum confidence score, and converts results into the
// models.PIIEntity audit shape the Document/Chunk metadata carries.
type Anonymizer struct {
	Enabled     bool
	Strategy    Strategy
	Placeholder string
	MinScore    float64
}

// New builds an Anonymizer from the ambient PII configuration.
func New(enabled bool, strategy, placeholder string, minScore float64) *Anonymizer {
	return &Anonymizer{
		Enabled:     enabled,
		Strategy:    Strategy(strategy),
		Placeholder: placeholder,
		MinScore:    minScore,
	}
}

// Run anonymizes text per the Anonymizer's configuration. If the
// Anonymizer is disabled, text is returned unchanged with no entities.
func (a *Anonymizer) Run(text string) (string, []models.PIIEntity) {
	if a == nil || !a.Enabled {
		return text, nil
	}
	res := Anonymize(text, a.Strategy, a.Placeholder, a.MinScore)
	entities := make([]models.PIIEntity, 0, len(res.Entities))
	for _, e := range res.Entities {
		entities = append(entities, models.PIIEntity{
			Type:         string(e.Type),
			Score:        e.Score,
			Start:        e.Start,
			End:          e.End,
			OriginalText: e.OriginalText,
		})
	}
	return res.Text, entities
}
