package signal

import (
	"math"
	"time"

	"binary_bot/internal/models"
)

const (
	BaseConfidence = 0.5
	MaxConfidence  = 0.95
)

// Generator folds an ordered rule list into a prediction.
type Generator struct {
	rules []Rule
	now   func() time.Time
}

func NewGenerator(rules []Rule) *Generator {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Generator{rules: rules, now: time.Now}
}

// Predict returns false while the snapshot carries no data.
func (g *Generator) Predict(snapshot models.IndicatorSnapshot, recent []models.Trade, enableML bool) (models.Prediction, bool) {
	if !snapshot.Ready {
		return models.Prediction{}, false
	}

	in := Input{Snapshot: snapshot, Recent: recent, EnableML: enableML}
	p := models.Prediction{
		Direction:  models.DirectionUp,
		Confidence: BaseConfidence,
		Factors:    make([]string, 0, len(g.rules)),
		At:         g.now(),
	}
	for _, r := range g.rules {
		if !r.Match(in) {
			continue
		}
		p.Confidence += r.Adjust
		p.Direction = r.Override.apply(p.Direction)
		p.Factors = append(p.Factors, r.Name)
	}
	p.Confidence = math.Max(0, math.Min(MaxConfidence, p.Confidence))
	return p, true
}
