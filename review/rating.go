package review

import "github.com/janpow77/flowinvoice-sub001/model"

// DefaultRatingMap translates the internal rating vocabulary to the one the
// FlowAudit feedback endpoint expects.
var DefaultRatingMap = RatingMap{
	model.RatingCorrect:          "CORRECT",
	model.RatingPartiallyCorrect: "PARTIAL",
	model.RatingIncorrect:        "WRONG",
}

// RatingMap maps internal ratings to external values.
type RatingMap map[model.Rating]string

// NewRatingMap builds a map from config overrides on top of DefaultRatingMap.
// Empty override values are ignored so the map stays total.
func NewRatingMap(overrides map[string]string) RatingMap {
	m := make(RatingMap, len(DefaultRatingMap))
	for k, v := range DefaultRatingMap {
		m[k] = v
	}
	for k, v := range overrides {
		if v == "" {
			continue
		}
		m[model.Rating(k)] = v
	}
	return m
}

// External returns the external value for r. Unknown ratings pass through
// unchanged.
func (m RatingMap) External(r model.Rating) string {
	if v, ok := m[r]; ok {
		return v
	}
	return string(r)
}

// ValidRating reports whether r belongs to the internal vocabulary.
func ValidRating(r model.Rating) bool {
	for _, known := range model.Ratings {
		if r == known {
			return true
		}
	}
	return false
}

// Classify picks the rating for a submission from the edit flow: any pending
// correction makes the result INCORRECT, none makes it CORRECT.
func Classify(corrections []model.FieldCorrection) model.Rating {
	if len(corrections) > 0 {
		return model.RatingIncorrect
	}
	return model.RatingCorrect
}
