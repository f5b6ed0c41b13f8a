package evaluation

import (
	"fmt"
	"math"
	"strconv"

	"github.com/spigell/cv-screener/internal/util"
)

// ScoreFloor is the absolute minimum fused score. Anything lower is rejected
// whatever the oracle proposed.
const ScoreFloor = 50

// Weights of the four match components. They must sum to 1.
type Weights struct {
	Skills       float64 `mapstructure:"skills" json:"skills"`
	Domain       float64 `mapstructure:"domain" json:"domain"`
	Experience   float64 `mapstructure:"experience" json:"experience"`
	JDSimilarity float64 `mapstructure:"jd-similarity" json:"jd_similarity"`
}

// DefaultWeights favour skills and JD similarity.
func DefaultWeights() Weights {
	return Weights{Skills: 0.3, Domain: 0.2, Experience: 0.2, JDSimilarity: 0.3}
}

// Validate checks that every weight is non-negative and the sum is 1.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"skills":        w.Skills,
		"domain":        w.Domain,
		"experience":    w.Experience,
		"jd-similarity": w.JDSimilarity,
	} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("weight %s must be non-negative, got %v", name, v)
		}
	}

	sum := w.Skills + w.Domain + w.Experience + w.JDSimilarity
	if math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("weights must sum to 1, got %v", sum)
	}
	return nil
}

// Fuse combines the components into the final score, rounded to two decimals.
func (w Weights) Fuse(skills, domain, experience, jdSimilarity float64) float64 {
	return util.Round2(skills*w.Skills + domain*w.Domain + experience*w.Experience + jdSimilarity*w.JDSimilarity)
}

func floorReason(score float64) string {
	return fmt.Sprintf("Score below threshold (%s < %d)", strconv.FormatFloat(score, 'f', -1, 64), ScoreFloor)
}
