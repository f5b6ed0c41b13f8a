package candidate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Experience ranges offered to the recruiter.
const (
	ExperienceJunior = "0–1 yrs"
	ExperienceEarly  = "1–3 yrs"
	ExperienceMid    = "2–4 yrs"
	ExperienceSenior = "4+ yrs"
)

// DefaultThreshold is the initial value of every threshold.
const DefaultThreshold = 50

// ExperienceRanges returns the selectable experience ranges.
func ExperienceRanges() []string {
	return []string{ExperienceJunior, ExperienceEarly, ExperienceMid, ExperienceSenior}
}

// NormalizeExperience maps ASCII spellings such as "1-3 yrs" to the canonical range.
func NormalizeExperience(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "-", "–")
	s = strings.ReplaceAll(s, "—", "–")
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Replace(s, " – ", "–", 1)
	return s
}

// Thresholds are the recruiter-tuned minimums, each on a 0–100 scale.
type Thresholds struct {
	JDSimilarity float64 `mapstructure:"jd-similarity" json:"jd_similarity" validate:"min=0,max=100"`
	Skills       float64 `mapstructure:"skills" json:"skills" validate:"min=0,max=100"`
	Domain       float64 `mapstructure:"domain" json:"domain" validate:"min=0,max=100"`
	Experience   float64 `mapstructure:"experience" json:"experience" validate:"min=0,max=100"`
	FinalScore   float64 `mapstructure:"final-score" json:"final_score" validate:"min=0,max=100"`
}

// DefaultThresholds returns every threshold at DefaultThreshold.
func DefaultThresholds() Thresholds {
	return Thresholds{
		JDSimilarity: DefaultThreshold,
		Skills:       DefaultThreshold,
		Domain:       DefaultThreshold,
		Experience:   DefaultThreshold,
		FinalScore:   DefaultThreshold,
	}
}

// Job is the context of one analysis run. It is not modified after the run starts.
type Job struct {
	Description     string     `json:"description" validate:"required"`
	Role            string     `json:"role"`
	Domain          string     `json:"domain"`
	Skills          string     `json:"skills"`
	ExperienceRange string     `json:"experience_range" validate:"required,experience"`
	Thresholds      Thresholds `json:"thresholds"`
	TopN            int        `json:"top_n" validate:"gte=0"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("experience", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for _, r := range ExperienceRanges() {
			if value == r {
				return true
			}
		}
		return false
	})
	return v
}

// Validate normalizes the experience range and checks all bounds.
func (j *Job) Validate() error {
	if j == nil {
		return errors.New("job context is required")
	}
	j.ExperienceRange = NormalizeExperience(j.ExperienceRange)

	if err := validate.Struct(j); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid job context: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid job context: %w", err)
	}
	return nil
}
