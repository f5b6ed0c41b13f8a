package evaluation

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed response.schema.json
var responseSchema string

var schema = mustSchema(responseSchema)

// ErrMalformedResponse wraps every structural problem with an oracle answer.
var ErrMalformedResponse = errors.New("malformed evaluation response")

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compile evaluation response schema: %v", err))
	}
	return s
}

// response is the validated oracle answer. Absent fields keep their zero value.
type response struct {
	Name              string   `mapstructure:"name"`
	JDRole            string   `mapstructure:"jd_role"`
	SkillsMatch       float64  `mapstructure:"skills_match"`
	DomainMatch       float64  `mapstructure:"domain_match"`
	ExperienceMatch   float64  `mapstructure:"experience_match"`
	Fitment           string   `mapstructure:"fitment"`
	Summary           any      `mapstructure:"summary_5_lines"`
	RedFlags          []string `mapstructure:"red_flags"`
	MissingGaps       []string `mapstructure:"missing_gaps"`
	Highlights        []string `mapstructure:"highlights"`
	ReasonsIfRejected []string `mapstructure:"reasons_if_rejected"`
	FraudDetected     bool     `mapstructure:"fraud_detected"`
	Recommendation    string   `mapstructure:"recommendation"`
	Verdict           string   `mapstructure:"verdict"`
}

func parseResponse(raw string) (*response, error) {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, strings.Join(problems, "; "))
	}

	var resp response
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &resp,
		TagName: "mapstructure",
	})
	if err != nil {
		return nil, fmt.Errorf("create response decoder: %w", err)
	}
	if err := decoder.Decode(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return &resp, nil
}

// extractJSON strips code fences and any prose around the outermost object.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end < start {
		return strings.TrimSpace(raw)
	}
	return raw[start : end+1]
}

func summaryText(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case []any:
		lines := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				lines = append(lines, strings.TrimSpace(s))
			}
		}
		return strings.Join(lines, "\n")
	default:
		return ""
	}
}
