package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Ranjiththeeti/harass/internal/models"

	"github.com/go-playground/validator/v10"
)

// ErrMalformedVerdict is returned when model output does not match the verdict schema
var ErrMalformedVerdict = errors.New("malformed verdict")

// rawVerdict is the wire shape the model must answer with
type rawVerdict struct {
	IsFlagged      *bool    `json:"is_flagged" validate:"required"`
	SafetyScore    *float64 `json:"safety_score" validate:"required,gte=0,lte=1"`
	HarassmentType *string  `json:"harassment_type" validate:"omitempty,harassment_type"`
	FlaggedReason  *string  `json:"flagged_reason"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// "" counts as absent, the struct rule decides whether absence is allowed
	_ = v.RegisterValidation("harassment_type", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || models.HarassmentType(s).Valid()
	})

	v.RegisterStructValidation(func(sl validator.StructLevel) {
		rv := sl.Current().Interface().(rawVerdict)
		if rv.IsFlagged == nil {
			return
		}

		hasType := rv.HarassmentType != nil && *rv.HarassmentType != ""
		hasReason := rv.FlaggedReason != nil && strings.TrimSpace(*rv.FlaggedReason) != ""

		if *rv.IsFlagged {
			if !hasType {
				sl.ReportError(rv.HarassmentType, "harassment_type", "HarassmentType", "required_if_flagged", "")
			}
			if !hasReason {
				sl.ReportError(rv.FlaggedReason, "flagged_reason", "FlaggedReason", "required_if_flagged", "")
			}
			return
		}

		if hasType {
			sl.ReportError(rv.HarassmentType, "harassment_type", "HarassmentType", "excluded_if_safe", "")
		}
		if hasReason {
			sl.ReportError(rv.FlaggedReason, "flagged_reason", "FlaggedReason", "excluded_if_safe", "")
		}
	}, rawVerdict{})

	return v
}

// stripCodeFence removes a surrounding ``` or ```json block
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ParseVerdict decodes raw model output into a Verdict. Unknown fields,
// missing fields, out of range scores and inconsistent flag/category
// combinations are all rejected with ErrMalformedVerdict.
func ParseVerdict(raw string) (models.Verdict, error) {
	clean := stripCodeFence(raw)

	dec := json.NewDecoder(strings.NewReader(clean))
	dec.DisallowUnknownFields()

	var rv rawVerdict
	if err := dec.Decode(&rv); err != nil {
		return models.Verdict{}, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
	}
	if dec.More() {
		return models.Verdict{}, fmt.Errorf("%w: trailing data after JSON object", ErrMalformedVerdict)
	}

	if err := validate.Struct(rv); err != nil {
		return models.Verdict{}, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
	}

	verdict := models.Verdict{
		IsFlagged:   *rv.IsFlagged,
		SafetyScore: *rv.SafetyScore,
	}

	if verdict.IsFlagged {
		t := models.HarassmentType(*rv.HarassmentType)
		reason := strings.TrimSpace(*rv.FlaggedReason)
		verdict.HarassmentType = &t
		verdict.FlaggedReason = &reason
	}

	return verdict, nil
}
