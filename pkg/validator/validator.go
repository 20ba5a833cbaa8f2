// pkg/validator/validator.go
package validator

import (
	"fmt"

	"github.com/sensorflow/pipeline/pkg/config"
	"github.com/sensorflow/pipeline/pkg/model"
	"github.com/sensorflow/pipeline/pkg/reader"
)

// Violation reason codes. Type mismatches and range violations are reported
// separately because they have different causes for the data producer.
const (
	ReasonMissingRequired = "missing_required"
	ReasonTypeMismatch    = "type_mismatch"
	ReasonOutOfRange      = "out_of_range"
)

// Violation is one failed rule for one row. A row's rejection carries every
// violation found, in rule-table order, not just the first.
type Violation struct {
	Field  string
	Code   string
	Detail string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s: %s", v.Field, v.Code, v.Detail)
}

// Validator evaluates single rows against the configured rule table. It
// holds no mutable state; ValidateRow is a pure function of the row and the
// rules.
type Validator struct {
	rules *config.ValidationRules
}

// NewValidator creates a Validator over the given rule table.
func NewValidator(rules *config.ValidationRules) *Validator {
	return &Validator{rules: rules}
}

// ValidateRow checks one parsed row. It returns the validated reading when
// every rule passes, or the full ordered list of violations otherwise.
// location_id and timestamp are required; a missing numeric field is never
// a violation by itself.
func (v *Validator) ValidateRow(row reader.Row) (*model.RawReading, []Violation) {
	var violations []Violation

	locationID, hasLocation := row[model.FieldLocationID]
	if !hasLocation {
		violations = append(violations, Violation{
			Field:  model.FieldLocationID,
			Code:   ReasonMissingRequired,
			Detail: "required field is missing or empty",
		})
	}

	reading := &model.RawReading{LocationID: locationID}

	rawTimestamp, hasTimestamp := row[model.FieldTimestamp]
	if !hasTimestamp {
		violations = append(violations, Violation{
			Field:  model.FieldTimestamp,
			Code:   ReasonMissingRequired,
			Detail: "required field is missing or empty",
		})
	} else if ts, err := parseTime(rawTimestamp); err != nil {
		violations = append(violations, Violation{
			Field:  model.FieldTimestamp,
			Code:   ReasonTypeMismatch,
			Detail: err.Error(),
		})
	} else {
		reading.Timestamp = ts
	}

	for _, rule := range v.rules.Ranges {
		raw, present := row[rule.Field]
		if !present {
			continue
		}

		if rule.Integer {
			value, err := parseInt(raw)
			if err != nil {
				violations = append(violations, Violation{
					Field:  rule.Field,
					Code:   ReasonTypeMismatch,
					Detail: err.Error(),
				})
				continue
			}
			if float64(value) < rule.Min || float64(value) > rule.Max {
				violations = append(violations, outOfRange(rule, raw))
				continue
			}
			setIntField(reading, rule.Field, value)
			continue
		}

		value, err := parseFloat(raw)
		if err != nil {
			violations = append(violations, Violation{
				Field:  rule.Field,
				Code:   ReasonTypeMismatch,
				Detail: fmt.Sprintf("'%s' is not numeric", raw),
			})
			continue
		}
		if value < rule.Min || value > rule.Max {
			violations = append(violations, outOfRange(rule, raw))
			continue
		}
		setFloatField(reading, rule.Field, value)
	}

	if len(violations) > 0 {
		return nil, violations
	}
	return reading, nil
}

func outOfRange(rule config.FieldRule, raw string) Violation {
	return Violation{
		Field:  rule.Field,
		Code:   ReasonOutOfRange,
		Detail: fmt.Sprintf("value %s out of range [%v, %v]", raw, rule.Min, rule.Max),
	}
}

func setFloatField(r *model.RawReading, field string, value float64) {
	switch field {
	case model.FieldTemperature:
		r.TemperatureCelsius = &value
	case model.FieldHumidity:
		r.HumidityPercent = &value
	case model.FieldNoiseLevel:
		r.NoiseLevelDB = &value
	case model.FieldLightingLux:
		r.LightingLux = &value
	case model.FieldCrowdDensity:
		r.CrowdDensity = &value
	case model.FieldSleepHours:
		r.SleepHours = &value
	case model.FieldMoodScore:
		r.MoodScore = &value
	}
}

func setIntField(r *model.RawReading, field string, value int64) {
	switch field {
	case model.FieldAirQuality:
		r.AirQualityIndex = &value
	case model.FieldStressLevel:
		r.StressLevel = &value
	case model.FieldMentalHealth:
		r.MentalHealthStatus = &value
	}
}
