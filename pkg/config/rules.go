// pkg/config/rules.go
package config

import (
	"fmt"
	"strings"

	"github.com/sensorflow/pipeline/pkg/model"
)

// FieldRule bounds one numeric field, inclusive on both ends. Integer
// fields treat fractional values as type mismatches rather than range
// violations.
type FieldRule struct {
	Field   string
	Min     float64
	Max     float64
	Integer bool
}

// ValidationRules is the ordered range-rule table applied to every incoming
// row. Table order determines the order in which violations are reported.
// location_id and timestamp are required structurally and are not part of
// this table.
type ValidationRules struct {
	Ranges []FieldRule
}

// LoadValidationRules builds the rule table from built-in defaults, with
// each bound overridable through <FIELD>_MIN / <FIELD>_MAX environment
// variables (for example TEMPERATURE_CELSIUS_MAX).
func LoadValidationRules() *ValidationRules {
	defaults := []FieldRule{
		{Field: model.FieldTemperature, Min: -50, Max: 60},
		{Field: model.FieldHumidity, Min: 0, Max: 100},
		{Field: model.FieldAirQuality, Min: 0, Max: 500, Integer: true},
		{Field: model.FieldNoiseLevel, Min: 0, Max: 200},
		{Field: model.FieldLightingLux, Min: 0, Max: 100000},
		{Field: model.FieldCrowdDensity, Min: 0, Max: 1000},
		{Field: model.FieldStressLevel, Min: 0, Max: 100, Integer: true},
		{Field: model.FieldSleepHours, Min: 0, Max: 24},
		{Field: model.FieldMoodScore, Min: 0, Max: 5},
		{Field: model.FieldMentalHealth, Min: 0, Max: 1, Integer: true},
	}

	for i := range defaults {
		prefix := strings.ToUpper(defaults[i].Field)
		defaults[i].Min = getEnvAsFloat(prefix+"_MIN", defaults[i].Min)
		defaults[i].Max = getEnvAsFloat(prefix+"_MAX", defaults[i].Max)
	}

	return &ValidationRules{Ranges: defaults}
}

// Rule returns the rule for a field, if one is declared.
func (r *ValidationRules) Rule(field string) (FieldRule, bool) {
	for _, rule := range r.Ranges {
		if rule.Field == field {
			return rule, true
		}
	}
	return FieldRule{}, false
}

// Validate ensures every rule has a coherent range
func (r *ValidationRules) Validate() error {
	for _, rule := range r.Ranges {
		if rule.Min > rule.Max {
			return fmt.Errorf("rule for %s has min %v greater than max %v", rule.Field, rule.Min, rule.Max)
		}
	}
	return nil
}
