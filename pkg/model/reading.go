// pkg/model/reading.go
package model

import "time"

// Canonical field names for sensor rows. Incoming file headers are
// normalized to these before validation.
const (
	FieldLocationID   = "location_id"
	FieldTimestamp    = "timestamp"
	FieldTemperature  = "temperature_celsius"
	FieldHumidity     = "humidity_percent"
	FieldAirQuality   = "air_quality_index"
	FieldNoiseLevel   = "noise_level_db"
	FieldLightingLux  = "lighting_lux"
	FieldCrowdDensity = "crowd_density"
	FieldStressLevel  = "stress_level"
	FieldSleepHours   = "sleep_hours"
	FieldMoodScore    = "mood_score"
	FieldMentalHealth = "mental_health_status"
)

// metricFields are the numeric fields that participate in aggregation, in
// storage column order. mental_health_status is a label rather than a
// measurement and is stored but never aggregated.
var metricFields = []string{
	FieldTemperature,
	FieldHumidity,
	FieldAirQuality,
	FieldNoiseLevel,
	FieldLightingLux,
	FieldCrowdDensity,
	FieldStressLevel,
	FieldSleepHours,
	FieldMoodScore,
}

// MetricFields returns the aggregatable metric field names in a fixed,
// deterministic order.
func MetricFields() []string {
	out := make([]string, len(metricFields))
	copy(out, metricFields)
	return out
}

// RawReading is one validated sensor observation bound for the
// raw_sensor_data table. Numeric fields are pointers: nil means the value
// was absent in the source row, which is legal for every field except
// location_id and timestamp.
type RawReading struct {
	LocationID         string
	Timestamp          time.Time
	TemperatureCelsius *float64
	HumidityPercent    *float64
	AirQualityIndex    *int64
	NoiseLevelDB       *float64
	LightingLux        *float64
	CrowdDensity       *float64
	StressLevel        *int64
	SleepHours         *float64
	MoodScore          *float64
	MentalHealthStatus *int64

	// Provenance, set during classification and persistence.
	FileName    string
	DataSource  string
	ProcessedAt time.Time
}

// Metric returns the value of the named aggregatable field as a float64.
// The second return is false when the field is absent in this reading or
// the name is not an aggregatable metric.
func (r *RawReading) Metric(name string) (float64, bool) {
	switch name {
	case FieldTemperature:
		return derefFloat(r.TemperatureCelsius)
	case FieldHumidity:
		return derefFloat(r.HumidityPercent)
	case FieldAirQuality:
		return derefInt(r.AirQualityIndex)
	case FieldNoiseLevel:
		return derefFloat(r.NoiseLevelDB)
	case FieldLightingLux:
		return derefFloat(r.LightingLux)
	case FieldCrowdDensity:
		return derefFloat(r.CrowdDensity)
	case FieldStressLevel:
		return derefInt(r.StressLevel)
	case FieldSleepHours:
		return derefFloat(r.SleepHours)
	case FieldMoodScore:
		return derefFloat(r.MoodScore)
	}
	return 0, false
}

func derefFloat(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}

func derefInt(v *int64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return float64(*v), true
}
