package models

import "time"

// SensorReading is one temperature sample.
type SensorReading struct {
	ID         int64     `json:"id"`
	Label      string    `json:"label"`
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
	CreatedAt  time.Time `json:"created_at"`
	OutOfRange bool      `json:"out_of_range"`
}

// SensorFilters narrows reading listings. Limit 0 uses the service default.
type SensorFilters struct {
	Label *string
	From  *time.Time
	To    *time.Time
	Limit int
}

// SensorSummary aggregates readings for one label.
type SensorSummary struct {
	Label      string   `json:"label"`
	Count      int      `json:"count"`
	Min        *float64 `json:"min,omitempty"`
	Max        *float64 `json:"max,omitempty"`
	Avg        *float64 `json:"avg,omitempty"`
	OutOfRange int      `json:"out_of_range"`
	BandMin    float64  `json:"band_min"`
	BandMax    float64  `json:"band_max"`
}
