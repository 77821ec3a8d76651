package model

// ObservationRecord is the sensor-level view of one body: its range and
// apparent direction on the sky. Records are derived on demand and never
// stored.
type ObservationRecord struct {
	Name      string  `json:"name"`
	Range     float64 `json:"range"`
	RADeg     float64 `json:"ra"`
	DecDeg    float64 `json:"dec"`
	Magnitude float64 `json:"mag"`
}

// Star is one entry of the static star catalog. Stars are treated as fixed
// in J2000 right ascension and declination.
type Star struct {
	Name      string  `json:"name"`
	RADeg     float64 `json:"ra"`
	DecDeg    float64 `json:"dec"`
	Magnitude float64 `json:"mag"`
}
