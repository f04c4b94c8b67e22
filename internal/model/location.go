package model

// Location is the sensor's GPS position. No range checks are applied.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
