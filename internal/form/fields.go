package form

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/speedwagon-io/sensorform/internal/model"
)

const (
	FieldName        = "name"
	FieldDescription = "description"
	FieldTags        = "tags"
	FieldLatitude    = "latitude"
	FieldLongitude   = "longitude"
)

// Fields lists the editable fields in display order.
var Fields = []string{FieldName, FieldDescription, FieldTags, FieldLatitude, FieldLongitude}

// SplitTags turns the comma-separated tags text into tags. Every segment is
// kept, empty ones included, so len(SplitTags(s)) == strings.Count(s, ",")+1.
func SplitTags(raw string) []string {
	parts := strings.Split(raw, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// ParseCoordinate parses a latitude or longitude. Unparseable input yields
// NaN rather than an error.
func ParseCoordinate(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// ApplyChange returns rec with one field replaced from its raw text. rec is
// not modified.
func ApplyChange(rec model.SensorRecord, field, raw string) (model.SensorRecord, error) {
	switch field {
	case FieldTags:
		rec.Tags = SplitTags(raw)
	case FieldLatitude:
		rec.Location.Latitude = ParseCoordinate(raw)
	case FieldLongitude:
		rec.Location.Longitude = ParseCoordinate(raw)
	case FieldName:
		rec.Name = raw
	case FieldDescription:
		rec.Description = raw
	default:
		return rec, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return rec, nil
}
