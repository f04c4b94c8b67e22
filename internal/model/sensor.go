package model

import (
	"encoding/json"
	"strings"
)

// TagSeparator joins tags when a record is rendered back into its
// comma-separated text field.
const TagSeparator = ", "

type SensorRecord struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Location    Location `json:"location"`
}

// NewSensorRecord returns the initial form value. Tags is empty, not nil, so
// it encodes as [].
func NewSensorRecord() SensorRecord {
	return SensorRecord{
		Tags: []string{},
	}
}

// Clone returns a copy that shares no mutable state with r.
func (r SensorRecord) Clone() SensorRecord {
	tags := make([]string, len(r.Tags))
	copy(tags, r.Tags)
	r.Tags = tags
	return r
}

func (r SensorRecord) TagsText() string {
	return strings.Join(r.Tags, TagSeparator)
}

func (r *SensorRecord) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

func SensorRecordFromJSON(data []byte) (*SensorRecord, error) {
	var r SensorRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	return &r, nil
}
