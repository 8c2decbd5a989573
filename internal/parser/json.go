package parser

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"NpkBot/internal/model"
)

// JSONParser implements Parser using the robot's JSON shapes.
// Decoding is strict: every coordinate and nutrient must be present.
type JSONParser struct{}

// NewJSONParser creates a new JSON parser.
func NewJSONParser() *JSONParser { return &JSONParser{} }

type positionWire struct {
	Latitude   *float64   `json:"latitude"`
	Longitude  *float64   `json:"longitude"`
	CapturedAt *time.Time `json:"captured_at,omitempty"`
}

type soilWire struct {
	Nitrogen       *float64   `json:"nitrogen"`
	Phosphorus     *float64   `json:"phosphorus"`
	Potassium      *float64   `json:"potassium"`
	CapturedAt     *time.Time `json:"captured_at,omitempty"`
	Recommendation string     `json:"recommendation,omitempty"`
}

// EncodePosition encodes a Position into JSON string.
func (p *JSONParser) EncodePosition(pos model.Position) (string, error) {
	b, err := json.Marshal(pos)
	return string(b), err
}

// DecodePosition decodes a /gps body. CapturedAt is zero unless the payload carries it.
func (p *JSONParser) DecodePosition(s string) (model.Position, error) {
	var w positionWire
	if err := json.Unmarshal([]byte(s), &w); err != nil {
		return model.Position{}, err
	}
	if w.Latitude == nil {
		return model.Position{}, fmt.Errorf("%w: latitude", ErrMissingField)
	}
	if w.Longitude == nil {
		return model.Position{}, fmt.Errorf("%w: longitude", ErrMissingField)
	}
	out := model.Position{Latitude: *w.Latitude, Longitude: *w.Longitude}
	if w.CapturedAt != nil {
		out.CapturedAt = *w.CapturedAt
	}
	return out, nil
}

// EncodeSoil encodes a SoilRecord into JSON string.
func (p *JSONParser) EncodeSoil(r model.SoilRecord) (string, error) {
	b, err := json.Marshal(r)
	return string(b), err
}

// DecodeSoil decodes a /soil body. Fractional values are rounded to whole mg/kg.
func (p *JSONParser) DecodeSoil(s string) (model.SoilRecord, error) {
	var w soilWire
	if err := json.Unmarshal([]byte(s), &w); err != nil {
		return model.SoilRecord{}, err
	}
	if w.Nitrogen == nil {
		return model.SoilRecord{}, fmt.Errorf("%w: nitrogen", ErrMissingField)
	}
	if w.Phosphorus == nil {
		return model.SoilRecord{}, fmt.Errorf("%w: phosphorus", ErrMissingField)
	}
	if w.Potassium == nil {
		return model.SoilRecord{}, fmt.Errorf("%w: potassium", ErrMissingField)
	}
	n, err := nutrient("nitrogen", *w.Nitrogen)
	if err != nil {
		return model.SoilRecord{}, err
	}
	ph, err := nutrient("phosphorus", *w.Phosphorus)
	if err != nil {
		return model.SoilRecord{}, err
	}
	k, err := nutrient("potassium", *w.Potassium)
	if err != nil {
		return model.SoilRecord{}, err
	}
	out := model.SoilRecord{
		SoilReading:    model.SoilReading{Nitrogen: n, Phosphorus: ph, Potassium: k},
		Recommendation: w.Recommendation,
	}
	if w.CapturedAt != nil {
		out.CapturedAt = *w.CapturedAt
	}
	return out, nil
}

// nutrient rounds v to whole mg/kg, rejecting anything outside [0, MaxInt32].
func nutrient(name string, v float64) (int, error) {
	r := math.Round(v)
	if math.IsNaN(r) || r < 0 || r > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %s=%g", ErrOutOfRange, name, v)
	}
	return int(r), nil
}
