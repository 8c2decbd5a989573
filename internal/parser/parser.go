// Package parser converts robot telemetry between wire formats and model types.
//
// JSON is what the robot speaks:
//
//	GET /gps  -> {"latitude": 1.0, "longitude": 2.0}
//	GET /soil -> {"nitrogen": 10, "phosphorus": 20, "potassium": 30}
//
// CSV is used for exports and simulator replay files:
//
//	LAT,LON,CAPTURED_AT
//	N,P,K,CAPTURED_AT,RECOMMENDATION
package parser

import (
	"errors"
	"fmt"

	"NpkBot/internal/model"
)

// ErrMissingField is returned when a required field is absent from a payload.
var ErrMissingField = errors.New("missing field")

// ErrOutOfRange is returned when a nutrient value is negative, non-finite or too large.
var ErrOutOfRange = errors.New("value out of range")

// Parser defines encode/decode for telemetry payloads.
type Parser interface {
	EncodePosition(p model.Position) (string, error)
	DecodePosition(s string) (model.Position, error)
	EncodeSoil(r model.SoilRecord) (string, error)
	DecodeSoil(s string) (model.SoilRecord, error)
}

// ForFormat returns the parser registered under name ("json" or "csv").
func ForFormat(name string) (Parser, error) {
	switch name {
	case "", "json":
		return NewJSONParser(), nil
	case "csv":
		return NewCSVParser(), nil
	}
	return nil, fmt.Errorf("unknown format %q", name)
}
