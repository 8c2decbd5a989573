package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"NpkBot/internal/model"
)

// CSVParser implements Parser interface using CSV format.
// Example position CSV: 21.028500,105.804800,2024-05-01T10:00:00Z
type CSVParser struct{}

// NewCSVParser creates a new CSV parser instance.
func NewCSVParser() *CSVParser { return &CSVParser{} }

// EncodePosition converts a Position into a CSV line.
func (p *CSVParser) EncodePosition(pos model.Position) (string, error) {
	return writeRecord([]string{
		strconv.FormatFloat(pos.Latitude, 'f', 6, 64),
		strconv.FormatFloat(pos.Longitude, 'f', 6, 64),
		formatTime(pos.CapturedAt),
	})
}

// DecodePosition parses LAT,LON[,CAPTURED_AT].
func (p *CSVParser) DecodePosition(line string) (model.Position, error) {
	fields, err := readRecord(line)
	if err != nil {
		return model.Position{}, err
	}
	if len(fields) < 2 || len(fields) > 3 {
		return model.Position{}, fmt.Errorf("expected 2-3 fields, got %d", len(fields))
	}
	lat, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return model.Position{}, errors.New("invalid lat")
	}
	lon, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return model.Position{}, errors.New("invalid lon")
	}
	pos := model.Position{Latitude: lat, Longitude: lon}
	if len(fields) == 3 {
		if pos.CapturedAt, err = parseTime(fields[2]); err != nil {
			return model.Position{}, err
		}
	}
	return pos, nil
}

// EncodeSoil converts a SoilRecord into a CSV line. The recommendation is quoted when needed.
func (p *CSVParser) EncodeSoil(r model.SoilRecord) (string, error) {
	return writeRecord([]string{
		strconv.Itoa(r.Nitrogen),
		strconv.Itoa(r.Phosphorus),
		strconv.Itoa(r.Potassium),
		formatTime(r.CapturedAt),
		r.Recommendation,
	})
}

// DecodeSoil parses N,P,K[,CAPTURED_AT[,RECOMMENDATION]].
func (p *CSVParser) DecodeSoil(line string) (model.SoilRecord, error) {
	fields, err := readRecord(line)
	if err != nil {
		return model.SoilRecord{}, err
	}
	if len(fields) < 3 || len(fields) > 5 {
		return model.SoilRecord{}, fmt.Errorf("expected 3-5 fields, got %d", len(fields))
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return model.SoilRecord{}, errors.New("invalid nitrogen")
	}
	ph, err := strconv.Atoi(fields[1])
	if err != nil {
		return model.SoilRecord{}, errors.New("invalid phosphorus")
	}
	k, err := strconv.Atoi(fields[2])
	if err != nil {
		return model.SoilRecord{}, errors.New("invalid potassium")
	}
	if _, err := nutrient("nitrogen", float64(n)); err != nil {
		return model.SoilRecord{}, err
	}
	if _, err := nutrient("phosphorus", float64(ph)); err != nil {
		return model.SoilRecord{}, err
	}
	if _, err := nutrient("potassium", float64(k)); err != nil {
		return model.SoilRecord{}, err
	}
	rec := model.SoilRecord{SoilReading: model.SoilReading{Nitrogen: n, Phosphorus: ph, Potassium: k}}
	if len(fields) >= 4 {
		if rec.CapturedAt, err = parseTime(fields[3]); err != nil {
			return model.SoilRecord{}, err
		}
	}
	if len(fields) == 5 {
		rec.Recommendation = fields[4]
	}
	return rec, nil
}

func writeRecord(fields []string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(fields); err != nil {
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\r\n"), nil
}

func readRecord(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(strings.TrimSpace(line)))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	fields, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return fields, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.New("invalid captured_at")
	}
	return t, nil
}
