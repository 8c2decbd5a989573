// Package gps reads position fixes from an NMEA serial receiver.
package gps

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"NpkBot/internal/model"
)

var (
	// ErrUnsupported is returned for sentences other than GGA and RMC.
	ErrUnsupported = errors.New("unsupported NMEA sentence")
	// ErrNoFix is returned when the receiver reports no valid fix.
	ErrNoFix = errors.New("no gps fix")
	// ErrChecksum is returned when the trailing *hh checksum does not match.
	ErrChecksum = errors.New("nmea checksum mismatch")
)

// ParseSentence extracts a position from a GGA or RMC sentence.
// Talker IDs (GP, GN, GL...) are accepted interchangeably.
func ParseSentence(line string) (model.Position, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") || len(line) < 7 {
		return model.Position{}, ErrUnsupported
	}
	body := line[1:]
	if i := strings.IndexByte(body, '*'); i >= 0 {
		if err := verifyChecksum(body[:i], body[i+1:]); err != nil {
			return model.Position{}, err
		}
		body = body[:i]
	}

	parts := strings.Split(body, ",")
	if len(parts[0]) != 5 {
		return model.Position{}, ErrUnsupported
	}
	var latIdx int
	switch parts[0][2:] {
	case "GGA":
		// $xxGGA,time,lat,N,lon,E,quality,...
		if len(parts) < 7 {
			return model.Position{}, fmt.Errorf("short GGA sentence: %q", line)
		}
		if parts[6] == "" || parts[6] == "0" {
			return model.Position{}, ErrNoFix
		}
		latIdx = 2
	case "RMC":
		// $xxRMC,time,status,lat,N,lon,E,...
		if len(parts) < 7 {
			return model.Position{}, fmt.Errorf("short RMC sentence: %q", line)
		}
		if parts[2] != "A" {
			return model.Position{}, ErrNoFix
		}
		latIdx = 3
	default:
		return model.Position{}, ErrUnsupported
	}

	lat, err := ParseCoord(parts[latIdx], parts[latIdx+1])
	if err != nil {
		return model.Position{}, err
	}
	lon, err := ParseCoord(parts[latIdx+2], parts[latIdx+3])
	if err != nil {
		return model.Position{}, err
	}
	return model.Position{Latitude: lat, Longitude: lon, CapturedAt: time.Now().UTC()}, nil
}

// ParseCoord converts an NMEA ddmm.mmmm / dddmm.mmmm value and hemisphere
// into signed decimal degrees.
func ParseCoord(val, hemi string) (float64, error) {
	if val == "" {
		return 0, ErrNoFix
	}
	dot := strings.IndexByte(val, '.')
	if dot < 0 {
		dot = len(val)
	}
	if dot < 3 {
		return 0, fmt.Errorf("invalid nmea coordinate %q", val)
	}
	deg, err := strconv.Atoi(val[:dot-2])
	if err != nil {
		return 0, fmt.Errorf("invalid nmea degrees %q: %w", val, err)
	}
	mins, err := strconv.ParseFloat(val[dot-2:], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid nmea minutes %q: %w", val, err)
	}
	if mins >= 60 {
		return 0, fmt.Errorf("invalid nmea minutes %q", val)
	}
	v := float64(deg) + mins/60

	switch hemi {
	case "N", "E":
	case "S", "W":
		v = -v
	default:
		return 0, fmt.Errorf("invalid hemisphere %q", hemi)
	}
	return v, nil
}

// ToNMEACoord formats decimal degrees as an NMEA value and hemisphere.
func ToNMEACoord(v float64, isLat bool) (string, string) {
	hemi := "N"
	if isLat && v < 0 {
		hemi = "S"
	}
	if !isLat {
		hemi = "E"
		if v < 0 {
			hemi = "W"
		}
	}
	v = math.Abs(v)
	deg := math.Floor(v)
	mins := (v - deg) * 60
	if isLat {
		return fmt.Sprintf("%02d%07.4f", int(deg), mins), hemi
	}
	return fmt.Sprintf("%03d%07.4f", int(deg), mins), hemi
}

// FormatGGA builds a GGA sentence with checksum for pos at t.
func FormatGGA(pos model.Position, t time.Time) string {
	lat, ns := ToNMEACoord(pos.Latitude, true)
	lon, ew := ToNMEACoord(pos.Longitude, false)
	body := fmt.Sprintf("GPGGA,%s,%s,%s,%s,%s,1,08,0.9,10.0,M,0.0,M,,",
		t.UTC().Format("150405.00"), lat, ns, lon, ew)
	return fmt.Sprintf("$%s*%02X", body, checksum(body))
}

func checksum(body string) byte {
	var c byte
	for i := 0; i < len(body); i++ {
		c ^= body[i]
	}
	return c
}

func verifyChecksum(body, sum string) error {
	want, err := strconv.ParseUint(strings.TrimSpace(sum), 16, 8)
	if err != nil {
		return fmt.Errorf("%w: bad checksum field %q", ErrChecksum, sum)
	}
	if byte(want) != checksum(body) {
		return ErrChecksum
	}
	return nil
}
