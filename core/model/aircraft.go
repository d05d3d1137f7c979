package model

import (
	"fmt"
	"strings"
)

// AircraftSize is the gate size class an aircraft requires. Values are ordered:
// Small < Medium < Large. The zero value means no size was given.
type AircraftSize int

const (
	SizeSmall AircraftSize = iota + 1
	SizeMedium
	SizeLarge
)

// String returns a human-readable representation of the size class.
func (s AircraftSize) String() string {
	switch s {
	case SizeSmall:
		return "Small"
	case SizeMedium:
		return "Medium"
	case SizeLarge:
		return "Large"
	default:
		return "unknown"
	}
}

// ParseAircraftSize converts a case-insensitive size name.
func ParseAircraftSize(s string) (AircraftSize, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "small":
		return SizeSmall, nil
	case "medium":
		return SizeMedium, nil
	case "large":
		return SizeLarge, nil
	default:
		return 0, fmt.Errorf("unknown aircraft size %q", s)
	}
}

func (s AircraftSize) MarshalText() ([]byte, error) {
	if !s.Known() {
		return nil, fmt.Errorf("invalid aircraft size %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *AircraftSize) UnmarshalText(b []byte) error {
	v, err := ParseAircraftSize(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Known reports whether s is one of the declared size classes.
func (s AircraftSize) Known() bool {
	return s >= SizeSmall && s <= SizeLarge
}

// Gap returns the number of size steps s exceeds required by. It is never negative.
func (s AircraftSize) Gap(required AircraftSize) int {
	if s <= required {
		return 0
	}
	return int(s - required)
}

// CanAccommodate reports whether a gate of size gate fits an aircraft of size required.
func CanAccommodate(gate, required AircraftSize) bool {
	return gate >= required
}

// Classifier maps an aircraft type designator to its required gate size.
type Classifier func(aircraftType string) AircraftSize

// Wide-body aircraft types that need a Large gate.
var largeAircraftTypes = map[string]struct{}{
	"A350": {}, "A380": {}, "A330": {}, "A340": {},
	"B747": {}, "B777": {}, "B787": {},
}

// Regional jets and turboprops that fit a Small gate.
var smallAircraftTypes = map[string]struct{}{
	"E190": {}, "E195": {}, "ATR72": {}, "ATR42": {}, "CRJ900": {}, "CRJ700": {},
}

// ClassifyAircraft is the default Classifier. Unknown designators, including the
// common narrow-bodies (A320, B737), are Medium.
func ClassifyAircraft(aircraftType string) AircraftSize {
	t := strings.ToUpper(strings.TrimSpace(aircraftType))
	if _, ok := largeAircraftTypes[t]; ok {
		return SizeLarge
	}
	if _, ok := smallAircraftTypes[t]; ok {
		return SizeSmall
	}
	return SizeMedium
}

// DefaultClassifier is used by Flight.AircraftSize.
var DefaultClassifier Classifier = ClassifyAircraft
