package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrUnknownDisruptionType is returned for DisruptionType values outside
	// the known set, including the zero value of an omitted type.
	ErrUnknownDisruptionType = errors.New("unknown disruption type")
	// ErrInvalidDisruption is returned for events missing what their type needs.
	ErrInvalidDisruption = errors.New("invalid disruption")
)

// DisruptionType classifies an operational event. The zero value is not a
// valid type.
type DisruptionType int

const (
	DisruptionDelay DisruptionType = iota + 1
	DisruptionCancellation
	DisruptionDiversion
	DisruptionGateUnavailable
	DisruptionWeather
	DisruptionMechanical
)

// DisruptionTypes lists every known disruption type in declaration order.
func DisruptionTypes() []DisruptionType {
	return []DisruptionType{
		DisruptionDelay, DisruptionCancellation, DisruptionDiversion,
		DisruptionGateUnavailable, DisruptionWeather, DisruptionMechanical,
	}
}

// String returns a human-readable representation of the disruption type.
func (t DisruptionType) String() string {
	switch t {
	case DisruptionDelay:
		return "Delay"
	case DisruptionCancellation:
		return "Cancellation"
	case DisruptionDiversion:
		return "Diversion"
	case DisruptionGateUnavailable:
		return "GateUnavailable"
	case DisruptionWeather:
		return "Weather"
	case DisruptionMechanical:
		return "Mechanical"
	default:
		return "unknown"
	}
}

// ParseDisruptionType converts a case-insensitive type name. Both
// "GateUnavailable" and "gate_unavailable" are accepted.
func ParseDisruptionType(s string) (DisruptionType, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "")
	for _, t := range DisruptionTypes() {
		if strings.ToLower(t.String()) == norm {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownDisruptionType, s)
}

// Known reports whether t is one of the declared types.
func (t DisruptionType) Known() bool {
	return t >= DisruptionDelay && t <= DisruptionMechanical
}

func (t DisruptionType) MarshalText() ([]byte, error) {
	if !t.Known() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDisruptionType, int(t))
	}
	return []byte(t.String()), nil
}

func (t *DisruptionType) UnmarshalText(b []byte) error {
	v, err := ParseDisruptionType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// DisruptionEvent is reported by operations and consumed once by the engine.
type DisruptionEvent struct {
	ID               string         `json:"event_id" yaml:"event_id"`
	Type             DisruptionType `json:"type" yaml:"type"`
	AffectedFlightID string         `json:"affected_flight_id,omitempty" yaml:"affected_flight_id,omitempty"`
	// AffectedGateID names the gate for gate-scoped events. When empty,
	// GateUnavailable events fall back to Description.
	AffectedGateID string    `json:"affected_gate_id,omitempty" yaml:"affected_gate_id,omitempty"`
	Description    string    `json:"description,omitempty" yaml:"description,omitempty"`
	ReportedAt     time.Time `json:"reported_at" yaml:"reported_at"`
	DelayMinutes   int       `json:"delay_minutes,omitempty" yaml:"delay_minutes,omitempty"`
}

// Validate checks the caller contract for ev.Type. Flight-scoped events need
// a flight, and a Delay needs a positive number of minutes.
func (e DisruptionEvent) Validate() error {
	if !e.Type.Known() {
		return fmt.Errorf("%w: %d", ErrUnknownDisruptionType, int(e.Type))
	}
	switch e.Type {
	case DisruptionDelay, DisruptionCancellation, DisruptionDiversion:
		if strings.TrimSpace(e.AffectedFlightID) == "" {
			return fmt.Errorf("%w: %s needs affected_flight_id", ErrInvalidDisruption, e.Type)
		}
	}
	if e.Type == DisruptionDelay && e.DelayMinutes <= 0 {
		return fmt.Errorf("%w: delay_minutes must be positive, got %d", ErrInvalidDisruption, e.DelayMinutes)
	}
	return nil
}

// GateID returns the gate targeted by a gate-scoped event.
func (e DisruptionEvent) GateID() string {
	if e.AffectedGateID != "" {
		return e.AffectedGateID
	}
	return strings.TrimSpace(e.Description)
}

// Delay returns DelayMinutes as a duration.
func (e DisruptionEvent) Delay() time.Duration {
	return time.Duration(e.DelayMinutes) * time.Minute
}

func (e DisruptionEvent) String() string {
	subject := e.AffectedFlightID
	if e.Type == DisruptionGateUnavailable {
		subject = e.GateID()
	}
	return fmt.Sprintf("[%s] %s - %s (%s)", e.Type, subject, e.Description,
		e.ReportedAt.UTC().Format("15:04:05"))
}
