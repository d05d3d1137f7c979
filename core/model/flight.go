package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidFlight is returned for flights that cannot be placed on any gate.
var ErrInvalidFlight = errors.New("invalid flight")

// FlightStatus is advisory metadata carried on flight snapshots.
type FlightStatus string

const (
	StatusScheduled FlightStatus = "Scheduled"
	StatusBoarding  FlightStatus = "Boarding"
	StatusDeparted  FlightStatus = "Departed"
	StatusEnRoute   FlightStatus = "EnRoute"
	StatusArrived   FlightStatus = "Arrived"
	StatusDelayed   FlightStatus = "Delayed"
	StatusCancelled FlightStatus = "Cancelled"
	StatusDiverted  FlightStatus = "Diverted"
)

var flightStatuses = []FlightStatus{
	StatusScheduled, StatusBoarding, StatusDeparted, StatusEnRoute,
	StatusArrived, StatusDelayed, StatusCancelled, StatusDiverted,
}

// ParseFlightStatus converts a case-insensitive status name.
func ParseFlightStatus(s string) (FlightStatus, error) {
	for _, st := range flightStatuses {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown flight status %q", s)
}

// Flight is the caller-supplied description of a scheduled movement.
type Flight struct {
	ID                 string       `json:"flight_id" yaml:"flight_id"`
	Airline            string       `json:"airline" yaml:"airline"`
	Origin             string       `json:"origin" yaml:"origin"`
	Destination        string       `json:"destination" yaml:"destination"`
	AircraftType       string       `json:"aircraft_type" yaml:"aircraft_type"`
	ScheduledArrival   time.Time    `json:"scheduled_arrival" yaml:"scheduled_arrival"`
	ScheduledDeparture time.Time    `json:"scheduled_departure" yaml:"scheduled_departure"`
	Status             FlightStatus `json:"status,omitempty" yaml:"status,omitempty"`
}

// AircraftSize classifies the aircraft type with DefaultClassifier.
func (f Flight) AircraftSize() AircraftSize {
	return DefaultClassifier(f.AircraftType)
}

// Window returns the gate occupancy window including the turnaround buffer.
func (f Flight) Window() TimeWindow {
	return TimeWindow{Start: f.ScheduledArrival, End: f.ScheduledDeparture.Add(TurnaroundBuffer)}
}

// Shift returns a copy with both scheduled instants moved by d.
func (f Flight) Shift(d time.Duration) Flight {
	f.ScheduledArrival = f.ScheduledArrival.Add(d)
	f.ScheduledDeparture = f.ScheduledDeparture.Add(d)
	return f
}

// Validate checks the fields the allocation relies on.
func (f Flight) Validate() error {
	if strings.TrimSpace(f.ID) == "" {
		return fmt.Errorf("%w: flight_id is required", ErrInvalidFlight)
	}
	if f.ScheduledArrival.IsZero() || f.ScheduledDeparture.IsZero() {
		return fmt.Errorf("%w: %s has no schedule", ErrInvalidFlight, f.ID)
	}
	if f.ScheduledDeparture.Before(f.ScheduledArrival) {
		return fmt.Errorf("%w: %s departs before it arrives", ErrInvalidFlight, f.ID)
	}
	return nil
}

func (f Flight) String() string {
	return fmt.Sprintf("%s (%s) %s -> %s [%s] arr %s dep %s",
		f.ID, f.AircraftType, f.Origin, f.Destination, f.Status,
		f.ScheduledArrival.UTC().Format("15:04"), f.ScheduledDeparture.UTC().Format("15:04"))
}
