package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidGate is returned when a gate definition is unusable.
var ErrInvalidGate = errors.New("invalid gate")

// Gate is a physical stand with a size class and an availability flag. A
// decoded gate without is_available is available.
type Gate struct {
	ID        string       `json:"gate_id" yaml:"gate_id"`
	Terminal  string       `json:"terminal" yaml:"terminal"`
	Size      AircraftSize `json:"size" yaml:"size"`
	Available bool         `json:"is_available" yaml:"is_available"`
}

// CanAccommodate reports whether the gate fits an aircraft of the required size.
func (g Gate) CanAccommodate(required AircraftSize) bool {
	return CanAccommodate(g.Size, required)
}

// Validate checks the gate identity and size class.
func (g Gate) Validate() error {
	if strings.TrimSpace(g.ID) == "" {
		return fmt.Errorf("%w: gate_id is required", ErrInvalidGate)
	}
	if g.Size == 0 {
		return fmt.Errorf("%w: %s needs a size", ErrInvalidGate, g.ID)
	}
	if !g.Size.Known() {
		return fmt.Errorf("%w: %s has size %d", ErrInvalidGate, g.ID, int(g.Size))
	}
	return nil
}

type gateAvailability struct {
	Available *bool `json:"is_available" yaml:"is_available"`
}

func (g *Gate) UnmarshalJSON(b []byte) error {
	type plain Gate
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode((*plain)(g)); err != nil {
		return err
	}
	var av gateAvailability
	if err := json.Unmarshal(b, &av); err != nil {
		return err
	}
	g.Available = av.Available == nil || *av.Available
	return nil
}

func (g *Gate) UnmarshalYAML(unmarshal func(any) error) error {
	type plain Gate
	if err := unmarshal((*plain)(g)); err != nil {
		return err
	}
	var av gateAvailability
	if err := unmarshal(&av); err != nil {
		return err
	}
	g.Available = av.Available == nil || *av.Available
	return nil
}

func (g Gate) String() string {
	state := "AVAIL"
	if !g.Available {
		state = "OUT"
	}
	return fmt.Sprintf("%s [%s] %s %s", g.ID, g.Terminal, g.Size, state)
}

// GateAssignment binds one flight to one gate for [From, Until).
type GateAssignment struct {
	ID     string    `json:"assignment_id"`
	Flight Flight    `json:"flight"`
	Gate   Gate      `json:"gate"`
	From   time.Time `json:"assigned_from"`
	Until  time.Time `json:"assigned_until"`
}

// Window returns the occupied interval.
func (a GateAssignment) Window() TimeWindow {
	return TimeWindow{Start: a.From, End: a.Until}
}

func (a GateAssignment) String() string {
	return fmt.Sprintf("Gate %s <- %s (%s - %s)", a.Gate.ID, a.Flight.ID,
		a.From.UTC().Format("15:04"), a.Until.UTC().Format("15:04"))
}
