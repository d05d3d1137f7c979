package model

import "time"

// TurnaroundBuffer is added after the scheduled departure before a gate is free again.
const TurnaroundBuffer = 15 * time.Minute

// TimeWindow is a half-open interval [Start, End).
type TimeWindow struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
}

// Overlaps reports whether both windows share at least one instant.
func (w TimeWindow) Overlaps(o TimeWindow) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// Shift moves the window by d.
func (w TimeWindow) Shift(d time.Duration) TimeWindow {
	return TimeWindow{Start: w.Start.Add(d), End: w.End.Add(d)}
}

// Duration returns the window length, zero for inverted windows.
func (w TimeWindow) Duration() time.Duration {
	if !w.End.After(w.Start) {
		return 0
	}
	return w.End.Sub(w.Start)
}

// Clip returns the part of w inside bounds.
func (w TimeWindow) Clip(bounds TimeWindow) TimeWindow {
	out := w
	if out.Start.Before(bounds.Start) {
		out.Start = bounds.Start
	}
	if out.End.After(bounds.End) {
		out.End = bounds.End
	}
	return out
}
