package notify

import (
	"fmt"
	"time"
)

// Window is the permitted daily delivery interval [Start, End), evaluated in
// a fixed time zone.
type Window struct {
	start time.Duration // offset from midnight, inclusive
	end   time.Duration // offset from midnight, exclusive
	loc   *time.Location
}

// ParseWindow builds a Window from "15:04"-formatted bounds and a zone name.
func ParseWindow(start, end, tz string) (Window, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Window{}, fmt.Errorf("load window timezone %s: %w", tz, err)
	}
	s, err := parseClock(start)
	if err != nil {
		return Window{}, fmt.Errorf("parse window start: %w", err)
	}
	e, err := parseClock(end)
	if err != nil {
		return Window{}, fmt.Errorf("parse window end: %w", err)
	}
	if e <= s {
		return Window{}, fmt.Errorf("window end %s not after start %s", end, start)
	}
	return Window{start: s, end: e, loc: loc}, nil
}

// MustWindow is ParseWindow for known-good literals; it panics on error.
func MustWindow(start, end, tz string) Window {
	w, err := ParseWindow(start, end, tz)
	if err != nil {
		panic(err)
	}
	return w
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Open reports whether t falls inside the window.
func (w Window) Open(t time.Time) bool {
	local := t.In(w.loc)
	offset := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second
	return offset >= w.start && offset < w.end
}

func (w Window) String() string {
	base := time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC)
	return fmt.Sprintf("%s-%s %s",
		base.Add(w.start).Format("15:04"),
		base.Add(w.end).Format("15:04"),
		w.loc)
}
