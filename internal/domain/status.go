package domain

import (
	"fmt"
	"strings"
)

// Status is the progress of a site as observed during an inspection.
type Status string

const (
	StatusOnTrack Status = "on_track"
	StatusDelayed Status = "delayed"
	StatusStopped Status = "stopped"
)

var statusLabels = map[Status]string{
	StatusOnTrack: "Em Dia",
	StatusDelayed: "Atrasada",
	StatusStopped: "Parada",
}

// Statuses lists every status in display order.
func Statuses() []Status {
	return []Status{StatusOnTrack, StatusDelayed, StatusStopped}
}

func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is a recognized value.
func (s Status) IsValid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the display label shown on inspection cards.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// ParseStatus accepts either the stored value or the display label, ignoring
// case and surrounding whitespace. Records written with the display labels
// decode through here.
func ParseStatus(raw string) (Status, error) {
	v := strings.TrimSpace(raw)
	for s, label := range statusLabels {
		if strings.EqualFold(v, string(s)) || strings.EqualFold(v, label) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", raw)
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s), nil
}

// UnmarshalText keeps unknown values as-is so validation, not decoding,
// rejects them.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		*s = Status(text)
		return nil
	}
	*s = parsed
	return nil
}
