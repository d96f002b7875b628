package model

import "time"

// Field describes one value the device reports: what to ask for and how to read the answer.
type Field struct {
	Name       string
	Identifier string
	Kind       DecodeKind
	// SecondsPerUnit divides DecodeDuration values.
	SecondsPerUnit float64
	// Labels are indexed by value for DecodeEnum and by bit position for
	// DecodeBitmask. An empty label marks a bit with no meaning.
	Labels []string
	// Fallback is emitted by DecodeBitmask fields when no labelled bit is set.
	Fallback string
	Unit     Unit
}

func Raw(name, identifier string) Field {
	return Field{Name: name, Identifier: identifier, Kind: DecodeRaw}
}

func Float(name, identifier string, unit Unit) Field {
	return Field{Name: name, Identifier: identifier, Kind: DecodeFloat, Unit: unit}
}

func Duration(name, identifier string, secondsPerUnit float64) Field {
	return Field{
		Name:           name,
		Identifier:     identifier,
		Kind:           DecodeDuration,
		SecondsPerUnit: secondsPerUnit,
		Unit:           UnitHours,
	}
}

func Enum(name, identifier string, labels ...string) Field {
	return Field{Name: name, Identifier: identifier, Kind: DecodeEnum, Labels: labels}
}

func Bitmask(name, identifier, fallback string, labels ...string) Field {
	return Field{Name: name, Identifier: identifier, Kind: DecodeBitmask, Labels: labels, Fallback: fallback}
}

// State maps logical field names to decoded values. Values are float64 or string.
type State map[string]any

func (s State) Float(name string) (float64, bool) {
	v, ok := s[name].(float64)
	return v, ok
}

func (s State) String(name string) (string, bool) {
	v, ok := s[name].(string)
	return v, ok
}

// Reading is a State stamped with where and when it was taken.
type Reading struct {
	Address   string        `json:"address"`
	State     State         `json:"state"`
	Timestamp time.Time     `json:"timestamp"`
	Latency   time.Duration `json:"latency"`
}
