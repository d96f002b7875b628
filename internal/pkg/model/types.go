package model

// DecodeKind selects how the raw text of a field is interpreted.
type DecodeKind string

func (k DecodeKind) String() string {
	return string(k)
}

const (
	DecodeRaw      DecodeKind = "raw"
	DecodeFloat    DecodeKind = "float"
	DecodeDuration DecodeKind = "duration" // seconds scaled by SecondsPerUnit
	DecodeEnum     DecodeKind = "enum"     // index into Labels
	DecodeBitmask  DecodeKind = "bitmask"  // bit positions into Labels
)

// SecondsPerHour is the scale the device uses for its hour counters.
const SecondsPerHour float64 = 3600

type Unit string

const (
	UnitHours Unit = "h"
	// UnitDynamic marks a value whose unit is reported by another field.
	UnitDynamic Unit = "dynamic"
)
