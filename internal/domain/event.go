package domain

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	json "github.com/goccy/go-json"
)

// CoordinateKind records which JSON shape a coordinate field had.
type CoordinateKind int

const (
	CoordMissing CoordinateKind = iota
	CoordNull
	CoordNumber
	CoordString
	CoordOther // bool, object or array
)

func (k CoordinateKind) String() string {
	switch k {
	case CoordMissing:
		return "missing"
	case CoordNull:
		return "null"
	case CoordNumber:
		return "number"
	case CoordString:
		return "string"
	default:
		return "other"
	}
}

// Coordinate is a latitude or longitude as it appeared in the source. The
// zero value is a missing field.
type Coordinate struct {
	Kind  CoordinateKind
	Value float64
	Raw   string
}

// NumberCoordinate builds a numeric coordinate. NaN and ±Inf are allowed here
// and rejected by ParseRecord.
func NumberCoordinate(v float64) Coordinate {
	return Coordinate{Kind: CoordNumber, Value: v}
}

// StringCoordinate builds a coordinate that arrived as a JSON string.
func StringCoordinate(s string) Coordinate {
	return Coordinate{Kind: CoordString, Raw: s}
}

// UnmarshalJSON classifies the raw token instead of failing on unexpected
// shapes, so one odd record never poisons the whole document.
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*c = Coordinate{Raw: string(data)}
	switch {
	case len(data) == 0:
		c.Kind = CoordMissing
	case bytes.Equal(data, []byte("null")):
		c.Kind = CoordNull
	case data[0] == '"':
		c.Kind = CoordString
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		v, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			c.Kind = CoordOther
			return nil
		}
		c.Kind = CoordNumber
		c.Value = v
	default:
		c.Kind = CoordOther
	}
	return nil
}

// MarshalJSON writes numbers back as numbers and everything else as null.
func (c Coordinate) MarshalJSON() ([]byte, error) {
	if c.Kind != CoordNumber || math.IsNaN(c.Value) || math.IsInf(c.Value, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, c.Value, 'f', -1, 64), nil
}

// RawEventRecord is one entry of the upstream JSON array.
type RawEventRecord struct {
	Title          string     `json:"title"`
	Description    string     `json:"Description"`
	Location       string     `json:"Location"`
	NextUpdateTime string     `json:"Next update time"`
	LastUpdateTime string     `json:"Last update time"`
	Link           string     `json:"link,omitempty"`
	Latitude       Coordinate `json:"latitude"`
	Longitude      Coordinate `json:"longitude"`
}

// UnmarshalJSON decodes text fields loosely so a mistyped title or location
// never costs a record its coordinates.
func (r *RawEventRecord) UnmarshalJSON(data []byte) error {
	var wire struct {
		Title          looseText  `json:"title"`
		Description    looseText  `json:"Description"`
		Location       looseText  `json:"Location"`
		NextUpdateTime looseText  `json:"Next update time"`
		LastUpdateTime looseText  `json:"Last update time"`
		Link           looseText  `json:"link"`
		Latitude       Coordinate `json:"latitude"`
		Longitude      Coordinate `json:"longitude"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*r = RawEventRecord{
		Title:          string(wire.Title),
		Description:    string(wire.Description),
		Location:       string(wire.Location),
		NextUpdateTime: string(wire.NextUpdateTime),
		LastUpdateTime: string(wire.LastUpdateTime),
		Link:           string(wire.Link),
		Latitude:       wire.Latitude,
		Longitude:      wire.Longitude,
	}
	return nil
}

// looseText keeps strings as they are and writes numbers and booleans as
// their literal text. Null, objects and arrays become empty.
type looseText string

func (t *looseText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*t = ""
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = looseText(s)
	case 'n', '{', '[':
	default:
		*t = looseText(data)
	}
	return nil
}

// Event is a displayable record. Index is the record's position in the
// source snapshot and ID is derived from it, so two identical records remain
// two distinct events.
type Event struct {
	ID             string  `json:"id"`
	Index          int     `json:"index"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Location       string  `json:"location"`
	NextUpdateTime string  `json:"next_update_time,omitempty"`
	LastUpdateTime string  `json:"last_update_time,omitempty"`
	Link           string  `json:"link,omitempty"`
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
}

// Rejection reasons reported by ParseError.
const (
	ReasonMissing   = "missing"
	ReasonNotNumber = "not a number"
	ReasonNaN       = "NaN"
	ReasonInfinite  = "infinite"
)

// ParseError explains why a record is not displayable.
type ParseError struct {
	Index  int
	Field  string
	Reason string
	Kind   CoordinateKind
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("record %d: %s: %s (%s)", e.Index, e.Field, e.Reason, e.Kind)
}

// EventID returns the stable identifier of the record at the given source index.
func EventID(index int) string {
	return "evt-" + strconv.Itoa(index)
}
