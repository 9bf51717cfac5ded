package domain

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	json "github.com/goccy/go-json"
)

// ErrNotArray is returned when an event document is not a JSON array.
var ErrNotArray = errors.New("event document is not a JSON array")

// nonFiniteTokens are the bare literals Python's json module writes for
// non-finite floats. They are not valid JSON.
var nonFiniteTokens = [][]byte{[]byte("-Infinity"), []byte("Infinity"), []byte("NaN")}

// DecodeRecords decodes an upstream JSON array of event records. Elements that
// are not objects decode to empty records, which ParseRecord later rejects;
// only a document that is not an array at all is an error.
func DecodeRecords(data []byte) ([]RawEventRecord, error) {
	data = normalizeNonFinite(data)

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotArray
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, fmt.Errorf("decode event records: %w", err)
	}

	records := make([]RawEventRecord, len(elems))
	for i, elem := range elems {
		elem = bytes.TrimSpace(elem)
		if len(elem) == 0 || elem[0] != '{' {
			continue
		}
		var rec RawEventRecord
		if err := json.Unmarshal(elem, &rec); err != nil {
			continue
		}
		records[i] = rec
	}
	return records, nil
}

// DecodeRecord decodes a single JSON object, as carried by one Kafka message.
func DecodeRecord(data []byte) (RawEventRecord, error) {
	var rec RawEventRecord
	if err := json.Unmarshal(normalizeNonFinite(data), &rec); err != nil {
		return RawEventRecord{}, fmt.Errorf("decode event record: %w", err)
	}
	return rec, nil
}

// EncodeRecord serializes a record in the upstream field layout.
func EncodeRecord(rec RawEventRecord) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode event record: %w", err)
	}
	return data, nil
}

// normalizeNonFinite rewrites bare NaN/Infinity/-Infinity tokens outside of
// strings to null.
func normalizeNonFinite(data []byte) []byte {
	if !bytes.Contains(data, []byte("NaN")) && !bytes.Contains(data, []byte("Infinity")) {
		return data
	}

	out := make([]byte, 0, len(data))
	inString := false
	for i := 0; i < len(data); i++ {
		ch := data[i]
		if inString {
			out = append(out, ch)
			switch ch {
			case '\\':
				if i+1 < len(data) {
					i++
					out = append(out, data[i])
				}
			case '"':
				inString = false
			}
			continue
		}
		if ch == '"' {
			inString = true
			out = append(out, ch)
			continue
		}
		if tok := matchNonFinite(data[i:]); tok > 0 {
			out = append(out, "null"...)
			i += tok - 1
			continue
		}
		out = append(out, ch)
	}
	return out
}

func matchNonFinite(rest []byte) int {
	for _, tok := range nonFiniteTokens {
		if bytes.HasPrefix(rest, tok) {
			return len(tok)
		}
	}
	return 0
}

// ParseRecord converts a raw record into a displayable Event, or explains why
// it cannot be displayed.
func ParseRecord(index int, rec RawEventRecord) (Event, error) {
	lat, err := parseCoordinate(index, "latitude", rec.Latitude)
	if err != nil {
		return Event{}, err
	}
	lon, err := parseCoordinate(index, "longitude", rec.Longitude)
	if err != nil {
		return Event{}, err
	}

	return Event{
		ID:             EventID(index),
		Index:          index,
		Title:          rec.Title,
		Description:    rec.Description,
		Location:       rec.Location,
		NextUpdateTime: rec.NextUpdateTime,
		LastUpdateTime: rec.LastUpdateTime,
		Link:           rec.Link,
		Lat:            lat,
		Lon:            lon,
	}, nil
}

func parseCoordinate(index int, field string, c Coordinate) (float64, error) {
	fail := func(reason string) (float64, error) {
		return 0, &ParseError{Index: index, Field: field, Reason: reason, Kind: c.Kind}
	}
	switch {
	case c.Kind == CoordMissing:
		return fail(ReasonMissing)
	case c.Kind != CoordNumber:
		return fail(ReasonNotNumber)
	case math.IsNaN(c.Value):
		return fail(ReasonNaN)
	case math.IsInf(c.Value, 0):
		return fail(ReasonInfinite)
	}
	return c.Value, nil
}

// ParseRecords parses every record, returning displayable events in source
// order together with the rejections.
func ParseRecords(records []RawEventRecord) ([]Event, []*ParseError) {
	events := make([]Event, 0, len(records))
	var rejected []*ParseError
	for i, rec := range records {
		ev, err := ParseRecord(i, rec)
		if err != nil {
			var perr *ParseError
			if errors.As(err, &perr) {
				rejected = append(rejected, perr)
			}
			continue
		}
		events = append(events, ev)
	}
	return events, rejected
}

// FilterDisplayable returns the ordered subsequence of displayable records.
func FilterDisplayable(records []RawEventRecord) []Event {
	events, _ := ParseRecords(records)
	return events
}
