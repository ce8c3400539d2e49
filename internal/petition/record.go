// Package petition defines the petition record, its JSON encoding and the
// inputs accepted when creating or changing one.
package petition

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Keys owned by the typed fields of Record. They never appear in Extra.
const (
	KeyID          = "id"
	KeyName        = "name"
	KeyDescription = "description"
	KeyCreatedAt   = "created_at"
	KeyUpdatedAt   = "updated_at"
)

// TimeFormat is the ISO-8601 layout used for timestamps on disk and on the wire.
const TimeFormat = time.RFC3339Nano

// Record is a single petition entry.
// ID and CreatedAt are assigned by the store and never change afterwards.
type Record struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Extra carries any additional caller-supplied fields through unchanged.
	Extra map[string]any
}

// IsReserved reports whether key belongs to one of the typed Record fields.
func IsReserved(key string) bool {
	switch key {
	case KeyID, KeyName, KeyDescription, KeyCreatedAt, KeyUpdatedAt:
		return true
	}
	return false
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	c := r
	if r.Extra != nil {
		c.Extra = make(map[string]any, len(r.Extra))
		for k, v := range r.Extra {
			c.Extra[k] = CloneValue(v)
		}
	}
	return c
}

// CloneValue copies the JSON container types nested in v so the result
// shares no maps or slices with it. Scalars are returned as is.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if t == nil {
			return t
		}
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = CloneValue(e)
		}
		return m
	case []any:
		if t == nil {
			return t
		}
		l := make([]any, len(t))
		for i, e := range t {
			l[i] = CloneValue(e)
		}
		return l
	default:
		return v
	}
}

// MarshalJSON flattens Extra into the top-level object next to the typed fields.
func (r Record) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(r.Extra)+5)
	for k, v := range r.Extra {
		if IsReserved(k) {
			continue
		}
		obj[k] = v
	}
	obj[KeyID] = r.ID
	obj[KeyName] = r.Name
	obj[KeyDescription] = r.Description
	obj[KeyCreatedAt] = FormatTime(r.CreatedAt)
	obj[KeyUpdatedAt] = FormatTime(r.UpdatedAt)
	return json.Marshal(obj)
}

// UnmarshalJSON is the inverse of MarshalJSON. Unknown keys land in Extra,
// with numbers kept as json.Number so they round-trip exactly.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var out Record
	for key, value := range raw {
		var err error
		switch key {
		case KeyID:
			err = json.Unmarshal(value, &out.ID)
		case KeyName:
			err = json.Unmarshal(value, &out.Name)
		case KeyDescription:
			err = json.Unmarshal(value, &out.Description)
		case KeyCreatedAt:
			out.CreatedAt, err = decodeTime(value)
		case KeyUpdatedAt:
			out.UpdatedAt, err = decodeTime(value)
		default:
			var v any
			dec := json.NewDecoder(bytes.NewReader(value))
			dec.UseNumber()
			if err = dec.Decode(&v); err == nil {
				if out.Extra == nil {
					out.Extra = make(map[string]any)
				}
				out.Extra[key] = v
			}
		}
		if err != nil {
			return fmt.Errorf("petition field %q: %w", key, err)
		}
	}

	*r = out
	return nil
}

// FormatTime renders t as an ISO-8601 UTC string.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// ParseTime parses an ISO-8601 timestamp and normalises it to UTC.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeFormat, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func decodeTime(value json.RawMessage) (time.Time, error) {
	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		return time.Time{}, err
	}
	return ParseTime(s)
}
