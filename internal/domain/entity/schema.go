package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/oksasatya/tripdesk/pkg/validation"
)

// Kind is the storage type of a schema field.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindTime
	KindJSON
)

// Field describes one column of a resource.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	// Default is used when an optional field is absent. A func() any is called per record.
	Default any
	// Rules is a go-playground/validator rule string applied to non-nil values.
	Rules string
	// Filterable fields may be used as equality filters on list queries.
	Filterable bool
}

// Lookup is a display field resolved at read time through a foreign key,
// e.g. user_name from users.name via user_id.
type Lookup struct {
	Name   string
	Via    string
	Table  string
	Column string
}

// Schema declares a resource once: its table, fields, defaults, ownership and keys.
// Every resource shares the same repository implementation driven by this descriptor.
type Schema struct {
	Name       string
	Table      string
	Fields     []Field
	OwnerField string
	NaturalKey []string
	Unique     [][]string
	Lookups    []Lookup
}

// Record is a persisted or to-be-persisted row. The "id" key holds the int64 primary key.
type Record map[string]any

// Filter is an equality filter over schema fields.
type Filter map[string]any

func (r Record) ID() int64 {
	id, _ := r["id"].(int64)
	return id
}

// Clone returns a shallow copy so callers can diverge from stored state.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func (s *Schema) Owned() bool { return s.OwnerField != "" }

// Field returns the declared field by name.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Columns lists the field names in declaration order.
func (s *Schema) Columns() []string {
	out := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		out = append(out, f.Name)
	}
	return out
}

// OwnerOf returns the owner id of a record, or 0 for unowned resources.
func (s *Schema) OwnerOf(r Record) int64 {
	if !s.Owned() {
		return 0
	}
	id, _ := r[s.OwnerField].(int64)
	return id
}

// Construct builds a record from client input. Required fields must be present
// and non-nil; absent optional fields take their declared default. Unknown keys are ignored.
func (s *Schema) Construct(input map[string]any) (Record, error) {
	rec := make(Record, len(s.Fields))
	for _, f := range s.Fields {
		raw, ok := input[f.Name]
		if !ok || raw == nil {
			if f.Required {
				return nil, MissingRequiredField(f.Name)
			}
			rec[f.Name] = defaultFor(f)
			continue
		}
		v, err := f.coerce(raw)
		if err != nil {
			return nil, err
		}
		rec[f.Name] = v
	}
	return rec, nil
}

// Merge overwrites only the fields present in partial, in place.
// The id is never touched. On error the record may already hold earlier fields of partial.
func (s *Schema) Merge(rec Record, partial map[string]any) error {
	for _, f := range s.Fields {
		raw, ok := partial[f.Name]
		if !ok {
			continue
		}
		if raw == nil {
			if f.Required {
				return MissingRequiredField(f.Name)
			}
			// an explicit null resets a defaulted column rather than nulling it
			if f.Default != nil {
				rec[f.Name] = defaultFor(f)
				continue
			}
			rec[f.Name] = nil
			continue
		}
		v, err := f.coerce(raw)
		if err != nil {
			return err
		}
		rec[f.Name] = v
	}
	return nil
}

// NaturalKeyOf extracts the natural key filter of a record.
func (s *Schema) NaturalKeyOf(rec Record) (Filter, bool) {
	if len(s.NaturalKey) == 0 {
		return nil, false
	}
	f := make(Filter, len(s.NaturalKey))
	for _, name := range s.NaturalKey {
		v, ok := rec[name]
		if !ok || v == nil {
			return nil, false
		}
		f[name] = v
	}
	return f, true
}

// ParseFilter turns query parameters into a typed filter. Only filterable
// fields and the owner field are accepted; anything else is ignored.
func (s *Schema) ParseFilter(params map[string]string) (Filter, error) {
	out := Filter{}
	for _, f := range s.Fields {
		raw, ok := params[f.Name]
		if !ok || raw == "" {
			continue
		}
		if !f.Filterable && f.Name != s.OwnerField {
			continue
		}
		v, err := f.coerce(raw)
		if err != nil {
			return nil, err
		}
		out[f.Name] = v
	}
	return out, nil
}

func defaultFor(f Field) any {
	switch d := f.Default.(type) {
	case func() any:
		return d()
	default:
		return d
	}
}

func (f Field) coerce(raw any) (any, error) {
	v, err := coerceKind(f.Kind, raw)
	if err != nil {
		return nil, &ValidationError{Field: f.Name, Reason: err.Error()}
	}
	if err := validation.Var(v, f.Rules); err != nil {
		return nil, &ValidationError{Field: f.Name, Reason: err.Error()}
	}
	return v, nil
}

func coerceKind(k Kind, raw any) (any, error) {
	switch k {
	case KindString:
		switch x := raw.(type) {
		case string:
			return x, nil
		case json.Number:
			return x.String(), nil
		}
		return nil, fmt.Errorf("must be a string")
	case KindInt:
		return toInt64(raw)
	case KindFloat:
		return toFloat64(raw)
	case KindBool:
		switch x := raw.(type) {
		case bool:
			return x, nil
		case string:
			b, err := strconv.ParseBool(x)
			if err != nil {
				return nil, fmt.Errorf("must be a boolean")
			}
			return b, nil
		}
		return nil, fmt.Errorf("must be a boolean")
	case KindTime:
		switch x := raw.(type) {
		case time.Time:
			return x.UTC(), nil
		case string:
			for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
				if t, err := time.Parse(layout, x); err == nil {
					return t.UTC(), nil
				}
			}
		}
		return nil, fmt.Errorf("must be an RFC3339 timestamp")
	case KindJSON:
		switch x := raw.(type) {
		case map[string]any, []any:
			return x, nil
		case string:
			var out any
			if err := json.Unmarshal([]byte(x), &out); err != nil {
				return nil, fmt.Errorf("must be a JSON document")
			}
			return out, nil
		}
		return nil, fmt.Errorf("must be a JSON object or array")
	}
	return nil, fmt.Errorf("unsupported kind %d", k)
}

func toInt64(raw any) (int64, error) {
	switch x := raw.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("must be an integer")
		}
		// 2^63 is the first float64 past MaxInt64; converting it is undefined
		if x < math.MinInt64 || x >= 1<<63 {
			return 0, errIntRange
		}
		return int64(x), nil
	case json.Number:
		// "5.0" and "1e3" are integral JSON numbers too
		if i, err := parseInt64(x.String()); err == nil || errors.Is(err, errIntRange) {
			return i, err
		}
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("must be an integer")
		}
		return toInt64(f)
	case string:
		return parseInt64(strings.TrimSpace(x))
	}
	return 0, fmt.Errorf("must be an integer")
}

var errIntRange = errors.New("is out of range")

func parseInt64(s string) (int64, error) {
	i, err := strconv.ParseInt(s, 10, 64)
	if errors.Is(err, strconv.ErrRange) {
		return 0, errIntRange
	}
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	return i, nil
}

func toFloat64(raw any) (float64, error) {
	switch x := raw.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int:
		return float64(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("must be a number")
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("must be a number")
		}
		return f, nil
	}
	return 0, fmt.Errorf("must be a number")
}
