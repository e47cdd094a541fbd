package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// ValueKind discriminates the closed set of shapes a card value can take.
type ValueKind int

const (
	// KindScalar is a single text value. Numbers and booleans supplied by
	// the oracle are coerced to their text form.
	KindScalar ValueKind = iota
	// KindSequence is an ordered list of values.
	KindSequence
	// KindMapping is a string-keyed collection of values.
	KindMapping
)

// Value is a tagged union over {scalar, sequence, mapping}. Representing
// oracle output this way keeps merge and default-derivation logic over a
// closed set of shapes instead of runtime type inspection.
type Value struct {
	Kind    ValueKind
	Scalar  string
	Seq     []Value
	Mapping map[string]Value
}

// ScalarValue returns a scalar Value holding s.
func ScalarValue(s string) Value {
	return Value{Kind: KindScalar, Scalar: s}
}

// SequenceValue returns a sequence Value holding the given elements.
func SequenceValue(elems ...Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{Kind: KindSequence, Seq: elems}
}

// MappingValue returns a mapping Value holding the given entries.
func MappingValue(entries map[string]Value) Value {
	if entries == nil {
		entries = map[string]Value{}
	}
	return Value{Kind: KindMapping, Mapping: entries}
}

// IsEmpty reports whether the value is an empty string, empty sequence,
// or empty mapping. Additive merges skip empty values.
func (v Value) IsEmpty() bool {
	switch v.Kind {
	case KindSequence:
		return len(v.Seq) == 0
	case KindMapping:
		return len(v.Mapping) == 0
	default:
		return v.Scalar == ""
	}
}

// Equal reports deep equality of two values.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindScalar:
		return v.Scalar == other.Scalar
	case KindSequence:
		if len(v.Seq) != len(other.Seq) {
			return false
		}
		for i := range v.Seq {
			if !v.Seq[i].Equal(other.Seq[i]) {
				return false
			}
		}
		return true
	case KindMapping:
		if len(v.Mapping) != len(other.Mapping) {
			return false
		}
		for k, val := range v.Mapping {
			o, ok := other.Mapping[k]
			if !ok || !val.Equal(o) {
				return false
			}
		}
		return true
	}
	return false
}

// MarshalJSON renders the value in its natural JSON shape.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindSequence:
		if v.Seq == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.Seq)
	case KindMapping:
		if v.Mapping == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.Mapping)
	default:
		return json.Marshal(v.Scalar)
	}
}

// UnmarshalJSON parses arbitrary JSON into the tagged union with
// best-effort coercion: strings, numbers, booleans, and null all become
// scalars; arrays become sequences; objects become mappings.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*v = ScalarValue("")
		return nil
	}

	switch data[0] {
	case '[':
		var elems []Value
		if err := json.Unmarshal(data, &elems); err != nil {
			return err
		}
		*v = SequenceValue(elems...)
		return nil
	case '{':
		var entries map[string]Value
		if err := json.Unmarshal(data, &entries); err != nil {
			return err
		}
		*v = MappingValue(entries)
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = ScalarValue(s)
		return nil
	}

	// Numbers, booleans, null: coerce to scalar text.
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case nil:
		*v = ScalarValue("")
	case bool:
		*v = ScalarValue(strconv.FormatBool(t))
	case float64:
		*v = ScalarValue(strconv.FormatFloat(t, 'f', -1, 64))
	default:
		*v = ScalarValue(fmt.Sprintf("%v", t))
	}
	return nil
}

// Card is the mapping of dimension key to value for one talent record.
type Card map[string]Value

// Clone returns a deep copy of the card.
func (c Card) Clone() Card {
	out := make(Card, len(c))
	for k, v := range c {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v Value) Value {
	switch v.Kind {
	case KindSequence:
		seq := make([]Value, len(v.Seq))
		for i, e := range v.Seq {
			seq[i] = cloneValue(e)
		}
		return Value{Kind: KindSequence, Seq: seq}
	case KindMapping:
		m := make(map[string]Value, len(v.Mapping))
		for k, e := range v.Mapping {
			m[k] = cloneValue(e)
		}
		return Value{Kind: KindMapping, Mapping: m}
	default:
		return v
	}
}

// Keys returns the card's dimension keys in sorted order.
func (c Card) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Overwrite replaces the card wholesale with newCard. Used by the text
// modality, where the oracle was given the prior state and is expected to
// have preserved what it did not change.
func (c *Card) Overwrite(newCard Card) {
	*c = newCard.Clone()
}

// MergeAdditive applies newCard per key, keeping the prior value wherever
// the new one is an empty string, sequence, or mapping. Used by the
// document modality: a single document pass is less authoritative than an
// explicit user statement.
func (c Card) MergeAdditive(newCard Card) {
	for k, v := range newCard {
		if v.IsEmpty() {
			continue
		}
		c[k] = cloneValue(v)
	}
}

// EmptyDefault derives the empty value for a new dimension purely from a
// structural hint, independent of any sample value: an "array" type or an
// object describing "items" yields an empty sequence; any other
// object-like hint yields an empty mapping; everything else, including an
// unparsable hint, yields an empty scalar. Ignoring the literal schema
// text keeps backfilled defaults from colliding with type declarations.
func EmptyDefault(schemaHint string) Value {
	var raw any
	if err := json.Unmarshal([]byte(schemaHint), &raw); err != nil {
		return ScalarValue("")
	}

	switch t := raw.(type) {
	case []any:
		return SequenceValue()
	case map[string]any:
		if t["type"] == "array" {
			return SequenceValue()
		}
		if _, ok := t["items"].(map[string]any); ok {
			return SequenceValue()
		}
		return MappingValue(nil)
	default:
		return ScalarValue("")
	}
}
