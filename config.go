package mleml

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

type (
	// ResConfig is a flat, ordered array of scalar JSON values. It is used
	// both as an actual configuration of a resource and as a schema, in which
	// case only the type tags (Kind) of the values matter.
	//
	// Numbers are always stored as float64, so that two configs holding the
	// same numbers compare equal regardless of how they were built.
	ResConfig []any

	// Kind is the type tag of a config value.
	Kind int
)

const (
	NullKind Kind = iota
	BoolKind
	NumberKind
	StringKind
)

var kindNames = [...]string{"null", "bool", "number", "string"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// NewResConfig builds a config out of the given values. Any Go number type
// is accepted; arrays, maps and other non-scalar values are rejected.
func NewResConfig(values ...any) (ResConfig, error) {
	ret := make(ResConfig, 0, len(values))
	for _, v := range values {
		if err := ret.Push(v); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

// MustResConfig is like NewResConfig but panics on error. Meant for schemas
// declared as package level variables.
func MustResConfig(values ...any) ResConfig {
	ret, err := NewResConfig(values...)
	if err != nil {
		panic(err)
	}
	return ret
}

// Push appends a value to the config. Nesting is never allowed.
func (c *ResConfig) Push(v any) error {
	n, err := normalize(v)
	if err != nil {
		return err
	}
	*c = append(*c, n)
	return nil
}

// KindOf returns the type tag of a value, or ErrNotScalar.
func KindOf(v any) (Kind, error) {
	switch v.(type) {
	case nil:
		return NullKind, nil
	case bool:
		return BoolKind, nil
	case string:
		return StringKind, nil
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, json.Number:
		return NumberKind, nil
	}
	return 0, fmt.Errorf("%w: got %T", ErrNotScalar, v)
}

func normalize(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, string, float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", x, err)
		}
		return f, nil
	}
	return nil, fmt.Errorf("%w: got %T", ErrNotScalar, v)
}

// Kind returns the type tag of the value at index i. Out of range indices
// report NullKind.
func (c ResConfig) Kind(i int) Kind {
	if i < 0 || i >= len(c) {
		return NullKind
	}
	k, _ := KindOf(c[i])
	return k
}

// CheckSchema compares the type tags of the config to the ones of the schema,
// position by position. It fails with a *ConfigError at the first mismatching
// index, or with ErrConfigLength if the lengths differ.
func (c ResConfig) CheckSchema(schema ResConfig) error {
	for i := 0; i < len(c) && i < len(schema); i++ {
		if got, want := c.Kind(i), schema.Kind(i); got != want {
			return &ConfigError{Index: i, Expected: want, Got: got}
		}
	}
	if len(c) != len(schema) {
		return fmt.Errorf("%w: expected %d values, got %d", ErrConfigLength, len(schema), len(c))
	}
	return nil
}

func (c ResConfig) value(i int, want Kind) (any, error) {
	if i < 0 || i >= len(c) {
		return nil, fmt.Errorf("config index %d: %w", i, ErrIndexOutsideRange)
	}
	if got := c.Kind(i); got != want {
		return nil, &ConfigError{Index: i, Expected: want, Got: got}
	}
	return c[i], nil
}

// Float returns the number at index i.
func (c ResConfig) Float(i int) (float64, error) {
	v, err := c.value(i, NumberKind)
	if err != nil {
		return 0, err
	}
	f, err := normalize(v)
	if err != nil {
		return 0, err
	}
	return f.(float64), nil
}

// Int returns the number at index i, truncated towards zero.
func (c ResConfig) Int(i int) (int, error) {
	f, err := c.Float(i)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("config value at %d is not finite", i)
	}
	return int(f), nil
}

// Bool returns the boolean at index i.
func (c ResConfig) Bool(i int) (bool, error) {
	v, err := c.value(i, BoolKind)
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// Text returns the string at index i.
func (c ResConfig) Text(i int) (string, error) {
	v, err := c.value(i, StringKind)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Equal reports whether the configs hold the same values.
func (c ResConfig) Equal(other ResConfig) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		a, _ := normalize(c[i])
		b, _ := normalize(other[i])
		if a != b {
			return false
		}
	}
	return true
}

// Copy makes a copy of the config.
func (c ResConfig) Copy() ResConfig {
	if c == nil {
		return nil
	}
	ret := make(ResConfig, len(c))
	copy(ret, c)
	return ret
}

// Bytes returns the JSON wire form of the config, e.g. [8.175799,0.5,"sine"].
// This is what is handed to foreign resources.
func (c ResConfig) Bytes() ([]byte, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]any(c))
}

// ParseResConfig parses the JSON wire form of a config.
func ParseResConfig(data []byte) (ResConfig, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var values []any
	if err := dec.Decode(&values); err != nil {
		return nil, fmt.Errorf("config is not a JSON array: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after config array")
	}
	return NewResConfig(values...)
}

func (c *ResConfig) UnmarshalJSON(data []byte) error {
	conf, err := ParseResConfig(data)
	if err != nil {
		return err
	}
	*c = conf
	return nil
}

// UnmarshalYAML reads a config from a flow or block sequence of scalars.
func (c *ResConfig) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: config should be a sequence", value.Line)
	}
	conf := make(ResConfig, 0, len(value.Content))
	for _, n := range value.Content {
		if n.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: %w", n.Line, ErrNotScalar)
		}
		var v any
		if err := n.Decode(&v); err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		if err := conf.Push(v); err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
	}
	*c = conf
	return nil
}
