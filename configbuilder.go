package mleml

// ConfigBuilder builds a config one value at a time, validating every value
// against the next slot of a schema. Once all slots are filled, the builder
// is done and refuses further values.
type ConfigBuilder struct {
	schema ResConfig
	config ResConfig
}

// NewConfigBuilder returns a builder for the given schema. A builder for an
// empty schema is done right away.
func NewConfigBuilder(schema ResConfig) *ConfigBuilder {
	return &ConfigBuilder{schema: schema, config: make(ResConfig, 0, len(schema))}
}

// Done reports whether the config is fully built.
func (b *ConfigBuilder) Done() bool {
	return len(b.config) == len(b.schema)
}

// Len returns the number of values accepted so far.
func (b *ConfigBuilder) Len() int {
	return len(b.config)
}

// Push validates and appends one value. It returns true when the value
// completed the config.
func (b *ConfigBuilder) Push(v any) (bool, error) {
	if b.Done() {
		return true, ErrValueOutsideSchema
	}
	got, err := KindOf(v)
	if err != nil {
		return false, err
	}
	pos := len(b.config)
	if want := b.schema.Kind(pos); got != want {
		return false, &TypeMismatchError{Pos: pos, Expected: want, Got: got}
	}
	if err := b.config.Push(v); err != nil {
		return false, err
	}
	return b.Done(), nil
}

// Inject pushes values until the config is done, the values run out or a
// value is rejected. It returns the number of values consumed; values left
// over after the config got done are not consumed. Injecting into a builder
// that is already done is an error.
func (b *ConfigBuilder) Inject(values ...any) (int, error) {
	if b.Done() && len(values) > 0 {
		return 0, ErrValueOutsideSchema
	}
	for i, v := range values {
		if b.Done() {
			return i, nil
		}
		if _, err := b.Push(v); err != nil {
			return i, err
		}
	}
	return len(values), nil
}

// Config returns the built config, or false if it is not done yet.
func (b *ConfigBuilder) Config() (ResConfig, bool) {
	if !b.Done() {
		return nil, false
	}
	return b.config.Copy(), true
}
