package mleml

import (
	"errors"
	"fmt"
)

var (
	ErrConfigLength         = errors.New("config length does not match the schema")
	ErrNotScalar            = errors.New("config values must be numbers, strings, booleans or null")
	ErrValueOutsideSchema   = errors.New("value outside of the schema")
	ErrIndexOutsideRange    = errors.New("index outside of range")
	ErrInsertBreaksPipeline = errors.New("inserting mod will break the pipeline")
	ErrStateCountMismatch   = errors.New("number of mods, configs and states is not equal")
	ErrChannelCount         = errors.New("channel count mismatch")
)

type (
	// ResourceError is the descriptive error reported by a resource, local or
	// foreign. The message is propagated unchanged.
	ResourceError struct {
		Msg string
	}

	// ConfigError tells that the value at Index of a config does not have
	// the type tag of the schema.
	ConfigError struct {
		Index    int
		Expected Kind
		Got      Kind
	}

	// TypeMismatchError is returned by ConfigBuilder when a value does not
	// fit the next slot of the schema.
	TypeMismatchError struct {
		Pos      int
		Expected Kind
		Got      Kind
	}

	// InputTypeError is returned by a mod that was given data of the wrong
	// variant.
	InputTypeError struct {
		Expected DataType
		Got      DataType
	}

	// PipelineBrokenError tells that the output of the mod at Index-1 does not
	// fit the input of the mod at Index.
	PipelineBrokenError struct {
		Index int
	}

	// StageError annotates an error of a mod with the position of the mod in
	// a pipeline or a channel.
	StageError struct {
		Stage string
		Index int
		Err   error
	}
)

// Errorf returns a ResourceError with a formatted message. Mod
// implementations use it to report failures.
func Errorf(format string, a ...any) error {
	return &ResourceError{Msg: fmt.Sprintf(format, a...)}
}

func (e *ResourceError) Error() string {
	return "resource error: " + e.Msg
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("type mismatch at index %d: expected %v, got %v", e.Index, e.Expected, e.Got)
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch at position %d: expected %v, got %v", e.Pos, e.Expected, e.Got)
}

func (e *InputTypeError) Error() string {
	return fmt.Sprintf("wrong input type: expected %v, got %v", e.Expected, e.Got)
}

func (e *PipelineBrokenError) Error() string {
	return fmt.Sprintf("pipeline broken at mod %d", e.Index)
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s error at %d: %v", e.Stage, e.Index, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
