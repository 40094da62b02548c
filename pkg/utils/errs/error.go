package errs

import (
	"errors"
	"fmt"
	"strings"
)

// CustomError carries a message, ordered key/value context and an optional cause.
type CustomError struct {
	message string
	keys    []string
	args    map[string]interface{}
	wrapped error
}

// New creates a new CustomError instance.
func New(message string) *CustomError {
	return &CustomError{
		message: message,
		args:    make(map[string]interface{}),
	}
}

// Error implements the error interface.
func (e *CustomError) Error() string {
	return e.fullErrorString()
}

// Arg adds an argument to the error. Re-adding a key replaces its value.
func (e *CustomError) Arg(key string, value interface{}) *CustomError {
	if _, ok := e.args[key]; !ok {
		e.keys = append(e.keys, key)
	}
	e.args[key] = value
	return e
}

// Wrap wraps another error (can be of the same type or a standard error).
func (e *CustomError) Wrap(err error) *CustomError {
	if err != nil {
		e.wrapped = err
	}
	return e
}

// Unwrap returns the wrapped error if any.
func (e *CustomError) Unwrap() error {
	return e.wrapped
}

// fullErrorString renders "{msg: <message>, args: [k=v ...], wrappedError: {<cause>}}".
// Args keep insertion order so log lines are stable.
func (e *CustomError) fullErrorString() string {
	var builder strings.Builder

	builder.WriteString("{msg: ")
	builder.WriteString(e.message)

	if len(e.keys) > 0 {
		pairs := make([]string, 0, len(e.keys))
		for _, k := range e.keys {
			pairs = append(pairs, fmt.Sprintf("%s=%v", k, e.args[k]))
		}
		builder.WriteString(", args: [")
		builder.WriteString(strings.Join(pairs, " "))
		builder.WriteString("]")
	}

	if e.wrapped != nil {
		var wrappedErr *CustomError
		if errors.As(e.wrapped, &wrappedErr) && wrappedErr == e.wrapped {
			builder.WriteString(", wrappedError: ")
			builder.WriteString(wrappedErr.fullErrorString())
		} else {
			builder.WriteString(fmt.Sprintf(", wrappedError: {%v}", e.wrapped.Error()))
		}
	}

	builder.WriteString("}")

	return builder.String()
}
