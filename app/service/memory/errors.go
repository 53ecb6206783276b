package memory

import "fmt"

// NotFoundError is returned when an operation needs an entity that is not in the graph.
type NotFoundError struct {
	EntityName string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Entity with name %s not found", e.EntityName)
}

// DecodeError means a line of the memory file is not a valid record.
// A single bad line fails the whole load.
type DecodeError struct {
	Line int
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to parse JSON line %d: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
