package timing

import "fmt"

// BadSynchronisationError reports arithmetic between two fixed durations of
// different precisions.
type BadSynchronisationError struct {
	A, B Duration
}

func (e *BadSynchronisationError) Error() string {
	return fmt.Sprintf(
		"cannot operate on fixed durations of different precisions: %s and %s",
		e.A, e.B)
}

// ArithmeticError reports an operation that would produce a NaN duration.
type ArithmeticError struct {
	Op string
}

func (e *ArithmeticError) Error() string {
	return "duration arithmetic produced NaN in " + e.Op
}
