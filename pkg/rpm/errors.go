/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package rpm

import (
	"errors"
	"fmt"
)

func EnrichError(err error, msg string, args ...any) error {
	s := msg
	if len(args) > 0 {
		s = fmt.Sprintf(msg, args...)
	}
	return fmt.Errorf("%w: %s", err, s)
}

// ErrConfigurationError marks authoring/deployment mistakes: unknown
// strategy names, unresolvable field names, malformed descriptors.
// Always fatal to init, never retried.
var ErrConfigurationError = errors.New("configuration error")

func ErrConfiguration(msg string, args ...any) error {
	return EnrichError(ErrConfigurationError, msg, args...)
}

// ErrValueError marks a per-field data-quality problem. The setter engine
// catches it at the batch boundary and turns it into an Errors annotation
// on the patch instead of aborting the batch.
var ErrValueError = errors.New("value error")

func ErrValue(msg string, args ...any) error {
	return EnrichError(ErrValueError, msg, args...)
}

// ErrAssertionError marks a schema/data inconsistency the engine cannot
// repair (missing definition row, duplicate key index). Always fatal.
var ErrAssertionError = errors.New("assertion failed")

func ErrAssertion(msg string, args ...any) error {
	return EnrichError(ErrAssertionError, msg, args...)
}

var ErrUnknownTypeError = errors.New("unknown field type")

func ErrUnknownType(msg string, args ...any) error {
	return EnrichError(ErrUnknownTypeError, msg, args...)
}

var ErrNotFoundError = errors.New("not found")

func ErrNotFound(msg string, args ...any) error {
	return EnrichError(ErrNotFoundError, msg, args...)
}

func ErrFieldNotFound(f string) error {
	return ErrConfiguration("field «%v» not found", f)
}

func ErrReadOnlyField(f string) error {
	return ErrConfiguration("field «%v» is not editable", f)
}

func ErrFormNotFound(id int64) error {
	return ErrNotFound("form «%d»", id)
}
