/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package coreutils

import "errors"

var (
	ErrFieldsMissed      = errors.New("fields are missed")
	ErrFieldTypeMismatch = errors.New("field type mismatch")
)
