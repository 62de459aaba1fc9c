/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package rpm

// StrPtr is a convenience for building FieldValue/FieldPatch values.
func StrPtr(s string) *string { return &s }
