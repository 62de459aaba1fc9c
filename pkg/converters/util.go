/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package converters

import (
	"github.com/rpmsoftware/integration-common-sub000/pkg/coreutils"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

func sortedKeys(m coreutils.MapObject) []string {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}
