/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package rpm

import "strconv"

// EntityType selects a directory the platform can enumerate. Values
// match the FormReference sub types referencing the same directory.
type EntityType int

const (
	EntityType_Customer         EntityType = EntityType(RefSubType_Customer)
	EntityType_CustomerLocation EntityType = EntityType(RefSubType_CustomerLocation)
	EntityType_CustomerAccount  EntityType = EntityType(RefSubType_CustomerAccount)
	EntityType_Staff            EntityType = EntityType(RefSubType_Staff)
	EntityType_AgentCompany     EntityType = EntityType(RefSubType_AgentCompany)
	EntityType_AgentRep         EntityType = EntityType(RefSubType_AgentRep)
)

var entityTypeNames = map[EntityType]string{
	EntityType_Customer:         "Customer",
	EntityType_CustomerLocation: "CustomerLocation",
	EntityType_CustomerAccount:  "CustomerAccount",
	EntityType_Staff:            "Staff",
	EntityType_AgentCompany:     "AgentCompany",
	EntityType_AgentRep:         "AgentRep",
}

func (et EntityType) String() string {
	if name, ok := entityTypeNames[et]; ok {
		return name
	}
	return strconv.Itoa(int(et))
}

// EntityTypeByName resolves a directory by its configuration name.
func EntityTypeByName(name string) (EntityType, bool) {
	for et, n := range entityTypeNames {
		if n == name {
			return et, true
		}
	}
	return 0, false
}

// EntityTypeForRef maps a FormReference sub type to the directory it
// references. ok == false for RestrictedReference, which points at forms,
// not directory entities.
func EntityTypeForRef(st FieldSubType) (EntityType, bool) {
	et := EntityType(st)
	_, ok := entityTypeNames[et]
	return et, ok
}
