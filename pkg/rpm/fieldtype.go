/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package rpm

import (
	"fmt"
	"strconv"
)

// FullType is the "major_minor" dispatch key into every per-type behavior
// table (getters, setters). The registry behind it is closed: all entries
// are registered from this file's init and never mutated afterwards, so
// dispatch tables can be validated for completeness at startup.
type FullType string

func MakeFullType(ot ObjectType, st FieldSubType) FullType {
	return FullType(strconv.Itoa(int(ot)) + "_" + strconv.Itoa(int(st)))
}

var (
	objectTypeNames  = map[ObjectType]string{}
	objectTypesByStr = map[string]ObjectType{}
	subTypeNames     = map[ObjectType]map[FieldSubType]string{}
	subTypesByStr    = map[ObjectType]map[string]FieldSubType{}
)

func registerObjectType(ot ObjectType, name string) {
	if _, dup := objectTypeNames[ot]; dup {
		panic(fmt.Sprintf("duplicate object type %d", ot))
	}
	if _, dup := objectTypesByStr[name]; dup {
		panic(fmt.Sprintf("duplicate object type name %q", name))
	}
	objectTypeNames[ot] = name
	objectTypesByStr[name] = ot
	subTypeNames[ot] = map[FieldSubType]string{}
	subTypesByStr[ot] = map[string]FieldSubType{}
}

func registerSubType(ot ObjectType, st FieldSubType, name string) {
	if _, dup := subTypeNames[ot][st]; dup {
		panic(fmt.Sprintf("duplicate sub type %d under object type %v", st, ot))
	}
	if _, dup := subTypesByStr[ot][name]; dup {
		panic(fmt.Sprintf("duplicate sub type name %q under object type %v", name, ot))
	}
	subTypeNames[ot][st] = name
	subTypesByStr[ot][name] = st
}

func init() {
	registerObjectType(ObjectType_NA, "NA")
	registerObjectType(ObjectType_CustomField, "CustomField")
	registerObjectType(ObjectType_FormReference, "FormReference")

	for st, name := range map[FieldSubType]string{
		FieldSubType_NA:                   "NA",
		FieldSubType_Text:                 "Text",
		FieldSubType_Http:                 "Http",
		FieldSubType_Date:                 "Date",
		FieldSubType_YesNo:                "YesNo",
		FieldSubType_List:                 "List",
		FieldSubType_Divider:              "Divider",
		FieldSubType_Money:                "Money",
		FieldSubType_Label:                "Label",
		FieldSubType_Description:          "Description",
		FieldSubType_ListMultiSelect:      "ListMultiSelect",
		FieldSubType_TextArea:             "TextArea",
		FieldSubType_Link:                 "Link",
		FieldSubType_DeprecatedTable:      "DeprecatedTable",
		FieldSubType_Number:               "Number",
		FieldSubType_DeprecatedFormula:    "DeprecatedFormula",
		FieldSubType_FieldTable:           "FieldTable",
		FieldSubType_Percent:              "Percent",
		FieldSubType_FixedNumber:          "FixedNumber",
		FieldSubType_SpecialPhone:         "SpecialPhone",
		FieldSubType_LocationLatLong:      "LocationLatLong",
		FieldSubType_Decimal:              "Decimal",
		FieldSubType_DateTime:             "DateTime",
		FieldSubType_DescriptionTable:     "DescriptionTable",
		FieldSubType_FieldTableDefinedRow: "FieldTableDefinedRow",
		FieldSubType_Formula:              "Formula",
		FieldSubType_Money4:               "Money4",
	} {
		registerSubType(ObjectType_CustomField, st, name)
	}

	for st, name := range map[FieldSubType]string{
		RefSubType_Customer:            "Customer",
		RefSubType_CustomerLocation:    "CustomerLocation",
		RefSubType_CustomerAccount:     "CustomerAccount",
		RefSubType_Staff:               "Staff",
		RefSubType_RestrictedReference: "RestrictedReference",
		RefSubType_AgentCompany:        "AgentCompany",
		RefSubType_AgentRep:            "AgentRep",
	} {
		registerSubType(ObjectType_FormReference, st, name)
	}
}

func (ot ObjectType) String() string {
	if name, ok := objectTypeNames[ot]; ok {
		return name
	}
	return strconv.Itoa(int(ot))
}

func (ot ObjectType) MarshalText() ([]byte, error) {
	return []byte(ot.String()), nil
}

// SubTypeName renders a sub type under its object type namespace.
func SubTypeName(ot ObjectType, st FieldSubType) string {
	if names, ok := subTypeNames[ot]; ok {
		if name, ok := names[st]; ok {
			return name
		}
	}
	return strconv.Itoa(int(st))
}

// ResolveObjectType accepts an ObjectType name or numeric value.
func ResolveObjectType(v any) (ObjectType, error) {
	switch t := v.(type) {
	case ObjectType:
		if _, ok := objectTypeNames[t]; ok {
			return t, nil
		}
	case string:
		if ot, ok := objectTypesByStr[t]; ok {
			return ot, nil
		}
		if n, err := strconv.Atoi(t); err == nil {
			return ResolveObjectType(ObjectType(n))
		}
	case int:
		return ResolveObjectType(ObjectType(t))
	case int64:
		return ResolveObjectType(ObjectType(t))
	case float64:
		return ResolveObjectType(ObjectType(int(t)))
	}
	return ObjectType_NA, ErrUnknownType("object type «%v»", v)
}

// ResolveFullType resolves an (object type, sub type) pair, each given as
// a name or a numeric value, into the dispatch key.
func ResolveFullType(objectType, subType any) (FullType, error) {
	ot, err := ResolveObjectType(objectType)
	if err != nil {
		return "", err
	}
	var st FieldSubType
	switch t := subType.(type) {
	case FieldSubType:
		st = t
	case string:
		var ok bool
		if st, ok = subTypesByStr[ot][t]; !ok {
			if n, err := strconv.Atoi(t); err == nil {
				st = FieldSubType(n)
			} else {
				return "", ErrUnknownType("sub type «%v» under «%v»", subType, ot)
			}
		}
	case int:
		st = FieldSubType(t)
	case int64:
		st = FieldSubType(t)
	case float64:
		st = FieldSubType(int(t))
	default:
		return "", ErrUnknownType("sub type «%v» under «%v»", subType, ot)
	}
	if _, ok := subTypeNames[ot][st]; !ok {
		return "", ErrUnknownType("sub type «%v» under «%v»", subType, ot)
	}
	return MakeFullType(ot, st), nil
}

// FullTypeInfo is the reverse lookup: dispatch key to names.
func FullTypeInfo(ft FullType) (objectType, subType string, err error) {
	ot, st, err := ft.parts()
	if err != nil {
		return "", "", err
	}
	return ot.String(), SubTypeName(ot, st), nil
}

// Parts decomposes the dispatch key into its registered pair.
func (ft FullType) Parts() (ObjectType, FieldSubType, error) {
	return ft.parts()
}

func (ft FullType) parts() (ObjectType, FieldSubType, error) {
	var maj, min int
	if _, err := fmt.Sscanf(string(ft), "%d_%d", &maj, &min); err != nil {
		return 0, 0, ErrUnknownType("full type «%v»", ft)
	}
	ot := ObjectType(maj)
	st := FieldSubType(min)
	if _, ok := subTypeNames[ot][st]; !ok {
		return 0, 0, ErrUnknownType("full type «%v»", ft)
	}
	return ot, st, nil
}

// IsKnownFullType reports whether ft names a registered pair. Behavior
// tables keyed by full type use it to fail fast on registration.
func IsKnownFullType(ft FullType) bool {
	_, _, err := ft.parts()
	return err == nil
}

// FullTypeOfUid extracts the type key a field Uid encodes. Uids follow
// the "<objectType>_<subType>_<fieldID>" convention; table-column Uids
// are the only type information a definition row carries.
func FullTypeOfUid(uid string) (FullType, bool) {
	var maj, min, id int
	if _, err := fmt.Sscanf(uid, "%d_%d_%d", &maj, &min, &id); err != nil {
		return "", false
	}
	ft := MakeFullType(ObjectType(maj), FieldSubType(min))
	return ft, IsKnownFullType(ft)
}

// EnumFullTypes calls cb for every registered (object type, sub type)
// pair in unspecified order.
func EnumFullTypes(cb func(FullType)) {
	for ot, names := range subTypeNames {
		for st := range names {
			cb(MakeFullType(ot, st))
		}
	}
}
