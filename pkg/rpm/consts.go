/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package rpm

// ObjectType is the major part of a field's full type key.
type ObjectType int

const (
	ObjectType_NA            ObjectType = 0
	ObjectType_CustomField   ObjectType = 500
	ObjectType_FormReference ObjectType = 520
)

// FieldSubType is the minor part of a field's full type key. The numeric
// namespace restarts under each ObjectType.
type FieldSubType int

// ObjectType_CustomField sub types (field formats).
const (
	FieldSubType_NA                   FieldSubType = 0
	FieldSubType_Text                 FieldSubType = 1
	FieldSubType_Http                 FieldSubType = 2
	FieldSubType_Date                 FieldSubType = 3
	FieldSubType_YesNo                FieldSubType = 4
	FieldSubType_List                 FieldSubType = 5
	FieldSubType_Divider              FieldSubType = 6
	FieldSubType_Money                FieldSubType = 7
	FieldSubType_Label                FieldSubType = 8
	FieldSubType_Description          FieldSubType = 9
	FieldSubType_ListMultiSelect      FieldSubType = 10
	FieldSubType_TextArea             FieldSubType = 11
	FieldSubType_Link                 FieldSubType = 12
	FieldSubType_DeprecatedTable      FieldSubType = 13
	FieldSubType_Number               FieldSubType = 14
	FieldSubType_DeprecatedFormula    FieldSubType = 15
	FieldSubType_FieldTable           FieldSubType = 16
	FieldSubType_Percent              FieldSubType = 17
	FieldSubType_FixedNumber          FieldSubType = 18
	FieldSubType_SpecialPhone         FieldSubType = 19
	FieldSubType_LocationLatLong      FieldSubType = 20
	FieldSubType_Decimal              FieldSubType = 21
	FieldSubType_DateTime             FieldSubType = 27
	FieldSubType_DescriptionTable     FieldSubType = 28
	FieldSubType_FieldTableDefinedRow FieldSubType = 29
	FieldSubType_Formula              FieldSubType = 30
	FieldSubType_Money4               FieldSubType = 31
)

// ObjectType_FormReference sub types (kind of the referenced object).
const (
	RefSubType_Customer            FieldSubType = 5
	RefSubType_CustomerLocation    FieldSubType = 6
	RefSubType_CustomerAccount     FieldSubType = 7
	RefSubType_Staff               FieldSubType = 9
	RefSubType_RestrictedReference FieldSubType = 14
	RefSubType_AgentCompany        FieldSubType = 200
	RefSubType_AgentRep            FieldSubType = 210
)

// Platform date formats. Dates travel as display strings on the wire.
const (
	DateFormat     = "1/2/2006"
	DateTimeFormat = "1/2/2006 3:04 PM"
	ISODateFormat  = "2006-01-02"
)

// Legacy delimiter-encoded tables join rows and columns with these
// defaults. Historical variants used '%%' without padding; the padded
// form is what production configs exercise.
const (
	DefaultRowDelimiter    = " %% "
	DefaultColumnDelimiter = " | "
)
