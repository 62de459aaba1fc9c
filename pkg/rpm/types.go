/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package rpm

// FieldValue is one field's value entry on a form, the platform's wire
// shape. Value is nil when the platform sent null. ID carries the
// referenced entity/form ID for reference fields. Rows is populated for
// table fields instead of Value.
type FieldValue struct {
	Uid   string  `json:"Uid"`
	Field string  `json:"Field,omitempty"`
	Value *string `json:"Value"`
	ID    int64   `json:"ID,omitempty"`
	Rows  []Row   `json:"Rows,omitempty"`
}

// AsString renders the value, empty string for null.
func (fv *FieldValue) AsString() string {
	if fv == nil || fv.Value == nil {
		return ""
	}
	return *fv.Value
}

// IsEmpty reports null or empty-string value.
func (fv *FieldValue) IsEmpty() bool {
	return fv == nil || fv.Value == nil || *fv.Value == ""
}

// Row is one table-field row. A definition row enumerates the column
// schema and always exists on the field definition; label rows carry
// display-only captions. TemplateDefinedRowID links a row to its declared
// template row for FieldTableDefinedRow fields.
type Row struct {
	RowID                int64        `json:"RowID"`
	TemplateDefinedRowID int64        `json:"TemplateDefinedRowID,omitempty"`
	Name                 string       `json:"Name,omitempty"`
	IsDefinition         bool         `json:"IsDefinition,omitempty"`
	IsLabelRow           bool         `json:"IsLabelRow,omitempty"`
	Fields               []FieldValue `json:"Fields"`
}

// FieldByUid returns the row's cell for the given column Uid.
func (r *Row) FieldByUid(uid string) (*FieldValue, bool) {
	for i := range r.Fields {
		if r.Fields[i].Uid == uid {
			return &r.Fields[i], true
		}
	}
	return nil, false
}

// Form is one business record instance under a process.
type Form struct {
	FormID    int64        `json:"FormID"`
	ProcessID int64        `json:"ProcessID"`
	Number    string       `json:"Number,omitempty"`
	Owner     string       `json:"Owner,omitempty"`
	OwnerID   int64        `json:"OwnerID,omitempty"`
	Started   string       `json:"Started,omitempty"`
	Modified  string       `json:"Modified,omitempty"`
	StatusID  int64        `json:"StatusID,omitempty"`
	Status    string       `json:"Status,omitempty"`
	Fields    []FieldValue `json:"Fields"`
}

// FieldPatch is one field's new value to write back to the platform.
// For table fields Rows replaces Value/ID. A non-empty Errors marks a
// value-error-annotated patch: the field was not written, the rest of
// the batch still was.
type FieldPatch struct {
	Uid    string  `json:"Uid,omitempty"`
	Field  string  `json:"Field,omitempty"`
	Value  *string `json:"Value,omitempty"`
	ID     int64   `json:"ID,omitempty"`
	Rows   []Row   `json:"Rows,omitempty"`
	Errors string  `json:"Errors,omitempty"`
}

// Option is one allowed value of a List field.
type Option struct {
	ID   int64  `json:"ID"`
	Text string `json:"Text"`
}

// StatusLevel is one entry of a process's status ladder.
type StatusLevel struct {
	ID   int64  `json:"ID"`
	Text string `json:"Text"`
}

// ProcessField is the schema-level definition of one field.
type ProcessField struct {
	Uid         string       `json:"Uid"`
	Name        string       `json:"Name"`
	FieldType   ObjectType   `json:"FieldType"`
	SubType     FieldSubType `json:"SubType"`
	UserCanEdit bool         `json:"UserCanEdit"`
	Options     []Option     `json:"Options,omitempty"`
	Rows        []Row        `json:"Rows,omitempty"`
	// ProcessID of the referenced process for RestrictedReference fields.
	ReferencedProcessID int64 `json:"ReferencedProcessID,omitempty"`
}

func (pf *ProcessField) FullType() FullType {
	return MakeFullType(pf.FieldType, pf.SubType)
}

// DefinitionRow returns the column schema row of a table field.
func (pf *ProcessField) DefinitionRow() (*Row, bool) {
	for i := range pf.Rows {
		if pf.Rows[i].IsDefinition {
			return &pf.Rows[i], true
		}
	}
	return nil, false
}

// ProcInfo is the process directory entry returned by GetProcesses.
type ProcInfo struct {
	ProcessID int64  `json:"ProcessID"`
	Process   string `json:"Process"`
	Enabled   bool   `json:"Enabled,omitempty"`
}

// ViewInfo names one saved view of a process.
type ViewInfo struct {
	ViewID int64  `json:"ViewID"`
	Name   string `json:"Name"`
}

// Process is the full schema of one form template.
type Process struct {
	ProcessID    int64          `json:"ProcessID"`
	Process      string         `json:"Process"`
	Fields       []ProcessField `json:"Fields"`
	StatusLevels []StatusLevel  `json:"StatusLevels,omitempty"`
	Views        []ViewInfo     `json:"Views,omitempty"`
}

// FieldByName resolves a display name to its field definition.
func (p *Process) FieldByName(name string) (*ProcessField, bool) {
	for i := range p.Fields {
		if p.Fields[i].Name == name {
			return &p.Fields[i], true
		}
	}
	return nil, false
}

func (p *Process) FieldByUid(uid string) (*ProcessField, bool) {
	for i := range p.Fields {
		if p.Fields[i].Uid == uid {
			return &p.Fields[i], true
		}
	}
	return nil, false
}

// Field resolves by Uid first, then by display name.
func (p *Process) Field(nameOrUid string) (*ProcessField, bool) {
	if f, ok := p.FieldByUid(nameOrUid); ok {
		return f, true
	}
	return p.FieldByName(nameOrUid)
}

// StatusLevel resolves a status by ID or by text.
func (p *Process) StatusLevel(v any) (*StatusLevel, bool) {
	for i := range p.StatusLevels {
		sl := &p.StatusLevels[i]
		switch s := v.(type) {
		case string:
			if sl.Text == s {
				return sl, true
			}
		case int64:
			if sl.ID == s {
				return sl, true
			}
		case int:
			if sl.ID == int64(s) {
				return sl, true
			}
		case float64:
			if sl.ID == int64(s) {
				return sl, true
			}
		}
	}
	return nil, false
}

// View resolves a saved view by name.
func (p *Process) View(name string) (*ViewInfo, bool) {
	for i := range p.Views {
		if p.Views[i].Name == name {
			return &p.Views[i], true
		}
	}
	return nil, false
}

// FormListRow is one row of a view's raw column-value matrix.
type FormListRow struct {
	FormID int64    `json:"FormID"`
	Values []string `json:"Values"`
}

// FormList is the column-projected form list a view resolves to.
type FormList struct {
	Columns []string      `json:"Columns"`
	Forms   []FormListRow `json:"Forms"`
}

// Entity is a directory object (customer, rep, staff member and the like)
// referenced by form reference fields. ParentID links a sub-entity to its
// owner, e.g. a location to its customer.
type Entity struct {
	EntityID int64  `json:"EntityID"`
	Name     string `json:"Name"`
	ParentID int64  `json:"ParentID,omitempty"`
}
