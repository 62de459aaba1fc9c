/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package rpm

// FormView pairs a form with its process schema and exposes the lookups
// the engines need. It wraps the raw record instead of extending it: the
// underlying Form is never mutated through a view.
type FormView struct {
	form *Form
	proc *Process
}

func NewFormView(form *Form, proc *Process) FormView {
	return FormView{form: form, proc: proc}
}

func (v FormView) Form() *Form { return v.form }

func (v FormView) Process() *Process { return v.proc }

func (v FormView) FieldByUid(uid string) (*FieldValue, bool) {
	for i := range v.form.Fields {
		if v.form.Fields[i].Uid == uid {
			return &v.form.Fields[i], true
		}
	}
	return nil, false
}

func (v FormView) FieldByName(name string) (*FieldValue, bool) {
	for i := range v.form.Fields {
		if v.form.Fields[i].Field == name {
			return &v.form.Fields[i], true
		}
	}
	if v.proc == nil {
		return nil, false
	}
	// form values may omit display names, resolve through the schema
	if def, ok := v.proc.FieldByName(name); ok {
		return v.FieldByUid(def.Uid)
	}
	return nil, false
}

// StatusText resolves the form's current status text, falling back to the
// schema's status ladder when the form carries only the ID.
func (v FormView) StatusText() string {
	if v.form.Status != "" {
		return v.form.Status
	}
	if v.proc != nil {
		if sl, ok := v.proc.StatusLevel(v.form.StatusID); ok {
			return sl.Text
		}
	}
	return ""
}

// ApplyPatch returns a copy of the form with one field patch applied.
// Patches carrying Errors are not applied. A patch for a field the form
// does not list yet appends a new value entry.
func (v FormView) ApplyPatch(p FieldPatch) *Form {
	res := *v.form
	res.Fields = make([]FieldValue, len(v.form.Fields))
	copy(res.Fields, v.form.Fields)
	if p.Errors != "" {
		return &res
	}
	for i := range res.Fields {
		if res.Fields[i].Uid == p.Uid {
			applyPatch(&res.Fields[i], p)
			return &res
		}
	}
	fv := FieldValue{Uid: p.Uid, Field: p.Field}
	applyPatch(&fv, p)
	res.Fields = append(res.Fields, fv)
	return &res
}

func applyPatch(fv *FieldValue, p FieldPatch) {
	if len(p.Rows) > 0 {
		fv.Rows = p.Rows
		fv.Value = nil
		fv.ID = 0
		return
	}
	fv.Value = p.Value
	fv.ID = p.ID
	fv.Rows = nil
}
