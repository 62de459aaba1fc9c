/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package fieldconv

import (
	"context"
	"strings"

	"github.com/rpmsoftware/integration-common-sub000/pkg/coreutils"
	"github.com/rpmsoftware/integration-common-sub000/pkg/rpm"
)

// colSetter converts one source object key into one table cell.
type colSetter struct {
	uid  string
	dest string
	s    *Setter
}

type tableWriteCfg struct {
	cols       *tableCols
	setters    []colSetter
	keyUid     string
	keyName    string
	keyByRowID bool
	declared   []declaredRow
	rowDelim   string
	colDelim   string
}

func (cfg *tableWriteCfg) keyed() bool { return cfg.keyUid != "" || cfg.keyByRowID }

// columnSetters compiles one setter per column against the table's
// synthesized schema. Without a "fields" descriptor every column is
// written from the source key of its own name.
func columnSetters(ctx context.Context, d coreutils.MapObject, s *Setter, cols *tableCols) ([]colSetter, error) {
	env := s.env.subTableEnv(cols.proc)
	fields, ok, err := d.AsObject("fields")
	if err != nil {
		return nil, rpm.ErrConfiguration("table «%v»: %v", s.field.Name, err)
	}
	if !ok {
		fields = coreutils.MapObject{}
		for i := range cols.proc.Fields {
			fields[cols.proc.Fields[i].Name] = cols.proc.Fields[i].Name
		}
	}
	res := make([]colSetter, 0, len(fields))
	for _, dest := range sortedKeys(fields) {
		var colD coreutils.MapObject
		var colName string
		switch t := fields[dest].(type) {
		case string:
			colName = t
			colD = coreutils.MapObject{}
		case map[string]interface{}:
			colD = coreutils.MapObject(t)
			if colName, err = colD.AsStringRequired("field"); err != nil {
				return nil, rpm.ErrConfiguration("table «%v», column for «%v»: %v", s.field.Name, dest, err)
			}
		default:
			return nil, rpm.ErrConfiguration("table «%v», column for «%v»: unexpected descriptor %v", s.field.Name, dest, fields[dest])
		}
		col, ok := cols.byName(colName)
		if !ok {
			return nil, rpm.ErrConfiguration("table «%v» has no column «%v»", s.field.Name, colName)
		}
		cs, err := initFieldFor(ctx, colD, colName, env)
		if err != nil {
			return nil, err
		}
		res = append(res, colSetter{uid: col.Uid, dest: dest, s: cs})
	}
	return res, nil
}

func initTableWrite(ctx context.Context, d coreutils.MapObject, s *Setter) (*tableWriteCfg, error) {
	cols, err := columnsOf(s.field)
	if err != nil {
		return nil, err
	}
	cfg := &tableWriteCfg{cols: cols}
	if cfg.setters, err = columnSetters(ctx, d, s, cols); err != nil {
		return nil, err
	}
	keyName, hasKey, err := d.AsString("key")
	if err != nil {
		return nil, rpm.ErrConfiguration("table «%v»: %v", s.field.Name, err)
	}
	if hasKey {
		if keyName == rowIDKey {
			cfg.keyByRowID = true
		} else {
			col, ok := cols.byName(keyName)
			if !ok {
				return nil, rpm.ErrConfiguration("table «%v» has no key column «%v»", s.field.Name, keyName)
			}
			cfg.keyUid = col.Uid
			cfg.keyName = keyName
		}
	}
	return cfg, nil
}

func asRowObject(v any) (coreutils.MapObject, bool) {
	switch t := v.(type) {
	case coreutils.MapObject:
		return t, true
	case map[string]interface{}:
		return coreutils.MapObject(t), true
	}
	return nil, false
}

// buildRow converts one source object into a full row. Cells no column
// setter covers stay empty; a cell-level value error fails the whole
// row, the table patch carries one value per row or none.
func buildRow(ctx context.Context, cfg *tableWriteCfg, obj coreutils.MapObject) (rpm.Row, error) {
	cells := make(map[string]rpm.FieldValue, len(cfg.setters))
	for i := range cfg.setters {
		cs := &cfg.setters[i]
		val, present := obj[cs.dest]
		if !present {
			continue
		}
		patch, err := cs.s.Set(ctx, val, nil)
		if err != nil {
			return rpm.Row{}, err
		}
		if patch == nil {
			continue
		}
		if patch.Errors != "" {
			return rpm.Row{}, rpm.ErrValue("%v", patch.Errors)
		}
		cells[cs.uid] = rpm.FieldValue{Uid: cs.uid, Value: patch.Value, ID: patch.ID}
	}
	row := rpm.Row{Fields: make([]rpm.FieldValue, 0, len(cfg.cols.order))}
	for _, uid := range cfg.cols.order {
		cell, ok := cells[uid]
		if !ok {
			cell = rpm.FieldValue{Uid: uid, Value: rpm.StrPtr("")}
		}
		row.Fields = append(row.Fields, cell)
	}
	return row, nil
}

func setRowCell(row *rpm.Row, uid, val string) {
	for i := range row.Fields {
		if row.Fields[i].Uid == uid {
			row.Fields[i].Value = rpm.StrPtr(val)
			return
		}
	}
	row.Fields = append(row.Fields, rpm.FieldValue{Uid: uid, Value: rpm.StrPtr(val)})
}

// mergeKeyed builds the row patch for keyed input: input rows matching
// an existing row on the key column keep its RowID, the rest come in as
// new rows, and existing rows the input does not mention are carried
// over untouched.
func mergeKeyed(ctx context.Context, cfg *tableWriteCfg, input coreutils.MapObject, existing []rpm.Row) ([]rpm.Row, error) {
	read := &tableReadCfg{cols: cfg.cols, keyUid: cfg.keyUid, keyByRowID: cfg.keyByRowID}
	existingByKey := make(map[string]*rpm.Row, len(existing))
	for i := range existing {
		if key := read.rowKey(&existing[i]); key != "" {
			existingByKey[key] = &existing[i]
		}
	}
	res := make([]rpm.Row, 0, len(input)+len(existing))
	matched := make(map[string]bool, len(input))
	for _, key := range sortedKeys(input) {
		obj, ok := asRowObject(input[key])
		if !ok {
			return nil, rpm.ErrValue("table row «%v»: not an object: «%v»", key, input[key])
		}
		row, err := buildRow(ctx, cfg, obj)
		if err != nil {
			return nil, rpm.EnrichError(err, "table row «%v»", key)
		}
		if ex, ok := existingByKey[key]; ok {
			row.RowID = ex.RowID
			matched[key] = true
		}
		if cfg.keyUid != "" {
			setRowCell(&row, cfg.keyUid, key)
		}
		res = append(res, row)
	}
	for i := range existing {
		if key := read.rowKey(&existing[i]); !matched[key] {
			res = append(res, existing[i])
		}
	}
	return res, nil
}

// mergeArray builds the row patch for positional input: input rows take
// over the RowIDs of existing rows in order, extra input rows are new,
// and existing rows beyond the input are blanked in place so the
// platform clears them without renumbering.
func mergeArray(ctx context.Context, cfg *tableWriteCfg, input []interface{}, existing []rpm.Row) ([]rpm.Row, error) {
	res := make([]rpm.Row, 0, len(input)+len(existing))
	for i, item := range input {
		obj, ok := asRowObject(item)
		if !ok {
			return nil, rpm.ErrValue("table row %d: not an object: «%v»", i, item)
		}
		row, err := buildRow(ctx, cfg, obj)
		if err != nil {
			return nil, rpm.EnrichError(err, "table row %d", i)
		}
		if i < len(existing) {
			row.RowID = existing[i].RowID
		}
		res = append(res, row)
	}
	for i := len(input); i < len(existing); i++ {
		blank, err := buildRow(ctx, cfg, coreutils.MapObject{})
		if err != nil {
			return nil, err
		}
		blank.RowID = existing[i].RowID
		res = append(res, blank)
	}
	return res, nil
}

func existingTableRows(s *Setter, existing *rpm.FormView) []rpm.Row {
	if existing == nil {
		return nil
	}
	fv, ok := existing.FieldByUid(s.field.Uid)
	if !ok {
		return nil
	}
	return dataRows(fv)
}

var tableSetter = &setterStrategy{
	init: func(ctx context.Context, d coreutils.MapObject, s *Setter) error {
		cfg, err := initTableWrite(ctx, d, s)
		if err != nil {
			return err
		}
		s.cfg = cfg
		return nil
	},
	convert: func(ctx context.Context, s *Setter, data any, existing *rpm.FormView) (*rpm.FieldPatch, error) {
		cfg := s.cfg.(*tableWriteCfg)
		rows := existingTableRows(s, existing)
		var merged []rpm.Row
		var err error
		switch t := data.(type) {
		case nil:
			merged, err = mergeArray(ctx, cfg, nil, rows)
		case []interface{}:
			merged, err = mergeArray(ctx, cfg, t, rows)
		case coreutils.MapObject, map[string]interface{}:
			if !cfg.keyed() {
				return nil, rpm.ErrAssertion("table «%v»: keyed input without a key column", s.field.Name)
			}
			obj, _ := asRowObject(t)
			merged, err = mergeKeyed(ctx, cfg, obj, rows)
		default:
			return nil, rpm.ErrValue("table «%v»: not a row collection: «%v»", s.field.Name, data)
		}
		if err != nil {
			return nil, err
		}
		return &rpm.FieldPatch{Rows: merged}, nil
	},
}

// definedRowSetter writes a fixed-layout table. Input maps declared row
// names to row objects; only the mentioned rows are patched. New values
// land on the existing row when the form has it, otherwise the row goes
// out anchored to its template identity alone.
var definedRowSetter = &setterStrategy{
	init: func(ctx context.Context, d coreutils.MapObject, s *Setter) error {
		cfg, err := initTableWrite(ctx, d, s)
		if err != nil {
			return err
		}
		if cfg.declared, err = declaredRows(d, s.field); err != nil {
			return err
		}
		s.cfg = cfg
		return nil
	},
	convert: func(ctx context.Context, s *Setter, data any, existing *rpm.FormView) (*rpm.FieldPatch, error) {
		cfg := s.cfg.(*tableWriteCfg)
		input, ok := asRowObject(data)
		if !ok {
			return nil, rpm.ErrValue("table «%v»: not a row map: «%v»", s.field.Name, data)
		}
		rows := existingTableRows(s, existing)
		res := make([]rpm.Row, 0, len(input))
		for _, name := range sortedKeys(input) {
			var dr *declaredRow
			for i := range cfg.declared {
				if cfg.declared[i].name == name {
					dr = &cfg.declared[i]
					break
				}
			}
			if dr == nil {
				return nil, rpm.ErrValue("table «%v» declares no row «%v»", s.field.Name, name)
			}
			obj, ok := asRowObject(input[name])
			if !ok {
				return nil, rpm.ErrValue("table row «%v»: not an object: «%v»", name, input[name])
			}
			row, err := buildRow(ctx, cfg, obj)
			if err != nil {
				return nil, rpm.EnrichError(err, "table row «%v»", name)
			}
			row.TemplateDefinedRowID = dr.templateID
			if ex, ok := rowByTemplateID(rows, dr.templateID); ok {
				row.RowID = ex.RowID
			}
			res = append(res, row)
		}
		return &rpm.FieldPatch{Rows: res}, nil
	},
}

// delimitedTableSetter encodes row objects into the legacy flat-string
// table value. A string source passes through untouched.
var delimitedTableSetter = &setterStrategy{
	init: func(ctx context.Context, d coreutils.MapObject, s *Setter) error {
		cfg, err := initTableWrite(ctx, d, s)
		if err != nil {
			return err
		}
		if cfg.rowDelim, cfg.colDelim, err = tableDelimiters(d); err != nil {
			return rpm.ErrConfiguration("table «%v»: %v", s.field.Name, err)
		}
		s.cfg = cfg
		return nil
	},
	convert: func(ctx context.Context, s *Setter, data any, _ *rpm.FormView) (*rpm.FieldPatch, error) {
		cfg := s.cfg.(*tableWriteCfg)
		switch t := data.(type) {
		case nil:
			return clearPatch(), nil
		case string:
			return valuePatch(t), nil
		case []interface{}:
			lines := make([]string, 0, len(t))
			for i, item := range t {
				obj, ok := asRowObject(item)
				if !ok {
					return nil, rpm.ErrValue("table row %d: not an object: «%v»", i, item)
				}
				row, err := buildRow(ctx, cfg, obj)
				if err != nil {
					return nil, rpm.EnrichError(err, "table row %d", i)
				}
				cells := make([]string, 0, len(row.Fields))
				for j := range row.Fields {
					cells = append(cells, row.Fields[j].AsString())
				}
				lines = append(lines, strings.Join(cells, cfg.colDelim))
			}
			return valuePatch(strings.Join(lines, cfg.rowDelim)), nil
		}
		return nil, rpm.ErrValue("table «%v»: not a row collection: «%v»", s.field.Name, data)
	},
}
