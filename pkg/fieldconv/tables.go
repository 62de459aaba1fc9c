/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package fieldconv

import (
	"context"
	"strconv"
	"strings"

	"github.com/untillpro/goutils/logger"

	"github.com/rpmsoftware/integration-common-sub000/pkg/coreutils"
	"github.com/rpmsoftware/integration-common-sub000/pkg/rpm"
)

// rowIDKey selects keying by the platform's raw row identifier instead
// of a column value.
const rowIDKey = "#RowID"

// tableCols is the column schema of one table field, synthesized from
// its definition row. Columns carry their own full types encoded in the
// cell Uids, so a table projects and merges through the same per-type
// strategies as top-level fields.
type tableCols struct {
	proc  *rpm.Process
	order []string // column Uids in definition order
}

func columnsOf(field *rpm.ProcessField) (*tableCols, error) {
	def, ok := field.DefinitionRow()
	if !ok {
		return nil, rpm.ErrAssertion("table field «%v» has no definition row", field.Name)
	}
	cols := &tableCols{
		proc:  &rpm.Process{Process: field.Name},
		order: make([]string, 0, len(def.Fields)),
	}
	for i := range def.Fields {
		cell := &def.Fields[i]
		ft, ok := rpm.FullTypeOfUid(cell.Uid)
		if !ok {
			ft = rpm.MakeFullType(rpm.ObjectType_CustomField, rpm.FieldSubType_Text)
		}
		ot, st, err := ft.Parts()
		if err != nil {
			return nil, rpm.ErrAssertion("table field «%v», column «%v»: %v", field.Name, cell.AsString(), err)
		}
		cols.proc.Fields = append(cols.proc.Fields, rpm.ProcessField{
			Uid:         cell.Uid,
			Name:        cell.AsString(),
			FieldType:   ot,
			SubType:     st,
			UserCanEdit: true,
		})
		cols.order = append(cols.order, cell.Uid)
	}
	return cols, nil
}

func (tc *tableCols) byName(name string) (*rpm.ProcessField, bool) {
	return tc.proc.FieldByName(name)
}

// dataRows filters a table value down to its content rows.
func dataRows(fv *rpm.FieldValue) []rpm.Row {
	if fv == nil {
		return nil
	}
	res := make([]rpm.Row, 0, len(fv.Rows))
	for i := range fv.Rows {
		if fv.Rows[i].IsDefinition || fv.Rows[i].IsLabelRow {
			continue
		}
		res = append(res, fv.Rows[i])
	}
	return res
}

// columnGetterMap compiles the projection of one table row. With no
// "fields" descriptor every column projects under its own name.
func columnGetterMap(ctx context.Context, d coreutils.MapObject, g *Getter, cols *tableCols) (*GetterMap, error) {
	env := g.env.subTableEnv(cols.proc)
	fields, ok, err := d.AsObject("fields")
	if err != nil {
		return nil, rpm.ErrConfiguration("table «%v»: %v", g.field.Name, err)
	}
	if !ok {
		fields = coreutils.MapObject{}
		for i := range cols.proc.Fields {
			fields[cols.proc.Fields[i].Name] = cols.proc.Fields[i].Name
		}
	}
	return InitGetterMap(ctx, fields, env)
}

func projectRow(ctx context.Context, gm *GetterMap, cols *tableCols, row *rpm.Row) (coreutils.MapObject, error) {
	pseudo := &rpm.Form{Fields: row.Fields}
	return gm.Project(ctx, rpm.NewFormView(pseudo, cols.proc))
}

type tableReadCfg struct {
	cols       *tableCols
	gm         *GetterMap
	keyUid     string
	keyByRowID bool
}

func (cfg *tableReadCfg) keyed() bool { return cfg.keyUid != "" || cfg.keyByRowID }

func (cfg *tableReadCfg) rowKey(row *rpm.Row) string {
	if cfg.keyByRowID {
		return strconv.FormatInt(row.RowID, 10)
	}
	if cell, ok := row.FieldByUid(cfg.keyUid); ok {
		return cell.AsString()
	}
	return ""
}

func initTableRead(ctx context.Context, d coreutils.MapObject, g *Getter) (*tableReadCfg, error) {
	cols, err := columnsOf(g.field)
	if err != nil {
		return nil, err
	}
	cfg := &tableReadCfg{cols: cols}
	if cfg.gm, err = columnGetterMap(ctx, d, g, cols); err != nil {
		return nil, err
	}
	keyName, hasKey, err := d.AsString("key")
	if err != nil {
		return nil, rpm.ErrConfiguration("table «%v»: %v", g.field.Name, err)
	}
	if hasKey {
		if keyName == rowIDKey {
			cfg.keyByRowID = true
		} else {
			col, ok := cols.byName(keyName)
			if !ok {
				return nil, rpm.ErrConfiguration("table «%v» has no key column «%v»", g.field.Name, keyName)
			}
			cfg.keyUid = col.Uid
		}
	}
	return cfg, nil
}

// tableGetter projects a table field's rows. Without a key descriptor
// the result is an array of row objects in platform order; with one it
// is a map keyed by the key column's value (or by raw row ID under
// "#RowID"). Rows with an empty key are skipped, duplicate keys fail.
var tableGetter = &getterStrategy{
	init: func(ctx context.Context, d coreutils.MapObject, g *Getter) error {
		cfg, err := initTableRead(ctx, d, g)
		if err != nil {
			return err
		}
		g.cfg = cfg
		return nil
	},
	get: func(ctx context.Context, g *Getter, target any) (any, error) {
		cfg := g.cfg.(*tableReadCfg)
		fv, _ := g.rawValue(target)
		rows := dataRows(fv)
		if !cfg.keyed() {
			res := make([]interface{}, 0, len(rows))
			for i := range rows {
				obj, err := projectRow(ctx, cfg.gm, cfg.cols, &rows[i])
				if err != nil {
					return nil, err
				}
				res = append(res, obj)
			}
			return res, nil
		}
		res := coreutils.MapObject{}
		for i := range rows {
			key := cfg.rowKey(&rows[i])
			if key == "" {
				logger.Verbose("table", g.field.Name, "skipping row with empty key, RowID", rows[i].RowID)
				continue
			}
			if _, dup := res[key]; dup {
				return nil, rpm.ErrAssertion("table «%v» has duplicate key «%v»", g.field.Name, key)
			}
			obj, err := projectRow(ctx, cfg.gm, cfg.cols, &rows[i])
			if err != nil {
				return nil, err
			}
			res[key] = map[string]interface{}(obj)
		}
		return res, nil
	},
}

type declaredRow struct {
	name       string
	templateID int64
}

type definedRowReadCfg struct {
	cols     *tableCols
	gm       *GetterMap
	declared []declaredRow
}

// declaredRows reads the fixed row layout off the field schema,
// optionally narrowed to the names the descriptor lists.
func declaredRows(d coreutils.MapObject, field *rpm.ProcessField) ([]declaredRow, error) {
	all := make([]declaredRow, 0, len(field.Rows))
	for i := range field.Rows {
		r := &field.Rows[i]
		if r.IsDefinition || r.IsLabelRow || r.Name == "" {
			continue
		}
		all = append(all, declaredRow{name: r.Name, templateID: r.RowID})
	}
	names, ok, err := d.AsStrings("rows")
	if err != nil {
		return nil, rpm.ErrConfiguration("table «%v»: %v", field.Name, err)
	}
	if !ok {
		return all, nil
	}
	res := make([]declaredRow, 0, len(names))
	for _, name := range names {
		found := false
		for _, dr := range all {
			if dr.name == name {
				res = append(res, dr)
				found = true
				break
			}
		}
		if !found {
			return nil, rpm.ErrConfiguration("table «%v» declares no row «%v»", field.Name, name)
		}
	}
	return res, nil
}

func rowByTemplateID(rows []rpm.Row, templateID int64) (*rpm.Row, bool) {
	for i := range rows {
		if rows[i].TemplateDefinedRowID == templateID {
			return &rows[i], true
		}
	}
	return nil, false
}

// definedRowGetter projects a fixed-layout table: row set declared by
// the schema, values per form. The result maps declared row names to
// row objects. A form missing a declared row is corrupt data, not a
// value problem, so that fails hard.
var definedRowGetter = &getterStrategy{
	init: func(ctx context.Context, d coreutils.MapObject, g *Getter) error {
		cols, err := columnsOf(g.field)
		if err != nil {
			return err
		}
		cfg := &definedRowReadCfg{cols: cols}
		if cfg.gm, err = columnGetterMap(ctx, d, g, cols); err != nil {
			return err
		}
		if cfg.declared, err = declaredRows(d, g.field); err != nil {
			return err
		}
		g.cfg = cfg
		return nil
	},
	get: func(ctx context.Context, g *Getter, target any) (any, error) {
		cfg := g.cfg.(*definedRowReadCfg)
		fv, _ := g.rawValue(target)
		rows := dataRows(fv)
		res := coreutils.MapObject{}
		for _, dr := range cfg.declared {
			row, ok := rowByTemplateID(rows, dr.templateID)
			if !ok {
				return nil, rpm.ErrAssertion("table «%v» is missing declared row «%v»", g.field.Name, dr.name)
			}
			obj, err := projectRow(ctx, cfg.gm, cfg.cols, row)
			if err != nil {
				return nil, err
			}
			res[dr.name] = map[string]interface{}(obj)
		}
		return res, nil
	},
}

type delimitedCfg struct {
	cols     *tableCols
	gm       *GetterMap
	rowDelim string
	colDelim string
}

func tableDelimiters(d coreutils.MapObject) (rowDelim, colDelim string, err error) {
	rowDelim, ok, err := d.AsString("rowDelimiter")
	if err != nil {
		return "", "", err
	}
	if !ok {
		rowDelim = rpm.DefaultRowDelimiter
	}
	colDelim, ok, err = d.AsString("columnDelimiter")
	if err != nil {
		return "", "", err
	}
	if !ok {
		colDelim = rpm.DefaultColumnDelimiter
	}
	return rowDelim, colDelim, nil
}

// decodeDelimited expands a legacy flat table string into pseudo rows
// matching the column schema positionally.
func decodeDelimited(cfg *delimitedCfg, raw string) []rpm.Row {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	lines := strings.Split(raw, cfg.rowDelim)
	rows := make([]rpm.Row, 0, len(lines))
	for _, line := range lines {
		cells := strings.Split(line, cfg.colDelim)
		row := rpm.Row{Fields: make([]rpm.FieldValue, 0, len(cfg.cols.order))}
		for i, uid := range cfg.cols.order {
			var val string
			if i < len(cells) {
				val = strings.TrimSpace(cells[i])
			}
			row.Fields = append(row.Fields, rpm.FieldValue{Uid: uid, Value: rpm.StrPtr(val)})
		}
		rows = append(rows, row)
	}
	return rows
}

// delimitedTableGetter reads the legacy flat-string table encoding and
// projects it like a structured table, always as an array.
var delimitedTableGetter = &getterStrategy{
	init: func(ctx context.Context, d coreutils.MapObject, g *Getter) error {
		cols, err := columnsOf(g.field)
		if err != nil {
			return err
		}
		cfg := &delimitedCfg{cols: cols}
		if cfg.gm, err = columnGetterMap(ctx, d, g, cols); err != nil {
			return err
		}
		if cfg.rowDelim, cfg.colDelim, err = tableDelimiters(d); err != nil {
			return rpm.ErrConfiguration("table «%v»: %v", g.field.Name, err)
		}
		g.cfg = cfg
		return nil
	},
	get: func(ctx context.Context, g *Getter, target any) (any, error) {
		cfg := g.cfg.(*delimitedCfg)
		fv, _ := g.rawValue(target)
		rows := decodeDelimited(cfg, fv.AsString())
		res := make([]interface{}, 0, len(rows))
		for i := range rows {
			obj, err := projectRow(ctx, cfg.gm, cfg.cols, &rows[i])
			if err != nil {
				return nil, err
			}
			res = append(res, obj)
		}
		return res, nil
	},
}
