/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

// Package views projects a process's saved form-list view into plain
// objects. A compiled View resolves destination properties to view
// columns and converts cell text per column; the raw column-value matrix
// is fetched once per GetForms call.
package views

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/rpmsoftware/integration-common-sub000/pkg/conditions"
	"github.com/rpmsoftware/integration-common-sub000/pkg/coreutils"
	"github.com/rpmsoftware/integration-common-sub000/pkg/rpm"
)

// Static column idents addressing form metadata instead of a field
// column.
const (
	identFormID   = "#FormID"
	identNumber   = "#Number"
	identOwner    = "#Owner"
	identStarted  = "#Started"
	identModified = "#Modified"
	identStatus   = "#Status"
)

// metaHeaders maps static idents to the well-known headers the platform
// renders those columns under.
var metaHeaders = map[string]string{
	identNumber:   "Number",
	identOwner:    "Owner",
	identStarted:  "Started",
	identModified: "Modified",
	identStatus:   "Status",
}

type column struct {
	dest    string
	header  string // resolved at fetch against the matrix header row
	index   int    // explicit zero-based column index, -1 when unset
	formID  bool
	pattern *regexp.Regexp
	conv    string // "", "number", "boolean"
}

// View is a compiled projection descriptor. Immutable after Init, safe
// for concurrent reuse.
type View struct {
	api    rpm.API
	proc   *rpm.Process
	viewID int64
	cols   []column
	filter conditions.Condition
}

func (v *View) Process() *rpm.Process { return v.proc }

// Init resolves the process, the optional named view and every column
// spec. Column specs per destination property: a field name, a field
// Uid, a zero-based column index, a static ident (#FormID, #Number,
// #Owner, #Started, #Modified, #Status), or an object adding "pattern"
// (regex, first capture group or whole match) and "type"
// ("number"/"boolean") conversions.
func Init(ctx context.Context, d coreutils.MapObject, api rpm.API) (*View, error) {
	v := &View{api: api}

	proc, err := resolveProcess(ctx, api, d["process"])
	if err != nil {
		return nil, err
	}
	v.proc = proc

	if viewName, ok, err := d.AsString("view"); err != nil {
		return nil, rpm.ErrConfiguration("view: %v", err)
	} else if ok {
		vi, found := proc.View(viewName)
		if !found {
			return nil, rpm.ErrConfiguration("process «%v» has no view «%v»", proc.Process, viewName)
		}
		v.viewID = vi.ViewID
	}

	fields, err := d.AsObjectRequired("fields")
	if err != nil {
		return nil, rpm.ErrConfiguration("view: %v", err)
	}
	for _, dest := range sortedKeys(fields) {
		col, err := compileColumn(v.proc, dest, fields[dest])
		if err != nil {
			return nil, err
		}
		v.cols = append(v.cols, col)
	}

	if condD, ok, err := d.AsObject("filter"); err != nil {
		return nil, rpm.ErrConfiguration("view filter: %v", err)
	} else if ok {
		if v.filter, err = conditions.Compile(condD, proc); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func resolveProcess(ctx context.Context, api rpm.API, ref any) (*rpm.Process, error) {
	switch t := ref.(type) {
	case float64:
		return api.GetFields(ctx, int64(t))
	case int:
		return api.GetFields(ctx, int64(t))
	case int64:
		return api.GetFields(ctx, t)
	case string:
		procs, err := api.GetProcesses(ctx)
		if err != nil {
			return nil, err
		}
		for i := range procs {
			if procs[i].Process == t {
				return api.GetFields(ctx, procs[i].ProcessID)
			}
		}
		return nil, rpm.ErrConfiguration("process «%v» not found", t)
	}
	return nil, rpm.ErrConfiguration("view needs a process name or ID, got «%v»", ref)
}

func compileColumn(proc *rpm.Process, dest string, spec any) (column, error) {
	col := column{dest: dest, index: -1}

	applySource := func(src any) error {
		switch t := src.(type) {
		case string:
			if t == identFormID {
				col.formID = true
				return nil
			}
			if header, ok := metaHeaders[t]; ok {
				col.header = header
				return nil
			}
			if strings.HasPrefix(t, "#") {
				return rpm.ErrConfiguration("view column «%v»: unknown ident «%v»", dest, t)
			}
			// a Uid resolves to the field's display header
			if f, ok := proc.FieldByUid(t); ok {
				col.header = f.Name
				return nil
			}
			col.header = t
			return nil
		case float64:
			col.index = int(t)
			return nil
		case int:
			col.index = t
			return nil
		}
		return rpm.ErrConfiguration("view column «%v»: unexpected source «%v»", dest, src)
	}

	switch t := spec.(type) {
	case map[string]interface{}:
		o := coreutils.MapObject(t)
		src, ok := o["field"]
		if !ok {
			src = dest
		}
		if err := applySource(src); err != nil {
			return col, err
		}
		if pat, ok, err := o.AsString("pattern"); err != nil {
			return col, rpm.ErrConfiguration("view column «%v»: %v", dest, err)
		} else if ok {
			re, err := regexp.Compile(pat)
			if err != nil {
				return col, rpm.ErrConfiguration("view column «%v»: bad pattern: %v", dest, err)
			}
			col.pattern = re
		}
		if conv, ok, err := o.AsString("type"); err != nil {
			return col, rpm.ErrConfiguration("view column «%v»: %v", dest, err)
		} else if ok {
			if conv != "number" && conv != "boolean" {
				return col, rpm.ErrConfiguration("view column «%v»: unknown type «%v»", dest, conv)
			}
			col.conv = conv
		}
	default:
		if err := applySource(spec); err != nil {
			return col, err
		}
	}
	return col, nil
}

// GetForms fetches the view matrix and projects every row. Rows failing
// the optional filter condition are dropped; row order follows the
// platform's.
func (v *View) GetForms(ctx context.Context) ([]coreutils.MapObject, error) {
	fl, err := v.api.GetForms(ctx, v.proc.ProcessID, v.viewID)
	if err != nil {
		return nil, err
	}

	// first occurrence wins for duplicated headers
	headerIndex := make(map[string]int, len(fl.Columns))
	for i, h := range fl.Columns {
		if _, dup := headerIndex[h]; !dup {
			headerIndex[h] = i
		}
	}

	indices := make([]int, len(v.cols))
	for i := range v.cols {
		col := &v.cols[i]
		switch {
		case col.formID:
			indices[i] = -1
		case col.index >= 0:
			if col.index >= len(fl.Columns) {
				return nil, rpm.ErrConfiguration("view column «%v»: index %d out of range (%d columns)", col.dest, col.index, len(fl.Columns))
			}
			indices[i] = col.index
		default:
			idx, ok := headerIndex[col.header]
			if !ok {
				return nil, rpm.ErrConfiguration("view of «%v» has no column «%v»", v.proc.Process, col.header)
			}
			indices[i] = idx
		}
	}

	res := make([]coreutils.MapObject, 0, len(fl.Forms))
	for r := range fl.Forms {
		row := &fl.Forms[r]
		obj := make(coreutils.MapObject, len(v.cols))
		for i := range v.cols {
			col := &v.cols[i]
			if col.formID {
				obj[col.dest] = row.FormID
				continue
			}
			if indices[i] >= len(row.Values) {
				continue
			}
			val, ok := col.convert(row.Values[indices[i]])
			if ok {
				obj[col.dest] = val
			}
		}
		if v.filter != nil {
			keep, err := v.filter.Eval(obj)
			if err != nil {
				return nil, err
			}
			if !keep {
				continue
			}
		}
		res = append(res, obj)
	}
	return res, nil
}

func sortedKeys(m coreutils.MapObject) []string {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}

func (c *column) convert(raw string) (any, bool) {
	if c.pattern != nil {
		m := c.pattern.FindStringSubmatch(raw)
		if m == nil {
			return nil, false
		}
		if len(m) > 1 {
			raw = m[1]
		} else {
			raw = m[0]
		}
	}
	switch c.conv {
	case "number":
		t := strings.TrimSpace(raw)
		t = strings.TrimPrefix(t, "$")
		t = strings.ReplaceAll(t, ",", "")
		n, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return nil, false
		}
		return n, true
	case "boolean":
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "yes", "true", "1":
			return true, true
		}
		return false, true
	}
	return raw, true
}
