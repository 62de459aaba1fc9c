/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package converters

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpmsoftware/integration-common-sub000/pkg/coreutils"
	"github.com/rpmsoftware/integration-common-sub000/pkg/rpm"
	"github.com/rpmsoftware/integration-common-sub000/pkg/rpm/rpmtest"
)

const (
	ticketsProcID = 50
	tasksProcID   = 60
	ticketFormID  = 7001
	tasksViewID   = 3
)

var (
	uidSubject = fmt.Sprintf("%d_%d_1", rpm.ObjectType_CustomField, rpm.FieldSubType_Text)
	uidHours   = fmt.Sprintf("%d_%d_2", rpm.ObjectType_CustomField, rpm.FieldSubType_Number)
)

func strPtr(s string) *string { return &s }

func ticketsProcess() *rpm.Process {
	return &rpm.Process{
		ProcessID: ticketsProcID,
		Process:   "Tickets",
		Fields: []rpm.ProcessField{
			{Uid: uidSubject, Name: "Subject", FieldType: rpm.ObjectType_CustomField,
				SubType: rpm.FieldSubType_Text, UserCanEdit: true},
			{Uid: uidHours, Name: "Hours", FieldType: rpm.ObjectType_CustomField,
				SubType: rpm.FieldSubType_Number, UserCanEdit: true},
		},
	}
}

func ticketForm() *rpm.Form {
	return &rpm.Form{
		FormID:    ticketFormID,
		ProcessID: ticketsProcID,
		Number:    "TCK-1",
		Fields: []rpm.FieldValue{
			{Uid: uidSubject, Field: "Subject", Value: strPtr("Printer down")},
			{Uid: uidHours, Field: "Hours", Value: strPtr("2")},
		},
	}
}

func testAPI() *rpmtest.API {
	api := rpmtest.New()
	api.Processes[ticketsProcID] = ticketsProcess()
	api.Processes[tasksProcID] = &rpm.Process{
		ProcessID: tasksProcID,
		Process:   "Tasks",
		Views:     []rpm.ViewInfo{{ViewID: tasksViewID, Name: "All Tasks"}},
	}
	api.Forms[ticketFormID] = ticketForm()
	api.FormLists[tasksProcID] = map[int64]*rpm.FormList{
		tasksViewID: {
			Columns: []string{"Ticket", "Task"},
			Forms: []rpm.FormListRow{
				{FormID: 8001, Values: []string{"TCK-1", "Replace toner"}},
				{FormID: 8002, Values: []string{"TCK-1", "Test print"}},
				{FormID: 8003, Values: []string{"TCK-9", "Unrelated"}},
			},
		},
	}
	api.Entities[rpm.EntityType_Customer] = []rpm.Entity{{EntityID: 400, Name: "Acme"}}
	api.Entities[rpm.EntityType_Staff] = []rpm.Entity{{EntityID: 300, Name: "Ada Smith"}}
	return api
}

func mustConvert(t *testing.T, steps []interface{}, api rpm.API, data any) any {
	t.Helper()
	require := require.New(t)
	p, err := Init(context.Background(), steps, api)
	require.NoError(err)
	out, err := p.Convert(context.Background(), data)
	require.NoError(err)
	return out
}

func TestPipelineOrdering(t *testing.T) {
	require := require.New(t)
	// the second step must observe the property the first one attached
	out := mustConvert(t, []interface{}{
		map[string]interface{}{
			"fields": map[string]interface{}{"b": map[string]interface{}{"property": "a"}},
		},
		map[string]interface{}{
			"fields": map[string]interface{}{"c": map[string]interface{}{"property": "b"}},
		},
	}, testAPI(), coreutils.MapObject{"a": "payload"})

	el, ok := out.(coreutils.MapObject)
	require.True(ok)
	require.Equal("payload", el["b"])
	require.Equal("payload", el["c"])
}

func TestPipelineDisabledStepSkipped(t *testing.T) {
	require := require.New(t)
	out := mustConvert(t, []interface{}{
		map[string]interface{}{
			"enabled": false,
			"fields":  map[string]interface{}{"b": map[string]interface{}{"property": "a"}},
		},
	}, testAPI(), coreutils.MapObject{"a": "x"})

	el := out.(coreutils.MapObject)
	require.NotContains(el, "b")
}

func TestPipelineUnknownConverterFailsFast(t *testing.T) {
	require := require.New(t)
	_, err := Init(context.Background(), []interface{}{
		map[string]interface{}{"converter": "nosuch"},
	}, testAPI())
	require.ErrorIs(err, rpm.ErrConfigurationError)
	require.Contains(err.Error(), "nosuch")
}

func TestPipelineCollectionStaysCollection(t *testing.T) {
	require := require.New(t)
	out := mustConvert(t, []interface{}{
		map[string]interface{}{
			"fields": map[string]interface{}{"b": map[string]interface{}{"property": "a"}},
		},
	}, testAPI(), []interface{}{
		map[string]interface{}{"a": "1"},
		map[string]interface{}{"a": "2"},
	})

	coll, ok := out.([]interface{})
	require.True(ok)
	require.Len(coll, 2)
	require.Equal("2", coll[1].(coreutils.MapObject)["b"])
}

func TestAttachFormAndProject(t *testing.T) {
	require := require.New(t)
	out := mustConvert(t, []interface{}{
		map[string]interface{}{
			"converter": "attachForm",
			"process":   "Tickets",
		},
		map[string]interface{}{
			"converter": "form2object",
			"process":   "Tickets",
			"fields": map[string]interface{}{
				"subject": "Subject",
				"hours":   "Hours",
				"number":  map[string]interface{}{"getter": "getFormNumber"},
			},
		},
	}, testAPI(), coreutils.MapObject{"FormID": float64(ticketFormID)})

	el := out.(coreutils.MapObject)
	require.Equal("Printer down", el["subject"])
	require.Equal(float64(2), el["hours"])
	require.Equal("TCK-1", el["number"])
	require.Contains(el, "Form")
}

func TestAttachFormMissingIDSkips(t *testing.T) {
	require := require.New(t)
	api := testAPI()
	out := mustConvert(t, []interface{}{
		map[string]interface{}{"converter": "attachForm"},
	}, api, coreutils.MapObject{"Name": "no link"})

	el := out.(coreutils.MapObject)
	require.NotContains(el, "Form")
	require.Zero(api.CallCount("GetForm"))
}

func TestCreateForm(t *testing.T) {
	require := require.New(t)
	api := testAPI()
	out := mustConvert(t, []interface{}{
		map[string]interface{}{
			"converter": "createForm",
			"process":   float64(ticketsProcID),
			"fields": map[string]interface{}{
				"Subject": "subject",
				"Hours":   "hours",
			},
		},
	}, api, coreutils.MapObject{"subject": "New ticket", "hours": float64(3)})

	el := out.(coreutils.MapObject)
	require.Equal(1, api.CallCount("CreateForm"))
	formID, ok := el["FormID"].(int64)
	require.True(ok)
	form := api.Forms[formID]
	require.NotNil(form)
	fv, ok := rpm.NewFormView(form, nil).FieldByUid(uidSubject)
	require.True(ok)
	require.Equal("New ticket", fv.AsString())
}

func TestUpdateForm(t *testing.T) {
	require := require.New(t)
	api := testAPI()
	out := mustConvert(t, []interface{}{
		map[string]interface{}{
			"converter": "updateForm",
			"process":   "Tickets",
			"fields":    map[string]interface{}{"Subject": "subject"},
		},
	}, api, []interface{}{
		map[string]interface{}{"FormID": float64(ticketFormID), "subject": "Printer fixed"},
		map[string]interface{}{"subject": "no target form"},
	})

	require.Equal(1, api.CallCount("EditForm"))
	coll := out.([]interface{})
	require.Len(coll, 2)
	fv, ok := rpm.NewFormView(api.Forms[ticketFormID], nil).FieldByUid(uidSubject)
	require.True(ok)
	require.Equal("Printer fixed", fv.AsString())
	require.NotContains(coll[1].(coreutils.MapObject), "Form")
}

func TestUpdateCustomer(t *testing.T) {
	require := require.New(t)
	api := testAPI()
	out := mustConvert(t, []interface{}{
		map[string]interface{}{"converter": "updateCustomer", "create": true},
	}, api, []interface{}{
		map[string]interface{}{"Customer": "acme"},
		map[string]interface{}{"Customer": "NewCo"},
		map[string]interface{}{"Other": "no customer name"},
	})

	coll := out.([]interface{})
	matched := coll[0].(coreutils.MapObject)["Customer"].(coreutils.MapObject)
	require.Equal(int64(400), matched["ID"])
	require.Equal("Acme", matched["Name"])

	created := coll[1].(coreutils.MapObject)["Customer"].(coreutils.MapObject)
	require.Equal("NewCo", created["Name"])
	require.Equal(1, api.CallCount("CreateEntity"))

	require.NotContains(coll[2].(coreutils.MapObject), "Customer")
}

func TestUpdateBasicEntity(t *testing.T) {
	require := require.New(t)
	out := mustConvert(t, []interface{}{
		map[string]interface{}{
			"converter":    "updateBasicEntity",
			"entityType":   "Staff",
			"nameProperty": "assignee",
			"property":     "Assignee",
		},
	}, testAPI(), coreutils.MapObject{"assignee": "Ada Smith"})

	ent := out.(coreutils.MapObject)["Assignee"].(coreutils.MapObject)
	require.Equal(int64(300), ent["ID"])
}

func TestUpdateBasicEntityUnknownTypeFailsFast(t *testing.T) {
	require := require.New(t)
	_, err := Init(context.Background(), []interface{}{
		map[string]interface{}{"converter": "updateBasicEntity", "entityType": "Martian"},
	}, testAPI())
	require.ErrorIs(err, rpm.ErrConfigurationError)
}

func TestErrorPropertyCapture(t *testing.T) {
	require := require.New(t)
	saved := timeNow
	timeNow = func() time.Time { return time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC) }
	defer func() { timeNow = saved }()

	// no such customer and create is off, with errorProperty the batch survives
	out := mustConvert(t, []interface{}{
		map[string]interface{}{"converter": "updateCustomer", "errorProperty": "Failure"},
	}, testAPI(), []interface{}{
		map[string]interface{}{"Customer": "Nobody Inc"},
		map[string]interface{}{"Customer": "Acme"},
	})

	coll := out.([]interface{})
	failure, ok := coll[0].(coreutils.MapObject)["Failure"].(coreutils.MapObject)
	require.True(ok)
	require.Contains(failure["Error"], "Nobody Inc")
	require.Equal("2026-03-04T12:00:00Z", failure["Time"])
	require.NotEmpty(failure["RunID"])

	matched := coll[1].(coreutils.MapObject)["Customer"].(coreutils.MapObject)
	require.Equal(int64(400), matched["ID"])
}

func TestErrorWithoutCapturePropagates(t *testing.T) {
	require := require.New(t)
	p, err := Init(context.Background(), []interface{}{
		map[string]interface{}{"converter": "updateCustomer"},
	}, testAPI())
	require.NoError(err)
	_, err = p.Convert(context.Background(), coreutils.MapObject{"Customer": "Nobody Inc"})
	require.ErrorIs(err, rpm.ErrValueError)
}

func TestFilter(t *testing.T) {
	require := require.New(t)
	out := mustConvert(t, []interface{}{
		map[string]interface{}{
			"converter": "filter",
			"condition": map[string]interface{}{
				"operator": "empty", "not": true, "operand": "qty",
			},
		},
	}, testAPI(), []interface{}{
		map[string]interface{}{"name": "a", "qty": float64(1)},
		map[string]interface{}{"name": "b"},
		map[string]interface{}{"name": "c", "qty": float64(2)},
	})

	coll := out.([]interface{})
	require.Len(coll, 2)
	require.Equal("a", coll[0].(coreutils.MapObject)["name"])
	require.Equal("c", coll[1].(coreutils.MapObject)["name"])
}

func TestFlatten(t *testing.T) {
	require := require.New(t)
	out := mustConvert(t, []interface{}{
		map[string]interface{}{"converter": "flatten", "property": "lines", "keyProperty": "SKU"},
	}, testAPI(), coreutils.MapObject{
		"order": "ORD-1",
		"lines": map[string]interface{}{
			"A1": map[string]interface{}{"qty": float64(2)},
			"B2": float64(5),
		},
	})

	coll := out.([]interface{})
	require.Len(coll, 2)
	first := coll[0].(coreutils.MapObject)
	require.Equal("ORD-1", first["order"])
	require.Equal("A1", first["SKU"])
	require.Equal(float64(2), first["qty"])
	second := coll[1].(coreutils.MapObject)
	require.Equal("B2", second["SKU"])
	require.Equal(float64(5), second["Value"])
}

func TestExtractChildren(t *testing.T) {
	require := require.New(t)
	out := mustConvert(t, []interface{}{
		map[string]interface{}{"converter": "extractChildren", "property": "items"},
	}, testAPI(), coreutils.MapObject{
		"order": "ORD-1",
		"items": []interface{}{
			map[string]interface{}{"sku": "A1"},
			map[string]interface{}{"sku": "B2"},
		},
	})

	coll := out.([]interface{})
	require.Len(coll, 2)
	require.Equal("ORD-1", coll[0].(coreutils.MapObject)["order"])
	require.Equal("B2", coll[1].(coreutils.MapObject)["sku"])
}

func TestTotals(t *testing.T) {
	require := require.New(t)
	out := mustConvert(t, []interface{}{
		map[string]interface{}{
			"converter": "totals",
			"key":       "customer",
			"totals":    map[string]interface{}{"Total": "amount"},
		},
	}, testAPI(), []interface{}{
		map[string]interface{}{"customer": "Acme", "amount": float64(10)},
		map[string]interface{}{"customer": "Zeta", "amount": float64(5)},
		map[string]interface{}{"customer": "Acme", "amount": float64(7)},
	})

	coll := out.([]interface{})
	require.Len(coll, 2)
	acme := coll[0].(coreutils.MapObject)
	require.Equal("Acme", acme["customer"])
	require.Equal(float64(17), acme["Total"])
}

func TestArrayTotals(t *testing.T) {
	require := require.New(t)
	out := mustConvert(t, []interface{}{
		map[string]interface{}{
			"converter": "arrayTotals",
			"property":  "items",
			"totals":    map[string]interface{}{"Total": "amount"},
		},
	}, testAPI(), coreutils.MapObject{
		"items": []interface{}{
			map[string]interface{}{"amount": float64(3)},
			map[string]interface{}{"amount": float64(4)},
		},
	})

	require.Equal(float64(7), out.(coreutils.MapObject)["Total"])
}

func TestUniqueConstraint(t *testing.T) {
	require := require.New(t)
	p, err := Init(context.Background(), []interface{}{
		map[string]interface{}{"converter": "uniqueConstraint", "fields": []interface{}{"sku"}},
	}, testAPI())
	require.NoError(err)

	_, err = p.Convert(context.Background(), []interface{}{
		map[string]interface{}{"sku": "A1"},
		map[string]interface{}{"sku": "B2"},
	})
	require.NoError(err)

	_, err = p.Convert(context.Background(), []interface{}{
		map[string]interface{}{"sku": "A1"},
		map[string]interface{}{"sku": "A1"},
	})
	require.ErrorIs(err, rpm.ErrAssertionError)
}

func TestAddChildren(t *testing.T) {
	require := require.New(t)
	out := mustConvert(t, []interface{}{
		map[string]interface{}{
			"converter": "addChildren",
			"view": map[string]interface{}{
				"process": "Tasks",
				"view":    "All Tasks",
				"fields":  map[string]interface{}{"Ticket": "Ticket", "Task": "Task"},
			},
			"parentKey": "Number",
			"childKey":  "Ticket",
			"property":  "Tasks",
		},
	}, testAPI(), []interface{}{
		map[string]interface{}{"Number": "TCK-1"},
		map[string]interface{}{"Number": "TCK-2"},
	})

	coll := out.([]interface{})
	tasks := coll[0].(coreutils.MapObject)["Tasks"].([]interface{})
	require.Len(tasks, 2)
	require.Equal("Replace toner", tasks[0].(coreutils.MapObject)["Task"])
	require.Empty(coll[1].(coreutils.MapObject)["Tasks"])
}

func TestScript(t *testing.T) {
	require := require.New(t)
	out := mustConvert(t, []interface{}{
		map[string]interface{}{
			"converter": "script",
			"script":    "obj.total = obj.a + obj.b; obj.total * 2",
			"property":  "doubled",
		},
	}, testAPI(), coreutils.MapObject{"a": float64(2), "b": float64(3)})

	el := out.(coreutils.MapObject)
	require.Equal(int64(5), el["total"])
	require.Equal(int64(10), el["doubled"])
}

func TestScriptBadSourceFailsFast(t *testing.T) {
	require := require.New(t)
	_, err := Init(context.Background(), []interface{}{
		map[string]interface{}{"converter": "script", "script": "obj..broken ("},
	}, testAPI())
	require.ErrorIs(err, rpm.ErrConfigurationError)
}

func init() {
	RegisterMethod("stamp", func(_ context.Context, _ rpm.API, el coreutils.MapObject) error {
		el["Stamped"] = true
		return nil
	})
}

func TestMethod(t *testing.T) {
	require := require.New(t)
	out := mustConvert(t, []interface{}{
		map[string]interface{}{"converter": "method", "method": "stamp"},
	}, testAPI(), coreutils.MapObject{})
	require.Equal(true, out.(coreutils.MapObject)["Stamped"])

	_, err := Init(context.Background(), []interface{}{
		map[string]interface{}{"converter": "method", "method": "nosuch"},
	}, testAPI())
	require.ErrorIs(err, rpm.ErrConfigurationError)
}

func TestParallelStep(t *testing.T) {
	require := require.New(t)
	elements := make([]interface{}, 40)
	for i := range elements {
		elements[i] = map[string]interface{}{"Customer": "Acme"}
	}
	out := mustConvert(t, []interface{}{
		map[string]interface{}{"converter": "updateCustomer", "parallel": true},
	}, testAPI(), elements)

	coll := out.([]interface{})
	require.Len(coll, 40)
	for _, raw := range coll {
		ent := raw.(coreutils.MapObject)["Customer"].(coreutils.MapObject)
		require.Equal(int64(400), ent["ID"])
	}
}
