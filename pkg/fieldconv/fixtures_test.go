/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package fieldconv

import (
	"fmt"

	"github.com/rpmsoftware/integration-common-sub000/pkg/rpm"
	"github.com/rpmsoftware/integration-common-sub000/pkg/rpm/rpmtest"
)

const (
	ordersProcID   = int64(100)
	projectsProcID = int64(77)
	projectFormID  = int64(9001)
	orderFormID    = int64(5001)
)

func uidOf(ot rpm.ObjectType, st rpm.FieldSubType, id int) string {
	return fmt.Sprintf("%d_%d_%d", int(ot), int(st), id)
}

func cfUid(st rpm.FieldSubType, id int) string {
	return uidOf(rpm.ObjectType_CustomField, st, id)
}

func refUid(st rpm.FieldSubType, id int) string {
	return uidOf(rpm.ObjectType_FormReference, st, id)
}

func cell(uid, val string) rpm.FieldValue {
	return rpm.FieldValue{Uid: uid, Value: rpm.StrPtr(val)}
}

func cellID(uid, val string, id int64) rpm.FieldValue {
	return rpm.FieldValue{Uid: uid, Value: rpm.StrPtr(val), ID: id}
}

var (
	uidTitle    = cfUid(rpm.FieldSubType_Text, 1)
	uidQty      = cfUid(rpm.FieldSubType_Number, 2)
	uidMargin   = cfUid(rpm.FieldSubType_Percent, 3)
	uidDue      = cfUid(rpm.FieldSubType_Date, 4)
	uidRush     = cfUid(rpm.FieldSubType_YesNo, 5)
	uidColor    = cfUid(rpm.FieldSubType_List, 6)
	uidTags     = cfUid(rpm.FieldSubType_ListMultiSelect, 7)
	uidPrice    = cfUid(rpm.FieldSubType_Money, 8)
	uidItems    = cfUid(rpm.FieldSubType_FieldTable, 9)
	uidTotals   = cfUid(rpm.FieldSubType_FieldTableDefinedRow, 10)
	uidLegacy   = cfUid(rpm.FieldSubType_DeprecatedTable, 11)
	uidParent   = refUid(rpm.RefSubType_RestrictedReference, 12)
	uidAssignee = refUid(rpm.RefSubType_Staff, 13)
	uidClient   = refUid(rpm.RefSubType_Customer, 14)
	uidTotal    = cfUid(rpm.FieldSubType_Formula, 15)

	// Items table columns
	uidItemSKU   = cfUid(rpm.FieldSubType_Text, 91)
	uidItemCount = cfUid(rpm.FieldSubType_Number, 92)
	uidItemShare = cfUid(rpm.FieldSubType_Percent, 93)

	// Totals table column and declared rows
	uidTotalAmount = cfUid(rpm.FieldSubType_Money, 101)
	totalsQ1RowID  = int64(11)
	totalsQ2RowID  = int64(12)

	// Legacy table columns
	uidLegacyA = cfUid(rpm.FieldSubType_Text, 111)
	uidLegacyB = cfUid(rpm.FieldSubType_Number, 112)

	uidProjectCode = cfUid(rpm.FieldSubType_Text, 201)
)

func ordersProcess() *rpm.Process {
	cf := func(uid, name string, st rpm.FieldSubType) rpm.ProcessField {
		return rpm.ProcessField{Uid: uid, Name: name, FieldType: rpm.ObjectType_CustomField, SubType: st, UserCanEdit: true}
	}
	ref := func(uid, name string, st rpm.FieldSubType) rpm.ProcessField {
		return rpm.ProcessField{Uid: uid, Name: name, FieldType: rpm.ObjectType_FormReference, SubType: st, UserCanEdit: true}
	}

	items := cf(uidItems, "Items", rpm.FieldSubType_FieldTable)
	items.Rows = []rpm.Row{{
		RowID:        1,
		IsDefinition: true,
		Fields:       []rpm.FieldValue{cell(uidItemSKU, "SKU"), cell(uidItemCount, "Count"), cell(uidItemShare, "Share")},
	}}

	totals := cf(uidTotals, "Totals", rpm.FieldSubType_FieldTableDefinedRow)
	totals.Rows = []rpm.Row{
		{RowID: 1, IsDefinition: true, Fields: []rpm.FieldValue{cell(uidTotalAmount, "Amount")}},
		{RowID: totalsQ1RowID, Name: "Q1"},
		{RowID: totalsQ2RowID, Name: "Q2"},
	}

	legacy := cf(uidLegacy, "Legacy", rpm.FieldSubType_DeprecatedTable)
	legacy.Rows = []rpm.Row{{
		RowID:        1,
		IsDefinition: true,
		Fields:       []rpm.FieldValue{cell(uidLegacyA, "A"), cell(uidLegacyB, "B")},
	}}

	color := cf(uidColor, "Color", rpm.FieldSubType_List)
	color.Options = []rpm.Option{{ID: 1, Text: "Red"}, {ID: 2, Text: "Blue"}}

	parent := ref(uidParent, "Parent", rpm.RefSubType_RestrictedReference)
	parent.ReferencedProcessID = projectsProcID

	total := cf(uidTotal, "Total", rpm.FieldSubType_Formula)
	total.UserCanEdit = false

	return &rpm.Process{
		ProcessID: ordersProcID,
		Process:   "Orders",
		Fields: []rpm.ProcessField{
			cf(uidTitle, "Title", rpm.FieldSubType_Text),
			cf(uidQty, "Qty", rpm.FieldSubType_Number),
			cf(uidMargin, "Margin", rpm.FieldSubType_Percent),
			cf(uidDue, "Due", rpm.FieldSubType_Date),
			cf(uidRush, "Rush", rpm.FieldSubType_YesNo),
			color,
			cf(uidTags, "Tags", rpm.FieldSubType_ListMultiSelect),
			cf(uidPrice, "Price", rpm.FieldSubType_Money),
			items, totals, legacy,
			parent,
			ref(uidAssignee, "Assignee", rpm.RefSubType_Staff),
			ref(uidClient, "Client", rpm.RefSubType_Customer),
			total,
		},
		StatusLevels: []rpm.StatusLevel{{ID: 1, Text: "Open"}, {ID: 2, Text: "Closed"}},
	}
}

func projectsProcess() *rpm.Process {
	return &rpm.Process{
		ProcessID: projectsProcID,
		Process:   "Projects",
		Fields: []rpm.ProcessField{
			{Uid: uidProjectCode, Name: "Code", FieldType: rpm.ObjectType_CustomField, SubType: rpm.FieldSubType_Text, UserCanEdit: true},
		},
	}
}

func orderForm() *rpm.Form {
	return &rpm.Form{
		FormID:    orderFormID,
		ProcessID: ordersProcID,
		Number:    "ORD-17",
		Owner:     "Ada Smith",
		Started:   "1/15/2026",
		Modified:  "2/1/2026",
		StatusID:  1,
		Status:    "Open",
		Fields: []rpm.FieldValue{
			cell(uidTitle, "Widget"),
			cell(uidQty, "1,200"),
			cell(uidMargin, "50%"),
			cell(uidDue, "3/4/2026"),
			cell(uidRush, "Yes"),
			cellID(uidColor, "Red", 1),
			cell(uidTags, "alpha, beta"),
			cell(uidPrice, "$1,234.56"),
			{Uid: uidItems, Rows: []rpm.Row{
				{RowID: 41, Fields: []rpm.FieldValue{cell(uidItemSKU, "A1"), cell(uidItemCount, "2"), cell(uidItemShare, "50")}},
				{RowID: 42, Fields: []rpm.FieldValue{cell(uidItemSKU, "B2"), cell(uidItemCount, "3"), cell(uidItemShare, "25")}},
			}},
			{Uid: uidTotals, Rows: []rpm.Row{
				{RowID: 61, TemplateDefinedRowID: totalsQ1RowID, Fields: []rpm.FieldValue{cell(uidTotalAmount, "$10.00")}},
				{RowID: 62, TemplateDefinedRowID: totalsQ2RowID, Fields: []rpm.FieldValue{cell(uidTotalAmount, "$20.00")}},
			}},
			cell(uidLegacy, "x | 1 %% y | 2"),
			cellID(uidParent, "PRJ-7", projectFormID),
			cell(uidAssignee, "Ada Smith"),
			cell(uidClient, ""),
			cell(uidTotal, "99"),
		},
	}
}

func projectForm() *rpm.Form {
	return &rpm.Form{
		FormID:    projectFormID,
		ProcessID: projectsProcID,
		Fields:    []rpm.FieldValue{cell(uidProjectCode, "PRJ-7")},
	}
}

// testEnv wires the fixture schema and forms into a fake platform.
func testEnv() (*Env, *rpmtest.API) {
	api := rpmtest.New()
	orders := ordersProcess()
	api.Processes[ordersProcID] = orders
	api.Processes[projectsProcID] = projectsProcess()
	api.Forms[orderFormID] = orderForm()
	api.Forms[projectFormID] = projectForm()
	api.Entities[rpm.EntityType_Staff] = []rpm.Entity{{EntityID: 300, Name: "Ada Smith"}}
	api.Entities[rpm.EntityType_Customer] = []rpm.Entity{{EntityID: 400, Name: "Acme"}}
	return NewEnv(api, orders), api
}

func orderView() rpm.FormView {
	return rpm.NewFormView(orderForm(), ordersProcess())
}
