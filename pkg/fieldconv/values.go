/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package fieldconv

import (
	"strconv"
	"strings"
	"time"

	"github.com/rpmsoftware/integration-common-sub000/pkg/rpm"
)

// parseNumber reads the platform's rendering of numeric values,
// tolerating currency signs and thousand separators.
func parseNumber(s string) (float64, error) {
	t := strings.TrimSpace(s)
	t = strings.TrimPrefix(t, "$")
	t = strings.ReplaceAll(t, ",", "")
	neg := false
	// accounting negatives: (123.45)
	if strings.HasPrefix(t, "(") && strings.HasSuffix(t, ")") {
		neg = true
		t = t[1 : len(t)-1]
	}
	n, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, rpm.ErrValue("not a number: «%v»", s)
	}
	if neg {
		n = -n
	}
	return n, nil
}

// parsePercent normalizes a percent rendering to a decimal fraction.
// "50%" and "0.5" both mean 0.5. In table cells the raw number is a
// whole percentage, so there 50 means 0.5.
func parsePercent(s string, tableCell bool) (float64, error) {
	t := strings.TrimSpace(s)
	if strings.HasSuffix(t, "%") {
		n, err := parseNumber(strings.TrimSuffix(t, "%"))
		if err != nil {
			return 0, err
		}
		return n / 100, nil
	}
	n, err := parseNumber(t)
	if err != nil {
		return 0, err
	}
	if tableCell {
		return n / 100, nil
	}
	return n, nil
}

func parseDateValue(s, format string) (time.Time, error) {
	for _, f := range []string{format, rpm.DateFormat, rpm.DateTimeFormat, rpm.ISODateFormat, time.RFC3339} {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, rpm.ErrValue("not a date: «%v»", s)
}

func formatDateValue(t time.Time) string {
	return t.Format(rpm.DateFormat)
}

func formatDateTimeValue(t time.Time) string {
	return t.Format(rpm.DateTimeFormat)
}

func parseYesNo(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0", "":
		return false, nil
	}
	return false, rpm.ErrValue("not a yes/no value: «%v»", s)
}

func formatYesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

const multiListSeparator = ", "

func splitMultiList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			res = append(res, p)
		}
	}
	return res
}

func joinMultiList(vals []string) string {
	return strings.Join(vals, multiListSeparator)
}

// asDate coerces the shapes a date value may arrive in from source data.
func asDate(v any, format string) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		return parseDateValue(t, format)
	}
	return time.Time{}, rpm.ErrValue("not a date: «%v»", v)
}

// asFloat coerces the shapes a numeric value may arrive in.
func asFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case string:
		return parseNumber(t)
	}
	return 0, rpm.ErrValue("not a number: «%v»", v)
}

// asString renders a source value the way the platform expects it typed
// into a text field.
func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return formatYesNo(t)
	case time.Time:
		return formatDateValue(t)
	}
	return ""
}
