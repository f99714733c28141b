package sheetsql

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/sheetsql/store"
)

// cellKind tags a cell with the value variant detected at the
// extraction boundary. Inference and loading switch over the tag and
// never re-parse the source text.
type cellKind int

const (
	cellNull cellKind = iota
	cellInteger
	cellReal
	cellText
	cellDate
	cellBool
)

// cell is one spreadsheet value. raw always keeps the source text so
// that columns which end up as Text stay lossless.
type cell struct {
	kind    cellKind
	raw     string
	integer int64
	real    float64
	date    time.Time
	boolean bool
}

func nullCell() cell {
	return cell{kind: cellNull}
}

func integerCell(v int64) cell {
	return cell{kind: cellInteger, raw: strconv.FormatInt(v, 10), integer: v}
}

func realCell(v float64) cell {
	return cell{kind: cellReal, raw: strconv.FormatFloat(v, 'g', -1, 64), real: v}
}

func boolCell(v bool) cell {
	return cell{kind: cellBool, raw: strconv.FormatBool(v), boolean: v}
}

func dateCell(v time.Time) cell {
	return cell{kind: cellDate, raw: canonicalDate(v), date: v}
}

// canonicalDate renders a date the way it is stored: ISO-8601, with the
// clock part only when it is nonzero.
func canonicalDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

// defaultDateLayouts are the date and datetime forms recognized during
// classification, tried in order. Override with WithDateFormats.
var defaultDateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// classifier tags raw string cells. It carries the configured date
// layouts; everything else about classification is fixed.
type classifier struct {
	dateLayouts []string
}

func newClassifier(layouts []string) *classifier {
	if len(layouts) == 0 {
		layouts = defaultDateLayouts
	}
	return &classifier{dateLayouts: layouts}
}

// classify tags one raw cell value from a sheet grid. Blank and
// whitespace-only values are Null. Numerics are tried before dates and
// booleans so "1" is an Integer cell, never a Boolean one; the column
// pass decides whether an all-0/1 column is Boolean.
func (c *classifier) classify(raw string) cell {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return cell{kind: cellNull, raw: raw}
	}
	if v, ok := parseInteger(trimmed); ok {
		return cell{kind: cellInteger, raw: raw, integer: v}
	}
	if v, ok := parseReal(trimmed); ok {
		return cell{kind: cellReal, raw: raw, real: v}
	}
	if strings.EqualFold(trimmed, "true") {
		return cell{kind: cellBool, raw: raw, boolean: true}
	}
	if strings.EqualFold(trimmed, "false") {
		return cell{kind: cellBool, raw: raw, boolean: false}
	}
	if d, ok := c.parseDate(trimmed); ok {
		return cell{kind: cellDate, raw: raw, date: d}
	}
	return cell{kind: cellText, raw: raw}
}

// parseInteger accepts optionally signed decimal integers that fit in
// int64. Leading zeros are rejected so values like "007" keep their
// zeros by staying text.
func parseInteger(s string) (int64, bool) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	digits := strings.TrimLeft(s, "+-")
	if len(digits) > 1 && digits[0] == '0' {
		return 0, false
	}
	return v, true
}

// parseReal accepts decimal floats including scientific notation.
// Hex floats, infinities, and NaN stay text.
func parseReal(s string) (float64, bool) {
	if strings.ContainsAny(s, "xX") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// parseDate tries the configured layouts in order. A cheap prefilter
// skips values that cannot be a date before any time.Parse call.
func (c *classifier) parseDate(s string) (time.Time, bool) {
	if len(s) < 8 || len(s) > 35 {
		return time.Time{}, false
	}
	if !strings.ContainsAny(s, "0123456789") {
		return time.Time{}, false
	}
	for _, layout := range c.dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// inferColumnType selects the narrowest type every non-null cell of the
// column fits, trying Integer, Real, Date, Boolean, Text in that order.
// A column with no values at all is Text. The whole column is scanned;
// rows are expected to be padded to the header width.
func inferColumnType(rows [][]cell, col int) store.ColumnType {
	hasValue := false
	allInteger := true
	allNumeric := true
	allDate := true
	allBoolish := true
	for _, row := range rows {
		c := row[col]
		if c.kind == cellNull {
			continue
		}
		hasValue = true
		if c.kind != cellInteger {
			allInteger = false
		}
		if c.kind != cellInteger && c.kind != cellReal {
			allNumeric = false
		}
		if c.kind != cellDate {
			allDate = false
		}
		if !isBoolish(c) {
			allBoolish = false
		}
		if !allNumeric && !allDate && !allBoolish {
			break
		}
	}
	switch {
	case !hasValue:
		return store.ColumnTypeText
	case allInteger:
		return store.ColumnTypeInteger
	case allNumeric:
		return store.ColumnTypeReal
	case allDate:
		return store.ColumnTypeDate
	case allBoolish:
		return store.ColumnTypeBoolean
	default:
		return store.ColumnTypeText
	}
}

// isBoolish reports whether a cell belongs to the Boolean literal
// domain: a true/false literal, or an integer 0 or 1.
func isBoolish(c cell) bool {
	return c.kind == cellBool || (c.kind == cellInteger && (c.integer == 0 || c.integer == 1))
}
