package sheetsql

import (
	"testing"
	"time"

	"github.com/nao1215/sheetsql/store"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cls := newClassifier(nil)

	tests := []struct {
		name     string
		input    string
		expected cellKind
	}{
		{"empty is null", "", cellNull},
		{"whitespace is null", "   ", cellNull},
		{"integer", "123", cellInteger},
		{"negative integer", "-5", cellInteger},
		{"signed integer", "+12", cellInteger},
		{"leading zeros stay text", "007", cellText},
		{"lone zero is integer", "0", cellInteger},
		{"float", "3.14", cellReal},
		{"scientific notation", "2.5e-3", cellReal},
		{"hex float stays text", "0x1p-2", cellText},
		{"infinity stays text", "Inf", cellText},
		{"nan stays text", "NaN", cellText},
		{"true literal", "true", cellBool},
		{"false literal mixed case", "FALSE", cellBool},
		{"iso date", "2024-03-15", cellDate},
		{"iso datetime", "2024-03-15 10:30:00", cellDate},
		{"us date", "03/15/2024", cellDate},
		{"invalid date stays text", "2023-13-45", cellText},
		{"plain text", "hello", cellText},
		{"overflowing integer becomes real", "9223372036854775808", cellReal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := cls.classify(tt.input)
			if result.kind != tt.expected {
				t.Errorf("classify(%q).kind = %v, want %v", tt.input, result.kind, tt.expected)
			}
		})
	}
}

func TestClassifyKeepsRaw(t *testing.T) {
	t.Parallel()

	cls := newClassifier(nil)
	for _, input := range []string{"007", " 42 ", "hello", "2024-03-15"} {
		if got := cls.classify(input).raw; got != input {
			t.Errorf("classify(%q).raw = %q, want the input back", input, got)
		}
	}
}

func TestClassifyCustomLayouts(t *testing.T) {
	t.Parallel()

	cls := newClassifier([]string{"02.01.2006"})
	if got := cls.classify("15.01.2024"); got.kind != cellDate {
		t.Errorf("classify with custom layout = %v, want cellDate", got.kind)
	}
	// The default layouts are replaced, not extended.
	if got := cls.classify("2024-01-15"); got.kind != cellText {
		t.Errorf("classify of default-layout value = %v, want cellText", got.kind)
	}
}

func TestInferColumnType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		values   []string
		expected store.ColumnType
	}{
		{
			name:     "all integers",
			values:   []string{"1", "2", "3"},
			expected: store.ColumnTypeInteger,
		},
		{
			name:     "zeros and ones stay integer",
			values:   []string{"0", "1", "0", "1"},
			expected: store.ColumnTypeInteger,
		},
		{
			name:     "integers widen to real",
			values:   []string{"1", "2.5", "3"},
			expected: store.ColumnTypeReal,
		},
		{
			name:     "booleans",
			values:   []string{"true", "false", "TRUE"},
			expected: store.ColumnTypeBoolean,
		},
		{
			name:     "boolean literals mixed with zero and one",
			values:   []string{"true", "1", "false", "0"},
			expected: store.ColumnTypeBoolean,
		},
		{
			name:     "boolean literal with other integer is text",
			values:   []string{"true", "2"},
			expected: store.ColumnTypeText,
		},
		{
			name:     "dates",
			values:   []string{"2024-01-01", "2024-02-05"},
			expected: store.ColumnTypeDate,
		},
		{
			name:     "date mixed with text",
			values:   []string{"2024-01-01", "hello"},
			expected: store.ColumnTypeText,
		},
		{
			name:     "number mixed with text",
			values:   []string{"1", "hello"},
			expected: store.ColumnTypeText,
		},
		{
			name:     "all empty is text",
			values:   []string{"", "", ""},
			expected: store.ColumnTypeText,
		},
		{
			name:     "empties are skipped",
			values:   []string{"7", "", "9"},
			expected: store.ColumnTypeInteger,
		},
		{
			name:     "leading zeros keep the column text",
			values:   []string{"007", "008"},
			expected: store.ColumnTypeText,
		},
		{
			name:     "date mixed with integer is text",
			values:   []string{"2024-01-01", "42"},
			expected: store.ColumnTypeText,
		},
	}

	cls := newClassifier(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := make([][]cell, 0, len(tt.values))
			for _, v := range tt.values {
				rows = append(rows, []cell{cls.classify(v)})
			}
			result := inferColumnType(rows, 0)
			if result != tt.expected {
				t.Errorf("inferColumnType(%v) = %v, want %v", tt.values, result, tt.expected)
			}
		})
	}
}

func TestCanonicalDate(t *testing.T) {
	t.Parallel()

	midnight := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	if got := canonicalDate(midnight); got != "2024-03-15" {
		t.Errorf("canonicalDate(midnight) = %q, want 2024-03-15", got)
	}
	withClock := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	if got := canonicalDate(withClock); got != "2024-03-15 10:30:00" {
		t.Errorf("canonicalDate(with clock) = %q, want 2024-03-15 10:30:00", got)
	}
}
