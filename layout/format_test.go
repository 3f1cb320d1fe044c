package layout

import "testing"

func TestFormatValuePlaceholders(t *testing.T) {
	if got := FormatValue(nil, 2); got != "-" {
		t.Errorf("nil = %q, want -", got)
	}
	if got := FormatValue("", 2); got != "-" {
		t.Errorf("空串 = %q, want -", got)
	}
}

func TestFormatValueBooleans(t *testing.T) {
	if got := FormatValue(true, 2); got != "✓" {
		t.Errorf("true = %q", got)
	}
	if got := FormatValue(false, 2); got != "✗" {
		t.Errorf("false = %q", got)
	}
}

func TestFormatValueNumbers(t *testing.T) {
	cases := []struct {
		in       any
		decimals int
		want     string
	}{
		{42.0, 2, "42"},
		{42.5, 2, "42.50"},
		{42.567, 2, "42.57"},
		{42.5, 1, "42.5"},
		{7, 2, "7"},
		{int64(-3), 2, "-3"},
		{0.0, 2, "0"},
	}
	for _, tc := range cases {
		if got := FormatValue(tc.in, tc.decimals); got != tc.want {
			t.Errorf("FormatValue(%v, %d) = %q, want %q", tc.in, tc.decimals, got, tc.want)
		}
	}
}

func TestFormatValueDates(t *testing.T) {
	cases := map[string]string{
		"2026-03-14":           "14/03/2026",
		"2026-03-14T09:30:00Z": "14/03/2026 09:30",
		"2026-03-14T09:30:00":  "14/03/2026 09:30",
		"not a date":           "not a date",
	}
	for in, want := range cases {
		if got := FormatValue(in, 2); got != want {
			t.Errorf("FormatValue(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatValueJoinsSlices(t *testing.T) {
	got := FormatValue([]any{"a", true, 3.0}, 2)
	if got != "a, ✓, 3" {
		t.Errorf("切片拼接 = %q", got)
	}
}

func TestFormatTimestamp(t *testing.T) {
	if got := FormatTimestamp(""); got != "-" {
		t.Errorf("空时间戳 = %q", got)
	}
	if got := FormatTimestamp("2026-03-14T17:05:00Z"); got != "14/03/2026 17:05" {
		t.Errorf("时间戳 = %q", got)
	}
	if got := FormatTimestamp("yesterday"); got != "yesterday" {
		t.Errorf("解析不了应原样返回: %q", got)
	}
}

func TestTruthy(t *testing.T) {
	truthyValues := []any{true, "yes", "done", "Checked", "COMPLETED", "ok", "pass", "1", 1, 2.5}
	for _, v := range truthyValues {
		if !truthy(v) {
			t.Errorf("truthy(%v) 应为真", v)
		}
	}
	falsyValues := []any{false, "no", "pending", "", 0, 0.0, nil, []any{}}
	for _, v := range falsyValues {
		if truthy(v) {
			t.Errorf("truthy(%v) 应为假", v)
		}
	}
}

func TestLineHeight(t *testing.T) {
	got := LineHeight(10)
	want := 10 * PtToMm * 1.4
	if got != want {
		t.Errorf("LineHeight(10) = %g, want %g", got, want)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("不超限应原样: %q", got)
	}
	if got := truncate("abcdefgh", 5); got != "abcd…" {
		t.Errorf("截断 = %q", got)
	}
	if got := truncate("anything", 0); got != "anything" {
		t.Errorf("max<=1 原样返回: %q", got)
	}
}
