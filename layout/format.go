package layout

// 数值与格式化语义，跨区块共用：日期 DD/MM/YYYY，日期时间追加 HH:MM，
// 数值按可配置小数位，布尔用勾/叉，空值统一渲染为 "-" 占位符——
// 这是展示契约，不是数据丢失。

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const placeholder = "-"

const (
	checkGlyph = "✓" // ✓
	crossGlyph = "✗" // ✗
)

// FormatValue 把任意绑定值转成展示字符串。
func FormatValue(v any, decimals int) string {
	switch t := v.(type) {
	case nil:
		return placeholder
	case string:
		if t == "" {
			return placeholder
		}
		if formatted, ok := tryFormatTime(t); ok {
			return formatted
		}
		return t
	case bool:
		if t {
			return checkGlyph
		}
		return crossGlyph
	case float64:
		return FormatNumber(t, decimals)
	case float32:
		return FormatNumber(float64(t), decimals)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = FormatValue(item, decimals)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}

// FormatNumber 按小数位格式化；整数值不带小数部分。
func FormatNumber(f float64, decimals int) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	if decimals < 0 {
		decimals = 2
	}
	return strconv.FormatFloat(f, 'f', decimals, 64)
}

// FormatTimestamp 把存储层的时间字符串转为 DD/MM/YYYY HH:MM；
// 解析不了时原样返回（展示总比丢字段好）。
func FormatTimestamp(s string) string {
	if s == "" {
		return placeholder
	}
	if formatted, ok := tryFormatTime(s); ok {
		return formatted
	}
	return s
}

// tryFormatTime 依次尝试常见存储格式：RFC 3339（含时刻）与纯日期。
func tryFormatTime(s string) (string, bool) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("02/01/2006 15:04"), true
		}
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Format("02/01/2006"), true
	}
	return "", false
}

// truthy 判断检查项状态的「已勾选」语义。
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "done", "checked", "completed", "ok", "pass", "1":
			return true
		}
		return false
	case float64:
		return t != 0
	case int:
		return t != 0
	default:
		return false
	}
}
