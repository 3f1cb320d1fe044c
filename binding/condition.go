package binding

// show_if 条件求值。形态识别按 equals → exists → contains → has_items 的
// 顺序取第一个出现的；一个都没有时视为「始终可见」。

import (
	"go.uber.org/zap"

	"github.com/ByLCY/vellum/record"
	"github.com/ByLCY/vellum/schema"
)

// Evaluate 对记录求值可见性条件。cond 为 nil 或无法识别形态时返回 true。
func (r *Resolver) Evaluate(cond *schema.Condition, rec *record.Record) bool {
	if cond == nil || cond.Field == "" {
		return true
	}
	value := r.Resolve(rec, cond.Field)

	switch {
	case cond.Equals != nil:
		return looseEqual(value, cond.Equals)
	case cond.Exists != nil:
		return (value != nil) == *cond.Exists
	case cond.Contains != nil:
		return containsMatch(value, cond.Contains)
	case cond.HasItems != nil:
		items, ok := asSlice(value)
		return (ok && len(items) > 0) == *cond.HasItems
	default:
		r.log.Warn("show_if 条件未声明任何判断形态，按可见处理", zap.String("field", cond.Field))
		return true
	}
}

// containsMatch：数组中存在一个元素，其全部 key/value 均匹配时为真。
func containsMatch(value any, want map[string]any) bool {
	items, ok := asSlice(value)
	if !ok {
		return false
	}
	for _, item := range items {
		matched := true
		for k, v := range want {
			got, ok := descend(item, k)
			if !ok || !looseEqual(got, v) {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

func asSlice(v any) ([]any, bool) {
	switch c := v.(type) {
	case []any:
		return c, true
	case []record.Attachment:
		out := make([]any, len(c))
		for i, a := range c {
			out[i] = a
		}
		return out, true
	default:
		return nil, false
	}
}
