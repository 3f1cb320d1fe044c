package binding

// 数据绑定解析器：把点号路径与数组过滤表达式解析到业务记录上。
// 解析是全函数——缺数据一律得到 nil，由渲染层落成占位符，绝不中断整份文档。

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ByLCY/vellum/record"
)

// Resolver 按路径从记录中取值，并对绑定失配打 warn 日志。
// 零值不可用，请通过 NewResolver 构造。
type Resolver struct {
	log *zap.Logger
}

// NewResolver 构造解析器。log 为 nil 时使用 Nop，方便库内默认静默。
func NewResolver(log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{log: log}
}

// Resolve 解析 path 在 rec 上的取值。任何一步缺失返回 nil；
// 路径语法非法同样返回 nil 并记录 warn（非致命，渲染为空白字段）。
func (r *Resolver) Resolve(rec *record.Record, path string) any {
	if rec == nil || strings.TrimSpace(path) == "" {
		return nil
	}
	parsed, err := ParsePath(path)
	if err != nil {
		r.log.Warn("绑定路径解析失败，按空值处理", zap.String("path", path), zap.Error(err))
		return nil
	}
	return r.resolveSegments(rec, parsed.Segments)
}

func (r *Resolver) resolveSegments(rec *record.Record, segs []*Segment) any {
	var current any = rec
	for i, seg := range segs {
		next, ok := descend(current, seg.Name)
		if !ok {
			// 扁平数据映射：把剩余段重新拼成一个点号键再查一次。
			// 仅当剩余段不带过滤器时可用，否则语义不明，按缺失处理。
			if m, isMap := current.(map[string]any); isMap && !hasFilter(segs[i:]) {
				if v, hit := m[joinNames(segs[i:])]; hit {
					return v
				}
			}
			return nil
		}
		current = next
		if seg.Filter != nil {
			filtered, ok := applyFilter(current, seg.Filter)
			if !ok {
				r.log.Warn("数组过滤作用在非数组值上",
					zap.String("segment", seg.Name),
					zap.String("key", seg.Filter.Key))
				return nil
			}
			current = filtered
		}
	}
	return current
}

func hasFilter(segs []*Segment) bool {
	for _, s := range segs {
		if s.Filter != nil {
			return true
		}
	}
	return false
}

func joinNames(segs []*Segment) string {
	names := make([]string, len(segs))
	for i, s := range segs {
		names[i] = s.Name
	}
	return strings.Join(names, ".")
}

// descend 按名字在当前值上向下走一层。
func descend(current any, name string) (any, bool) {
	switch c := current.(type) {
	case *record.Record:
		return recordField(c, name)
	case map[string]any:
		v, ok := c[name]
		return v, ok
	case *record.Summary:
		if c == nil {
			return nil, false
		}
		switch name {
		case "id":
			return c.ID, true
		case "name":
			return c.Name, true
		}
		return nil, false
	case record.Attachment:
		return attachmentField(c, name)
	default:
		return nil, false
	}
}

// recordField 暴露记录顶层可绑定字段（§3：顶层标量可直接作为绑定目标）。
func recordField(rec *record.Record, name string) (any, bool) {
	switch name {
	case "id":
		return rec.ID, true
	case "entry_date":
		return rec.EntryDate, true
	case "shift":
		return rec.Shift, true
	case "status":
		return rec.Status, true
	case "creator_name":
		return rec.CreatorName, true
	case "contract":
		if rec.Contract == nil {
			return nil, false
		}
		return rec.Contract, true
	case "template":
		if rec.Template == nil {
			return nil, false
		}
		return rec.Template, true
	case "data":
		return rec.Data, true
	case "attachments":
		return rec.Attachments, true
	default:
		// 容错：省略 data. 前缀的扁平键也允许命中。
		if v, ok := rec.Data[name]; ok {
			return v, true
		}
		return nil, false
	}
}

func attachmentField(a record.Attachment, name string) (any, bool) {
	switch name {
	case "id":
		return a.ID, true
	case "file_type":
		return a.FileType, true
	case "storage_url", "url":
		return a.StorageURL, true
	case "field_id":
		return a.FieldID, true
	case "caption":
		return a.Caption, true
	case "created_at":
		return a.CreatedAt, true
	default:
		if a.Metadata != nil {
			v, ok := a.Metadata[name]
			return v, ok
		}
		return nil, false
	}
}

// applyFilter 保留数组中 key 等于目标值的元素。非数组返回 ok=false。
func applyFilter(current any, f *Filter) (any, bool) {
	want := f.Value.Get()
	switch c := current.(type) {
	case []record.Attachment:
		out := []record.Attachment{}
		for _, a := range c {
			if v, ok := attachmentField(a, f.Key); ok && looseEqual(v, want) {
				out = append(out, a)
			}
		}
		return out, true
	case []any:
		out := []any{}
		for _, elem := range c {
			if v, ok := descend(elem, f.Key); ok && looseEqual(v, want) {
				out = append(out, elem)
			}
		}
		return out, true
	default:
		return nil, false
	}
}

// looseEqual 做跨类型的宽松等值比较：数值统一为 float64，
// 其余退化为字符串表示比较，以兼容 JSON 解码产生的类型差异。
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, ok := asFloat(a); ok {
		if fb, ok := asFloat(b); ok {
			return fa == fb
		}
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			return ba == bb
		}
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
