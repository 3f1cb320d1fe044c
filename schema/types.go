package schema

// 该文件定义版式 Schema 的数据结构。Schema 以 JSON 形式持久化，
// 顶层包含 page 与 sections，加载后视为只读。

import (
	"encoding/json"
	"fmt"
)

// BlockType 是固定的区块类型枚举，新增类型需要同步扩展布局引擎的分发逻辑。
type BlockType string

const (
	BlockHeader       BlockType = "header"
	BlockDetailEntry  BlockType = "detail_entry"
	BlockTextSection  BlockType = "text_section"
	BlockChecklist    BlockType = "checklist"
	BlockTable        BlockType = "table"
	BlockPhotoGrid    BlockType = "photo_grid"
	BlockSignatureBox BlockType = "signature_box"
	BlockMetricsCards BlockType = "metrics_cards"
)

// KnownBlockTypes 列出合法的 block_type 取值，供校验器使用。
var KnownBlockTypes = map[BlockType]bool{
	BlockHeader:       true,
	BlockDetailEntry:  true,
	BlockTextSection:  true,
	BlockChecklist:    true,
	BlockTable:        true,
	BlockPhotoGrid:    true,
	BlockSignatureBox: true,
	BlockMetricsCards: true,
}

// Schema 描述一份完整的页面版式，version 字段为后续演进预留。
// Page 与 Sections 使用指针/切片以便校验器区分「缺失」与「空值」。
type Schema struct {
	Version  int       `json:"version,omitempty"`
	Page     *Page     `json:"page"`
	Sections []Section `json:"sections"`
}

// Page 记录纸张、方向与页边距。size/orientation 允许留空，由构建器填默认值。
type Page struct {
	Size        string  `json:"size,omitempty"`        // A4 / A3 / Letter
	Orientation string  `json:"orientation,omitempty"` // portrait / landscape
	Margins     Margins `json:"margins,omitempty"`
}

// Margins 以毫米为单位。
type Margins struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// Section 是 schema 中的一个有序区块定义，渲染阶段只读。
type Section struct {
	ID        string         `json:"section_id"`
	BlockType BlockType      `json:"block_type"`
	Layout    string         `json:"layout,omitempty"` // single_column / two_column 等变体
	Binding   BindingSpec    `json:"binding_rules,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
	ShowIf    *Condition     `json:"show_if,omitempty"`
}

// BindingKind 标记绑定规则的具体形态。绑定形态在解码时一次性确定，
// 避免运行期再按键名猜测。
type BindingKind int

const (
	// BindingNone 表示未声明绑定；photo_grid 与 signature_box 据此走隐式附件过滤。
	BindingNone BindingKind = iota
	BindingSourcePath
	BindingTemplateSection
	BindingMetrics
	BindingAutoExtract
)

// String returns the wire-level name of the binding kind.
func (k BindingKind) String() string {
	switch k {
	case BindingSourcePath:
		return "source"
	case BindingTemplateSection:
		return "template_section"
	case BindingMetrics:
		return "metrics"
	case BindingAutoExtract:
		return "auto_extract_all"
	default:
		return "none"
	}
}

// BindingSpec 是绑定规则的标签联合。JSON 里仍按旧有键名书写
// （source / template_section / metrics / mode），解码时归一化为 Kind。
type BindingSpec struct {
	Kind            BindingKind  `json:"-"`
	Source          string       `json:"source,omitempty"`
	TemplateSection string       `json:"template_section,omitempty"`
	Field           string       `json:"field,omitempty"`
	Fields          []string     `json:"fields,omitempty"`
	Metrics         []MetricSpec `json:"metrics,omitempty"`
	Mode            string       `json:"mode,omitempty"`
}

// MetricSpec 描述 metrics_cards 区块中的一张卡片取数规则。
type MetricSpec struct {
	TemplateSection string `json:"template_section"`
	Field           string `json:"field"`
	Label           string `json:"label"`
	Unit            string `json:"unit,omitempty"`
}

// UnmarshalJSON 解码绑定规则并确定其形态；同时给出多个互斥键视为 schema 错误。
func (b *BindingSpec) UnmarshalJSON(data []byte) error {
	type raw BindingSpec
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*b = BindingSpec(r)

	kinds := []BindingKind{}
	if b.Source != "" {
		kinds = append(kinds, BindingSourcePath)
	}
	if b.TemplateSection != "" {
		kinds = append(kinds, BindingTemplateSection)
	}
	if len(b.Metrics) > 0 {
		kinds = append(kinds, BindingMetrics)
	}
	if b.Mode != "" {
		if b.Mode != "auto_extract_all" {
			return fmt.Errorf("未知的绑定 mode：%q", b.Mode)
		}
		kinds = append(kinds, BindingAutoExtract)
	}
	switch len(kinds) {
	case 0:
		b.Kind = BindingNone
	case 1:
		b.Kind = kinds[0]
	default:
		return fmt.Errorf("绑定规则形态不唯一：同时出现 %s 与 %s", kinds[0], kinds[1])
	}
	return nil
}

// Condition 描述 show_if 可见性条件，四种形态互斥：
// 相等判断、存在性判断、数组元素匹配、数组非空。
// 未识别出任何形态时按「可见」处理。
type Condition struct {
	Field    string         `json:"field"`
	Equals   any            `json:"equals,omitempty"`
	Exists   *bool          `json:"exists,omitempty"`
	Contains map[string]any `json:"contains,omitempty"`
	HasItems *bool          `json:"has_items,omitempty"`
}

// Load 从 JSON 字节解码 Schema。只负责结构解码，业务校验见 Validate。
func Load(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("解析 schema JSON 失败: %w", err)
	}
	return &s, nil
}
