package report

// 该文件定义渲染树（中间表示）。渲染树是纯值类型：不回引 schema 或记录，
// 可安全序列化，同一输入多次渲染结果稳定。

import (
	"time"

	"github.com/ByLCY/vellum/schema"
)

// Tree 是构建器的输出、布局引擎的唯一输入。
type Tree struct {
	Page     PageSetup `json:"page"`
	Metadata Metadata  `json:"metadata"`
	Blocks   []Block   `json:"blocks"`
}

// PageSetup 是解析完默认值后的页面配置，宽高为毫米。
type PageSetup struct {
	Size        string         `json:"size"`
	Orientation string         `json:"orientation"`
	Width       float64        `json:"width"`
	Height      float64        `json:"height"`
	Margins     schema.Margins `json:"margins"`
}

// Metadata 在区块迭代之外一次性取好，GeneratedAt 是整棵树中
// 唯一不可复现的字段。
type Metadata struct {
	GeneratedAt time.Time `json:"generatedAt"`
	RecordID    string    `json:"recordId,omitempty"`
	EntryDate   string    `json:"entryDate,omitempty"`
	Shift       string    `json:"shift,omitempty"`
	Status      string    `json:"status,omitempty"`
	Creator     string    `json:"creator,omitempty"`
	Contract    string    `json:"contract,omitempty"`
	Template    string    `json:"template,omitempty"`
}

// Block 对应一个可见的 schema 区块，顺序与 schema 一致（隐藏项被整体省略）。
// 内容按 Type 恰好填充一个变体字段，其余保持零值。
type Block struct {
	ID      string           `json:"blockId"`
	Type    schema.BlockType `json:"type"`
	Layout  string           `json:"layout,omitempty"`
	Options map[string]any   `json:"options,omitempty"`

	Fields     []Field         `json:"fields,omitempty"`
	Text       string          `json:"text,omitempty"`
	Checklist  []ChecklistItem `json:"checklist,omitempty"`
	Metrics    []Metric        `json:"metrics,omitempty"`
	Photos     []Photo         `json:"photos,omitempty"`
	Signatures []Signature     `json:"signatures,omitempty"`
}

// Field 是一条「标签 + 值」的展示字段。
type Field struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value any    `json:"value"`
}

// ChecklistItem 已归一化：无论源键名是 task/label/item 还是
// status/value/checked，这里都落到统一字段。
type ChecklistItem struct {
	Task    string `json:"task"`
	Status  any    `json:"status"`
	Remarks string `json:"remarks,omitempty"`
}

// Metric 是 metrics_cards 的一张卡片。
type Metric struct {
	Label string `json:"label"`
	Unit  string `json:"unit,omitempty"`
	Value any    `json:"value"`
}

// Photo 是照片网格的一格。
type Photo struct {
	URL       string `json:"url"`
	Caption   string `json:"caption,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Location  string `json:"location,omitempty"`
	FieldID   string `json:"fieldId,omitempty"`
}

// Signature 是一个签名子块。
type Signature struct {
	URL     string `json:"url"`
	Name    string `json:"name,omitempty"`
	Role    string `json:"role,omitempty"`
	Date    string `json:"date,omitempty"`
	FieldID string `json:"fieldId,omitempty"`
}
