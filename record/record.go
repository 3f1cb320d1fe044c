package record

// 该文件定义待渲染的业务工单记录。记录由外部持久化层取回，
// 渲染核心只约定其形状：扁平点号键的数据映射 + 附件列表，均为只读输入。

import (
	"encoding/json"
	"fmt"
)

// 附件 file_type 的取值。
const (
	FilePhoto     = "photo"
	FileSignature = "signature"
	FileDocument  = "document"
)

// Record 是一条工单记录。Data 的键为 "section_1.entry_date" 这样的
// 点号路径字符串，值为标量或数组，绝不嵌套。
type Record struct {
	ID          string         `json:"id"`
	EntryDate   string         `json:"entry_date,omitempty"`
	Shift       string         `json:"shift,omitempty"`
	Status      string         `json:"status,omitempty"`
	CreatorName string         `json:"creator_name,omitempty"`
	Contract    *Summary       `json:"contract,omitempty"`
	Template    *Summary       `json:"template,omitempty"`
	Data        map[string]any `json:"data"`
	Attachments []Attachment   `json:"attachments,omitempty"`
}

// Summary 是合同/模板等关联对象的轻量摘要。
type Summary struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// Attachment 描述一个上传附件，顺序与上传顺序一致。
type Attachment struct {
	ID         string         `json:"id"`
	FileType   string         `json:"file_type"`
	StorageURL string         `json:"storage_url"`
	FieldID    string         `json:"field_id,omitempty"`
	Caption    string         `json:"caption,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  string         `json:"created_at,omitempty"`
}

// Load 从 JSON 字节解码 Record。
func Load(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("解析 record JSON 失败: %w", err)
	}
	return &r, nil
}
