package schema

// 结构校验：在保存与渲染前拦截坏 schema。校验不短路，
// 一次性收集全部违规项，便于作者逐条修复。

import (
	"fmt"
	"strings"
)

// ValidationError 聚合一份 schema 的全部校验失败项。
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema 校验失败（%d 项）: %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

var pageSizes = map[string]bool{"A4": true, "A3": true, "Letter": true}

var orientations = map[string]bool{"portrait": true, "landscape": true}

// Validate 检查 Schema 的结构与枚举值合法性，不修改输入。
// 返回 nil 表示通过；否则返回 *ValidationError，列出每一处违规。
func Validate(s *Schema) error {
	var problems []string
	if s == nil {
		return &ValidationError{Problems: []string{"schema 为空"}}
	}

	if s.Page == nil {
		problems = append(problems, "缺少 page 配置")
	} else {
		if s.Page.Size != "" && !pageSizes[s.Page.Size] {
			problems = append(problems, fmt.Sprintf("page.size 不支持：%q（可选 A4/A3/Letter）", s.Page.Size))
		}
		if s.Page.Orientation != "" && !orientations[s.Page.Orientation] {
			problems = append(problems, fmt.Sprintf("page.orientation 不支持：%q（可选 portrait/landscape）", s.Page.Orientation))
		}
	}

	if s.Sections == nil {
		problems = append(problems, "缺少 sections 列表")
	}

	seen := map[string]int{}
	for i, sec := range s.Sections {
		if sec.ID == "" {
			problems = append(problems, fmt.Sprintf("sections[%d]: 缺少 section_id", i))
		} else if prev, ok := seen[sec.ID]; ok {
			problems = append(problems, fmt.Sprintf("sections[%d]: section_id %q 与 sections[%d] 重复", i, sec.ID, prev))
		} else {
			seen[sec.ID] = i
		}
		if sec.BlockType == "" {
			problems = append(problems, fmt.Sprintf("sections[%d]: 缺少 block_type", i))
		} else if !KnownBlockTypes[sec.BlockType] {
			problems = append(problems, fmt.Sprintf("sections[%d]: block_type %q 不在支持范围内", i, sec.BlockType))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
