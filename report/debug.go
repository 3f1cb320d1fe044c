package report

import (
	"encoding/json"
	"os"
)

// WriteDebugJSON 将渲染树输出为 JSON，便于调试或可视化。
func WriteDebugJSON(tree *Tree, path string) error {
	if tree == nil {
		return nil
	}
	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
