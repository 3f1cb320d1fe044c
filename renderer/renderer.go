package renderer

import "github.com/ByLCY/vellum/layout"

// Renderer 是输出后端的完整契约：布局引擎通过 layout.Canvas 发出
// 绘图指令，渲染结束后由 Bytes 取回最终文档（例如 PDF 字节切片）。
type Renderer interface {
	layout.Canvas
	Bytes() ([]byte, error)
}
