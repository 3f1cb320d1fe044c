package layout

// Canvas 是布局引擎依赖的全部绘图能力。坐标与尺寸统一为毫米、
// 原点在页面左上角；字号为 pt，由后端在边界处换算。
// 任何满足该接口的后端（PDF、HTML 字符串、位图）都可以替换，
// 不需要改动布局逻辑。

import "context"

// pt 与 mm 的换算常数。
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
)

// Align 是文本水平对齐方式。
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Canvas 由输出后端实现。Image 是接口上唯一会挂起/失败的操作：
// 取回并解码附件字节属于异步 I/O，因而携带 context 且可返回错误。
type Canvas interface {
	// 页面几何
	PageWidth() float64
	PageHeight() float64
	// AddPage 结束当前页并开启新页。
	AddPage()

	// 文本状态与绘制
	SetFont(sizePt float64, bold bool)
	SetTextColor(r, g, b uint8)
	SetDrawColor(r, g, b uint8)
	// Text 在 (x, y) 处绘制单行文本，y 为行顶。
	Text(x, y float64, text string)
	// MultiText 将文本按宽度折行绘制，返回占用的行数。
	MultiText(x, y, width float64, text string, align Align) int
	// CountLines 只测量不绘制：报告文本在给定宽度下的折行行数。
	CountLines(width float64, text string) int

	// 图形
	Line(x1, y1, x2, y2 float64)
	Rect(x, y, w, h float64)
	FillRect(x, y, w, h float64)

	// Image 取回 src 指向的图片并缩放绘制到 (x, y, w, h)。
	// 取回或解码失败时返回错误，由引擎降级为占位符。
	Image(ctx context.Context, src string, x, y, w, h float64) error
}

// LineHeight 返回 sizePt 字号对应的行高（mm），行距系数 1.4。
func LineHeight(sizePt float64) float64 {
	return sizePt * PtToMm * 1.4
}
