package layout

// 分页与布局引擎：顺序消费渲染树的区块，为每种区块类型计算具体坐标，
// 在剩余纵向空间不足时插入分页，并向注入的 Canvas 发出绘图指令。
// 核心不变式：任何不可拆分单元（字段行、检查项行、签名、照片行）
// 绝不跨页绘制，宁可在上一页留白。

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ByLCY/vellum/report"
	"github.com/ByLCY/vellum/schema"
)

// 布局常数（mm 为主，字号为 pt）。
const (
	blockSpacing   = 6.0
	titleFontSize  = 11.0
	titleHeight    = 8.0
	labelFontSize  = 7.0
	valueFontSize  = 9.0
	headerFontSize = 16.0

	fieldRowHeight = 12.0 // 双栏明细的固定行高
	labelOffset    = 4.0  // 标签与值的纵向间距

	checkboxSize       = 4.0
	checklistRowHeight = 7.0
	remarksLineHeight  = 5.0

	tableHeaderHeight = 9.0 // 表头行固定高度，与内容无关
	tableRowHeight    = 8.0
	cellPadding       = 1.5

	cardHeight = 22.0
	cardGutter = 4.0

	signatureBoxWidth  = 60.0
	signatureBoxHeight = 25.0
	signatureLineGap   = 5.0
	notSignedHeight    = 10.0 // 空签名占位行的固定高度

	photoGutter     = 4.0
	photoAspect     = 0.75 // 固定 4:3 呈现比例：格高 = 格宽 × 0.75
	captionHeight   = 4.5
	timestampHeight = 4.0
)

// Engine 按渲染树驱动 Canvas。一次 Render 独占一个 Canvas 实例，
// 不得并发复用；引擎自身无跨调用共享状态。
type Engine struct {
	log      *zap.Logger
	decimals int
}

// NewEngine 构造布局引擎。log 为 nil 时静默；数值默认保留两位小数。
func NewEngine(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{log: log, decimals: 2}
}

// cursor 是显式穿线的游标值：当前页号与纵向写入位置。
// 每次 Render 构造新游标，不存在包级共享状态。
type cursor struct {
	page int
	y    float64
}

// geometry 记录一次渲染的不变页面几何。
type geometry struct {
	left   float64 // 内容区左缘
	top    float64 // 每页内容起始 Y
	bottom float64 // 内容区底线，超过即需要分页
	width  float64 // 有效内容宽度
}

// Render 顺序渲染全部区块，绝不重排。schema 校验失败应在上游拦截；
// 渲染树中出现枚举外的区块类型说明构建器契约被破坏，直接报错中止。
func (e *Engine) Render(ctx context.Context, tree *report.Tree, c Canvas) error {
	if tree == nil {
		return fmt.Errorf("渲染树为空")
	}
	if c == nil {
		return fmt.Errorf("缺少 Canvas 后端")
	}

	m := tree.Page.Margins
	geom := geometry{
		left:   m.Left,
		top:    m.Top,
		bottom: c.PageHeight() - m.Bottom,
		width:  c.PageWidth() - m.Left - m.Right,
	}
	cur := cursor{page: 0, y: geom.top}

	for _, blk := range tree.Blocks {
		var err error
		switch blk.Type {
		case schema.BlockHeader:
			cur = e.renderHeader(c, geom, cur, tree.Metadata, blk)
		case schema.BlockDetailEntry:
			cur = e.renderDetailEntry(c, geom, cur, blk)
		case schema.BlockTextSection:
			cur = e.renderTextSection(c, geom, cur, blk)
		case schema.BlockChecklist:
			cur = e.renderChecklist(c, geom, cur, blk)
		case schema.BlockTable:
			cur = e.renderTable(c, geom, cur, blk)
		case schema.BlockMetricsCards:
			cur = e.renderMetricsCards(c, geom, cur, blk)
		case schema.BlockSignatureBox:
			cur, err = e.renderSignatureBox(ctx, c, geom, cur, blk)
		case schema.BlockPhotoGrid:
			cur, err = e.renderPhotoGrid(ctx, c, geom, cur, blk)
		default:
			return fmt.Errorf("渲染树包含未知区块类型 %q（构建器契约被破坏）", blk.Type)
		}
		if err != nil {
			return err
		}
		cur.y += blockSpacing
	}
	return nil
}

// ensureSpace 在写入任何不可拆分单元前调用：剩余空间不足 need 时换页，
// 游标回到新页内容区顶部。
func (e *Engine) ensureSpace(c Canvas, geom geometry, cur cursor, need float64) cursor {
	if cur.y+need <= geom.bottom {
		return cur
	}
	c.AddPage()
	cur.page++
	cur.y = geom.top
	return cur
}

// blockTitle 绘制区块标题（options.title，可缺省），返回更新后的游标。
func (e *Engine) blockTitle(c Canvas, geom geometry, cur cursor, blk report.Block) cursor {
	title := optString(blk.Options, "title", "")
	if title == "" {
		return cur
	}
	cur = e.ensureSpace(c, geom, cur, titleHeight)
	c.SetFont(titleFontSize, true)
	c.SetTextColor(30, 30, 30)
	c.Text(geom.left, cur.y, title)
	c.SetDrawColor(180, 180, 180)
	c.Line(geom.left, cur.y+titleHeight-2, geom.left+geom.width, cur.y+titleHeight-2)
	cur.y += titleHeight
	return cur
}

// --- options 读取辅助 ---

func optString(opts map[string]any, key, def string) string {
	if v, ok := opts[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

func optInt(opts map[string]any, key string, def int) int {
	if v, ok := opts[key]; ok {
		switch n := v.(type) {
		case float64:
			if n > 0 {
				return int(n)
			}
		case int:
			if n > 0 {
				return n
			}
		}
	}
	return def
}

func optBool(opts map[string]any, key string, def bool) bool {
	if v, ok := opts[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}
