package layout

import (
	"context"
	"fmt"
	"testing"

	"github.com/ByLCY/vellum/report"
	"github.com/ByLCY/vellum/schema"
)

// stubCanvas 记录全部绘图指令，供测试断言坐标与分页行为。
// CountLines/MultiText 返回可配置的固定行数，避免依赖真实字体度量。
type stubCanvas struct {
	w, h  float64
	page  int
	ops   []op
	lines int
	fail  map[string]bool
}

type op struct {
	kind string
	page int
	x, y float64
	w, h float64
	text string
}

func newStubCanvas() *stubCanvas {
	return &stubCanvas{w: 210, h: 297, lines: 1, fail: map[string]bool{}}
}

func (s *stubCanvas) PageWidth() float64            { return s.w }
func (s *stubCanvas) PageHeight() float64           { return s.h }
func (s *stubCanvas) AddPage()                      { s.page++ }
func (s *stubCanvas) SetFont(float64, bool)         {}
func (s *stubCanvas) SetTextColor(_, _, _ uint8)    {}
func (s *stubCanvas) SetDrawColor(_, _, _ uint8)    {}
func (s *stubCanvas) Text(x, y float64, text string) {
	s.ops = append(s.ops, op{kind: "text", page: s.page, x: x, y: y, text: text})
}
func (s *stubCanvas) MultiText(x, y, width float64, text string, _ Align) int {
	s.ops = append(s.ops, op{kind: "multitext", page: s.page, x: x, y: y, w: width, text: text})
	return s.lines
}
func (s *stubCanvas) CountLines(width float64, text string) int { return s.lines }
func (s *stubCanvas) Line(x1, y1, x2, y2 float64) {
	s.ops = append(s.ops, op{kind: "line", page: s.page, x: x1, y: y1, w: x2 - x1, h: y2 - y1})
}
func (s *stubCanvas) Rect(x, y, w, h float64) {
	s.ops = append(s.ops, op{kind: "rect", page: s.page, x: x, y: y, w: w, h: h})
}
func (s *stubCanvas) FillRect(x, y, w, h float64) {
	s.ops = append(s.ops, op{kind: "fillrect", page: s.page, x: x, y: y, w: w, h: h})
}
func (s *stubCanvas) Image(_ context.Context, src string, x, y, w, h float64) error {
	if s.fail[src] {
		return fmt.Errorf("stub: image unavailable")
	}
	s.ops = append(s.ops, op{kind: "image", page: s.page, x: x, y: y, w: w, h: h, text: src})
	return nil
}

func (s *stubCanvas) find(kind string) []op {
	var out []op
	for _, o := range s.ops {
		if o.kind == kind {
			out = append(out, o)
		}
	}
	return out
}

func (s *stubCanvas) findText(text string) *op {
	for i, o := range s.ops {
		if o.kind == "text" && o.text == text {
			return &s.ops[i]
		}
	}
	return nil
}

func a4Tree(blocks ...report.Block) *report.Tree {
	return &report.Tree{
		Page: report.PageSetup{
			Size: "A4", Orientation: "portrait", Width: 210, Height: 297,
			Margins: schema.Margins{Top: 20, Right: 20, Bottom: 20, Left: 20},
		},
		Blocks: blocks,
	}
}

func TestRenderRejectsNilInputs(t *testing.T) {
	e := NewEngine(nil)
	if err := e.Render(context.Background(), nil, newStubCanvas()); err == nil {
		t.Fatalf("nil 渲染树必须报错")
	}
	if err := e.Render(context.Background(), a4Tree(), nil); err == nil {
		t.Fatalf("nil Canvas 必须报错")
	}
}

func TestRenderRejectsUnknownBlockType(t *testing.T) {
	e := NewEngine(nil)
	tree := a4Tree(report.Block{ID: "x", Type: "hologram"})
	if err := e.Render(context.Background(), tree, newStubCanvas()); err == nil {
		t.Fatalf("未知区块类型必须报错而不是跳过")
	}
}

func TestEmptySignatureBoxFixedHeight(t *testing.T) {
	e := NewEngine(nil)
	c := newStubCanvas()
	tree := a4Tree(
		report.Block{ID: "sig", Type: schema.BlockSignatureBox},
		report.Block{ID: "txt", Type: schema.BlockTextSection, Text: "after"},
	)
	if err := e.Render(context.Background(), tree, c); err != nil {
		t.Fatalf("Render: %v", err)
	}

	placeholderOp := c.findText("Not signed yet")
	if placeholderOp == nil {
		t.Fatalf("缺少未签名占位文本")
	}
	if placeholderOp.y != 20 {
		t.Errorf("占位文本应在内容区顶部: y=%g", placeholderOp.y)
	}
	// 占位行固定高度 + 区块间距后才是下一个区块
	next := c.find("multitext")
	if len(next) != 1 {
		t.Fatalf("期望后续文本区块: %v", next)
	}
	wantY := 20.0 + notSignedHeight + blockSpacing
	if next[0].y != wantY {
		t.Errorf("后续区块起点 = %g, want %g", next[0].y, wantY)
	}
}

func TestTableEqualColumnWidths(t *testing.T) {
	e := NewEngine(nil)
	c := newStubCanvas()
	fields := make([]report.Field, 5)
	for i := range fields {
		fields[i] = report.Field{Key: fmt.Sprintf("c%d", i), Label: fmt.Sprintf("C%d", i), Value: i}
	}
	tree := a4Tree(report.Block{ID: "t", Type: schema.BlockTable, Fields: fields})
	if err := e.Render(context.Background(), tree, c); err != nil {
		t.Fatalf("Render: %v", err)
	}

	rects := c.find("rect")
	// 表头 5 格 + 数据行 5 格
	if len(rects) != 10 {
		t.Fatalf("期望 10 个单元格边框, got %d", len(rects))
	}
	// 内容宽 170 ÷ 5 列 = 34
	for i := 0; i < 5; i++ {
		head := rects[i]
		if head.w != 34 {
			t.Errorf("表头列 %d 宽度 = %g, want 34", i, head.w)
		}
		if head.x != 20+float64(i)*34 {
			t.Errorf("表头列 %d x = %g", i, head.x)
		}
		if head.h != tableHeaderHeight {
			t.Errorf("表头高度 = %g, want %g", head.h, tableHeaderHeight)
		}
	}
	for i := 5; i < 10; i++ {
		if rects[i].h != tableRowHeight {
			t.Errorf("数据行高度 = %g, want %g", rects[i].h, tableRowHeight)
		}
		if rects[i].y != 20+tableHeaderHeight {
			t.Errorf("数据行 y = %g", rects[i].y)
		}
	}
	// 表头底纹铺满整行
	fills := c.find("fillrect")
	if len(fills) != 1 || fills[0].w != 170 {
		t.Fatalf("表头底纹不符: %v", fills)
	}
}

func TestSignaturePlaceholderKeepsCursorAdvance(t *testing.T) {
	e := NewEngine(nil)
	c := newStubCanvas()
	c.fail["https://cdn/broken.png"] = true
	tree := a4Tree(report.Block{
		ID: "sig", Type: schema.BlockSignatureBox,
		Signatures: []report.Signature{
			{URL: "https://cdn/broken.png", Name: "A", Date: "2026-03-14T17:00:00Z"},
			{URL: "https://cdn/ok.png", Name: "B", Date: "2026-03-14T18:00:00Z"},
		},
	})
	if err := e.Render(context.Background(), tree, c); err != nil {
		t.Fatalf("嵌入失败应降级而不是中止: %v", err)
	}

	// 失败路径绘制占位文本
	ph := c.find("multitext")
	if len(ph) != 1 || ph[0].text != "Failed to load" {
		t.Fatalf("缺少失败占位符: %v", ph)
	}

	// 两个签名框（60×25）的纵向间隔必须与成功路径一致。
	// 失败的那个会叠绘一个同尺寸的占位边框，按 y 去重。
	seen := map[float64]bool{}
	var ys []float64
	for _, o := range c.find("rect") {
		if o.w == signatureBoxWidth && o.h == signatureBoxHeight && !seen[o.y] {
			seen[o.y] = true
			ys = append(ys, o.y)
		}
	}
	if len(ys) != 2 {
		t.Fatalf("期望 2 个签名框位置, got %v", ys)
	}
	unit := signatureLineGap + signatureBoxHeight + signatureLineGap + 2
	if got := ys[1] - ys[0]; got != unit {
		t.Errorf("占位路径改变了游标推进量: got %g, want %g", got, unit)
	}
}

func TestChecklistCheckedOnlyDropsRows(t *testing.T) {
	e := NewEngine(nil)
	c := newStubCanvas()
	tree := a4Tree(report.Block{
		ID: "c", Type: schema.BlockChecklist,
		Options: map[string]any{"checked_only": true},
		Checklist: []report.ChecklistItem{
			{Task: "done item", Status: true},
			{Task: "pending item", Status: false},
			{Task: "also done", Status: "yes"},
		},
	})
	if err := e.Render(context.Background(), tree, c); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if c.findText("pending item") != nil {
		t.Errorf("checked_only 下未勾选行应被剔除")
	}
	if c.findText("done item") == nil || c.findText("also done") == nil {
		t.Errorf("已勾选行应保留")
	}
	// 已勾选项用实心方框
	if fills := c.find("fillrect"); len(fills) != 2 {
		t.Errorf("期望 2 个实心方框, got %d", len(fills))
	}
	if rects := c.find("rect"); len(rects) != 0 {
		t.Errorf("剔除后不应有空心方框, got %d", len(rects))
	}
}

func TestChecklistRowNeverSplitsAcrossPages(t *testing.T) {
	e := NewEngine(nil)
	c := newStubCanvas()
	items := make([]report.ChecklistItem, 40)
	for i := range items {
		items[i] = report.ChecklistItem{Task: fmt.Sprintf("task %02d", i)}
	}
	tree := a4Tree(report.Block{ID: "c", Type: schema.BlockChecklist, Checklist: items})
	if err := e.Render(context.Background(), tree, c); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if c.page == 0 {
		t.Fatalf("40 行 × 7mm 必然超过单页")
	}
	// 底线 277：每行必须完整落在某一页的内容区内
	for _, o := range c.ops {
		if o.kind != "text" {
			continue
		}
		if o.y < 20 || o.y+checklistRowHeight > 277 {
			t.Errorf("行 %q 越过内容区边界: page=%d y=%g", o.text, o.page, o.y)
		}
	}
	// 换页后的第一行回到内容区顶部
	for _, o := range c.find("text") {
		if o.page == 1 {
			if o.y != 20 {
				t.Errorf("新页首行应在 y=20: got %g", o.y)
			}
			break
		}
	}
}

func TestPhotoGridRowsShareBaseline(t *testing.T) {
	e := NewEngine(nil)
	c := newStubCanvas()
	tree := a4Tree(report.Block{
		ID: "p", Type: schema.BlockPhotoGrid,
		Photos: []report.Photo{
			{URL: "u1"}, {URL: "u2"}, {URL: "u3"},
		},
	})
	if err := e.Render(context.Background(), tree, c); err != nil {
		t.Fatalf("Render: %v", err)
	}
	images := c.find("image")
	if len(images) != 3 {
		t.Fatalf("期望 3 张照片, got %d", len(images))
	}
	// 默认 2 列：格宽 = (170-4)/2 = 83，格高 = 83×0.75
	if images[0].w != 83 {
		t.Errorf("格宽 = %g, want 83", images[0].w)
	}
	if images[0].h != 83*photoAspect {
		t.Errorf("格高 = %g, want %g", images[0].h, 83*photoAspect)
	}
	if images[0].y != images[1].y {
		t.Errorf("同一行照片必须共享基线: %g vs %g", images[0].y, images[1].y)
	}
	if images[2].y <= images[0].y {
		t.Errorf("第二行应在第一行之下")
	}
}

func TestMetricsCardsGrid(t *testing.T) {
	e := NewEngine(nil)
	c := newStubCanvas()
	metrics := []report.Metric{
		{Label: "Flow", Value: 42.5, Unit: "m3/h"},
		{Label: "Pressure", Value: 12.0, Unit: "bar"},
		{Label: "Temp", Value: 65.0},
		{Label: "Runtime", Value: 8.0, Unit: "h"},
	}
	tree := a4Tree(report.Block{ID: "m", Type: schema.BlockMetricsCards, Metrics: metrics})
	if err := e.Render(context.Background(), tree, c); err != nil {
		t.Fatalf("Render: %v", err)
	}
	cards := c.find("rect")
	if len(cards) != 4 {
		t.Fatalf("期望 4 张卡片, got %d", len(cards))
	}
	// 默认 3 列：卡宽 = (170-2×4)/3 = 54
	if cards[0].w != 54 {
		t.Errorf("卡宽 = %g, want 54", cards[0].w)
	}
	if cards[0].y != cards[2].y {
		t.Errorf("首行三张卡应同一基线")
	}
	if cards[3].y != cards[0].y+cardHeight+2 {
		t.Errorf("第二行 y = %g, want %g", cards[3].y, cards[0].y+cardHeight+2)
	}
	// 带单位的值文本
	if got := c.find("multitext"); got[0].text != "42.50 m3/h" {
		t.Errorf("卡片值 = %q", got[0].text)
	}
}

func TestDetailTwoColumnLayout(t *testing.T) {
	e := NewEngine(nil)
	c := newStubCanvas()
	tree := a4Tree(report.Block{
		ID: "d", Type: schema.BlockDetailEntry,
		Fields: []report.Field{
			{Key: "a", Label: "A", Value: "1"},
			{Key: "b", Label: "B", Value: "2"},
			{Key: "c", Label: "C", Value: "3"},
		},
	})
	if err := e.Render(context.Background(), tree, c); err != nil {
		t.Fatalf("Render: %v", err)
	}
	labels := map[string]*op{}
	for _, name := range []string{"A", "B", "C"} {
		o := c.findText(name)
		if o == nil {
			t.Fatalf("缺少字段标签 %s", name)
		}
		labels[name] = o
	}
	// 偶数下标在左栏，奇数在右栏；第三个换行
	if labels["A"].x != 20 {
		t.Errorf("A 应在左栏: x=%g", labels["A"].x)
	}
	colWidth := (170.0 - cardGutter) / 2
	if labels["B"].x != 20+colWidth+cardGutter {
		t.Errorf("B 应在右栏: x=%g", labels["B"].x)
	}
	if labels["A"].y != labels["B"].y {
		t.Errorf("同行字段应同基线")
	}
	if labels["C"].y != labels["A"].y+fieldRowHeight {
		t.Errorf("C 应在下一行: y=%g", labels["C"].y)
	}
}

func TestBlockTitleDrawnWhenConfigured(t *testing.T) {
	e := NewEngine(nil)
	c := newStubCanvas()
	tree := a4Tree(report.Block{
		ID: "t", Type: schema.BlockTextSection, Text: "body",
		Options: map[string]any{"title": "Observations"},
	})
	if err := e.Render(context.Background(), tree, c); err != nil {
		t.Fatalf("Render: %v", err)
	}
	title := c.findText("Observations")
	if title == nil {
		t.Fatalf("应绘制区块标题")
	}
	body := c.find("multitext")
	if len(body) != 1 || body[0].y != title.y+titleHeight {
		t.Errorf("正文应在标题之下: %v", body)
	}
}

func TestHeaderFallbackTitle(t *testing.T) {
	e := NewEngine(nil)
	c := newStubCanvas()
	tree := a4Tree(report.Block{ID: "h", Type: schema.BlockHeader})
	if err := e.Render(context.Background(), tree, c); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if c.findText("Work Entry Report") == nil {
		t.Fatalf("无合同名时应使用默认标题")
	}
}
