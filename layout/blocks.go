package layout

// 各区块类型的具体排版算法。所有函数接收并返回游标值，
// 在写入每个不可拆分单元前先做 ensureSpace。

import (
	"context"

	"go.uber.org/zap"

	"github.com/ByLCY/vellum/report"
)

// renderHeader：文档页头。大号标题 + 概要字段行 + 分隔线。
func (e *Engine) renderHeader(c Canvas, geom geometry, cur cursor, meta report.Metadata, blk report.Block) cursor {
	title := optString(blk.Options, "title", meta.Contract)
	if title == "" {
		title = "Work Entry Report"
	}

	rows := len(blk.Fields)
	need := LineHeight(headerFontSize) + float64(rows)*LineHeight(valueFontSize) + 4
	cur = e.ensureSpace(c, geom, cur, need)

	c.SetFont(headerFontSize, true)
	c.SetTextColor(30, 30, 30)
	c.Text(geom.left, cur.y, title)
	cur.y += LineHeight(headerFontSize) + 2

	c.SetFont(valueFontSize, false)
	for _, f := range blk.Fields {
		c.SetTextColor(110, 110, 110)
		c.Text(geom.left, cur.y, f.Label+":")
		c.SetTextColor(30, 30, 30)
		c.Text(geom.left+35, cur.y, FormatValue(f.Value, e.decimals))
		cur.y += LineHeight(valueFontSize)
	}

	c.SetDrawColor(60, 60, 60)
	c.Line(geom.left, cur.y+1, geom.left+geom.width, cur.y+1)
	cur.y += 3
	return cur
}

// renderDetailEntry：明细字段。two_column 时偶数下标放左栏、奇数放右栏，
// 行高固定；single_column 时行高按折行行数计算，避免长值压住下一行。
func (e *Engine) renderDetailEntry(c Canvas, geom geometry, cur cursor, blk report.Block) cursor {
	cur = e.blockTitle(c, geom, cur, blk)
	if blk.Layout == "single_column" {
		return e.detailSingleColumn(c, geom, cur, blk)
	}
	return e.detailTwoColumn(c, geom, cur, blk)
}

func (e *Engine) detailTwoColumn(c Canvas, geom geometry, cur cursor, blk report.Block) cursor {
	colWidth := (geom.width - cardGutter) / 2
	for i := 0; i < len(blk.Fields); i += 2 {
		cur = e.ensureSpace(c, geom, cur, fieldRowHeight)
		e.drawField(c, geom.left, cur.y, colWidth, blk.Fields[i])
		if i+1 < len(blk.Fields) {
			e.drawField(c, geom.left+colWidth+cardGutter, cur.y, colWidth, blk.Fields[i+1])
		}
		cur.y += fieldRowHeight
	}
	return cur
}

func (e *Engine) detailSingleColumn(c Canvas, geom geometry, cur cursor, blk report.Block) cursor {
	for _, f := range blk.Fields {
		value := FormatValue(f.Value, e.decimals)
		c.SetFont(valueFontSize, false)
		lines := c.CountLines(geom.width, value)
		rowHeight := labelOffset + float64(lines)*LineHeight(valueFontSize) + 2
		cur = e.ensureSpace(c, geom, cur, rowHeight)

		c.SetFont(labelFontSize, true)
		c.SetTextColor(110, 110, 110)
		c.Text(geom.left, cur.y, f.Label)
		c.SetFont(valueFontSize, false)
		c.SetTextColor(30, 30, 30)
		c.MultiText(geom.left, cur.y+labelOffset, geom.width, value, AlignLeft)
		cur.y += rowHeight
	}
	return cur
}

// drawField 在固定行高内绘制「小号粗体标签 + 折行值」。
func (e *Engine) drawField(c Canvas, x, y, width float64, f report.Field) {
	c.SetFont(labelFontSize, true)
	c.SetTextColor(110, 110, 110)
	c.Text(x, y, f.Label)
	c.SetFont(valueFontSize, false)
	c.SetTextColor(30, 30, 30)
	c.MultiText(x, y+labelOffset, width, FormatValue(f.Value, e.decimals), AlignLeft)
}

// renderTextSection：整段折行文本作为一个单元排版。
func (e *Engine) renderTextSection(c Canvas, geom geometry, cur cursor, blk report.Block) cursor {
	cur = e.blockTitle(c, geom, cur, blk)
	text := blk.Text
	if text == "" {
		text = placeholder
	}
	c.SetFont(valueFontSize, false)
	lines := c.CountLines(geom.width, text)
	height := float64(lines) * LineHeight(valueFontSize)
	cur = e.ensureSpace(c, geom, cur, height)
	c.SetTextColor(30, 30, 30)
	c.MultiText(geom.left, cur.y, geom.width, text, AlignLeft)
	cur.y += height
	return cur
}

// renderChecklist：每项一行，方框按真值实心/空心；checked_only 选项
// 直接剔除未勾选行（不是只在视觉上隐藏）。
func (e *Engine) renderChecklist(c Canvas, geom geometry, cur cursor, blk report.Block) cursor {
	cur = e.blockTitle(c, geom, cur, blk)
	checkedOnly := optBool(blk.Options, "checked_only", false)

	for _, item := range blk.Checklist {
		checked := truthy(item.Status)
		if checkedOnly && !checked {
			continue
		}
		rowHeight := checklistRowHeight
		if item.Remarks != "" {
			rowHeight += remarksLineHeight
		}
		cur = e.ensureSpace(c, geom, cur, rowHeight)

		boxY := cur.y + (checklistRowHeight-checkboxSize)/2 - 1
		c.SetDrawColor(60, 60, 60)
		if checked {
			c.FillRect(geom.left, boxY, checkboxSize, checkboxSize)
		} else {
			c.Rect(geom.left, boxY, checkboxSize, checkboxSize)
		}

		c.SetFont(valueFontSize, false)
		c.SetTextColor(30, 30, 30)
		c.Text(geom.left+checkboxSize+3, cur.y, item.Task)
		if item.Remarks != "" {
			c.SetFont(labelFontSize, false)
			c.SetTextColor(110, 110, 110)
			c.Text(geom.left+checkboxSize+3, cur.y+checklistRowHeight-1, item.Remarks)
		}
		cur.y += rowHeight
	}
	return cur
}

// renderTable：等宽列，列宽 = 内容宽 ÷ 列数；表头底纹加粗、高度固定。
// 一个 table 区块恰好渲染传入的一行字段，多行表由多个 table 区块组成。
func (e *Engine) renderTable(c Canvas, geom geometry, cur cursor, blk report.Block) cursor {
	cur = e.blockTitle(c, geom, cur, blk)
	n := len(blk.Fields)
	if n == 0 {
		return cur
	}
	colWidth := geom.width / float64(n)
	cur = e.ensureSpace(c, geom, cur, tableHeaderHeight+tableRowHeight)

	// 表头行
	c.SetDrawColor(200, 200, 200)
	c.FillRect(geom.left, cur.y, geom.width, tableHeaderHeight)
	c.SetFont(labelFontSize, true)
	c.SetTextColor(30, 30, 30)
	for i, f := range blk.Fields {
		x := geom.left + float64(i)*colWidth
		c.Rect(x, cur.y, colWidth, tableHeaderHeight)
		c.Text(x+cellPadding, cur.y+cellPadding+1, f.Label)
	}
	cur.y += tableHeaderHeight

	// 数据行
	c.SetFont(valueFontSize, false)
	for i, f := range blk.Fields {
		x := geom.left + float64(i)*colWidth
		c.Rect(x, cur.y, colWidth, tableRowHeight)
		c.Text(x+cellPadding, cur.y+cellPadding, FormatValue(f.Value, e.decimals))
	}
	cur.y += tableRowHeight
	return cur
}

// renderMetricsCards：固定尺寸卡片按列数排布、换行；游标只在
// 整行完成（或块尾的残行）后前进整行高度。
func (e *Engine) renderMetricsCards(c Canvas, geom geometry, cur cursor, blk report.Block) cursor {
	cur = e.blockTitle(c, geom, cur, blk)
	cols := optInt(blk.Options, "columns", 3)
	cardWidth := (geom.width - float64(cols-1)*cardGutter) / float64(cols)

	for i := 0; i < len(blk.Metrics); i += cols {
		cur = e.ensureSpace(c, geom, cur, cardHeight)
		row := blk.Metrics[i:min(i+cols, len(blk.Metrics))]
		for j, m := range row {
			x := geom.left + float64(j)*(cardWidth+cardGutter)
			c.SetDrawColor(200, 200, 200)
			c.Rect(x, cur.y, cardWidth, cardHeight)

			value := FormatValue(m.Value, optInt(blk.Options, "decimals", e.decimals))
			if m.Unit != "" {
				value += " " + m.Unit
			}
			c.SetFont(14, true)
			c.SetTextColor(30, 30, 30)
			c.MultiText(x+2, cur.y+5, cardWidth-4, value, AlignCenter)
			c.SetFont(labelFontSize, false)
			c.SetTextColor(110, 110, 110)
			c.MultiText(x+2, cur.y+13, cardWidth-4, m.Label, AlignCenter)
		}
		cur.y += cardHeight + 2
	}
	return cur
}

// renderSignatureBox：每个签名一个子块。无签名时绘制占位行并返回——
// 这是终态分支，不是错误。图片嵌入失败降级为红色占位文本，
// 游标推进量与成功路径完全一致。
func (e *Engine) renderSignatureBox(ctx context.Context, c Canvas, geom geometry, cur cursor, blk report.Block) (cursor, error) {
	cur = e.blockTitle(c, geom, cur, blk)

	if len(blk.Signatures) == 0 {
		cur = e.ensureSpace(c, geom, cur, notSignedHeight)
		c.SetFont(valueFontSize, false)
		c.SetTextColor(150, 150, 150)
		c.Text(geom.left, cur.y, "Not signed yet")
		cur.y += notSignedHeight
		return cur, nil
	}

	for _, sig := range blk.Signatures {
		nameHeight := 0.0
		if sig.Name != "" {
			nameHeight = signatureLineGap
		}
		unit := nameHeight + signatureBoxHeight + signatureLineGap + 2
		cur = e.ensureSpace(c, geom, cur, unit)

		if sig.Name != "" {
			label := sig.Name
			if sig.Role != "" {
				label += " (" + sig.Role + ")"
			}
			c.SetFont(labelFontSize, true)
			c.SetTextColor(30, 30, 30)
			c.Text(geom.left, cur.y, label)
			cur.y += nameHeight
		}

		c.SetDrawColor(60, 60, 60)
		c.Rect(geom.left, cur.y, signatureBoxWidth, signatureBoxHeight)
		// 签名图按固定纵横比恰好铺满边框内侧。
		err := c.Image(ctx, sig.URL, geom.left+0.5, cur.y+0.5, signatureBoxWidth-1, signatureBoxHeight-1)
		if err != nil {
			e.log.Warn("签名图片嵌入失败，使用占位符", zap.String("url", sig.URL), zap.Error(err))
			e.drawImagePlaceholder(c, geom.left, cur.y, signatureBoxWidth, signatureBoxHeight)
		}
		cur.y += signatureBoxHeight

		c.SetFont(labelFontSize, false)
		c.SetTextColor(110, 110, 110)
		c.Text(geom.left, cur.y+1, "Signed: "+FormatTimestamp(sig.Date))
		cur.y += signatureLineGap + 2
	}
	return cur, nil
}

// renderPhotoGrid：可配置列数的网格，格高 = 格宽 × 0.75。
// 分页检查按「行」而不是按「张」，避免一行照片被拆到两页。
func (e *Engine) renderPhotoGrid(ctx context.Context, c Canvas, geom geometry, cur cursor, blk report.Block) (cursor, error) {
	cur = e.blockTitle(c, geom, cur, blk)
	cols := optInt(blk.Options, "columns", 2)
	showTimestamp := optBool(blk.Options, "show_timestamp", true)

	cellWidth := (geom.width - float64(cols-1)*photoGutter) / float64(cols)
	imageHeight := cellWidth * photoAspect

	rowHeight := imageHeight + 2
	if hasCaptions(blk.Photos) {
		rowHeight += captionHeight
	}
	if showTimestamp {
		rowHeight += timestampHeight
	}

	for i := 0; i < len(blk.Photos); i += cols {
		cur = e.ensureSpace(c, geom, cur, rowHeight)
		row := blk.Photos[i:min(i+cols, len(blk.Photos))]
		for j, photo := range row {
			x := geom.left + float64(j)*(cellWidth+photoGutter)
			if err := c.Image(ctx, photo.URL, x, cur.y, cellWidth, imageHeight); err != nil {
				e.log.Warn("照片嵌入失败，使用占位符", zap.String("url", photo.URL), zap.Error(err))
				e.drawImagePlaceholder(c, x, cur.y, cellWidth, imageHeight)
			}
			textY := cur.y + imageHeight + 1
			if photo.Caption != "" {
				c.SetFont(labelFontSize, false)
				c.SetTextColor(30, 30, 30)
				c.Text(x, textY, truncate(photo.Caption, int(cellWidth/1.8)))
				textY += captionHeight
			}
			if showTimestamp && photo.Timestamp != "" {
				c.SetFont(labelFontSize, false)
				c.SetTextColor(110, 110, 110)
				c.Text(x, textY, FormatTimestamp(photo.Timestamp))
			}
		}
		cur.y += rowHeight
	}
	return cur, nil
}

// drawImagePlaceholder 绘制红色「Failed to load」占位，占满原定尺寸。
func (e *Engine) drawImagePlaceholder(c Canvas, x, y, w, h float64) {
	c.SetDrawColor(200, 60, 60)
	c.Rect(x, y, w, h)
	c.SetFont(labelFontSize, false)
	c.SetTextColor(200, 60, 60)
	c.MultiText(x+1, y+h/2-2, w-2, "Failed to load", AlignCenter)
	c.SetTextColor(30, 30, 30)
}

func hasCaptions(photos []report.Photo) bool {
	for _, p := range photos {
		if p.Caption != "" {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	if max <= 1 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
