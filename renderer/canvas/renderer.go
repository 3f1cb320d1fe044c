package canvasrenderer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/vellum/layout"
	"github.com/ByLCY/vellum/renderer"
)

const defaultStrokeWidth = 0.2

// Renderer 基于 github.com/tdewolff/canvas 实现 layout.Canvas，
// 逐页累计绘图指令并最终输出 PDF 字节。
// 一次渲染独占一个实例，Bytes 之后不可再绘制。
type Renderer struct {
	pageW   float64
	pageH   float64
	baseDir string
	client  *http.Client
	family  *canvas.FontFamily

	buf    bytes.Buffer
	writer *pdf.PDF
	cvs    *canvas.Canvas
	ctx    *canvas.Context
	done   bool

	fontSize  float64 // pt
	bold      bool
	textColor color.RGBA
	drawColor color.RGBA
}

var _ renderer.Renderer = (*Renderer)(nil)

// Options 配置 PDF 后端。字体可按字节或路径注入，两者都缺省时
// 回落到系统无衬线字体。
type Options struct {
	BaseDir   string // 相对图片路径的解析根目录
	FontBytes []byte
	FontPath  string
	Client    *http.Client // 附件取回客户端，nil 时使用 http.DefaultClient
}

// Meta 写入 PDF 文档信息字典。
type Meta struct {
	Title   string
	Subject string
	Author  string
	Creator string
}

// New 创建 pageW×pageH（mm）的 PDF 画布。
func New(pageW, pageH float64, opts Options) (*Renderer, error) {
	family := canvas.NewFontFamily("vellum")
	switch {
	case len(opts.FontBytes) > 0:
		if err := family.LoadFont(opts.FontBytes, 0, canvas.FontRegular); err != nil {
			return nil, fmt.Errorf("加载注入字体失败: %w", err)
		}
	case opts.FontPath != "":
		if err := family.LoadFontFile(opts.FontPath, canvas.FontRegular); err != nil {
			return nil, fmt.Errorf("加载字体文件 %s 失败: %w", opts.FontPath, err)
		}
	default:
		if err := family.LoadSystemFont("sans-serif", canvas.FontRegular); err != nil {
			return nil, fmt.Errorf("未注入字体且系统字体不可用: %w", err)
		}
	}

	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}

	r := &Renderer{
		pageW:     pageW,
		pageH:     pageH,
		baseDir:   opts.BaseDir,
		client:    client,
		family:    family,
		fontSize:  9,
		textColor: color.RGBA{30, 30, 30, 255},
		drawColor: color.RGBA{0, 0, 0, 255},
	}
	r.writer = pdf.New(&r.buf, pageW, pageH, nil)
	r.newCanvas()
	return r, nil
}

// SetMeta 写入文档信息。需在 Bytes 之前调用。
func (r *Renderer) SetMeta(meta Meta) {
	r.writer.SetInfo(meta.Title, meta.Subject, "", meta.Author, meta.Creator)
}

// newCanvas 开启新的一页画布，坐标系与布局一致：左上角为原点。
func (r *Renderer) newCanvas() {
	r.cvs = canvas.New(r.pageW, r.pageH)
	r.ctx = canvas.NewContext(r.cvs)
	r.ctx.SetCoordSystem(canvas.CartesianIV)
}

func (r *Renderer) PageWidth() float64  { return r.pageW }
func (r *Renderer) PageHeight() float64 { return r.pageH }

// AddPage 把当前页落入 PDF 并开启新页。
func (r *Renderer) AddPage() {
	if r.done {
		return
	}
	r.cvs.RenderTo(r.writer)
	r.writer.NewPage(r.pageW, r.pageH)
	r.newCanvas()
}

// Bytes 落下最后一页并关闭 PDF，返回完整文档字节。
func (r *Renderer) Bytes() ([]byte, error) {
	if !r.done {
		r.cvs.RenderTo(r.writer)
		if err := r.writer.Close(); err != nil {
			return nil, fmt.Errorf("写入 PDF 失败: %w", err)
		}
		r.done = true
	}
	return r.buf.Bytes(), nil
}

func (r *Renderer) SetFont(sizePt float64, bold bool) {
	if sizePt > 0 {
		r.fontSize = sizePt
	}
	r.bold = bold
}

func (r *Renderer) SetTextColor(red, green, blue uint8) {
	r.textColor = color.RGBA{red, green, blue, 255}
}

func (r *Renderer) SetDrawColor(red, green, blue uint8) {
	r.drawColor = color.RGBA{red, green, blue, 255}
}

func (r *Renderer) face() *canvas.FontFace {
	style := canvas.FontRegular
	if r.bold {
		style = canvas.FontBold
	}
	return r.family.Face(r.fontSize, r.textColor, style, canvas.FontNormal)
}

// Text 绘制单行文本，y 为行顶；基线 = 行顶 + 字体上升部。
func (r *Renderer) Text(x, y float64, text string) {
	face := r.face()
	line := canvas.NewTextLine(face, text, canvas.Left)
	r.ctx.DrawText(x, y+face.Metrics().Ascent, line)
}

// MultiText 贪心折行后逐行绘制，返回行数。
func (r *Renderer) MultiText(x, y, width float64, text string, align layout.Align) int {
	face := r.face()
	lines := greedyWrap(text, width, face)
	lineHeight := layout.LineHeight(r.fontSize)

	var textAlign canvas.TextAlign
	var anchorX float64
	switch align {
	case layout.AlignCenter:
		textAlign = canvas.Center
		anchorX = x + width/2
	case layout.AlignRight:
		textAlign = canvas.Right
		anchorX = x + width
	default:
		textAlign = canvas.Left
		anchorX = x
	}

	cursorY := y
	for _, ln := range lines {
		tl := canvas.NewTextLine(face, ln, textAlign)
		r.ctx.DrawText(anchorX, cursorY+face.Metrics().Ascent, tl)
		cursorY += lineHeight
	}
	return len(lines)
}

// CountLines 只测量不绘制，与 MultiText 共用同一套折行。
func (r *Renderer) CountLines(width float64, text string) int {
	return len(greedyWrap(text, width, r.face()))
}

func (r *Renderer) Line(x1, y1, x2, y2 float64) {
	r.ctx.SetStrokeColor(r.drawColor)
	r.ctx.SetStrokeWidth(defaultStrokeWidth)
	p := &canvas.Path{}
	p.MoveTo(0, 0)
	p.LineTo(x2-x1, y2-y1)
	r.ctx.DrawPath(x1, y1, p)
}

func (r *Renderer) Rect(x, y, w, h float64) {
	r.ctx.SetFillColor(color.RGBA{0, 0, 0, 0})
	r.ctx.SetStrokeColor(r.drawColor)
	r.ctx.SetStrokeWidth(defaultStrokeWidth)
	r.ctx.DrawPath(x, y, canvas.Rectangle(w, h))
}

func (r *Renderer) FillRect(x, y, w, h float64) {
	r.ctx.SetFillColor(r.drawColor)
	r.ctx.SetStrokeColor(color.RGBA{0, 0, 0, 0})
	r.ctx.DrawPath(x, y, canvas.Rectangle(w, h))
}

// Image 取回并解码图片，居中裁剪到目标纵横比后铺满 (x, y, w, h)。
// 取回与解码失败都返回错误，由布局引擎降级为占位符。
func (r *Renderer) Image(ctx context.Context, src string, x, y, w, h float64) error {
	if src == "" {
		return fmt.Errorf("图片地址为空")
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("图片目标尺寸非法：%v×%v", w, h)
	}
	data, err := r.fetch(ctx, src)
	if err != nil {
		return err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("解码图片 %s 失败: %w", src, err)
	}

	img = centerCrop(img, w/h)
	dpmm := float64(img.Bounds().Dx()) / w
	if dpmm <= 0 {
		dpmm = 1
	}
	r.ctx.DrawImage(x, y, img, canvas.DPMM(dpmm))
	return nil
}

// fetch 支持 http(s) 地址与 baseDir 相对路径两种来源。
func (r *Renderer) fetch(ctx context.Context, src string) ([]byte, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, err
		}
		resp, err := r.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("取回图片 %s 失败: %w", src, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("取回图片 %s 失败: HTTP %d", src, resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}

	path := src
	if !filepath.IsAbs(path) {
		if r.baseDir == "" {
			return nil, fmt.Errorf("未指定资源目录时不允许使用相对路径：%s", src)
		}
		path = filepath.Join(r.baseDir, path)
	}
	return os.ReadFile(path)
}

// centerCrop 把图片居中裁剪到目标纵横比（宽/高）。
// 源图已是目标形状、或实现不支持 SubImage 时原样返回。
func centerCrop(img image.Image, aspect float64) image.Image {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 || aspect <= 0 {
		return img
	}
	current := float64(b.Dx()) / float64(b.Dy())
	if math.Abs(current-aspect) < 1e-3 {
		return img
	}
	sub, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	})
	if !ok {
		return img
	}
	var crop image.Rectangle
	if current > aspect {
		// 过宽，裁左右
		newW := int(float64(b.Dy()) * aspect)
		offset := (b.Dx() - newW) / 2
		crop = image.Rect(b.Min.X+offset, b.Min.Y, b.Min.X+offset+newW, b.Max.Y)
	} else {
		// 过高，裁上下
		newH := int(float64(b.Dx()) / aspect)
		offset := (b.Dy() - newH) / 2
		crop = image.Rect(b.Min.X, b.Min.Y+offset, b.Max.X, b.Min.Y+offset+newH)
	}
	return sub.SubImage(crop)
}

// greedyWrap 贪心折行：优先在空白处分割，超宽词在词内按字符拆分。
// 宽度比较使用 face.TextWidth，与绘制共用同一套度量。
func greedyWrap(content string, width float64, face *canvas.FontFace) []string {
	limit := width
	if limit <= 0 {
		limit = math.MaxFloat64
	}

	var lines []string
	var builder strings.Builder
	currentWidth := 0.0

	emit := func(force bool) {
		if builder.Len() == 0 {
			if force {
				lines = append(lines, "")
			}
			return
		}
		lines = append(lines, builder.String())
		builder.Reset()
		currentWidth = 0
	}
	push := func(token string) {
		builder.WriteString(token)
		currentWidth += face.TextWidth(token)
	}

	for _, token := range tokenize(content) {
		if token == "\n" {
			emit(true)
			continue
		}
		tokenWidth := face.TextWidth(token)
		if currentWidth > 0 && currentWidth+tokenWidth > limit {
			emit(false)
		}
		if tokenWidth <= limit {
			push(token)
			continue
		}
		for _, chunk := range splitByWidth(token, limit, face) {
			if currentWidth > 0 && currentWidth+face.TextWidth(chunk) > limit {
				emit(false)
			}
			push(chunk)
		}
	}
	emit(false)

	if len(lines) == 0 {
		lines = []string{""}
	}
	return lines
}

// tokenize 把文本切成空白/非空白交替的 token，显式换行单独成 token。
func tokenize(s string) []string {
	var tokens []string
	var builder strings.Builder
	lastWasSpace := false
	flush := func() {
		if builder.Len() == 0 {
			return
		}
		tokens = append(tokens, builder.String())
		builder.Reset()
	}
	for _, r := range s {
		if r == '\r' {
			continue
		}
		if r == '\n' {
			flush()
			tokens = append(tokens, "\n")
			continue
		}
		isSpace := unicode.IsSpace(r)
		if builder.Len() == 0 {
			lastWasSpace = isSpace
		} else if lastWasSpace != isSpace {
			flush()
			lastWasSpace = isSpace
		}
		builder.WriteRune(r)
	}
	flush()
	return tokens
}

func splitByWidth(token string, limit float64, face *canvas.FontFace) []string {
	var parts []string
	var builder strings.Builder
	for _, r := range token {
		builder.WriteRune(r)
		if face.TextWidth(builder.String()) > limit && builder.Len() > 1 {
			runes := []rune(builder.String())
			parts = append(parts, string(runes[:len(runes)-1]))
			builder.Reset()
			builder.WriteRune(r)
		}
	}
	if builder.Len() > 0 {
		parts = append(parts, builder.String())
	}
	return parts
}
