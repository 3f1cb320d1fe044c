package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ByLCY/vellum/layout"
	"github.com/ByLCY/vellum/record"
	canvasrenderer "github.com/ByLCY/vellum/renderer/canvas"
	"github.com/ByLCY/vellum/report"
	"github.com/ByLCY/vellum/schema"
)

func main() {
	schemaPath := flag.String("schema", "examples/schema.json", "模板 schema JSON 路径")
	recordPath := flag.String("record", "examples/record.json", "工单记录 JSON 路径")
	output := flag.String("out", "output/report.pdf", "PDF 输出路径")
	debug := flag.String("debug", "", "渲染树调试 JSON 输出路径")
	assets := flag.String("assets", "", "附件与字体的本地根目录")
	fontPath := flag.String("font", "", "正文字体文件路径（缺省使用系统字体）")
	verbose := flag.Bool("v", false, "输出详细日志")
	flag.Parse()

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			log.Fatalf("初始化日志失败: %v", err)
		}
		logger = l
		defer logger.Sync()
	}

	if err := run(context.Background(), *schemaPath, *recordPath, *output, *debug, *assets, *fontPath, logger); err != nil {
		log.Fatalf("生成报表失败: %v", err)
	}
	fmt.Printf("已生成 PDF：%s\n", *output)
}

// run 串联加载、校验、构建渲染树、布局与 PDF 输出。
func run(ctx context.Context, schemaPath, recordPath, outputPath, debugPath, assetsDir, fontPath string, logger *zap.Logger) error {
	schemaData, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("无法读取 schema 文件 %s: %w", schemaPath, err)
	}
	s, err := schema.Load(schemaData)
	if err != nil {
		return fmt.Errorf("解析 schema 失败: %w", err)
	}

	recordData, err := os.ReadFile(recordPath)
	if err != nil {
		return fmt.Errorf("无法读取记录文件 %s: %w", recordPath, err)
	}
	rec, err := record.Load(recordData)
	if err != nil {
		return fmt.Errorf("解析记录失败: %w", err)
	}

	builder := report.NewBuilder(logger)
	tree, err := builder.Build(s, rec)
	if err != nil {
		return fmt.Errorf("构建渲染树失败: %w", err)
	}

	if debugPath != "" {
		if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
			return fmt.Errorf("创建调试目录失败: %w", err)
		}
		if err := report.WriteDebugJSON(tree, debugPath); err != nil {
			return fmt.Errorf("输出调试 JSON 失败: %w", err)
		}
	}

	r, err := canvasrenderer.New(tree.Page.Width, tree.Page.Height, canvasrenderer.Options{
		BaseDir:  assetsDir,
		FontPath: fontPath,
	})
	if err != nil {
		return fmt.Errorf("初始化 PDF 后端失败: %w", err)
	}
	r.SetMeta(canvasrenderer.Meta{
		Title:   fmt.Sprintf("Work Entry Report %s", tree.Metadata.RecordID),
		Subject: tree.Metadata.Template,
		Author:  tree.Metadata.Creator,
		Creator: "vellum",
	})

	engine := layout.NewEngine(logger)
	if err := engine.Render(ctx, tree, r); err != nil {
		return fmt.Errorf("布局渲染失败: %w", err)
	}

	pdfBytes, err := r.Bytes()
	if err != nil {
		return fmt.Errorf("渲染 PDF 失败: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := os.WriteFile(outputPath, pdfBytes, 0o644); err != nil {
		return fmt.Errorf("写入 PDF 文件失败: %w", err)
	}
	return nil
}
