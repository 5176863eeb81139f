package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/ByLCY/papyrender/compiler"
	"github.com/ByLCY/papyrender/config"
	"github.com/ByLCY/papyrender/dom"
	"github.com/ByLCY/papyrender/element"
)

func main() {
	flags := pflag.NewFlagSet("papyrender", pflag.ExitOnError)
	input := flags.StringP("in", "i", "-", "输入 HTML 文件，- 表示标准输入")
	output := flags.StringP("out", "o", "-", "输出 HTML 文件，- 表示标准输出")
	cfgPath := flags.StringP("config", "c", "", "TOML 配置文件")
	verbose := flags.BoolP("verbose", "v", false, "输出调试日志")
	flags.String("format", "image", "默认输出格式 image|svg")
	flags.String("tag", dom.DefaultTag, "要渲染的元素名")
	flags.Float64("font-size", 16, "宿主默认字号 (px)")
	flags.Float64("width", 640, "宿主默认内容宽度 (px)")
	flags.String("font", "lmroman", "片段默认字体")
	flags.Bool("minify", true, "压缩 SVG 输出")
	flags.Float64("pixel-ratio", 1, "位图的设备像素比")
	_ = flags.Parse(os.Args[1:])

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	element.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load(*cfgPath, flags)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	counts, err := run(context.Background(), cfg, *input, *output)
	if err != nil {
		log.Fatalf("渲染失败: %v", err)
	}
	fmt.Fprintf(os.Stderr, "已处理 %d 个片段：%d 成功，%d 失败\n", counts.total, counts.rendered, counts.failed)
}

type summary struct {
	total, rendered, failed int
}

// run 串联读取、挂载、渲染与输出。
func run(ctx context.Context, cfg config.Config, inputPath, outputPath string) (summary, error) {
	var s summary
	in, closeIn, err := openInput(inputPath)
	if err != nil {
		return s, err
	}
	defer closeIn()

	doc, err := dom.Parse(in, cfg.Style())
	if err != nil {
		return s, err
	}

	opts, err := cfg.CompilerOptions()
	if err != nil {
		return s, err
	}
	compilers, err := compiler.NewFormats(opts, cfg.Compiler.CacheSize)
	if err != nil {
		return s, fmt.Errorf("创建编译器失败: %w", err)
	}
	// 元素可以用 format 属性覆盖默认格式，每种格式各用一个编译器
	env := element.NewEnv(compilers[opts.Format])
	env.Formats = compilers

	mounted, err := dom.Mount(ctx, doc, env, dom.MountOptions{Tag: cfg.Element.Tag, Format: opts.Format})
	if err != nil {
		return s, fmt.Errorf("挂载元素失败: %w", err)
	}
	defer mounted.Unmount()

	for _, o := range mounted.Outcomes() {
		s.total++
		switch o {
		case element.OutcomeRendered:
			s.rendered++
		case element.OutcomeFailed:
			s.failed++
		}
	}

	if outputPath == "-" || outputPath == "" {
		return s, doc.Render(os.Stdout)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return s, fmt.Errorf("创建输出目录失败: %w", err)
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return s, fmt.Errorf("创建输出文件失败: %w", err)
	}
	if err := doc.Render(f); err != nil {
		f.Close()
		return s, fmt.Errorf("写入 HTML 失败: %w", err)
	}
	return s, f.Close()
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" || path == "" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("无法打开输入文件 %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}
