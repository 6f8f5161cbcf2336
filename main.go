package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/ByLCY/tableau/config"
	"github.com/ByLCY/tableau/dsl"
	"github.com/ByLCY/tableau/fonts"
	"github.com/ByLCY/tableau/layout"
	"github.com/ByLCY/tableau/paint"
	canvasrenderer "github.com/ByLCY/tableau/renderer/canvas"
	"github.com/ByLCY/tableau/renderer/raster"
	"github.com/ByLCY/tableau/store"
)

// options 汇总命令行参数。
type options struct {
	page   string
	out    string
	pdf    string
	debug  string
	tree   bool
	device bool
	all    bool
}

func main() {
	cfgPath := flag.String("config", "", "TOML 配置文件路径")
	page := flag.String("page", "", "要渲染的页面名（默认第一个）")
	output := flag.String("out", "output", "PNG 输出路径；-all 时为输出目录")
	pdfPath := flag.String("pdf", "", "同时导出 PDF 预览的路径")
	debug := flag.String("debug", "", "布局调试 JSON 输出路径")
	tree := flag.Bool("tree", false, "在终端打印布局树")
	device := flag.Bool("device", false, "把原始 RGB565 帧写入配置中的设备")
	all := flag.Bool("all", false, "并发渲染所有页面")
	dataDir := flag.String("data", "", "覆盖配置中的数据目录")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("读取配置失败: %v", err)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("读取配置失败: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	layout.SetLogger(logger)

	opts := options{
		page:   *page,
		out:    *output,
		pdf:    *pdfPath,
		debug:  *debug,
		tree:   *tree,
		device: *device,
		all:    *all,
	}
	app := newApp(cfg, logger)
	if err := app.run(context.Background(), opts); err != nil {
		log.Fatalf("渲染失败: %v", err)
	}
}

// app 持有跨页面共享的资源：字体、位图与数据缓存。
type app struct {
	cfg     config.Config
	log     *slog.Logger
	fonts   *fonts.Cache
	bitmaps *layout.BitmapCache
	data    *store.DataStore
}

func newApp(cfg config.Config, logger *slog.Logger) *app {
	return &app{
		cfg: cfg,
		log: logger,
		fonts: fonts.NewCache(fonts.Options{
			Dirs:     cfg.FontDirs,
			Fallback: cfg.FallbackFont,
			Logger:   logger,
		}),
		bitmaps: layout.NewBitmapCache(),
		data:    store.New(cfg.DataDir),
	}
}

// pageSource 记录页面所在的文档。
type pageSource struct {
	name string
	file string
	doc  *dsl.Document
}

// loadPages 解析 pages_dir 下所有 .page 文件，页面名全局唯一。
func (a *app) loadPages() ([]pageSource, error) {
	files, err := filepath.Glob(filepath.Join(a.cfg.PagesDir, "*.page"))
	if err != nil {
		return nil, fmt.Errorf("列出页面文件失败: %w", err)
	}
	sort.Strings(files)
	var pages []pageSource
	seen := map[string]string{}
	for _, path := range files {
		doc, err := dsl.ParseFile(path)
		if err != nil {
			return nil, err
		}
		for _, section := range doc.Pages() {
			if prev, ok := seen[section.Name]; ok {
				return nil, fmt.Errorf("页面 %s 在 %s 与 %s 中重复定义", section.Name, prev, path)
			}
			seen[section.Name] = path
			pages = append(pages, pageSource{name: section.Name, file: path, doc: doc})
		}
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("目录 %s 中没有页面", a.cfg.PagesDir)
	}
	return pages, nil
}

// frame 是一个页面完成布局后的结果。
type frame struct {
	page    *layout.Page
	actions []paint.Action
}

// layoutPage 串联构建、测量定位与收集绘制动作。
func (a *app) layoutPage(src pageSource) (*frame, error) {
	page, err := layout.Build(src.doc, src.name, layout.BuildOptions{
		Fonts:   a.fonts,
		Data:    a.data,
		BaseDir: filepath.Dir(src.file),
		Bitmaps: a.bitmaps,
		Width:   a.cfg.Width,
		Height:  a.cfg.Height,
	})
	if err != nil {
		return nil, fmt.Errorf("构建页面 %s 失败: %w", src.name, err)
	}
	actions, err := layout.Render(page.Root, a.cfg.Width, a.cfg.Height)
	if err != nil {
		return nil, fmt.Errorf("布局页面 %s 失败: %w", src.name, err)
	}
	return &frame{page: page, actions: actions}, nil
}

func (a *app) run(ctx context.Context, opts options) error {
	pages, err := a.loadPages()
	if err != nil {
		return err
	}
	if opts.all {
		return a.runAll(ctx, pages, opts)
	}

	src := pages[0]
	if opts.page != "" {
		found := false
		for _, p := range pages {
			if p.name == opts.page {
				src, found = p, true
				break
			}
		}
		if !found {
			return fmt.Errorf("找不到页面 %s", opts.page)
		}
	}

	f, err := a.layoutPage(src)
	if err != nil {
		return err
	}
	if opts.debug != "" {
		if err := layout.WriteDebugJSON(f.page.Root, opts.debug); err != nil {
			return err
		}
	}
	if opts.tree {
		fmt.Print(renderTree(f.page.Root))
	}

	r := raster.New(a.cfg.Width, a.cfg.Height)
	png, err := r.Render(f.actions, a.cfg.Width, a.cfg.Height)
	if err != nil {
		return err
	}
	out := opts.out
	if filepath.Ext(out) == "" {
		out = filepath.Join(out, src.name+".png")
	}
	if err := writeFile(out, png); err != nil {
		return err
	}
	a.log.Info("已生成 PNG", "page", src.name, "path", out, "seconds", f.page.Seconds)

	if opts.pdf != "" {
		if err := a.writePDF(opts.pdf, []canvasrenderer.Page{{Name: src.name, Actions: f.actions}}); err != nil {
			return err
		}
	}
	if opts.device {
		if err := r.Send(a.cfg.Device); err != nil {
			return err
		}
		a.log.Info("已写入设备", "device", a.cfg.Device)
	}
	return nil
}

// runAll 每个页面使用独立的帧缓冲并发渲染，字体与位图缓存共享。
func (a *app) runAll(ctx context.Context, pages []pageSource, opts options) error {
	frames := make([]*frame, len(pages))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, src := range pages {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := a.layoutPage(src)
			if err != nil {
				return err
			}
			png, err := raster.New(a.cfg.Width, a.cfg.Height).Render(f.actions, a.cfg.Width, a.cfg.Height)
			if err != nil {
				return fmt.Errorf("页面 %s: %w", src.name, err)
			}
			if err := writeFile(filepath.Join(opts.out, src.name+".png"), png); err != nil {
				return err
			}
			frames[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	a.log.Info("已生成全部页面", "count", len(pages), "dir", opts.out)

	if opts.pdf != "" {
		docPages := make([]canvasrenderer.Page, len(frames))
		for i, f := range frames {
			docPages[i] = canvasrenderer.Page{Name: f.page.Name, Actions: f.actions}
		}
		return a.writePDF(opts.pdf, docPages)
	}
	return nil
}

func (a *app) writePDF(path string, pages []canvasrenderer.Page) error {
	names := make([]string, len(pages))
	for i, p := range pages {
		names[i] = p.Name
	}
	r := canvasrenderer.NewRenderer(canvasrenderer.Options{
		Fonts: a.fonts,
		Meta: canvasrenderer.Meta{
			Title:    strings.Join(names, ", "),
			Keywords: names,
			Creator:  "tableau",
		},
	})
	data, err := r.RenderPages(pages, a.cfg.Width, a.cfg.Height)
	if err != nil {
		return fmt.Errorf("渲染 PDF 失败: %w", err)
	}
	if err := writeFile(path, data); err != nil {
		return err
	}
	a.log.Info("已生成 PDF", "path", path, "pages", len(pages))
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入文件 %s 失败: %w", path, err)
	}
	return nil
}

var (
	kindStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	geomStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// renderTree 按层级缩进打印节点种类与几何信息。
func renderTree(root layout.Node) string {
	var b strings.Builder
	_ = layout.Walk(root, func(n layout.Node, depth int) error {
		g := n.Geometry()
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(kindStyle.Render(n.Kind()))
		b.WriteString(" ")
		b.WriteString(geomStyle.Render(fmt.Sprintf("x:%d y:%d w:%d h:%d", g.X, g.Y, g.Width, g.Height)))
		b.WriteString("\n")
		return nil
	})
	return b.String()
}
