package document

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"path/filepath"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
)

//go:embed assets
var assets embed.FS

var pageTemplate = template.Must(template.ParseFS(assets, "assets/document.html"))

// ChapterClass marks level-2 headings. Each one starts a new page.
const ChapterClass = "chapter"

type tocEntry struct {
	Level    int
	ID       string
	Text     string
	Children []*tocEntry
}

type page struct {
	Title    string
	Subtitle string
	Author   string
	Version  string
	TOCTitle string
	TOC      []*tocEntry
	Content  template.HTML
	CSS      template.CSS
}

// chapterTransformer tags h2 headings once the parser has assigned ids.
type chapterTransformer struct{}

func (chapterTransformer) Transform(doc *ast.Document, _ text.Reader, _ parser.Context) {
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if h, ok := n.(*ast.Heading); ok && entering && h.Level == 2 {
			h.SetAttributeString("class", []byte(ChapterClass))
		}
		return ast.WalkContinue, nil
	})
}

func (o Options) markdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(o.codeStyle()),
				highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(util.Prioritized(chapterTransformer{}, 999)),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithUnsafe(),
		),
	)
}

// BuildHTML renders markdown into the full print document: stylesheet,
// cover page, table of contents and content.
func (o Options) BuildHTML(src []byte) (string, error) {
	out, _, err := o.build(src)
	return out, err
}

func (o Options) build(src []byte) (string, string, error) {
	md := o.markdown()
	doc := md.Parser().Parse(text.NewReader(src))

	var content bytes.Buffer
	if err := md.Renderer().Render(&content, src, doc); err != nil {
		return "", "", fmt.Errorf("rendering markdown: %w", err)
	}

	css, err := o.stylesheet()
	if err != nil {
		return "", "", err
	}

	headings := collectHeadings(doc, src, o.tocDepth())
	p := page{
		Title:    o.title(headings),
		Subtitle: o.Subtitle,
		Author:   o.Author,
		Version:  o.Version,
		TOCTitle: o.tocTitle(),
		TOC:      nestTOC(headings),
		Content:  template.HTML(content.String()),
		CSS:      template.CSS(css),
	}

	var out bytes.Buffer
	if err := pageTemplate.ExecuteTemplate(&out, "document.html", p); err != nil {
		return "", "", fmt.Errorf("executing template: %w", err)
	}
	return out.String(), p.Title, nil
}

func (o Options) stylesheet() (string, error) {
	var buf strings.Builder

	base, err := assets.ReadFile("assets/print.css")
	if err != nil {
		return "", err
	}

	pg := o.page()
	fmt.Fprintf(&buf, "@page {\n  size: %gin %gin;\n  margin: %gin %gin %gin %gin;\n}\n\n",
		pg.Width, pg.Height, pg.MarginTop, pg.MarginSide, pg.MarginBottom, pg.MarginSide)
	buf.Write(base)
	buf.WriteString("\n")

	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.WriteCSS(&buf, styles.Get(o.codeStyle())); err != nil {
		return "", fmt.Errorf("writing highlight css: %w", err)
	}
	return buf.String(), nil
}

func (o Options) title(headings []tocEntry) string {
	if o.Title != "" {
		return o.Title
	}
	for _, h := range headings {
		if h.Level == 1 && h.Text != "" {
			return h.Text
		}
	}
	base := filepath.Base(o.Input)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func collectHeadings(doc ast.Node, src []byte, depth int) []tocEntry {
	var headings []tocEntry
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		h, ok := n.(*ast.Heading)
		if !ok || !entering {
			return ast.WalkContinue, nil
		}
		if h.Level <= depth {
			e := tocEntry{Level: h.Level, Text: plainText(h, src)}
			if id, ok := h.AttributeString("id"); ok {
				if b, ok := id.([]byte); ok {
					e.ID = string(b)
				}
			}
			headings = append(headings, e)
		}
		return ast.WalkSkipChildren, nil
	})
	return headings
}

func plainText(n ast.Node, src []byte) string {
	var b strings.Builder
	ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// nestTOC turns the flat heading list into a tree. A heading becomes a
// child of the nearest preceding heading with a smaller level.
func nestTOC(flat []tocEntry) []*tocEntry {
	var roots, stack []*tocEntry
	for i := range flat {
		e := &flat[i]
		for len(stack) > 0 && stack[len(stack)-1].Level >= e.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, e)
		} else {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, e)
		}
		stack = append(stack, e)
	}
	return roots
}
