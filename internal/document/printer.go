package document

import (
	"context"
	"fmt"
	gohtml "html"
	"io"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Printer turns an HTML document into PDF bytes. header is shown at the
// top of each page.
type Printer interface {
	PrintPDF(ctx context.Context, html string, pg Page, header string) ([]byte, error)
}

// RodPrinter prints through a headless Chrome it launches per call.
type RodPrinter struct {
	Bin       string // browser binary; empty downloads or finds one
	NoSandbox bool
}

func (p RodPrinter) PrintPDF(ctx context.Context, html string, pg Page, header string) ([]byte, error) {
	l := launcher.New().Context(ctx).Headless(true).NoSandbox(p.NoSandbox)
	if p.Bin != "" {
		l = l.Bin(p.Bin)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}
	defer func() {
		l.Kill()
		l.Cleanup()
	}()

	browser := rod.New().ControlURL(u).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, err
	}
	if err := page.SetDocumentContent(html); err != nil {
		return nil, fmt.Errorf("loading document: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, err
	}

	stream, err := page.PDF(printOptions(pg, header))
	if err != nil {
		return nil, fmt.Errorf("printing: %w", err)
	}
	return io.ReadAll(stream)
}

func printOptions(pg Page, header string) *proto.PagePrintToPDF {
	inch := func(v float64) *float64 { return &v }

	return &proto.PagePrintToPDF{
		PrintBackground:     true,
		DisplayHeaderFooter: true,
		PaperWidth:          inch(pg.Width),
		PaperHeight:         inch(pg.Height),
		MarginTop:           inch(pg.MarginTop),
		MarginBottom:        inch(pg.MarginBottom),
		MarginLeft:          inch(pg.MarginSide),
		MarginRight:         inch(pg.MarginSide),
		HeaderTemplate:      headerTemplate(header),
		FooterTemplate:      footerTemplate,
	}
}

// Chrome renders these outside the page body, so they need their own font
// size and padding.
const footerTemplate = `<div style="font-size:9pt;color:#666;width:100%;text-align:right;padding:0 0.75in;">Page <span class="pageNumber"></span></div>`

func headerTemplate(title string) string {
	return `<div style="font-size:9pt;color:#666;font-style:italic;width:100%;text-align:right;padding:0 0.75in;">` +
		gohtml.EscapeString(title) + `</div>`
}
