package view

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"mdtree/internal/markup"
)

type Options struct {
	AssetPrefix string
	AdClient    string
	AdSlot      string
	CodeStyle   string
}

// Renderer turns an assembled Document into preview HTML.
type Renderer struct {
	opts    Options
	style   *chroma.Style
	code    *chromahtml.Formatter
	wrapped *chromahtml.Formatter
}

func New(opts Options) *Renderer {
	style := styles.Get(opts.CodeStyle)
	if style == nil {
		style = styles.Fallback
	}
	return &Renderer{
		opts:    opts,
		style:   style,
		code:    chromahtml.New(chromahtml.WithClasses(false)),
		wrapped: chromahtml.New(chromahtml.WithClasses(false), chromahtml.WrapLongLines(true)),
	}
}

// HTML renders doc for the post at slug.
func (r *Renderer) HTML(slug string, doc markup.Document) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, slug, doc); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func (r *Renderer) Render(w io.Writer, slug string, doc markup.Document) error {
	var b strings.Builder
	for _, n := range doc {
		if err := r.node(&b, slug, n); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (r *Renderer) node(b *strings.Builder, slug string, n markup.Node) error {
	switch v := n.(type) {
	case *markup.Header:
		tag := string(v.Tag())
		fmt.Fprintf(b, "<%s>%s</%s>\n", tag, v.Caption, tag)
		if len(v.Children) == 0 {
			return nil
		}
		fmt.Fprintf(b, "<div class=\"section %s\">\n", tag)
		for _, child := range v.Children {
			if err := r.node(b, slug, child); err != nil {
				return err
			}
		}
		b.WriteString("</div>\n")
	case *markup.LineBreak:
		b.WriteString(strings.Repeat("<br/>", v.Count))
		b.WriteString("\n")
	case *markup.Plain:
		if v.HTML == "" {
			b.WriteString("<br/>\n")
			return nil
		}
		fmt.Fprintf(b, "<div>%s</div>\n", v.HTML)
	case *markup.Image:
		fmt.Fprintf(b, "<img src=\"%s\" alt=\"%s\"/>\n", attr(r.asset(slug, v.Src)), attr(v.Alt))
	case *markup.Video:
		fmt.Fprintf(b, "<video src=\"%s\" muted loop autoplay playsinline></video>\n", attr(r.asset(slug, v.Src)))
	case *markup.Link:
		fmt.Fprintf(b, "<a href=\"%s\" target=\"_blank\" rel=\"noreferrer\">%s</a>\n", attr(v.URL), html.EscapeString(v.Label))
	case *markup.Code:
		return r.codeBlock(b, v)
	case *markup.Ad:
		r.ad(b)
	case *markup.Affiliate:
		affiliate(b, v)
	default:
		return fmt.Errorf("view: unsupported node %T", n)
	}
	return nil
}

func (r *Renderer) asset(slug, src string) string {
	if strings.Contains(src, "://") || strings.HasPrefix(src, "/") {
		return src
	}
	return path.Join(r.opts.AssetPrefix, slug, src)
}

func (r *Renderer) codeBlock(b *strings.Builder, c *markup.Code) error {
	lexer := lexers.Get(c.Language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)
	formatter := r.code
	if c.Language == "" || c.Language == "text" {
		formatter = r.wrapped
	}
	iterator, err := lexer.Tokenise(nil, c.Source)
	if err != nil {
		slog.Debug("code tokenise failed", "language", c.Language, "err", err)
		fmt.Fprintf(b, "<pre>%s</pre>\n", html.EscapeString(c.Source))
		return nil
	}
	if err := formatter.Format(b, r.style, iterator); err != nil {
		return fmt.Errorf("view: format code: %w", err)
	}
	b.WriteString("\n")
	return nil
}

func (r *Renderer) ad(b *strings.Builder) {
	if r.opts.AdClient == "" {
		b.WriteString("<div class=\"ad\"></div>\n")
		return
	}
	fmt.Fprintf(b, "<div class=\"ad\"><ins class=\"adsbygoogle\" style=\"display:block;text-align:center;margin:20px 0\" data-ad-layout=\"in-article\" data-ad-format=\"fluid\" data-ad-client=\"%s\" data-ad-slot=\"%s\"></ins></div>\n",
		attr(r.opts.AdClient), attr(r.opts.AdSlot))
}

var stores = []struct {
	key  markup.AffiliateKey
	name string
}{
	{markup.AffiliateAmazon, "Amazon"},
	{markup.AffiliateRakuten, "楽天"},
	{markup.AffiliateYahoo, "Yahoo"},
}

func affiliate(b *strings.Builder, a *markup.Affiliate) {
	b.WriteString("<div class=\"affiliate\">")
	fmt.Fprintf(b, "<div class=\"image\"><img src=\"%s\" alt=\"\"/></div>", attr(a.Links[markup.AffiliateImage]))
	fmt.Fprintf(b, "<div class=\"text\"><div class=\"title\">%s</div><div class=\"buttons\">", html.EscapeString(a.Links[markup.AffiliateTitle]))
	for _, s := range stores {
		href := a.Links[s.key]
		if href == "" {
			continue
		}
		fmt.Fprintf(b, "<a class=\"%s\" href=\"%s\" target=\"_blank\" rel=\"noreferrer\">%sで購入</a>", s.key, attr(href), s.name)
	}
	b.WriteString("</div></div></div>\n")
}

func attr(s string) string {
	return html.EscapeString(s)
}
