// Package render converts article Markdown to publishable HTML pages.
package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gparser "github.com/yuin/goldmark/parser"
	ghtml "github.com/yuin/goldmark/renderer/html"

	"github.com/starford/ansuz/internal/models"
)

// Error reports a Markdown body that could not be converted. It is local to
// one article; the rest of the batch keeps building.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("render: %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Page is the rendered output for one article.
type Page struct {
	URL  string
	HTML []byte
}

// Renderer converts Markdown bodies to full HTML pages. It is stateless and
// safe for concurrent use; a single instance serves the whole worker pool.
type Renderer struct {
	md   goldmark.Markdown
	page *template.Template
}

// New creates a Renderer with GFM and autolink extensions. Raw HTML in the
// source is passed through; fenced code blocks stay verbatim preformatted
// text (goldmark never interprets their contents).
func New() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Linkify),
			goldmark.WithParserOptions(gparser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(ghtml.WithUnsafe()),
		),
		page: template.Must(template.New("page").Parse(pageTemplate)),
	}
}

// Render converts the article body and wraps it in the page shell.
func (r *Renderer) Render(a *models.Article) (*Page, error) {
	var body bytes.Buffer
	if err := r.md.Convert([]byte(a.Body), &body); err != nil {
		return nil, &Error{Path: a.Path, Err: err}
	}

	var out bytes.Buffer
	data := pageData{
		Article: a,
		Content: template.HTML(body.String()),
	}
	if err := r.page.Execute(&out, data); err != nil {
		return nil, &Error{Path: a.Path, Err: err}
	}

	return &Page{URL: a.URL, HTML: out.Bytes()}, nil
}

type pageData struct {
	Article *models.Article
	Content template.HTML
}

// pageTemplate is a minimal shell; site theming is the consumer's concern.
const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Article.Title}}</title>
{{- if .Article.Description}}
<meta name="description" content="{{.Article.Description}}">
{{- end}}
{{- if .Article.Image}}
<meta property="og:image" content="{{.Article.Image}}">
{{- end}}
</head>
<body>
<article>
<h1>{{.Article.Title}}</h1>
<time datetime="{{.Article.Date.Format "2006-01-02"}}">{{.Article.Date.Format "January 2, 2006"}}</time>
{{.Content}}
{{- if .Article.FAQ}}
<section class="faq">
<h2>FAQ</h2>
{{- range .Article.FAQ}}
<details>
<summary>{{.Question}}</summary>
<p>{{.Answer}}</p>
</details>
{{- end}}
</section>
{{- end}}
</article>
</body>
</html>
`
