// Package render turns a document generation into Markdown and HTML.
package render

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	"text/template"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/ziadkadry99/auto-analyst/internal/backlog"
	"github.com/ziadkadry99/auto-analyst/internal/session"
)

var funcs = template.FuncMap{
	"stories": func(e backlog.Epic) []backlog.Story { return nil },
	"storyMap": StoryMap,
	"criterion": func(c backlog.Criterion) string {
		return c.String()
	},
	"code": func(s string) string {
		if s == "" {
			return ""
		}
		return "`" + s + "`"
	},
	"target": func(v backlog.Violation) string {
		switch {
		case v.StoryID != "":
			return "(" + v.StoryID + ") "
		case v.EpicID != "":
			return "(" + v.EpicID + ") "
		}
		return ""
	},
}

var (
	docTmpl  = template.Must(template.New("document").Funcs(funcs).Parse(documentTemplate))
	pageTmpl = htmltemplate.Must(htmltemplate.New("page").Parse(pageTemplate))

	md = goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
)

// Markdown renders the brief and the accepted backlog. Only validated
// stories of accepted epics are listed.
func Markdown(doc *session.Document) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("no document to render")
	}
	tmpl, err := docTmpl.Clone()
	if err != nil {
		return "", err
	}
	tmpl.Funcs(template.FuncMap{
		"stories": func(e backlog.Epic) []backlog.Story { return backlog.StoriesFor(e, doc.Stories) },
	})

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, doc); err != nil {
		return "", fmt.Errorf("rendering document: %w", err)
	}
	return collapseBlankLines(buf.String()), nil
}

// HTML renders the Markdown form into a standalone page. Raw HTML in fact
// values is escaped by goldmark's default renderer.
func HTML(doc *session.Document) ([]byte, error) {
	text, err := Markdown(doc)
	if err != nil {
		return nil, err
	}
	var body bytes.Buffer
	if err := md.Convert([]byte(text), &body); err != nil {
		return nil, fmt.Errorf("converting markdown: %w", err)
	}

	title := "Product Brief"
	if doc.Generation > 0 {
		title = fmt.Sprintf("Product Brief (generation %d)", doc.Generation)
	}
	var page bytes.Buffer
	err = pageTmpl.Execute(&page, struct {
		Title string
		Body  htmltemplate.HTML
	}{title, htmltemplate.HTML(body.String())})
	if err != nil {
		return nil, fmt.Errorf("rendering page: %w", err)
	}
	return page.Bytes(), nil
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, l := range lines {
		l = strings.TrimRight(l, " ")
		if l == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n")) + "\n"
}
