// Package web holds the page templates and static assets, compiled into
// the binary.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"yatube/internal/model"

	"github.com/gin-gonic/gin/render"
)

//go:embed templates static
var files embed.FS

// layout is parsed into every page.
var layout = []string{"templates/base.html", "templates/includes/*.html"}

// Static is the stylesheet directory served under /static/.
func Static() http.FileSystem {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

// Renderer implements gin's HTMLRender. Each page is its own template set
// made of the layout plus the page, so pages can share block names.
type Renderer struct {
	pages map[string]*template.Template
}

var _ render.HTMLRender = (*Renderer)(nil)

// NewRenderer parses every page under templates/ with funcs added to the
// default helpers.
func NewRenderer(funcs template.FuncMap) (*Renderer, error) {
	all := Funcs("/media/")
	for name, fn := range funcs {
		all[name] = fn
	}

	r := &Renderer{pages: make(map[string]*template.Template)}
	err := fs.WalkDir(files, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".html") {
			return err
		}
		name := strings.TrimPrefix(path, "templates/")
		if name == "base.html" || strings.HasPrefix(name, "includes/") {
			return nil
		}

		t, err := template.New(name).Funcs(all).ParseFS(files, append(layout, path)...)
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Pages lists the names Instance accepts.
func (r *Renderer) Pages() []string {
	names := make([]string, 0, len(r.pages))
	for name := range r.pages {
		names = append(names, name)
	}
	return names
}

func (r *Renderer) Instance(name string, data any) render.Render {
	t, ok := r.pages[name]
	if !ok {
		return missingPage(name)
	}
	return render.HTML{Template: t, Name: "base", Data: data}
}

type missingPage string

func (m missingPage) Render(http.ResponseWriter) error {
	return fmt.Errorf("template %q is not defined", string(m))
}

func (m missingPage) WriteContentType(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
}

// Funcs are the template helpers. mediaURL prefixes stored image paths.
func Funcs(mediaURL string) template.FuncMap {
	return template.FuncMap{
		"media":         MediaFunc(mediaURL),
		"date":          func(t time.Time) string { return t.Format("2 January 2006") },
		"truncatewords": truncateWords,
		"truncatechars": truncateChars,
		"pageRange":     pageRange,
	}
}

// MediaFunc leaves absolute URLs alone and serves the rest from mediaURL.
func MediaFunc(mediaURL string) func(string) string {
	base := strings.TrimRight(mediaURL, "/") + "/"
	return func(image string) string {
		if strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://") {
			return image
		}
		return base + strings.TrimLeft(image, "/")
	}
}

func truncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ") + " …"
}

func truncateChars(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}

func pageRange(p *model.Page) []int {
	n := p.NumPages()
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}
