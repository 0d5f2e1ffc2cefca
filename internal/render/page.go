package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strconv"

	"github.com/go-ports/poimap/internal/dashboard"
	"github.com/go-ports/poimap/internal/export"
)

//go:embed templates/page.html.tmpl
var templates embed.FS

var pageTmpl = template.Must(template.New("page.html.tmpl").Funcs(template.FuncMap{
	"deref": func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	},
	"coord": func(p *float64) string {
		if p == nil {
			return ""
		}
		return strconv.FormatFloat(*p, 'f', -1, 64)
	},
}).ParseFS(templates, "templates/page.html.tmpl"))

type pageData struct {
	View     *dashboard.View
	Query    template.URL
	Filename string
}

// SelectionQuery encodes the resolved selection of v as URL query parameters.
func SelectionQuery(v *dashboard.View) url.Values {
	q := url.Values{}
	q.Set("category", v.Selection.Category)
	q.Set("state", v.Selection.State)
	q.Set("city", v.Selection.City)
	q.Set("rows", strconv.Itoa(v.Selection.Rows))
	return q
}

// Page renders the HTML dashboard for v.
func Page(w io.Writer, v *dashboard.View) error {
	data := pageData{
		View:     v,
		Query:    template.URL(SelectionQuery(v).Encode()), // #nosec G203 -- produced by url.Values.Encode
		Filename: export.Filename,
	}
	if err := pageTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render.Page: %w", err)
	}
	return nil
}
