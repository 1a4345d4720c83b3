package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

var documentTemplate = template.Must(template.New("document.html.tmpl").Funcs(template.FuncMap{
	"css":     func(s Style) template.CSS { return template.CSS(s.CSS()) },
	"align":   func(a Alignment) template.CSS { return template.CSS("text-align: " + string(a)) },
	"striped": func(p TablePreset, i int) bool { return p.Stripe != "" && i%2 == 1 },
	"stripe":  func(p TablePreset) template.CSS { return template.CSS("background-color: " + p.Stripe) },
	"image":   imageURL,
}).ParseFS(templatesFS, "templates/document.html.tmpl"))

// WriteHTML serializes a rendered document as a standalone HTML page.
func WriteHTML(w io.Writer, doc Document) error {
	if err := documentTemplate.Execute(w, doc); err != nil {
		return fmt.Errorf("write invoice html: %w", err)
	}
	return nil
}

// imageURL lets embedded data:image URIs through; anything else is left to
// the normal html/template URL filtering.
func imageURL(src string) any {
	if strings.HasPrefix(src, "data:image/") {
		return template.URL(src)
	}
	return src
}
