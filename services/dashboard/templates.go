package dashboard

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(
	template.New("").
		Funcs(template.FuncMap{
			"signed": func(s string) string {
				if len(s) > 0 && s[0] != '-' && s != "0" && s != "0.000" {
					return "+" + s
				}
				return s
			},
		}).
		ParseFS(templateFS, "templates/*.html"),
)

func (s Service) renderTemplate(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.tel.ReportBroken("render-template", name, err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("content-type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Debug("failed to write page", "template", name, "err", err)
	}
}
