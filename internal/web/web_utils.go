package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/go-while/go-stockblog/internal/config"
)

//go:embed templates/*.html
var EmbeddedTemplatesFS embed.FS

var (
	printer  = message.NewPrinter(language.English)
	markdown = goldmark.New() // raw HTML in posts is omitted, not rendered
)

// TemplateData represents common template data
type TemplateData struct {
	Title       string
	CurrentTime string
	AppVersion  string
	Flashes     []string
}

var templateFuncs = template.FuncMap{
	"markdown": renderMarkdown,
	"number":   formatNumber,
	"usd":      formatUSD,
	"price":    func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"signed":   func(v float64) string { return fmt.Sprintf("%+.2f", v) },
	"datetime": func(t time.Time) string { return t.Format("2006-01-02 15:04") },
}

func renderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		log.Printf("[WEB]: markdown render failed: %v", err)
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

// formatNumber groups thousands: 1234567 -> 1,234,567
func formatNumber(v any) string {
	switch n := v.(type) {
	case int:
		return printer.Sprintf("%d", n)
	case int64:
		return printer.Sprintf("%d", n)
	case float64:
		return printer.Sprintf("%.0f", n)
	default:
		return fmt.Sprint(v)
	}
}

func formatUSD(v float64) string {
	return money.NewFromFloat(v, money.USD).Display()
}

// mustLoadTemplates parses every page together with base.html
func mustLoadTemplates() map[string]*template.Template {
	pages, err := fs.Glob(EmbeddedTemplatesFS, "templates/*.html")
	if err != nil {
		panic("failed to list embedded templates: " + err.Error())
	}
	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		name := page[len("templates/"):]
		if name == "base.html" {
			continue
		}
		templates[name] = template.Must(template.New("base.html").Funcs(templateFuncs).
			ParseFS(EmbeddedTemplatesFS, "templates/base.html", page))
	}
	return templates
}

// getBaseTemplateData creates a TemplateData struct and consumes queued flash messages
func (s *WebServer) getBaseTemplateData(c *gin.Context, title string) TemplateData {
	return TemplateData{
		Title:       title,
		CurrentTime: time.Now().Format("2006-01-02 15:04:05"),
		AppVersion:  config.AppVersion,
		Flashes:     s.consumeFlashes(c),
	}
}

// renderTemplate renders a page template inside base.html
func (s *WebServer) renderTemplate(c *gin.Context, statusCode int, templateName string, data any) {
	tmpl, ok := s.templates[templateName]
	if !ok {
		s.renderError(c, http.StatusInternalServerError, "Template error", "unknown template "+templateName)
		return
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		log.Printf("[WEB]: req=%s Error rendering template %s: %v", requestID(c), templateName, err)
		s.renderError(c, http.StatusInternalServerError, "Template error", err.Error())
		return
	}
	c.Data(statusCode, "text/html; charset=utf-8", buf.Bytes())
}

// renderError renders an error page
func (s *WebServer) renderError(c *gin.Context, statusCode int, message string, errstring string) {
	errorData := struct {
		TemplateData
		Error      string
		StatusCode int
	}{
		TemplateData: s.getBaseTemplateData(c, "Error"),
		Error:        message,
		StatusCode:   statusCode,
	}
	log.Printf("[WEB]: req=%s Error %d: %s - %s", requestID(c), statusCode, message, errstring)

	defer c.Abort()
	var buf bytes.Buffer
	tmpl, ok := s.templates["error.html"]
	if ok {
		err := tmpl.ExecuteTemplate(&buf, "base.html", errorData)
		if err == nil {
			c.Data(statusCode, "text/html; charset=utf-8", buf.Bytes())
			return
		}
		log.Printf("[WEB]: Error rendering error template: %v", err)
	}
	c.String(statusCode, "Error: %s", message)
}

// postID parses the :id path parameter. Anything but a positive integer renders 404.
func (s *WebServer) postID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		s.renderError(c, http.StatusNotFound, "Post not found", "invalid post id "+strconv.Quote(c.Param("id")))
		return 0, false
	}
	return id, true
}
