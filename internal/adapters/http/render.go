package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"ellarises/internal/adapters/http/middleware"
	"ellarises/internal/application/listutil"
	"ellarises/internal/domain/event"
	"ellarises/internal/domain/user"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed static
var staticFiles embed.FS

var staticFS = mustSub(staticFiles, "static")

func mustSub(f fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(f, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set).
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

var funcMap = template.FuncMap{
	"markdown": func(md string) template.HTML {
		var buf bytes.Buffer
		if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
			return template.HTML(template.HTMLEscapeString(md))
		}
		return template.HTML(buf.String())
	},
	"money": func(cents int64) string {
		return "$" + humanize.FormatFloat("#,###.##", float64(cents)/100)
	},
	"comma": func(n int) string { return humanize.Comma(int64(n)) },
	"ago": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return humanize.Time(t)
	},
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("Jan 2, 2006")
	},
	"datetime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("Mon Jan 2, 2006 3:04 PM")
	},
	"pct": func(part, whole int) string {
		if whole == 0 {
			return "0%"
		}
		return fmt.Sprintf("%d%%", part*100/whole)
	},
	"levelName": func(level string) string {
		if level == user.LevelManager {
			return "Manager"
		}
		return "User"
	},
	"add": func(a, b int) int { return a + b },
	"sub": func(a, b int) int { return a - b },
	"pageURL": func(p listutil.PageInfo, page int) template.URL {
		return template.URL("?" + p.Query(page))
	},
	"sortURL": func(p listutil.PageInfo, key string) template.URL {
		next := p.Params
		next.Desc = next.Sort == key && !next.Desc
		next.Sort = key
		return template.URL("?" + next.Query(1))
	},
	"eventTypes":  func() []string { return event.ValidTypes },
	"recurrences": func() []string { return event.ValidRecurrences },
}

// parsePages builds one template set per page: the shared layout plus the page.
func parsePages() (map[string]*template.Template, error) {
	names, err := fs.Glob(templateFiles, "templates/*.html")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		base := path.Base(name)
		if base == "layout.html" {
			continue
		}
		tpl, err := template.New("layout.html").Funcs(funcMap).ParseFS(templateFiles, "templates/layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", base, err)
		}
		pages[base] = tpl
	}
	return pages, nil
}

// page is what every template receives. Data carries the page's own model;
// Form carries submitted or prefilled form values so a re-rendered form keeps
// what the user typed.
type page struct {
	Title    string
	Session  middleware.Session
	LoggedIn bool
	CSRF     template.HTML
	Error    string
	Form     url.Values
	Data     any
}

// render executes the named page into a buffer and writes it with status.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	tpl, ok := s.pages[name]
	if !ok {
		slog.Error("internal_error", "error", "unknown template "+name, "request_id", middleware.RequestID(r.Context()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	p.Session, p.LoggedIn = middleware.SessionFromContext(r.Context())
	p.CSRF = csrf.TemplateField(r)
	if p.Form == nil {
		p.Form = url.Values{}
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, p); err != nil {
		slog.Error("internal_error", "error", err.Error(), "template", name, "request_id", middleware.RequestID(r.Context()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// renderLoginPrompt is the gate's answer to an anonymous visit of a logged-in page.
func (s *Server) renderLoginPrompt(w http.ResponseWriter, r *http.Request, msg string) {
	s.render(w, r, http.StatusOK, "login.html", page{Title: "Log in", Error: msg})
}

func (s *Server) csrfFailure(w http.ResponseWriter, r *http.Request) {
	reason := "unknown"
	if err := csrf.FailureReason(r); err != nil {
		reason = err.Error()
	}
	slog.Warn("csrf_rejected", "path", r.URL.Path, "reason", reason)
	s.render(w, r, http.StatusForbidden, "error.html", page{
		Title: "Form expired",
		Error: "Your form expired. Go back, reload the page and try again.",
	})
}
