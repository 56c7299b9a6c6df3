// Package web holds the portal's HTML templates and the gin renderer that
// executes them inside the shared layout.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin/render"

	"github.com/noah-isme/rec-portal/internal/models"
	"github.com/noah-isme/rec-portal/internal/view"
	"github.com/noah-isme/rec-portal/pkg/response"
)

//go:embed templates
var templatesFS embed.FS

// Page names accepted by the renderer.
const (
	PageProfile     = "profile.html"
	PageRequestForm = "request_form.html"
	PageRequestList = "request_list.html"
	PageStatistics  = "statistics.html"
	PageError       = response.ErrorTemplate
)

var pageNames = []string{PageProfile, PageRequestForm, PageRequestList, PageStatistics, PageError}

// Page is what the layout renders: chrome for the viewer plus page content.
type Page struct {
	Title   string
	Viewer  models.CurrentUser
	Toasts  []string
	Content any
}

// Banners are the inline loading and error notices shown above a view.
type Banners struct {
	Loading     bool
	LoadingText string
	Error       string
	ErrorPrefix string
}

// ProfileContent is rendered by PageProfile.
type ProfileContent struct {
	Banners Banners
	// Defined is false when the list never resolved.
	Defined bool
	Table   view.TableView
}

// FormContent is rendered by PageRequestForm.
type FormContent struct {
	Heading string
	Banners Banners
	Defined bool
	Form    view.FormView
}

// ListContent is rendered by PageRequestList.
type ListContent struct {
	Heading     string
	Description string
	Banners     Banners
	Table       view.TableView
}

// StatisticsContent is rendered by PageStatistics.
type StatisticsContent struct {
	Banners Banners
	Stats   models.RequestStatistics
}

var funcMap = template.FuncMap{
	"has": func(viewer models.CurrentUser, capability string) bool {
		return models.HasCapability(viewer, models.Capability(capability))
	},
}

// Renderer implements gin's render.HTMLRender over the embedded templates.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses every page together with the layout and partials.
func NewRenderer() (*Renderer, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	return &Renderer{pages: pages}, nil
}

// parsePages builds a template for each page by combining layout.html and
// partials.html with the page template.
func parsePages() (map[string]*template.Template, error) {
	tmplFS, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("getting templates subfs: %w", err)
	}

	shared := make([]string, 0, 2)
	for _, name := range []string{"layout.html", "partials.html"} {
		raw, err := fs.ReadFile(tmplFS, name)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		shared = append(shared, string(raw))
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		pageBytes, err := fs.ReadFile(tmplFS, name)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}

		tmpl, err := template.New("layout.html").Funcs(funcMap).Parse(shared[0])
		if err != nil {
			return nil, fmt.Errorf("parsing layout for %s: %w", name, err)
		}
		if _, err := tmpl.New("partials.html").Parse(shared[1]); err != nil {
			return nil, fmt.Errorf("parsing partials for %s: %w", name, err)
		}
		if _, err := tmpl.New(name).Parse(string(pageBytes)); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}

		pages[name] = tmpl
	}
	return pages, nil
}

// Instance implements render.HTMLRender. Data that is not a Page is treated
// as page content without viewer chrome. Unknown names render the error page.
func (r *Renderer) Instance(name string, data any) render.Render {
	page, ok := data.(Page)
	if !ok {
		page = Page{Content: data}
		if ep, isErr := data.(response.ErrorPage); isErr {
			page.Title = http.StatusText(ep.Status)
		}
	}
	tmpl, ok := r.pages[name]
	if !ok {
		tmpl = r.pages[PageError]
		page.Content = response.ErrorPage{
			Status:  http.StatusInternalServerError,
			Message: "template not found: " + name,
		}
	}
	return render.HTML{Template: tmpl, Name: "layout.html", Data: page}
}
