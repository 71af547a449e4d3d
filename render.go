package blogengine

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}

// basePage builds the view context without consuming flash messages.
func (a *App) basePage(c echo.Context, title string) Page {
	u := CurrentUser(c)
	return Page{
		Site: a.Config,
		Meta: PageMeta{
			Title:       title,
			Description: a.Config.Description,
			URL:         BuildURL(a.Config.URL) + trimLeadingSlash(c.Request().URL.Path),
			OGType:      "website",
		},
		User:      u,
		IsAdmin:   IsAdmin(u),
		CSRFToken: CsrfToken(c),
	}
}

// page builds the view context and pops pending flash messages into it.
func (a *App) page(c echo.Context, title string) Page {
	p := a.basePage(c, title)
	p.Flashes = popFlashes(c)
	return p
}

func trimLeadingSlash(s string) string {
	if len(s) > 0 && s[0] == '/' {
		return s[1:]
	}
	return s
}
