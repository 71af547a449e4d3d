package blogengine

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

func (a *App) handleHome(c echo.Context) error {
	posts, err := a.Store.ListPosts(c.Request().Context())
	if err != nil {
		return err
	}
	return Render(c, a.Views.Home(a.page(c, a.Config.Name), posts))
}

func (a *App) handleAbout(c echo.Context) error {
	return Render(c, a.Views.About(a.page(c, "About")))
}

func (a *App) handleContact(c echo.Context) error {
	return Render(c, a.Views.Contact(a.page(c, "Contact")))
}

// handleShowPost serves a post with its comments. A POST adds a comment and
// requires an authenticated user.
func (a *App) handleShowPost(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	post, err := a.Store.GetPost(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.ErrNotFound
		}
		return err
	}

	var form CommentForm
	var errs FieldErrors
	if c.Request().Method == http.MethodPost {
		user := CurrentUser(c)
		if user == nil {
			if err := addFlash(c, "You need to login or register to comment."); err != nil {
				return err
			}
			return c.Redirect(http.StatusSeeOther, "/login")
		}
		errs, err = bindForm(c, &form)
		if err != nil {
			return err
		}
		if errs == nil {
			text := SanitizeHTML(form.Body)
			if text == "" {
				errs = FieldErrors{"comment_body": "This field is required."}
			} else {
				if _, err := a.Store.CreateComment(ctx, text, user.ID, post.ID); err != nil {
					if errors.Is(err, ErrNotFound) {
						return echo.ErrNotFound
					}
					return err
				}
				return c.Redirect(http.StatusSeeOther, post.Link())
			}
		}
	}

	comments, err := a.Store.ListCommentsForPost(ctx, post.ID)
	if err != nil {
		return err
	}
	p := a.page(c, post.Title)
	p.Meta.Description = post.Subtitle
	p.Meta.OGType = "article"
	status := http.StatusOK
	if errs != nil {
		status = http.StatusUnprocessableEntity
	}
	return RenderStatus(c, status, a.Views.Post(p, post, comments, form, errs))
}

// handleRobots generates robots.txt dynamically using the site URL.
func (a *App) handleRobots(c echo.Context) error {
	body := fmt.Sprintf("User-agent: *\nAllow: /\nDisallow: /new-post\nDisallow: /edit-post/\nDisallow: /delete/\nDisallow: /admin/\n\nSitemap: %s/sitemap.xml\n", a.Config.URL)
	return c.String(http.StatusOK, body)
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Store.ListPosts(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Store.ListPosts(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	switch {
	case code == http.StatusNotFound:
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.basePage(c, "Not Found")))
	case code == http.StatusForbidden:
		_ = RenderStatus(c, http.StatusForbidden, a.Views.Forbidden(a.basePage(c, "Forbidden")))
	case code >= 500:
		c.Logger().Errorf("server error: %v", err)
		_ = RenderStatus(c, code, a.Views.ServerError(a.basePage(c, "Error")))
	default:
		a.Echo.DefaultHTTPErrorHandler(err, c)
	}
}
