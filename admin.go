package blogengine

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handlers in this file are mounted behind requireAdmin.

const msgDuplicateTitle = "A post with that title already exists."

func (a *App) handleNewPostForm(c echo.Context) error {
	return Render(c, a.Views.PostEditor(a.page(c, "New Post"), 0, PostForm{}, nil))
}

func (a *App) handleNewPost(c echo.Context) error {
	var form PostForm
	errs, err := bindForm(c, &form)
	if err != nil {
		return err
	}
	if errs == nil {
		errs = sanitizePostForm(&form)
	}
	if errs != nil {
		return a.renderPostEditor(c, http.StatusUnprocessableEntity, 0, form, errs, "")
	}

	post, err := a.Store.CreatePost(c.Request().Context(), form.Fields(), CurrentUser(c).ID)
	if err != nil {
		if errors.Is(err, ErrDuplicateTitle) {
			return a.renderPostEditor(c, http.StatusConflict, 0, form, nil, msgDuplicateTitle)
		}
		return err
	}
	c.Logger().Infof("created post %d %q", post.ID, post.Title)
	return c.Redirect(http.StatusSeeOther, "/")
}

func (a *App) handleEditPostForm(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	post, err := a.Store.GetPost(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.ErrNotFound
		}
		return err
	}
	form := PostForm{Title: post.Title, Subtitle: post.Subtitle, ImgURL: post.ImgURL, Body: post.Body}
	return Render(c, a.Views.PostEditor(a.page(c, "Edit Post"), post.ID, form, nil))
}

func (a *App) handleEditPost(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var form PostForm
	errs, err := bindForm(c, &form)
	if err != nil {
		return err
	}
	if errs == nil {
		errs = sanitizePostForm(&form)
	}
	if errs != nil {
		return a.renderPostEditor(c, http.StatusUnprocessableEntity, id, form, errs, "")
	}

	post, err := a.Store.UpdatePost(c.Request().Context(), id, form.Fields())
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.ErrNotFound
		case errors.Is(err, ErrDuplicateTitle):
			return a.renderPostEditor(c, http.StatusConflict, id, form, nil, msgDuplicateTitle)
		}
		return err
	}
	return c.Redirect(http.StatusSeeOther, post.Link())
}

func (a *App) handleDeletePost(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := a.Store.DeletePost(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.ErrNotFound
		}
		return err
	}
	c.Logger().Infof("deleted post %d", id)
	return c.Redirect(http.StatusSeeOther, "/")
}

func (a *App) renderPostEditor(c echo.Context, code int, postID int64, form PostForm, errs FieldErrors, flash string) error {
	title := "New Post"
	if postID != 0 {
		title = "Edit Post"
	}
	p := a.page(c, title)
	if flash != "" {
		p.Flashes = append(p.Flashes, flash)
	}
	return RenderStatus(c, code, a.Views.PostEditor(p, postID, form, errs))
}

// sanitizePostForm cleans the rich-text body in place and rejects a body
// that sanitizes down to nothing.
func sanitizePostForm(form *PostForm) FieldErrors {
	form.Body = SanitizeHTML(form.Body)
	if form.Body == "" {
		return FieldErrors{"body": "This field is required."}
	}
	return nil
}
