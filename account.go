package blogengine

import (
	"errors"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/eringen/blogengine/password"
)

const (
	msgAlreadyRegistered  = "You have already signed up with that email, log in instead."
	msgInvalidCredentials = "Invalid email or password."
)

// dummyDigest is verified against when an email is unknown so a failed login
// costs the same whichever check failed.
var dummyDigest = sync.OnceValue(func() string {
	d, err := password.Hash("no-such-user-placeholder")
	if err != nil {
		return ""
	}
	return d
})

func (a *App) handleRegisterForm(c echo.Context) error {
	return Render(c, a.Views.Register(a.page(c, "Register"), RegisterForm{}, nil))
}

func (a *App) handleRegister(c echo.Context) error {
	ctx := c.Request().Context()
	var form RegisterForm
	errs, err := bindForm(c, &form)
	if err != nil {
		return err
	}
	if errs != nil {
		form.Password = ""
		return RenderStatus(c, http.StatusUnprocessableEntity, a.Views.Register(a.page(c, "Register"), form, errs))
	}

	email := normalizeEmail(form.Email)
	if _, err := a.Store.UserByEmail(ctx, email); err == nil {
		return a.redirectAlreadyRegistered(c)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	digest, err := password.Hash(form.Password)
	if err != nil {
		return err
	}
	user, err := a.Store.CreateUser(ctx, form.Name, email, digest)
	if err != nil {
		// Lost a race with a concurrent registration for the same address.
		if errors.Is(err, ErrDuplicateEmail) {
			return a.redirectAlreadyRegistered(c)
		}
		return err
	}
	c.Logger().Infof("registered user %d", user.ID)
	if err := a.Sessions.Login(c, user.ID); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (a *App) redirectAlreadyRegistered(c echo.Context) error {
	if err := addFlash(c, msgAlreadyRegistered); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}

func (a *App) handleLoginForm(c echo.Context) error {
	return Render(c, a.Views.Login(a.page(c, "Log In"), LoginForm{}, nil))
}

func (a *App) handleLogin(c echo.Context) error {
	ctx := c.Request().Context()
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}

	var form LoginForm
	errs, err := bindForm(c, &form)
	if err != nil {
		return err
	}
	if errs != nil {
		form.Password = ""
		return RenderStatus(c, http.StatusUnprocessableEntity, a.Views.Login(a.page(c, "Log In"), form, errs))
	}

	user, err := a.Store.UserByEmail(ctx, normalizeEmail(form.Email))
	switch {
	case errors.Is(err, ErrNotFound):
		password.Verify(dummyDigest(), form.Password)
		return a.rejectLogin(c, ip)
	case err != nil:
		return err
	}
	if !password.Verify(user.Password, form.Password) {
		return a.rejectLogin(c, ip)
	}

	if password.NeedsRehash(user.Password) {
		if digest, err := password.Hash(form.Password); err == nil {
			if err := a.Store.UpdateUserPassword(ctx, user.ID, digest); err != nil {
				c.Logger().Warnf("rehash password for user %d: %v", user.ID, err)
			}
		}
	}
	if err := a.Sessions.Login(c, user.ID); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (a *App) rejectLogin(c echo.Context, ip string) error {
	a.loginLimiter.Record(ip)
	if err := addFlash(c, msgInvalidCredentials); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}

func (a *App) handleLogout(c echo.Context) error {
	if err := a.Sessions.Logout(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/")
}
