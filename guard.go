package blogengine

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// IsAdmin reports whether u holds the administrative capability. Anonymous
// (nil) users never do.
func IsAdmin(u *User) bool {
	return u != nil && u.ID == AdminUserID
}

// RequireAdmin returns ErrForbidden unless u is the admin identity.
func RequireAdmin(u *User) error {
	if !IsAdmin(u) {
		return ErrForbidden
	}
	return nil
}

// requireAdmin short-circuits privileged routes with 403 before the handler runs.
func (a *App) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := RequireAdmin(CurrentUser(c)); err != nil {
			return echo.NewHTTPError(http.StatusForbidden)
		}
		return next(c)
	}
}
