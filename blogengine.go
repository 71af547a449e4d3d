// Package blogengine is a small blogging application built with Go, Echo, and templ.
// Readers register, log in and comment; the admin identity writes, edits and
// deletes posts.
//
// Users provide their own templ components via the ViewFuncs struct, and
// blogengine handles the handler logic, sessions, middleware and database.
package blogengine

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// Page is the per-request context every view receives.
type Page struct {
	Site      SiteConfig
	Meta      PageMeta
	User      *User // nil when anonymous
	IsAdmin   bool
	Flashes   []string
	CSRFToken string
}

// ViewFuncs holds user-provided templ components that the framework calls
// when rendering pages. This is the inversion-of-control mechanism that
// lets users own and customize all templates.
type ViewFuncs struct {
	Home        func(p Page, posts []BlogPost) templ.Component
	Post        func(p Page, post BlogPost, comments []Comment, form CommentForm, errs FieldErrors) templ.Component
	Register    func(p Page, form RegisterForm, errs FieldErrors) templ.Component
	Login       func(p Page, form LoginForm, errs FieldErrors) templ.Component
	PostEditor  func(p Page, postID int64, form PostForm, errs FieldErrors) templ.Component // postID 0 means a new post
	About       func(p Page) templ.Component
	Contact     func(p Page) templ.Component
	AdminImages func(p Page, images []Image) templ.Component
	NotFound    func(p Page) templ.Component
	Forbidden   func(p Page) templ.Component
	ServerError func(p Page) templ.Component
}

// App is the central blogengine application. It wires together the store,
// sessions, handlers, middleware, and user-provided templates.
type App struct {
	Config   SiteConfig
	Echo     *echo.Echo
	Store    *Store
	Sessions *SessionManager
	Views    ViewFuncs

	loginLimiter *LoginLimiter
	customRoutes []func(*App)
	staticDir    string
	ready        bool
}

// New creates a new App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	e := echo.New()
	e.HideBanner = true

	a := &App{
		Config:    cfg,
		Echo:      e,
		Views:     views,
		staticDir: "public",
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Setup opens the database and registers middleware and routes without
// starting the listener. Start calls it; tests call it directly.
func (a *App) Setup() error {
	if a.ready {
		return nil
	}
	if err := a.Config.validate(); err != nil {
		return err
	}

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("blogengine: init store: %w", err)
	}
	a.Store = store
	a.Sessions = NewSessionManager(store, a.Config.SessionTTL)
	a.loginLimiter = NewLoginLimiter(a.Config.LoginAttempts, a.Config.LoginWindow)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.ready = true
	return nil
}

// Start initializes the app and starts the server. It blocks until the
// server stops.
func (a *App) Start() error {
	if err := a.Setup(); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server and releases resources.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Echo.Shutdown(ctx)
	if cerr := a.Close(); err == nil {
		err = cerr
	}
	return err
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.loginLimiter != nil {
		a.loginLimiter.Close()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/public", a.staticDir)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)

	// Public routes
	e.GET("/", a.handleHome)
	e.POST("/", a.handleHome)
	e.GET("/about", a.handleAbout)
	e.GET("/contact", a.handleContact)
	e.GET("/post/:id", a.handleShowPost)
	e.POST("/post/:id", a.handleShowPost)

	// Account routes
	e.GET("/register", a.handleRegisterForm)
	e.POST("/register", a.handleRegister)
	e.GET("/login", a.handleLoginForm)
	e.POST("/login", a.handleLogin)
	e.GET("/logout", a.handleLogout)

	// Admin routes. The guard runs as route middleware so a denied request
	// never reaches the handler.
	admin := a.requireAdmin
	e.GET("/new-post", a.handleNewPostForm, admin)
	e.POST("/new-post", a.handleNewPost, admin)
	e.GET("/edit-post/:id", a.handleEditPostForm, admin)
	e.POST("/edit-post/:id", a.handleEditPost, admin)
	e.GET("/delete/:id", a.handleDeletePost, admin)
	e.POST("/delete/:id", a.handleDeletePost, admin)
	e.GET("/admin/images", a.handleImageList, admin)
	e.POST("/admin/images/upload", a.handleImageUpload, admin)
	e.POST("/admin/images/:filename/delete", a.handleImageDelete, admin)
}
