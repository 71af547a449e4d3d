package blogengine

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubView renders a one-line summary of what a view was handed, enough for
// handler tests to assert on without real templates.
func stubView(name string, p Page, extra ...any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		user := ""
		if p.User != nil {
			user = p.User.Name
		}
		_, err := fmt.Fprintf(w, "view=%s user=%s admin=%t flashes=%q extra=%v",
			name, user, p.IsAdmin, p.Flashes, extra)
		return err
	})
}

func stubViews() ViewFuncs {
	return ViewFuncs{
		Home: func(p Page, posts []BlogPost) templ.Component {
			titles := make([]string, 0, len(posts))
			for _, post := range posts {
				titles = append(titles, post.Title)
			}
			return stubView("home", p, titles)
		},
		Post: func(p Page, post BlogPost, comments []Comment, form CommentForm, errs FieldErrors) templ.Component {
			texts := make([]string, 0, len(comments))
			for _, c := range comments {
				texts = append(texts, c.AuthorName+": "+c.Text)
			}
			return stubView("post", p, post.Title, texts, errs)
		},
		Register: func(p Page, form RegisterForm, errs FieldErrors) templ.Component {
			return stubView("register", p, errs)
		},
		Login: func(p Page, form LoginForm, errs FieldErrors) templ.Component {
			return stubView("login", p, errs)
		},
		PostEditor: func(p Page, postID int64, form PostForm, errs FieldErrors) templ.Component {
			return stubView("editor", p, postID, form.Title, errs)
		},
		About:   func(p Page) templ.Component { return stubView("about", p) },
		Contact: func(p Page) templ.Component { return stubView("contact", p) },
		AdminImages: func(p Page, images []Image) templ.Component {
			names := make([]string, 0, len(images))
			for _, img := range images {
				names = append(names, img.Filename)
			}
			return stubView("images", p, names)
		},
		NotFound:    func(p Page) templ.Component { return stubView("notfound", p) },
		Forbidden:   func(p Page) templ.Component { return stubView("forbidden", p) },
		ServerError: func(p Page) templ.Component { return stubView("error", p) },
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	dir := t.TempDir()
	cfg := SiteConfig{
		Name:          "Test Blog",
		URL:           "https://blog.example.com",
		DatabasePath:  filepath.Join(dir, "blog.db"),
		SessionSecret: testSecret,
	}
	a := New(cfg, stubViews(), WithStaticDir(filepath.Join(dir, "public")))
	require.NoError(t, a.Setup())
	t.Cleanup(func() { a.Close() })
	return a
}

// client is a browser stand-in: it keeps cookies between requests and fills
// in the CSRF token on form posts.
type client struct {
	t       *testing.T
	app     *App
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T, a *App) *client {
	return &client{t: t, app: a, cookies: map[string]*http.Cookie{}}
}

func (c *client) send(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.app.Echo.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	return rec
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.send(httptest.NewRequest(http.MethodGet, path, nil))
}

func (c *client) csrfToken() string {
	if ck, ok := c.cookies["_csrf"]; ok {
		return ck.Value
	}
	c.get("/robots.txt")
	ck, ok := c.cookies["_csrf"]
	require.True(c.t, ok, "no CSRF cookie issued")
	return ck.Value
}

func (c *client) post(path string, form url.Values) *httptest.ResponseRecorder {
	if form == nil {
		form = url.Values{}
	}
	form.Set("_csrf", c.csrfToken())
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.send(req)
}

func (c *client) register(name, email, pass string) *httptest.ResponseRecorder {
	return c.post("/register", url.Values{"name": {name}, "email": {email}, "password": {pass}})
}

func (c *client) login(email, pass string) *httptest.ResponseRecorder {
	return c.post("/login", url.Values{"email": {email}, "password": {pass}})
}

func postForm(title string) url.Values {
	return url.Values{
		"title":    {title},
		"subtitle": {"About " + title},
		"img_url":  {"https://example.com/" + Slugify(title) + ".jpg"},
		"body":     {"<p>Body of " + title + "</p>"},
	}
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	assert.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, location, rec.Header().Get("Location"))
}

// adminAndReader registers the admin (first user) and a second reader, each
// in their own logged-in client.
func adminAndReader(t *testing.T, a *App) (admin, reader *client) {
	admin = newClient(t, a)
	assertRedirect(t, admin.register("Angela", "angela@x.io", "password1"), "/")
	reader = newClient(t, a)
	assertRedirect(t, reader.register("Bob", "bob@x.io", "password2"), "/")
	return admin, reader
}

func TestRegisterLoginLogout(t *testing.T) {
	a := newTestApp(t)
	c := newClient(t, a)

	rec := c.get("/register")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "view=register")

	assertRedirect(t, c.register("Alice", "alice@x.io", "hunter22"), "/")

	u, err := a.Store.UserByEmail(context.Background(), "alice@x.io")
	require.NoError(t, err)
	assert.Equal(t, AdminUserID, u.ID)
	assert.NotEqual(t, "hunter22", u.Password)
	assert.True(t, strings.HasPrefix(u.Password, "$argon2id$"))

	rec = c.get("/")
	assert.Contains(t, rec.Body.String(), "user=Alice admin=true")

	assertRedirect(t, c.get("/logout"), "/")
	assert.Contains(t, c.get("/").Body.String(), "user= admin=false")

	assertRedirect(t, c.login("alice@x.io", "hunter22"), "/")
	assert.Contains(t, c.get("/").Body.String(), "user=Alice")
}

func TestLoginEmailIsCaseInsensitive(t *testing.T) {
	a := newTestApp(t)
	c := newClient(t, a)
	assertRedirect(t, c.register("Alice", "  Alice@X.io ", "hunter22"), "/")
	c.get("/logout")

	assertRedirect(t, c.login("ALICE@x.io", "hunter22"), "/")
	assert.Contains(t, c.get("/").Body.String(), "user=Alice")
}

func TestLogoutRevokesSessionServerSide(t *testing.T) {
	a := newTestApp(t)
	c := newClient(t, a)
	assertRedirect(t, c.register("Alice", "alice@x.io", "hunter22"), "/")

	stolen := map[string]*http.Cookie{}
	for k, v := range c.cookies {
		stolen[k] = v
	}
	c.get("/logout")

	replay := newClient(t, a)
	replay.cookies = stolen
	assert.Contains(t, replay.get("/").Body.String(), "user= admin=false")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	a := newTestApp(t)
	first := newClient(t, a)
	assertRedirect(t, first.register("Alice", "alice@x.io", "hunter22"), "/")

	c := newClient(t, a)
	assertRedirect(t, c.register("Impostor", "ALICE@x.io", "different1"), "/login")

	rec := c.get("/login")
	assert.Contains(t, rec.Body.String(), msgAlreadyRegistered)
	assert.Contains(t, rec.Body.String(), "user= ")

	u, err := a.Store.UserByEmail(context.Background(), "alice@x.io")
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Name)

	// The flash is shown once.
	assert.NotContains(t, c.get("/login").Body.String(), msgAlreadyRegistered)
}

func TestRegisterValidation(t *testing.T) {
	a := newTestApp(t)
	c := newClient(t, a)

	rec := c.register("", "not-an-email", "short")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "name:This field is required.")
	assert.Contains(t, body, "email:Invalid email address.")
	assert.Contains(t, body, "password:Field must be at least 8 characters long.")

	_, err := a.Store.UserByID(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoginRejected(t *testing.T) {
	a := newTestApp(t)
	owner := newClient(t, a)
	assertRedirect(t, owner.register("Alice", "alice@x.io", "hunter22"), "/")

	for _, tc := range []struct{ name, email, pass string }{
		{"wrong password", "alice@x.io", "hunter23"},
		{"unknown email", "nobody@x.io", "hunter22"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := newClient(t, a)
			assertRedirect(t, c.login(tc.email, tc.pass), "/login")
			rec := c.get("/login")
			assert.Contains(t, rec.Body.String(), msgInvalidCredentials)
			assert.Contains(t, rec.Body.String(), "user= admin=false")
		})
	}
}

func TestLoginRateLimited(t *testing.T) {
	a := newTestApp(t)
	c := newClient(t, a)
	assertRedirect(t, c.register("Alice", "alice@x.io", "hunter22"), "/")
	c.get("/logout")

	for i := 0; i < a.Config.LoginAttempts; i++ {
		assertRedirect(t, c.login("alice@x.io", "wrong-pass"), "/login")
	}
	rec := c.login("alice@x.io", "hunter22")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, c.get("/").Body.String(), "user= ")
}

func TestAdminRoutesForbidden(t *testing.T) {
	a := newTestApp(t)
	admin, reader := adminAndReader(t, a)
	assertRedirect(t, admin.post("/new-post", postForm("Hello")), "/")
	anon := newClient(t, a)

	for _, tc := range []struct {
		name string
		c    *client
	}{
		{"reader", reader},
		{"anonymous", anon},
	} {
		t.Run(tc.name, func(t *testing.T) {
			for _, path := range []string{"/new-post", "/edit-post/1", "/delete/1", "/admin/images"} {
				rec := tc.c.get(path)
				assert.Equal(t, http.StatusForbidden, rec.Code, path)
				assert.Contains(t, rec.Body.String(), "view=forbidden", path)
			}
			assert.Equal(t, http.StatusForbidden, tc.c.post("/new-post", postForm("Sneaky")).Code)
			edit := postForm("Defaced")
			assert.Equal(t, http.StatusForbidden, tc.c.post("/edit-post/1", edit).Code)
			assert.Equal(t, http.StatusForbidden, tc.c.post("/delete/1", nil).Code)
		})
	}

	posts, err := a.Store.ListPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "Hello", posts[0].Title)
}

func TestAdminPostLifecycle(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	admin, reader := adminAndReader(t, a)

	rec := admin.get("/new-post")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "view=editor")

	assertRedirect(t, admin.post("/new-post", postForm("Hello")), "/")
	post, err := a.Store.GetPost(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, AdminUserID, post.AuthorID)
	assert.Equal(t, "Angela", post.AuthorName)

	rec = admin.post("/new-post", postForm("Hello"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), msgDuplicateTitle)

	rec = admin.get("/edit-post/1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "extra=[1 Hello")

	edit := postForm("Hello, edited")
	assertRedirect(t, admin.post("/edit-post/1", edit), "/post/1")
	post, err = a.Store.GetPost(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Hello, edited", post.Title)

	assertRedirect(t, reader.post("/post/1", url.Values{"comment_body": {"Nice"}}), "/post/1")

	assertRedirect(t, admin.get("/delete/1"), "/")
	_, err = a.Store.GetPost(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	comments, err := a.Store.ListCommentsForPost(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, comments)

	rec = admin.get("/post/1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "view=notfound")

	assert.Equal(t, http.StatusNotFound, admin.get("/delete/1").Code)
	assert.Equal(t, http.StatusNotFound, admin.get("/edit-post/1").Code)
}

func TestAdminPostValidation(t *testing.T) {
	a := newTestApp(t)
	admin, _ := adminAndReader(t, a)

	form := postForm("Bad")
	form.Set("img_url", "not a url")
	form.Set("body", "<script>alert(1)</script>")
	rec := admin.post("/new-post", form)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "img_url:Invalid URL.")

	form.Set("img_url", "https://example.com/a.jpg")
	rec = admin.post("/new-post", form)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "body:This field is required.")

	posts, err := a.Store.ListPosts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestComments(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	admin, reader := adminAndReader(t, a)
	assertRedirect(t, admin.post("/new-post", postForm("Hello")), "/")
	assertRedirect(t, admin.post("/new-post", postForm("Other")), "/")

	anon := newClient(t, a)
	assertRedirect(t, anon.post("/post/1", url.Values{"comment_body": {"Anon"}}), "/login")
	assert.Contains(t, anon.get("/login").Body.String(), "You need to login or register to comment.")

	assertRedirect(t, reader.post("/post/1", url.Values{"comment_body": {"<b>Great</b><script>x()</script>"}}), "/post/1")
	assertRedirect(t, admin.post("/post/2", url.Values{"comment_body": {"Elsewhere"}}), "/post/2")

	comments, err := a.Store.ListCommentsForPost(ctx, 1)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "<b>Great</b>", comments[0].Text)
	assert.Equal(t, int64(2), comments[0].AuthorID)

	rec := anon.get("/post/1")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Bob: <b>Great</b>")
	assert.NotContains(t, body, "Elsewhere")

	rec = reader.post("/post/1", url.Values{"comment_body": {"   "}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "comment_body:This field is required.")
}

func TestNotFound(t *testing.T) {
	a := newTestApp(t)
	c := newClient(t, a)
	for _, path := range []string{"/post/99", "/post/abc", "/no-such-page"} {
		rec := c.get(path)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "view=notfound", path)
	}
}

func TestCSRFRequired(t *testing.T) {
	a := newTestApp(t)
	req := httptest.NewRequest(http.MethodPost, "/register",
		strings.NewReader(url.Values{"name": {"A"}, "email": {"a@x.io"}, "password": {"password1"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	_, err := a.Store.UserByEmail(context.Background(), "a@x.io")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStaticPages(t *testing.T) {
	a := newTestApp(t)
	admin, _ := adminAndReader(t, a)
	assertRedirect(t, admin.post("/new-post", postForm("Hello")), "/")
	c := newClient(t, a)

	assert.Contains(t, c.get("/about").Body.String(), "view=about")
	assert.Contains(t, c.get("/contact").Body.String(), "view=contact")
	assert.Contains(t, c.get("/").Body.String(), "[Hello]")

	rec := c.get("/robots.txt")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sitemap: https://blog.example.com/sitemap.xml")

	rec = c.get("/sitemap.xml")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<loc>https://blog.example.com/post/1</loc>")

	rec = c.get("/feed.xml")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>Hello</title>")
	assert.Contains(t, rec.Body.String(), "<description>About Hello</description>")
}

func TestAdminImageUpload(t *testing.T) {
	a := newTestApp(t)
	admin, _ := adminAndReader(t, a)

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 2000, 100))))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("_csrf", admin.csrfToken()))
	fw, err := mw.CreateFormFile("image", "Header Photo.png")
	require.NoError(t, err)
	_, err = fw.Write(img.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/admin/images/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	assertRedirect(t, admin.send(req), "/admin/images")

	images, err := a.Store.ListImages(context.Background())
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "header-photo.jpg", images[0].Filename)
	assert.Equal(t, maxImageWidth, images[0].Width)
	assert.Equal(t, 80, images[0].Height)

	path := filepath.Join(a.staticDir, uploadsSubdir, "header-photo.jpg")
	_, err = os.Stat(path)
	require.NoError(t, err)

	assert.Contains(t, admin.get("/admin/images").Body.String(), "[header-photo.jpg]")

	assertRedirect(t, admin.post("/admin/images/header-photo.jpg/delete", nil), "/admin/images")
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	images, err = a.Store.ListImages(context.Background())
	require.NoError(t, err)
	assert.Empty(t, images)
}

func TestAdminDeleteByPost(t *testing.T) {
	a := newTestApp(t)
	admin, _ := adminAndReader(t, a)
	assertRedirect(t, admin.post("/new-post", postForm("Hello")), "/")

	assertRedirect(t, admin.post("/delete/1", nil), "/")
	_, err := a.Store.GetPost(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegisterShortPasswordRejected(t *testing.T) {
	a := newTestApp(t)
	c := newClient(t, a)

	rec := c.register("Alice", "a@x.com", "pw123")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, rec.Header().Get("Location"))
	assert.Contains(t, rec.Body.String(), "password:Field must be at least 8 characters long.")

	_, err := a.Store.UserByEmail(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, ErrNotFound)
}
