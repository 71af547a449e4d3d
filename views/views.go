// Package views is the default view set for blogengine. Each view is a
// templ.Component backed by an embedded html/template page rendered inside a
// shared layout. Sites that want their own markup supply their own
// blogengine.ViewFuncs instead.
package views

import (
	"context"
	"embed"
	"html/template"
	"io"

	"github.com/a-h/templ"

	"github.com/eringen/blogengine"
)

//go:embed templates/*.html
var files embed.FS

var funcs = template.FuncMap{
	"avatar": blogengine.AvatarURL,
	"safeHTML": func(s string) template.HTML {
		return template.HTML(blogengine.SanitizeHTML(s))
	},
	"fieldError": func(errs blogengine.FieldErrors, name string) string {
		return errs[name]
	},
}

var pages = map[string]*template.Template{}

func init() {
	for _, name := range []string{
		"home", "post", "register", "login", "editor",
		"about", "contact", "images", "notfound", "forbidden", "error",
	} {
		pages[name] = template.Must(template.New(name).Funcs(funcs).
			ParseFS(files, "templates/layout.html", "templates/"+name+".html"))
	}
}

func component(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return pages[name].ExecuteTemplate(w, "layout", data)
	})
}

type postData struct {
	blogengine.Page
	Post     blogengine.BlogPost
	Comments []blogengine.Comment
	Form     blogengine.CommentForm
	Errors   blogengine.FieldErrors
}

type editorData struct {
	blogengine.Page
	PostID int64
	Form   blogengine.PostForm
	Errors blogengine.FieldErrors
}

type accountData[F any] struct {
	blogengine.Page
	Form   F
	Errors blogengine.FieldErrors
}

// Home lists every post.
func Home(p blogengine.Page, posts []blogengine.BlogPost) templ.Component {
	return component("home", struct {
		blogengine.Page
		Posts []blogengine.BlogPost
	}{p, posts})
}

// Post shows a post, its comments and the comment form.
func Post(p blogengine.Page, post blogengine.BlogPost, comments []blogengine.Comment, form blogengine.CommentForm, errs blogengine.FieldErrors) templ.Component {
	return component("post", postData{p, post, comments, form, errs})
}

func Register(p blogengine.Page, form blogengine.RegisterForm, errs blogengine.FieldErrors) templ.Component {
	return component("register", accountData[blogengine.RegisterForm]{p, form, errs})
}

func Login(p blogengine.Page, form blogengine.LoginForm, errs blogengine.FieldErrors) templ.Component {
	return component("login", accountData[blogengine.LoginForm]{p, form, errs})
}

// PostEditor is the admin create/edit form. postID is 0 for a new post.
func PostEditor(p blogengine.Page, postID int64, form blogengine.PostForm, errs blogengine.FieldErrors) templ.Component {
	return component("editor", editorData{p, postID, form, errs})
}

func About(p blogengine.Page) templ.Component   { return component("about", p) }
func Contact(p blogengine.Page) templ.Component { return component("contact", p) }

func AdminImages(p blogengine.Page, images []blogengine.Image) templ.Component {
	return component("images", struct {
		blogengine.Page
		Images []blogengine.Image
	}{p, images})
}

func NotFound(p blogengine.Page) templ.Component    { return component("notfound", p) }
func Forbidden(p blogengine.Page) templ.Component   { return component("forbidden", p) }
func ServerError(p blogengine.Page) templ.Component { return component("error", p) }

// Default returns the complete default view set.
func Default() blogengine.ViewFuncs {
	return blogengine.ViewFuncs{
		Home:        Home,
		Post:        Post,
		Register:    Register,
		Login:       Login,
		PostEditor:  PostEditor,
		About:       About,
		Contact:     Contact,
		AdminImages: AdminImages,
		NotFound:    NotFound,
		Forbidden:   Forbidden,
		ServerError: ServerError,
	}
}
