package blogengine

import "strconv"

// AdminUserID is the id of the one user allowed to create, edit and delete posts.
const AdminUserID int64 = 1

// User is a registered account. Password holds the encoded digest only.
type User struct {
	ID       int64
	Name     string
	Email    string
	Password string
}

// PostFields are the author-editable parts of a BlogPost.
type PostFields struct {
	Title    string
	Subtitle string
	Body     string
	ImgURL   string
}

// BlogPost is the core content type stored in SQLite and rendered by templates.
type BlogPost struct {
	ID         int64
	Title      string
	Subtitle   string
	Date       string
	Body       string
	ImgURL     string
	AuthorID   int64
	AuthorName string
}

// Fields returns the editable subset of p.
func (p BlogPost) Fields() PostFields {
	return PostFields{Title: p.Title, Subtitle: p.Subtitle, Body: p.Body, ImgURL: p.ImgURL}
}

// Link is the site-relative URL of the post page.
func (p BlogPost) Link() string {
	return "/post/" + strconv.FormatInt(p.ID, 10)
}

// Comment is a reader's remark on a post. Comments are immutable once stored.
type Comment struct {
	ID          int64
	Text        string
	AuthorID    int64
	AuthorName  string
	AuthorEmail string
	PostID      int64
}

// Image is an uploaded header image served from /public/uploads/.
type Image struct {
	Filename     string
	OriginalName string
	Width        int
	Height       int
	Size         int
	UploadedAt   string
}

// URL is the site-relative path of the image.
func (i Image) URL() string {
	return "/public/" + uploadsSubdir + "/" + i.Filename
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
}
