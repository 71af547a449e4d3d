package blogengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database and provides CRUD for users, posts, comments,
// sessions and images.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	// Pragmas go in the DSN so every pooled connection gets them; foreign_keys
	// in particular is per-connection in SQLite. WAL lets readers proceed during
	// a write, busy_timeout makes writers wait instead of failing with
	// SQLITE_BUSY, and immediate transactions take the write lock up front.
	dsn := path + "?_pragma=foreign_keys(1)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	goose.SetBaseFS(Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	return goose.Up(s.db, "migrations")
}

// withTx runs fn inside a transaction, rolling back on any error.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// --- users ---

// CreateUser inserts a new user. passwordHash must already be a digest.
func (s *Store) CreateUser(ctx context.Context, name, email, passwordHash string) (User, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (name, email, password) VALUES (?, ?, ?)`,
		name, email, passwordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrDuplicateEmail
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return User{}, err
	}
	return User{ID: id, Name: name, Email: email, Password: passwordHash}, nil
}

// UserByEmail looks a user up by email, ignoring case.
func (s *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password FROM users WHERE email = ?`, email))
}

// UserByID looks a user up by id.
func (s *Store) UserByID(ctx context.Context, id int64) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password FROM users WHERE id = ?`, id))
}

func scanUser(row *sql.Row) (User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// UpdateUserPassword replaces a user's password digest.
func (s *Store) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password = ? WHERE id = ?`, passwordHash, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// --- posts ---

const postColumns = `p.id, p.title, p.subtitle, p.date, p.body, p.img_url, p.author_id, u.name`

func scanPost(sc interface{ Scan(...any) error }) (BlogPost, error) {
	var p BlogPost
	err := sc.Scan(&p.ID, &p.Title, &p.Subtitle, &p.Date, &p.Body, &p.ImgURL, &p.AuthorID, &p.AuthorName)
	return p, err
}

// ListPosts returns every post in id (insertion) order.
func (s *Store) ListPosts(ctx context.Context) ([]BlogPost, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM blog_posts p JOIN users u ON u.id = p.author_id ORDER BY p.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []BlogPost
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// GetPost returns a single post by id.
func (s *Store) GetPost(ctx context.Context, id int64) (BlogPost, error) {
	return getPost(ctx, s.db, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getPost(ctx context.Context, q queryRower, id int64) (BlogPost, error) {
	p, err := scanPost(q.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM blog_posts p JOIN users u ON u.id = p.author_id WHERE p.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return BlogPost{}, ErrNotFound
		}
		return BlogPost{}, err
	}
	return p, nil
}

// CreatePost inserts a post authored by authorID, dated today.
func (s *Store) CreatePost(ctx context.Context, f PostFields, authorID int64) (BlogPost, error) {
	date := time.Now().Format(postDateLayout)
	var post BlogPost
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO blog_posts (author_id, title, subtitle, date, body, img_url) VALUES (?, ?, ?, ?, ?, ?)`,
			authorID, f.Title, f.Subtitle, date, f.Body, f.ImgURL)
		if err != nil {
			switch {
			case isUniqueViolation(err):
				return ErrDuplicateTitle
			case isForeignKeyViolation(err):
				return fmt.Errorf("author %d: %w", authorID, ErrNotFound)
			}
			return fmt.Errorf("insert post: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		post, err = getPost(ctx, tx, id)
		return err
	})
	return post, err
}

// UpdatePost replaces the editable fields of post id. Author and date are kept.
func (s *Store) UpdatePost(ctx context.Context, id int64, f PostFields) (BlogPost, error) {
	var post BlogPost
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE blog_posts SET title = ?, subtitle = ?, body = ?, img_url = ? WHERE id = ?`,
			f.Title, f.Subtitle, f.Body, f.ImgURL, id)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateTitle
			}
			return fmt.Errorf("update post: %w", err)
		}
		if err := expectOneRow(res); err != nil {
			return err
		}
		post, err = getPost(ctx, tx, id)
		return err
	})
	return post, err
}

// DeletePost removes a post together with all of its comments.
func (s *Store) DeletePost(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE post_id = ?`, id); err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM blog_posts WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete post: %w", err)
		}
		return expectOneRow(res)
	})
}

// --- comments ---

// ListCommentsForPost returns a post's comments in id order with author details.
func (s *Store) ListCommentsForPost(ctx context.Context, postID int64) ([]Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT c.id, c.text, c.author_id, u.name, u.email, c.post_id
FROM comments c JOIN users u ON u.id = c.author_id
WHERE c.post_id = ?
ORDER BY c.id`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.Text, &c.AuthorID, &c.AuthorName, &c.AuthorEmail, &c.PostID); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// CreateComment stores a comment. It fails with ErrNotFound if either the post
// or the author does not exist.
func (s *Store) CreateComment(ctx context.Context, text string, authorID, postID int64) (Comment, error) {
	var c Comment
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		author, err := scanUser(tx.QueryRowContext(ctx, `SELECT id, name, email, password FROM users WHERE id = ?`, authorID))
		if err != nil {
			return fmt.Errorf("author %d: %w", authorID, err)
		}
		if _, err := getPost(ctx, tx, postID); err != nil {
			return fmt.Errorf("post %d: %w", postID, err)
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO comments (author_id, post_id, text) VALUES (?, ?, ?)`, authorID, postID, text)
		if err != nil {
			if isForeignKeyViolation(err) {
				return ErrNotFound
			}
			return fmt.Errorf("insert comment: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		c = Comment{
			ID:          id,
			Text:        text,
			AuthorID:    author.ID,
			AuthorName:  author.Name,
			AuthorEmail: author.Email,
			PostID:      postID,
		}
		return nil
	})
	return c, err
}

// --- sessions ---

// CreateSession records token as belonging to userID until expires.
func (s *Store) CreateSession(ctx context.Context, token string, userID int64, expires time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		token, userID, time.Now().Unix(), expires.Unix())
	if err != nil && isForeignKeyViolation(err) {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return err
}

// SessionUser resolves an unexpired token to its user.
func (s *Store) SessionUser(ctx context.Context, token string, now time.Time) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
SELECT u.id, u.name, u.email, u.password
FROM sessions s JOIN users u ON u.id = s.user_id
WHERE s.token = ? AND s.expires_at > ?`, token, now.Unix()))
}

// DeleteSession removes a token. Deleting an unknown token is not an error.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return err
}

// DeleteExpiredSessions removes every session that expired before now.
func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- images ---

// SaveImage upserts image metadata.
func (s *Store) SaveImage(ctx context.Context, img Image) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO images (filename, original_name, width, height, size, uploaded_at) VALUES (?, ?, ?, ?, ?, ?)`,
		img.Filename, img.OriginalName, img.Width, img.Height, img.Size, img.UploadedAt)
	return err
}

// ListImages returns uploaded images, newest first.
func (s *Store) ListImages(ctx context.Context) ([]Image, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT filename, original_name, width, height, size, uploaded_at FROM images ORDER BY uploaded_at DESC, filename`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []Image
	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.Filename, &img.OriginalName, &img.Width, &img.Height, &img.Size, &img.UploadedAt); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// ImageExists reports whether filename is already recorded.
func (s *Store) ImageExists(ctx context.Context, filename string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM images WHERE filename = ?`, filename).Scan(&n)
	return n > 0, err
}

// DeleteImage removes image metadata by filename.
func (s *Store) DeleteImage(ctx context.Context, filename string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE filename = ?`, filename)
	return err
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
