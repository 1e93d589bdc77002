package dao

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/Laisky/errors/v2"

	"github.com/Laisky/laisky-blog-rest/internal/web/blog/model"
)

// docID accepts both string and numeric ids,
// json-server databases usually carry numeric ones
type docID string

// UnmarshalJSON implements json.Unmarshaler
func (id *docID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errors.Wrap(err, "decode string id")
		}
		*id = docID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.Wrapf(err, "decode id %s", data)
	}
	*id = docID(n.String())
	return nil
}

type filePost struct {
	ID        docID      `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Image     string     `json:"image,omitempty"`
	UserID    docID      `json:"userId"`
	AuthorID  docID      `json:"authorId"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

type fileUser struct {
	ID        docID      `json:"id"`
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	Name      string     `json:"name,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

type dbFile struct {
	Blogs []filePost `json:"blogs"`
	Users []fileUser `json:"users"`
}

// Snapshot is the full content of a json-server database file
type Snapshot struct {
	Posts []*model.Post
	Users []*model.User
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// ReadDBFile loads a json-server `db.json`.
//
// Missing owner fields fall back to each other, json-server-auth
// databases often only carry `userId`.
func ReadDBFile(path string) (*Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %q", path)
	}

	var f dbFile
	if len(bytes.TrimSpace(raw)) > 0 {
		if err = json.Unmarshal(raw, &f); err != nil {
			return nil, errors.Wrapf(err, "decode %q", path)
		}
	}

	snap := &Snapshot{
		Posts: make([]*model.Post, 0, len(f.Blogs)),
		Users: make([]*model.User, 0, len(f.Users)),
	}
	for _, fp := range f.Blogs {
		p := &model.Post{
			ID:        string(fp.ID),
			Title:     fp.Title,
			Content:   fp.Content,
			Image:     fp.Image,
			UserID:    string(fp.UserID),
			AuthorID:  string(fp.AuthorID),
			CreatedAt: timeOrZero(fp.CreatedAt),
			UpdatedAt: timeOrZero(fp.UpdatedAt),
		}
		if p.AuthorID == "" {
			p.AuthorID = p.UserID
		}
		if p.UserID == "" {
			p.UserID = p.AuthorID
		}
		snap.Posts = append(snap.Posts, p)
	}
	for _, fu := range f.Users {
		snap.Users = append(snap.Users, &model.User{
			ID:        string(fu.ID),
			Email:     normalizeEmail(fu.Email),
			Name:      fu.Name,
			Password:  fu.Password,
			CreatedAt: timeOrZero(fu.CreatedAt),
		})
	}

	return snap, nil
}

// WriteDBFile atomically replaces path with snap
func WriteDBFile(path string, snap *Snapshot) error {
	f := dbFile{
		Blogs: make([]filePost, 0, len(snap.Posts)),
		Users: make([]fileUser, 0, len(snap.Users)),
	}
	for _, p := range snap.Posts {
		f.Blogs = append(f.Blogs, filePost{
			ID:        docID(p.ID),
			Title:     p.Title,
			Content:   p.Content,
			Image:     p.Image,
			UserID:    docID(p.UserID),
			AuthorID:  docID(p.AuthorID),
			CreatedAt: timePtr(p.CreatedAt),
			UpdatedAt: timePtr(p.UpdatedAt),
		})
	}
	for _, u := range snap.Users {
		f.Users = append(f.Users, fileUser{
			ID:        docID(u.ID),
			Email:     u.Email,
			Password:  u.Password,
			Name:      u.Name,
			CreatedAt: timePtr(u.CreatedAt),
		})
	}

	raw, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode db file")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer os.Remove(tmp.Name()) // nolint: errcheck

	if _, err = tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "write temp file")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "replace %q", path)
	}

	return nil
}

// JSONFile is a Memory store persisted to a json-server `db.json`
type JSONFile struct {
	*Memory
	path string
}

// OpenJSONFile loads path, or starts empty when it does not exist yet
func OpenJSONFile(path string) (*JSONFile, error) {
	if path == "" {
		return nil, errors.New("jsonfile path is required")
	}

	s := &JSONFile{Memory: NewMemory(), path: path}
	snap, err := ReadDBFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, err
	}

	s.posts = snap.Posts
	s.users = snap.Users
	return s, nil
}

// Setup writes the file when it does not exist yet
func (s *JSONFile) Setup(context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrapf(err, "create dir for %q", s.path)
	}
	if _, err := os.Stat(s.path); err == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

func (s *JSONFile) persistLocked() error {
	return WriteDBFile(s.path, &Snapshot{Posts: s.posts, Users: s.users})
}

// mutate applies op and persists the result, rolling back on failure
func (s *JSONFile) mutate(op func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts := append([]*model.Post(nil), s.posts...)
	users := append([]*model.User(nil), s.users...)
	if err := op(); err != nil {
		return err
	}

	if err := s.persistLocked(); err != nil {
		s.posts, s.users = posts, users
		return err
	}

	return nil
}

// InsertPost implements PostStore
func (s *JSONFile) InsertPost(_ context.Context, p *model.Post) error {
	return s.mutate(func() error { return s.insertPostLocked(p) })
}

// ReplacePost implements PostStore
func (s *JSONFile) ReplacePost(_ context.Context, p *model.Post) error {
	return s.mutate(func() error { return s.replacePostLocked(p) })
}

// RemovePost implements PostStore
func (s *JSONFile) RemovePost(_ context.Context, id string) error {
	return s.mutate(func() error { return s.removePostLocked(id) })
}

// InsertUser implements UserStore
func (s *JSONFile) InsertUser(_ context.Context, u *model.User) error {
	return s.mutate(func() error { return s.insertUserLocked(u) })
}
