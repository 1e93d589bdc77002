package dao

import (
	"context"
	"sort"
	"sync"

	"github.com/Laisky/errors/v2"

	"github.com/Laisky/laisky-blog-rest/internal/web/blog/model"
)

// Memory keeps documents in process memory
type Memory struct {
	mu    sync.RWMutex
	posts []*model.Post
	users []*model.User
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{}
}

// Setup implements Store
func (m *Memory) Setup(context.Context) error { return nil }

// Close implements Store
func (m *Memory) Close(context.Context) error { return nil }

func (m *Memory) postIndex(id string) int {
	for i, p := range m.posts {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// ListPosts implements PostStore
func (m *Memory) ListPosts(_ context.Context, opt model.ListOptions) ([]*model.Post, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return filterPosts(m.posts, opt)
}

// filterPosts applies opt to posts kept in insertion order
func filterPosts(posts []*model.Post, opt model.ListOptions) ([]*model.Post, int, error) {
	matched := make([]*model.Post, 0, len(posts))
	for _, p := range posts {
		if opt.AuthorID != "" && p.AuthorID != opt.AuthorID {
			continue
		}
		if opt.UserID != "" && p.UserID != opt.UserID {
			continue
		}
		matched = append(matched, p.Clone())
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if opt.Desc {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	total := len(matched)
	offset := opt.Offset()
	if offset >= total {
		return []*model.Post{}, total, nil
	}
	matched = matched[offset:]
	if opt.Limit > 0 && len(matched) > opt.Limit {
		matched = matched[:opt.Limit]
	}

	return matched, total, nil
}

// GetPost implements PostStore
func (m *Memory) GetPost(_ context.Context, id string) (*model.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.postIndex(id)
	if i < 0 {
		return nil, notFound("post", id)
	}
	return m.posts[i].Clone(), nil
}

// InsertPost implements PostStore
func (m *Memory) InsertPost(_ context.Context, p *model.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.insertPostLocked(p)
}

func (m *Memory) insertPostLocked(p *model.Post) error {
	if p.ID == "" {
		p.ID = NewID()
	}
	if m.postIndex(p.ID) >= 0 {
		return errors.Errorf("post %q already exists", p.ID)
	}

	m.posts = append(m.posts, p.Clone())
	return nil
}

// ReplacePost implements PostStore
func (m *Memory) ReplacePost(_ context.Context, p *model.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.replacePostLocked(p)
}

func (m *Memory) replacePostLocked(p *model.Post) error {
	i := m.postIndex(p.ID)
	if i < 0 {
		return notFound("post", p.ID)
	}

	m.posts[i] = p.Clone()
	return nil
}

// RemovePost implements PostStore
func (m *Memory) RemovePost(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.removePostLocked(id)
}

func (m *Memory) removePostLocked(id string) error {
	i := m.postIndex(id)
	if i < 0 {
		return notFound("post", id)
	}

	m.posts = append(m.posts[:i:i], m.posts[i+1:]...)
	return nil
}

// InsertUser implements UserStore
func (m *Memory) InsertUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.insertUserLocked(u)
}

func (m *Memory) insertUserLocked(u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return errors.Wrapf(model.ErrUserExists, "email %q", u.Email)
		}
	}
	if u.ID == "" {
		u.ID = NewID()
	}

	cp := *u
	m.users = append(m.users, &cp)
	return nil
}

// GetUserByID implements UserStore
func (m *Memory) GetUserByID(_ context.Context, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, notFound("user", id)
}

// GetUserByEmail implements UserStore
func (m *Memory) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	email = normalizeEmail(email)

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, notFound("user", email)
}
