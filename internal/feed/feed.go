// Package feed keeps the session's in-memory view of the posts and applies
// mutations to it. The repository is always the source of truth: every
// mutation is persisted first and reflected in the cache only once the write
// succeeded, so a failed write leaves the cache as it was.
package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"socialconnect/internal/delay"
	"socialconnect/internal/models"
	"socialconnect/internal/seed"

	"go.uber.org/zap"
)

var (
	ErrNotAuthenticated = errors.New("no current user")
	ErrEmptyContent     = errors.New("content is empty")
	ErrPostNotFound     = errors.New("post not found")
	ErrCommentNotFound  = errors.New("comment not found")
	ErrNotAuthor        = errors.New("only the author can delete a post")
)

// Repository is the persistence the feed needs.
type Repository interface {
	ListPosts(ctx context.Context) models.Feed
	SeedIfEmpty(ctx context.Context, posts models.Feed) (bool, error)
	AddPost(ctx context.Context, p models.Post) error
	DeletePost(ctx context.Context, postID string) error
	AddComment(ctx context.Context, postID string, c models.Comment) error
	TogglePostLike(ctx context.Context, postID string) error
	ToggleCommentLike(ctx context.Context, postID, commentID string) error
	IncrementShare(ctx context.Context, postID string) error
}

type Manager struct {
	repo      Repository
	seeds     seed.Provider
	log       *zap.Logger
	seedDelay time.Duration
	newID     func() string
	now       func() time.Time

	mu      sync.Mutex
	user    *models.User
	posts   models.Feed
	loading bool
	pending *delay.Task
	// gen changes whenever the user changes, so a load started for a
	// previous user cannot overwrite the cache.
	gen uint64
}

type Option func(*Manager)

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithSeeds sets the provider used when the store is empty on load.
func WithSeeds(p seed.Provider) Option {
	return func(m *Manager) { m.seeds = p }
}

// WithSeedDelay sets the pause between seeding and the reload that follows.
func WithSeedDelay(d time.Duration) Option {
	return func(m *Manager) { m.seedDelay = d }
}

func WithIDFunc(fn func() string) Option {
	return func(m *Manager) { m.newID = fn }
}

func WithClock(fn func() time.Time) Option {
	return func(m *Manager) { m.now = fn }
}

func New(repo Repository, opts ...Option) *Manager {
	m := &Manager{
		repo:  repo,
		log:   zap.NewNop(),
		newID: models.NewID,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(m)
	}
	m.log = m.log.Named("feed")
	return m
}

// ----------------------------
// Session scope
// ----------------------------

// SetUser switches the feed to u and loads its posts; nil clears the cache.
func (m *Manager) SetUser(ctx context.Context, u *models.User) *delay.Task {
	m.mu.Lock()
	m.cancelPendingLocked()
	m.gen++
	if u == nil {
		m.user = nil
		m.posts = nil
		m.loading = false
		m.mu.Unlock()
		return delay.Completed(nil)
	}
	cp := *u
	m.user = &cp
	m.mu.Unlock()
	return m.Load(ctx)
}

// Load re-derives the cache from the repository. An empty store is seeded
// first and re-read after the seed delay. ctx must outlive the task.
func (m *Manager) Load(ctx context.Context) *delay.Task {
	m.mu.Lock()
	if m.user == nil {
		m.mu.Unlock()
		return delay.Completed(ErrNotAuthenticated)
	}
	m.cancelPendingLocked()
	gen := m.gen
	m.loading = true
	m.mu.Unlock()

	posts := m.repo.ListPosts(ctx)
	if len(posts) > 0 || m.seeds == nil {
		m.apply(gen, posts)
		return delay.Completed(nil)
	}

	seeded, err := m.repo.SeedIfEmpty(ctx, m.seeds.Posts())
	if err != nil {
		m.log.Error("feed.Load: seeding failed", zap.Error(err))
		err = fmt.Errorf("feed.Load: %w", err)
	} else if seeded {
		m.log.Info("feed.Load: seeded empty store")
	}

	t := delay.After(m.seedDelay, func() error {
		m.apply(gen, m.repo.ListPosts(ctx))
		return err
	})
	m.mu.Lock()
	if t.Pending() && gen == m.gen {
		m.pending = t
	}
	m.mu.Unlock()
	return t
}

func (m *Manager) apply(gen uint64, posts models.Feed) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return
	}
	m.posts = posts
	m.loading = false
	m.pending = nil
}

func (m *Manager) cancelPendingLocked() {
	if m.pending != nil {
		m.pending.Cancel()
		m.pending = nil
	}
}

// Close cancels a pending reload.
func (m *Manager) Close() {
	m.mu.Lock()
	m.cancelPendingLocked()
	m.mu.Unlock()
}

// Posts returns a copy of the cached feed, newest first.
func (m *Manager) Posts() models.Feed {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.posts.Clone()
}

func (m *Manager) CurrentUser() (models.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return models.User{}, false
	}
	return *m.user, true
}

func (m *Manager) IsLoading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// ----------------------------
// Mutations
// ----------------------------

// lookup checks there is a user and that postID is in the cache.
func (m *Manager) lookup(postID string) (models.User, models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return models.User{}, models.Post{}, ErrNotAuthenticated
	}
	p, ok := m.posts.Find(postID)
	if !ok {
		return *m.user, models.Post{}, fmt.Errorf("%w: %s", ErrPostNotFound, postID)
	}
	return *m.user, p, nil
}

// persist runs the repository write and logs a failure.
func (m *Manager) persist(op string, write func() error, fields ...zap.Field) error {
	if err := write(); err != nil {
		m.log.Error("feed."+op+": persist failed", append(fields, zap.Error(err))...)
		return fmt.Errorf("feed.%s: %w", op, err)
	}
	return nil
}

func (m *Manager) reflect(fn func()) {
	m.mu.Lock()
	fn()
	m.mu.Unlock()
}

// CreatePost publishes a post by the current user at the top of the feed.
func (m *Manager) CreatePost(ctx context.Context, content, image string) (models.Post, error) {
	u, ok := m.CurrentUser()
	if !ok {
		return models.Post{}, ErrNotAuthenticated
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Post{}, ErrEmptyContent
	}

	p := models.Post{
		ID:        m.newID(),
		Author:    u,
		Content:   content,
		Image:     strings.TrimSpace(image),
		CreatedAt: m.now(),
		Comments:  []models.Comment{},
	}
	if err := m.persist("CreatePost", func() error { return m.repo.AddPost(ctx, p) }, zap.String("post_id", p.ID)); err != nil {
		return models.Post{}, err
	}
	m.reflect(func() { m.posts = m.posts.Prepend(p.Clone()) })
	return p, nil
}

// LikePost toggles the current user's like on a post.
func (m *Manager) LikePost(ctx context.Context, postID string) error {
	if _, _, err := m.lookup(postID); err != nil {
		return err
	}
	if err := m.persist("LikePost", func() error { return m.repo.TogglePostLike(ctx, postID) }, zap.String("post_id", postID)); err != nil {
		return err
	}
	m.reflect(func() { m.posts.Update(postID, (*models.Post).ToggleLike) })
	return nil
}

// CommentOnPost appends a comment by the current user.
func (m *Manager) CommentOnPost(ctx context.Context, postID, content string) (models.Comment, error) {
	u, _, err := m.lookup(postID)
	if err != nil {
		return models.Comment{}, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Comment{}, ErrEmptyContent
	}

	c := models.Comment{
		ID:        m.newID(),
		Author:    u,
		Content:   content,
		CreatedAt: m.now(),
	}
	if err := m.persist("CommentOnPost", func() error { return m.repo.AddComment(ctx, postID, c) }, zap.String("post_id", postID)); err != nil {
		return models.Comment{}, err
	}
	m.reflect(func() { m.posts.Update(postID, func(p *models.Post) { p.AddComment(c) }) })
	return c, nil
}

// SharePost counts one share. Shares cannot be undone.
func (m *Manager) SharePost(ctx context.Context, postID string) error {
	if _, _, err := m.lookup(postID); err != nil {
		return err
	}
	if err := m.persist("SharePost", func() error { return m.repo.IncrementShare(ctx, postID) }, zap.String("post_id", postID)); err != nil {
		return err
	}
	m.reflect(func() { m.posts.Update(postID, (*models.Post).Share) })
	return nil
}

// DeletePost removes a post written by the current user.
func (m *Manager) DeletePost(ctx context.Context, postID string) error {
	u, p, err := m.lookup(postID)
	if err != nil {
		return err
	}
	if p.Author.ID != u.ID {
		return ErrNotAuthor
	}
	if err := m.persist("DeletePost", func() error { return m.repo.DeletePost(ctx, postID) }, zap.String("post_id", postID)); err != nil {
		return err
	}
	m.reflect(func() { m.posts, _ = m.posts.Delete(postID) })
	return nil
}

// LikeComment toggles the current user's like on one comment.
func (m *Manager) LikeComment(ctx context.Context, postID, commentID string) error {
	_, p, err := m.lookup(postID)
	if err != nil {
		return err
	}
	if _, ok := p.FindComment(commentID); !ok {
		return fmt.Errorf("%w: %s", ErrCommentNotFound, commentID)
	}
	if err := m.persist("LikeComment", func() error { return m.repo.ToggleCommentLike(ctx, postID, commentID) },
		zap.String("post_id", postID), zap.String("comment_id", commentID)); err != nil {
		return err
	}
	m.reflect(func() {
		m.posts.Update(postID, func(p *models.Post) { p.UpdateComment(commentID, (*models.Comment).ToggleLike) })
	})
	return nil
}
