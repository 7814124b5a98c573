// Package repository owns the durable representation of users, posts and
// comments. It is the only package that talks to a storage.Store.
//
// Every post mutation is a whole-collection replace: the stored sequence is
// decoded, transformed and written back under one key. Mutations are
// serialised with a mutex so concurrent callers in one process cannot lose
// updates; writers in other processes are not coordinated.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"socialconnect/internal/models"
	"socialconnect/internal/storage"

	"go.uber.org/zap"
)

const (
	KeyPrefix = "socialconnect_"
	KeyUser   = KeyPrefix + "user"
	KeyPosts  = KeyPrefix + "posts"
	// Reserved by the browser build; nothing reads them but ClearAll removes them.
	KeyUsers    = KeyPrefix + "users"
	KeyComments = KeyPrefix + "comments"
)

var ownedKeys = []string{KeyPosts, KeyUser, KeyUsers, KeyComments}

var (
	ErrCorrupt     = errors.New("corrupt record")
	ErrDuplicateID = errors.New("duplicate id")
)

type Repository struct {
	store    storage.Store
	log      *zap.Logger
	metrics  *Metrics
	capacity int64

	mu sync.Mutex
}

type Option func(*Repository)

func WithLogger(l *zap.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.log = l
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *Repository) { r.metrics = m }
}

// WithCapacity sets the assumed store capacity reported by StorageUsage.
func WithCapacity(n int64) Option {
	return func(r *Repository) {
		if n > 0 {
			r.capacity = n
		}
	}
}

func New(s storage.Store, opts ...Option) *Repository {
	r := &Repository{
		store:    s,
		log:      zap.NewNop(),
		capacity: storage.DefaultCapacity,
	}
	for _, o := range opts {
		o(r)
	}
	r.log = r.log.Named("repository")
	return r
}

func (r *Repository) observe(op string, err error) {
	if err != nil {
		r.log.Error("operation failed", zap.String("op", op), zap.Error(err))
	}
	r.metrics.observe(op, err)
}

// ----------------------------
// User slot
// ----------------------------

// GetUser returns the persisted current user. Read failures and corrupt
// records are logged and reported as absent.
func (r *Repository) GetUser(ctx context.Context) (models.User, bool) {
	b, ok, err := r.store.Get(ctx, KeyUser)
	if err != nil {
		r.observe("get_user", err)
		return models.User{}, false
	}
	if !ok {
		return models.User{}, false
	}
	var u models.User
	if err := json.Unmarshal(b, &u); err != nil {
		r.observe("get_user", fmt.Errorf("%w: %w", ErrCorrupt, err))
		return models.User{}, false
	}
	if err := u.Validate(); err != nil {
		r.observe("get_user", fmt.Errorf("%w: %w", ErrCorrupt, err))
		return models.User{}, false
	}
	return u, true
}

func (r *Repository) SaveUser(ctx context.Context, u models.User) error {
	err := u.Validate()
	if err == nil {
		var b []byte
		if b, err = json.Marshal(u); err == nil {
			err = r.store.Set(ctx, KeyUser, b)
		}
	}
	r.observe("save_user", err)
	return err
}

func (r *Repository) RemoveUser(ctx context.Context) error {
	err := r.store.Remove(ctx, KeyUser)
	r.observe("remove_user", err)
	return err
}

// ----------------------------
// Posts
// ----------------------------

// loadPosts reads the stored collection. Store failures and corrupt blobs
// are both returned so a mutation never writes over data it could not read.
func (r *Repository) loadPosts(ctx context.Context) (models.Feed, error) {
	b, ok, err := r.store.Get(ctx, KeyPosts)
	if err != nil {
		return nil, err
	}
	if !ok {
		return models.Feed{}, nil
	}
	return decodePosts(b)
}

func decodePosts(b []byte) (models.Feed, error) {
	var f models.Feed
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	f.ClampCounters()
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if f == nil {
		f = models.Feed{}
	}
	return f, nil
}

func (r *Repository) savePosts(ctx context.Context, f models.Feed) error {
	if f == nil {
		f = models.Feed{}
	}
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, KeyPosts, b)
}

// ListPosts returns the stored posts, newest first. It never fails: an
// unreadable or corrupt collection comes back empty, and is left in place.
func (r *Repository) ListPosts(ctx context.Context) models.Feed {
	f, err := r.loadPosts(ctx)
	if err != nil {
		r.observe("list_posts", err)
		return models.Feed{}
	}
	return f
}

// mutate runs one read-modify-write of the posts collection. fn reports
// whether it changed anything; unchanged collections are not rewritten.
func (r *Repository) mutate(ctx context.Context, op string, fn func(models.Feed) (models.Feed, bool, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := r.loadPosts(ctx)
	if err != nil {
		r.observe(op, err)
		return err
	}
	next, changed, err := fn(f)
	if err != nil {
		r.observe(op, err)
		return err
	}
	if !changed {
		r.metrics.noop(op)
		return nil
	}
	err = r.savePosts(ctx, next)
	r.observe(op, err)
	return err
}

// AddPost prepends p to the stored collection.
func (r *Repository) AddPost(ctx context.Context, p models.Post) error {
	return r.mutate(ctx, "add_post", func(f models.Feed) (models.Feed, bool, error) {
		if err := p.Validate(); err != nil {
			return nil, false, err
		}
		if _, exists := f.Find(p.ID); exists {
			return nil, false, fmt.Errorf("%w: post %s", ErrDuplicateID, p.ID)
		}
		return f.Prepend(p.Clone()), true, nil
	})
}

// DeletePost removes the post with the given id; absent ids are a no-op.
func (r *Repository) DeletePost(ctx context.Context, postID string) error {
	return r.mutate(ctx, "delete_post", func(f models.Feed) (models.Feed, bool, error) {
		next, found := f.Delete(postID)
		return next, found, nil
	})
}

// UpdatePost applies fn to the stored post; absent ids are a no-op.
func (r *Repository) UpdatePost(ctx context.Context, postID string, fn func(*models.Post)) error {
	return r.updatePost(ctx, "update_post", postID, fn)
}

func (r *Repository) updatePost(ctx context.Context, op, postID string, fn func(*models.Post)) error {
	return r.mutate(ctx, op, func(f models.Feed) (models.Feed, bool, error) {
		return f, f.Update(postID, fn), nil
	})
}

// UpdateComment applies fn to one comment of one post; absent ids are a no-op.
func (r *Repository) UpdateComment(ctx context.Context, postID, commentID string, fn func(*models.Comment)) error {
	return r.updateComment(ctx, "update_comment", postID, commentID, fn)
}

func (r *Repository) updateComment(ctx context.Context, op, postID, commentID string, fn func(*models.Comment)) error {
	return r.mutate(ctx, op, func(f models.Feed) (models.Feed, bool, error) {
		found := false
		f.Update(postID, func(p *models.Post) {
			found = p.UpdateComment(commentID, fn)
		})
		return f, found, nil
	})
}

// AddComment appends c to the post's comments; absent posts are a no-op.
func (r *Repository) AddComment(ctx context.Context, postID string, c models.Comment) error {
	return r.mutate(ctx, "add_comment", func(f models.Feed) (models.Feed, bool, error) {
		if err := c.Validate(); err != nil {
			return nil, false, err
		}
		p, ok := f.Find(postID)
		if !ok {
			return f, false, nil
		}
		if _, dup := p.FindComment(c.ID); dup {
			return nil, false, fmt.Errorf("%w: comment %s", ErrDuplicateID, c.ID)
		}
		f.Update(postID, func(p *models.Post) { p.AddComment(c) })
		return f, true, nil
	})
}

func (r *Repository) TogglePostLike(ctx context.Context, postID string) error {
	return r.updatePost(ctx, "toggle_post_like", postID, (*models.Post).ToggleLike)
}

func (r *Repository) ToggleCommentLike(ctx context.Context, postID, commentID string) error {
	return r.updateComment(ctx, "toggle_comment_like", postID, commentID, (*models.Comment).ToggleLike)
}

func (r *Repository) IncrementShare(ctx context.Context, postID string) error {
	return r.updatePost(ctx, "increment_share", postID, (*models.Post).Share)
}

// SeedIfEmpty stores posts as the whole collection when nothing is stored
// yet. It reports whether it wrote.
func (r *Repository) SeedIfEmpty(ctx context.Context, posts models.Feed) (bool, error) {
	seeded := false
	err := r.mutate(ctx, "seed", func(f models.Feed) (models.Feed, bool, error) {
		if len(f) > 0 || len(posts) == 0 {
			return f, false, nil
		}
		if err := posts.Validate(); err != nil {
			return nil, false, err
		}
		seeded = true
		return posts.Clone(), true, nil
	})
	return seeded, err
}

// ----------------------------
// Diagnostics
// ----------------------------

// ClearAll removes every key owned by the application. It keeps going past
// individual failures and returns them joined.
func (r *Repository) ClearAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := append([]string(nil), ownedKeys...)
	found, err := r.store.Keys(ctx, KeyPrefix)
	if err != nil {
		r.log.Warn("listing owned keys failed; clearing declared keys only", zap.Error(err))
	}
	for _, k := range found {
		if !contains(keys, k) {
			keys = append(keys, k)
		}
	}

	var errs []error
	for _, k := range keys {
		if err := r.store.Remove(ctx, k); err != nil {
			errs = append(errs, err)
		}
	}
	err = errors.Join(errs...)
	r.observe("clear_all", err)
	if err == nil {
		r.metrics.setUsed(0)
	}
	return err
}

type Usage struct {
	UsedBytes     int64
	CapacityBytes int64
	Percentage    float64
}

// StorageUsage sums the serialized sizes of the owned keys against the
// configured capacity.
func (r *Repository) StorageUsage(ctx context.Context) (Usage, error) {
	keys, err := r.store.Keys(ctx, KeyPrefix)
	if err != nil {
		r.observe("storage_usage", err)
		return Usage{}, err
	}
	var used int64
	for _, k := range keys {
		b, ok, err := r.store.Get(ctx, k)
		if err != nil {
			r.observe("storage_usage", err)
			return Usage{}, err
		}
		if ok {
			used += int64(len(b))
		}
	}
	r.metrics.setUsed(used)
	r.observe("storage_usage", nil)
	return Usage{
		UsedBytes:     used,
		CapacityBytes: r.capacity,
		Percentage:    float64(used) / float64(r.capacity) * 100,
	}, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
