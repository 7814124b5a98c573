package repository_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"socialconnect/internal/models"
	"socialconnect/internal/repository"
	"socialconnect/internal/storage"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func user(id string) models.User {
	return models.User{ID: id, DisplayName: "User " + id, Email: id + "@example.com", IsOnline: true}
}

func post(id string) models.Post {
	return models.Post{ID: id, Author: user("author"), Content: "post " + id, CreatedAt: t0}
}

func comment(id string) models.Comment {
	return models.Comment{ID: id, Author: user("commenter"), Content: "comment " + id, CreatedAt: t0}
}

func ids(f models.Feed) []string {
	out := make([]string, 0, len(f))
	for _, p := range f {
		out = append(out, p.ID)
	}
	return out
}

// flakyStore fails the selected operations.
type flakyStore struct {
	storage.Store
	failGet, failSet, failRemove bool
}

var errBoom = errors.New("boom")

func (s *flakyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.failGet {
		return nil, false, &storage.Error{Op: "get", Key: key, Err: errBoom}
	}
	return s.Store.Get(ctx, key)
}

func (s *flakyStore) Set(ctx context.Context, key string, value []byte) error {
	if s.failSet {
		return &storage.Error{Op: "set", Key: key, Err: storage.ErrQuotaExceeded}
	}
	return s.Store.Set(ctx, key, value)
}

func (s *flakyStore) Remove(ctx context.Context, key string) error {
	if s.failRemove {
		return &storage.Error{Op: "remove", Key: key, Err: errBoom}
	}
	return s.Store.Remove(ctx, key)
}

func newRepo(t *testing.T) (*repository.Repository, *storage.Memory) {
	t.Helper()
	mem := storage.NewMemory()
	return repository.New(mem), mem
}

func TestListPosts_EmptyStore(t *testing.T) {
	r, _ := newRepo(t)
	f := r.ListPosts(context.Background())
	assert.NotNil(t, f)
	assert.Empty(t, f)
}

func TestListPosts_Idempotent(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()
	require.NoError(t, r.AddPost(ctx, post("1")))
	require.NoError(t, r.AddPost(ctx, post("2")))

	first := r.ListPosts(ctx)
	second := r.ListPosts(ctx)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("ListPosts not idempotent (-first +second):\n%s", diff)
	}
}

func TestAddPost_PrependsAndKeepsOrder(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, r.AddPost(ctx, post(id)))
	}
	x := post("x")
	x.Image = "https://example.com/x.png"
	require.NoError(t, r.AddPost(ctx, x))

	f := r.ListPosts(ctx)
	assert.Equal(t, []string{"x", "c", "b", "a"}, ids(f))
	if diff := cmp.Diff(x, f[0]); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestAddPost_RejectsDuplicateAndInvalid(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()
	require.NoError(t, r.AddPost(ctx, post("1")))

	assert.ErrorIs(t, r.AddPost(ctx, post("1")), repository.ErrDuplicateID)
	assert.ErrorIs(t, r.AddPost(ctx, models.Post{Author: user("u")}), models.ErrInvalid)
	assert.Len(t, r.ListPosts(ctx), 1)
}

func TestDeletePost(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()
	require.NoError(t, r.AddPost(ctx, post("keep")))
	require.NoError(t, r.AddPost(ctx, post("x")))

	require.NoError(t, r.DeletePost(ctx, "x"))
	assert.Equal(t, []string{"keep"}, ids(r.ListPosts(ctx)))

	before := r.ListPosts(ctx)
	require.NoError(t, r.DeletePost(ctx, "missing"))
	if diff := cmp.Diff(before, r.ListPosts(ctx)); diff != "" {
		t.Fatalf("deleting a missing id changed the collection:\n%s", diff)
	}
}

func TestAddComment_AppendsInOrder(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()
	require.NoError(t, r.AddPost(ctx, post("p")))

	require.NoError(t, r.AddComment(ctx, "p", comment("c1")))
	require.NoError(t, r.AddComment(ctx, "p", comment("c2")))
	require.NoError(t, r.AddComment(ctx, "missing", comment("c3")))

	f := r.ListPosts(ctx)
	require.Len(t, f, 1)
	require.Len(t, f[0].Comments, 2)
	assert.Equal(t, "c1", f[0].Comments[0].ID)
	assert.Equal(t, "c2", f[0].Comments[1].ID)

	assert.ErrorIs(t, r.AddComment(ctx, "p", comment("c1")), repository.ErrDuplicateID)
}

func TestTogglePostLike(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()
	require.NoError(t, r.AddPost(ctx, post("p")))

	require.NoError(t, r.TogglePostLike(ctx, "p"))
	p := r.ListPosts(ctx)[0]
	assert.Equal(t, 1, p.LikeCount)
	assert.True(t, p.IsLikedByCurrentUser)

	require.NoError(t, r.TogglePostLike(ctx, "p"))
	p = r.ListPosts(ctx)[0]
	assert.Equal(t, 0, p.LikeCount)
	assert.False(t, p.IsLikedByCurrentUser)
}

func TestTogglePostLike_SymmetricFromLiked(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()
	p := post("p")
	p.LikeCount = 7
	p.IsLikedByCurrentUser = true
	require.NoError(t, r.AddPost(ctx, p))

	require.NoError(t, r.TogglePostLike(ctx, "p"))
	require.NoError(t, r.TogglePostLike(ctx, "p"))
	got := r.ListPosts(ctx)[0]
	assert.Equal(t, 7, got.LikeCount)
	assert.True(t, got.IsLikedByCurrentUser)
}

func TestTogglePostLike_ClampsInconsistentRecord(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()
	p := post("p")
	p.IsLikedByCurrentUser = true
	require.NoError(t, r.AddPost(ctx, p))

	require.NoError(t, r.TogglePostLike(ctx, "p"))
	got := r.ListPosts(ctx)[0]
	assert.Equal(t, 0, got.LikeCount)
	assert.False(t, got.IsLikedByCurrentUser)
}

func TestToggleCommentLike(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()
	require.NoError(t, r.AddPost(ctx, post("p")))
	require.NoError(t, r.AddComment(ctx, "p", comment("c1")))
	require.NoError(t, r.AddComment(ctx, "p", comment("c2")))

	require.NoError(t, r.ToggleCommentLike(ctx, "p", "c2"))
	cs := r.ListPosts(ctx)[0].Comments
	assert.Equal(t, 0, cs[0].LikeCount)
	assert.Equal(t, 1, cs[1].LikeCount)
	assert.True(t, cs[1].IsLikedByCurrentUser)

	require.NoError(t, r.ToggleCommentLike(ctx, "p", "c2"))
	cs = r.ListPosts(ctx)[0].Comments
	assert.Equal(t, 0, cs[1].LikeCount)
	assert.False(t, cs[1].IsLikedByCurrentUser)
}

func TestIncrementShare(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()
	require.NoError(t, r.AddPost(ctx, post("p")))
	require.NoError(t, r.IncrementShare(ctx, "p"))
	require.NoError(t, r.IncrementShare(ctx, "p"))
	assert.Equal(t, 2, r.ListPosts(ctx)[0].ShareCount)
}

func TestUpdatePostAndComment(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()
	require.NoError(t, r.AddPost(ctx, post("p")))
	require.NoError(t, r.AddComment(ctx, "p", comment("c")))

	require.NoError(t, r.UpdatePost(ctx, "p", func(p *models.Post) { p.Content = "edited" }))
	require.NoError(t, r.UpdateComment(ctx, "p", "c", func(c *models.Comment) { c.Content = "fixed" }))

	p := r.ListPosts(ctx)[0]
	assert.Equal(t, "edited", p.Content)
	assert.Equal(t, "fixed", p.Comments[0].Content)
}

func TestListPosts_CorruptDataFailsClosed(t *testing.T) {
	ctx := context.Background()
	for name, blob := range map[string]string{
		"malformed":   `[{"id":`,
		"wrong shape": `{"id":"p"}`,
		"missing id":  `[{"author":{"id":"u"},"content":"x","timestamp":"2024-01-01T00:00:00Z","likes":0,"shares":0,"comments":[]}]`,
	} {
		t.Run(name, func(t *testing.T) {
			r, mem := newRepo(t)
			require.NoError(t, mem.Set(ctx, repository.KeyPosts, []byte(blob)))
			assert.Empty(t, r.ListPosts(ctx))
		})
	}
}

func TestListPosts_ClampsNegativeCounters(t *testing.T) {
	ctx := context.Background()
	r, mem := newRepo(t)
	blob := `[{"id":"b","author":{"id":"u"},"content":"unliked twice","timestamp":"2024-01-02T00:00:00Z","likes":-1,"shares":-2,"comments":[{"id":"c","author":{"id":"u"},"content":"x","timestamp":"2024-01-02T00:00:00Z","likes":-4}]},
{"id":"a","author":{"id":"u"},"content":"fine","timestamp":"2024-01-01T00:00:00Z","likes":5,"shares":0,"comments":[]}]`
	require.NoError(t, mem.Set(ctx, repository.KeyPosts, []byte(blob)))

	f := r.ListPosts(ctx)
	require.Equal(t, []string{"b", "a"}, ids(f))
	assert.Zero(t, f[0].LikeCount)
	assert.Zero(t, f[0].ShareCount)
	assert.Zero(t, f[0].Comments[0].LikeCount)
	assert.Equal(t, 5, f[1].LikeCount)

	require.NoError(t, r.AddPost(ctx, post("new")))
	assert.Equal(t, []string{"new", "b", "a"}, ids(r.ListPosts(ctx)))
}

func TestMutation_CorruptBlobIsNotOverwritten(t *testing.T) {
	ctx := context.Background()
	for name, blob := range map[string]string{
		"malformed":  `[{"id":`,
		"missing id": `[{"author":{"id":"u"},"content":"x","timestamp":"2024-01-01T00:00:00Z","comments":[]}]`,
	} {
		t.Run(name, func(t *testing.T) {
			r, mem := newRepo(t)
			require.NoError(t, mem.Set(ctx, repository.KeyPosts, []byte(blob)))

			assert.ErrorIs(t, r.AddPost(ctx, post("a")), repository.ErrCorrupt)
			assert.ErrorIs(t, r.TogglePostLike(ctx, "a"), repository.ErrCorrupt)
			seeded, err := r.SeedIfEmpty(ctx, models.Feed{post("s")})
			assert.ErrorIs(t, err, repository.ErrCorrupt)
			assert.False(t, seeded)

			b, ok, err := mem.Get(ctx, repository.KeyPosts)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, blob, string(b))

			require.NoError(t, r.ClearAll(ctx))
			require.NoError(t, r.AddPost(ctx, post("a")))
			assert.Equal(t, []string{"a"}, ids(r.ListPosts(ctx)))
		})
	}
}

func TestListPosts_ReadsBrowserFormat(t *testing.T) {
	ctx := context.Background()
	r, mem := newRepo(t)
	blob := `[{"id":"1700000000000","author":{"id":"u1","name":"Ann Lee","email":"ann@x.io","avatar":"https://a/b.png","isOnline":true,"mutualFriends":3},
"content":"hi","timestamp":"2024-01-02T03:04:05.678Z","likes":2,"comments":[{"id":"c","author":{"id":"u2","name":"Bo","email":"","avatar":"","isOnline":false},"content":"yo","timestamp":"2024-01-02T04:00:00.000Z","likes":0,"isLiked":false}],"shares":1,"isLiked":true}]`
	require.NoError(t, mem.Set(ctx, repository.KeyPosts, []byte(blob)))

	f := r.ListPosts(ctx)
	require.Len(t, f, 1)
	assert.Equal(t, "Ann Lee", f[0].Author.DisplayName)
	assert.Equal(t, 2, f[0].LikeCount)
	assert.True(t, f[0].IsLikedByCurrentUser)
	assert.Equal(t, 1, f[0].ShareCount)
	assert.Equal(t, "yo", f[0].Comments[0].Content)
	require.NotNil(t, f[0].Author.MutualFriends)
	assert.Equal(t, 3, *f[0].Author.MutualFriends)

	require.NoError(t, r.AddPost(ctx, post("new")))
	b, _, err := mem.Get(ctx, repository.KeyPosts)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"mutualFriends":3`, "rewrites keep imported fields")
	assert.Equal(t, 1, strings.Count(string(b), "mutualFriends"), "omitted when unset")
}

func TestUserSlot(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()

	_, ok := r.GetUser(ctx)
	assert.False(t, ok)

	u := user("me")
	require.NoError(t, r.SaveUser(ctx, u))
	got, ok := r.GetUser(ctx)
	require.True(t, ok)
	assert.Equal(t, u, got)

	require.NoError(t, r.RemoveUser(ctx))
	_, ok = r.GetUser(ctx)
	assert.False(t, ok)
}

func TestGetUser_Corrupt(t *testing.T) {
	r, mem := newRepo(t)
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx, repository.KeyUser, []byte("not json")))
	_, ok := r.GetUser(ctx)
	assert.False(t, ok)
}

func TestSaveUser_PropagatesStorageFailure(t *testing.T) {
	ctx := context.Background()
	fs := &flakyStore{Store: storage.NewMemory(), failSet: true}
	r := repository.New(fs)

	err := r.SaveUser(ctx, user("me"))
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrStorageFailure)
	assert.ErrorIs(t, err, storage.ErrQuotaExceeded)
}

func TestMutation_ReadFailureDoesNotOverwrite(t *testing.T) {
	ctx := context.Background()
	fs := &flakyStore{Store: storage.NewMemory()}
	r := repository.New(fs)
	require.NoError(t, r.AddPost(ctx, post("a")))

	fs.failGet = true
	err := r.AddPost(ctx, post("b"))
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrStorageFailure)
	assert.Empty(t, r.ListPosts(ctx), "read failures list as empty")

	fs.failGet = false
	assert.Equal(t, []string{"a"}, ids(r.ListPosts(ctx)))
}

func TestMutation_QuotaExceededKeepsPreviousCollection(t *testing.T) {
	ctx := context.Background()
	q := storage.WithQuota(storage.NewMemory(), 400, repository.KeyPrefix)
	r := repository.New(q)
	require.NoError(t, r.AddPost(ctx, post("a")))

	big := post("big")
	big.Content = string(make([]byte, 500))
	err := r.AddPost(ctx, big)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrQuotaExceeded)
	assert.Equal(t, []string{"a"}, ids(r.ListPosts(ctx)))
}

func TestSeedIfEmpty(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()
	seed := models.Feed{post("s1"), post("s2"), post("s3")}

	seeded, err := r.SeedIfEmpty(ctx, seed)
	require.NoError(t, err)
	assert.True(t, seeded)
	assert.Equal(t, []string{"s1", "s2", "s3"}, ids(r.ListPosts(ctx)))

	seeded, err = r.SeedIfEmpty(ctx, models.Feed{post("other")})
	require.NoError(t, err)
	assert.False(t, seeded)
	assert.Len(t, r.ListPosts(ctx), 3)
}

func TestClearAll(t *testing.T) {
	r, mem := newRepo(t)
	ctx := context.Background()
	require.NoError(t, r.SaveUser(ctx, user("me")))
	require.NoError(t, r.AddPost(ctx, post("p")))
	require.NoError(t, mem.Set(ctx, repository.KeyComments, []byte("[]")))
	require.NoError(t, mem.Set(ctx, "unrelated", []byte("stay")))

	require.NoError(t, r.ClearAll(ctx))

	assert.Empty(t, r.ListPosts(ctx))
	_, ok := r.GetUser(ctx)
	assert.False(t, ok)
	keys, err := mem.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"unrelated"}, keys)
}

func TestClearAll_ReportsFailures(t *testing.T) {
	ctx := context.Background()
	fs := &flakyStore{Store: storage.NewMemory(), failRemove: true}
	r := repository.New(fs)
	assert.ErrorIs(t, r.ClearAll(ctx), storage.ErrStorageFailure)
}

func TestStorageUsage(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	r := repository.New(mem, repository.WithCapacity(1000))
	require.NoError(t, mem.Set(ctx, repository.KeyPosts, []byte("[]")))
	require.NoError(t, mem.Set(ctx, repository.KeyUser, []byte(`{"id":"12345678"}`)))
	require.NoError(t, mem.Set(ctx, "elsewhere", []byte("ignored")))

	u, err := r.StorageUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2+17), u.UsedBytes)
	assert.Equal(t, int64(1000), u.CapacityBytes)
	assert.InDelta(t, 1.9, u.Percentage, 1e-9)
}

func TestStorageUsage_DefaultCapacity(t *testing.T) {
	r, _ := newRepo(t)
	u, err := r.StorageUsage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5*1024*1024), u.CapacityBytes)
	assert.Zero(t, u.UsedBytes)
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := repository.NewMetrics(reg)
	fs := &flakyStore{Store: storage.NewMemory()}
	r := repository.New(fs, repository.WithMetrics(m))

	require.NoError(t, r.AddPost(ctx, post("p")))
	require.NoError(t, r.DeletePost(ctx, "missing"))
	fs.failSet = true
	require.Error(t, r.IncrementShare(ctx, "p"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Ops.WithLabelValues("add_post", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Ops.WithLabelValues("delete_post", "noop")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Ops.WithLabelValues("increment_share", "error")))

	fs.failSet = false
	_, err := r.StorageUsage(ctx)
	require.NoError(t, err)
	assert.Greater(t, testutil.ToFloat64(m.UsedBytes), 0.0)
}
