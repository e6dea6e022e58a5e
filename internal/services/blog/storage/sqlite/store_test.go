package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/docker-mastery/internal/services/blog/storage"
)

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), ""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestCreateGetPostRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, time.February, 22, 16, 40, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	created, err := store.CreatePost(context.Background(), storage.PostInput{
		Title:   "Hello",
		Content: "First post",
		Author:  "Ada",
	})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if !created.CreatedAt.Equal(now) || !created.UpdatedAt.Equal(now) {
		t.Fatalf("timestamps = %v/%v, want %v", created.CreatedAt, created.UpdatedAt, now)
	}

	got, err := store.GetPost(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if got != created {
		t.Fatalf("post = %+v, want %+v", got, created)
	}
}

func TestCreatePostDefaultsAuthor(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	created, err := store.CreatePost(context.Background(), storage.PostInput{Title: "A", Content: "B"})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if created.Author != storage.DefaultAuthor {
		t.Fatalf("author = %q, want %q", created.Author, storage.DefaultAuthor)
	}
}

func TestCreatePostRequiresTitleAndContent(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if _, err := store.CreatePost(context.Background(), storage.PostInput{Content: "B"}); err == nil {
		t.Fatal("expected title error")
	}
	if _, err := store.CreatePost(context.Background(), storage.PostInput{Title: "A", Content: "  "}); err == nil {
		t.Fatal("expected content error")
	}
}

func TestListPostsNewestFirst(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	base := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	stamps := []time.Time{base, base.Add(time.Hour), base.Add(time.Hour)}
	for i, stamp := range stamps {
		store.now = func() time.Time { return stamp }
		if _, err := store.CreatePost(context.Background(), storage.PostInput{Title: string(rune('A' + i)), Content: "x"}); err != nil {
			t.Fatalf("create post %d: %v", i, err)
		}
	}

	posts, err := store.ListPosts(context.Background())
	if err != nil {
		t.Fatalf("list posts: %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("posts = %d, want 3", len(posts))
	}
	order := posts[0].Title + posts[1].Title + posts[2].Title
	if order != "CBA" {
		t.Fatalf("order = %q, want %q", order, "CBA")
	}
}

func TestListPostsEmpty(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	posts, err := store.ListPosts(context.Background())
	if err != nil {
		t.Fatalf("list posts: %v", err)
	}
	if posts == nil || len(posts) != 0 {
		t.Fatalf("posts = %#v, want empty non-nil slice", posts)
	}
}

func TestUpdatePostKeepsNilFields(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	created := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return created }
	post, err := store.CreatePost(context.Background(), storage.PostInput{Title: "Old", Content: "Body"})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	updated := created.Add(time.Minute)
	store.now = func() time.Time { return updated }
	title := "New"
	got, err := store.UpdatePost(context.Background(), post.ID, storage.PostPatch{Title: &title})
	if err != nil {
		t.Fatalf("update post: %v", err)
	}
	if got.Title != "New" || got.Content != "Body" {
		t.Fatalf("post = %+v, want title New and content Body", got)
	}
	if !got.UpdatedAt.Equal(updated) || !got.CreatedAt.Equal(created) {
		t.Fatalf("timestamps = %v/%v", got.CreatedAt, got.UpdatedAt)
	}
}

func TestUpdateAndDeleteMissingPost(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	title := "x"
	if _, err := store.UpdatePost(context.Background(), 404, storage.PostPatch{Title: &title}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("update error = %v, want %v", err, storage.ErrNotFound)
	}
	if err := store.DeletePost(context.Background(), 404); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("delete error = %v, want %v", err, storage.ErrNotFound)
	}
	if _, err := store.GetPost(context.Background(), 404); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get error = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestDeletePost(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	post, err := store.CreatePost(context.Background(), storage.PostInput{Title: "A", Content: "B"})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if err := store.DeletePost(context.Background(), post.ID); err != nil {
		t.Fatalf("delete post: %v", err)
	}
	if _, err := store.GetPost(context.Background(), post.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get after delete = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestStoreHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.ListPosts(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("list error = %v, want %v", err, context.Canceled)
	}
	if err := store.Ping(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("ping error = %v, want %v", err, context.Canceled)
	}
}

func TestPingAndClose(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := store.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error after close")
	}

	var nilStore *Store
	if err := nilStore.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
}

func TestReopenKeepsPosts(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data", "blog.db")
	store, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if _, err := store.CreatePost(context.Background(), storage.PostInput{Title: "A", Content: "B"}); err != nil {
		t.Fatalf("create post: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer reopened.Close()
	posts, err := reopened.ListPosts(context.Background())
	if err != nil {
		t.Fatalf("list posts: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("posts = %d, want 1", len(posts))
	}
}

func openTempStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "blog.db")
	store, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
