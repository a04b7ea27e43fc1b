package seed_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"securityapi/internal/auth"
	"securityapi/internal/observability"
	"securityapi/internal/post"
	"securityapi/internal/seed"
)

type fakeUsers struct {
	count      int64
	registered []string
}

func (f *fakeUsers) Count(context.Context) (int64, error) {
	return f.count, nil
}

func (f *fakeUsers) Register(_ context.Context, username, email, password string) (auth.User, error) {
	f.registered = append(f.registered, username)
	return auth.User{ID: "id-" + username, Username: username, Email: email}, nil
}

type fakePosts struct {
	authors []string
}

func (f *fakePosts) Create(_ context.Context, authorID, authorUsername string, input post.PostInput) (post.Post, error) {
	f.authors = append(f.authors, authorUsername)
	return post.Post{AuthorID: authorID, AuthorUsername: authorUsername, Title: input.Title}, nil
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("seeds empty database", func(t *testing.T) {
		users := &fakeUsers{}
		posts := &fakePosts{}
		require.NoError(t, seed.Run(ctx, users, users, posts, observability.NewNopLogger()))

		assert.Equal(t, []string{"admin", "Denichenko", "Student367193"}, users.registered)
		assert.Equal(t, users.registered, posts.authors)
	})

	t.Run("leaves existing data alone", func(t *testing.T) {
		users := &fakeUsers{count: 1}
		posts := &fakePosts{}
		require.NoError(t, seed.Run(ctx, users, users, posts, observability.NewNopLogger()))

		assert.Empty(t, users.registered)
		assert.Empty(t, posts.authors)
	})
}
