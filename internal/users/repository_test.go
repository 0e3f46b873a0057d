package users

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pemaismais/Projeto-LerDort-backend/internal/models"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// testRepositoryContract exercises the behaviour every Repository must share.
func testRepositoryContract(t *testing.T, repo Repository) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	sub := "sub-" + uuid.NewString()
	u := &models.User{
		ID: uuid.NewString(), Sub: sub, Email: "ana@example.com", Name: "Ana",
		Roles: []string{models.RoleUser}, CreatedAt: now, UpdatedAt: now,
	}

	_, err := repo.FindBySub(ctx, sub)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Create(ctx, u))

	dup := *u
	dup.ID = uuid.NewString()
	require.ErrorIs(t, repo.Create(ctx, &dup), ErrDuplicateSubject)

	got, err := repo.FindBySub(ctx, sub)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, []string{models.RoleUser}, got.Roles)

	got, err = repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, sub, got.Sub)

	require.NoError(t, repo.UpdateProfile(ctx, u.ID, "Ana Souza", "https://example.com/a.png"))
	got, err = repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "Ana Souza", got.Name)
	require.Equal(t, "https://example.com/a.png", got.PictureURL)
	require.ErrorIs(t, repo.UpdateProfile(ctx, "missing", "x", ""), ErrNotFound)

	ok, err := repo.ExistsByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, repo.DeleteByID(ctx, u.ID))
	require.ErrorIs(t, repo.DeleteByID(ctx, u.ID), ErrNotFound)
	ok, err = repo.ExistsByID(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, ok)
	_, err = repo.FindByID(ctx, u.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepository(t *testing.T) {
	testRepositoryContract(t, NewMemoryRepository())
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.User{ID: "1", Sub: "s", Roles: []string{"USER"}}))

	got, err := repo.FindByID(ctx, "1")
	require.NoError(t, err)
	got.Roles[0] = "ADMIN"

	again, err := repo.FindByID(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, []string{"USER"}, again.Roles)
}

// The store-backed variants run only when a database is available.

func TestMongoRepository(t *testing.T) {
	uri := os.Getenv("USERS_TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("USERS_TEST_MONGODB_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	defer func() { _ = client.Disconnect(context.Background()) }()

	col := client.Database("pifisio_test").Collection("users_" + uuid.NewString()[:8])
	defer func() { _ = col.Drop(context.Background()) }()

	repo := NewMongoRepository(col)
	require.NoError(t, repo.EnsureIndexes(ctx))
	testRepositoryContract(t, repo)
}

func TestPostgresRepository(t *testing.T) {
	url := os.Getenv("USERS_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("USERS_TEST_POSTGRES_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	repo := NewPostgresRepository(pool)
	require.NoError(t, repo.Migrate(ctx))
	testRepositoryContract(t, repo)
}
