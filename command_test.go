package places_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	places "github.com/goliatone/go-places"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeImageRemover struct {
	mu      sync.Mutex
	removed []string
	err     error
}

func (f *fakeImageRemover) Remove(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.removed = append(f.removed, path)
	return nil
}

func registerTestUser(t *testing.T, repo places.RepositoryManager, name, email string) *places.User {
	t.Helper()

	handler := places.NewRegisterUserHandler(repo, nil)
	user, err := handler.Execute(context.Background(), places.RegisterUserMessage{
		Name:     name,
		Email:    email,
		Password: "correct-horse",
	})
	require.NoError(t, err)

	return user
}

func TestRegisterUserCommand(t *testing.T) {
	db := newTestDB(t)
	repo := places.NewRepositoryManager(db)
	ctx := context.Background()

	handler := places.NewRegisterUserHandler(repo, nil)

	user, err := handler.Execute(ctx, places.RegisterUserMessage{
		Name:     "Ada Lovelace",
		Email:    "ada@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, user.ID)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "correct-horse", user.PasswordHash)

	t.Run("duplicate email is rejected", func(t *testing.T) {
		_, err := handler.Execute(ctx, places.RegisterUserMessage{
			Name:     "Imposter",
			Email:    "ada@example.com",
			Password: "another-pass",
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, places.ErrEmailTaken)
	})

	t.Run("registered user can authenticate", func(t *testing.T) {
		err := places.ComparePasswordAndHash("correct-horse", user.PasswordHash)
		assert.NoError(t, err)
	})
}

func TestCreatePlaceCommandLinksOwner(t *testing.T) {
	db := newTestDB(t)
	repo := places.NewRepositoryManager(db)
	ctx := context.Background()

	owner := registerTestUser(t, repo, "Ada Lovelace", "ada@example.com")

	handler := places.NewCreatePlaceHandler(repo, nil, nil)

	place, err := handler.Execute(ctx, places.CreatePlaceMessage{
		Title:       "Empire State Building",
		Description: "One of the most famous sky scrapers in the world.",
		Address:     "20 W 34th St, New York, NY 10001",
		CreatorID:   owner.ID.String(),
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, place.ID)
	assert.Equal(t, owner.ID, place.OwnerID)
	assert.GreaterOrEqual(t, place.Lat, -90.0)
	assert.LessOrEqual(t, place.Lat, 90.0)

	linked, err := repo.Users().FindByIDTx(ctx, db, owner.ID)
	require.NoError(t, err)
	assert.True(t, linked.HasPlaceID(place.ID))
}

func TestCreatePlaceCommandAccumulatesOwnerLinks(t *testing.T) {
	db := newTestDB(t)
	repo := places.NewRepositoryManager(db)
	ctx := context.Background()

	owner := registerTestUser(t, repo, "Ada Lovelace", "ada@example.com")

	handler := places.NewCreatePlaceHandler(repo, nil, nil)

	first, err := handler.Execute(ctx, places.CreatePlaceMessage{
		Title:       "Empire State Building",
		Description: "One of the most famous sky scrapers in the world.",
		Address:     "20 W 34th St, New York, NY 10001",
		CreatorID:   owner.ID.String(),
	})
	require.NoError(t, err)

	second, err := handler.Execute(ctx, places.CreatePlaceMessage{
		Title:       "Flatiron Building",
		Description: "A triangular steel framed landmark.",
		Address:     "175 5th Ave, New York, NY 10010",
		CreatorID:   owner.ID.String(),
	})
	require.NoError(t, err)

	linked, err := repo.Users().FindByIDTx(ctx, db, owner.ID)
	require.NoError(t, err)
	assert.True(t, linked.HasPlaceID(first.ID))
	assert.True(t, linked.HasPlaceID(second.ID))
	assert.Len(t, linked.PlaceIDs, 2)

	// each guarded link write bumps the version
	assert.Equal(t, int64(3), linked.Version)
}

func TestCreatePlaceCommandConcurrentCreates(t *testing.T) {
	db := newTestDB(t)
	repo := places.NewRepositoryManager(db)
	ctx := context.Background()

	owner := registerTestUser(t, repo, "Ada Lovelace", "ada@example.com")

	handler := places.NewCreatePlaceHandler(repo, nil, nil)

	const writers = 4

	var wg sync.WaitGroup
	ids := make(chan uuid.UUID, writers)
	errs := make(chan error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			place, err := handler.Execute(ctx, places.CreatePlaceMessage{
				Title:       fmt.Sprintf("Landmark %d", n),
				Description: "A well documented city landmark.",
				Address:     fmt.Sprintf("%d Main Street, Springfield", n),
				CreatorID:   owner.ID.String(),
			})
			if err != nil {
				errs <- err
				return
			}
			ids <- place.ID
		}(i)
	}

	wg.Wait()
	close(ids)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	linked, err := repo.Users().FindByIDTx(ctx, db, owner.ID)
	require.NoError(t, err)
	assert.Len(t, linked.PlaceIDs, writers)
	for id := range ids {
		assert.True(t, linked.HasPlaceID(id))
	}
}

func TestCreatePlaceCommandUnknownOwner(t *testing.T) {
	db := newTestDB(t)
	repo := places.NewRepositoryManager(db)
	ctx := context.Background()

	handler := places.NewCreatePlaceHandler(repo, nil, nil)

	_, err := handler.Execute(ctx, places.CreatePlaceMessage{
		Title:       "Nowhere",
		Description: "A place with no owner on record.",
		Address:     "1 Missing Lane",
		CreatorID:   uuid.NewString(),
	})
	require.Error(t, err)
	assert.True(t, goerrors.IsNotFound(err))

	count, err := db.NewSelect().Model((*places.Place)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "a failed create must not leave a place behind")
}

func TestUpdatePlaceCommand(t *testing.T) {
	db := newTestDB(t)
	repo := places.NewRepositoryManager(db)
	ctx := context.Background()

	owner := registerTestUser(t, repo, "Ada Lovelace", "ada@example.com")
	intruder := registerTestUser(t, repo, "Mallory", "mallory@example.com")

	create := places.NewCreatePlaceHandler(repo, nil, nil)
	place, err := create.Execute(ctx, places.CreatePlaceMessage{
		Title:       "Empire State Building",
		Description: "One of the most famous sky scrapers in the world.",
		Address:     "20 W 34th St, New York, NY 10001",
		CreatorID:   owner.ID.String(),
	})
	require.NoError(t, err)

	update := places.NewUpdatePlaceHandler(repo, nil)

	t.Run("owner can update", func(t *testing.T) {
		updated, err := update.Execute(ctx, places.UpdatePlaceMessage{
			PlaceID:     place.ID.String(),
			CallerID:    owner.ID.String(),
			Title:       "Empire State",
			Description: "Still one of the most famous sky scrapers.",
		})
		require.NoError(t, err)
		assert.Equal(t, "Empire State", updated.Title)
	})

	t.Run("non owner is rejected and state is unchanged", func(t *testing.T) {
		_, err := update.Execute(ctx, places.UpdatePlaceMessage{
			PlaceID:     place.ID.String(),
			CallerID:    intruder.ID.String(),
			Title:       "Mallory Tower",
			Description: "This update must never land.",
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, places.ErrNotAuthorized)

		current, err := repo.Places().GetByID(ctx, place.ID)
		require.NoError(t, err)
		assert.Equal(t, "Empire State", current.Title)
	})

	t.Run("missing place reads as not found, not as forbidden", func(t *testing.T) {
		_, err := update.Execute(ctx, places.UpdatePlaceMessage{
			PlaceID:     uuid.NewString(),
			CallerID:    intruder.ID.String(),
			Title:       "Ghost",
			Description: "There is nothing here to update.",
		})
		require.Error(t, err)
		assert.True(t, goerrors.IsNotFound(err))
		assert.NotErrorIs(t, err, places.ErrNotAuthorized)
	})
}

func TestDeletePlaceCommand(t *testing.T) {
	db := newTestDB(t)
	repo := places.NewRepositoryManager(db)
	ctx := context.Background()

	owner := registerTestUser(t, repo, "Ada Lovelace", "ada@example.com")
	intruder := registerTestUser(t, repo, "Mallory", "mallory@example.com")

	create := places.NewCreatePlaceHandler(repo, nil, nil)
	place, err := create.Execute(ctx, places.CreatePlaceMessage{
		Title:       "Empire State Building",
		Description: "One of the most famous sky scrapers in the world.",
		Address:     "20 W 34th St, New York, NY 10001",
		CreatorID:   owner.ID.String(),
		ImagePath:   "uploads/images/empire.png",
	})
	require.NoError(t, err)

	images := &fakeImageRemover{}
	del := places.NewDeletePlaceHandler(repo, images, nil)

	t.Run("non owner cannot delete", func(t *testing.T) {
		err := del.Execute(ctx, places.DeletePlaceMessage{
			PlaceID:  place.ID.String(),
			CallerID: intruder.ID.String(),
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, places.ErrNotAuthorized)

		_, err = repo.Places().GetByID(ctx, place.ID)
		assert.NoError(t, err, "a rejected delete must leave the place in place")
		assert.Empty(t, images.removed)
	})

	t.Run("owner delete removes place, link, and image", func(t *testing.T) {
		err := del.Execute(ctx, places.DeletePlaceMessage{
			PlaceID:  place.ID.String(),
			CallerID: owner.ID.String(),
		})
		require.NoError(t, err)

		_, err = repo.Places().GetByID(ctx, place.ID)
		assert.ErrorIs(t, err, places.ErrPlaceNotFound)

		unlinked, err := repo.Users().FindByIDTx(ctx, db, owner.ID)
		require.NoError(t, err)
		assert.False(t, unlinked.HasPlaceID(place.ID))

		assert.Equal(t, []string{"uploads/images/empire.png"}, images.removed)
	})

	t.Run("missing place is not found", func(t *testing.T) {
		err := del.Execute(ctx, places.DeletePlaceMessage{
			PlaceID:  uuid.NewString(),
			CallerID: owner.ID.String(),
		})
		require.Error(t, err)
		assert.True(t, goerrors.IsNotFound(err))
	})
}
