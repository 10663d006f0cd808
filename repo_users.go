package places

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// linkWriteAttempts bounds the re-read loop used when a version guarded
// owned set update loses a race with a concurrent writer.
const linkWriteAttempts = 3

// Users persists user records and owns the user side of the
// place linkage: every attach and detach goes through a version
// guarded write so concurrent link updates for the same owner
// serialize instead of overwriting each other.
type Users interface {
	repository.Repository[*User]
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
	ListAll(ctx context.Context) ([]*User, error)
	AttachPlaceTx(ctx context.Context, tx bun.IDB, userID, placeID uuid.UUID) (*User, error)
	DetachPlaceTx(ctx context.Context, tx bun.IDB, userID, placeID uuid.UUID) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (u *users) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	return u.GetByIdentifierTx(ctx, u.db, identifier, criteria...)
}

func (u *users) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	options := resolveUserIdentifier(identifier)
	if len(options) == 0 {
		options = []identifierOption{
			{
				column: "id",
				value:  strings.TrimSpace(identifier),
			},
		}
	}

	for _, opt := range options {
		record := &User{}
		q := tx.NewSelect().Model(record)

		for _, c := range criteria {
			q.Apply(c)
		}

		err := q.
			Where(fmt.Sprintf("?TableAlias.%s = ?", opt.column), opt.value).
			Limit(1).
			Scan(ctx)

		if err != nil {
			if repository.IsRecordNotFound(err) {
				continue
			}
			return nil, err
		}

		return record, nil
	}

	return nil, errors.New("could not find user for the provided identifier", errors.CategoryNotFound).
		WithTextCode("USER_NOT_FOUND").
		WithCode(errors.CodeNotFound).
		WithMetadata(map[string]any{
			"identifier": identifier,
		})
}

func (u *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return u.CreateTx(ctx, u.db, record, criteria...)
}

func (u *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return u.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (u *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	if user.Email == "" {
		return nil, errors.New("user email is required", errors.CategoryBadInput).
			WithTextCode("EMAIL_REQUIRED")
	}

	taken, err := u.emailTakenTx(ctx, tx, user.Email)
	if err != nil {
		return nil, err
	}

	if taken {
		return nil, ErrEmailTaken
	}

	prepareUserDefaults(user)

	return u.CreateTx(ctx, tx, user)
}

func (u *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	user := new(User)

	err := u.db.NewSelect().
		Model(user).
		Where("lower(?TableAlias.email) = lower(?)", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapUserStoreError(err)
	}

	return user, nil
}

func (u *users) FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	user := new(User)

	err := tx.NewSelect().
		Model(user).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapUserStoreError(err)
	}

	return user, nil
}

func (u *users) ListAll(ctx context.Context) ([]*User, error) {
	var records []*User

	err := u.db.NewSelect().
		Model(&records).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list users")
	}

	return records, nil
}

func (u *users) AttachPlaceTx(ctx context.Context, tx bun.IDB, userID, placeID uuid.UUID) (*User, error) {
	return u.writeOwnedSetTx(ctx, tx, userID, func(user *User) bool {
		if user.HasPlaceID(placeID) {
			return false
		}
		user.AddPlaceID(placeID)
		return true
	})
}

func (u *users) DetachPlaceTx(ctx context.Context, tx bun.IDB, userID, placeID uuid.UUID) (*User, error) {
	return u.writeOwnedSetTx(ctx, tx, userID, func(user *User) bool {
		if !user.HasPlaceID(placeID) {
			return false
		}
		user.RemovePlaceID(placeID)
		return true
	})
}

// writeOwnedSetTx applies mutate to a fresh copy of the user row and
// persists place_ids behind a version guard. A guarded update that
// touches zero rows means another writer got there first, so the row
// is re-read and the mutation replayed.
func (u *users) writeOwnedSetTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, mutate func(*User) bool) (*User, error) {
	for attempt := 0; attempt < linkWriteAttempts; attempt++ {
		user, err := u.FindByIDTx(ctx, tx, userID)
		if err != nil {
			return nil, err
		}

		if !mutate(user) {
			return user, nil
		}

		expected := user.Version
		user.Version = expected + 1
		now := time.Now()
		user.UpdatedAt = &now

		res, err := tx.NewUpdate().
			Model(user).
			Column("place_ids", "version", "updated_at").
			Where("?TableAlias.id = ?", user.ID).
			Where("?TableAlias.version = ?", expected).
			Exec(ctx)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to update user place links")
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to read update result")
		}

		if rows == 1 {
			return user, nil
		}
	}

	return nil, errors.New("user record changed concurrently, retry the request", errors.CategoryConflict).
		WithTextCode("LINK_CONTENTION")
}

func (u *users) emailTakenTx(ctx context.Context, tx bun.IDB, email string) (bool, error) {
	count, err := tx.NewSelect().
		Model((*User)(nil)).
		Where("lower(?TableAlias.email) = lower(?)", email).
		Count(ctx)
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to check email availability")
	}

	return count > 0, nil
}

func prepareUserDefaults(user *User) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	if user.PlaceIDs == nil {
		user.PlaceIDs = []uuid.UUID{}
	}

	if user.Version == 0 {
		user.Version = 1
	}

	now := time.Now()

	if user.CreatedAt == nil {
		user.CreatedAt = &now
	}

	user.UpdatedAt = &now
}

type identifierOption struct {
	column string
	value  string
}

func resolveUserIdentifier(identifier string) []identifierOption {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil
	}

	if _, err := uuid.Parse(identifier); err == nil {
		return []identifierOption{{column: "id", value: identifier}}
	}

	if strings.Contains(identifier, "@") {
		return []identifierOption{{column: "email", value: strings.ToLower(identifier)}}
	}

	return nil
}

func mapUserStoreError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	return errors.Wrap(err, errors.CategoryInternal, "failed to load user")
}
