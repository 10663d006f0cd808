package places

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type UpdatePlaceMessage struct {
	PlaceID     string `json:"place_id"`
	CallerID    string `json:"caller_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (e UpdatePlaceMessage) Type() string { return "place.update" }

type UpdatePlaceHandler struct {
	repo     RepositoryManager
	activity ActivitySink
}

func NewUpdatePlaceHandler(repo RepositoryManager, sink ActivitySink) *UpdatePlaceHandler {
	return &UpdatePlaceHandler{
		repo:     repo,
		activity: normalizeActivitySink(sink),
	}
}

func (h *UpdatePlaceHandler) Execute(ctx context.Context, event UpdatePlaceMessage) (*Place, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during place update",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdatePlaceHandler) execute(ctx context.Context, event UpdatePlaceMessage) (*Place, error) {
	placeID, err := uuid.Parse(event.PlaceID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid place id").
			WithTextCode("INVALID_PLACE_ID")
	}

	var place *Place
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// Existence is settled before ownership so a missing record
		// never reads as a permission problem.
		if place, err = h.repo.Places().GetByIDTx(ctx, tx, placeID); err != nil {
			return err
		}

		if err := AuthorizeOwner(place.OwnerID, event.CallerID); err != nil {
			return err
		}

		place.Title = event.Title
		place.Description = event.Description

		if place, err = h.repo.Places().UpdateTx(ctx, tx, place); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}

		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "place update transaction failed")
	}

	_ = h.activity.Record(ctx, ActivityEvent{
		EventType:  ActivityEventPlaceUpdated,
		UserID:     event.CallerID,
		PlaceID:    place.ID.String(),
		OccurredAt: time.Now(),
	})

	return place, nil
}
