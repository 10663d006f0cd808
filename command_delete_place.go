package places

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ImageRemover deletes a stored image by path. The uploads backends
// satisfy this.
type ImageRemover interface {
	Remove(ctx context.Context, path string) error
}

type DeletePlaceMessage struct {
	PlaceID  string `json:"place_id"`
	CallerID string `json:"caller_id"`
}

func (e DeletePlaceMessage) Type() string { return "place.delete" }

// DeletePlaceHandler removes a place and detaches it from its owner
// inside a single transaction. The image file is removed only after
// the transaction commits, so a rolled back delete never loses the
// file.
type DeletePlaceHandler struct {
	repo     RepositoryManager
	images   ImageRemover
	logger   Logger
	activity ActivitySink
}

func NewDeletePlaceHandler(repo RepositoryManager, images ImageRemover, sink ActivitySink) *DeletePlaceHandler {
	return &DeletePlaceHandler{
		repo:     repo,
		images:   images,
		logger:   defLogger{},
		activity: normalizeActivitySink(sink),
	}
}

func (h *DeletePlaceHandler) WithLogger(logger Logger) *DeletePlaceHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *DeletePlaceHandler) Execute(ctx context.Context, event DeletePlaceMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during place deletion",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *DeletePlaceHandler) execute(ctx context.Context, event DeletePlaceMessage) error {
	placeID, err := uuid.Parse(event.PlaceID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid place id").
			WithTextCode("INVALID_PLACE_ID")
	}

	var place *Place
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if place, err = h.repo.Places().GetByIDTx(ctx, tx, placeID); err != nil {
			return err
		}

		if place.Owner == nil {
			return ErrPlaceNotFound
		}

		if err := AuthorizeOwner(place.OwnerID, event.CallerID); err != nil {
			return err
		}

		if err := h.repo.Places().DeleteTx(ctx, tx, placeID); err != nil {
			return err
		}

		if _, err := h.repo.Users().DetachPlaceTx(ctx, tx, place.OwnerID, placeID); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "place deletion transaction failed")
	}

	if h.images != nil && place.Image != "" {
		if err := h.images.Remove(ctx, place.Image); err != nil {
			h.logger.Warn("failed to remove place image %s: %v", place.Image, err)
			_ = h.activity.Record(ctx, ActivityEvent{
				EventType:  ActivityEventImageOrphaned,
				UserID:     event.CallerID,
				PlaceID:    placeID.String(),
				Metadata:   map[string]any{"path": place.Image},
				OccurredAt: time.Now(),
			})
		}
	}

	_ = h.activity.Record(ctx, ActivityEvent{
		EventType:  ActivityEventPlaceDeleted,
		UserID:     event.CallerID,
		PlaceID:    placeID.String(),
		OccurredAt: time.Now(),
	})

	return nil
}
