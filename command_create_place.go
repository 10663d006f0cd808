package places

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type CreatePlaceMessage struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Address     string `json:"address"`
	CreatorID   string `json:"creator"`
	ImagePath   string `json:"image"`
}

func (e CreatePlaceMessage) Type() string { return "place.create" }

// CreatePlaceHandler creates a place and links it to its owner inside
// a single transaction. Either both rows change or neither does.
type CreatePlaceHandler struct {
	repo     RepositoryManager
	geocoder Geocoder
	activity ActivitySink
}

func NewCreatePlaceHandler(repo RepositoryManager, geocoder Geocoder, sink ActivitySink) *CreatePlaceHandler {
	if geocoder == nil {
		geocoder = StaticGeocoder{}
	}

	return &CreatePlaceHandler{
		repo:     repo,
		geocoder: geocoder,
		activity: normalizeActivitySink(sink),
	}
}

func (h *CreatePlaceHandler) Execute(ctx context.Context, event CreatePlaceMessage) (*Place, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during place creation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *CreatePlaceHandler) execute(ctx context.Context, event CreatePlaceMessage) (*Place, error) {
	creatorID, err := uuid.Parse(event.CreatorID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid creator id").
			WithTextCode("INVALID_CREATOR_ID")
	}

	coords, err := h.geocoder.Resolve(ctx, event.Address)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to resolve address")
	}

	place := &Place{
		Title:       event.Title,
		Description: event.Description,
		Address:     event.Address,
		Lat:         coords.Lat,
		Lng:         coords.Lng,
		Image:       event.ImagePath,
		OwnerID:     creatorID,
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Users().FindByIDTx(ctx, tx, creatorID); err != nil {
			return err
		}

		if place, err = h.repo.Places().CreateTx(ctx, tx, place); err != nil {
			return err
		}

		if _, err := h.repo.Users().AttachPlaceTx(ctx, tx, creatorID, place.ID); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}

		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "place creation transaction failed")
	}

	_ = h.activity.Record(ctx, ActivityEvent{
		EventType:  ActivityEventPlaceCreated,
		UserID:     creatorID.String(),
		PlaceID:    place.ID.String(),
		OccurredAt: time.Now(),
	})

	return place, nil
}
