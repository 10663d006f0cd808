package places

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-places/middleware/jwtware"
	"github.com/goliatone/go-print"
)

// uploadedImageKey is the request local under which handlers park the
// storage key of a freshly saved upload. The error responder uses it
// to remove the file when the request fails after the upload landed.
const uploadedImageKey = "uploaded_image"

// RouteGuard builds the middleware that protects mutating routes.
type RouteGuard struct {
	cfg    Config
	tokens TokenService
	Logger Logger
}

func NewRouteGuard(tokens TokenService, cfg Config) (*RouteGuard, error) {
	if tokens == nil {
		return nil, errors.New("route guard requires a token service", errors.CategoryBadInput)
	}

	return &RouteGuard{
		cfg:    cfg,
		tokens: tokens,
		Logger: defLogger{},
	}, nil
}

// ProtectedRoute returns the bearer token guard. Any verification
// failure collapses into the same generic response so callers cannot
// tell which part of the check failed.
func (g *RouteGuard) ProtectedRoute(errorHandler func(*fiber.Ctx, error) error) fiber.Handler {
	return jwtware.New(jwtware.Config{
		ErrorHandler: errorHandler,
		AuthScheme:   g.cfg.GetAuthScheme(),
		ContextKey:   g.cfg.GetContextKey(),
		TokenLookup:  g.cfg.GetTokenLookup(),
		TokenValidator: jwtware.TokenValidatorFunc(func(tokenString string) (jwtware.AuthClaims, error) {
			return g.tokens.Validate(tokenString)
		}),
		ContextEnricher: func(ctx context.Context, claims jwtware.AuthClaims) context.Context {
			if ac, ok := claims.(AuthClaims); ok {
				return WithClaimsContext(ctx, ac)
			}
			return ctx
		},
	})
}

// MakeAuthErrorHandler normalizes guard failures into the generic
// authorization error before handing off to the responder.
func (g *RouteGuard) MakeAuthErrorHandler(respond func(*fiber.Ctx, error) error) func(*fiber.Ctx, error) error {
	return func(c *fiber.Ctx, err error) error {
		var richErr *errors.Error

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else {
			richErr = ErrAuthorizationFailed
		}

		g.Logger.Info("auth guard rejected request: %s path=%s", richErr.Message, c.OriginalURL())

		return respond(c, richErr)
	}
}

// NewErrorResponder builds the central error responder shared by every
// route. It renders {"message": ...} JSON, and when the failed request
// had already stored an upload it removes the file so no orphan is
// left behind.
func NewErrorResponder(images ImageRemover, logger Logger, sink ActivitySink) func(*fiber.Ctx, error) error {
	if logger == nil {
		logger = defLogger{}
	}
	sink = normalizeActivitySink(sink)

	return func(c *fiber.Ctx, err error) error {
		if key, ok := c.Locals(uploadedImageKey).(string); ok && key != "" && images != nil {
			if rmErr := images.Remove(c.UserContext(), key); rmErr != nil {
				logger.Warn("failed to remove orphaned upload %s: %v", key, rmErr)
			} else {
				_ = sink.Record(c.UserContext(), ActivityEvent{
					EventType:  ActivityEventImageOrphaned,
					Metadata:   map[string]any{"path": key, "removed": true},
					OccurredAt: time.Now(),
				})
			}
		}

		status, message := statusFromError(err)

		if status >= fiber.StatusInternalServerError {
			logger.Error("request failed: %v path=%s", err, c.OriginalURL())
		} else {
			var richErr *errors.Error
			if errors.As(err, &richErr) {
				logger.Info(
					"request rejected: %s category=%s details=%s",
					richErr.Message,
					richErr.Category,
					print.MaybePrettyJSON(richErr.Metadata),
				)
			}
		}

		return c.Status(status).JSON(fiber.Map{"message": message})
	}
}

func statusFromError(err error) (int, string) {
	var vErrs validation.Errors
	if errors.As(err, &vErrs) {
		return fiber.StatusUnprocessableEntity, vErrs.Error()
	}

	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return fiber.StatusInternalServerError, "an unexpected error occurred"
	}

	switch richErr.Category {
	case errors.CategoryValidation:
		return fiber.StatusUnprocessableEntity, richErr.Message
	case errors.CategoryBadInput:
		return fiber.StatusBadRequest, richErr.Message
	case errors.CategoryAuth, errors.CategoryAuthz:
		return fiber.StatusUnauthorized, richErr.Message
	case errors.CategoryNotFound:
		return fiber.StatusNotFound, richErr.Message
	case errors.CategoryConflict:
		return fiber.StatusConflict, richErr.Message
	}

	if richErr.Code >= fiber.StatusBadRequest && richErr.Code < 600 {
		return richErr.Code, richErr.Message
	}

	return fiber.StatusInternalServerError, "an unexpected error occurred"
}
