package jwtware_test

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-places/middleware/jwtware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClaims struct {
	subject string
	userID  string
	email   string
}

func (c testClaims) Subject() string { return c.subject }
func (c testClaims) UserID() string  { return c.userID }
func (c testClaims) Email() string   { return c.email }

func newApp(validator jwtware.TokenValidator, cfg ...jwtware.Config) *fiber.App {
	app := fiber.New()

	config := jwtware.Config{TokenValidator: validator}
	if len(cfg) > 0 {
		config = cfg[0]
		config.TokenValidator = validator
	}

	app.Use(jwtware.New(config))

	app.All("/protected", func(c *fiber.Ctx) error {
		claims, _ := c.Locals("user").(jwtware.AuthClaims)
		if claims == nil {
			return c.Status(fiber.StatusInternalServerError).SendString("no claims")
		}
		return c.JSON(fiber.Map{"userId": claims.UserID()})
	})

	return app
}

func acceptAll() jwtware.TokenValidator {
	return jwtware.TokenValidatorFunc(func(token string) (jwtware.AuthClaims, error) {
		return testClaims{subject: "u1", userID: "u1", email: "u1@example.com"}, nil
	})
}

func rejectAll() jwtware.TokenValidator {
	return jwtware.TokenValidatorFunc(func(token string) (jwtware.AuthClaims, error) {
		return nil, errors.New("token is malformed")
	})
}

func TestGuardRejectsMissingToken(t *testing.T) {
	app := newApp(acceptAll())

	req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
}

func TestGuardRejectsInvalidToken(t *testing.T) {
	app := newApp(rejectAll())

	req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer bad-token")

	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
}

func TestGuardAcceptsBearerToken(t *testing.T) {
	var seen string
	validator := jwtware.TokenValidatorFunc(func(token string) (jwtware.AuthClaims, error) {
		seen = token
		return testClaims{subject: "u1", userID: "u1", email: "u1@example.com"}, nil
	})

	app := newApp(validator)

	req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer good-token")

	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)
	assert.Equal(t, "good-token", seen)
}

func TestGuardLetsPreflightThrough(t *testing.T) {
	app := newApp(rejectAll())

	req := httptest.NewRequest(fiber.MethodOptions, "/protected", nil)
	res, err := app.Test(req)
	require.NoError(t, err)
	assert.NotEqual(t, fiber.StatusUnauthorized, res.StatusCode)
}

func TestGuardCustomLookup(t *testing.T) {
	app := newApp(acceptAll(), jwtware.Config{
		TokenLookup: "query:auth_token",
	})

	req := httptest.NewRequest(fiber.MethodGet, "/protected?auth_token=tok", nil)
	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)
}

func TestGetExtractors(t *testing.T) {
	extractors := jwtware.GetExtractors("header:Authorization,cookie:jwt,query:auth_token")
	assert.Len(t, extractors, 3)

	extractors = jwtware.GetExtractors("bogus")
	assert.Empty(t, extractors)
}
