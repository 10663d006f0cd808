package places

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-places/uploads"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
)

type PlacesControllerRoutes struct {
	Places string
	Users  string
}

type PlacesController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Auther       Authenticator
	Tokens       TokenService
	Storage      uploads.Storage
	Geocoder     Geocoder
	Activity     ActivitySink
	Routes       *PlacesControllerRoutes
	ErrorHandler func(*fiber.Ctx, error) error
}

type PlacesControllerOption func(*PlacesController) *PlacesController

func WithControllerLogger(logger Logger) PlacesControllerOption {
	return func(c *PlacesController) *PlacesController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) PlacesControllerOption {
	return func(c *PlacesController) *PlacesController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther Authenticator) PlacesControllerOption {
	return func(c *PlacesController) *PlacesController {
		c.Auther = auther
		return c
	}
}

func WithControllerTokens(tokens TokenService) PlacesControllerOption {
	return func(c *PlacesController) *PlacesController {
		c.Tokens = tokens
		return c
	}
}

func WithControllerStorage(storage uploads.Storage) PlacesControllerOption {
	return func(c *PlacesController) *PlacesController {
		c.Storage = storage
		return c
	}
}

func WithControllerGeocoder(geocoder Geocoder) PlacesControllerOption {
	return func(c *PlacesController) *PlacesController {
		c.Geocoder = geocoder
		return c
	}
}

func WithControllerActivitySink(sink ActivitySink) PlacesControllerOption {
	return func(c *PlacesController) *PlacesController {
		c.Activity = sink
		return c
	}
}

func WithControllerErrorHandler(handler func(*fiber.Ctx, error) error) PlacesControllerOption {
	return func(c *PlacesController) *PlacesController {
		if handler != nil {
			c.ErrorHandler = handler
		}
		return c
	}
}

func NewPlacesController(opts ...PlacesControllerOption) *PlacesController {
	c := &PlacesController{
		Logger:   defLogger{},
		Geocoder: StaticGeocoder{},
		Routes: &PlacesControllerRoutes{
			Places: "/places",
			Users:  "/users",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in places controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in places controller...")
	}

	if c.Tokens == nil {
		panic("Missing TokenService in places controller...")
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = NewErrorResponder(c.Storage, c.Logger, c.Activity)
	}

	c.Activity = normalizeActivitySink(c.Activity)

	return c
}

// RegisterRoutes mounts every route under /api. Reads stay public,
// mutations sit behind the bearer token guard.
func RegisterRoutes(app *fiber.App, guard *RouteGuard, controller *PlacesController) {
	api := app.Group("/api")

	protected := guard.ProtectedRoute(
		guard.MakeAuthErrorHandler(controller.ErrorHandler),
	)

	placesGrp := api.Group(controller.Routes.Places)
	placesGrp.Get("/user/:uid", controller.GetPlacesByUser)
	placesGrp.Get("/:pid", controller.GetPlace)
	placesGrp.Post("/", protected, controller.CreatePlace)
	placesGrp.Patch("/:pid", protected, controller.UpdatePlace)
	placesGrp.Delete("/:pid", protected, controller.DeletePlace)

	usersGrp := api.Group(controller.Routes.Users)
	usersGrp.Get("/", controller.GetUsers)
	usersGrp.Post("/signup", controller.Signup)
	usersGrp.Post("/login", controller.Login)
}

// SignupPayload is the registration body
type SignupPayload struct {
	Name     string `form:"name" json:"name"`
	Email    string `form:"email" json:"email"`
	Phone    string `form:"phone" json:"phone"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r SignupPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Phone, validation.By(ValidatePhoneNumber)),
		validation.Field(&r.Password, validation.Required, validation.Length(7, 100)),
	)
}

// LoginPayload is the credential body
type LoginPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// CreatePlacePayload is the place creation body
type CreatePlacePayload struct {
	Title       string `form:"title" json:"title"`
	Description string `form:"description" json:"description"`
	Address     string `form:"address" json:"address"`
}

// Validate will run validation rules
func (r CreatePlacePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Description, validation.Required, validation.Length(5, 500)),
		validation.Field(&r.Address, validation.Required),
	)
}

// UpdatePlacePayload is the place update body. Address and image are
// immutable after creation.
type UpdatePlacePayload struct {
	Title       string `form:"title" json:"title"`
	Description string `form:"description" json:"description"`
}

// Validate will run validation rules
func (r UpdatePlacePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Description, validation.Required, validation.Length(5, 500)),
	)
}

func (p *PlacesController) Signup(c *fiber.Ctx) error {
	payload := new(SignupPayload)

	if err := c.BodyParser(payload); err != nil {
		return p.ErrorHandler(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse signup payload"))
	}

	if err := payload.Validate(); err != nil {
		return p.ErrorHandler(c, err)
	}

	if p.Debug {
		p.Logger.Debug("signup payload: %s", print.MaybePrettyJSON(payload))
	}

	image, err := p.saveUpload(c)
	if err != nil {
		return p.ErrorHandler(c, err)
	}

	registerUser := NewRegisterUserHandler(p.Repo, p.Activity)
	user, err := registerUser.Execute(c.UserContext(), RegisterUserMessage{
		Name:     payload.Name,
		Email:    payload.Email,
		Phone:    payload.Phone,
		Password: payload.Password,
		Image:    image,
	})
	if err != nil {
		return p.ErrorHandler(c, err)
	}

	token, err := p.Tokens.Generate(authIdentity{
		id:    user.ID.String(),
		name:  user.Name,
		email: user.Email,
	})
	if err != nil {
		return p.ErrorHandler(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"userId": user.ID,
		"email":  user.Email,
		"token":  token,
	})
}

func (p *PlacesController) Login(c *fiber.Ctx) error {
	payload := new(LoginPayload)

	if err := c.BodyParser(payload); err != nil {
		return p.ErrorHandler(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse login payload"))
	}

	if err := payload.Validate(); err != nil {
		return p.ErrorHandler(c, err)
	}

	token, err := p.Auther.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		p.Logger.Error("login error: %s", err)
		return p.ErrorHandler(c, err)
	}

	claims, err := p.Tokens.Validate(token)
	if err != nil {
		return p.ErrorHandler(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Logged in!",
		"userId":  claims.UserID(),
		"email":   claims.Email(),
		"token":   token,
	})
}

func (p *PlacesController) GetUsers(c *fiber.Ctx) error {
	users, err := p.Repo.Users().ListAll(c.UserContext())
	if err != nil {
		return p.ErrorHandler(c, err)
	}

	return c.JSON(fiber.Map{"users": users})
}

func (p *PlacesController) GetPlace(c *fiber.Ctx) error {
	pid, err := uuid.Parse(c.Params("pid"))
	if err != nil {
		return p.ErrorHandler(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid place id"))
	}

	place, err := p.Repo.Places().GetByID(c.UserContext(), pid)
	if err != nil {
		return p.ErrorHandler(c, err)
	}

	return c.JSON(fiber.Map{"place": place})
}

func (p *PlacesController) GetPlacesByUser(c *fiber.Ctx) error {
	uid, err := uuid.Parse(c.Params("uid"))
	if err != nil {
		return p.ErrorHandler(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid user id"))
	}

	records, err := p.Repo.Places().ListByOwner(c.UserContext(), uid)
	if err != nil {
		return p.ErrorHandler(c, err)
	}

	if len(records) == 0 {
		return p.ErrorHandler(c, goerrors.New(
			"could not find places for the provided user id",
			goerrors.CategoryNotFound,
		).WithTextCode("PLACES_NOT_FOUND"))
	}

	return c.JSON(fiber.Map{"places": records})
}

func (p *PlacesController) CreatePlace(c *fiber.Ctx) error {
	claims, ok := GetClaims(c.UserContext())
	if !ok {
		return p.ErrorHandler(c, ErrAuthorizationFailed)
	}

	payload := new(CreatePlacePayload)
	if err := c.BodyParser(payload); err != nil {
		return p.ErrorHandler(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse place payload"))
	}

	if err := payload.Validate(); err != nil {
		return p.ErrorHandler(c, err)
	}

	image, err := p.saveUpload(c)
	if err != nil {
		return p.ErrorHandler(c, err)
	}

	if image == "" {
		return p.ErrorHandler(c, goerrors.New(
			"an image is required to create a place",
			goerrors.CategoryValidation,
		).WithTextCode("IMAGE_REQUIRED"))
	}

	createPlace := NewCreatePlaceHandler(p.Repo, p.Geocoder, p.Activity)
	place, err := createPlace.Execute(c.UserContext(), CreatePlaceMessage{
		Title:       payload.Title,
		Description: payload.Description,
		Address:     payload.Address,
		CreatorID:   claims.UserID(),
		ImagePath:   image,
	})
	if err != nil {
		return p.ErrorHandler(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"place": place})
}

func (p *PlacesController) UpdatePlace(c *fiber.Ctx) error {
	claims, ok := GetClaims(c.UserContext())
	if !ok {
		return p.ErrorHandler(c, ErrAuthorizationFailed)
	}

	payload := new(UpdatePlacePayload)
	if err := c.BodyParser(payload); err != nil {
		return p.ErrorHandler(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse place payload"))
	}

	if err := payload.Validate(); err != nil {
		return p.ErrorHandler(c, err)
	}

	updatePlace := NewUpdatePlaceHandler(p.Repo, p.Activity)
	place, err := updatePlace.Execute(c.UserContext(), UpdatePlaceMessage{
		PlaceID:     c.Params("pid"),
		CallerID:    claims.UserID(),
		Title:       payload.Title,
		Description: payload.Description,
	})
	if err != nil {
		return p.ErrorHandler(c, err)
	}

	return c.JSON(fiber.Map{"place": place})
}

func (p *PlacesController) DeletePlace(c *fiber.Ctx) error {
	claims, ok := GetClaims(c.UserContext())
	if !ok {
		return p.ErrorHandler(c, ErrAuthorizationFailed)
	}

	deletePlace := NewDeletePlaceHandler(p.Repo, p.Storage, p.Activity).
		WithLogger(p.Logger)

	err := deletePlace.Execute(c.UserContext(), DeletePlaceMessage{
		PlaceID:  c.Params("pid"),
		CallerID: claims.UserID(),
	})
	if err != nil {
		return p.ErrorHandler(c, err)
	}

	return c.JSON(fiber.Map{"message": "Deleted place."})
}

// saveUpload stores the optional multipart image and parks its key in
// the request locals so a later failure can clean it up.
func (p *PlacesController) saveUpload(c *fiber.Ctx) (string, error) {
	if p.Storage == nil {
		return "", nil
	}

	fh, err := c.FormFile("image")
	if err != nil {
		return "", nil
	}

	contentType := fh.Header.Get(fiber.HeaderContentType)

	key, err := uploads.NewImageKey(contentType)
	if err != nil {
		return "", err
	}

	f, err := fh.Open()
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open uploaded file")
	}
	defer f.Close()

	if _, err := p.Storage.Save(c.UserContext(), key, contentType, f); err != nil {
		return "", err
	}

	c.Locals(uploadedImageKey, key)

	return key, nil
}

// ValidatePhoneNumber accepts empty values and otherwise requires a
// parseable, valid number. Numbers without a country code are read as
// US numbers.
func ValidatePhoneNumber(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}

	num, err := phonenumbers.Parse(s, "US")
	if err != nil {
		return fmt.Errorf("invalid phone number: %w", err)
	}

	if !phonenumbers.IsValidNumber(num) {
		return fmt.Errorf("invalid phone number")
	}

	return nil
}
