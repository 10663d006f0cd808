package main

import (
	"context"
	"database/sql"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	places "github.com/goliatone/go-places"
	"github.com/goliatone/go-places/uploads"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type appConfig struct {
	addr            string
	dsn             string
	uploadsRoot     string
	signingKey      string
	signingMethod   string
	contextKey      string
	tokenExpiration int
	tokenLookup     string
	authScheme      string
	issuer          string
	audience        []string

	s3Bucket    string
	s3Region    string
	s3AccessKey string
	s3SecretKey string
	s3Endpoint  string
}

func (c appConfig) GetSigningKey() string    { return c.signingKey }
func (c appConfig) GetSigningMethod() string { return c.signingMethod }
func (c appConfig) GetContextKey() string    { return c.contextKey }
func (c appConfig) GetTokenExpiration() int  { return c.tokenExpiration }
func (c appConfig) GetTokenLookup() string   { return c.tokenLookup }
func (c appConfig) GetAuthScheme() string    { return c.authScheme }
func (c appConfig) GetIssuer() string        { return c.issuer }
func (c appConfig) GetAudience() []string    { return c.audience }

func loadConfig() appConfig {
	_ = godotenv.Load()

	expiration := 1
	if v := os.Getenv("TOKEN_EXPIRATION_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			expiration = n
		}
	}

	var audience []string
	if v := os.Getenv("JWT_AUDIENCE"); v != "" {
		audience = strings.Split(v, ",")
	}

	return appConfig{
		addr:            getenv("ADDR", ":5000"),
		dsn:             getenv("DATABASE_DSN", "file:places.db?cache=shared"),
		uploadsRoot:     getenv("UPLOADS_ROOT", "./storage"),
		signingKey:      os.Getenv("JWT_SIGNING_KEY"),
		signingMethod:   getenv("JWT_SIGNING_METHOD", "HS256"),
		contextKey:      getenv("AUTH_CONTEXT_KEY", "user"),
		tokenExpiration: expiration,
		tokenLookup:     getenv("AUTH_TOKEN_LOOKUP", "header:Authorization"),
		authScheme:      getenv("AUTH_SCHEME", "Bearer"),
		issuer:          getenv("JWT_ISSUER", "go-places"),
		audience:        audience,

		s3Bucket:    os.Getenv("S3_BUCKET"),
		s3Region:    getenv("S3_REGION", "us-east-1"),
		s3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		s3SecretKey: os.Getenv("S3_SECRET_KEY"),
		s3Endpoint:  os.Getenv("S3_ENDPOINT"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// userStoreAdapter narrows the users repository to the identity
// lookup the authentication provider needs.
type userStoreAdapter struct {
	users places.Users
}

func (a userStoreAdapter) GetByIdentifier(ctx context.Context, identifier string) (*places.User, error) {
	return a.users.GetByIdentifier(ctx, identifier)
}

func main() {
	cfg := loadConfig()

	if cfg.signingKey == "" {
		log.Fatal("JWT_SIGNING_KEY is required")
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if err := runMigrations(context.Background(), db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	repo := places.NewRepositoryManager(db)
	repo.MustValidate()

	provider := places.NewUserProvider(userStoreAdapter{users: repo.Users()})

	auther, err := places.NewAuthenticator(provider, cfg)
	if err != nil {
		log.Fatalf("failed to build authenticator: %v", err)
	}

	storage, err := buildStorage(cfg)
	if err != nil {
		log.Fatalf("failed to build upload storage: %v", err)
	}

	guard, err := places.NewRouteGuard(auther.TokenService(), cfg)
	if err != nil {
		log.Fatalf("failed to build route guard: %v", err)
	}

	controller := places.NewPlacesController(
		places.WithControllerRepo(repo),
		places.WithControllerAuther(auther),
		places.WithControllerTokens(auther.TokenService()),
		places.WithControllerStorage(storage),
	)

	app := fiber.New(fiber.Config{
		AppName: "go-places",
	})

	app.Use(cors.New())

	if cfg.s3Bucket == "" {
		app.Static("/uploads", filepath.Join(cfg.uploadsRoot, "uploads"))
	}

	places.RegisterRoutes(app, guard, controller)

	log.Printf("listening on %s", cfg.addr)
	log.Fatal(app.Listen(cfg.addr))
}

func buildStorage(cfg appConfig) (uploads.Storage, error) {
	if cfg.s3Bucket != "" {
		return uploads.NewS3Storage(context.Background(), uploads.S3Config{
			Region:    cfg.s3Region,
			Bucket:    cfg.s3Bucket,
			AccessKey: cfg.s3AccessKey,
			SecretKey: cfg.s3SecretKey,
			Endpoint:  cfg.s3Endpoint,
		})
	}

	return uploads.NewLocalStorage(cfg.uploadsRoot)
}

func runMigrations(ctx context.Context, db *bun.DB) error {
	migrations := places.GetMigrationsFS()

	var files []string
	err := fs.WalkDir(migrations, "data/sql/migrations", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".up.sql") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	sort.Strings(files)

	for _, file := range files {
		raw, err := fs.ReadFile(migrations, file)
		if err != nil {
			return err
		}

		if _, err := db.ExecContext(ctx, string(raw)); err != nil {
			return err
		}
	}

	return nil
}
