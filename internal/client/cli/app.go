package cli

import (
	"bufio"
	"context"
	"database/sql"
	"log/slog"
	"os"
	"time"

	"github.com/cvkitdev/cvkit/internal/client/api"
	"github.com/cvkitdev/cvkit/internal/client/capabilities"
	"github.com/cvkitdev/cvkit/internal/client/config"
	"github.com/cvkitdev/cvkit/internal/client/credentials"
	"github.com/cvkitdev/cvkit/internal/client/models"
	"github.com/cvkitdev/cvkit/internal/client/repositories/metadata"
	"github.com/cvkitdev/cvkit/internal/client/services"
	"github.com/cvkitdev/cvkit/internal/client/session"
	"github.com/cvkitdev/cvkit/internal/client/storage"
	"github.com/cvkitdev/cvkit/internal/logging"

	_ "modernc.org/sqlite"
)

// sessionController is the slice of the session controller the shell uses.
// Narrowed to an interface so command handlers can be tested with fakes.
type sessionController interface {
	Start(ctx context.Context)
	State() session.State
	CurrentUser() *models.User
	TokenExpiry() (time.Time, bool)
	Login(ctx context.Context, email, password string) error
	Register(ctx context.Context, email, password, name string) error
	Logout(ctx context.Context)
	RefreshUser(ctx context.Context) error
	UpdateProfile(ctx context.Context, upd api.ProfileUpdate) (*models.User, error)
}

// resumeService is the slice of the resume service the shell uses.
type resumeService interface {
	Generate(ctx context.Context, req api.GenerateRequest) (*models.Resume, error)
	Get(ctx context.Context, idOrSlug string) (*models.Resume, error)
	List(ctx context.Context) ([]models.ResumeListItem, error)
	Update(ctx context.Context, id string, req api.UpdateResumeRequest) (*models.Resume, error)
	Delete(ctx context.Context, id string) error
	Duplicate(ctx context.Context, id string) (*models.Resume, error)
	Improve(ctx context.Context, req api.ImproveRequest) (*api.ImproveResponse, error)
	GeneratePDF(ctx context.Context, id string) (string, error)
}

// App wires the client components together and runs the shell.
type App struct {
	config  *config.Config
	session sessionController
	resumes resumeService
	client  api.Client
	db      *sql.DB
	log     logging.Logger
	reader  *bufio.Reader
}

// NewApp opens the local database, runs migrations and wires the stores,
// the API client, the session controller and the resume service.
func NewApp(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr,
		&slog.HandlerOptions{Level: slog.LevelWarn})))

	db, err := storage.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	creds := credentials.NewStore(metadata.NewSQLiteRepository(db), logger)
	caps := capabilities.NewStore(ctx, db, logger)

	client := api.NewHTTPClient(cfg.APIBaseURL, cfg.RequestTimeout, logger)
	sess := session.NewController(client, creds, logger, cfg.HydrationTimeout)

	return &App{
		config:  cfg,
		session: sess,
		resumes: services.NewResumeService(client, sess, caps, logger),
		client:  client,
		db:      db,
		log:     logger,
		reader:  bufio.NewReader(os.Stdin),
	}, nil
}

// Run resolves the initial session state and enters the command loop.
func (a *App) Run(ctx context.Context) {
	defer a.Close()
	a.session.Start(ctx)
	a.Root(ctx)
}

// Close releases the API client and the local database.
func (a *App) Close() {
	if a.client != nil {
		_ = a.client.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *App) isLoggedIn() bool {
	return a.session.State() == session.StateAuthenticated
}
