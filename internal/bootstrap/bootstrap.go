package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/KAMLESH7939/backend-inclusight/internal/application"
	appadvice "github.com/KAMLESH7939/backend-inclusight/internal/application/advice"
	appanalyses "github.com/KAMLESH7939/backend-inclusight/internal/application/analyses"
	appusers "github.com/KAMLESH7939/backend-inclusight/internal/application/users"
	"github.com/KAMLESH7939/backend-inclusight/internal/config"
	"github.com/KAMLESH7939/backend-inclusight/internal/domain/advice"
	"github.com/KAMLESH7939/backend-inclusight/internal/infra/ai/openai"
	"github.com/KAMLESH7939/backend-inclusight/internal/infra/ai/prompt"
	"github.com/KAMLESH7939/backend-inclusight/internal/infra/axe"
	"github.com/KAMLESH7939/backend-inclusight/internal/infra/browser"
	"github.com/KAMLESH7939/backend-inclusight/internal/infra/db/mysql"
	"github.com/KAMLESH7939/backend-inclusight/internal/infra/db/postgres"
	"github.com/KAMLESH7939/backend-inclusight/internal/infra/db/sqlite"
	"github.com/KAMLESH7939/backend-inclusight/internal/infra/db/sqlstore"
	"github.com/KAMLESH7939/backend-inclusight/internal/infra/executor/lighthouse"
	"github.com/KAMLESH7939/backend-inclusight/internal/infra/httpserver"
	"github.com/KAMLESH7939/backend-inclusight/internal/infra/storage"
	"github.com/KAMLESH7939/backend-inclusight/internal/middleware"
	"github.com/KAMLESH7939/backend-inclusight/internal/reporting"
)

// App holds the wired services of one process.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	DB       *sql.DB
	Analyses *appanalyses.Service
	Users    *appusers.Service
	Advice   *appadvice.Service
	Checks   map[string]middleware.HealthChecker
}

// OpenDB connects to the configured driver and applies the schema.
func OpenDB(ctx context.Context, cfg *config.Config) (*sql.DB, sqlstore.Dialect, error) {
	dsn := cfg.DatabaseDSN()
	var (
		db      *sql.DB
		dialect sqlstore.Dialect
		migrate func(context.Context, *sql.DB) error
		err     error
	)
	switch cfg.Database.Driver {
	case "mysql":
		db, err = mysql.Connect(ctx, dsn)
		dialect, migrate = sqlstore.MySQL, mysql.Migrate
	case "postgres":
		db, err = postgres.Connect(ctx, dsn)
		dialect, migrate = sqlstore.Postgres, postgres.Migrate
	case "sqlite":
		db, err = sqlite.Open(ctx, dsn)
		dialect, migrate = sqlstore.SQLite, sqlite.Migrate
	default:
		return nil, sqlstore.Dialect{}, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	if err != nil {
		return nil, dialect, fmt.Errorf("connect %s: %w", cfg.Database.Driver, err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, dialect, err
	}
	return db, dialect, nil
}

// New wires stores, engines and services from cfg.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, dialect, err := OpenDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app := &App{Config: cfg, Logger: logger, DB: db}
	app.Checks = map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
	}

	var artifacts *storage.Store
	if cfg.Minio.Enabled {
		artifacts, err = storage.New(ctx, storage.Options{
			Endpoint:      cfg.Minio.Endpoint,
			Region:        cfg.Minio.Region,
			Bucket:        cfg.Minio.BucketName,
			AccessKey:     cfg.Minio.AccessKey,
			SecretKey:     cfg.Minio.SecretKey,
			UseSSL:        cfg.Minio.UseSSL,
			PublicBaseURL: cfg.Minio.PublicBaseURL,
		}, logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("minio: %w", err)
		}
	}

	script, err := axe.LoadScript(ctx, cfg.Axe.ScriptPath, cfg.Axe.ScriptURL)
	if err != nil {
		logger.Warn("axe-core script unavailable, rule engine will fail until restart", "error", err)
	}
	app.Checks["axe"] = middleware.CheckFunc(func(context.Context) error {
		if script == "" {
			return errors.New("axe-core script not loaded")
		}
		return nil
	})

	loc, err := cfg.Location()
	if err != nil {
		db.Close()
		return nil, err
	}

	analyses := &appanalyses.Service{
		Repo:     sqlstore.NewAnalysisRepository(db, dialect),
		Failures: sqlstore.NewFailureRepository(db, dialect),
		Sessions: &browser.Factory{
			Launcher: &browser.ChromeLauncher{
				ExecPath:     cfg.Browser.ChromePath,
				NoSandbox:    cfg.Browser.NoSandbox,
				Headful:      cfg.Browser.Headful,
				UserAgent:    cfg.Browser.UserAgent,
				WindowWidth:  cfg.Browser.WindowWidth,
				WindowHeight: cfg.Browser.WindowHeight,
			},
			NavigationTimeout: cfg.Browser.NavigationTimeout,
			Idle:              browser.IdleCondition{MaxInflight: 0, Quiet: cfg.Browser.IdleQuiet},
			Logger:            logger,
		},
		Auditor:    newAuditor(cfg, artifacts != nil, logger),
		Rules:      &axe.Engine{Script: script, RunOnly: cfg.Axe.RunOnly},
		Encoder:    reporting.CSVEncoder{Location: loc, DateLayout: cfg.Report.DateLayout},
		Clock:      application.SystemClock{},
		Logger:     logger,
		Timeout:    cfg.Analysis.Timeout,
		Sequential: !cfg.Analysis.Parallel,
	}
	if artifacts != nil {
		analyses.Artifacts = artifacts
	}
	app.Analyses = analyses
	app.Users = &appusers.Service{Repo: sqlstore.NewUserRepository(db, dialect), Clock: application.SystemClock{}}

	var advisor advice.Advisor = prompt.Heuristic{}
	if cfg.OpenAI.APIKey != "" {
		if cfg.OpenAI.BaseURL != "" {
			advisor = openai.NewClientWithBaseURL(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
		} else {
			advisor = openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
		}
	}
	app.Advice = appadvice.NewService(analyses, advisor)

	logger.Info("application wired",
		"database", cfg.Database.Driver,
		"minio", artifacts != nil,
		"openai", cfg.OpenAI.APIKey != "",
		"parallel", cfg.Analysis.Parallel,
	)
	return app, nil
}

func newAuditor(cfg *config.Config, keep bool, logger *slog.Logger) *lighthouse.Runner {
	r := &lighthouse.Runner{
		Binary:      cfg.Lighthouse.Binary,
		ChromeFlags: cfg.Lighthouse.ChromeFlags,
		TempDir:     cfg.Lighthouse.TempDir,
		KeepReport:  keep,
		Logger:      logger,
	}
	if cfg.Lighthouse.DockerImage != "" {
		r.Image = cfg.Lighthouse.DockerImage
		r.Binary = "docker"
	}
	return r
}

// Handler builds the HTTP router.
func (a *App) Handler() http.Handler {
	origins := []string{"http://localhost:5173"}
	if o := a.Config.Server.FrontendOrigin; o != "" && o != origins[0] {
		origins = append(origins, o)
	}
	return httpserver.NewRouter(httpserver.Options{
		Analyses:            a.Analyses,
		Users:               a.Users,
		Advice:              a.Advice,
		Checks:              a.Checks,
		Logger:              a.Logger,
		AllowedOrigins:      origins,
		TrustProxy:          a.Config.Server.TrustProxy,
		AllowPrivateTargets: a.Config.Analysis.AllowPrivateTargets,
		RateLimitCapacity:   a.Config.Analysis.RateLimit.Capacity,
		RateLimitPerMinute:  a.Config.Analysis.RateLimit.PerMinute,
	})
}

func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}
