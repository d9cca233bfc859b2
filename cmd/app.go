package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/customeros/lexsync/config"
	"github.com/customeros/lexsync/dto"
	"github.com/customeros/lexsync/internal/database"
	"github.com/customeros/lexsync/internal/logger"
	"github.com/customeros/lexsync/internal/repository"
	"github.com/customeros/lexsync/internal/tracing"
	"github.com/customeros/lexsync/server"
	"github.com/customeros/lexsync/services"
	"github.com/customeros/lexsync/services/importer"
)

// appContext holds what every command needs; close releases it in reverse order.
type appContext struct {
	cfg    *config.Config
	log    logger.Logger
	db     *gorm.DB
	closer io.Closer
}

func (r *appContext) close() {
	if r.closer != nil {
		_ = r.closer.Close()
	}
	_ = r.log.Sync()
}

func NewApp() *cli.App {
	return &cli.App{
		Name:  "lexsync",
		Usage: "import PDF vouchers from an IMAP mailbox into Lexware",
		Commands: []*cli.Command{
			importCommand(),
			resyncCommand(),
			scheduleCommand(),
			migrateCommand(),
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Run one import cycle",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "since", Usage: "only messages since `YYYY-MM-DD` (default: 7 days ago)"},
			&cli.IntFlag{Name: "limit", Value: dto.DefaultFetchLimit, Usage: "maximum number of messages"},
			&cli.StringFlag{Name: "from", Usage: "sender substring, case-insensitive"},
			&cli.StringFlag{Name: "subject-contains", Usage: "subject substring, case-insensitive"},
			&cli.StringFlag{Name: "mailbox", Usage: "mailbox to read (default: IMAP_MAILBOX)"},
			&cli.BoolFlag{Name: "unseen", Usage: "only unseen messages"},
			&cli.BoolFlag{Name: "seen", Usage: "only seen messages"},
		},
		Action: func(c *cli.Context) error {
			return withServices(c, func(ctx context.Context, rt *appContext, svcs *services.Services) error {
				summary, err := svcs.Importer.RunOnce(ctx, filterFromFlags(c, rt.log))
				if err != nil {
					return errors.Wrap(err, "import cycle")
				}
				return printSummary(c.App.Writer, summary)
			})
		},
	}
}

func resyncCommand() *cli.Command {
	return &cli.Command{
		Name:  "resync",
		Usage: "Upload stored PDFs that were never synced",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: importer.DefaultResyncLimit, Usage: "maximum number of records"},
		},
		Action: func(c *cli.Context) error {
			return withServices(c, func(ctx context.Context, rt *appContext, svcs *services.Services) error {
				summary, err := svcs.Importer.Resync(ctx, c.Int("limit"))
				if err != nil {
					return errors.Wrap(err, "resync")
				}
				return printSummary(c.App.Writer, summary)
			})
		},
	}
}

func scheduleCommand() *cli.Command {
	return &cli.Command{
		Name:  "schedule",
		Usage: "Run import cycles on a cron schedule with health and metrics endpoints",
		Action: func(c *cli.Context) error {
			return withServices(c, func(ctx context.Context, rt *appContext, svcs *services.Services) error {
				var k8s kubernetes.Interface
				if rt.cfg.CronConfig.LeaderElection && !rt.cfg.AppConfig.LocalDev {
					client, err := inClusterClient()
					if err != nil {
						rt.log.Warn("Kubernetes client unavailable, running without leader election", zap.Error(err))
					} else {
						k8s = client
					}
				}
				return server.NewServer(rt.cfg, svcs, rt.log, k8s).Run(ctx)
			})
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create or update the database schema",
		Action: func(c *cli.Context) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			if err := repository.MigrateDB(rt.cfg.DatabaseConfig, rt.db); err != nil {
				return errors.Wrap(err, "database migration")
			}
			rt.log.Info("Database migration completed successfully")
			return nil
		},
	}
}

func newRuntime() (*appContext, error) {
	cfg, err := config.InitConfig()
	if err != nil {
		return nil, errors.Wrap(err, "config initialization")
	}

	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()

	tracer, closer, err := tracing.NewJaegerTracer(cfg.Tracing, appLogger)
	if err != nil {
		appLogger.Warnf("Could not initialize jaeger tracer: %v", err)
	} else {
		opentracing.SetGlobalTracer(tracer)
	}

	db, err := database.InitDatabase(cfg.DatabaseConfig)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, errors.Wrap(err, "database initialization")
	}

	return &appContext{cfg: cfg, log: appLogger, db: db, closer: closer}, nil
}

func withServices(c *cli.Context, fn func(ctx context.Context, rt *appContext, svcs *services.Services) error) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	svcs, err := services.InitServices(rt.cfg, rt.db, rt.log)
	if err != nil {
		return errors.Wrap(err, "services initialization")
	}
	defer func() {
		if err := svcs.Close(); err != nil {
			rt.log.Warn("Closing services failed", zap.Error(err))
		}
	}()

	return fn(c.Context, rt, svcs)
}

func inClusterClient() (kubernetes.Interface, error) {
	restConfig, err := rest.InClusterConfig()
	if err != nil {
		return nil, err
	}
	return kubernetes.NewForConfig(restConfig)
}

func printSummary(w io.Writer, summary *dto.ImportSummary) error {
	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
