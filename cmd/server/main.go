// Package main is the entry point for the School Portal server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pandeptwidyaop/school-portal/internal/config"
	"github.com/pandeptwidyaop/school-portal/internal/database"
	"github.com/pandeptwidyaop/school-portal/internal/logging"
	"github.com/pandeptwidyaop/school-portal/internal/models"
	"github.com/pandeptwidyaop/school-portal/internal/router"
	"github.com/pandeptwidyaop/school-portal/internal/service"
	"github.com/pandeptwidyaop/school-portal/internal/services"
	"github.com/pandeptwidyaop/school-portal/internal/storage"
	"github.com/pandeptwidyaop/school-portal/internal/version"
)

const usage = `Usage: server [command] [-config config.yaml]

Commands:
  (none)         run the HTTP server
  backup         create a manual backup and exit
  restore <id>   restore the live database from a backup and exit
  service <op>   install, uninstall or show the systemd unit (op: install|uninstall|status)
  version        print version information
`

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes one command and returns the process exit code. Keeping
// os.Exit out of here lets the deferred close release both pools.
func run(args []string) int {
	command := ""
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}

	if command == "version" {
		printVersion()
		return 0
	}

	flags := flag.NewFlagSet("server", flag.ContinueOnError)
	flags.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	configPath := flags.String("config", "config.yaml", "path to config file")
	showVersion := flags.Bool("version", false, "show version information")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load config from %s: %v\n", *configPath, err)
		cfg, err = config.Load("")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load default configuration: %v\n", err)
			return 1
		}
	}

	if command == "service" {
		return runService(flags.Arg(0), *configPath, cfg)
	}

	log := logging.New(cfg.Log)

	a, err := newApp(cfg, log)
	if err != nil {
		log.WithError(err).Error("failed to initialize")
		return 1
	}
	defer a.close()

	switch command {
	case "":
		if err := a.serve(); err != nil {
			log.WithError(err).Error("server stopped")
			return 1
		}
	case "backup":
		rec, err := a.backups.CreateBackup(context.Background(), models.BackupTypeManual)
		if err != nil {
			log.WithError(err).Error("backup failed")
			return 1
		}
		fmt.Printf("Backup %s written to %s (%d bytes)\n", rec.ID, rec.Filename, rec.FileSize)
	case "restore":
		if flags.NArg() < 1 {
			fmt.Fprint(os.Stderr, usage)
			return 2
		}
		result, err := a.backups.RestoreBackup(context.Background(), flags.Arg(0))
		if err != nil {
			log.WithError(err).Error("restore failed")
			return 1
		}
		fmt.Printf("Restored %s at %s\n", result.Filename, result.RestoredAt.Format(time.RFC3339))
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n%s", command, usage)
		return 2
	}
	return 0
}

func runService(op, configPath string, cfg *config.Config) int {
	var err error
	switch op {
	case "install":
		unit := service.DefaultUnit(configPath, cfg.Backup.Dir)
		if err = service.Install(unit); err == nil {
			fmt.Printf("Installed %s\n", service.UnitPath)
		}
	case "uninstall":
		if err = service.Uninstall(); err == nil {
			fmt.Println("Service removed")
		}
	case "status":
		st := service.Query()
		fmt.Printf("Installed: %t\nEnabled: %t\nRunning: %t (%s)\n", st.Installed, st.Enabled, st.Running, st.ActiveState)
	default:
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printVersion() {
	fmt.Println(version.String())
}

type app struct {
	cfg       *config.Config
	log       *logrus.Logger
	db        *database.DB
	catalog   *database.DB
	backups   *services.BackupService
	settings  *services.SettingsService
	scheduler *services.Scheduler
	services  router.Services
}

func newApp(cfg *config.Config, log *logrus.Logger) (*app, error) {
	livePath := cfg.Database.Path()
	if livePath == "" {
		return nil, services.ErrConfigMissing
	}

	db, err := database.New(livePath)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	catalog, err := database.OpenCatalog(cfg.Backup.CatalogPath())
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open backup catalog: %w", err)
	}

	backups := services.NewBackupService(services.NewBackupStore(catalog), cfg, log)
	backups.SetLiveStore(db)

	if cfg.Offsite.Enabled() {
		mirror, err := storage.NewMirror(cfg.Offsite, log)
		if err != nil {
			log.WithError(err).Warn("offsite mirror disabled")
		} else {
			backups.SetMirror(mirror)
		}
	}

	settings := services.NewSettingsService(db)
	scheduler := services.NewScheduler(backups, log)

	return &app{
		cfg:       cfg,
		log:       log,
		db:        db,
		catalog:   catalog,
		backups:   backups,
		settings:  settings,
		scheduler: scheduler,
		services: router.Services{
			DB:        db,
			Backups:   backups,
			Settings:  settings,
			Schools:   services.NewSchoolService(db),
			Audit:     services.NewAuditService(db, log),
			Scheduler: scheduler,
		},
	}, nil
}

func (a *app) serve() error {
	current, err := a.settings.Get()
	if err != nil {
		return fmt.Errorf("load system settings: %w", err)
	}
	if err := a.scheduler.Apply(current); err != nil {
		a.log.WithError(err).Warn("saved backup schedule is invalid, scheduled backups disabled")
	}
	a.scheduler.Start()

	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.New(a.cfg, a.log, a.services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.log.WithFields(logrus.Fields{
			"version": version.Version,
			"systemd": service.UnderSystemd(),
			"addr":    addr,
			"url":     "http://" + addr + a.cfg.Server.PathPrefix + "/api",
		}).Info("school portal starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		a.log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a.scheduler.Stop(shutdownCtx)
	return srv.Shutdown(shutdownCtx)
}

func (a *app) close() {
	if err := a.catalog.Close(); err != nil {
		a.log.WithError(err).Warn("error closing backup catalog")
	}
	if err := a.db.Close(); err != nil {
		a.log.WithError(err).Warn("error closing database")
	}
	appClosed(a)
}

// appClosed is replaced in tests to observe shutdown.
var appClosed = func(*app) {}
