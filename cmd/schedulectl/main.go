package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/courtside-scheduler/internal/dto"
	"github.com/noah-isme/courtside-scheduler/internal/repository"
	"github.com/noah-isme/courtside-scheduler/internal/service"
	"github.com/noah-isme/courtside-scheduler/pkg/config"
	"github.com/noah-isme/courtside-scheduler/pkg/database"
	"github.com/noah-isme/courtside-scheduler/pkg/logger"
)

// engine bundles the services an operator command needs. Grid caching is not wired here; the API
// process picks up changes on its next cache miss or TTL expiry.
type engine struct {
	validator *service.ConflictValidator
	scheduler *service.EncounterScheduler
	mutator   *service.ScheduleMutator
}

func newEngine(cfg *config.Config, db *sqlx.DB, logr *zap.Logger) *engine {
	encounters := repository.NewEncounterRepository(db)
	stores := service.ScheduleStores{
		Events:       repository.NewEventRepository(db),
		Courts:       repository.NewCourtRepository(db),
		Groups:       repository.NewCourtGroupRepository(db),
		Divisions:    repository.NewDivisionRepository(db),
		Blocks:       repository.NewBlockAssignmentRepository(db),
		Availability: repository.NewAvailabilityRepository(db),
		Encounters:   encounters,
	}
	rules := service.SchedulingRules{
		SlotGranularity:     cfg.Scheduler.SlotGranularity,
		DefaultMatchMinutes: cfg.Scheduler.DefaultMatchMinutes,
		DefaultRestMinutes:  cfg.Scheduler.DefaultRestMinutes,
	}
	locker := service.NewAdvisoryEventLocker(repository.NewAdvisoryLockRepository(db, logr), nil, logr)
	validator := service.NewConflictValidator(stores, rules, nil, logr)
	return &engine{
		validator: validator,
		scheduler: service.NewEncounterScheduler(stores, encounters, rules, locker, validator, nil, nil, nil, logr),
		mutator:   service.NewScheduleMutator(stores, encounters, rules, locker, validator, nil, nil, logr),
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg.Log.Format = "console"

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	var (
		db  *sqlx.DB
		eng *engine
	)

	app := &cli.App{
		Name:  "schedulectl",
		Usage: "operate the court scheduler against the configured database",
		Before: func(c *cli.Context) error {
			conn, err := database.NewPostgres(cfg.Database)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			db = conn
			eng = newEngine(cfg, db, logr)
			return nil
		},
		After: func(c *cli.Context) error {
			if db != nil {
				return db.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "validate",
				Usage: "report conflicts in the persisted schedule",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "event", Required: true, Usage: "event id"},
					&cli.StringFlag{Name: "division", Usage: "only conflicts involving this division"},
					&cli.BoolFlag{Name: "fail-on-conflict", Usage: "exit non-zero when conflicts exist"},
				},
				Action: func(c *cli.Context) error {
					report, err := eng.validator.Report(c.Context, dto.ValidateQuery{
						EventID:    c.String("event"),
						DivisionID: optionalFlag(c, "division"),
					})
					if err != nil {
						return err
					}
					if err := printJSON(report); err != nil {
						return err
					}
					if c.Bool("fail-on-conflict") && report.Total > 0 {
						return cli.Exit(fmt.Sprintf("%d conflicts found", report.Total), 2)
					}
					return nil
				},
			},
			{
				Name:  "generate",
				Usage: "place unscheduled encounters",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "event", Required: true, Usage: "event id"},
					&cli.StringFlag{Name: "division", Usage: "limit to one division"},
					&cli.StringFlag{Name: "phase", Usage: "limit to one phase"},
				},
				Action: func(c *cli.Context) error {
					result, err := eng.scheduler.Generate(c.Context, dto.ScheduleRequest{
						EventID:    c.String("event"),
						DivisionID: optionalFlag(c, "division"),
						PhaseID:    optionalFlag(c, "phase"),
					})
					if result != nil {
						if printErr := printJSON(result); printErr != nil {
							return printErr
						}
					}
					return err
				},
			},
			{
				Name:  "clear",
				Usage: "clear court and time of a division's non-frozen encounters",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "division", Required: true, Usage: "division id"},
					&cli.StringFlag{Name: "phase", Usage: "limit to one phase"},
				},
				Action: func(c *cli.Context) error {
					result, err := eng.mutator.ClearSchedule(c.Context, c.String("division"), optionalFlag(c, "phase"))
					if err != nil {
						return err
					}
					return printJSON(result)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logr.Fatal("command failed", zap.Error(err))
	}
}

func optionalFlag(c *cli.Context, name string) *string {
	if !c.IsSet(name) {
		return nil
	}
	value := c.String(name)
	return &value
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
