package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/eesa/eesa-api/internal/repository"
	"github.com/eesa/eesa-api/internal/service"
	"github.com/eesa/eesa-api/pkg/config"
	"github.com/eesa/eesa-api/pkg/database"
	"github.com/eesa/eesa-api/pkg/logger"
)

// Recomputes every active student's current semester from their enrollment
// year. Meant to run from cron at the start of each term; --dry-run reports
// the pending changes without writing them.
func main() {
	dryRun := flag.Bool("dry-run", false, "report changes without applying them")
	enrollmentYear := flag.Int("enrollment-year", 0, "restrict the pass to one enrollment cohort")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	var cohort *int
	if *enrollmentYear > 0 {
		cohort = enrollmentYear
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	svc := service.NewSemesterService(repository.NewStudentRepository(db), logr)
	result, err := svc.Refresh(ctx, cohort, *dryRun, time.Now())
	if err != nil {
		logr.Sugar().Fatalw("semester refresh failed", "error", err)
	}

	sugar := logr.Sugar()
	sugar.Infow("semester refresh finished",
		"scanned", result.Scanned,
		"changed", result.Changed,
		"dry_run", result.DryRun)
	for _, change := range result.Changes {
		sugar.Infow("semester updated",
			"student_id", change.StudentID,
			"roll_number", change.RollNumber,
			"old", change.OldSemester,
			"new", change.NewSemester)
	}
}
