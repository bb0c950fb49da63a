package batch

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler re-imports a CSV export on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	importer *Importer
	path     string
	log      logrus.FieldLogger
}

// NewScheduler builds a Scheduler for the file at path.
func NewScheduler(importer *Importer, path string, log logrus.FieldLogger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		importer: importer,
		path:     path,
		log:      log.WithField("service", "import_scheduler"),
	}
}

// Start registers the import under spec (standard five-field cron syntax)
// and starts the cron runner.
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() {
		if _, err := s.RunNow(context.Background()); err != nil {
			s.log.WithError(err).Error("scheduled_import_failed")
		}
	}); err != nil {
		return fmt.Errorf("schedule import %q: %w", spec, err)
	}
	s.cron.Start()
	s.log.WithFields(logrus.Fields{"schedule": spec, "path": s.path}).Info("import_scheduler_started")
	return nil
}

// RunNow imports the file immediately.
func (s *Scheduler) RunNow(ctx context.Context) (*Summary, error) {
	missing, err := s.importer.ValidateFile(s.path)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("csv %s is missing columns %v", s.path, missing)
	}
	return s.importer.ImportFile(ctx, s.path)
}

// Stop halts the runner and waits for a running import to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("import_scheduler_stopped")
}
