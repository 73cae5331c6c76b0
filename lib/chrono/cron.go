package chrono

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// CronAPI is the interface that anything depending on things to happen on a cron job should use.
type CronAPI interface {
	Cron(spec string, callback func()) error
}

// ValidateSpec reports whether a schedule expression parses under the
// standard 5-field cron syntax (descriptors like @weekly included).
func ValidateSpec(spec string) error {
	_, err := cron.ParseStandard(spec)
	return err
}

// StandardCron is the standard implementation of CronAPI using `github.com/robfig/cron/v3`
type StandardCron struct {
	cron *cron.Cron
}

// NewStandardCron is the constructor of StandardCron. schedules are
// interpreted in UTC.
func NewStandardCron() StandardCron {
	cronner := cron.New(
		cron.WithLogger(slogCronLogger{}),
		cron.WithLocation(time.UTC),
	)
	cronner.Start()

	return StandardCron{
		cron: cronner,
	}
}

func (s StandardCron) Cron(spec string, callback func()) error {
	_, err := s.cron.AddFunc(spec, callback)
	return err
}

// Stop halts scheduling. the returned context completes once any running
// jobs have finished.
func (s StandardCron) Stop() context.Context {
	return s.cron.Stop()
}

type slogCronLogger struct{}

func (slogCronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (slogCronLogger) Error(err error, msg string, keysAndValues ...any) {
	args := append([]any{"err", err}, keysAndValues...)
	slog.Error("cron: "+msg, args...)
}
