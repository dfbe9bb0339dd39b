package jobs

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// NamedJob is a cron job with a stable name for logs.
type NamedJob interface {
	cron.Job
	Name() string
}

func jobName(j cron.Job) string {
	if n, ok := j.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", j)
}

func loggingWrapper(logger *slog.Logger) cron.JobWrapper {
	return func(j cron.Job) cron.Job {
		return cron.FuncJob(func() {
			log := logger.With("job_name", jobName(j), "execution_id", uuid.NewString())
			start := time.Now()
			log.Debug("job started")
			j.Run()
			log.Debug("job finished", "duration", time.Since(start))
		})
	}
}

func recoverWrapper(logger *slog.Logger) cron.JobWrapper {
	return func(j cron.Job) cron.Job {
		return cron.FuncJob(func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("job panicked",
						"job_name", jobName(j),
						"panic", r,
						"stack", string(debug.Stack()),
					)
				}
			}()
			j.Run()
		})
	}
}
