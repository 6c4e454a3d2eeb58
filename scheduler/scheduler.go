package scheduler

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type Job interface {
	Run()
}

type SchedulerParams struct {
	Logger zerolog.Logger
}

func NewScheduler(params SchedulerParams) *Scheduler {
	logger := cronLogger{parent: params.Logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		logger: params.Logger,
		jobs:   make(map[cron.EntryID]string),
	}
}

// Scheduler runs jobs on cron schedules. A job is never run twice at the same
// time, a tick that finds it still running is skipped.
type Scheduler struct {
	cron   *cron.Cron
	lock   sync.Mutex
	jobs   map[cron.EntryID]string
	logger zerolog.Logger
}

// Start the scheduler in its own routine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop the scheduler and wait for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) AddJob(name string, schedule string, job Job) error {
	entry, err := s.cron.AddJob(schedule, job)
	if err != nil {
		return fmt.Errorf("could not add job %s: %w", name, err)
	}

	s.lock.Lock()
	s.jobs[entry] = name
	s.lock.Unlock()

	s.logger.Info().Str("job", name).Str("schedule", schedule).Msg("job scheduled")
	return nil
}

// Jobs returns the names of the scheduled jobs.
func (s *Scheduler) Jobs() []string {
	s.lock.Lock()
	defer s.lock.Unlock()

	names := make([]string, 0, len(s.jobs))
	for _, entry := range s.cron.Entries() {
		if name, ok := s.jobs[entry.ID]; ok {
			names = append(names, name)
		}
	}
	return names
}

func (s *Scheduler) RemoveJobs() {
	s.lock.Lock()
	defer s.lock.Unlock()

	for entry := range s.jobs {
		s.cron.Remove(entry)
		delete(s.jobs, entry)
	}
}

// cronLogger implements cron.Logger.
type cronLogger struct {
	parent zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.parent.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.parent.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
