package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Task is a named job run on a fixed interval.
type Task struct {
	Name string
	// InitialDelay is the wait before the first run; the interval applies
	// after that.
	InitialDelay time.Duration
	Interval     time.Duration
	// Timeout bounds one execution; zero means no deadline.
	Timeout time.Duration
	Do      func(ctx context.Context) error
}

type intervalSchedule struct {
	once         sync.Once
	initialDelay time.Duration
	interval     time.Duration
}

func (s *intervalSchedule) Next(t time.Time) time.Time {
	interval := s.interval
	s.once.Do(func() {
		interval = s.initialDelay
	})
	return t.Add(interval)
}

// Scheduler runs interval tasks on a cron instance. A task that is still
// running when its next tick fires is skipped for that tick.
type Scheduler struct {
	mu   sync.Mutex
	cron *cron.Cron
	ctx  context.Context
	stop context.CancelFunc
	log  zerolog.Logger
}

func New(log zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		ctx:  ctx,
		stop: cancel,
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// AddTask registers t. Tasks with a non-positive interval are ignored and
// report false.
func (s *Scheduler) AddTask(t Task) bool {
	if t.Interval <= 0 || t.Do == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.log.With().Str("task", t.Name).Logger()
	sched := &intervalSchedule{initialDelay: t.InitialDelay, interval: t.Interval}
	s.cron.Schedule(sched, cron.FuncJob(func() {
		ctx := s.ctx
		if t.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, t.Timeout)
			defer cancel()
		}
		start := time.Now()
		if err := t.Do(ctx); err != nil {
			log.Error().Err(err).Dur("took", time.Since(start)).Msg("scheduled task failed")
			return
		}
		log.Debug().Dur("took", time.Since(start)).Msg("scheduled task done")
	}))
	log.Info().Dur("interval", t.Interval).Msg("task scheduled")
	return true
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running tasks and waits for them to return.
func (s *Scheduler) Stop() {
	s.stop()
	<-s.cron.Stop().Done()
}
