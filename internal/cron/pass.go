package cron

import (
	"fmt"
	"sync"
	"time"

	"hostd/internal/store"
	"hostd/pkg/background"
	"hostd/pkg/duration"
	"hostd/pkg/locker"
	"hostd/pkg/logger"
)

// Scheduler drives the Game Scheduler's periodic pass: it walks every
// tracked game, calls computeNext, publishes the resulting events and
// keeps the prometheus gauges/counters of metrics.go up to date. It is
// the thing cmd/hostd wires one background.Process to run.
//
// Per spec.md §5, mutating a single game's state uses the critical
// (exclusive) lock; the scheduler never needs the simple (shared) lock
// itself, since a single pass never reads another game's state.
type Scheduler struct {
	mu    sync.Mutex
	games map[string]*Game

	locker *locker.ConcurrentLocker
	store  store.Store
	log    logger.Logger
	events chan Event

	process *background.Process
}

// NewScheduler builds a Scheduler. events is the channel onto which every
// HostAction/MasterAction/ScheduleChangeAction is published, consumed by
// internal/api's websocket push.
func NewScheduler(st store.Store, log logger.Logger, events chan Event) *Scheduler {
	return &Scheduler{
		games:  make(map[string]*Game),
		locker: locker.NewConcurrentLocker(log),
		store:  st,
		log:    log,
		events: events,
	}
}

// Track registers a game with the scheduler so it is visited by every
// subsequent pass. Replaces any previously tracked game with the same ID.
func (s *Scheduler) Track(game *Game) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.games[game.ID] = game
}

// Untrack removes a game from the pass, used once it reaches Finished or
// Deleted.
func (s *Scheduler) Untrack(gameID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.games, gameID)
}

// Start wires a background.Process driving RunPass at the given interval,
// matching the teacher's WithModule/WithOperation chaining convention.
func (s *Scheduler) Start(interval time.Duration) error {
	s.process = background.NewProcess(interval, s.log).
		WithModule("cron").
		WithOperation(s.runPass)

	return s.process.Start()
}

// Stop terminates the background pass and waits for it to drain.
func (s *Scheduler) Stop() {
	if s.process != nil {
		s.process.Stop()
	}
}

// runPass adapts RunPass to the background.OperationFunc signature.
func (s *Scheduler) runPass() (bool, error) {
	s.RunPass(time.Now().Unix() / 60)
	return true, nil
}

// RunPass computes and publishes events for every tracked game as of
// timeNow (minutes since epoch). Exposed directly so tests can drive it
// with a fixed clock instead of time.Now().
func (s *Scheduler) RunPass(timeNow int64) {
	start := time.Now()
	defer func() {
		passDuration.Observe(time.Since(start).Seconds())
	}()

	s.mu.Lock()
	ids := make([]string, 0, len(s.games))
	for id := range s.games {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	overdue := 0

	for _, id := range ids {
		lock := s.locker.Acquire(id)
		lock.CriticalLock()

		s.mu.Lock()
		game, ok := s.games[id]
		s.mu.Unlock()

		var events []Event
		if ok {
			events = ComputeNext(game, timeNow)
		}

		lock.CriticalUnlock()
		s.locker.Release(lock)

		if !ok {
			continue
		}

		observeEvents(events)

		for _, e := range events {
			if e.Kind == HostAction && e.Time <= timeNow {
				overdue++
			}

			if e.Kind == ScheduleChangeAction {
				if err := RecordHistory(s.store, id, HistoryItem{
					Kind:   HistoryScheduleChange,
					Time:   e.Time,
					Turn:   game.Turn,
					Detail: "schedule expired or was superseded",
				}); err != nil {
					s.log.Trace(logger.Error, "cron", fmt.Sprintf("failed to record history for game %q: %v", id, err))
				}
			}

			s.publishAt(e, timeNow)
		}
	}

	gamesOverdue.Set(float64(overdue))
}

// RunInactivityPass applies CheckInactivity to one game's pre-aggregated
// slot activity, records a history entry per kicked slot and updates the
// inactivity-kick counter. Called on a slower cadence than RunPass, since
// it needs a wider lookback than a single scheduler tick.
func (s *Scheduler) RunInactivityPass(gameID string, turn int, activities []SlotActivity) []KickedSlot {
	kicked := CheckInactivity(activities)
	if len(kicked) == 0 {
		return kicked
	}

	inactivityKicksTotal.Add(float64(len(kicked)))

	for _, k := range kicked {
		detail := fmt.Sprintf("slot %d cleared (user %s)", k.Slot, k.PrimaryUserID)
		if k.MarkedDead {
			detail += ", marked dead"
		}

		if err := RecordHistory(s.store, gameID, HistoryItem{
			Kind:   HistoryInactivityKick,
			Time:   0,
			Turn:   turn,
			Detail: detail,
		}); err != nil {
			s.log.Trace(logger.Error, "cron", fmt.Sprintf("failed to record inactivity history for game %q: %v", gameID, err))
		}
	}

	return kicked
}

// publishAt fills in e.Delay relative to timeNow before publishing.
func (s *Scheduler) publishAt(e Event, timeNow int64) {
	remaining := e.Time - timeNow
	if remaining < 0 {
		remaining = 0
	}
	e.Delay = duration.NewDuration(time.Duration(remaining) * time.Minute)

	s.publish(e)
}

// publish pushes an event onto the subscriber channel without blocking
// the pass: a full channel means a slow consumer, not a reason to stall
// every other game's scheduling decision.
func (s *Scheduler) publish(e Event) {
	if s.events == nil {
		return
	}

	select {
	case s.events <- e:
	default:
		s.log.Trace(logger.Warning, "cron", fmt.Sprintf("dropping event %s for game %q: subscriber channel full", e.Kind, e.GameID))
	}
}
