package cron

import "hostd/internal/schedule"

// ComputeNext implements spec.md §4.4's contract:
// computeNext(game, timeNow) -> event | none.
//
// It mutates game in place: expired schedules are popped off the stack and
// LastHostTime may be advanced to the new active schedule's "virtual
// previous host" time, exactly as the running merge algorithm requires.
// The returned slice carries every event this pass produced — normally
// zero or one, but possibly several ScheduleChangeAction events (one per
// expired schedule dropped this pass) ahead of the final event, which is a
// HostAction, a MasterAction or a ScheduleChangeAction.
func ComputeNext(game *Game, timeNow int64) []Event {
	switch game.State {
	case Preparing, Finished, Deleted:
		return nil

	case Joining:
		if !game.AllSlotsFilled {
			return nil
		}
		t := timeNow
		if game.HasLastPlayerJoined {
			t = game.LastPlayerJoined + MasterDelay
		}
		return []Event{{Kind: MasterAction, GameID: game.ID, Time: t}}

	case Running:
		if game.Turn == 0 {
			return []Event{{Kind: MasterAction, GameID: game.ID, Time: timeNow}}
		}
		return computeRunningMerge(game, timeNow)

	default:
		return nil
	}
}

// computeRunningMerge implements the "Running merge algorithm" steps of
// spec.md §4.4.
func computeRunningMerge(game *Game, timeNow int64) []Event {
	var events []Event
	haveDropped := false

	// Step 1: drop every expired schedule at the front of the stack.
	for len(game.Schedules) > 0 {
		cur := game.Schedules[0]
		res := evaluateCurrent(game, cur, timeNow)
		if !res.Expired {
			break
		}

		at := timeNow
		if cur.Expiration.Kind == schedule.ExpirationAtTime {
			at = cur.Expiration.Time
		}
		events = append(events, Event{Kind: ScheduleChangeAction, GameID: game.ID, Time: at})

		game.Schedules = game.Schedules[1:]
		haveDropped = true
	}

	// Step 2: first non-expired schedule, if any.
	if len(game.Schedules) == 0 {
		return events
	}
	cur := game.Schedules[0]

	// Step 3: host-run-now trigger wins outright.
	if game.HostRunNow {
		events = append(events, Event{Kind: HostAction, GameID: game.ID, Time: timeNow})
		return events
	}

	// Step 4: host-early, all slots in.
	if cur.HostEarly && game.AllSlotsSubmitted {
		candidate := game.LastTurnSubmittedTime + int64(cur.HostDelay)
		if candidate < timeNow {
			candidate = timeNow
		}
		events = append(events, Event{Kind: HostAction, GameID: game.ID, Time: candidate})
		return events
	}

	// Step 5: evaluator result, re-evaluated against a virtual previous
	// host if a drop happened this pass and that host is later than the
	// one currently on record.
	res := evaluateCurrent(game, cur, timeNow)
	result := res.NextHostTime

	if haveDropped {
		vph := schedule.VirtualPreviousHost(cur, game.LastHostTime)
		if vph > game.LastHostTime && vph < result {
			game.LastHostTime = vph
			res = evaluateCurrent(game, cur, timeNow)
			result = res.NextHostTime
		}
	}

	// Step 6: clamp to timeNow, then to the schedule-change grace period.
	if result < timeNow {
		result = timeNow
	}
	if grace := game.LastScheduleChange + ScheduleChangeGrace; grace > timeNow && result < grace {
		result = grace
	}

	// Step 7: an atTime expiration earlier than the computed host wins
	// instead, producing a ScheduleChangeAction.
	if cur.Expiration.Kind == schedule.ExpirationAtTime && cur.Expiration.Time < result {
		events = append(events, Event{Kind: ScheduleChangeAction, GameID: game.ID, Time: cur.Expiration.Time})
		return events
	}

	events = append(events, Event{Kind: HostAction, GameID: game.ID, Time: result})
	return events
}

func evaluateCurrent(game *Game, cur schedule.Descriptor, timeNow int64) schedule.Result {
	return schedule.Evaluate(schedule.Input{
		Schedule:              cur,
		LastHostTime:          game.LastHostTime,
		TurnNow:               game.Turn,
		TimeNow:               timeNow,
		LastTurnSubmittedTime: game.LastTurnSubmittedTime,
		AllSlotsSubmitted:     game.AllSlotsSubmitted,
	})
}
