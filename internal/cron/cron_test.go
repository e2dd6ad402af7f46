package cron

import (
	"testing"

	"hostd/internal/schedule"
	"hostd/internal/store"
	"hostd/pkg/logger"
)

func TestComputeNextInertStates(t *testing.T) {
	for _, state := range []State{Preparing, Finished, Deleted} {
		game := &Game{ID: "g1", State: state}
		if events := ComputeNext(game, 1000); events != nil {
			t.Fatalf("state %s: expected no event, got %v", state, events)
		}
	}
}

func TestComputeNextJoiningWaitsForAllSlots(t *testing.T) {
	game := &Game{ID: "g1", State: Joining, AllSlotsFilled: false}
	if events := ComputeNext(game, 1000); events != nil {
		t.Fatalf("expected no event while slots remain open, got %v", events)
	}
}

func TestComputeNextJoiningFiresMasterActionAfterDelay(t *testing.T) {
	game := &Game{
		ID:                  "g1",
		State:               Joining,
		AllSlotsFilled:      true,
		HasLastPlayerJoined: true,
		LastPlayerJoined:    1000,
	}

	events := ComputeNext(game, 1500)
	if len(events) != 1 || events[0].Kind != MasterAction {
		t.Fatalf("expected a single MasterAction, got %v", events)
	}
	if want := int64(1000 + MasterDelay); events[0].Time != want {
		t.Fatalf("expected master action at %d, got %d", want, events[0].Time)
	}
}

func TestComputeNextRunningTurnZeroFiresMasterImmediately(t *testing.T) {
	game := &Game{ID: "g1", State: Running, Turn: 0}

	events := ComputeNext(game, 4242)
	if len(events) != 1 || events[0].Kind != MasterAction || events[0].Time != 4242 {
		t.Fatalf("expected immediate master action, got %v", events)
	}
}

func TestComputeNextRunningEmptyScheduleStackProducesNoEvent(t *testing.T) {
	game := &Game{ID: "g1", State: Running, Turn: 5, Schedules: nil}

	if events := ComputeNext(game, 100); events != nil {
		t.Fatalf("expected no event with an empty schedule stack, got %v", events)
	}
}

func TestComputeNextRunningHostRunNowWins(t *testing.T) {
	game := &Game{
		ID:         "g1",
		State:      Running,
		Turn:       5,
		HostRunNow: true,
		Schedules: []schedule.Descriptor{
			{Type: schedule.Manual},
		},
	}

	events := ComputeNext(game, 777)
	if len(events) != 1 || events[0].Kind != HostAction || events[0].Time != 777 {
		t.Fatalf("expected an immediate host action, got %v", events)
	}
}

func TestComputeNextRunningClampsToScheduleChangeGrace(t *testing.T) {
	// A Quick schedule computed to fire at time 0 (already overdue), but
	// the schedule itself changed only 5 minutes before timeNow: the
	// grace period must push the host run out to LastScheduleChange+10,
	// which lands after timeNow here.
	game := &Game{
		ID:                    "g1",
		State:                 Running,
		Turn:                  5,
		LastTurnSubmittedTime: 0,
		AllSlotsSubmitted:     true,
		LastScheduleChange:    995,
		Schedules: []schedule.Descriptor{
			{Type: schedule.Quick, HostDelay: 0},
		},
	}

	events := ComputeNext(game, 1000)
	if len(events) != 1 || events[0].Kind != HostAction {
		t.Fatalf("expected a single host action, got %v", events)
	}
	if want := int64(1005); events[0].Time != want {
		t.Fatalf("expected clamp to grace boundary %d, got %d", want, events[0].Time)
	}
}

func TestComputeNextRunningDropsExpiredScheduleAndEmitsChange(t *testing.T) {
	game := &Game{
		ID:    "g1",
		State: Running,
		Turn:  20,
		Schedules: []schedule.Descriptor{
			{Type: schedule.Manual, Expiration: schedule.Expiration{Kind: schedule.ExpirationAtTurn, Turn: 10}},
			{Type: schedule.Manual},
		},
	}

	events := ComputeNext(game, 50)

	var sawChange bool
	for _, e := range events {
		if e.Kind == ScheduleChangeAction {
			sawChange = true
		}
	}
	if !sawChange {
		t.Fatalf("expected a schedule change event when the front schedule expires, got %v", events)
	}
	if len(game.Schedules) != 1 || game.Schedules[0].Type != schedule.Manual {
		t.Fatalf("expected the expired schedule to be popped, got %v", game.Schedules)
	}
}

func TestCheckInactivityFiltersChangedPrimary(t *testing.T) {
	kicked := CheckInactivity([]SlotActivity{
		{Slot: 1, NeverSubmitted: true, SamePrimaryThroughout: true, LastTurnScore: 0, PrimaryUserID: "u1"},
		{Slot: 2, NeverSubmitted: true, SamePrimaryThroughout: false, PrimaryUserID: "u2"},
		{Slot: 3, NeverSubmitted: false, SamePrimaryThroughout: true, PrimaryUserID: "u3"},
		{Slot: 4, NeverSubmitted: true, SamePrimaryThroughout: true, LastTurnScore: 10, PrimaryUserID: "u4"},
	})

	if len(kicked) != 2 {
		t.Fatalf("expected exactly 2 kicks, got %v", kicked)
	}
	if kicked[0].Slot != 1 || !kicked[0].MarkedDead {
		t.Fatalf("expected slot 1 kicked and marked dead, got %+v", kicked[0])
	}
	if kicked[1].Slot != 4 || kicked[1].MarkedDead {
		t.Fatalf("expected slot 4 kicked but not marked dead, got %+v", kicked[1])
	}
}

func TestRecordAndReadHistoryRoundTrip(t *testing.T) {
	st := store.NewMemStore()

	items := []HistoryItem{
		{Kind: HistoryScheduleChange, Time: 100, Turn: 3, Detail: "weekly schedule dropped"},
		{Kind: HistoryInactivityKick, Time: 200, Turn: 4, Detail: "slot 2 cleared"},
	}
	for _, item := range items {
		if err := RecordHistory(st, "g1", item); err != nil {
			t.Fatalf("RecordHistory: %v", err)
		}
	}

	got, err := ReadHistory(st, "g1")
	if err != nil {
		t.Fatalf("ReadHistory: %v", err)
	}
	if len(got) != len(items) {
		t.Fatalf("expected %d history items, got %d", len(items), len(got))
	}
	for i, item := range items {
		if got[i] != item {
			t.Fatalf("item %d: expected %+v, got %+v", i, item, got[i])
		}
	}
}

func TestSchedulerRunPassPublishesEventsAndRecordsHistory(t *testing.T) {
	st := store.NewMemStore()
	log := logger.NewStdLogger("cron-test")
	events := make(chan Event, 8)

	sched := NewScheduler(st, log, events)
	sched.Track(&Game{
		ID:         "g1",
		State:      Running,
		Turn:       5,
		HostRunNow: true,
		Schedules: []schedule.Descriptor{
			{Type: schedule.Manual},
		},
	})
	sched.Track(&Game{
		ID:    "g2",
		State: Running,
		Turn:  5,
		Schedules: []schedule.Descriptor{
			{Type: schedule.Manual, Expiration: schedule.Expiration{Kind: schedule.ExpirationAtTurn, Turn: 1}},
		},
	})

	sched.RunPass(1000)

	close(events)
	var kinds []EventKind
	for e := range events {
		kinds = append(kinds, e.Kind)
	}

	if len(kinds) != 2 {
		t.Fatalf("expected 2 published events, got %v", kinds)
	}

	history, err := ReadHistory(st, "g2")
	if err != nil {
		t.Fatalf("ReadHistory: %v", err)
	}
	if len(history) != 1 || history[0].Kind != HistoryScheduleChange {
		t.Fatalf("expected a schedule change history entry for g2, got %v", history)
	}
}

func TestSchedulerRunInactivityPassRecordsHistory(t *testing.T) {
	st := store.NewMemStore()
	log := logger.NewStdLogger("cron-test")

	sched := NewScheduler(st, log, nil)

	kicked := sched.RunInactivityPass("g1", 10, []SlotActivity{
		{Slot: 1, NeverSubmitted: true, SamePrimaryThroughout: true, PrimaryUserID: "u1"},
	})
	if len(kicked) != 1 {
		t.Fatalf("expected 1 kicked slot, got %v", kicked)
	}

	history, err := ReadHistory(st, "g1")
	if err != nil {
		t.Fatalf("ReadHistory: %v", err)
	}
	if len(history) != 1 || history[0].Kind != HistoryInactivityKick {
		t.Fatalf("expected an inactivity kick history entry, got %v", history)
	}
}
