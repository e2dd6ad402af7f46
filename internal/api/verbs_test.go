package api

import (
	"encoding/json"
	"strings"
	"testing"

	"hostd/internal/cron"
	"hostd/internal/hosterr"
	"hostd/internal/schedule"
	"hostd/internal/store"
	"hostd/pkg/logger"
)

func newTestContext() *Context {
	st := store.NewMemStore()
	return &Context{
		Store:     st,
		Scheduler: cron.NewScheduler(st, logger.NewStdLogger("api-test"), nil),
		Log:       logger.NewStdLogger("api-test"),
	}
}

func TestDispatchUnknownVerb(t *testing.T) {
	ctx := newTestContext()
	table := NewVerbTable()

	_, err := table.Dispatch(ctx, "BOGUSVERB a b c")
	if hosterr.Classify(err) != hosterr.PreconditionViolated {
		t.Fatalf("expected PreconditionViolated, got %v (%v)", hosterr.Classify(err), err)
	}
}

func TestNewGameThenGetState(t *testing.T) {
	ctx := newTestContext()
	table := NewVerbTable()

	id, err := table.Dispatch(ctx, "NEWGAME")
	if err != nil {
		t.Fatalf("NEWGAME: %v", err)
	}
	if id == "" {
		t.Fatalf("expected a non-empty game id")
	}

	state, err := ctx.Store.GetString(gameNamespace, id, "state")
	if err != nil {
		t.Fatalf("GetString state: %v", err)
	}
	if state != cron.Preparing.String() {
		t.Fatalf("expected preparing, got %q", state)
	}
}

func TestGameSetStateUntracksFinishedGame(t *testing.T) {
	ctx := newTestContext()
	table := NewVerbTable()

	id, err := table.Dispatch(ctx, "NEWGAME")
	if err != nil {
		t.Fatalf("NEWGAME: %v", err)
	}

	if _, err := table.Dispatch(ctx, "GAMESETSTATE "+id+" finished"); err != nil {
		t.Fatalf("GAMESETSTATE: %v", err)
	}

	events := make(chan cron.Event, 4)
	ctx.Scheduler = cron.NewScheduler(ctx.Store, ctx.Log, events)
	ctx.Scheduler.Track(&cron.Game{ID: id, State: cron.Running})
	if _, err := table.Dispatch(ctx, "GAMESETSTATE "+id+" finished"); err != nil {
		t.Fatalf("GAMESETSTATE: %v", err)
	}

	state, err := ctx.Store.GetString(gameNamespace, id, "state")
	if err != nil {
		t.Fatalf("GetString: %v", err)
	}
	if state != cron.Finished.String() {
		t.Fatalf("expected finished, got %q", state)
	}

	// A still-tracked running game at turn 0 would publish a MasterAction.
	ctx.Scheduler.RunPass(1000)
	if len(events) != 0 {
		t.Fatalf("expected the finished game to be untracked, got %d events", len(events))
	}
}

func TestGameSetUnknownGameIsNotFound(t *testing.T) {
	ctx := newTestContext()
	table := NewVerbTable()

	_, err := table.Dispatch(ctx, "GAMESETNAME does-not-exist My Game")
	if hosterr.Classify(err) != hosterr.NotFound {
		t.Fatalf("expected NotFound, got %v (%v)", hosterr.Classify(err), err)
	}
}

func TestScheduleAddThenShow(t *testing.T) {
	ctx := newTestContext()
	table := NewVerbTable()

	id, err := table.Dispatch(ctx, "NEWGAME")
	if err != nil {
		t.Fatalf("NEWGAME: %v", err)
	}

	// type=1 (weekly) interval=7 weekdayMask=0 dayTime=400 hostEarly=0
	// hostDelay=0 hostLimit=120 expKind=0 expValue=0
	cmd := "SCHEDULEADD " + id + " 1 7 0 400 0 0 120 0 0"
	if _, err := table.Dispatch(ctx, cmd); err != nil {
		t.Fatalf("SCHEDULEADD: %v", err)
	}

	reply, err := table.Dispatch(ctx, "SCHEDULESHOW "+id)
	if err != nil {
		t.Fatalf("SCHEDULESHOW: %v", err)
	}

	var stack []schedule.Descriptor
	if err := json.Unmarshal([]byte(reply), &stack); err != nil {
		t.Fatalf("unmarshal reply: %v", err)
	}
	if len(stack) != 1 {
		t.Fatalf("expected 1 schedule, got %d", len(stack))
	}
	if stack[0].Type != schedule.Weekly || stack[0].IntervalDays != 7 || stack[0].DayTime != 400 {
		t.Fatalf("unexpected descriptor: %+v", stack[0])
	}

	history, err := ctx.Store.GetList(gameNamespace, id, "history")
	if err != nil {
		t.Fatalf("GetList history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 history entry after SCHEDULEADD, got %d", len(history))
	}
}

func TestScheduleDropEmptiesStack(t *testing.T) {
	ctx := newTestContext()
	table := NewVerbTable()

	id, _ := table.Dispatch(ctx, "NEWGAME")
	if _, err := table.Dispatch(ctx, "SCHEDULEADD "+id+" 4 0 0 0 0 0 0 0 0"); err != nil {
		t.Fatalf("SCHEDULEADD: %v", err)
	}
	if _, err := table.Dispatch(ctx, "SCHEDULEDROP "+id); err != nil {
		t.Fatalf("SCHEDULEDROP: %v", err)
	}

	reply, err := table.Dispatch(ctx, "SCHEDULESHOW "+id)
	if err != nil {
		t.Fatalf("SCHEDULESHOW: %v", err)
	}
	if strings.TrimSpace(reply) != "[]" && strings.TrimSpace(reply) != "null" {
		t.Fatalf("expected an empty stack, got %q", reply)
	}
}

func TestPlayerJoinThenResign(t *testing.T) {
	ctx := newTestContext()
	table := NewVerbTable()

	id, _ := table.Dispatch(ctx, "NEWGAME")

	if _, err := table.Dispatch(ctx, "PLAYERJOIN "+id+" 0 alice"); err != nil {
		t.Fatalf("PLAYERJOIN: %v", err)
	}

	_, err := table.Dispatch(ctx, "PLAYERJOIN "+id+" 0 bob")
	if hosterr.Classify(err) != hosterr.SlotNotAvailable {
		t.Fatalf("expected SlotNotAvailable for a second join, got %v (%v)", hosterr.Classify(err), err)
	}

	_, err = table.Dispatch(ctx, "PLAYERRESIGN "+id+" 0 bob")
	if hosterr.Classify(err) != hosterr.PermissionDenied {
		t.Fatalf("expected PermissionDenied for the wrong user, got %v (%v)", hosterr.Classify(err), err)
	}

	if _, err := table.Dispatch(ctx, "PLAYERRESIGN "+id+" 0 alice"); err != nil {
		t.Fatalf("PLAYERRESIGN: %v", err)
	}

	if _, err := table.Dispatch(ctx, "PLAYERJOIN "+id+" 0 carol"); err != nil {
		t.Fatalf("expected slot 0 to be open again: %v", err)
	}
}

func TestPlayerAddFindsFirstOpenSlot(t *testing.T) {
	ctx := newTestContext()
	table := NewVerbTable()

	id, _ := table.Dispatch(ctx, "NEWGAME")

	if _, err := table.Dispatch(ctx, "PLAYERJOIN "+id+" 0 alice"); err != nil {
		t.Fatalf("PLAYERJOIN: %v", err)
	}

	slot, err := table.Dispatch(ctx, "PLAYERADD "+id+" bob")
	if err != nil {
		t.Fatalf("PLAYERADD: %v", err)
	}
	if slot != "1" {
		t.Fatalf("expected slot 1, got %q", slot)
	}
}

func TestHistReturnsRecordedEvents(t *testing.T) {
	ctx := newTestContext()
	table := NewVerbTable()

	id, _ := table.Dispatch(ctx, "NEWGAME")
	if _, err := table.Dispatch(ctx, "SCHEDULEADD "+id+" 4 0 0 0 0 0 0 0 0"); err != nil {
		t.Fatalf("SCHEDULEADD: %v", err)
	}

	reply, err := table.Dispatch(ctx, "HIST "+id)
	if err != nil {
		t.Fatalf("HIST: %v", err)
	}

	var items []cron.HistoryItem
	if err := json.Unmarshal([]byte(reply), &items); err != nil {
		t.Fatalf("unmarshal HIST reply: %v", err)
	}
	if len(items) != 1 || items[0].Kind != cron.HistoryScheduleChange {
		t.Fatalf("unexpected history: %+v", items)
	}
}
