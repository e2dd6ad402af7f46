package api

import (
	"encoding/json"
	"strconv"

	"hostd/internal/cron"
	"hostd/internal/hosterr"
	"hostd/internal/schedule"
)

const scheduleField = "schedule"

// parseScheduleArgs parses the 9 positional fields of a SCHEDULEADD /
// SCHEDULESET / SCHEDULEMOD call (the game id is stripped by the caller
// before this is reached): type, intervalDays, weekdayMask, dayTime,
// hostEarly, hostDelay, hostLimit, expirationKind, expirationValue.
func parseScheduleArgs(args []string) (schedule.Descriptor, error) {
	if len(args) != 9 {
		return schedule.Descriptor{}, hosterr.New(hosterr.PreconditionViolated,
			"expected type intervalDays weekdayMask dayTime hostEarly hostDelay hostLimit expKind expValue, got %d fields", len(args))
	}

	ints := make([]int, len(args))
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return schedule.Descriptor{}, hosterr.New(hosterr.InvalidValue, "field %d: %v", i, err)
		}
		ints[i] = v
	}

	typ := schedule.Type(ints[0])
	if typ < schedule.Stopped || typ > schedule.Manual {
		return schedule.Descriptor{}, hosterr.New(hosterr.InvalidValue, "unknown schedule type %d", ints[0])
	}

	expKind := schedule.ExpirationKind(ints[7])
	if expKind < schedule.ExpirationNone || expKind > schedule.ExpirationAtTime {
		return schedule.Descriptor{}, hosterr.New(hosterr.InvalidValue, "unknown expiration kind %d", ints[7])
	}

	exp := schedule.Expiration{Kind: expKind}
	switch expKind {
	case schedule.ExpirationAtTurn:
		exp.Turn = ints[8]
	case schedule.ExpirationAtTime:
		exp.Time = int64(ints[8])
	}

	return schedule.Descriptor{
		Type:         typ,
		IntervalDays: ints[1],
		WeekdayMask:  uint8(ints[2]),
		DayTime:      ints[3],
		HostEarly:    ints[4] != 0,
		HostDelay:    ints[5],
		HostLimit:    ints[6],
		Expiration:   exp,
	}, nil
}

// handleScheduleAdd implements `SCHEDULEADD g ...` -> pushes a new
// schedule descriptor onto the front of the game's schedule stack
// (spec.md §3: index 0 is always the active schedule).
func handleScheduleAdd(ctx *Context, args []string) (string, error) {
	if len(args) < 1 {
		return "", hosterr.New(hosterr.PreconditionViolated, "SCHEDULEADD requires a game id")
	}
	gameID := args[0]
	if err := requireGameExists(ctx.Store, gameID); err != nil {
		return "", err
	}

	desc, err := parseScheduleArgs(args[1:])
	if err != nil {
		return "", err
	}

	stack, err := loadSchedules(ctx, gameID)
	if err != nil {
		return "", err
	}
	stack = append([]schedule.Descriptor{desc}, stack...)

	if err := saveSchedules(ctx, gameID, stack); err != nil {
		return "", err
	}

	return "", recordScheduleChange(ctx, gameID, "schedule added")
}

// handleScheduleSet implements `SCHEDULESET g ...`: replaces the entire
// schedule stack with a single descriptor.
func handleScheduleSet(ctx *Context, args []string) (string, error) {
	if len(args) < 1 {
		return "", hosterr.New(hosterr.PreconditionViolated, "SCHEDULESET requires a game id")
	}
	gameID := args[0]
	if err := requireGameExists(ctx.Store, gameID); err != nil {
		return "", err
	}

	desc, err := parseScheduleArgs(args[1:])
	if err != nil {
		return "", err
	}

	if err := saveSchedules(ctx, gameID, []schedule.Descriptor{desc}); err != nil {
		return "", err
	}

	return "", recordScheduleChange(ctx, gameID, "schedule replaced")
}

// handleScheduleMod implements `SCHEDULEMOD g ...`: rewrites the
// currently active (front-of-stack) descriptor in place, leaving any
// stacked fallback schedules untouched.
func handleScheduleMod(ctx *Context, args []string) (string, error) {
	if len(args) < 1 {
		return "", hosterr.New(hosterr.PreconditionViolated, "SCHEDULEMOD requires a game id")
	}
	gameID := args[0]
	if err := requireGameExists(ctx.Store, gameID); err != nil {
		return "", err
	}

	desc, err := parseScheduleArgs(args[1:])
	if err != nil {
		return "", err
	}

	stack, err := loadSchedules(ctx, gameID)
	if err != nil {
		return "", err
	}
	if len(stack) == 0 {
		stack = []schedule.Descriptor{desc}
	} else {
		stack[0] = desc
	}

	if err := saveSchedules(ctx, gameID, stack); err != nil {
		return "", err
	}

	return "", recordScheduleChange(ctx, gameID, "active schedule modified")
}

// handleScheduleDrop implements `SCHEDULEDROP g`: pops the active
// schedule off the stack, falling back to whatever was stacked beneath
// it (or to an empty stack, which computeNext treats as "no event").
func handleScheduleDrop(ctx *Context, args []string) (string, error) {
	if len(args) != 1 {
		return "", hosterr.New(hosterr.PreconditionViolated, "SCHEDULEDROP requires a game id")
	}
	gameID := args[0]
	if err := requireGameExists(ctx.Store, gameID); err != nil {
		return "", err
	}

	stack, err := loadSchedules(ctx, gameID)
	if err != nil {
		return "", err
	}
	if len(stack) == 0 {
		return "", nil
	}
	stack = stack[1:]

	if err := saveSchedules(ctx, gameID, stack); err != nil {
		return "", err
	}

	return "", recordScheduleChange(ctx, gameID, "active schedule dropped")
}

// handleScheduleShow implements `SCHEDULESHOW g [t|n]`: returns a JSON
// rendering of the schedule stack, or of a single entry at index n when
// the optional second argument is given.
func handleScheduleShow(ctx *Context, args []string) (string, error) {
	if len(args) < 1 {
		return "", hosterr.New(hosterr.PreconditionViolated, "SCHEDULESHOW requires a game id")
	}
	gameID := args[0]
	if err := requireGameExists(ctx.Store, gameID); err != nil {
		return "", err
	}

	stack, err := loadSchedules(ctx, gameID)
	if err != nil {
		return "", err
	}

	if len(args) >= 2 {
		idx, convErr := strconv.Atoi(args[1])
		if convErr != nil || idx < 0 || idx >= len(stack) {
			return "", hosterr.New(hosterr.InvalidValue, "invalid schedule index %q", args[1])
		}
		encoded, marshalErr := json.Marshal(stack[idx])
		if marshalErr != nil {
			return "", marshalErr
		}
		return string(encoded), nil
	}

	encoded, err := json.Marshal(stack)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func loadSchedules(ctx *Context, gameID string) ([]schedule.Descriptor, error) {
	raw, err := ctx.Store.GetList(gameNamespace, gameID, scheduleField)
	if err != nil {
		return nil, err
	}

	stack := make([]schedule.Descriptor, 0, len(raw))
	for _, entry := range raw {
		var desc schedule.Descriptor
		if err := json.Unmarshal(entry, &desc); err != nil {
			return nil, err
		}
		stack = append(stack, desc)
	}
	return stack, nil
}

func saveSchedules(ctx *Context, gameID string, stack []schedule.Descriptor) error {
	encoded := make([][]byte, 0, len(stack))
	for _, desc := range stack {
		bytes, err := json.Marshal(desc)
		if err != nil {
			return err
		}
		encoded = append(encoded, bytes)
	}
	return ctx.Store.SetList(gameNamespace, gameID, scheduleField, encoded)
}

func recordScheduleChange(ctx *Context, gameID string, detail string) error {
	return cron.RecordHistory(ctx.Store, gameID, cron.HistoryItem{
		Kind:   cron.HistoryScheduleChange,
		Turn:   gameTurn(ctx, gameID),
		Detail: detail,
	})
}
