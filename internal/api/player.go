package api

import (
	"fmt"
	"strconv"

	"hostd/internal/hosterr"
	"hostd/internal/store"
)

// maxSlots bounds the slot scan PLAYERADD performs when looking for the
// first open slot. spec.md §6 does not fix a per-game slot count in the
// persisted store; games in this implementation are capped at the
// classic VGA Planets race count.
const maxSlots = 11

func slotStateField(slot int) string { return fmt.Sprintf("slot:%d:state", slot) }
func slotUserField(slot int) string  { return fmt.Sprintf("slot:%d:user", slot) }

func readSlotState(ctx *Context, gameID string, slot int) SlotState {
	raw, err := ctx.Store.GetString(gameNamespace, gameID, slotStateField(slot))
	if err != nil {
		return SlotOpen
	}
	switch raw {
	case SlotSelf.String():
		return SlotSelf
	case SlotOccupied.String():
		return SlotOccupied
	case SlotDead.String():
		return SlotDead
	default:
		return SlotOpen
	}
}

func writeSlot(ctx *Context, gameID string, slot int, state SlotState, user string) error {
	if err := ctx.Store.SetString(gameNamespace, gameID, slotStateField(slot), state.String()); err != nil {
		return err
	}
	return ctx.Store.SetString(gameNamespace, gameID, slotUserField(slot), user)
}

func parseSlot(s string) (int, error) {
	slot, err := strconv.Atoi(s)
	if err != nil || slot < 0 {
		return 0, hosterr.New(hosterr.InvalidValue, "invalid slot number %q", s)
	}
	return slot, nil
}

// handlePlayerJoin implements `PLAYERJOIN g slot user`: assigns user to
// an open slot.
func handlePlayerJoin(ctx *Context, args []string) (string, error) {
	if len(args) != 3 {
		return "", hosterr.New(hosterr.PreconditionViolated, "PLAYERJOIN requires a game id, slot and user")
	}
	gameID, slotArg, user := args[0], args[1], args[2]
	if err := requireGameExists(ctx.Store, gameID); err != nil {
		return "", err
	}
	slot, err := parseSlot(slotArg)
	if err != nil {
		return "", err
	}

	state := readSlotState(ctx, gameID, slot)
	if state == SlotDead {
		return "", hosterr.New(hosterr.SlotNotAvailable, "slot %d is dead", slot)
	}
	if state == SlotOccupied || state == SlotSelf {
		return "", hosterr.New(hosterr.SlotNotAvailable, "slot %d is already occupied", slot)
	}

	return "", writeSlot(ctx, gameID, slot, SlotOccupied, user)
}

// handlePlayerSubst implements `PLAYERSUBST g slot user`: replaces the
// current occupant of a slot with another user, used when the original
// player has been kicked for inactivity.
func handlePlayerSubst(ctx *Context, args []string) (string, error) {
	if len(args) != 3 {
		return "", hosterr.New(hosterr.PreconditionViolated, "PLAYERSUBST requires a game id, slot and user")
	}
	gameID, slotArg, user := args[0], args[1], args[2]
	if err := requireGameExists(ctx.Store, gameID); err != nil {
		return "", err
	}
	slot, err := parseSlot(slotArg)
	if err != nil {
		return "", err
	}

	if state := readSlotState(ctx, gameID, slot); state != SlotOccupied && state != SlotSelf {
		return "", hosterr.New(hosterr.SlotEmpty, "slot %d has no occupant to substitute", slot)
	}

	return "", writeSlot(ctx, gameID, slot, SlotOccupied, user)
}

// handlePlayerResign implements `PLAYERRESIGN g slot user`: clears a
// slot back to open, checking that user is the slot's current occupant
// (PermissionDenied otherwise).
func handlePlayerResign(ctx *Context, args []string) (string, error) {
	if len(args) != 3 {
		return "", hosterr.New(hosterr.PreconditionViolated, "PLAYERRESIGN requires a game id, slot and user")
	}
	gameID, slotArg, user := args[0], args[1], args[2]
	if err := requireGameExists(ctx.Store, gameID); err != nil {
		return "", err
	}
	slot, err := parseSlot(slotArg)
	if err != nil {
		return "", err
	}

	if state := readSlotState(ctx, gameID, slot); state != SlotOccupied && state != SlotSelf {
		return "", hosterr.New(hosterr.SlotEmpty, "slot %d has no occupant", slot)
	}

	current, err := ctx.Store.GetString(gameNamespace, gameID, slotUserField(slot))
	if err != nil && err != store.ErrNotFound {
		return "", err
	}
	if current != user {
		return "", hosterr.New(hosterr.PermissionDenied, "user %q is not assigned to slot %d", user, slot)
	}

	return "", writeSlot(ctx, gameID, slot, SlotOpen, "")
}

// handlePlayerAdd implements `PLAYERADD g user`: assigns user to the
// first open slot found, mirroring PLAYERJOIN's slot-availability
// checks without requiring the caller to name a specific slot.
func handlePlayerAdd(ctx *Context, args []string) (string, error) {
	if len(args) != 2 {
		return "", hosterr.New(hosterr.PreconditionViolated, "PLAYERADD requires a game id and a user")
	}
	gameID, user := args[0], args[1]
	if err := requireGameExists(ctx.Store, gameID); err != nil {
		return "", err
	}

	for slot := 0; slot < maxSlots; slot++ {
		if readSlotState(ctx, gameID, slot) == SlotOpen {
			if err := writeSlot(ctx, gameID, slot, SlotOccupied, user); err != nil {
				return "", err
			}
			return strconv.Itoa(slot), nil
		}
	}

	return "", hosterr.New(hosterr.SlotNotAvailable, "no open slot in game %s", gameID)
}
