// Package api implements the command surface of spec.md §6: a
// RESP-style, one-verb-per-line request/reply protocol mutating
// scheduler-relevant game state, plus a thin admin/debug HTTP surface.
//
// Grounded on the teacher's pkg/dispatcher route-registration style, but
// adapted to verbs instead of HTTP paths: a small table maps a verb name
// to a handler, with a fallback entry standing in for dispatcher's
// NotFoundHandler/MethodNotAllowedHandler pair.
package api

import (
	"fmt"

	"hostd/internal/cron"
	"hostd/internal/hosterr"
	"hostd/internal/store"
)

// GameType is one of spec.md §6's four game visibility types.
type GameType int

const (
	Private GameType = iota
	Unlisted
	Public
	Test
)

func (t GameType) String() string {
	switch t {
	case Private:
		return "private"
	case Unlisted:
		return "unlisted"
	case Public:
		return "public"
	case Test:
		return "test"
	default:
		return "unknown"
	}
}

func parseGameType(s string) (GameType, error) {
	switch s {
	case "private":
		return Private, nil
	case "unlisted":
		return Unlisted, nil
	case "public":
		return Public, nil
	case "test":
		return Test, nil
	default:
		return 0, hosterr.New(hosterr.InvalidValue, "unknown game type %q", s)
	}
}

func parseGameState(s string) (cron.State, error) {
	switch s {
	case "preparing":
		return cron.Preparing, nil
	case "joining":
		return cron.Joining, nil
	case "running":
		return cron.Running, nil
	case "finished":
		return cron.Finished, nil
	case "deleted":
		return cron.Deleted, nil
	default:
		return 0, hosterr.New(hosterr.InvalidValue, "unknown game state %q", s)
	}
}

// SlotState is one of spec.md §6's four slot states.
type SlotState int

const (
	SlotOpen SlotState = iota
	SlotSelf
	SlotOccupied
	SlotDead
)

func (s SlotState) String() string {
	switch s {
	case SlotOpen:
		return "open"
	case SlotSelf:
		return "self"
	case SlotOccupied:
		return "occupied"
	case SlotDead:
		return "dead"
	default:
		return "unknown"
	}
}

// ErrGameNotFound is returned whenever a verb references a game id that
// has no `state` field recorded in the store.
var ErrGameNotFound = fmt.Errorf("api: game not found")

// gameNamespace is the store namespace of spec.md §6's
// `game:<id>:{state,type,name,owner,...}` key family: the key is the game
// id, the field is one of state/type/name/owner/....
const gameNamespace = "game"

func requireGameExists(s store.Store, gameID string) error {
	if _, err := s.GetString(gameNamespace, gameID, "state"); err != nil {
		if err == store.ErrNotFound {
			return hosterr.Wrap(hosterr.NotFound, fmt.Errorf("%w: %s", ErrGameNotFound, gameID))
		}
		return err
	}
	return nil
}
