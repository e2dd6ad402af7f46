package api

import (
	"strings"

	"github.com/google/uuid"

	"hostd/internal/cron"
	"hostd/internal/hosterr"
)

// handleNewGame implements `NEWGAME` -> new game id, created in the
// Preparing state per spec.md §6.
func handleNewGame(ctx *Context, args []string) (string, error) {
	id := uuid.New().String()

	if err := ctx.Store.SetString(gameNamespace, id, "state", cron.Preparing.String()); err != nil {
		return "", err
	}
	if err := ctx.Store.SetString(gameNamespace, id, "type", Private.String()); err != nil {
		return "", err
	}
	if err := ctx.Store.SetInt(gameNamespace, id, "turn", 0); err != nil {
		return "", err
	}

	ctx.Scheduler.Track(&cron.Game{ID: id, State: cron.Preparing})

	return id, nil
}

// handleCloneGame implements `CLONEGAME src [state]` -> new game id,
// copying type/name/owner and leaving schedules/slots for the caller to
// re-populate via SCHEDULEADD/PLAYERJOIN (spec.md §6 only requires the
// new game to exist with a fresh daytime, which the scheduler assigns
// lazily on its next pass rather than at clone time).
func handleCloneGame(ctx *Context, args []string) (string, error) {
	if len(args) < 1 {
		return "", hosterr.New(hosterr.PreconditionViolated, "CLONEGAME requires a source game id")
	}
	src := args[0]

	if err := requireGameExists(ctx.Store, src); err != nil {
		return "", err
	}

	state := cron.Preparing
	if len(args) >= 2 {
		parsed, err := parseGameState(args[1])
		if err != nil {
			return "", err
		}
		state = parsed
	}

	typ, err := ctx.Store.GetString(gameNamespace, src, "type")
	if err != nil {
		return "", err
	}
	name, _ := ctx.Store.GetString(gameNamespace, src, "name")
	owner, _ := ctx.Store.GetString(gameNamespace, src, "owner")

	id := uuid.New().String()
	if err := ctx.Store.SetString(gameNamespace, id, "state", state.String()); err != nil {
		return "", err
	}
	if err := ctx.Store.SetString(gameNamespace, id, "type", typ); err != nil {
		return "", err
	}
	if name != "" {
		if err := ctx.Store.SetString(gameNamespace, id, "name", name); err != nil {
			return "", err
		}
	}
	if owner != "" {
		if err := ctx.Store.SetString(gameNamespace, id, "owner", owner); err != nil {
			return "", err
		}
	}

	ctx.Scheduler.Track(&cron.Game{ID: id, State: state})

	return id, nil
}

// handleGameSetType implements `GAMESETTYPE g type`.
func handleGameSetType(ctx *Context, args []string) (string, error) {
	if len(args) != 2 {
		return "", hosterr.New(hosterr.PreconditionViolated, "GAMESETTYPE requires a game id and a type")
	}
	if err := requireGameExists(ctx.Store, args[0]); err != nil {
		return "", err
	}
	typ, err := parseGameType(args[1])
	if err != nil {
		return "", err
	}
	return "", ctx.Store.SetString(gameNamespace, args[0], "type", typ.String())
}

// handleGameSetState implements `GAMESETSTATE g state`. It writes the new
// state to the store and, for Finished or Deleted, removes the game from
// the scheduler's tracked set. It takes none of the scheduler's per-game
// locks, and it does not update the state of a tracked game's in-memory
// copy.
func handleGameSetState(ctx *Context, args []string) (string, error) {
	if len(args) != 2 {
		return "", hosterr.New(hosterr.PreconditionViolated, "GAMESETSTATE requires a game id and a state")
	}
	if err := requireGameExists(ctx.Store, args[0]); err != nil {
		return "", err
	}
	state, err := parseGameState(args[1])
	if err != nil {
		return "", err
	}

	if err := ctx.Store.SetString(gameNamespace, args[0], "state", state.String()); err != nil {
		return "", err
	}

	if state == cron.Finished || state == cron.Deleted {
		ctx.Scheduler.Untrack(args[0])
	}

	return "", nil
}

// handleGameSetOwner implements `GAMESETOWNER g user`.
func handleGameSetOwner(ctx *Context, args []string) (string, error) {
	if len(args) != 2 {
		return "", hosterr.New(hosterr.PreconditionViolated, "GAMESETOWNER requires a game id and a user id")
	}
	if err := requireGameExists(ctx.Store, args[0]); err != nil {
		return "", err
	}
	return "", ctx.Store.SetString(gameNamespace, args[0], "owner", args[1])
}

// handleGameSetName implements `GAMESETNAME g name`. The name itself may
// contain spaces, so it is re-joined from every argument past the game
// id rather than taken positionally.
func handleGameSetName(ctx *Context, args []string) (string, error) {
	if len(args) < 2 {
		return "", hosterr.New(hosterr.PreconditionViolated, "GAMESETNAME requires a game id and a name")
	}
	if err := requireGameExists(ctx.Store, args[0]); err != nil {
		return "", err
	}
	name := strings.Join(args[1:], " ")
	return "", ctx.Store.SetString(gameNamespace, args[0], "name", name)
}

// endKeyPrefix is the key prefix spec.md §6 singles out: every GAMESET key
// raises configChanged, and a key starting with it raises endChanged too.
const endKeyPrefix = "end"

// handleGameSet implements `GAMESET g k v ...`: a bulk config setter.
// Every k/v pair is stored under `game:<id>:settings:<k>`, and the
// configChanged/endChanged flags are raised according to whether any key
// in the batch starts with "end", per spec.md §6.
func handleGameSet(ctx *Context, args []string) (string, error) {
	if len(args) < 1 {
		return "", hosterr.New(hosterr.PreconditionViolated, "GAMESET requires a game id")
	}
	gameID := args[0]
	if err := requireGameExists(ctx.Store, gameID); err != nil {
		return "", err
	}

	pairs := args[1:]
	if len(pairs)%2 != 0 {
		return "", hosterr.New(hosterr.PreconditionViolated, "GAMESET requires key/value pairs")
	}

	configChanged := false
	endChanged := false

	for i := 0; i+1 < len(pairs); i += 2 {
		key, value := pairs[i], pairs[i+1]
		if err := ctx.Store.SetString(gameNamespace, gameID, "settings:"+key, value); err != nil {
			return "", err
		}
		configChanged = true
		if strings.HasPrefix(key, endKeyPrefix) {
			endChanged = true
		}
	}

	if configChanged {
		if err := ctx.Store.SetInt(gameNamespace, gameID, "configChanged", 1); err != nil {
			return "", err
		}
	}
	if endChanged {
		if err := ctx.Store.SetInt(gameNamespace, gameID, "endChanged", 1); err != nil {
			return "", err
		}
	}

	return "", nil
}

// gameTurn reads a game's current turn number, used by handlers that
// need to stamp a history entry.
func gameTurn(ctx *Context, gameID string) int {
	turn, err := ctx.Store.GetInt(gameNamespace, gameID, "turn")
	if err != nil {
		return 0
	}
	return int(turn)
}
