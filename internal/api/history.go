package api

import (
	"encoding/json"

	"hostd/internal/cron"
	"hostd/internal/hosterr"
)

// handleHist implements the `HIST` family: `HIST g` returns every
// recorded history item for game g as a JSON array, the only retrieval
// shape spec.md §6 commits to ("event history retrieval").
func handleHist(ctx *Context, args []string) (string, error) {
	if len(args) != 1 {
		return "", hosterr.New(hosterr.PreconditionViolated, "HIST requires a game id")
	}
	gameID := args[0]
	if err := requireGameExists(ctx.Store, gameID); err != nil {
		return "", err
	}

	items, err := cron.ReadHistory(ctx.Store, gameID)
	if err != nil {
		return "", err
	}

	encoded, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
