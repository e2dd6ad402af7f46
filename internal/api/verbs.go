package api

import (
	"strings"

	"hostd/internal/cron"
	"hostd/internal/hosterr"
	"hostd/internal/store"
	"hostd/pkg/logger"
)

// Context bundles the collaborators every verb handler needs: the
// persisted store, the scheduler (to re-track a game whose state just
// changed) and a logger.
type Context struct {
	Store     store.Store
	Scheduler *cron.Scheduler
	Log       logger.Logger
}

// VerbHandler processes one already-split command line and returns its
// reply text, or an error classified through hosterr for the wire layer
// to translate into a reply code.
type VerbHandler func(ctx *Context, args []string) (string, error)

// VerbTable is the verb-name analog of pkg/dispatcher's Router: a flat
// registry of named handlers, with a single fallback standing in for
// dispatcher's NotFoundHandler (there is no method-not-allowed concept
// for a line protocol, since a verb fully determines its handler).
type VerbTable struct {
	handlers map[string]VerbHandler
}

// NewVerbTable builds a table pre-populated with every verb named in
// spec.md §6.
func NewVerbTable() *VerbTable {
	t := &VerbTable{handlers: make(map[string]VerbHandler)}

	t.Register("NEWGAME", handleNewGame)
	t.Register("CLONEGAME", handleCloneGame)
	t.Register("GAMESETTYPE", handleGameSetType)
	t.Register("GAMESETSTATE", handleGameSetState)
	t.Register("GAMESETOWNER", handleGameSetOwner)
	t.Register("GAMESETNAME", handleGameSetName)
	t.Register("GAMESET", handleGameSet)

	t.Register("SCHEDULEADD", handleScheduleAdd)
	t.Register("SCHEDULESET", handleScheduleSet)
	t.Register("SCHEDULEMOD", handleScheduleMod)
	t.Register("SCHEDULEDROP", handleScheduleDrop)
	t.Register("SCHEDULESHOW", handleScheduleShow)

	t.Register("PLAYERJOIN", handlePlayerJoin)
	t.Register("PLAYERSUBST", handlePlayerSubst)
	t.Register("PLAYERRESIGN", handlePlayerResign)
	t.Register("PLAYERADD", handlePlayerAdd)

	t.Register("HIST", handleHist)

	return t
}

// Register associates a verb name with its handler. A verb registered
// twice overwrites the previous handler, matching dispatcher's
// last-route-wins-if-matched-first semantics closely enough for a flat
// verb table (there is no path ambiguity to resolve).
func (t *VerbTable) Register(verb string, handler VerbHandler) {
	t.handlers[verb] = handler
}

// Dispatch splits a raw request line into a verb and positional
// arguments and invokes the matching handler. An unknown verb is
// reported as PreconditionViolated, the closest taxonomy member to
// dispatcher's NotFoundHandler.
func (t *VerbTable) Dispatch(ctx *Context, line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", hosterr.New(hosterr.PreconditionViolated, "empty command line")
	}

	verb := strings.ToUpper(fields[0])
	handler, ok := t.handlers[verb]
	if !ok {
		ctx.Log.Trace(logger.Warning, "api", "unknown verb "+verb)
		return "", hosterr.New(hosterr.PreconditionViolated, "unknown verb %q", verb)
	}

	return handler(ctx, fields[1:])
}
