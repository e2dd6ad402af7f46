package cron

// SlotActivity is what the inactivity-kick pass needs to know about one
// slot's last N turns, aggregated by the caller from the persisted turn
// history before calling CheckInactivity.
type SlotActivity struct {
	Slot int

	// NeverSubmitted reports that the slot has not submitted a single
	// non-missing turn across the lookback window.
	NeverSubmitted bool

	// SamePrimaryThroughout reports that the same primary user has been
	// assigned to the slot for the entire lookback window — a slot that
	// changed hands recently is given a fresh chance instead of being
	// kicked for its predecessor's inactivity.
	SamePrimaryThroughout bool

	// LastTurnScore is the slot's score as of the current turn number
	// (not a just-published turn — spec.md §9 flags the resulting race
	// as a known, non-blocking rough edge).
	LastTurnScore int

	PrimaryUserID string
}

// KickedSlot is one slot the inactivity pass decided to clear.
type KickedSlot struct {
	Slot          int
	PrimaryUserID string
	MarkedDead    bool
}

// CheckInactivity implements spec.md §4.4's inactivity-kick pass: for each
// slot whose last numMissedTurnsForKick turns show no submission from an
// unchanged primary user, every user is dropped from the slot, and the
// slot is further marked dead if its last published score is <= 0.
//
// numMissedTurnsForKick itself is a per-game config value (falling back to
// a server default) that the caller resolves before calling this function;
// CheckInactivity only consumes the already-aggregated SlotActivity.
func CheckInactivity(activities []SlotActivity) []KickedSlot {
	var kicked []KickedSlot

	for _, a := range activities {
		if !a.NeverSubmitted || !a.SamePrimaryThroughout {
			continue
		}

		kicked = append(kicked, KickedSlot{
			Slot:          a.Slot,
			PrimaryUserID: a.PrimaryUserID,
			MarkedDead:    a.LastTurnScore <= 0,
		})
	}

	return kicked
}
