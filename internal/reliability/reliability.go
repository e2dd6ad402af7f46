// Package reliability implements the per-user reliability ledger: the EWMA
// tracking a player's turn-submission behavior, the drop penalty applied
// when a user resigns mid-game, and the rank promotion/demotion state
// machine driven off a compile-time threshold table.
//
// The constants and the rank table are process-wide immutable data, not
// runtime-mutable singletons, matching the read-only reference-data pattern
// the rest of this codebase uses for its static game data modules.
package reliability

import "fmt"

// Scale factors applied throughout the ledger. Reliability is always
// carried pre-multiplied by RELIABILITY_SCALE so that the EWMA can be
// computed with plain integer division without losing precision.
const (
	ReliabilityScale = 1000
	ReliabilitySpeed = 3
	DropPenalty      = 66

	MaxReliability = 100 * ReliabilityScale
	MinReliability = 0

	MaxRank = 14
)

// ErrInvalidRank signals a rank value outside [0, MaxRank].
var ErrInvalidRank = fmt.Errorf("rank out of range")

// Ledger describes the persisted reliability state of a single user in a
// single slot. It is not itself persisted by this package: callers read it
// from the store, mutate it through the functions below, and write it back.
type Ledger struct {
	TurnsPlayed int
	TurnsMissed int
	Reliability int
	Rank        int
	RankPoints  int
}

// clampReliability keeps the EWMA inside its documented bounds. The
// formulas below cannot naturally escape the range, but a guard is cheap
// and keeps a future change honest about the invariant.
func clampReliability(r int) int {
	if r < MinReliability {
		return MinReliability
	}
	if r > MaxReliability {
		return MaxReliability
	}
	return r
}

// Submit records a submitted or missed turn for the given replacement
// level (0 = primary player, 1 = first replacement, ...). A submitted turn
// always yields the full EWMA step; a missed turn loses a fraction of it
// proportional to how far down the replacement chain the submitter sits.
func Submit(l *Ledger, submitted bool, replacementLevel int) {
	newPoints := ReliabilityScale * ReliabilitySpeed

	if !submitted && replacementLevel < 30 {
		newPoints -= newPoints >> uint(replacementLevel)
	}

	l.Reliability = clampReliability(l.Reliability*(100-ReliabilitySpeed)/100 + newPoints)

	if submitted {
		l.TurnsPlayed++
	} else {
		l.TurnsMissed++
	}
}

// Drop applies the resignation penalty. playerScore is the dropping slot's
// current-turn score; maxScore is the highest current-turn score across
// all slots in the game. A player leading the game pays close to the full
// DropPenalty percent; a player trailing in last place pays almost
// nothing. If playerScore is negative or maxScore is non-positive the
// scores are not meaningful yet (e.g. turn 0) and Drop is a no-op.
func Drop(l *Ledger, playerScore, maxScore int) {
	if playerScore < 0 || maxScore <= 0 {
		return
	}

	// Promote to int64 before the multiplication: maxScore*100 and
	// playerScore*DropPenalty can each exceed 32 bits for large score
	// values, and the spec calls for exact truncation semantics rather
	// than floating point.
	reliability := int64(l.Reliability)
	num := int64(maxScore)*100 - int64(playerScore)*DropPenalty
	den := int64(maxScore) * 100

	l.Reliability = clampReliability(int(reliability * num / den))
}

// rankRow is one line of the promotion/demotion threshold table, indexed by
// rank-1 (row 0 describes the requirements for rank 1).
type rankRow struct {
	points             int
	promoteReliability int // rounded reliability (0..100) required to promote into this rank
	keepReliability    int // rounded reliability (0..100) required to keep this rank
	turnsPlayed        int
}

// rankTable is the fourteen-row table of spec.md §4.5. It never changes at
// runtime.
var rankTable = [MaxRank]rankRow{
	{100, 55, 50, 20},
	{250, 55, 50, 40},
	{500, 65, 60, 60},
	{800, 65, 60, 80},
	{1200, 65, 60, 100},
	{1750, 75, 70, 100},
	{2500, 75, 70, 150},
	{4000, 75, 70, 200},
	{6500, 85, 80, 200},
	{9000, 85, 80, 250},
	{12000, 85, 80, 300},
	{16000, 95, 90, 300},
	{25000, 95, 90, 400},
	{50000, 95, 90, 500},
}

// roundedReliability rounds the scaled reliability to a 0..100 percentage,
// the form the rank table's columns are expressed in.
func roundedReliability(reliability int) int {
	return (reliability + ReliabilityScale/2) / ReliabilityScale
}

// UpdateRank re-evaluates l.Rank against the threshold table given its
// current RankPoints, Reliability and TurnsPlayed. Promotion requires all
// three of the target rank's row to hold; demotion is anti-symmetric: it
// triggers when any one of the *current* rank's "keep" columns stop
// holding, using the keep-reliability column rather than the (stricter)
// promote-reliability column. This hysteresis is what prevents a ledger
// hovering right at a boundary from oscillating rank every update.
func UpdateRank(l *Ledger) {
	rounded := roundedReliability(l.Reliability)

	for l.Rank < MaxRank {
		row := rankTable[l.Rank]
		if l.RankPoints < row.points || rounded < row.promoteReliability || l.TurnsPlayed < row.turnsPlayed {
			break
		}
		l.Rank++
	}

	for l.Rank > 0 {
		row := rankTable[l.Rank-1]
		if l.RankPoints >= row.points && rounded >= row.keepReliability && l.TurnsPlayed >= row.turnsPlayed {
			break
		}
		l.Rank--
	}
}
