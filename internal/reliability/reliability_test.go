package reliability

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSubmitEWMA(t *testing.T) {
	cases := []struct {
		name             string
		start            int
		submitted        bool
		replacementLevel int
		want             int
	}{
		{"submit", 90000, true, 0, 90300},
		{"miss primary", 90000, false, 0, 87300},
		{"miss first replacement", 87300, false, 1, 86181},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			l := Ledger{Reliability: c.start}
			Submit(&l, c.submitted, c.replacementLevel)
			if l.Reliability != c.want {
				t.Errorf("reliability = %d, want %d", l.Reliability, c.want)
			}
		})
	}
}

func TestSubmitMonotonicCounters(t *testing.T) {
	l := Ledger{Reliability: 50000}
	Submit(&l, true, 0)
	Submit(&l, false, 0)
	Submit(&l, true, 2)

	if l.TurnsPlayed != 2 || l.TurnsMissed != 1 {
		t.Errorf("turnsPlayed=%d turnsMissed=%d, want 2/1", l.TurnsPlayed, l.TurnsMissed)
	}
}

func TestDropPenalty(t *testing.T) {
	cases := []struct {
		name                  string
		reliability           int
		playerScore, maxScore int
		want                  int
	}{
		{"leading drop", 90000, 128, 192, 50400},
		{"drop at max score", 90000, 192, 192, 30600},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			l := Ledger{Reliability: c.reliability}
			Drop(&l, c.playerScore, c.maxScore)
			if l.Reliability != c.want {
				t.Errorf("reliability = %d, want %d", l.Reliability, c.want)
			}
		})
	}
}

func TestDropNoOpOnTurnZero(t *testing.T) {
	l := Ledger{Reliability: 90000}
	Drop(&l, -1, 0)
	if l.Reliability != 90000 {
		t.Errorf("drop with no scores yet should be a no-op, got %d", l.Reliability)
	}
}

// TestDropPenaltyAgainstDecimalReference cross-checks the pure-integer
// production formula against a decimal.Decimal computation carried through
// without any int64 truncation until the final step, for a spread of
// scores that exercise different rounding behaviors.
func TestDropPenaltyAgainstDecimalReference(t *testing.T) {
	type scorePair struct{ player, max int }

	scores := []scorePair{
		{128, 192}, {192, 192}, {1, 1000}, {999, 1000}, {0, 1},
		{37, 211}, {5000, 5000}, {1, 3},
	}

	for _, s := range scores {
		l := Ledger{Reliability: 90000}
		Drop(&l, s.player, s.max)

		ref := decimal.NewFromInt(90000).
			Mul(decimal.NewFromInt(int64(s.max)*100 - int64(s.player)*DropPenalty)).
			Div(decimal.NewFromInt(int64(s.max) * 100))
		want := int(ref.IntPart())

		if l.Reliability != want {
			t.Errorf("score %v: reliability = %d, want %d (decimal reference)", s, l.Reliability, want)
		}
	}
}

func TestUpdateRankPromotion(t *testing.T) {
	l := Ledger{RankPoints: 300, Reliability: 60000, TurnsPlayed: 45}
	UpdateRank(&l)
	if l.Rank != 2 {
		t.Errorf("rank = %d, want 2", l.Rank)
	}
}

func TestUpdateRankDemotionUsesKeepColumn(t *testing.T) {
	// Rank 2 requires (promote) reliability >= 55; its keep threshold is
	// 50. A ledger sitting between those two values must stay at rank 2
	// rather than being demoted, since demotion checks the keep column.
	l := Ledger{Rank: 2, RankPoints: 300, Reliability: 52000, TurnsPlayed: 45}
	UpdateRank(&l)
	if l.Rank != 2 {
		t.Errorf("rank = %d, want 2 (demotion must use the keep column, not promote)", l.Rank)
	}

	l2 := Ledger{Rank: 2, RankPoints: 300, Reliability: 49000, TurnsPlayed: 45}
	UpdateRank(&l2)
	// 49 is under the keep threshold of rank 2 and of rank 1 alike (both
	// 50), so demotion carries on down to rank 0.
	if l2.Rank != 0 {
		t.Errorf("rank = %d, want 0 once reliability drops under the keep threshold", l2.Rank)
	}
}

func TestCheckEndCondition(t *testing.T) {
	cond := EndCondition{TurnLimit: 40, ScoreLimit: 1000}

	if ended, _ := CheckEndCondition(cond, 10, []int{100, 200}); ended {
		t.Errorf("game should not end before either limit is reached")
	}

	if ended, reason := CheckEndCondition(cond, 40, []int{100, 200}); !ended || reason != "turn limit reached" {
		t.Errorf("expected turn limit end, got ended=%v reason=%q", ended, reason)
	}

	if ended, reason := CheckEndCondition(cond, 5, []int{100, 1200}); !ended || reason != "score limit reached" {
		t.Errorf("expected score limit end, got ended=%v reason=%q", ended, reason)
	}
}
