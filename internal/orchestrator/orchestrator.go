// Package orchestrator implements the Battle Orchestrator: it turns a
// turn's worth of ships (plus at most one planet) into the ordered series
// of pairwise fights the Combat Engine actually resolves, carrying damage
// forward across fights and aggregating the per-participant statistics
// spec.md §4.2 describes.
package orchestrator

import (
	"fmt"
	"sort"

	"hostd/internal/combat"
)

// Options bundles the orchestration-level knobs of spec.md §4.2 that sit
// above the per-fight combat.Options.
type Options struct {
	Combat combat.Options

	EngineShieldBonusPercent int
	AllowFedCombatBonus      bool
	Alliances                AllianceMatrix
	PersistentEnemies        AllianceMatrix
}

// AllianceMatrix is an 11x11 bidirectional (Alliances) or directed
// (PersistentEnemies) relation between owners 1..11, per spec.md §6.
type AllianceMatrix [12][12]bool

// Allied reports whether a and b are mutually allied.
func (m AllianceMatrix) Allied(a, b int) bool {
	return m[a][b] && m[b][a]
}

// Enemy reports whether a considers b a persistent enemy (directed).
func (m AllianceMatrix) Enemy(a, b int) bool {
	return m[a][b]
}

// Unit is one ship or planet entering the orchestrator, before the
// preconditions phase resolves its effective mass and combatant status.
type Unit struct {
	combat.Participant

	EngineCost       int
	Cloaked          bool
	DeactivatedFlag  bool
	PrimaryEnemy     int // owner id this unit targets, 0 = none
	InterceptTarget  int // participant id this unit intercepts, 0 = none
	FriendlyCode     string
	HasFuel          bool
	PassiveDonor     bool // shield-generator ship contributing bonus without fighting
}

// FightRecord pairs one resolved combat.BattleRecord with the orchestrator
// ordering index it was fought at.
type FightRecord struct {
	Order  int
	Battle combat.BattleRecord
}

// Result is the Battle Orchestrator's output: every fight that was fought,
// in order, plus the aggregated per-participant statistics across all of
// them (spec.md §4.2 phase 4).
type Result struct {
	Fights     []FightRecord
	Statistics map[int]combat.Statistics
}

var ErrTooFewCombatants = fmt.Errorf("orchestrator: fewer than two possible combatants")

// Run executes the four phases of spec.md §4.2 over units and returns
// every fight fought plus the aggregated statistics.
func Run(units []Unit, opts Options, shipSpec combat.ShipSpec, hostConfig combat.HostConfig, flakConfig combat.FlakConfig, seed int64) (Result, error) {
	resolveMass(units, opts)

	pairs := buildPairs(units, opts)
	if len(pairs) == 0 {
		return Result{Statistics: map[int]combat.Statistics{}}, nil
	}

	state := make(map[int]*combat.Participant, len(units))
	for i := range units {
		p := units[i].Participant
		state[p.ID] = &p
	}

	bonus := shieldDonationByOwner(units, hostConfig)

	stats := make(map[int]combat.Statistics, len(units))
	var fights []FightRecord

	for i, pr := range pairs {
		a := state[pr.a]
		b := state[pr.b]
		if a == nil || b == nil || isOut(*a, opts.Combat.Algorithm) || isOut(*b, opts.Combat.Algorithm) {
			continue
		}

		fa, fb := *a, *b
		// A passive donor's bonus only helps a defender that hasn't taken
		// hull damage yet: once damage starts, shields stay at 0 for the
		// rest of the fight (combat.Participant's own invariant), so there
		// is nothing left for the donation to add to.
		if fa.DamagePercent == 0 {
			fa.ShieldPercent += bonus[fa.Owner]
		}
		if fb.DamagePercent == 0 {
			fb.ShieldPercent += bonus[fb.Owner]
		}

		setup := combat.Setup{Participants: []combat.Participant{fa, fb}}
		result, err := combat.Simulate(setup, opts.Combat, shipSpec, hostConfig, flakConfig, seed+int64(i))
		if err != nil {
			return Result{}, err
		}

		battle := result.Battles[0]
		final0, final1 := battle.Final[0], battle.Final[1]
		stripDonation(&final0, bonus)
		stripDonation(&final1, bonus)
		state[final0.ID] = &final0
		state[final1.ID] = &final1

		accumulate(stats, final0.ID, battle.Stats[0])
		accumulate(stats, final1.ID, battle.Stats[1])

		fights = append(fights, FightRecord{Order: i, Battle: battle})
	}

	return Result{Fights: fights, Statistics: stats}, nil
}

func accumulate(stats map[int]combat.Statistics, id int, add combat.Statistics) {
	cur := stats[id]
	cur.TorpedoHits += add.TorpedoHits
	cur.NumberOfFights += add.NumberOfFights
	if cur.MinFightersAboard == 0 || add.MinFightersAboard < cur.MinFightersAboard {
		cur.MinFightersAboard = add.MinFightersAboard
	}
	stats[id] = cur
}

// shieldDonationByOwner implements spec.md §4.1's shield-generator ability:
// every passive same-owner ship flagged ShieldGenerator donates
// HostConfig.ShieldGeneratorBonus percent shield to its owner's defenders,
// capped at HostConfig.ShieldGeneratorCap total.
func shieldDonationByOwner(units []Unit, cfg combat.HostConfig) map[int]int {
	bonus := make(map[int]int)
	for _, u := range units {
		if u.PassiveDonor && u.ShieldGenerator {
			bonus[u.Owner] += cfg.ShieldGeneratorBonus
		}
	}
	for owner, b := range bonus {
		if b > cfg.ShieldGeneratorCap {
			bonus[owner] = cfg.ShieldGeneratorCap
		}
	}
	return bonus
}

// stripDonation removes a previously-applied shield-generator bonus from a
// fight's outcome so it isn't carried forward as permanent shield in state:
// the donation is re-granted fresh for every fight the owner's ships enter,
// rather than accumulating.
func stripDonation(p *combat.Participant, bonus map[int]int) {
	p.ShieldPercent -= bonus[p.Owner]
	if p.ShieldPercent < 0 {
		p.ShieldPercent = 0
	}
}

func isOut(p combat.Participant, alg combat.Algorithm) bool {
	limit := 99
	if alg == combat.VcrPHost2 || alg == combat.VcrPHost3 || alg == combat.VcrPHost4 {
		limit = 150
	}
	return p.Crew <= 0 || p.DamagePercent >= limit
}

// resolveMass implements phase 1: effective combat mass plus bonuses. It
// does not mark passive (non-combatant) units; PassiveDonor is left as the
// caller set it.
func resolveMass(units []Unit, opts Options) {
	for i := range units {
		u := &units[i]
		mass := u.HullMass

		mass += u.EngineCost * opts.EngineShieldBonusPercent / 100
		if u.ExperienceLevel > 0 {
			mass += u.ExperienceLevel * 5
		}

		if u.Owner == 1 && opts.AllowFedCombatBonus {
			mass += 50
		}

		if opts.Combat.BalancingMode == combat.Balance360k && u.BayCount > 0 {
			mass += 360
		}

		u.HullMass = mass
	}
}

type pair struct{ a, b int }

// buildPairs implements phase 2: the directed "wants to attack" matrix
// collapsed to an undirected pair set, ordered per spec.md §4.1's battle
// ordering rule: the pair with the lowest min(attacker FCBO, defender FCBO)
// fights first, ascending participant id breaking ties.
func buildPairs(units []Unit, opts Options) []pair {
	byID := make(map[int]Unit, len(units))
	for _, u := range units {
		byID[u.ID] = u
	}

	seen := make(map[[2]int]bool)
	var pairs []pair

	for i := range units {
		for j := range units {
			if i == j {
				continue
			}
			a, b := units[i], units[j]
			if !eligible(a, b, opts) {
				continue
			}
			key := [2]int{a.ID, b.ID}
			if a.ID > b.ID {
				key = [2]int{b.ID, a.ID}
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			pairs = append(pairs, pair{a: key[0], b: key[1]})
		}
	}

	fcbo := func(p pair) int {
		return min(byID[p.a].FriendlyCodeBattleOrder, byID[p.b].FriendlyCodeBattleOrder)
	}

	sort.Slice(pairs, func(i, j int) bool {
		if fi, fj := fcbo(pairs[i]), fcbo(pairs[j]); fi != fj {
			return fi < fj
		}
		if pairs[i].a != pairs[j].a {
			return pairs[i].a < pairs[j].a
		}
		return pairs[i].b < pairs[j].b
	})

	return pairs
}

// eligible implements the pairing matrix of spec.md §4.2/§4.1: both units
// must be active combatants, of different owners, not allied, not both
// passive, with at least one side being aggressive toward the other.
func eligible(a, b Unit, opts Options) bool {
	if a.PassiveDonor || b.PassiveDonor {
		return false
	}
	if a.DeactivatedFlag || b.DeactivatedFlag {
		return false
	}
	if a.Owner == b.Owner {
		return false
	}
	if opts.Alliances.Allied(a.Owner, b.Owner) {
		return false
	}
	if a.Cloaked || b.Cloaked {
		// Options has no switch allowing cloaked ships to fight, so a
		// pair with a cloaked unit on either side never forms.
		return false
	}
	if !a.HasFuel && !b.HasFuel {
		return false
	}

	aggressive := a.PrimaryEnemy == b.Owner || b.PrimaryEnemy == a.Owner
	aggressive = aggressive || opts.PersistentEnemies.Enemy(a.Owner, b.Owner) || opts.PersistentEnemies.Enemy(b.Owner, a.Owner)
	aggressive = aggressive || a.InterceptTarget == b.ID || b.InterceptTarget == a.ID
	aggressive = aggressive || isPlanetAggressor(a) || isPlanetAggressor(b)

	return aggressive
}

// isPlanetAggressor implements spec.md §4.1's planet-specific aggressor
// rule: a planet with friendly code "ATT" or "NUK" is always an aggressor.
func isPlanetAggressor(u Unit) bool {
	return u.Kind == combat.KindPlanet && (u.FriendlyCode == "ATT" || u.FriendlyCode == "NUK")
}
