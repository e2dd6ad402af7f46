// Package combat implements the Combat Engine: a pure, deterministic,
// integer-arithmetic battle simulator reproducing the five historical host
// algorithms described in spec.md §4.1 (Classic Host, NuHost, PHost v2/v3/v4,
// FLAK).
//
// The engine never performs I/O, never touches a global, and never uses
// floating point in its production path — every quantity that the
// reference implementations scale (beam charge, shield percentage, damage)
// is carried as a plain int and divided with truncating integer division,
// exactly where the historical algorithms did the same.
package combat

import "fmt"

// Algorithm selects one of the five combat modes of spec.md §4.1. NuHost is
// modeled as a distinct algorithm value rather than a flag on Host because
// its series length and a handful of rate defaults differ structurally,
// matching the wire enumeration of spec.md §6.
type Algorithm int

const (
	VcrHost Algorithm = iota
	VcrNuHost
	VcrPHost2
	VcrPHost3
	VcrPHost4
	VcrFLAK
)

func (a Algorithm) String() string {
	switch a {
	case VcrHost:
		return "VcrHost"
	case VcrNuHost:
		return "VcrNuHost"
	case VcrPHost2:
		return "VcrPHost2"
	case VcrPHost3:
		return "VcrPHost3"
	case VcrPHost4:
		return "VcrPHost4"
	case VcrFLAK:
		return "VcrFLAK"
	default:
		return fmt.Sprintf("algorithm(%d)", int(a))
	}
}

// isPHost reports whether the algorithm belongs to the PHost family, which
// carries aggressor/opponent role labeling and experience modifiers.
func (a Algorithm) isPHost() bool {
	return a == VcrPHost2 || a == VcrPHost3 || a == VcrPHost4
}

// BalancingMode selects a series-length/weight adjustment per spec.md §4.1.
type BalancingMode int

const (
	BalanceNone BalancingMode = iota
	Balance360k
	BalanceMasterAtArms
)

// Kind distinguishes the two participant shapes a battle can involve.
type Kind int

const (
	KindShip Kind = iota
	KindPlanet
)

// Role labels a participant's combat posture for the PHost family.
type Role int

const (
	RoleNone Role = iota
	RoleAggressor
	RoleOpponent
)

// Rates bundles the algorithm-specific per-participant rate parameters
// named in spec.md §3: how fast beams kill and recharge, how often a
// torpedo misses, how fast launchers recharge, and how strongly crew
// resists boarding.
type Rates struct {
	BeamKillRate    int
	BeamChargeRate  int
	TorpMissRate    int
	TorpChargeRate  int
	CrewDefenseRate int
}

// Participant is one battle unit, matching spec.md §3's field list.
type Participant struct {
	Kind   Kind
	ID     int
	Owner  int
	Role   Role

	// FriendlyCodeBattleOrder is the FCBO value spec.md §4.1's battle
	// ordering rule sorts on: the orchestrator fights the pair with the
	// lowest min(attacker FCBO, defender FCBO) first, ascending id only
	// breaking ties.
	FriendlyCodeBattleOrder int

	HullMass int
	Crew     int

	DamagePercent int
	ShieldPercent int

	BeamType  int
	BeamCount int

	TorpType      int
	LauncherCount int
	AmmoCount     int

	BayCount     int
	FighterCount int

	ExperienceLevel int

	ShieldGenerator bool

	Rates Rates

	// internal charge state, carried across ticks within one fight; not
	// part of the public initial/final participant snapshot fields above
	// but exposed so a caller can seed a rematch from a carried-forward
	// state (Battle Orchestrator phase 3).
	BeamCharge []int
	TorpCharge int
}

// valid checks the invariants spec.md §3 lists for a Participant.
func (p Participant) valid() error {
	if p.DamagePercent > 0 && p.ShieldPercent != 0 {
		return fmt.Errorf("%w: shield must be 0 once damage > 0 (participant %d)", ErrPreconditionViolated, p.ID)
	}
	if p.FighterCount < 0 || p.AmmoCount < 0 || p.LauncherCount < 0 || p.BayCount < 0 || p.BeamCount < 0 {
		return fmt.Errorf("%w: negative count on participant %d", ErrPreconditionViolated, p.ID)
	}
	if p.LauncherCount == 0 && p.AmmoCount > 0 {
		return fmt.Errorf("%w: ammo present without launchers on participant %d", ErrPreconditionViolated, p.ID)
	}
	if p.BayCount == 0 && p.FighterCount > 0 {
		return fmt.Errorf("%w: fighters present without bays on participant %d", ErrPreconditionViolated, p.ID)
	}
	return nil
}

// Statistics are the per-participant numbers accumulated across a fight,
// per spec.md §3's Battle record definition.
type Statistics struct {
	MinFightersAboard int
	TorpedoHits       int
	NumberOfFights    int
}

// BattleRecord is one resolved battle: the initial and final state of every
// participant that took part, plus per-participant statistics. Immutable
// once produced.
type BattleRecord struct {
	Initial []Participant
	Final   []Participant
	Stats   []Statistics
	Ticks   int
}

// Result is the outcome of one call to Simulate: the sequence of battles
// fought plus the series/weight bookkeeping of spec.md §3.
type Result struct {
	Battles           []BattleRecord
	SeriesLength      int
	ThisBattleWeight  int
	TotalBattleWeight int
	ThisBattleIndex   int
	Seed              int64
}

// Setup is the ordered list of participants handed to Simulate. Per-pair
// algorithms expect exactly two; FLAK accepts any number ≥ 2.
type Setup struct {
	Participants []Participant
}

// Options mirrors spec.md §6's enumerated simulation configuration.
type Options struct {
	Algorithm                 Algorithm
	EngineShieldBonus         int
	ScottyBonus               bool
	RandomLeftRight           bool
	HonorAlliances            bool
	OnlyOneSimulation         bool
	SeedControl               bool
	RandomizeFCodesEveryFight bool
	BalancingMode             BalancingMode
}

// HostConfig holds the tunable integer constants of the per-tick model
// (spec.md §4.1's tick steps) that differ between host versions but are
// not part of a single participant's Rates.
type HostConfig struct {
	MaxTicks               int
	ShieldFireThreshold    int
	BeamHitDenominator     int
	TorpedoHitDamage       int
	ShieldGeneratorBonus   int
	ShieldGeneratorCap     int
	DestructionDamageHost  int
	DestructionDamagePHost int

	// FighterBayDamage is the hull damage one sortied fighter deals to its
	// target before returning to its carrier, per spec.md §4.1 step 4.
	FighterBayDamage int
}

// DefaultHostConfig returns the constants used when the caller does not
// override them, chosen to match spec.md §8's concrete scenario 4.
func DefaultHostConfig() HostConfig {
	return HostConfig{
		MaxTicks:               700,
		ShieldFireThreshold:    0,
		BeamHitDenominator:     100,
		TorpedoHitDamage:       10,
		ShieldGeneratorBonus:   25,
		ShieldGeneratorCap:     125,
		DestructionDamageHost:  99,
		DestructionDamagePHost: 150,
		FighterBayDamage:       2,
	}
}

// FlakConfig holds the FLAK-specific damage model constants.
type FlakConfig struct {
	MaxTicks         int
	TeamDamageShare  int
}

// DefaultFlakConfig returns the FLAK constants used when not overridden.
func DefaultFlakConfig() FlakConfig {
	return FlakConfig{
		MaxTicks:        700,
		TeamDamageShare: 100,
	}
}

// ShipSpec is an opaque hull-lookup table a caller may thread through for
// future per-hull rate adjustments; the engine itself only consumes the
// per-participant Rates already resolved onto each Participant.
type ShipSpec struct {
	HullBayLimits map[int]int
}

// Errors. The combat engine never recovers internally: any precondition
// violation is fatal to the caller, per spec.md §4.1/§7.
var (
	ErrPreconditionViolated = fmt.Errorf("combat: precondition violated")
	ErrEmptySetup           = fmt.Errorf("combat: setup has no participants")
)
