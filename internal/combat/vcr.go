package combat

import (
	"math/rand"
)

// unit wraps a participant during one fight. It holds a pointer to the
// Participant, and every change a tick makes (beam/torp charge, damage,
// crew, fighters) is written straight onto that Participant as the tick
// runs; nothing is staged and committed afterwards, so a participant
// destroyed earlier in a tick is already seen as destroyed later in it.
type unit struct {
	p *Participant
}

func newUnit(p *Participant) *unit {
	if len(p.BeamCharge) != p.BeamCount {
		p.BeamCharge = make([]int, p.BeamCount)
	}
	return &unit{p: p}
}

func (u *unit) destroyed(cfg HostConfig, isPHost bool) bool {
	limit := cfg.DestructionDamageHost
	if isPHost {
		limit = cfg.DestructionDamagePHost
	}
	return u.p.Crew <= 0 || u.p.DamagePercent >= limit
}

// recharge advances beam and torpedo launcher charge by their configured
// rate, capped at 100.
func (u *unit) recharge() {
	for i := range u.p.BeamCharge {
		u.p.BeamCharge[i] = min100(u.p.BeamCharge[i] + u.p.Rates.BeamChargeRate)
	}
	if u.p.LauncherCount > 0 {
		u.p.TorpCharge = min100(u.p.TorpCharge + u.p.Rates.TorpChargeRate)
	}
}

func min100(v int) int {
	if v > 100 {
		return 100
	}
	return v
}

// fireBeams fires every fully-charged-enough beam at target, applying
// shield absorption before hull damage, scaled-integer throughout.
func (u *unit) fireBeams(target *unit, cfg HostConfig, rng *rand.Rand) {
	if target.p.ShieldPercent < cfg.ShieldFireThreshold {
		return
	}

	for i, charge := range u.p.BeamCharge {
		if charge < 100 {
			continue
		}
		u.p.BeamCharge[i] = 0

		raw := (charge * u.p.Rates.BeamKillRate) / cfg.BeamHitDenominator
		applyDamage(target, raw)
	}
}

// fireTorpedoes attempts a launcher firing once fully charged, rolling a
// miss chance against the firer's torp-miss-rate.
func (u *unit) fireTorpedoes(target *unit, cfg HostConfig, rng *rand.Rand) (hit bool) {
	if u.p.LauncherCount == 0 || u.p.TorpCharge < 100 || u.p.AmmoCount <= 0 {
		return false
	}

	u.p.TorpCharge = 0
	u.p.AmmoCount--

	if rng.Intn(100) < u.p.Rates.TorpMissRate {
		return false
	}

	applyDamage(target, cfg.TorpedoHitDamage*(1+u.p.TorpType))
	return true
}

// applyDamage absorbs raw damage into shields first, spilling the
// remainder onto the hull as damage percent, then kills crew in proportion
// to whatever damage penetrated the hull.
func applyDamage(target *unit, raw int) {
	if raw <= 0 {
		return
	}

	if target.p.ShieldPercent > 0 {
		absorbed := raw
		if absorbed > target.p.ShieldPercent {
			absorbed = target.p.ShieldPercent
		}
		target.p.ShieldPercent -= absorbed
		raw -= absorbed
	}

	if raw <= 0 {
		return
	}

	target.p.DamagePercent += raw
	if target.p.DamagePercent > 0 {
		target.p.ShieldPercent = 0
	}

	killCrew(target, raw)
}

// killCrew applies ordinary weapons-fire crew loss: every point of
// hull-penetrating damage kills one crewman, resisted flat by the
// target's own crew-defense-rate.
func killCrew(target *unit, raw int) {
	killed := raw - target.p.Rates.CrewDefenseRate
	if killed <= 0 {
		return
	}

	target.p.Crew -= killed
	if target.p.Crew < 0 {
		target.p.Crew = 0
	}
}

// fireFighterBays implements step 4 of spec.md §4.1's per-tick model: bays
// launch fighters up to the smaller of bay and fighter count, the sortie
// flies out and strikes the target, and, if the target has fighters of its
// own, one fighter of the sortie is lost with an even chance.
func (u *unit) fireFighterBays(target *unit, cfg HostConfig, rng *rand.Rand) {
	if u.p.BayCount <= 0 || u.p.FighterCount <= 0 {
		return
	}

	sortie := u.p.BayCount
	if sortie > u.p.FighterCount {
		sortie = u.p.FighterCount
	}

	applyDamage(target, sortie*cfg.FighterBayDamage)

	if target.p.FighterCount > 0 && rng.Intn(100) < 50 {
		u.p.FighterCount--
	}
}

// attemptBoarding implements step 5 of spec.md §4.1's per-tick model: once
// a target's shields are down, an attacker carrying fighters may attempt
// to board and capture it outright, resisted by the target's
// crew-defense-rate.
func (u *unit) attemptBoarding(target *unit, rng *rand.Rand) bool {
	if u.p.BayCount <= 0 || u.p.FighterCount <= 0 {
		return false
	}
	if target.p.ShieldPercent > 0 || target.p.Crew <= 0 {
		return false
	}

	chance := u.p.FighterCount*5 - target.p.Rates.CrewDefenseRate
	if chance <= 0 {
		return false
	}
	if chance > 100 {
		chance = 100
	}

	if rng.Intn(100) >= chance {
		return false
	}

	target.p.Owner = u.p.Owner
	return true
}

// fight runs the tick loop of spec.md §4.1 between exactly two
// participants and returns the resolved battle record.
func fight(a, b Participant, opts Options, cfg HostConfig, rng *rand.Rand) BattleRecord {
	initial := []Participant{clone(a), clone(b)}

	ua := newUnit(&a)
	ub := newUnit(&b)

	stats := []Statistics{{}, {}}

	isPHost := opts.Algorithm.isPHost()

	ticks := 0
	for ticks < cfg.MaxTicks {
		if ua.destroyed(cfg, isPHost) || ub.destroyed(cfg, isPHost) {
			break
		}

		ua.recharge()
		ub.recharge()

		ua.fireBeams(ub, cfg, rng)
		if ub.destroyed(cfg, isPHost) {
			ticks++
			break
		}
		ub.fireBeams(ua, cfg, rng)

		if ua.fireTorpedoes(ub, cfg, rng) {
			stats[0].TorpedoHits++
		}
		if ub.destroyed(cfg, isPHost) {
			ticks++
			break
		}
		if ub.fireTorpedoes(ua, cfg, rng) {
			stats[1].TorpedoHits++
		}

		ua.fireFighterBays(ub, cfg, rng)
		if ub.destroyed(cfg, isPHost) {
			ticks++
			break
		}
		ub.fireFighterBays(ua, cfg, rng)
		if ua.destroyed(cfg, isPHost) {
			ticks++
			break
		}

		if ua.attemptBoarding(ub, rng) {
			ticks++
			break
		}
		if ub.attemptBoarding(ua, rng) {
			ticks++
			break
		}

		stats[0].MinFightersAboard = minFighters(stats[0].MinFightersAboard, ticks, a.FighterCount)
		stats[1].MinFightersAboard = minFighters(stats[1].MinFightersAboard, ticks, b.FighterCount)

		ticks++

		if ua.destroyed(cfg, isPHost) || ub.destroyed(cfg, isPHost) {
			break
		}
	}

	stats[0].NumberOfFights = 1
	stats[1].NumberOfFights = 1

	if ticks >= cfg.MaxTicks {
		// Neither side destroyed within the tick budget: the participant
		// with fewer remaining hit points (approximated by damage
		// percent, higher is worse) loses per spec.md §4.1's tick cap
		// rule.
		if a.DamagePercent > b.DamagePercent {
			a.DamagePercent = cfg.DestructionDamageHost
			if isPHost {
				a.DamagePercent = cfg.DestructionDamagePHost
			}
		} else if b.DamagePercent > a.DamagePercent {
			b.DamagePercent = cfg.DestructionDamageHost
			if isPHost {
				b.DamagePercent = cfg.DestructionDamagePHost
			}
		}
	}

	resolveOwnership(&a, &b, cfg, isPHost)

	return BattleRecord{
		Initial: initial,
		Final:   []Participant{a, b},
		Stats:   stats,
		Ticks:   ticks,
	}
}

// resolveOwnership applies the destruction/capture rule once the tick loop
// ends: a participant driven to the destruction damage threshold loses its
// owner outright (owner 0), while one reduced to zero crew without reaching
// that threshold is captured by whichever opponent is still standing.
func resolveOwnership(a, b *Participant, cfg HostConfig, isPHost bool) {
	limit := cfg.DestructionDamageHost
	if isPHost {
		limit = cfg.DestructionDamagePHost
	}

	resolveOne(a, b, limit)
	resolveOne(b, a, limit)
}

func resolveOne(p, opponent *Participant, limit int) {
	if p.DamagePercent >= limit {
		p.Owner = 0
		return
	}
	if p.Crew <= 0 && opponent.Crew > 0 && opponent.DamagePercent < limit {
		p.Owner = opponent.Owner
	}
}

func minFighters(current, tick, count int) int {
	if tick == 0 {
		return count
	}
	if count < current {
		return count
	}
	return current
}

func clone(p Participant) Participant {
	cp := p
	if len(p.BeamCharge) > 0 {
		cp.BeamCharge = append([]int(nil), p.BeamCharge...)
	}
	return cp
}

// seriesLength returns the base series length for an algorithm, per
// spec.md §4.1 ("110", NuHost "118"), adjusted by the balancing mode.
func seriesLength(alg Algorithm, mode BalancingMode, a, b Participant) int {
	base := 110
	if alg == VcrNuHost {
		base = 118
	}

	switch mode {
	case Balance360k:
		return base * 2
	case BalanceMasterAtArms:
		bonus := bayFighterBonus(a) * bayFighterBonus(b)
		if bonus < 1 {
			bonus = 1
		}
		return base * bonus
	default:
		return base
	}
}

func bayFighterBonus(p Participant) int {
	bonus := 1
	if p.BayCount > 0 {
		bonus++
	}
	if p.FighterCount > 0 {
		bonus++
	}
	return bonus
}

// Simulate implements the Combat Engine contract of spec.md §4.1: given a
// setup, options and the rate/config tables, it produces the deterministic
// sequence of battles fought.
//
// FLAK is a many-participant brawl handled by simulateFlak; every other
// algorithm operates on exactly one pair.
func Simulate(setup Setup, opts Options, shipSpec ShipSpec, hostConfig HostConfig, flakConfig FlakConfig, seed int64) (Result, error) {
	if len(setup.Participants) == 0 {
		return Result{}, ErrEmptySetup
	}

	for _, p := range setup.Participants {
		if err := p.valid(); err != nil {
			return Result{}, err
		}
	}

	if opts.Algorithm == VcrFLAK {
		return simulateFlak(setup, opts, flakConfig, seed)
	}

	if len(setup.Participants) != 2 {
		return Result{}, ErrPreconditionViolated
	}

	// seedControl means the caller's RNG must not be advanced: the engine
	// derives its own source purely from the supplied seed and never
	// reaches back out to a shared generator.
	rng := rand.New(rand.NewSource(seed))

	a, b := setup.Participants[0], setup.Participants[1]

	if opts.RandomLeftRight && opts.Algorithm.isPHost() {
		if rng.Intn(2) == 1 {
			a, b = b, a
		}
	} else {
		// Fixed assignment: aggressor to the right, per spec.md §4.1.
		if a.Role == RoleAggressor {
			a, b = b, a
		}
	}

	record := fight(a, b, opts, hostConfig, rng)

	length := seriesLength(opts.Algorithm, opts.BalancingMode, a, b)

	return Result{
		Battles:           []BattleRecord{record},
		SeriesLength:       length,
		ThisBattleWeight:   1,
		TotalBattleWeight:  length,
		ThisBattleIndex:    0,
		Seed:               seed,
	}, nil
}
