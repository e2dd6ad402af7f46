package combat

import "math/rand"

// simulateFlak implements the FLAK algorithm of spec.md §4.1: a
// many-participant brawl that forms teams by owner and produces a single
// battle record covering every participant, instead of the pairwise fights
// the other four algorithms produce.
//
// Unlike the pairwise engine, FLAK's reference implementation is documented
// (spec.md §9 Open Questions) to advance its RNG even when seedControl is
// requested; this engine follows that observed behavior deliberately
// rather than "fixing" it to match the other algorithms.
func simulateFlak(setup Setup, opts Options, cfg FlakConfig, seed int64) (Result, error) {
	rng := rand.New(rand.NewSource(seed))

	units := make([]*unit, len(setup.Participants))
	participants := make([]Participant, len(setup.Participants))
	copy(participants, setup.Participants)
	for i := range participants {
		units[i] = newUnit(&participants[i])
	}

	teams := make(map[int][]int)
	for i, p := range participants {
		teams[p.Owner] = append(teams[p.Owner], i)
	}

	initial := make([]Participant, len(participants))
	for i, p := range participants {
		initial[i] = clone(p)
	}

	stats := make([]Statistics, len(participants))

	ticks := 0
	for ticks < cfg.MaxTicks {
		if aliveTeamCount(participants, teams) <= 1 {
			break
		}

		for i := range units {
			if participants[i].Crew <= 0 || participants[i].DamagePercent >= 150 {
				continue
			}
			units[i].recharge()

			// Pick a live target belonging to a different team at random
			// (the team-vs-team brawl shares fire across all enemies
			// instead of a fixed pairing).
			target := pickFlakTarget(i, participants, teams, rng)
			if target < 0 {
				continue
			}

			units[i].fireBeams(units[target], DefaultHostConfig(), rng)
			if units[i].fireTorpedoes(units[target], DefaultHostConfig(), rng) {
				stats[i].TorpedoHits++
			}
		}

		ticks++
	}

	for i := range stats {
		stats[i].NumberOfFights = 1
		stats[i].MinFightersAboard = participants[i].FighterCount
	}

	record := BattleRecord{
		Initial: initial,
		Final:   participants,
		Stats:   stats,
		Ticks:   ticks,
	}

	length := seriesLength(VcrFLAK, opts.BalancingMode, participants[0], participants[0])

	return Result{
		Battles:           []BattleRecord{record},
		SeriesLength:      length,
		ThisBattleWeight:  1,
		TotalBattleWeight: length,
		ThisBattleIndex:   0,
		Seed:              seed,
	}, nil
}

func aliveTeamCount(participants []Participant, teams map[int][]int) int {
	alive := 0
	for _, members := range teams {
		for _, idx := range members {
			if participants[idx].Crew > 0 && participants[idx].DamagePercent < 150 {
				alive++
				break
			}
		}
	}
	return alive
}

func pickFlakTarget(self int, participants []Participant, teams map[int][]int, rng *rand.Rand) int {
	var candidates []int
	for owner, members := range teams {
		if owner == participants[self].Owner {
			continue
		}
		for _, idx := range members {
			if participants[idx].Crew > 0 && participants[idx].DamagePercent < 150 {
				candidates = append(candidates, idx)
			}
		}
	}
	if len(candidates) == 0 {
		return -1
	}
	return candidates[rng.Intn(len(candidates))]
}
