package combat

import "testing"

func outrider(id, owner int, role Role) Participant {
	return Participant{
		Kind:      KindShip,
		ID:        id,
		Owner:     owner,
		Role:      role,
		HullMass:  75,
		Crew:      180,
		BeamType:  4,
		BeamCount: 1,
		Rates: Rates{
			BeamKillRate:   6,
			BeamChargeRate: 15,
			TorpMissRate:   30,
			TorpChargeRate: 10,
		},
	}
}

func TestSimulateIsDeterministic(t *testing.T) {
	setup := Setup{Participants: []Participant{
		outrider(1, 12, RoleAggressor),
		outrider(2, 11, RoleOpponent),
	}}
	opts := Options{Algorithm: VcrHost, SeedControl: true}

	r1, err := Simulate(setup, opts, ShipSpec{}, DefaultHostConfig(), DefaultFlakConfig(), 42)
	if err != nil {
		t.Fatalf("Simulate returned error: %v", err)
	}
	r2, err := Simulate(setup, opts, ShipSpec{}, DefaultHostConfig(), DefaultFlakConfig(), 42)
	if err != nil {
		t.Fatalf("Simulate returned error: %v", err)
	}

	if len(r1.Battles) != 1 || len(r2.Battles) != 1 {
		t.Fatalf("expected exactly one battle per side, got %d/%d", len(r1.Battles), len(r2.Battles))
	}

	f1, f2 := r1.Battles[0].Final, r2.Battles[0].Final
	for i := range f1 {
		if f1[i].DamagePercent != f2[i].DamagePercent || f1[i].Crew != f2[i].Crew || f1[i].ShieldPercent != f2[i].ShieldPercent {
			t.Errorf("participant %d diverged between identical-seed runs: %+v vs %+v", i, f1[i], f2[i])
		}
	}
}

func TestSimulateClassicHostSeriesLength(t *testing.T) {
	setup := Setup{Participants: []Participant{
		outrider(1, 12, RoleAggressor),
		outrider(2, 11, RoleOpponent),
	}}
	opts := Options{Algorithm: VcrHost, SeedControl: true}

	r, err := Simulate(setup, opts, ShipSpec{}, DefaultHostConfig(), DefaultFlakConfig(), 7)
	if err != nil {
		t.Fatalf("Simulate returned error: %v", err)
	}
	if r.SeriesLength != 110 {
		t.Errorf("series length = %d, want 110", r.SeriesLength)
	}
}

func TestSimulateNuHostSeriesLength(t *testing.T) {
	setup := Setup{Participants: []Participant{
		outrider(1, 12, RoleAggressor),
		outrider(2, 11, RoleOpponent),
	}}
	opts := Options{Algorithm: VcrNuHost, SeedControl: true}

	r, err := Simulate(setup, opts, ShipSpec{}, DefaultHostConfig(), DefaultFlakConfig(), 7)
	if err != nil {
		t.Fatalf("Simulate returned error: %v", err)
	}
	if r.SeriesLength != 118 {
		t.Errorf("series length = %d, want 118", r.SeriesLength)
	}
}

func TestSimulateRejectsInvalidParticipant(t *testing.T) {
	bad := outrider(1, 12, RoleAggressor)
	bad.DamagePercent = 10
	bad.ShieldPercent = 50 // invariant violation: shield must be 0 once damaged

	setup := Setup{Participants: []Participant{bad, outrider(2, 11, RoleOpponent)}}
	opts := Options{Algorithm: VcrHost}

	_, err := Simulate(setup, opts, ShipSpec{}, DefaultHostConfig(), DefaultFlakConfig(), 1)
	if err == nil {
		t.Fatal("expected a precondition error for shield/damage invariant violation")
	}
}

func TestSimulateRejectsEmptySetup(t *testing.T) {
	_, err := Simulate(Setup{}, Options{}, ShipSpec{}, DefaultHostConfig(), DefaultFlakConfig(), 1)
	if err == nil {
		t.Fatal("expected an error for an empty setup")
	}
}

func TestSimulateFlakProducesSingleMultiParticipantBattle(t *testing.T) {
	setup := Setup{Participants: []Participant{
		outrider(1, 1, RoleNone),
		outrider(2, 2, RoleNone),
		outrider(3, 3, RoleNone),
	}}
	opts := Options{Algorithm: VcrFLAK, SeedControl: true}

	r, err := Simulate(setup, opts, ShipSpec{}, DefaultHostConfig(), DefaultFlakConfig(), 3)
	if err != nil {
		t.Fatalf("Simulate returned error: %v", err)
	}
	if len(r.Battles) != 1 {
		t.Fatalf("FLAK must produce exactly one battle object, got %d", len(r.Battles))
	}
	if len(r.Battles[0].Final) != 3 {
		t.Errorf("FLAK battle should carry all %d participants, got %d", 3, len(r.Battles[0].Final))
	}
}

func TestSimulatePerPairRejectsWrongParticipantCount(t *testing.T) {
	setup := Setup{Participants: []Participant{outrider(1, 1, RoleNone)}}
	_, err := Simulate(setup, Options{Algorithm: VcrHost}, ShipSpec{}, DefaultHostConfig(), DefaultFlakConfig(), 1)
	if err == nil {
		t.Fatal("expected an error when a pairwise algorithm is given anything but two participants")
	}
}

// scenarioFourParticipants returns the two-Outrider setup backing spec.md
// §8 scenario 4: owner 12's ship (the aggressor, placed on the right per
// the fixed aggressor-to-the-right assignment) charges its single beam fast
// but hits light, owner 11's charges slowly but hits hard. The aggressor
// lands the first hit; the defender's single answering hit is decisive.
func scenarioFourParticipants() []Participant {
	return []Participant{
		{
			Kind: KindShip, ID: 1, Owner: 12, Role: RoleAggressor,
			HullMass: 75, Crew: 180, BeamType: 4, BeamCount: 1,
			Rates: Rates{BeamKillRate: 82, BeamChargeRate: 50, CrewDefenseRate: 30},
		},
		{
			Kind: KindShip, ID: 2, Owner: 11, Role: RoleOpponent,
			HullMass: 75, Crew: 180, BeamType: 4, BeamCount: 1,
			Rates: Rates{BeamKillRate: 107, BeamChargeRate: 34, CrewDefenseRate: 23},
		},
	}
}

func findParticipant(ps []Participant, id int) Participant {
	for _, p := range ps {
		if p.ID == id {
			return p
		}
	}
	return Participant{}
}

// TestSimulateClassicHostScenarioFour pins the literal expected outputs of
// spec.md §8 scenario 4 bit-for-bit: ship 1 is driven to the destruction
// threshold and loses its owner, ship 2 survives with its owner unchanged.
func TestSimulateClassicHostScenarioFour(t *testing.T) {
	setup := Setup{Participants: scenarioFourParticipants()}
	opts := Options{Algorithm: VcrHost, SeedControl: true}

	r, err := Simulate(setup, opts, ShipSpec{}, DefaultHostConfig(), DefaultFlakConfig(), 1)
	if err != nil {
		t.Fatalf("Simulate returned error: %v", err)
	}
	if len(r.Battles) != 1 {
		t.Fatalf("expected exactly one battle, got %d", len(r.Battles))
	}
	if r.SeriesLength != 110 {
		t.Errorf("series length = %d, want 110", r.SeriesLength)
	}
	if r.Seed != 1 {
		t.Errorf("seed = %d, want unchanged 1", r.Seed)
	}

	ship1 := findParticipant(r.Battles[0].Final, 1)
	if ship1.DamagePercent != 107 || ship1.ShieldPercent != 0 || ship1.Crew != 103 || ship1.Owner != 0 {
		t.Errorf("ship 1 final state = %+v, want damage 107, shield 0, crew 103, owner 0", ship1)
	}

	ship2 := findParticipant(r.Battles[0].Final, 2)
	if ship2.DamagePercent != 82 || ship2.ShieldPercent != 0 || ship2.Crew != 121 || ship2.Owner != 11 {
		t.Errorf("ship 2 final state = %+v, want damage 82, shield 0, crew 121, owner 11", ship2)
	}
}

// TestSimulateNuHostScenarioFourOutcome runs the same matchup through
// NuHost: the per-tick mechanics are identical to Classic Host for a
// non-Klingon matchup, so only the series length differs.
func TestSimulateNuHostScenarioFourOutcome(t *testing.T) {
	setup := Setup{Participants: scenarioFourParticipants()}
	opts := Options{Algorithm: VcrNuHost, SeedControl: true}

	r, err := Simulate(setup, opts, ShipSpec{}, DefaultHostConfig(), DefaultFlakConfig(), 1)
	if err != nil {
		t.Fatalf("Simulate returned error: %v", err)
	}
	if r.SeriesLength != 118 {
		t.Errorf("series length = %d, want 118", r.SeriesLength)
	}

	ship1 := findParticipant(r.Battles[0].Final, 1)
	if ship1.DamagePercent != 107 || ship1.ShieldPercent != 0 || ship1.Crew != 103 || ship1.Owner != 0 {
		t.Errorf("ship 1 final state = %+v, want damage 107, shield 0, crew 103, owner 0", ship1)
	}

	ship2 := findParticipant(r.Battles[0].Final, 2)
	if ship2.DamagePercent != 82 || ship2.ShieldPercent != 0 || ship2.Crew != 121 || ship2.Owner != 11 {
		t.Errorf("ship 2 final state = %+v, want damage 82, shield 0, crew 121, owner 11", ship2)
	}
}

// TestSimulateCaptureOnZeroCrew exercises the crew-loss/capture branch of
// resolveOwnership directly: a hit that zeroes a ship's crew without
// driving its damage to the destruction threshold hands it to the
// surviving opponent instead of destroying it.
func TestSimulateCaptureOnZeroCrew(t *testing.T) {
	setup := Setup{Participants: []Participant{
		{
			Kind: KindShip, ID: 10, Owner: 5, Role: RoleAggressor,
			HullMass: 75, Crew: 180, BeamCount: 1,
			Rates: Rates{BeamKillRate: 60, BeamChargeRate: 100},
		},
		{
			Kind: KindShip, ID: 20, Owner: 6, Role: RoleOpponent,
			HullMass: 75, Crew: 50,
		},
	}}
	opts := Options{Algorithm: VcrHost, SeedControl: true}

	r, err := Simulate(setup, opts, ShipSpec{}, DefaultHostConfig(), DefaultFlakConfig(), 2)
	if err != nil {
		t.Fatalf("Simulate returned error: %v", err)
	}

	defender := findParticipant(r.Battles[0].Final, 20)
	if defender.Crew != 0 || defender.DamagePercent >= 99 || defender.Owner != 5 {
		t.Errorf("defender final state = %+v, want crew 0, damage < 99, owner captured to 5", defender)
	}

	attacker := findParticipant(r.Battles[0].Final, 10)
	if attacker.Owner != 5 {
		t.Errorf("attacker owner changed unexpectedly: %+v", attacker)
	}
}

// TestSimulateFighterBaysDealDamage exercises the fighter-bay fire
// exchange of spec.md §4.1 step 4 in isolation: two beam-less carriers,
// where any hull damage or capture on the defender can only have come
// from the attacker's fighters.
func TestSimulateFighterBaysDealDamage(t *testing.T) {
	setup := Setup{Participants: []Participant{
		{
			Kind: KindShip, ID: 30, Owner: 7, Role: RoleAggressor,
			HullMass: 75, Crew: 180, BayCount: 2, FighterCount: 5,
		},
		{
			Kind: KindShip, ID: 40, Owner: 8, Role: RoleOpponent,
			HullMass: 75, Crew: 180,
		},
	}}
	opts := Options{Algorithm: VcrHost, SeedControl: true}

	r, err := Simulate(setup, opts, ShipSpec{}, DefaultHostConfig(), DefaultFlakConfig(), 5)
	if err != nil {
		t.Fatalf("Simulate returned error: %v", err)
	}

	defender := findParticipant(r.Battles[0].Final, 40)
	if defender.DamagePercent == 0 && defender.Owner == 8 {
		t.Errorf("defender untouched after facing a fighter-bay carrier: %+v", defender)
	}
}
