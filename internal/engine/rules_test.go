package engine

import "testing"

func testTeam() Team {
	return Team{
		ID:             "csk",
		Name:           "Chennai",
		Allocated:      100000,
		RemainingPurse: 100000,
		PlayerCap:      11,
	}
}

func testPlayer(age *int) Player {
	return Player{ID: "p1", Name: "Askey", Role: RoleBatsman, BasePrice: 100, Age: age}
}

func intPtr(v int) *int { return &v }

func TestCalculateMaxBid(t *testing.T) {
	cfg := DefaultConfig()

	cases := []struct {
		name   string
		team   Team
		want   int64
	}{
		{
			name: "full purse, full roster to fill",
			team: testTeam(), // 100000 - 10*100
			want: 99000,
		},
		{
			name: "one slot left gets the whole purse",
			team: Team{Allocated: 100000, RemainingPurse: 5000, PlayerCap: 11, PlayersBought: 10},
			want: 5000,
		},
		{
			name: "roster already full",
			team: Team{Allocated: 100000, RemainingPurse: 5000, PlayerCap: 11, PlayersBought: 11},
			want: 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CalculateMaxBid(cfg, tc.team); got != tc.want {
				t.Fatalf("CalculateMaxBid: got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestValidateBid(t *testing.T) {
	cfg := DefaultConfig()

	fullRoster := testTeam()
	fullRoster.PlayersBought = 11

	maxedOutMinors := testTeam()
	maxedOutMinors.UnderAge = cfg.MaxUnderAge

	cases := []struct {
		name     string
		team     Team
		amount   int64
		player   Player
		wantOK   bool
		wantRule string
	}{
		{
			name:   "bid at the exact max-bid boundary passes",
			team:   testTeam(),
			amount: 99000,
			player: testPlayer(nil),
			wantOK: true,
		},
		{
			name:     "one over the boundary fails on budget",
			team:     testTeam(),
			amount:   99001,
			player:   testPlayer(nil),
			wantOK:   false,
			wantRule: RuleBudgetCap,
		},
		{
			name:     "full roster fails on roster cap",
			team:     fullRoster,
			amount:   100,
			player:   testPlayer(nil),
			wantOK:   false,
			wantRule: RuleRosterCap,
		},
		{
			name:     "under-age cap blocks a minor",
			team:     maxedOutMinors,
			amount:   500,
			player:   testPlayer(intPtr(17)),
			wantOK:   false,
			wantRule: RuleUnderAgeCap,
		},
		{
			name:   "under-age cap ignores players of age",
			team:   maxedOutMinors,
			amount: 500,
			player: testPlayer(intPtr(25)),
			wantOK: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := ValidateBid(cfg, tc.team, tc.amount, tc.player)
			if v.Valid != tc.wantOK {
				t.Fatalf("Valid: got %v, want %v (%+v)", v.Valid, tc.wantOK, v)
			}
			if !tc.wantOK && v.RuleID != tc.wantRule {
				t.Fatalf("RuleID: got %q, want %q", v.RuleID, tc.wantRule)
			}
		})
	}
}

func TestValidateBid_SafeFundWarnsWithoutBlocking(t *testing.T) {
	cfg := DefaultConfig()
	team := Team{Allocated: 100000, RemainingPurse: 2100, PlayerCap: 11, PlayersBought: 1}
	// 9 slots remain after this buy; floor 900, buffer 90. Residual 950
	// covers the floor but eats into the buffer.
	v := ValidateBid(cfg, team, 1150, testPlayer(nil))
	if !v.Valid {
		t.Fatalf("expected valid bid, got %+v", v)
	}
	if v.Severity != SeverityWarning || v.RuleID != RuleSafeFund {
		t.Fatalf("expected safe-fund warning, got %+v", v)
	}
}

func TestTeamStatus(t *testing.T) {
	cfg := DefaultConfig()

	cases := []struct {
		name       string
		team       Team
		currentBid int64
		want       Health
	}{
		{
			name: "fresh team is ok",
			team: testTeam(),
			want: HealthOK,
		},
		{
			name: "heavy spend ratio warns",
			team: Team{Allocated: 100000, RemainingPurse: 20000, PlayerCap: 11, PlayersBought: 5},
			want: HealthWarning,
		},
		{
			name: "near-empty purse is danger",
			team: Team{Allocated: 100000, RemainingPurse: 5000, PlayerCap: 11, PlayersBought: 5},
			want: HealthDanger,
		},
		{
			name:       "current bid beyond reach is danger",
			team:       testTeam(),
			currentBid: 99500,
			want:       HealthDanger,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TeamStatus(cfg, tc.team, tc.currentBid); got != tc.want {
				t.Fatalf("TeamStatus: got %q, want %q", got, tc.want)
			}
		})
	}
}
