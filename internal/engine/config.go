package engine

// Config carries every tunable the rules engine and ledger read. It is
// built once at startup and never mutated afterwards; components receive
// it by value.
type Config struct {
	// BidIncrement is the amount one raise step adds to the current bid.
	BidIncrement int64
	// MinimumBasePrice is the floor price used by the max-bid formula.
	MinimumBasePrice int64
	// MaxRounds bounds how many passes over the player pool are allowed.
	MaxRounds int
	// HistoryLimit bounds the per-player bid history kept for undo.
	HistoryLimit int
	// UnderAgeLimit is the age below which a player counts as under-age.
	UnderAgeLimit int
	// MaxUnderAge caps how many under-age players one team may buy.
	MaxUnderAge int
	// SafeFundBufferPct sizes the warn-only purse reserve, as a percentage
	// of the floor needed to fill the remaining roster slots.
	SafeFundBufferPct int64
	// WarnSpendPct / DangerSpendPct are spend-ratio thresholds for the
	// team health indicator.
	WarnSpendPct   int64
	DangerSpendPct int64
}

func DefaultConfig() Config {
	return Config{
		BidIncrement:      100,
		MinimumBasePrice:  100,
		MaxRounds:         2,
		HistoryLimit:      20,
		UnderAgeLimit:     19,
		MaxUnderAge:       2,
		SafeFundBufferPct: 10,
		WarnSpendPct:      75,
		DangerSpendPct:    90,
	}
}
