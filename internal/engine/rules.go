package engine

import "fmt"

// Rule identifiers are stable so callers can render a specific message per
// rejection without string-matching.
const (
	RuleRosterCap    = "roster-cap"
	RuleBudgetCap    = "budget-cap"
	RulePurseBalance = "purse-balance"
	RuleSafeFund     = "safe-fund"
	RuleUnderAgeCap  = "under-age-cap"
	RuleAlternation  = "alternation"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Verdict is the structured result of a rule check. Warn-only rules return
// Valid=true with SeverityWarning so the caller can surface them without
// blocking the bid.
type Verdict struct {
	Valid    bool     `json:"valid"`
	Severity Severity `json:"severity,omitempty"`
	RuleID   string   `json:"rule_id,omitempty"`
	Message  string   `json:"message,omitempty"`
}

func accept() Verdict { return Verdict{Valid: true} }

func reject(rule, msg string) Verdict {
	return Verdict{Valid: false, Severity: SeverityError, RuleID: rule, Message: msg}
}

func warn(rule, msg string) Verdict {
	return Verdict{Valid: true, Severity: SeverityWarning, RuleID: rule, Message: msg}
}

// CalculateMaxBid returns the most a team may spend on one player while
// still being able to fill every remaining roster slot at the floor price.
func CalculateMaxBid(cfg Config, t Team) int64 {
	slots := t.RemainingSlots()
	if slots <= 0 {
		return 0
	}
	return t.RemainingPurse - int64(slots-1)*cfg.MinimumBasePrice
}

// ValidateBid checks a proposed amount against team and player constraints,
// in a fixed order: roster cap, budget cap, purse balance, safe-fund
// (warn-only), under-age cap. It never panics; every outcome is a Verdict.
func ValidateBid(cfg Config, t Team, amount int64, p Player) Verdict {
	if t.RemainingSlots() <= 0 {
		return reject(RuleRosterCap,
			fmt.Sprintf("%s already holds %d of %d players", t.Name, t.PlayersBought, t.PlayerCap))
	}
	if maxBid := CalculateMaxBid(cfg, t); amount > maxBid {
		return reject(RuleBudgetCap,
			fmt.Sprintf("%d exceeds %s's max bid of %d", amount, t.Name, maxBid))
	}
	if t.RemainingPurse-amount < 0 {
		return reject(RulePurseBalance,
			fmt.Sprintf("%s's purse %d cannot cover %d", t.Name, t.RemainingPurse, amount))
	}

	verdict := accept()
	slotsAfter := t.RemainingSlots() - 1
	floor := int64(slotsAfter) * cfg.MinimumBasePrice
	buffer := floor * cfg.SafeFundBufferPct / 100
	if t.RemainingPurse-amount-floor < buffer {
		verdict = warn(RuleSafeFund,
			fmt.Sprintf("%s's reserve would drop below the safe-fund buffer", t.Name))
	}

	if p.Age != nil && *p.Age < cfg.UnderAgeLimit && t.UnderAge >= cfg.MaxUnderAge {
		return reject(RuleUnderAgeCap,
			fmt.Sprintf("%s already holds %d under-age players", t.Name, t.UnderAge))
	}
	return verdict
}

type Health string

const (
	HealthOK      Health = "ok"
	HealthWarning Health = "warning"
	HealthDanger  Health = "danger"
)

// TeamStatus classifies a team's purse health for display, from its spend
// ratio, its headroom against the current bid, and its remaining slots.
func TeamStatus(cfg Config, t Team, currentBid int64) Health {
	if t.Allocated <= 0 {
		return HealthDanger
	}
	spentPct := (t.Allocated - t.RemainingPurse) * 100 / t.Allocated
	switch {
	case t.RemainingSlots() <= 0,
		currentBid > CalculateMaxBid(cfg, t),
		spentPct >= cfg.DangerSpendPct:
		return HealthDanger
	case spentPct >= cfg.WarnSpendPct,
		t.RemainingSlots() <= 1:
		return HealthWarning
	default:
		return HealthOK
	}
}
