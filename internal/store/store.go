// Package store mirrors accepted ledger transitions into Postgres,
// best-effort. The ledger stays the source of truth: failures here are
// logged by the caller and never roll back the in-memory mutation.
package store

import (
	"context"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cricbid/auction-backend/internal/engine"
)

type Recorder interface {
	RecordSold(ctx context.Context, code string, rec engine.SoldRecord) error
	RecordUnsold(ctx context.Context, code, playerID string, round int) error
	RecordTeams(ctx context.Context, code string, teams []engine.Team) error
}

// Noop keeps the sink optional; the core runs identically without a
// database attached.
type Noop struct{}

func (Noop) RecordSold(context.Context, string, engine.SoldRecord) error { return nil }
func (Noop) RecordUnsold(context.Context, string, string, int) error     { return nil }
func (Noop) RecordTeams(context.Context, string, []engine.Team) error    { return nil }

type SoldPlayer struct {
	gorm.Model
	AuctionCode string `gorm:"index:idx_sold_auction_player,unique"`
	PlayerID    string `gorm:"index:idx_sold_auction_player,unique"`
	TeamID      string
	Amount      int64
}

type UnsoldPlayer struct {
	gorm.Model
	AuctionCode string `gorm:"index:idx_unsold_auction_player_round,unique"`
	PlayerID    string `gorm:"index:idx_unsold_auction_player_round,unique"`
	Round       int    `gorm:"index:idx_unsold_auction_player_round,unique"`
}

type TeamStanding struct {
	gorm.Model
	AuctionCode    string `gorm:"index:idx_standing_auction_team,unique"`
	TeamID         string `gorm:"index:idx_standing_auction_team,unique"`
	RemainingPurse int64
	PlayersBought  int
	UnderAge       int
	HighestBid     int64
}

type Store struct {
	db *gorm.DB
}

func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&SoldPlayer{}, &UnsoldPlayer{}, &TeamStanding{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) RecordSold(ctx context.Context, code string, rec engine.SoldRecord) error {
	row := SoldPlayer{
		AuctionCode: code,
		PlayerID:    rec.PlayerID,
		TeamID:      rec.TeamID,
		Amount:      rec.Amount,
	}
	// Duplicate deliveries upsert onto the same row instead of erroring.
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "auction_code"}, {Name: "player_id"}},
		UpdateAll: true,
	}).Create(&row).Error
}

func (s *Store) RecordUnsold(ctx context.Context, code, playerID string, round int) error {
	row := UnsoldPlayer{AuctionCode: code, PlayerID: playerID, Round: round}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "auction_code"}, {Name: "player_id"}, {Name: "round"}},
		DoNothing: true,
	}).Create(&row).Error
}

func (s *Store) RecordTeams(ctx context.Context, code string, teams []engine.Team) error {
	rows := make([]TeamStanding, 0, len(teams))
	for _, t := range teams {
		rows = append(rows, TeamStanding{
			AuctionCode:    code,
			TeamID:         t.ID,
			RemainingPurse: t.RemainingPurse,
			PlayersBought:  t.PlayersBought,
			UnderAge:       t.UnderAge,
			HighestBid:     t.HighestBid,
		})
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "auction_code"}, {Name: "team_id"}},
		UpdateAll: true,
	}).Create(&rows).Error
}
