package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// DidNotPlace is stored as the placement of a player who could not be ranked.
// Placement 0 is the winner. The sentinel sorts after any real placement.
const DidNotPlace = 999999

type TournamentState string

const (
	StateInactive  TournamentState = "INACTIVE"
	StateActive    TournamentState = "ACTIVE"
	StateCompleted TournamentState = "COMPLETED"
)

type User struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string    `gorm:"size:150;not null;unique" json:"username"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type TournamentStructure struct {
	ID                uint                     `gorm:"primaryKey;autoIncrement" json:"id"`
	Title             string                   `gorm:"size:200;not null" json:"title"`
	UserID            uint                     `gorm:"not null;index" json:"user_id"`
	User              User                     `gorm:"foreignKey:UserID" json:"-"`
	BuyIn             decimal.Decimal          `gorm:"type:numeric(9,2);not null" json:"buy_in"`
	BountyAmount      decimal.NullDecimal      `gorm:"type:numeric(9,2)" json:"bounty_amount"`
	PayoutPercentages datatypes.JSONSlice[int] `gorm:"not null" json:"payout_percentages"`
	AllowRebuys       bool                     `gorm:"not null;default:false" json:"allow_rebuys"`
	CreatedAt         time.Time                `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time                `gorm:"autoUpdateTime" json:"updated_at"`
}

// HasBounty reports whether eliminations pay a bounty in this structure.
func (s *TournamentStructure) HasBounty() bool {
	return s.BountyAmount.Valid && s.BountyAmount.Decimal.IsPositive()
}

type Tournament struct {
	ID          uint                `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string              `gorm:"size:200;not null" json:"title"`
	AdminID     uint                `gorm:"not null;index" json:"admin_id"`
	Admin       User                `gorm:"foreignKey:AdminID" json:"-"`
	StructureID uint                `gorm:"not null" json:"structure_id"`
	Structure   TournamentStructure `gorm:"foreignKey:StructureID" json:"structure"`
	StartedAt   *time.Time          `json:"started_at"`
	CompletedAt *time.Time          `gorm:"index" json:"completed_at"`
	CreatedAt   time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

// State is derived from the lifecycle timestamps and never stored.
func (t *Tournament) State() TournamentState {
	switch {
	case t.CompletedAt != nil:
		return StateCompleted
	case t.StartedAt != nil:
		return StateActive
	default:
		return StateInactive
	}
}

type TournamentPlayer struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TournamentID uint      `gorm:"not null;index" json:"tournament_id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	User         User      `gorm:"foreignKey:UserID" json:"user"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TournamentInvite marks a player that was invited but has not joined yet.
type TournamentInvite struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TournamentID uint      `gorm:"not null;index" json:"tournament_id"`
	SendToID     uint      `gorm:"not null;index" json:"send_to_id"`
	SendTo       User      `gorm:"foreignKey:SendToID" json:"send_to"`
	SentFromID   uint      `gorm:"not null" json:"sent_from_id"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type TournamentElimination struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TournamentID uint      `gorm:"not null;index" json:"tournament_id"`
	EliminatorID uint      `gorm:"not null;index" json:"eliminator_id"`
	EliminateeID uint      `gorm:"not null;index" json:"eliminatee_id"`
	EliminatedAt time.Time `gorm:"not null" json:"eliminated_at"`
	IsBackfill   bool      `gorm:"not null;default:false" json:"is_backfill"`
}

type TournamentSplitElimination struct {
	ID           uint                        `gorm:"primaryKey;autoIncrement" json:"id"`
	TournamentID uint                        `gorm:"not null;index" json:"tournament_id"`
	EliminateeID uint                        `gorm:"not null;index" json:"eliminatee_id"`
	Eliminators  []TournamentSplitEliminator `gorm:"foreignKey:SplitEliminationID" json:"eliminators"`
	EliminatedAt time.Time                   `gorm:"not null" json:"eliminated_at"`
	IsBackfill   bool                        `gorm:"not null;default:false" json:"is_backfill"`
}

// EliminatorIDs returns the player ids sharing credit for the elimination.
func (s *TournamentSplitElimination) EliminatorIDs() []uint {
	ids := make([]uint, 0, len(s.Eliminators))
	for _, e := range s.Eliminators {
		ids = append(ids, e.PlayerID)
	}
	return ids
}

type TournamentSplitEliminator struct {
	ID                 uint `gorm:"primaryKey;autoIncrement" json:"-"`
	SplitEliminationID uint `gorm:"not null;index" json:"-"`
	PlayerID           uint `gorm:"not null;index" json:"player_id"`
}

type TournamentRebuy struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TournamentID uint      `gorm:"not null;index" json:"tournament_id"`
	PlayerID     uint      `gorm:"not null;index" json:"player_id"`
	RebuyAt      time.Time `gorm:"not null" json:"rebuy_at"`
	IsBackfill   bool      `gorm:"not null;default:false" json:"is_backfill"`
}

type TournamentPlayerResult struct {
	ID                uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	TournamentID      uint            `gorm:"not null;index" json:"tournament_id"`
	PlayerID          uint            `gorm:"not null;uniqueIndex" json:"player_id"`
	Placement         int             `gorm:"not null" json:"placement"`
	PlacementEarnings decimal.Decimal `gorm:"type:numeric(9,2);not null" json:"placement_earnings"`
	BountyEarnings    decimal.Decimal `gorm:"type:numeric(9,2);not null" json:"bounty_earnings"`
	GrossEarnings     decimal.Decimal `gorm:"type:numeric(9,2);not null" json:"gross_earnings"`
	NetEarnings       decimal.Decimal `gorm:"type:numeric(9,2);not null" json:"net_earnings"`
	Rebuys            int             `gorm:"not null" json:"rebuys"`
	Investment        decimal.Decimal `gorm:"type:numeric(9,2);not null" json:"investment"`
	IsBackfill        bool            `gorm:"not null;default:false" json:"is_backfill"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// TournamentTotals is one cumulative snapshot of a user's results, taken at
// the completion of a tournament.
type TournamentTotals struct {
	ID                uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID            uint            `gorm:"not null;index" json:"user_id"`
	TournamentsPlayed int             `gorm:"not null" json:"tournaments_played"`
	Eliminations      decimal.Decimal `gorm:"type:numeric(9,2);not null" json:"eliminations"`
	Rebuys            int             `gorm:"not null" json:"rebuys"`
	GrossEarnings     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"gross_earnings"`
	NetEarnings       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"net_earnings"`
	Losses            decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"losses"`
	TournamentHash    string          `gorm:"size:40;not null" json:"tournament_hash"`
	Timestamp         time.Time       `gorm:"not null;index" json:"timestamp"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// RecordLog is the audit trail of lifecycle transitions.
type RecordLog struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Entity    string    `gorm:"size:100;not null"`
	Action    string    `gorm:"size:100;not null"`
	RecordID  uint      `gorm:"not null;index"`
	ActorID   uint      `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// All lists every model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&TournamentStructure{},
		&Tournament{},
		&TournamentPlayer{},
		&TournamentInvite{},
		&TournamentElimination{},
		&TournamentSplitElimination{},
		&TournamentSplitEliminator{},
		&TournamentRebuy{},
		&TournamentPlayerResult{},
		&TournamentTotals{},
		&RecordLog{},
	}
}
