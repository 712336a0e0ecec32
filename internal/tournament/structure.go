package tournament

import (
	"context"
	"strings"

	"pokerstats/internal/db"
	"pokerstats/internal/db/models"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type StructureInput struct {
	Title             string           `json:"title"`
	BuyIn             decimal.Decimal  `json:"buy_in"`
	BountyAmount      *decimal.Decimal `json:"bounty_amount"`
	PayoutPercentages []int            `json:"payout_percentages"`
	AllowRebuys       bool             `json:"allow_rebuys"`
}

// ValidatePayoutPercentages checks that every slot is within 0..100 and that
// the slots add up to exactly 100.
func ValidatePayoutPercentages(percentages []int) error {
	sum := 0
	for _, pct := range percentages {
		if pct < 0 || pct > 100 {
			return validation("Each payout percentage must be between 0 and 100.")
		}
		sum += pct
	}
	if sum != 100 {
		return validation("Payout Percentages must sum to 100")
	}
	return nil
}

// CreateStructure stores a new payout template owned by ownerID. Structures
// are never modified afterwards.
func (s *Service) CreateStructure(ctx context.Context, ownerID uint, in StructureInput) (*models.TournamentStructure, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, validation("A Tournament Structure needs a title.")
	}
	if in.BuyIn.IsNegative() {
		return nil, validation("The buy-in amount cannot be negative.")
	}
	if in.BountyAmount != nil && !in.BountyAmount.IsPositive() {
		return nil, validation("The bounty amount must be greater than 0.")
	}
	if err := ValidatePayoutPercentages(in.PayoutPercentages); err != nil {
		return nil, err
	}

	structure := &models.TournamentStructure{
		Title:             strings.TrimSpace(in.Title),
		UserID:            ownerID,
		BuyIn:             in.BuyIn.Round(2),
		PayoutPercentages: datatypes.JSONSlice[int](append([]int(nil), in.PayoutPercentages...)),
		AllowRebuys:       in.AllowRebuys,
	}
	if in.BountyAmount != nil {
		structure.BountyAmount = decimal.NewNullDecimal(in.BountyAmount.Round(2))
	}

	err := s.transaction(ctx, func(tx db.Repository) error {
		if _, err := loadUser(tx, ownerID); err != nil {
			return err
		}
		return tx.CreateStructure(structure)
	})
	if err != nil {
		return nil, err
	}
	return structure, nil
}

func (s *Service) GetStructure(ctx context.Context, id uint) (*models.TournamentStructure, error) {
	structure, err := s.repo.WithContext(ctx).GetStructure(id)
	if err != nil {
		return nil, err
	}
	if structure == nil {
		return nil, notFound("Tournament Structure %d does not exist.", id)
	}
	return structure, nil
}

func (s *Service) ListStructures(ctx context.Context, ownerID uint) ([]models.TournamentStructure, error) {
	return s.repo.WithContext(ctx).ListStructuresByUser(ownerID)
}
