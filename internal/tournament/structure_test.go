package tournament_test

import (
	"testing"

	"pokerstats/internal/tournament"
	"pokerstats/internal/tournament/tournamenttest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePayoutPercentages(t *testing.T) {
	assert.NoError(t, tournament.ValidatePayoutPercentages([]int{60, 30, 10}))
	assert.NoError(t, tournament.ValidatePayoutPercentages([]int{100}))

	err := tournament.ValidatePayoutPercentages([]int{60, 30})
	assert.ErrorIs(t, err, tournament.ErrValidation)
	assert.EqualError(t, err, "Payout Percentages must sum to 100")

	err = tournament.ValidatePayoutPercentages([]int{120, -20})
	assert.ErrorIs(t, err, tournament.ErrValidation)
	assert.EqualError(t, err, "Each payout percentage must be between 0 and 100.")

	assert.Error(t, tournament.ValidatePayoutPercentages(nil), "An empty payout list does not sum to 100")
}

func TestCreateStructure(t *testing.T) {
	f := tournamenttest.New(t)
	cat := f.User("cat")

	bounty := tournamenttest.Money("25.69")
	structure, err := f.Service.CreateStructure(f.Ctx, cat, tournament.StructureInput{
		Title:             "Bounty night",
		BuyIn:             tournamenttest.Money("115.12"),
		BountyAmount:      &bounty,
		PayoutPercentages: []int{50, 30, 15, 5},
		AllowRebuys:       true,
	})
	require.NoError(t, err)
	assert.NotZero(t, structure.ID)
	assert.Equal(t, cat, structure.UserID)
	assert.Equal(t, "115.12", structure.BuyIn.StringFixed(2))
	assert.True(t, structure.HasBounty())
	assert.Equal(t, "25.69", structure.BountyAmount.Decimal.StringFixed(2))
	assert.Equal(t, []int{50, 30, 15, 5}, []int(structure.PayoutPercentages))
	assert.True(t, structure.AllowRebuys)

	stored, err := f.Service.GetStructure(f.Ctx, structure.ID)
	require.NoError(t, err)
	assert.Equal(t, structure.Title, stored.Title)

	owned, err := f.Service.ListStructures(f.Ctx, cat)
	require.NoError(t, err)
	assert.Len(t, owned, 1)
}

func TestCreateStructureValidation(t *testing.T) {
	f := tournamenttest.New(t)
	cat := f.User("cat")
	zero := tournamenttest.Money("0")

	tests := []struct {
		name string
		in   tournament.StructureInput
		kind error
		msg  string
	}{
		{
			name: "missing title",
			in:   tournament.StructureInput{BuyIn: tournamenttest.Money("10"), PayoutPercentages: []int{100}},
			kind: tournament.ErrValidation,
			msg:  "A Tournament Structure needs a title.",
		},
		{
			name: "negative buy-in",
			in:   tournament.StructureInput{Title: "x", BuyIn: tournamenttest.Money("-1"), PayoutPercentages: []int{100}},
			kind: tournament.ErrValidation,
			msg:  "The buy-in amount cannot be negative.",
		},
		{
			name: "zero bounty",
			in:   tournament.StructureInput{Title: "x", BuyIn: tournamenttest.Money("10"), BountyAmount: &zero, PayoutPercentages: []int{100}},
			kind: tournament.ErrValidation,
			msg:  "The bounty amount must be greater than 0.",
		},
		{
			name: "percentages under 100",
			in:   tournament.StructureInput{Title: "x", BuyIn: tournamenttest.Money("10"), PayoutPercentages: []int{50, 40}},
			kind: tournament.ErrValidation,
			msg:  "Payout Percentages must sum to 100",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.Service.CreateStructure(f.Ctx, cat, tt.in)
			assert.ErrorIs(t, err, tt.kind)
			assert.EqualError(t, err, tt.msg)
		})
	}

	_, err := f.Service.CreateStructure(f.Ctx, 4242, tournament.StructureInput{
		Title: "x", BuyIn: tournamenttest.Money("10"), PayoutPercentages: []int{100},
	})
	assert.ErrorIs(t, err, tournament.ErrNotFound)

	_, err = f.Service.GetStructure(f.Ctx, 4242)
	assert.ErrorIs(t, err, tournament.ErrNotFound)
}
