package totals

import (
	"context"
	"sort"
	"time"

	"pokerstats/internal/db"

	"github.com/shopspring/decimal"
)

type HistoryEntry struct {
	TournamentID  uint            `json:"tournament_id"`
	Title         string          `json:"tournament_title"`
	CompletedAt   time.Time       `json:"completed_at"`
	Placement     int             `json:"placement"`
	GrossEarnings decimal.Decimal `json:"gross_earnings"`
	NetEarnings   decimal.Decimal `json:"net_earnings"`
	Losses        decimal.Decimal `json:"losses"`
	Eliminations  decimal.Decimal `json:"eliminations"`
	Rebuys        int             `json:"rebuys"`
}

// PlayerHistory returns the user's result in every completed tournament,
// oldest first.
func (c *Cache) PlayerHistory(ctx context.Context, userID uint) ([]HistoryEntry, error) {
	history := []HistoryEntry{}
	err := c.repo.Transaction(ctx, func(tx db.Repository) error {
		tournaments, err := tx.ListCompletedTournamentsForUser(userID)
		if err != nil {
			return err
		}
		for i := range tournaments {
			t := &tournaments[i]
			l, err := userLine(tx, t, userID)
			if err != nil {
				return err
			}
			history = append(history, HistoryEntry{
				TournamentID:  t.ID,
				Title:         t.Title,
				CompletedAt:   *t.CompletedAt,
				Placement:     l.result.Placement,
				GrossEarnings: l.result.GrossEarnings,
				NetEarnings:   l.result.NetEarnings,
				Losses:        l.result.Investment,
				Eliminations:  l.eliminationCredit(false).RoundBank(2),
				Rebuys:        l.rebuys,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return history, nil
}

type OpponentEliminations struct {
	UserID   uint            `json:"user_id"`
	Username string          `json:"username"`
	Count    decimal.Decimal `json:"count"`
}

// EliminationsByOpponent totals how often the user knocked out each opponent
// across completed tournaments. Split eliminations count 1/N.
func (c *Cache) EliminationsByOpponent(ctx context.Context, userID uint) ([]OpponentEliminations, error) {
	counts := map[uint]*OpponentEliminations{}
	err := c.repo.Transaction(ctx, func(tx db.Repository) error {
		tournaments, err := tx.ListCompletedTournamentsForUser(userID)
		if err != nil {
			return err
		}
		for i := range tournaments {
			t := &tournaments[i]
			l, err := userLine(tx, t, userID)
			if err != nil {
				return err
			}
			players, err := tx.ListPlayers(t.ID)
			if err != nil {
				return err
			}
			opponentOf := map[uint]*OpponentEliminations{}
			for _, p := range players {
				entry, ok := counts[p.UserID]
				if !ok {
					entry = &OpponentEliminations{UserID: p.UserID, Username: p.User.Username, Count: decimal.Zero}
				}
				opponentOf[p.ID] = entry
			}
			credit := func(eliminateeID uint, amount decimal.Decimal) {
				entry := opponentOf[eliminateeID]
				if entry == nil {
					return
				}
				entry.Count = entry.Count.Add(amount)
				counts[entry.UserID] = entry
			}
			for _, e := range l.eliminations {
				credit(e.EliminateeID, decimal.NewFromInt(1))
			}
			for j, split := range l.splits {
				credit(split.EliminateeID, decimal.NewFromInt(1).Div(decimal.NewFromInt(int64(l.splitShares[j]))))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]OpponentEliminations, 0, len(counts))
	for _, entry := range counts {
		entry.Count = entry.Count.RoundBank(2)
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Count.Equal(out[j].Count) {
			return out[i].Count.GreaterThan(out[j].Count)
		}
		return out[i].Username < out[j].Username
	})
	return out, nil
}
