// Package tournamenttest builds tournaments on an in-memory sqlite database
// for tests.
package tournamenttest

import (
	"context"
	"sync"
	"testing"
	"time"

	"pokerstats/internal/db"
	"pokerstats/internal/db/dbtest"
	"pokerstats/internal/db/models"
	"pokerstats/internal/tournament"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Clock ticks one second every time it is read, so every ledger entry gets a
// distinct timestamp.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Date(2024, time.March, 1, 19, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type Fixture struct {
	t       *testing.T
	Ctx     context.Context
	DB      *gorm.DB
	Store   db.Repository
	Service *tournament.Service
	Clock   *Clock
	users   map[string]uint
}

func New(t *testing.T, opts ...tournament.Option) *Fixture {
	t.Helper()
	conn := dbtest.Open(t)
	store := db.NewRepository(conn)
	clock := NewClock()
	opts = append([]tournament.Option{tournament.WithClock(clock.Now)}, opts...)
	return &Fixture{
		t:       t,
		Ctx:     context.Background(),
		DB:      conn,
		Store:   store,
		Service: tournament.NewService(store, opts...),
		Clock:   clock,
		users:   map[string]uint{},
	}
}

// User returns the id of the named user, creating it on first use.
func (f *Fixture) User(name string) uint {
	f.t.Helper()
	if id, ok := f.users[name]; ok {
		return id
	}
	u := &models.User{Username: name}
	require.NoError(f.t, f.Store.CreateUser(u))
	f.users[name] = u.ID
	return u.ID
}

func (f *Fixture) Users(names ...string) []uint {
	f.t.Helper()
	ids := make([]uint, 0, len(names))
	for _, name := range names {
		ids = append(ids, f.User(name))
	}
	return ids
}

// Money parses a decimal literal.
func Money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Structure creates a structure owned by owner. An empty bounty means none.
func (f *Fixture) Structure(owner uint, buyIn, bounty string, payouts []int, rebuys bool) *models.TournamentStructure {
	f.t.Helper()
	in := tournament.StructureInput{
		Title:             "Structure",
		BuyIn:             Money(buyIn),
		PayoutPercentages: payouts,
		AllowRebuys:       rebuys,
	}
	if bounty != "" {
		b := Money(bounty)
		in.BountyAmount = &b
	}
	structure, err := f.Service.CreateStructure(f.Ctx, owner, in)
	require.NoError(f.t, err)
	return structure
}

// Tournament creates an INACTIVE tournament and adds players besides the
// admin.
func (f *Fixture) Tournament(admin uint, structure *models.TournamentStructure, players ...uint) *models.Tournament {
	f.t.Helper()
	t, err := f.Service.CreateTournament(f.Ctx, admin, "Friday Night", structure.ID)
	require.NoError(f.t, err)
	for _, id := range players {
		_, err := f.Service.AddPlayer(f.Ctx, admin, t.ID, id)
		require.NoError(f.t, err)
	}
	return t
}

func (f *Fixture) Start(admin, tournamentID uint) {
	f.t.Helper()
	_, err := f.Service.Start(f.Ctx, admin, tournamentID)
	require.NoError(f.t, err)
}

func (f *Fixture) Eliminate(admin, tournamentID, eliminator, eliminatee uint) {
	f.t.Helper()
	_, err := f.Service.Eliminate(f.Ctx, admin, tournamentID, eliminator, eliminatee)
	require.NoError(f.t, err)
}

func (f *Fixture) Rebuy(admin, tournamentID, userID uint) {
	f.t.Helper()
	_, err := f.Service.Rebuy(f.Ctx, admin, tournamentID, userID)
	require.NoError(f.t, err)
}

func (f *Fixture) Complete(admin, tournamentID uint) {
	f.t.Helper()
	_, err := f.Service.Complete(f.Ctx, admin, tournamentID)
	require.NoError(f.t, err)
}

// HeadsUp plays a two player tournament that admin wins by knocking out
// opponent.
func (f *Fixture) HeadsUp(admin, opponent uint, structure *models.TournamentStructure) *models.Tournament {
	f.t.Helper()
	t := f.Tournament(admin, structure, opponent)
	f.Start(admin, t.ID)
	f.Eliminate(admin, t.ID, admin, opponent)
	f.Complete(admin, t.ID)
	return t
}

// RecordLogs returns the audit trail of a tournament, oldest first.
func (f *Fixture) RecordLogs(tournamentID uint) []models.RecordLog {
	f.t.Helper()
	var logs []models.RecordLog
	require.NoError(f.t, f.DB.Where("entity = ? AND record_id = ?", "tournaments", tournamentID).Order("id").Find(&logs).Error)
	return logs
}
