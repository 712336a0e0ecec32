package db

import (
	"context"
	"errors"

	"pokerstats/internal/db/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the persistence boundary of the settlement engine. Lookups of
// a single record return (nil, nil) when nothing matches.
type Repository interface {
	// Transaction runs fn against a transactional repository. Any error
	// returned by fn rolls every write back.
	Transaction(ctx context.Context, fn func(tx Repository) error) error
	WithContext(ctx context.Context) Repository

	CreateUser(user *models.User) error
	GetUser(id uint) (*models.User, error)

	CreateStructure(structure *models.TournamentStructure) error
	GetStructure(id uint) (*models.TournamentStructure, error)
	ListStructuresByUser(userID uint) ([]models.TournamentStructure, error)

	CreateTournament(tournament *models.Tournament) error
	GetTournament(id uint) (*models.Tournament, error)
	// LockTournament loads the tournament and holds a row lock on it until the
	// surrounding transaction ends.
	LockTournament(id uint) (*models.Tournament, error)
	UpdateTournamentState(tournament *models.Tournament) error
	ListTournamentsByAdmin(userID uint) ([]models.Tournament, error)
	// ListCompletedTournamentsForUser returns the completed tournaments the
	// user played in, oldest completion first.
	ListCompletedTournamentsForUser(userID uint) ([]models.Tournament, error)

	CreatePlayer(player *models.TournamentPlayer) error
	GetPlayer(id uint) (*models.TournamentPlayer, error)
	FindPlayers(tournamentID, userID uint) ([]models.TournamentPlayer, error)
	ListPlayers(tournamentID uint) ([]models.TournamentPlayer, error)
	DeletePlayer(id uint) error

	CreateInvite(invite *models.TournamentInvite) error
	FindInvites(tournamentID, userID uint) ([]models.TournamentInvite, error)
	ListInvites(tournamentID uint) ([]models.TournamentInvite, error)
	ListInvitesForUser(userID uint) ([]models.TournamentInvite, error)
	DeleteInvite(id uint) error

	CreateElimination(elimination *models.TournamentElimination) error
	ListEliminations(tournamentID uint) ([]models.TournamentElimination, error)
	DeleteEliminations(tournamentID uint) error

	CreateSplitElimination(split *models.TournamentSplitElimination) error
	ListSplitEliminations(tournamentID uint) ([]models.TournamentSplitElimination, error)
	DeleteSplitEliminations(tournamentID uint) error

	CreateRebuy(rebuy *models.TournamentRebuy) error
	ListRebuys(tournamentID uint) ([]models.TournamentRebuy, error)
	DeleteRebuys(tournamentID uint) error

	CreateResult(result *models.TournamentPlayerResult) error
	ListResults(tournamentID uint) ([]models.TournamentPlayerResult, error)
	DeleteResults(tournamentID uint) error

	CreateTotals(totals *models.TournamentTotals) error
	ListTotals(userID uint) ([]models.TournamentTotals, error)
	DeleteTotals(userID uint) error

	CreateRecordLog(entry *models.RecordLog) error
}

type gormRepository struct {
	db *gorm.DB
}

var _ Repository = (*gormRepository)(nil)

func NewRepository(conn *gorm.DB) Repository {
	return &gormRepository{db: conn}
}

func (r *gormRepository) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}

func (r *gormRepository) WithContext(ctx context.Context) Repository {
	return &gormRepository{db: r.db.WithContext(ctx)}
}

// first maps gorm.ErrRecordNotFound to (nil, nil).
func first[T any](query *gorm.DB, conds ...interface{}) (*T, error) {
	var out T
	if err := query.First(&out, conds...).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (r *gormRepository) CreateUser(user *models.User) error {
	return r.db.Create(user).Error
}

func (r *gormRepository) GetUser(id uint) (*models.User, error) {
	return first[models.User](r.db, id)
}

func (r *gormRepository) CreateStructure(structure *models.TournamentStructure) error {
	return r.db.Omit("User").Create(structure).Error
}

func (r *gormRepository) GetStructure(id uint) (*models.TournamentStructure, error) {
	return first[models.TournamentStructure](r.db, id)
}

func (r *gormRepository) ListStructuresByUser(userID uint) ([]models.TournamentStructure, error) {
	var structures []models.TournamentStructure
	err := r.db.Where("user_id = ?", userID).Order("id").Find(&structures).Error
	return structures, err
}

func (r *gormRepository) CreateTournament(tournament *models.Tournament) error {
	return r.db.Omit("Admin", "Structure").Create(tournament).Error
}

func (r *gormRepository) GetTournament(id uint) (*models.Tournament, error) {
	return first[models.Tournament](r.db.Preload("Structure"), id)
}

func (r *gormRepository) LockTournament(id uint) (*models.Tournament, error) {
	t, err := first[models.Tournament](r.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
	if err != nil || t == nil {
		return t, err
	}
	structure, err := r.GetStructure(t.StructureID)
	if err != nil {
		return nil, err
	}
	if structure != nil {
		t.Structure = *structure
	}
	return t, nil
}

func (r *gormRepository) UpdateTournamentState(tournament *models.Tournament) error {
	return r.db.Model(&models.Tournament{}).Where("id = ?", tournament.ID).
		Updates(map[string]interface{}{
			"started_at":   tournament.StartedAt,
			"completed_at": tournament.CompletedAt,
		}).Error
}

func (r *gormRepository) ListTournamentsByAdmin(userID uint) ([]models.Tournament, error) {
	var tournaments []models.Tournament
	err := r.db.Preload("Structure").Where("admin_id = ?", userID).Order("id").Find(&tournaments).Error
	return tournaments, err
}

func (r *gormRepository) ListCompletedTournamentsForUser(userID uint) ([]models.Tournament, error) {
	var tournaments []models.Tournament
	played := r.db.Model(&models.TournamentPlayer{}).Select("tournament_id").Where("user_id = ?", userID)
	err := r.db.Preload("Structure").
		Where("id IN (?) AND completed_at IS NOT NULL", played).
		Order("completed_at, id").
		Find(&tournaments).Error
	return tournaments, err
}

func (r *gormRepository) CreatePlayer(player *models.TournamentPlayer) error {
	return r.db.Omit("User").Create(player).Error
}

func (r *gormRepository) GetPlayer(id uint) (*models.TournamentPlayer, error) {
	return first[models.TournamentPlayer](r.db.Preload("User"), id)
}

func (r *gormRepository) FindPlayers(tournamentID, userID uint) ([]models.TournamentPlayer, error) {
	var players []models.TournamentPlayer
	err := r.db.Preload("User").
		Where("tournament_id = ? AND user_id = ?", tournamentID, userID).
		Order("id").Find(&players).Error
	return players, err
}

func (r *gormRepository) ListPlayers(tournamentID uint) ([]models.TournamentPlayer, error) {
	var players []models.TournamentPlayer
	err := r.db.Preload("User").Where("tournament_id = ?", tournamentID).Order("id").Find(&players).Error
	return players, err
}

func (r *gormRepository) DeletePlayer(id uint) error {
	return r.db.Delete(&models.TournamentPlayer{}, id).Error
}

func (r *gormRepository) CreateInvite(invite *models.TournamentInvite) error {
	return r.db.Omit("SendTo").Create(invite).Error
}

func (r *gormRepository) FindInvites(tournamentID, userID uint) ([]models.TournamentInvite, error) {
	var invites []models.TournamentInvite
	err := r.db.Preload("SendTo").
		Where("tournament_id = ? AND send_to_id = ?", tournamentID, userID).
		Order("id").Find(&invites).Error
	return invites, err
}

func (r *gormRepository) ListInvites(tournamentID uint) ([]models.TournamentInvite, error) {
	var invites []models.TournamentInvite
	err := r.db.Preload("SendTo").Where("tournament_id = ?", tournamentID).Order("id").Find(&invites).Error
	return invites, err
}

func (r *gormRepository) ListInvitesForUser(userID uint) ([]models.TournamentInvite, error) {
	var invites []models.TournamentInvite
	err := r.db.Preload("SendTo").Where("send_to_id = ?", userID).Order("id").Find(&invites).Error
	return invites, err
}

func (r *gormRepository) DeleteInvite(id uint) error {
	return r.db.Delete(&models.TournamentInvite{}, id).Error
}

func (r *gormRepository) CreateElimination(elimination *models.TournamentElimination) error {
	return r.db.Create(elimination).Error
}

func (r *gormRepository) ListEliminations(tournamentID uint) ([]models.TournamentElimination, error) {
	var eliminations []models.TournamentElimination
	err := r.db.Where("tournament_id = ?", tournamentID).Order("id").Find(&eliminations).Error
	return eliminations, err
}

func (r *gormRepository) DeleteEliminations(tournamentID uint) error {
	return r.db.Where("tournament_id = ?", tournamentID).Delete(&models.TournamentElimination{}).Error
}

// CreateSplitElimination inserts the split elimination and its eliminator
// rows in one statement batch.
func (r *gormRepository) CreateSplitElimination(split *models.TournamentSplitElimination) error {
	return r.db.Create(split).Error
}

func (r *gormRepository) ListSplitEliminations(tournamentID uint) ([]models.TournamentSplitElimination, error) {
	var splits []models.TournamentSplitElimination
	err := r.db.Preload("Eliminators", func(q *gorm.DB) *gorm.DB { return q.Order("id") }).
		Where("tournament_id = ?", tournamentID).Order("id").Find(&splits).Error
	return splits, err
}

// DeleteSplitEliminations removes the eliminator rows before their parents.
func (r *gormRepository) DeleteSplitEliminations(tournamentID uint) error {
	parents := r.db.Model(&models.TournamentSplitElimination{}).
		Select("id").Where("tournament_id = ?", tournamentID)
	if err := r.db.Where("split_elimination_id IN (?)", parents).
		Delete(&models.TournamentSplitEliminator{}).Error; err != nil {
		return err
	}
	return r.db.Where("tournament_id = ?", tournamentID).Delete(&models.TournamentSplitElimination{}).Error
}

func (r *gormRepository) CreateRebuy(rebuy *models.TournamentRebuy) error {
	return r.db.Create(rebuy).Error
}

func (r *gormRepository) ListRebuys(tournamentID uint) ([]models.TournamentRebuy, error) {
	var rebuys []models.TournamentRebuy
	err := r.db.Where("tournament_id = ?", tournamentID).Order("id").Find(&rebuys).Error
	return rebuys, err
}

func (r *gormRepository) DeleteRebuys(tournamentID uint) error {
	return r.db.Where("tournament_id = ?", tournamentID).Delete(&models.TournamentRebuy{}).Error
}

func (r *gormRepository) CreateResult(result *models.TournamentPlayerResult) error {
	return r.db.Create(result).Error
}

func (r *gormRepository) ListResults(tournamentID uint) ([]models.TournamentPlayerResult, error) {
	var results []models.TournamentPlayerResult
	err := r.db.Where("tournament_id = ?", tournamentID).Order("placement, id").Find(&results).Error
	return results, err
}

func (r *gormRepository) DeleteResults(tournamentID uint) error {
	return r.db.Where("tournament_id = ?", tournamentID).Delete(&models.TournamentPlayerResult{}).Error
}

func (r *gormRepository) CreateTotals(totals *models.TournamentTotals) error {
	return r.db.Create(totals).Error
}

func (r *gormRepository) ListTotals(userID uint) ([]models.TournamentTotals, error) {
	var totals []models.TournamentTotals
	err := r.db.Where("user_id = ?", userID).Order("timestamp, id").Find(&totals).Error
	return totals, err
}

func (r *gormRepository) DeleteTotals(userID uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.TournamentTotals{}).Error
}

func (r *gormRepository) CreateRecordLog(entry *models.RecordLog) error {
	return r.db.Create(entry).Error
}
