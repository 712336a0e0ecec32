package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"pokerstats/internal/db/models"
	"pokerstats/internal/tournament"
)

type createUserRequest struct {
	Username string `json:"username"`
}

type createTournamentRequest struct {
	Title       string `json:"title"`
	StructureID uint   `json:"structure_id"`
}

type userRequest struct {
	UserID uint `json:"user_id"`
}

type eliminationRequest struct {
	EliminatorID uint `json:"eliminator_id"`
	EliminateeID uint `json:"eliminatee_id"`
}

type splitEliminationRequest struct {
	EliminatorIDs []uint `json:"eliminator_ids"`
	EliminateeID  uint   `json:"eliminatee_id"`
}

// createUser registers a user record for an identity the caller already
// authenticated.
func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decode(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		badRequest(w, "A username is required.")
		return
	}
	user := &models.User{Username: req.Username}
	if err := s.repo.WithContext(r.Context()).CreateUser(user); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) userTotals(w http.ResponseWriter, r *http.Request) {
	snapshots, err := s.totals.GetOrBuild(r.Context(), pathID(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshots)
}

func (s *Server) userHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.totals.PlayerHistory(r.Context(), pathID(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) userOpponents(w http.ResponseWriter, r *http.Request) {
	counts, err := s.totals.EliminationsByOpponent(r.Context(), pathID(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (s *Server) userInvites(w http.ResponseWriter, r *http.Request) {
	invites, err := s.engine.InvitesForUser(r.Context(), pathID(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invites)
}

func (s *Server) createStructure(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(w, r)
	if !ok {
		return
	}
	var in tournament.StructureInput
	if !decode(w, r, &in) {
		return
	}
	structure, err := s.engine.CreateStructure(r.Context(), actor, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, structure)
}

func (s *Server) listStructures(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(w, r)
	if !ok {
		return
	}
	structures, err := s.engine.ListStructures(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, structures)
}

func (s *Server) getStructure(w http.ResponseWriter, r *http.Request) {
	structure, err := s.engine.GetStructure(r.Context(), pathID(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, structure)
}

func (s *Server) createTournament(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(w, r)
	if !ok {
		return
	}
	var req createTournamentRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := s.engine.CreateTournament(r.Context(), actor, req.Title, req.StructureID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) listTournaments(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(w, r)
	if !ok {
		return
	}
	tournaments, err := s.engine.ListTournaments(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tournaments)
}

func (s *Server) getTournament(w http.ResponseWriter, r *http.Request) {
	t, err := s.engine.GetTournament(r.Context(), pathID(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type lifecycleOp func(ctx context.Context, actorID, tournamentID uint) (*models.Tournament, error)

// lifecycle runs a state transition. Undone completions are picked up lazily
// when totals are next read, so only completion schedules a refresh.
func (s *Server) lifecycle(w http.ResponseWriter, r *http.Request, op lifecycleOp, refresh bool) {
	actor, ok := caller(w, r)
	if !ok {
		return
	}
	t, err := op(r.Context(), actor, pathID(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if refresh {
		s.scheduleRefresh(r.Context(), t.ID)
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) start(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, s.engine.Start, false)
}

func (s *Server) complete(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, s.engine.Complete, true)
}

func (s *Server) undoComplete(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, s.engine.UndoComplete, false)
}

func (s *Server) undoStart(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, s.engine.UndoStart, false)
}

func (s *Server) roster(w http.ResponseWriter, r *http.Request) {
	players, err := s.engine.Roster(r.Context(), pathID(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}

func (s *Server) addPlayer(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(w, r)
	if !ok {
		return
	}
	var req userRequest
	if !decode(w, r, &req) {
		return
	}
	player, err := s.engine.AddPlayer(r.Context(), actor, pathID(r, "id"), req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, player)
}

func (s *Server) removePlayer(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(w, r)
	if !ok {
		return
	}
	if err := s.engine.RemovePlayer(r.Context(), actor, pathID(r, "id"), pathID(r, "userID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) pendingInvites(w http.ResponseWriter, r *http.Request) {
	invites, err := s.engine.PendingInvites(r.Context(), pathID(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invites)
}

func (s *Server) sendInvite(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(w, r)
	if !ok {
		return
	}
	var req userRequest
	if !decode(w, r, &req) {
		return
	}
	invite, err := s.engine.SendInvite(r.Context(), actor, pathID(r, "id"), req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, invite)
}

func (s *Server) uninvite(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(w, r)
	if !ok {
		return
	}
	if err := s.engine.Uninvite(r.Context(), actor, pathID(r, "id"), pathID(r, "userID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) join(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(w, r)
	if !ok {
		return
	}
	player, err := s.engine.JoinViaInvite(r.Context(), actor, pathID(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, player)
}

func (s *Server) eliminate(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(w, r)
	if !ok {
		return
	}
	var req eliminationRequest
	if !decode(w, r, &req) {
		return
	}
	elimination, err := s.engine.Eliminate(r.Context(), actor, pathID(r, "id"), req.EliminatorID, req.EliminateeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, elimination)
}

func (s *Server) splitEliminate(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(w, r)
	if !ok {
		return
	}
	var req splitEliminationRequest
	if !decode(w, r, &req) {
		return
	}
	split, err := s.engine.SplitEliminate(r.Context(), actor, pathID(r, "id"), req.EliminatorIDs, req.EliminateeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, split)
}

func (s *Server) rebuy(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(w, r)
	if !ok {
		return
	}
	var req userRequest
	if !decode(w, r, &req) {
		return
	}
	rebuy, err := s.engine.Rebuy(r.Context(), actor, pathID(r, "id"), req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rebuy)
}

// ledger accepts an optional user_id query parameter to narrow the entries to
// one player.
func (s *Server) ledger(w http.ResponseWriter, r *http.Request) {
	var userID uint
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			badRequest(w, "user_id must be a number.")
			return
		}
		userID = uint(id)
	}
	view, err := s.engine.Ledger(r.Context(), pathID(r, "id"), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) backfill(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(w, r)
	if !ok {
		return
	}
	var in tournament.BackfillInput
	if !decode(w, r, &in) {
		return
	}
	tournamentID := pathID(r, "id")
	results, err := s.engine.Backfill(r.Context(), actor, tournamentID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	s.scheduleRefresh(r.Context(), tournamentID)
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) results(w http.ResponseWriter, r *http.Request) {
	results, err := s.engine.Results(r.Context(), pathID(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) buildResults(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(w, r)
	if !ok {
		return
	}
	results, err := s.engine.BuildResults(r.Context(), actor, pathID(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

type valueResponse struct {
	Value string `json:"value"`
}

func (s *Server) value(w http.ResponseWriter, r *http.Request) {
	value, err := s.engine.TournamentValue(r.Context(), pathID(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, valueResponse{Value: value.StringFixed(2)})
}
