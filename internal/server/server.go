package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"pokerstats/config"
	"pokerstats/internal/db"
	"pokerstats/internal/tournament"
	"pokerstats/internal/totals"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

// UserHeader carries the authenticated caller. Authentication happens in
// front of this service.
const UserHeader = "X-User-ID"

// TotalsScheduler refreshes aggregate totals after a tournament completes.
type TotalsScheduler interface {
	ScheduleRefresh(ctx context.Context, tournamentID uint) error
}

type Server struct {
	engine    *tournament.Service
	totals    *totals.Cache
	repo      db.Repository
	scheduler TotalsScheduler
}

// New wires the HTTP handlers. scheduler may be nil, in which case totals are
// only rebuilt when they are read.
func New(engine *tournament.Service, cache *totals.Cache, repo db.Repository, scheduler TotalsScheduler) *Server {
	return &Server{engine: engine, totals: cache, repo: repo, scheduler: scheduler}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/users", s.createUser).Methods(http.MethodPost)
	r.HandleFunc("/users/{id:[0-9]+}/totals", s.userTotals).Methods(http.MethodGet)
	r.HandleFunc("/users/{id:[0-9]+}/history", s.userHistory).Methods(http.MethodGet)
	r.HandleFunc("/users/{id:[0-9]+}/opponents", s.userOpponents).Methods(http.MethodGet)
	r.HandleFunc("/users/{id:[0-9]+}/invites", s.userInvites).Methods(http.MethodGet)

	r.HandleFunc("/structures", s.createStructure).Methods(http.MethodPost)
	r.HandleFunc("/structures", s.listStructures).Methods(http.MethodGet)
	r.HandleFunc("/structures/{id:[0-9]+}", s.getStructure).Methods(http.MethodGet)

	r.HandleFunc("/tournaments", s.createTournament).Methods(http.MethodPost)
	r.HandleFunc("/tournaments", s.listTournaments).Methods(http.MethodGet)

	t := r.PathPrefix("/tournaments/{id:[0-9]+}").Subrouter()
	t.HandleFunc("", s.getTournament).Methods(http.MethodGet)
	t.HandleFunc("/start", s.start).Methods(http.MethodPost)
	t.HandleFunc("/complete", s.complete).Methods(http.MethodPost)
	t.HandleFunc("/undo-complete", s.undoComplete).Methods(http.MethodPost)
	t.HandleFunc("/undo-start", s.undoStart).Methods(http.MethodPost)
	t.HandleFunc("/players", s.roster).Methods(http.MethodGet)
	t.HandleFunc("/players", s.addPlayer).Methods(http.MethodPost)
	t.HandleFunc("/players/{userID:[0-9]+}", s.removePlayer).Methods(http.MethodDelete)
	t.HandleFunc("/invites", s.pendingInvites).Methods(http.MethodGet)
	t.HandleFunc("/invites", s.sendInvite).Methods(http.MethodPost)
	t.HandleFunc("/invites/{userID:[0-9]+}", s.uninvite).Methods(http.MethodDelete)
	t.HandleFunc("/join", s.join).Methods(http.MethodPost)
	t.HandleFunc("/eliminations", s.eliminate).Methods(http.MethodPost)
	t.HandleFunc("/split-eliminations", s.splitEliminate).Methods(http.MethodPost)
	t.HandleFunc("/rebuys", s.rebuy).Methods(http.MethodPost)
	t.HandleFunc("/ledger", s.ledger).Methods(http.MethodGet)
	t.HandleFunc("/backfill", s.backfill).Methods(http.MethodPost)
	t.HandleFunc("/results", s.results).Methods(http.MethodGet)
	t.HandleFunc("/results", s.buildResults).Methods(http.MethodPost)
	t.HandleFunc("/value", s.value).Methods(http.MethodGet)

	return r
}

func StartServer(cfg *config.Config, handler http.Handler) error {
	port := ":" + cfg.Server.Port
	log.Printf("Server is listening on port%s", port)
	return http.ListenAndServe(port, handler)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// writeError maps engine errors to status codes. Engine messages are returned
// verbatim.
func writeError(w http.ResponseWriter, err error) {
	var domainErr *tournament.Error
	if errors.As(err, &domainErr) {
		writeJSON(w, statusFor(domainErr.Kind), errorResponse{Error: domainErr.Message})
		return
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "The record already exists."})
		return
	}
	log.Printf("Internal error: %v", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
}

func statusFor(kind error) int {
	switch kind {
	case tournament.ErrPermissionDenied:
		return http.StatusForbidden
	case tournament.ErrInvalidState, tournament.ErrConflict:
		return http.StatusConflict
	case tournament.ErrValidation:
		return http.StatusUnprocessableEntity
	case tournament.ErrNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// caller returns the user id from UserHeader. It writes a 401 and returns
// false when the header is missing or malformed.
func caller(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.Header.Get(UserHeader), 10, 64)
	if err != nil || id == 0 {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Missing or invalid " + UserHeader + " header."})
		return 0, false
	}
	return uint(id), true
}

// pathID reads a numeric route variable. The routes only match digits.
func pathID(r *http.Request, name string) uint {
	id, _ := strconv.ParseUint(mux.Vars(r)[name], 10, 64)
	return uint(id)
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) scheduleRefresh(ctx context.Context, tournamentID uint) {
	if s.scheduler == nil {
		return
	}
	if err := s.scheduler.ScheduleRefresh(ctx, tournamentID); err != nil {
		log.Printf("Error scheduling totals refresh for tournament %d: %v", tournamentID, err)
	}
}
