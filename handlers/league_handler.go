package handlers

import (
	"net/http"

	"github.com/trucolab/truco-league/middleware"
	"github.com/trucolab/truco-league/services"
)

type LeagueHandler struct {
	leagueService services.LeagueService
}

func NewLeagueHandler(leagueService services.LeagueService) *LeagueHandler {
	return &LeagueHandler{leagueService: leagueService}
}

// CreateHandler handles POST /leagues.
func (h *LeagueHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input services.CreateLeagueInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	league, err := h.leagueService.CreateLeague(r.Context(), userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"league": league}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByIDHandler handles GET /leagues/{leagueID}.
func (h *LeagueHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "leagueID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	league, err := h.leagueService.GetLeagueByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"league": league}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler handles GET /leagues.
func (h *LeagueHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	leagues, err := h.leagueService.ListLeagues(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"leagues": leagues}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type attachTournamentInput struct {
	TournamentID int `json:"tournament_id"`
}

// AttachTournamentHandler handles POST /leagues/{leagueID}/tournaments.
// Attaching an already linked tournament is a no-op.
func (h *LeagueHandler) AttachTournamentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "leagueID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input attachTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	league, err := h.leagueService.AttachTournament(r.Context(), id, input.TournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"league": league}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
