package handlers

import (
	"errors"
	"net/http"

	"github.com/trucolab/truco-league/middleware"
	"github.com/trucolab/truco-league/models"
	"github.com/trucolab/truco-league/services"
)

const maxLogoUploadSize = 5 << 20 // 5 MB

type TournamentHandler struct {
	tournamentService services.TournamentService
	teamService       services.TeamService
	bracketService    services.BracketService
	standingsService  services.StandingsService
}

func NewTournamentHandler(
	tournamentService services.TournamentService,
	teamService services.TeamService,
	bracketService services.BracketService,
	standingsService services.StandingsService,
) *TournamentHandler {
	return &TournamentHandler{
		tournamentService: tournamentService,
		teamService:       teamService,
		bracketService:    bracketService,
		standingsService:  standingsService,
	}
}

// CreateHandler handles POST /tournaments.
func (h *TournamentHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input services.CreateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.CreateTournament(r.Context(), userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByIDHandler handles GET /tournaments/{tournamentID}.
func (h *TournamentHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.GetTournamentByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler handles GET /tournaments with an optional ?status= filter.
func (h *TournamentHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	var status *models.TournamentStatus
	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		s := models.TournamentStatus(statusStr)
		status = &s
	}

	tournaments, err := h.tournamentService.ListTournaments(r.Context(), status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateHandler handles PATCH /tournaments/{tournamentID}.
func (h *TournamentHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.UpdateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.UpdateTournament(r.Context(), id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteHandler handles DELETE /tournaments/{tournamentID}.
func (h *TournamentHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.tournamentService.DeleteTournament(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "tournament deleted"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AddTeamHandler handles POST /tournaments/{tournamentID}/teams.
func (h *TournamentHandler) AddTeamHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.CreateTeamInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.teamService.AddTeamToTournament(r.Context(), id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateTeamHandler handles PUT /tournaments/{tournamentID}/teams/{teamID}.
// The team keeps its identifier; name and roster are replaced wholesale.
func (h *TournamentHandler) UpdateTeamHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	teamID, err := getUUIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.CreateTeamInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.teamService.UpdateTeamInTournament(r.Context(), id, teamID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RemoveTeamHandler handles DELETE /tournaments/{tournamentID}/teams/{teamID}.
func (h *TournamentHandler) RemoveTeamHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	teamID, err := getUUIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.teamService.RemoveTeamFromTournament(r.Context(), id, teamID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "team removed"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type generateBracketInput struct {
	Shuffle bool `json:"shuffle"`
}

// GenerateBracketHandler handles POST /tournaments/{tournamentID}/bracket.
// Calling it again after the quarterfinals exist returns the existing round.
func (h *TournamentHandler) GenerateBracketHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	input := generateBracketInput{Shuffle: true}
	if r.ContentLength > 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}

	matches, err := h.bracketService.GenerateQuarterfinals(r.Context(), id, input.Shuffle)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetBracketHandler handles GET /tournaments/{tournamentID}/bracket.
func (h *TournamentHandler) GetBracketHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	bracket, err := h.standingsService.GetBracket(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"bracket": bracket}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UploadLogoHandler handles POST /tournaments/{tournamentID}/logo with a
// multipart form carrying the image under the "logo" field.
func (h *TournamentHandler) UploadLogoHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxLogoUploadSize)
	if err := r.ParseMultipartForm(maxLogoUploadSize); err != nil {
		badRequestResponse(w, r, errors.New("request body is not a valid multipart form"))
		return
	}

	file, header, err := r.FormFile("logo")
	if err != nil {
		badRequestResponse(w, r, errors.New("missing file field 'logo'"))
		return
	}
	defer file.Close()

	tournament, err := h.tournamentService.UploadLogo(r.Context(), id, header.Header.Get("Content-Type"), file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
