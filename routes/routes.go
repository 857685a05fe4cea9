package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/trucolab/truco-league/handlers"
	"github.com/trucolab/truco-league/middleware"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	User       *handlers.UserHandler
	Tournament *handlers.TournamentHandler
	Match      *handlers.MatchHandler
	League     *handlers.LeagueHandler
	WebSocket  *handlers.WebSocketHandler
}

func InitRoutes(h Handlers, jwtSecret []byte) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)

	router.Post("/auth/register", h.Auth.Register)
	router.Post("/auth/login", h.Auth.Login)

	router.Route("/users", func(r chi.Router) {
		r.Get("/search", h.User.SearchHandler)
		r.Get("/{userID}", h.User.GetByIDHandler)
	})

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", h.Tournament.ListHandler)
		r.Get("/{tournamentID}", h.Tournament.GetByIDHandler)
		r.Get("/{tournamentID}/bracket", h.Tournament.GetBracketHandler)
		r.Get("/{tournamentID}/matches", h.Match.ListByTournamentHandler)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/", h.Tournament.CreateHandler)
			r.Patch("/{tournamentID}", h.Tournament.UpdateHandler)
			r.Delete("/{tournamentID}", h.Tournament.DeleteHandler)
			r.Post("/{tournamentID}/teams", h.Tournament.AddTeamHandler)
			r.Put("/{tournamentID}/teams/{teamID}", h.Tournament.UpdateTeamHandler)
			r.Delete("/{tournamentID}/teams/{teamID}", h.Tournament.RemoveTeamHandler)
			r.Post("/{tournamentID}/bracket", h.Tournament.GenerateBracketHandler)
			r.Post("/{tournamentID}/logo", h.Tournament.UploadLogoHandler)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", h.Match.GetByIDHandler)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/", h.Match.CreateHandler)
			r.Post("/{matchID}/score", h.Match.ScoreHandler)
			r.Put("/{matchID}", h.Match.UpdateHandler)
			r.Delete("/{matchID}", h.Match.DeleteHandler)
		})
	})

	router.Route("/leagues", func(r chi.Router) {
		r.Get("/", h.League.ListHandler)
		r.Get("/{leagueID}", h.League.GetByIDHandler)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/", h.League.CreateHandler)
			r.Post("/{leagueID}/tournaments", h.League.AttachTournamentHandler)
		})
	})

	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.SubscribeTournamentHandler)

	return router
}
