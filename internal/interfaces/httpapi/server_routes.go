package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerLeaderboardRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("POST /v1/leaderboards", handler.CreateLeaderboard)
	mux.HandleFunc("GET /v1/leaderboards", handler.ListLeaderboards)
	mux.HandleFunc("GET /v1/leaderboards/{leaderboardID}", handler.GetLeaderboard)
	mux.HandleFunc("GET /v1/leaderboards/{leaderboardID}/players/{playerID}", handler.GetPlayerContext)
	mux.HandleFunc("POST /v1/leaderboards/{leaderboardID}/players", handler.RegisterPlayer)
}

func registerSpinRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("POST /v1/spins", handler.RecordSpin)
}
