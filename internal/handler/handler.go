package handlers

import (
	"log/slog"
	"net/http"

	"communityBoard/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	AuthService       service.AuthService
	Sessions          service.SessionManager
	FeedService       service.FeedService
	PostService       service.PostService
	SearchService     service.SearchService
	AttendanceService service.AttendanceService
	ProfileService    service.ProfileService
	StatsService      service.StatsService
	Validate          *validator.Validate
	Logger            *slog.Logger
}

func NewHandlers(service *service.Service, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		AuthService:       service.Auth,
		Sessions:          service.Sessions,
		FeedService:       service.Feed,
		PostService:       service.Post,
		SearchService:     service.Search,
		AttendanceService: service.Attendance,
		ProfileService:    service.Profile,
		StatsService:      service.Stats,
		Validate:          validator.New(),
		Logger:            logger,
	}
}

// Router registers every endpoint. Authentication is applied by the caller.
func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.HealthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/me", h.GetCurrentUser).Methods(http.MethodGet)
	api.HandleFunc("/me/attendance", h.GetAttendance).Methods(http.MethodGet)

	api.HandleFunc("/feed", h.GetFeed).Methods(http.MethodGet)
	api.HandleFunc("/feed/more", h.LoadMore).Methods(http.MethodPost)

	api.HandleFunc("/posts/{date}/{postID}/availability", h.ToggleAvailability).Methods(http.MethodPatch)
	api.HandleFunc("/posts/{date}/{postID}/volunteer", h.ToggleVolunteer).Methods(http.MethodPatch)
	api.HandleFunc("/posts/{date}/{postID}", h.DeletePost).Methods(http.MethodDelete)

	api.HandleFunc("/intents/failed", h.GetFailedIntents).Methods(http.MethodGet)
	api.HandleFunc("/intents/{intentID}/retry", h.RetryIntent).Methods(http.MethodPost)

	api.HandleFunc("/search/users", h.SearchUsers).Methods(http.MethodGet)
	api.HandleFunc("/search/users/{userID}/posts", h.GetUserPosts).Methods(http.MethodGet)

	api.HandleFunc("/session", h.Logout).Methods(http.MethodDelete)

	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, "Method not allowed", http.StatusMethodNotAllowed)
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, "Не найдено", http.StatusNotFound)
	})

	return r
}
