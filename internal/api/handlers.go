// Package api exposes the HTTP handlers for the Farr backend.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chinmaya-sahoo/Farr/internal/auth"
	"github.com/chinmaya-sahoo/Farr/internal/domain"
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires endpoints onto the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", healthz)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/activities", h.logActivity)
		r.Get("/activities", h.listActivities)
		r.Get("/progress", h.progress)
		r.Post("/recover", h.recoverDays)
		r.Post("/users/{userID}/coins", h.adjustCoins)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/users", h.adminOverview)
			r.Post("/coins", h.adminCoins)
			r.Patch("/users/{userID}/ban", h.setBanned)
		})
	})
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func principal(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return domain.Principal{}, false
	}
	return claims.Principal(), true
}

// LogActivityRequest is the payload for POST /v1/activities.
type LogActivityRequest struct {
	ExerciseType   string    `json:"exercise_type"`
	Duration       float64   `json:"duration"`
	DurationUnit   string    `json:"duration_unit"`
	CaloriesBurned float64   `json:"calories_burned"`
	ImageURL       string    `json:"image_url"`
	Date           time.Time `json:"date"`
}

// Validate ensures request correctness before the service runs.
func (r LogActivityRequest) Validate() error {
	if strings.TrimSpace(r.ExerciseType) == "" {
		return errors.New("exercise_type is required")
	}
	if r.Duration <= 0 {
		return errors.New("duration must be > 0")
	}
	switch domain.DurationUnit(r.DurationUnit) {
	case domain.DurationMinutes, domain.DurationHours, domain.DurationNumber:
	default:
		return errors.New("duration_unit must be one of minutes, hours, number")
	}
	if r.CaloriesBurned < 0 {
		return errors.New("calories_burned must be >= 0")
	}
	return nil
}

func (h *Handler) logActivity(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req LogActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	record, err := h.service.LogActivity(r.Context(), p, domain.NewActivityInput{
		UserID:         p.UserID,
		ExerciseType:   req.ExerciseType,
		Duration:       req.Duration,
		DurationUnit:   domain.DurationUnit(req.DurationUnit),
		CaloriesBurned: req.CaloriesBurned,
		ImageURL:       req.ImageURL,
		OccurredAt:     req.Date,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toActivityView(*record))
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = p.UserID
	}

	records, err := h.service.ListActivities(r.Context(), p, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]ActivityView, 0, len(records))
	for _, rec := range records {
		items = append(items, toActivityView(rec))
	}
	writeJSON(w, http.StatusOK, ListActivitiesResponse{Items: items})
}

func (h *Handler) progress(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = p.UserID
	}

	report, err := h.service.Progress(r.Context(), p, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// RecoverRequest is the payload for POST /v1/recover.
type RecoverRequest struct {
	DaysToRecover int `json:"days_to_recover"`
}

func (h *Handler) recoverDays(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req RecoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if req.DaysToRecover <= 0 {
		writeError(w, http.StatusBadRequest, "validation_failed", "days_to_recover must be > 0")
		return
	}

	result, err := h.service.RecoverDays(r.Context(), p, p.UserID, req.DaysToRecover)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]ActivityView, 0, len(result.RecoveredItems))
	for _, rec := range result.RecoveredItems {
		items = append(items, toActivityView(rec))
	}
	writeJSON(w, http.StatusOK, RecoverResponse{
		Coins:         result.Coins,
		RecoveredDays: result.RecoveredDays,
		Recovered:     items,
	})
}

// CoinRequest is the payload for POST /v1/users/{userID}/coins.
type CoinRequest struct {
	Action string `json:"action"`
	Amount int64  `json:"amount"`
}

func (h *Handler) adjustCoins(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req CoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	userID := chi.URLParam(r, "userID")
	balance, err := h.service.AdjustCoins(r.Context(), p, userID, domain.CoinAction(req.Action), req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CoinResponse{UserID: userID, Coins: balance})
}

func (h *Handler) adminOverview(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	overview, err := h.service.Overview(r.Context(), p)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	users := make([]UserView, 0, len(overview.Users))
	for _, u := range overview.Users {
		users = append(users, toUserView(u))
	}
	writeJSON(w, http.StatusOK, AdminOverviewResponse{
		Users:          users,
		DailyActivity:  overview.DailyActivity,
		MonthlySignups: overview.MonthlySignups,
	})
}

// AdminCoinRequest is the payload for POST /v1/admin/coins. An empty
// target applies the adjustment to every account.
type AdminCoinRequest struct {
	Action       string `json:"action"`
	Amount       int64  `json:"amount"`
	TargetUserID string `json:"target_user_id"`
}

func (h *Handler) adminCoins(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req AdminCoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	if req.TargetUserID != "" {
		balance, err := h.service.AdjustCoins(r.Context(), p, req.TargetUserID, domain.CoinAction(req.Action), req.Amount)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, CoinResponse{UserID: req.TargetUserID, Coins: balance})
		return
	}

	if err := h.service.AdjustCoinsAll(r.Context(), p, domain.CoinAction(req.Action), req.Amount); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "applied"})
}

// BanRequest is the payload for PATCH /v1/admin/users/{userID}/ban.
type BanRequest struct {
	Banned bool `json:"banned"`
}

func (h *Handler) setBanned(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req BanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	userID := chi.URLParam(r, "userID")
	user, err := h.service.SetBanned(r.Context(), p, userID, req.Banned)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(*user))
}

// ActivityView exposes one activity record.
type ActivityView struct {
	ActivityID     string    `json:"activity_id"`
	UserID         string    `json:"user_id"`
	ExerciseType   string    `json:"exercise_type"`
	Duration       float64   `json:"duration"`
	DurationUnit   string    `json:"duration_unit"`
	CaloriesBurned float64   `json:"calories_burned"`
	ImageURL       string    `json:"image_url,omitempty"`
	Date           time.Time `json:"date"`
	Recovered      bool      `json:"recovered"`
}

// ListActivitiesResponse packages list results.
type ListActivitiesResponse struct {
	Items []ActivityView `json:"items"`
}

// RecoverResponse reports a completed recovery.
type RecoverResponse struct {
	Coins         int64          `json:"coins"`
	RecoveredDays int            `json:"recovered_days"`
	Recovered     []ActivityView `json:"recovered_activities"`
}

// CoinResponse reports a ledger balance after an adjustment.
type CoinResponse struct {
	UserID string `json:"user_id"`
	Coins  int64  `json:"coins"`
}

// UserView exposes an account without credentials.
type UserView struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Coins     int64     `json:"coins"`
	IsBanned  bool      `json:"is_banned"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// AdminOverviewResponse packages the moderation dashboard.
type AdminOverviewResponse struct {
	Users          []UserView            `json:"users"`
	DailyActivity  []domain.DailyCount   `json:"daily_activity"`
	MonthlySignups []domain.MonthlyCount `json:"monthly_signups"`
}

func toActivityView(rec domain.ActivityRecord) ActivityView {
	return ActivityView{
		ActivityID:     rec.ID,
		UserID:         rec.UserID,
		ExerciseType:   rec.ExerciseType,
		Duration:       rec.Duration,
		DurationUnit:   string(rec.DurationUnit),
		CaloriesBurned: rec.CaloriesBurned,
		ImageURL:       rec.ImageURL,
		Date:           rec.OccurredAt,
		Recovered:      rec.Recovered(),
	}
}

func toUserView(u domain.User) UserView {
	return UserView{
		UserID:    u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Coins:     u.Coins,
		IsBanned:  u.IsBanned,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

// writeDomainError maps the domain error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "not_found", "user not found")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "access denied")
	case errors.Is(err, domain.ErrInsufficientCoins):
		writeError(w, http.StatusBadRequest, "not_enough_coins", "not enough coins")
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
