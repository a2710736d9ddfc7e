package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/chinmaya-sahoo/Farr/internal/auth"
	"github.com/chinmaya-sahoo/Farr/internal/domain"
)

type mockUsers struct {
	users map[string]*domain.User
}

func (m *mockUsers) Get(ctx context.Context, id string) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (m *mockUsers) List(ctx context.Context) ([]domain.User, error) {
	out := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

func (m *mockUsers) SetBanned(ctx context.Context, id string, banned bool) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	u.IsBanned = banned
	copied := *u
	return &copied, nil
}

func (m *mockUsers) MonthlySignups(ctx context.Context, since time.Time) ([]domain.MonthlyCount, error) {
	return nil, nil
}

func (m *mockUsers) CreditCoins(ctx context.Context, id string, amount int64) (int64, error) {
	u := m.users[id]
	u.Coins += amount
	return u.Coins, nil
}

func (m *mockUsers) DebitCoinsFloor(ctx context.Context, id string, amount int64) (int64, error) {
	u := m.users[id]
	u.Coins -= amount
	if u.Coins < 0 {
		u.Coins = 0
	}
	return u.Coins, nil
}

func (m *mockUsers) DebitCoinsChecked(ctx context.Context, id string, amount int64) (int64, error) {
	u := m.users[id]
	if u.Coins < amount {
		return u.Coins, domain.ErrInsufficientCoins
	}
	u.Coins -= amount
	return u.Coins, nil
}

func (m *mockUsers) CreditCoinsAll(ctx context.Context, amount int64) error { return nil }

func (m *mockUsers) DebitCoinsFloorAll(ctx context.Context, amount int64) error { return nil }

type mockActivities struct {
	records []domain.ActivityRecord
}

func (m *mockActivities) Insert(ctx context.Context, record domain.ActivityRecord) error {
	m.records = append(m.records, record)
	return nil
}

func (m *mockActivities) ListByUser(ctx context.Context, userID string) ([]domain.ActivityRecord, error) {
	out := make([]domain.ActivityRecord, 0)
	for _, r := range m.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockActivities) DailyCounts(ctx context.Context, since time.Time) ([]domain.DailyCount, error) {
	return nil, nil
}

type mockRecovery struct {
	balance int64
	records []domain.ActivityRecord
	err     error
}

func (m *mockRecovery) RecoverDays(ctx context.Context, userID string, n int) (int64, []domain.ActivityRecord, error) {
	if m.err != nil {
		return 0, nil, m.err
	}
	return m.balance, m.records, nil
}

type fixture struct {
	router     chi.Router
	users      *mockUsers
	activities *mockActivities
	recovery   *mockRecovery
}

func newFixture(users ...*domain.User) *fixture {
	mu := &mockUsers{users: map[string]*domain.User{}}
	for _, u := range users {
		mu.users[u.ID] = u
	}
	ma := &mockActivities{}
	mr := &mockRecovery{}

	handler := NewHandler(domain.NewService(mu, ma, mr))
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	return &fixture{router: router, users: mu, activities: ma, recovery: mr}
}

func (f *fixture) do(t *testing.T, method, target string, body interface{}, claims *auth.Claims) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if claims != nil {
		req = req.WithContext(auth.WithClaims(req.Context(), claims))
	}

	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func userClaims(id string, role domain.Role) *auth.Claims {
	return &auth.Claims{UserID: id, Role: role, ExpiresAt: time.Now().Add(time.Hour)}
}

func TestProgressSuccess(t *testing.T) {
	f := newFixture(&domain.User{ID: "u1", Coins: 4})
	f.activities.records = []domain.ActivityRecord{
		{UserID: "u1", OccurredAt: time.Date(2025, time.March, 9, 8, 0, 0, 0, time.UTC), CaloriesBurned: 120},
		{UserID: "u1", OccurredAt: time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC), CaloriesBurned: 80},
	}

	rr := f.do(t, http.MethodGet, "/v1/progress", nil, userClaims("u1", domain.RoleUser))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var report domain.ProgressReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	require.Equal(t, 2, report.Streaks.CurrentStreak)
	require.Equal(t, []domain.Badge{domain.BadgeWelcome}, report.Badges)
	require.Equal(t, 200.0, report.TotalCalories)
	require.Equal(t, int64(4), report.Coins)
}

func TestProgressRequiresToken(t *testing.T) {
	f := newFixture(&domain.User{ID: "u1"})

	rr := f.do(t, http.MethodGet, "/v1/progress", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestProgressBannedUserRejected(t *testing.T) {
	f := newFixture(&domain.User{ID: "u1", IsBanned: true})

	rr := f.do(t, http.MethodGet, "/v1/progress", nil, userClaims("u1", domain.RoleUser))
	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestLogActivityValidationFailure(t *testing.T) {
	f := newFixture(&domain.User{ID: "u1"})

	rr := f.do(t, http.MethodPost, "/v1/activities", LogActivityRequest{
		ExerciseType: "Run", Duration: 0, DurationUnit: "minutes",
	}, userClaims("u1", domain.RoleUser))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Empty(t, f.activities.records)
}

func TestLogActivitySuccess(t *testing.T) {
	f := newFixture(&domain.User{ID: "u1"})

	rr := f.do(t, http.MethodPost, "/v1/activities", LogActivityRequest{
		ExerciseType: "Run", Duration: 30, DurationUnit: "minutes", CaloriesBurned: 250,
	}, userClaims("u1", domain.RoleUser))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var view ActivityView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	require.Equal(t, "u1", view.UserID)
	require.NotEmpty(t, view.ActivityID)
	require.False(t, view.Recovered)
	require.Len(t, f.activities.records, 1)
}

func TestRecoverDaysSuccess(t *testing.T) {
	f := newFixture(&domain.User{ID: "u1", Coins: 10})
	anchor := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	f.recovery.balance = 7
	f.recovery.records = domain.SynthesizeRecovery("u1", anchor, 3, anchor)

	rr := f.do(t, http.MethodPost, "/v1/recover", RecoverRequest{DaysToRecover: 3}, userClaims("u1", domain.RoleUser))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp RecoverResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, int64(7), resp.Coins)
	require.Equal(t, 3, resp.RecoveredDays)
	require.Len(t, resp.Recovered, 3)
	for _, item := range resp.Recovered {
		require.True(t, item.Recovered)
	}
}

func TestRecoverDaysInsufficientCoins(t *testing.T) {
	f := newFixture(&domain.User{ID: "u1", Coins: 1})
	f.recovery.err = domain.ErrInsufficientCoins

	rr := f.do(t, http.MethodPost, "/v1/recover", RecoverRequest{DaysToRecover: 5}, userClaims("u1", domain.RoleUser))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	require.Equal(t, "not_enough_coins", payload["type"])
}

func TestRecoverDaysRejectsNonPositive(t *testing.T) {
	f := newFixture(&domain.User{ID: "u1", Coins: 10})

	rr := f.do(t, http.MethodPost, "/v1/recover", RecoverRequest{DaysToRecover: 0}, userClaims("u1", domain.RoleUser))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAdjustCoinsForbiddenForNonAdmin(t *testing.T) {
	f := newFixture(&domain.User{ID: "u1", Coins: 5})

	rr := f.do(t, http.MethodPost, "/v1/users/u1/coins", CoinRequest{Action: "add", Amount: 5}, userClaims("u1", domain.RoleUser))
	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestAdjustCoinsSpend(t *testing.T) {
	f := newFixture(&domain.User{ID: "u1", Coins: 5})

	rr := f.do(t, http.MethodPost, "/v1/users/u1/coins", CoinRequest{Action: "spend", Amount: 3}, userClaims("u1", domain.RoleUser))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp CoinResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, int64(2), resp.Coins)
}

func TestAdminCoinsTargeted(t *testing.T) {
	f := newFixture(&domain.User{ID: "u1", Coins: 0}, &domain.User{ID: "admin", Role: domain.RoleAdmin})

	rr := f.do(t, http.MethodPost, "/v1/admin/coins", AdminCoinRequest{
		Action: "add", Amount: 10, TargetUserID: "u1",
	}, userClaims("admin", domain.RoleAdmin))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp CoinResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, int64(10), resp.Coins)
}

func TestAdminOverviewForbiddenForUsers(t *testing.T) {
	f := newFixture(&domain.User{ID: "u1"})

	rr := f.do(t, http.MethodGet, "/v1/admin/users", nil, userClaims("u1", domain.RoleUser))
	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestSetBannedByAdmin(t *testing.T) {
	f := newFixture(&domain.User{ID: "u1"}, &domain.User{ID: "admin", Role: domain.RoleAdmin})

	rr := f.do(t, http.MethodPatch, "/v1/admin/users/u1/ban", BanRequest{Banned: true}, userClaims("admin", domain.RoleAdmin))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var view UserView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	require.True(t, view.IsBanned)
	require.True(t, f.users.users["u1"].IsBanned)
}

func TestSetBannedUnknownUser(t *testing.T) {
	f := newFixture(&domain.User{ID: "admin", Role: domain.RoleAdmin})

	rr := f.do(t, http.MethodPatch, "/v1/admin/users/ghost/ban", BanRequest{Banned: true}, userClaims("admin", domain.RoleAdmin))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHealthzNeedsNoAuth(t *testing.T) {
	f := newFixture()

	rr := f.do(t, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
}
