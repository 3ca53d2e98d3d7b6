package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"questboard/internal/middleware"
	"questboard/internal/notify"
	"questboard/internal/repository"
	"questboard/internal/service"
	"questboard/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminID   = int64(1)
	creatorID = int64(100)
	heroID    = int64(200)
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewMemory()
	hub := notify.NewHub()
	locks := service.NewQuestLocks()
	ledger := service.NewLedgerService(store, service.LedgerConfig{PlatformAccountID: 0}, hub)
	quests := service.NewQuestService(store, ledger, locks, hub, service.Catalog{})
	require.NoError(t, ledger.EnsurePlatformAccount(context.Background()))

	a := auth.NewTelegramAuth("", true)
	authz := middleware.NewAuthorization([]int64{adminID})

	r := gin.New()
	v1 := r.Group("/api/v1")
	NewUserRoutes(v1, service.NewUserService(store), a)
	NewLedgerRoutes(v1, ledger, a, authz)
	NewQuestRoutes(v1, quests, a)
	NewApplicationRoutes(v1, service.NewApplicationService(store, quests, locks), a)
	NewSubmissionRoutes(v1, service.NewSubmissionService(store, quests, locks), a)
	NewNotificationRoutes(v1, hub, a)
	return r
}

func initData(telegramID int64) string {
	v := url.Values{}
	v.Set("user", fmt.Sprintf(`{"id":%d,"username":"user%d"}`, telegramID, telegramID))
	v.Set("auth_date", "1700000000")
	v.Set("hash", "debug")
	return v.Encode()
}

func call(t *testing.T, r http.Handler, as int64, method, path string, body any, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Telegram "+initData(as))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if out != nil && w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w.Code
}

func TestQuestFlow(t *testing.T) {
	r := newTestRouter(t)

	for _, id := range []int64{creatorID, heroID} {
		require.Equal(t, http.StatusCreated, call(t, r, id, http.MethodPost, "/users/", gin.H{"handle": "h"}, nil))
	}
	require.Equal(t, http.StatusConflict, call(t, r, creatorID, http.MethodPost, "/users/", gin.H{"handle": "h"}, nil))

	// purchases are admin only
	require.Equal(t, http.StatusForbidden, call(t, r, creatorID, http.MethodPost, "/admin/users/100/purchase", gin.H{"amount": 1000}, nil))
	require.Equal(t, http.StatusCreated, call(t, r, adminID, http.MethodPost, "/admin/users/100/purchase", gin.H{"amount": 1000, "receipt_ref": "r1"}, nil))

	var q questResponse
	status := call(t, r, creatorID, http.MethodPost, "/quests", gin.H{
		"title":           "Slay the dragon",
		"category":        "combat",
		"difficulty_tier": "initiate",
		"gold_budget":     500,
	}, &q)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, int64(25), q.Commission)
	assert.Equal(t, int64(475), q.GoldReward)
	assert.Equal(t, "open", q.Status)

	var balance struct {
		GoldBalance int64 `json:"gold_balance"`
	}
	require.Equal(t, http.StatusOK, call(t, r, creatorID, http.MethodGet, "/ledger/balance", nil, &balance))
	assert.Equal(t, int64(500), balance.GoldBalance)

	var app applicationResponse
	require.Equal(t, http.StatusCreated, call(t, r, heroID, http.MethodPost, "/quests/"+q.QuestID.String()+"/applications", nil, &app))
	require.Equal(t, http.StatusForbidden, call(t, r, heroID, http.MethodPost, "/applications/"+app.ApplicationID.String()+"/review", gin.H{"decision": "approve"}, nil))
	require.Equal(t, http.StatusOK, call(t, r, creatorID, http.MethodPost, "/applications/"+app.ApplicationID.String()+"/review", gin.H{"decision": "approve"}, &app))
	assert.Equal(t, "approved", app.Status)

	require.Equal(t, http.StatusOK, call(t, r, creatorID, http.MethodGet, "/quests/"+q.QuestID.String(), nil, &q))
	assert.Equal(t, "in-progress", q.Status)

	var sub submissionResponse
	require.Equal(t, http.StatusCreated, call(t, r, heroID, http.MethodPost, "/quests/"+q.QuestID.String()+"/submissions", gin.H{"text": "done"}, &sub))
	require.NotNil(t, sub.ParticipantID)
	assert.Equal(t, heroID, *sub.ParticipantID)
	assert.Equal(t, 1, sub.SequenceNumber)

	require.Equal(t, http.StatusOK, call(t, r, creatorID, http.MethodPost, "/submissions/"+sub.SubmissionID.String()+"/review", gin.H{"decision": "approve"}, &sub))
	assert.Equal(t, "approved", sub.Status)

	require.Equal(t, http.StatusOK, call(t, r, heroID, http.MethodGet, "/ledger/balance", nil, &balance))
	assert.Equal(t, int64(475), balance.GoldBalance)

	var txns []transactionResponse
	require.Equal(t, http.StatusOK, call(t, r, heroID, http.MethodGet, "/ledger/transactions?limit=10", nil, &txns))
	require.Len(t, txns, 1)
	assert.Equal(t, "REWARD", txns[0].Type)

	var rec reconciliationResponse
	require.Equal(t, http.StatusOK, call(t, r, adminID, http.MethodGet, "/admin/users/200/reconcile", nil, &rec))
	assert.True(t, rec.Consistent)
}

func TestQuestErrors(t *testing.T) {
	r := newTestRouter(t)
	require.Equal(t, http.StatusCreated, call(t, r, creatorID, http.MethodPost, "/users/", gin.H{"handle": "h"}, nil))
	require.Equal(t, http.StatusCreated, call(t, r, adminID, http.MethodPost, "/admin/users/100/purchase", gin.H{"amount": 300}, nil))

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{
			name:       "out of tier range",
			method:     http.MethodPost,
			path:       "/quests",
			body:       gin.H{"title": "t", "category": "combat", "difficulty_tier": "initiate", "gold_budget": 50},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "OUT_OF_TIER_RANGE",
		},
		{
			name:       "insufficient balance",
			method:     http.MethodPost,
			path:       "/quests",
			body:       gin.H{"title": "t", "category": "combat", "difficulty_tier": "initiate", "gold_budget": 500},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "INSUFFICIENT_BALANCE",
		},
		{
			name:       "unknown tier",
			method:     http.MethodPost,
			path:       "/quests",
			body:       gin.H{"title": "t", "category": "combat", "difficulty_tier": "legendary", "gold_budget": 500},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_TIER",
		},
		{
			name:       "unknown quest",
			method:     http.MethodGet,
			path:       "/quests/6f1c1d3e-8a57-4a43-9a55-0c2c9f8e1b11",
			wantStatus: http.StatusNotFound,
			wantCode:   "QUEST_NOT_FOUND",
		},
		{
			name:       "cashout over balance",
			method:     http.MethodPost,
			path:       "/ledger/cashout",
			body:       gin.H{"amount": 301},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "INSUFFICIENT_BALANCE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp struct {
				Code string `json:"code"`
			}
			status := call(t, r, creatorID, tt.method, tt.path, tt.body, &resp)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, resp.Code)
		})
	}

	assert.Equal(t, http.StatusBadRequest, call(t, r, creatorID, http.MethodGet, "/quests/not-a-uuid", nil, nil))
	assert.Equal(t, http.StatusBadRequest, call(t, r, creatorID, http.MethodGet, "/quests?limit=-1", nil, nil))
}

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "business error", err: service.ErrLockedAfterApproval, wantStatus: http.StatusConflict},
		{name: "wrapped business error", err: fmt.Errorf("edit: %w", service.ErrNotAParticipant), wantStatus: http.StatusForbidden},
		{name: "infrastructure error", err: errors.New("connection reset"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondError(c, "op", tt.err)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
