package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brandmonitor-go/internal/model"
	"brandmonitor-go/internal/repository"
	"brandmonitor-go/internal/service"
)

type stubConversationService struct {
	startResult       *service.StartConversationResult
	continueResult    *service.ContinueConversationResult
	err               error
	lastFilter        repository.ConversationFilter
	lastDashboardDays int
}

func (s *stubConversationService) StartConversation(ctx context.Context, req *service.StartConversationRequest) (*service.StartConversationResult, error) {
	return s.startResult, s.err
}

func (s *stubConversationService) ContinueConversation(ctx context.Context, conversationID uint, req *service.ContinueConversationRequest) (*service.ContinueConversationResult, error) {
	return s.continueResult, s.err
}

func (s *stubConversationService) DetectMentions(brandID uint, text string) ([]service.DetectedMention, error) {
	return nil, s.err
}

func (s *stubConversationService) GetConversations(filter repository.ConversationFilter) ([]model.Conversation, int64, error) {
	s.lastFilter = filter
	return nil, 0, s.err
}

func (s *stubConversationService) GetConversationDetails(conversationID uint) (*service.ConversationDetails, error) {
	return nil, s.err
}

func (s *stubConversationService) GetStatistics(ctx context.Context, brandID uint, days int) (*repository.ConversationStatistics, error) {
	return nil, s.err
}

func (s *stubConversationService) GetDashboardData(ctx context.Context, brandID uint, days int) (*service.DashboardData, error) {
	s.lastDashboardDays = days
	return nil, s.err
}

func (s *stubConversationService) SearchConversations(ctx context.Context, brandID uint, term string, limit int) ([]model.ConversationSearchHit, error) {
	return nil, s.err
}

func (s *stubConversationService) DeactivateConversation(conversationID uint) error {
	return s.err
}

func newTestRouter(svc service.ConversationService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewConversationHandler(svc)
	r.POST("/api/v1/conversations", h.StartConversation)
	r.POST("/api/v1/conversations/:id/turns", h.ContinueConversation)
	r.GET("/api/v1/conversations", h.GetConversations)
	r.DELETE("/api/v1/conversations/:id", h.DeactivateConversation)
	return r
}

func TestStartConversationEndpoint(t *testing.T) {
	svc := &stubConversationService{
		startResult: &service.StartConversationResult{
			Conversation: &model.Conversation{ID: 1, ConversationType: model.ConversationTypeQueryResponse},
			Turn:         &model.ConversationTurn{ID: 1, TurnNumber: 1},
		},
	}
	r := newTestRouter(svc)

	body := `{"brandId":1,"aiModelId":1,"initialQuery":"q","aiResponse":"a"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(http.StatusOK), resp["code"])
	assert.Equal(t, "success", resp["message"])
}

func TestStartConversationEndpointRejectsMissingFields(t *testing.T) {
	r := newTestRouter(&stubConversationService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations", strings.NewReader(`{"brandId":1}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContinueConversationEndpointMapsNotFound(t *testing.T) {
	r := newTestRouter(&stubConversationService{err: service.ErrConversationNotFound})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations/42/turns", strings.NewReader(`{"userInput":"u","aiResponse":"a"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestContinueConversationEndpointRejectsBadID(t *testing.T) {
	r := newTestRouter(&stubConversationService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations/abc/turns", strings.NewReader(`{"userInput":"u","aiResponse":"a"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetConversationsEndpointParsesFilter(t *testing.T) {
	svc := &stubConversationService{}
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations?brandId=3&type=comparison&active=true&hasMentions=true&page=2&size=5", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.lastFilter.BrandID)
	assert.Equal(t, uint(3), *svc.lastFilter.BrandID)
	require.NotNil(t, svc.lastFilter.ConversationType)
	assert.Equal(t, model.ConversationTypeComparison, *svc.lastFilter.ConversationType)
	require.NotNil(t, svc.lastFilter.IsActive)
	assert.True(t, *svc.lastFilter.IsActive)
	require.NotNil(t, svc.lastFilter.HasMentions)
	assert.True(t, *svc.lastFilter.HasMentions)
	assert.Equal(t, 2, svc.lastFilter.Page)
	assert.Equal(t, 5, svc.lastFilter.Size)
}

func TestDeactivateConversationEndpoint(t *testing.T) {
	r := newTestRouter(&stubConversationService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/conversations/7", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
