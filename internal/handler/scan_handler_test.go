package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brandmonitor-go/internal/service"
)

type stubScanService struct {
	ticket    string
	brandID   uint
	issueErr  error
	redeemErr error
}

func (s *stubScanService) IssueTicket(ctx context.Context, brandID uint) (string, error) {
	return s.ticket, s.issueErr
}

func (s *stubScanService) RedeemTicket(ctx context.Context, ticket string) (uint, error) {
	return s.brandID, s.redeemErr
}

func newScanRouter(scanSvc service.ScanService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewScanHandler(scanSvc, &stubConversationService{})
	r.POST("/api/v1/scan/ticket", h.IssueTicket)
	r.GET("/scan/:ticket", h.Handle)
	return r
}

func TestIssueTicketEndpoint(t *testing.T) {
	r := newScanRouter(&stubScanService{ticket: "abc123"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan/ticket?brandId=1", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "abc123", data["ticket"])
}

func TestIssueTicketEndpointRequiresBrand(t *testing.T) {
	r := newScanRouter(&stubScanService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan/ticket", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScanHandshakeRejectsInvalidTicket(t *testing.T) {
	r := newScanRouter(&stubScanService{redeemErr: service.ErrInvalidScanTicket})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/scan/expired", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(http.StatusUnauthorized), resp["code"])
	assert.Nil(t, resp["data"])
}
