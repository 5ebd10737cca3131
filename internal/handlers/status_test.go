package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type staticAuthInfo struct{}

func (staticAuthInfo) Issuer() string       { return "https://fsnd.test.auth0.com/" }
func (staticAuthInfo) Audience() string     { return "drinks" }
func (staticAuthInfo) Algorithms() []string { return []string{"RS256"} }

type staticKeyCounter int

func (n staticKeyCounter) Len() int { return int(n) }

func newStatusRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/status", NewStatusHandler("1.2.0", staticAuthInfo{}, staticKeyCounter(2)).Status)
	router.GET("/health", Health)
	return router
}

func TestStatusHandler(t *testing.T) {
	// Setup
	router := newStatusRouter()

	// Test
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/status", nil)
	router.ServeHTTP(w, req)

	// Assert status code
	assert.Equal(t, http.StatusOK, w.Code)

	// Parse response
	var response StatusResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)

	// Assert response fields
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, "1.2.0", response.Version)
	assert.GreaterOrEqual(t, response.UptimeSeconds, int64(0))

	// Assert JWT info
	assert.Equal(t, "https://fsnd.test.auth0.com/", response.JWT.Issuer)
	assert.Equal(t, "drinks", response.JWT.Audience)
	assert.Equal(t, []string{"RS256"}, response.JWT.Algorithms)
	assert.Equal(t, 2, response.JWT.CachedKeys)
}

func TestStatusHandler_Uptime(t *testing.T) {
	// Setup
	router := newStatusRouter()

	// Record start time
	start := time.Now()

	// Test
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/status", nil)
	router.ServeHTTP(w, req)

	// Assert status code
	assert.Equal(t, http.StatusOK, w.Code)

	// Parse response
	var response StatusResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)

	// Assert uptime covers the time since the package started
	assert.GreaterOrEqual(t, response.UptimeSeconds, int64(start.Sub(getStartTime()).Seconds()))
}

func TestHealth(t *testing.T) {
	router := newStatusRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
