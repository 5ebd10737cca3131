package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shakthivel10/FSND/internal/middleware"
	"go.uber.org/zap"
)

var startTime = time.Now()

// getStartTime returns the start time of the application
func getStartTime() time.Time {
	return startTime
}

// AuthInfo describes the tokens the service accepts.
type AuthInfo interface {
	Issuer() string
	Audience() string
	Algorithms() []string
}

// KeyCounter reports how many signing keys are cached.
type KeyCounter interface {
	Len() int
}

// StatusResponse represents the status endpoint response
type StatusResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	Version       string  `json:"version"`
	JWT           JWTInfo `json:"jwt"`
}

// JWTInfo contains JWT verification settings
type JWTInfo struct {
	Issuer     string   `json:"issuer"`
	Audience   string   `json:"audience"`
	Algorithms []string `json:"algorithms"`
	CachedKeys int      `json:"cached_keys"`
}

type StatusHandler struct {
	version string
	auth    AuthInfo
	keys    KeyCounter
}

func NewStatusHandler(version string, auth AuthInfo, keys KeyCounter) *StatusHandler {
	return &StatusHandler{version: version, auth: auth, keys: keys}
}

// Status handles the status endpoint
func (h *StatusHandler) Status(c *gin.Context) {
	logger := middleware.GetLogger(c)
	response := StatusResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(getStartTime()).Seconds()),
		Version:       h.version,
		JWT: JWTInfo{
			Issuer:     h.auth.Issuer(),
			Audience:   h.auth.Audience(),
			Algorithms: h.auth.Algorithms(),
			CachedKeys: h.keys.Len(),
		},
	}
	logger.Info("Status endpoint checked", zap.Int64("uptime_seconds", response.UptimeSeconds))
	c.JSON(http.StatusOK, response)
}

// Health answers liveness probes.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
