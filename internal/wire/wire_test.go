package wire

import (
	"WhatsInbox/internal/api/config"
	"WhatsInbox/internal/model"
	"WhatsInbox/internal/repository"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Port: 6002, FrontendURL: "http://localhost:5173"},
		Business:  config.BusinessConfig{Phone: "918329446654"},
		Store:     config.StoreConfig{Driver: config.StoreDriverMySQL},
		RateLimit: config.RateLimitConfig{WindowSeconds: 60, MaxRequests: 100},
		Retention: config.RetentionConfig{Schedule: "0 30 3 * * *"},
	}
}

func TestBuildApplicationServesWebhookAndHistory(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, err := gorm.Open(sqlite.Open("file:wire?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Discard,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Message{}))

	app, err := BuildApplication(testConfig(), repository.NewMessageRepo(db), nil)
	require.NoError(t, err)
	assert.Nil(t, app.KafkaManager)
	require.NoError(t, app.CronMgr.RegisterJobs())

	body := `{"metaData":{"entry":[{"changes":[{"field":"messages","value":{
		"contacts":[{"profile":{"name":"Ravi Kumar"},"wa_id":"919937320320"}],
		"messages":[{"from":"919937320320","id":"wamid.wire1","timestamp":"1754400000","type":"text","text":{"body":"hi"}}]
	}}]}]}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/webhook/process", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	app.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	app.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/messages/919937320320", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "wamid.wire1")
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
}
