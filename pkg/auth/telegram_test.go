package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleInitData = "query_id=AAHdF6IQAAAAAN0XohDhrOrc&user=%7B%22id%22%3A5060715466%2C%22first_name%22%3A%22Bob%22%2C%22username%22%3A%22defi_master%22%7D&auth_date=1677649900&hash=e2e58"

func TestExtractTelegramData(t *testing.T) {
	data, err := ExtractTelegramData(sampleInitData)
	require.NoError(t, err)

	assert.Equal(t, int64(5060715466), data.ID)
	assert.Equal(t, "defi_master", data.Username)
	assert.Equal(t, int64(1677649900), data.AuthDate.Unix())
}

func TestTelegramAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		header     string
		debug      bool
		wantStatus int
	}{
		{name: "missing header", header: "", debug: true, wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Bearer abc", debug: true, wantStatus: http.StatusUnauthorized},
		{name: "bad signature", header: "Telegram " + sampleInitData, debug: false, wantStatus: http.StatusUnauthorized},
		{name: "debug mode skips signature", header: "Telegram " + sampleInitData, debug: true, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewTelegramAuth("123:token", tt.debug)

			r := gin.New()
			r.GET("/me", a.TelegramAuthMiddleware(), func(c *gin.Context) {
				user, ok := CurrentUser(c)
				require.True(t, ok)
				c.JSON(http.StatusOK, gin.H{"id": user.ID})
			})

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
