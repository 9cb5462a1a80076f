package jwt

import (
	"OmniAgent/internal/config"
	"OmniAgent/pkg/back"
	"OmniAgent/pkg/util/myjwt"
	"OmniAgent/pkg/xerr"
	"strings"

	"github.com/gin-gonic/gin"
)

func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			back.Error(c, xerr.Unauthorized, "missing or invalid authorization header")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		userID, err := myjwt.ParseToken(tokenString)
		if err != nil {
			back.Error(c, xerr.Unauthorized, "invalid token")
			c.Abort()
			return
		}

		c.Set("uuid", userID)
		c.Next()
	}
}

// Enabled jwtConfig.key 非空时才启用鉴权
func Enabled() bool {
	return strings.TrimSpace(config.GetConfig().JwtConfig.Key) != ""
}

// OwnsUser 鉴权启用时要求请求里的 user_id 与 token 的 uuid 一致；未启用时放行
func OwnsUser(c *gin.Context, userID string) bool {
	uuid := c.GetString("uuid")
	if uuid == "" {
		return !Enabled()
	}
	return uuid == userID
}
