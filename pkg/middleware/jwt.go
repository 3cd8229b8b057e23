package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/webfamily/familycrud/pkg/token"
)

// JWTAuth はBearerトークンを検証するGinミドルウェアを返す。
// Authorizationヘッダーが無い・Bearer形式でない・検証に失敗した場合は
// 401で処理を打ち切り、後続のハンドラを実行しない。
// 検証に成功してもsubjectクレームは後続に伝播しない。アクセス制御は
// 認証済みか否かの二値であり、ロールベースの認可は行わない。
func JWTAuth(svc *token.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorizationヘッダーが必要です",
			})
			return
		}

		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Bearer トークン形式が不正です",
			})
			return
		}

		if _, err := svc.Validate(tokenString); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "トークンが無効です",
			})
			return
		}

		c.Next()
	}
}
