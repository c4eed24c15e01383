package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

// Claims 是会话令牌中携带的声明。Subject 是用户名，Role 决定是否有管理权限。
type Claims struct {
	Role string `json:"role"`
	jwt.StandardClaims
}

// IssueToken 签发一个 HS256 令牌，供运维命令和测试使用。用户注册和登录不在本服务内。
func IssueToken(secret, subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		StandardClaims: jwt.StandardClaims{
			Subject:   subject,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("签发 token 失败: %w", err)
	}
	return token, nil
}

// RequireSession 创建一个 Gin 中间件，要求请求携带有效的 JWT。
func RequireSession(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, jwtSecret) {
			return
		}
		c.Next()
	}
}

// RequireRole 在有效会话的基础上要求指定角色。角色不符时在处理函数运行之前中止。
func RequireRole(jwtSecret, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, jwtSecret) {
			return
		}
		if c.GetString("role") != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Chỉ admin mới được phép truy cập"})
			return
		}
		c.Next()
	}
}

// authenticate 校验令牌并把用户信息写入上下文，失败时已中止请求。
func authenticate(c *gin.Context, jwtSecret string) bool {
	claims, msg := parseBearer(c.GetHeader("Authorization"), jwtSecret)
	if claims == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
		return false
	}
	// 将用户信息存储在 Gin 的上下文中，以便后续的处理函数可以使用
	c.Set("userID", claims.Subject)
	c.Set("role", claims.Role)
	return true
}

// parseBearer 校验 "Bearer <token>" 格式的授权标头，失败时返回给客户端的提示。
func parseBearer(header, secret string) (*Claims, string) {
	if header == "" {
		return nil, "Token không được cung cấp"
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return nil, "Token không hợp lệ"
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
		// 确保 token 的签名方法是我们期望的
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("非预期的签名方法")
		}
		return []byte(secret), nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, "Token đã hết hạn"
		}
		return nil, "Token không hợp lệ"
	}
	if !token.Valid || claims.Subject == "" {
		return nil, "Token không hợp lệ"
	}
	return claims, ""
}
