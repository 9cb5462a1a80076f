package myjwt

import (
	"OmniAgent/internal/config"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims 上游账号服务签发的 token，这里只读取 uuid，即请求方的 user_id
type Claims struct {
	UserId string `json:"uuid"`
	jwt.RegisteredClaims
}

// ParseToken 校验 HS256 签名、有效期和签发方（配置了 issuer 时），返回 token 所属的 user_id
func ParseToken(tokenString string) (string, error) {
	conf := config.GetConfig()
	key := conf.JwtConfig.Key
	if key == "" {
		return "", errors.New("jwt key is empty")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer := strings.TrimSpace(conf.JwtConfig.Issuer); issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(key), nil
	}, opts...)
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	userID := strings.TrimSpace(claims.UserId)
	if userID == "" {
		return "", errors.New("token has no uuid claim")
	}
	return userID, nil
}
