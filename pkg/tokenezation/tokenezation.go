package tokenezation

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	locerr "github.com/ERRORIK404/custom_calc/pkg/local_errors"
)

const issuer = "custom_calc"

// GenerateToken выпускает токен, в котором лежит идентификатор сессии калькулятора
func GenerateToken(sessionID string, secret string, ttl time.Duration) (string, error) {
	iat := time.Now()
	exp := iat.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sid": sessionID,
		"iss": issuer,
		"iat": iat.Unix(),
		"nbf": iat.Unix(),
		"exp": exp.Unix(),
	})
	return token.SignedString([]byte(secret))
}

// CheckToken проверяет подпись и срок и возвращает идентификатор сессии
func CheckToken(tokenString string, secret string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", locerr.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", locerr.ErrInvalidToken
	}
	sessionID, ok := claims["sid"].(string)
	if !ok || sessionID == "" {
		return "", fmt.Errorf("%w: sid claim is missing", locerr.ErrInvalidToken)
	}
	return sessionID, nil
}
