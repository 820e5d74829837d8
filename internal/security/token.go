package security

import (
	"strconv"

	"github.com/medsim-planet/session-service/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// TokenVerifier проверяет bearer-токены экзаменатора, выпущенные
// auth-подсистемой. Движку нужна только пара фактов: валиден ли токен
// и кому он принадлежит.
type TokenVerifier struct {
	secret []byte
	issuer string
}

func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	return &TokenVerifier{
		secret: []byte(secret),
		issuer: issuer,
	}
}

type accessClaims struct {
	jwt.RegisteredClaims
}

// Verify возвращает id владельца токена (sub) или ошибку.
func (v *TokenVerifier) Verify(tokenStr string) (int64, error) {
	claims := &accessClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return 0, domain.ErrInvalidToken
	}
	if !token.Valid || claims.Subject == "" {
		return 0, domain.ErrInvalidToken
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, domain.ErrInvalidToken
	}
	return id, nil
}
