package auth

import (
	"errors"
	"fmt"
	"time"

	"shrike/internal/support"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const tokenLifetime = 12 * time.Hour

var ErrInvalidToken = errors.New("invalid token")

func jwtSecret() []byte {
	return []byte(support.GetEnv("JWT_SECRET", "shrike-dev-secret"))
}

func GenerateToken(role string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(tokenLifetime).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(jwtSecret())
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func ValidateJWT(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return jwtSecret(), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyAdminPassword checks a login attempt against the bcrypt hash in
// ADMIN_PASSWORD_HASH. With no hash configured, logins are rejected.
func VerifyAdminPassword(password string) bool {
	hash := support.GetEnv("ADMIN_PASSWORD_HASH", "")
	if hash == "" || password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// HashPassword exists for provisioning the admin credential.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
