package services

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
)

const NonceActionCrosspost = "post_to_multiple_forums"

type nonceClaims struct {
	Action string `json:"act"`
	jwt.RegisteredClaims
}

func nonceSecret() []byte {
	return []byte(viper.GetString("security.nonce_secret"))
}

// IssueNonce signs a short-lived token binding an account to one form action.
func IssueNonce(accountID uint, action string) (string, error) {
	ttl := viper.GetDuration("security.nonce_ttl")
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	now := time.Now()
	claims := nonceClaims{
		Action: action,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(accountID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(nonceSecret())
}

func VerifyNonce(token string, accountID uint, action string) error {
	var claims nonceClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return nonceSecret(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return fmt.Errorf("invalid nonce: %v", err)
	}
	if claims.Action != action {
		return fmt.Errorf("nonce issued for another action")
	}
	if claims.Subject != strconv.FormatUint(uint64(accountID), 10) {
		return fmt.Errorf("nonce issued for another account")
	}
	return nil
}
