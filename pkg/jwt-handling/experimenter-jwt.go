package jwthandling

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Information a token encodes
type ExperimenterClaims struct {
	ExperimenterID string `json:"experimenter_id,omitempty"`
	jwt.RegisteredClaims
}

func GenerateNewExperimenterToken(expiresIn time.Duration, experimenterID string, secretKey string) (tokenString string, err error) {
	claims := ExperimenterClaims{
		experimenterID,
		jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err = token.SignedString([]byte(secretKey))
	return
}

func ValidateExperimenterToken(tokenString string, secretKey string) (claims *ExperimenterClaims, valid bool, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &ExperimenterClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	if token == nil {
		return
	}
	claims, valid = token.Claims.(*ExperimenterClaims)
	valid = valid && token.Valid
	return
}
