package jwthandling

import (
	"testing"
	"time"
)

func TestExperimenterToken(t *testing.T) {
	secretKey := "test-sign-key"

	t.Run("round trip", func(t *testing.T) {
		token, err := GenerateNewExperimenterToken(time.Hour, "exp-01", secretKey)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		claims, valid, err := ValidateExperimenterToken(token, secretKey)
		if err != nil || !valid {
			t.Fatalf("token must validate, got valid=%v err=%v", valid, err)
		}
		if claims.ExperimenterID != "exp-01" {
			t.Errorf("unexpected experimenter ID: %s", claims.ExperimenterID)
		}
	})

	t.Run("wrong key is rejected", func(t *testing.T) {
		token, err := GenerateNewExperimenterToken(time.Hour, "exp-01", secretKey)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, valid, _ := ValidateExperimenterToken(token, "other-key"); valid {
			t.Error("token signed with a different key must be rejected")
		}
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		token, err := GenerateNewExperimenterToken(-time.Minute, "exp-01", secretKey)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, valid, _ := ValidateExperimenterToken(token, secretKey); valid {
			t.Error("expired token must be rejected")
		}
	})
}
