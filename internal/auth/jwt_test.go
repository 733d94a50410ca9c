package auth

import (
	"testing"

	"github.com/google/uuid"
)

func TestTokenRoundTrip(t *testing.T) {
	InitJWT("test-secret")

	userID := uuid.New()
	token, err := GenerateToken(userID, "net.sumra.chat")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != userID.String() {
		t.Errorf("expected user %s, got %s", userID, claims.UserID)
	}
	if claims.ApplicationID != "net.sumra.chat" {
		t.Errorf("expected application net.sumra.chat, got %s", claims.ApplicationID)
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	InitJWT("test-secret")

	if _, err := ValidateToken("not-a-token"); err == nil {
		t.Error("expected garbage token to be rejected")
	}
}
