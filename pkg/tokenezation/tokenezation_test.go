package tokenezation

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	locerr "github.com/ERRORIK404/custom_calc/pkg/local_errors"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("session-1", "secret", time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	sid, err := CheckToken(token, "secret")
	if err != nil {
		t.Fatalf("CheckToken: %v", err)
	}
	if sid != "session-1" {
		t.Errorf("sid = %q", sid)
	}
}

func TestCheckTokenWrongSecret(t *testing.T) {
	token, _ := GenerateToken("session-1", "secret", time.Minute)
	if _, err := CheckToken(token, "other"); !errors.Is(err, locerr.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestCheckTokenExpired(t *testing.T) {
	token, _ := GenerateToken("session-1", "secret", -time.Minute)
	if _, err := CheckToken(token, "secret"); !errors.Is(err, locerr.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestCheckTokenWithoutSID(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := CheckToken(token, "secret"); !errors.Is(err, locerr.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestCheckTokenGarbage(t *testing.T) {
	if _, err := CheckToken("not-a-token", "secret"); err == nil {
		t.Error("expected error")
	}
}
