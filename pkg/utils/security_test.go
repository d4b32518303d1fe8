package utils

import (
	"errors"
	"testing"

	"github.com/huangchenwei1/Puzle-Read/internal/config"
)

func useJWTConfig(t *testing.T, secret string, hours int) {
	t.Helper()
	config.Set(&config.Config{
		App: config.AppConfig{Name: "puzle-read-test"},
		JWT: config.JWTConfig{Secret: secret, ExpireHours: hours},
	})
}

func TestTokenRoundTrip(t *testing.T) {
	useJWTConfig(t, "s3cret", 1)

	token, err := GenerateToken(42, "reader")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != 42 || claims.Username != "reader" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseTokenErrors(t *testing.T) {
	useJWTConfig(t, "s3cret", -1)
	expired, err := GenerateToken(1, "old")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseToken(expired); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("expired token err = %v", err)
	}

	useJWTConfig(t, "other", 1)
	forged, _ := GenerateToken(1, "x")
	useJWTConfig(t, "s3cret", 1)
	if _, err := ParseToken(forged); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("forged token err = %v", err)
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("pa55word")
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyPassword("pa55word", hash) || VerifyPassword("wrong", hash) {
		t.Error("password verification mismatch")
	}
}

func TestUUIDGeneratorMonotonic(t *testing.T) {
	var g UUIDGenerator
	prev := g.NewID()
	for i := 0; i < 100; i++ {
		next := g.NewID()
		if next <= prev {
			t.Fatalf("ids not increasing: %s then %s", prev, next)
		}
		prev = next
	}
}
