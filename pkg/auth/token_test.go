package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/calderapos/register-edge/pkg/config"
)

func TestMintAndParseRegisterToken(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "register-edge",
		ExpirationMinutes: 5,
	}
	now := time.Now().UTC()

	payload := RegisterTokenPayload{
		RegisterID: "reg-01",
		StoreID:    "store-7",
	}

	token, err := MintRegisterToken(cfg, now, payload)
	if err != nil {
		t.Fatalf("mint register token: %v", err)
	}

	claims, err := ParseRegisterToken(cfg, token)
	if err != nil {
		t.Fatalf("parse register token: %v", err)
	}

	if claims.RegisterID != "reg-01" {
		t.Fatalf("expected register_id reg-01, got %s", claims.RegisterID)
	}
	if claims.StoreID != "store-7" {
		t.Fatalf("expected store_id store-7, got %s", claims.StoreID)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}
	if claims.Subject != "reg-01" {
		t.Fatalf("expected subject reg-01, got %s", claims.Subject)
	}
	if claims.ID == "" {
		t.Fatalf("expected generated jti")
	}

	exp := now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)
	diff := claims.ExpiresAt.Sub(exp)
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Second {
		t.Fatalf("expected exp roughly %v, got %v (diff %v)", exp.UTC(), claims.ExpiresAt.UTC(), diff)
	}
}

func TestParseRegisterTokenInvalidSignature(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "register-edge",
		ExpirationMinutes: 5,
	}
	now := time.Now()

	token, err := MintRegisterToken(cfg, now, RegisterTokenPayload{RegisterID: "reg-01", StoreID: "store-7"})
	if err != nil {
		t.Fatalf("mint register token: %v", err)
	}

	other := cfg
	other.Secret = "different"
	if _, err := ParseRegisterToken(other, token); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestParseRegisterTokenWrongIssuer(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "register-edge",
		ExpirationMinutes: 5,
	}

	token, err := MintRegisterToken(cfg, time.Now(), RegisterTokenPayload{RegisterID: "reg-01", StoreID: "store-7"})
	if err != nil {
		t.Fatalf("mint register token: %v", err)
	}

	other := cfg
	other.Issuer = "someone-else"
	if _, err := ParseRegisterToken(other, token); err == nil {
		t.Fatalf("expected issuer error")
	}
}

func TestMintRegisterTokenValidation(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "register-edge",
		ExpirationMinutes: 5,
	}

	cases := []struct {
		name    string
		mutate  func(*config.JWTConfig, *RegisterTokenPayload)
		wantSub string
	}{
		{
			name:    "missing secret",
			mutate:  func(c *config.JWTConfig, _ *RegisterTokenPayload) { c.Secret = "" },
			wantSub: "secret",
		},
		{
			name:    "missing register id",
			mutate:  func(_ *config.JWTConfig, p *RegisterTokenPayload) { p.RegisterID = " " },
			wantSub: "register id",
		},
		{
			name:    "missing store id",
			mutate:  func(_ *config.JWTConfig, p *RegisterTokenPayload) { p.StoreID = "" },
			wantSub: "store id",
		},
		{
			name:    "non-positive expiration",
			mutate:  func(c *config.JWTConfig, _ *RegisterTokenPayload) { c.ExpirationMinutes = 0 },
			wantSub: "expiration",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := cfg
			p := RegisterTokenPayload{RegisterID: "reg-01", StoreID: "store-7"}
			tc.mutate(&c, &p)

			_, err := MintRegisterToken(c, time.Now(), p)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("expected error mentioning %q, got %v", tc.wantSub, err)
			}
		})
	}
}
