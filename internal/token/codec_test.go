package token

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec("access-secret", "refresh-secret", "15m", "7d", slog.Default())
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return c
}

func TestNewCodecRequiresSecrets(t *testing.T) {
	if _, err := NewCodec("", "refresh", "15m", "7d", nil); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("missing access secret: got %v, want ErrMissingSecret", err)
	}
	if _, err := NewCodec("access", "", "15m", "7d", nil); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("missing refresh secret: got %v, want ErrMissingSecret", err)
	}
}

func TestMintVerifyRoundTrip(t *testing.T) {
	c := newTestCodec(t)
	id := Identity{UserID: "u-1", Email: "a@example.com", Role: "admin"}

	pair, err := c.MintPair(id)
	if err != nil {
		t.Fatalf("MintPair: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("pair has empty tokens")
	}
	if pair.AccessToken == pair.RefreshToken {
		t.Fatal("access and refresh tokens must differ")
	}

	p, err := c.Verify(pair.AccessToken, KindAccess)
	if err != nil {
		t.Fatalf("Verify access: %v", err)
	}
	if p.UserID != id.UserID || p.Email != id.Email || p.Role != id.Role {
		t.Fatalf("payload = %+v, want identity %+v", p, id)
	}
	if p.Kind != KindAccess {
		t.Fatalf("payload kind = %q, want %q", p.Kind, KindAccess)
	}

	if _, err := c.Verify(pair.RefreshToken, KindRefresh); err != nil {
		t.Fatalf("Verify refresh: %v", err)
	}
}

func TestVerifyKindMismatch(t *testing.T) {
	c := newTestCodec(t)
	pair, err := c.MintPair(Identity{UserID: "u-1", Email: "a@example.com", Role: "user"})
	if err != nil {
		t.Fatalf("MintPair: %v", err)
	}

	if _, err := c.Verify(pair.RefreshToken, KindAccess); !errors.Is(err, ErrKindMismatch) {
		t.Fatalf("refresh as access: got %v, want ErrKindMismatch", err)
	}
	if _, err := c.Verify(pair.AccessToken, KindRefresh); !errors.Is(err, ErrKindMismatch) {
		t.Fatalf("access as refresh: got %v, want ErrKindMismatch", err)
	}
}

func TestVerifyInvalidToken(t *testing.T) {
	c := newTestCodec(t)

	if _, err := c.Verify("not-a-jwt", KindAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage: got %v, want ErrInvalidToken", err)
	}

	// Token signed by a codec with different secrets must not verify.
	other, err := NewCodec("other-access", "other-refresh", "15m", "7d", slog.Default())
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	tok, _, err := other.Mint(Identity{UserID: "u-1"}, KindAccess)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if _, err := c.Verify(tok, KindAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("foreign signature: got %v, want ErrInvalidToken", err)
	}

	// Tampered payload must not verify either.
	pair, err := c.MintPair(Identity{UserID: "u-1"})
	if err != nil {
		t.Fatalf("MintPair: %v", err)
	}
	parts := strings.Split(pair.AccessToken, ".")
	tampered := parts[0] + ".x" + parts[1] + "." + parts[2]
	if _, err := c.Verify(tampered, KindAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("tampered: got %v, want ErrInvalidToken", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	c := newTestCodec(t)
	c.accessTTL = time.Second

	tok, _, err := c.Mint(Identity{UserID: "u-1"}, KindAccess)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	time.Sleep(2 * time.Second)

	if _, err := c.Verify(tok, KindAccess); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expired: got %v, want ErrTokenExpired", err)
	}
}

func TestParseExpiry(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"15m", 15 * time.Minute},
		{"1h", time.Hour},
		{"7d", 7 * 24 * time.Hour},
		{"90m", 90 * time.Minute},
		{"", 15 * time.Minute},
		{"7w", 15 * time.Minute},
		{"m", 15 * time.Minute},
		{"1.5h", 15 * time.Minute},
		{"-1h", 15 * time.Minute},
	}
	for _, tc := range cases {
		if got := ParseExpiry(tc.in, slog.Default()); got != tc.want {
			t.Errorf("ParseExpiry(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
