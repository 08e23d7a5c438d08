package security

import "testing"

func TestValidPassword(t *testing.T) {
	cases := []struct {
		password string
		want     bool
	}{
		{"Passw0rd!", true},
		{"password", false},    // no digit, no symbol, no uppercase
		{"PASSW0RD!", false},   // no lowercase
		{"Passw0rd", false},    // no symbol
		{"Password!", false},   // no digit
		{"Pa0!", false},        // too short
		{"Str0ng&Pass", true},
		{"Passw0rd^", false},   // symbol outside the allowed set
	}
	for _, tc := range cases {
		if got := ValidPassword(tc.password); got != tc.want {
			t.Errorf("ValidPassword(%q) = %v, want %v", tc.password, got, tc.want)
		}
	}
}

func TestHasherRoundTrip(t *testing.T) {
	h := NewHasher(4) // min cost keeps the test fast
	hash, err := h.Hash([]byte("Passw0rd!"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "Passw0rd!" {
		t.Fatal("hash must not equal plaintext")
	}
	if err := h.Compare(hash, []byte("Passw0rd!")); err != nil {
		t.Fatalf("Compare with correct password: %v", err)
	}
	if err := h.Compare(hash, []byte("WrongPass1!")); err == nil {
		t.Fatal("Compare with wrong password should fail")
	}
}

func TestNewHasherClampsCost(t *testing.T) {
	if h := NewHasher(0); h.Cost != DefaultCost {
		t.Fatalf("cost = %d, want %d", h.Cost, DefaultCost)
	}
	if h := NewHasher(100); h.Cost > 31 {
		t.Fatalf("cost = %d, want <= 31", h.Cost)
	}
	if h := NewHasher(1); h.Cost < 4 {
		t.Fatalf("cost = %d, want >= 4", h.Cost)
	}
}
