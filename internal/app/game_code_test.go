package app_test

import (
	"testing"

	"live-quiz-service/internal/app"
)

func TestNewGameCode(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := app.NewGameCode()
		if err != nil {
			t.Fatalf("generate failed: %v", err)
		}
		if !app.ValidGameCode(code) {
			t.Fatalf("invalid code %q", code)
		}
	}
}

func TestValidGameCode(t *testing.T) {
	cases := map[string]bool{
		"AB12CD":  true,
		"ZZZZZZ":  true,
		"ab12cd":  false,
		"AB12C":   false,
		"AB12CDE": false,
		"AB-2CD":  false,
	}
	for code, want := range cases {
		if got := app.ValidGameCode(code); got != want {
			t.Fatalf("ValidGameCode(%q) = %v, want %v", code, got, want)
		}
	}
	if got := app.NormalizeCode(" ab12cd "); got != "AB12CD" {
		t.Fatalf("expected AB12CD, got %q", got)
	}
}
