package session

import "testing"

func TestGenerateCodeIsSixDigits(t *testing.T) {
	for i := 0; i < 1000; i++ {
		code := GenerateCode()
		if len(code) != 6 {
			t.Fatalf("expected 6 digits, got %q", code)
		}
		if code[0] == '0' {
			t.Fatalf("leading zero in code %q", code)
		}
	}
}
