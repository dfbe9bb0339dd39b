package auth

import "testing"

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     int
	}{
		{name: "strong", password: "Corr3ctHorse", want: 0},
		{name: "short", password: "Ab1", want: 1},
		{name: "no upper", password: "lowercase1", want: 1},
		{name: "no lower", password: "UPPERCASE1", want: 1},
		{name: "no digit", password: "NoDigitsHere", want: 1},
		{name: "empty", password: "", want: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidatePasswordStrength(tt.password)
			if len(got) != tt.want {
				t.Fatalf("got %d violations %v, want %d", len(got), got, tt.want)
			}
		})
	}
}
