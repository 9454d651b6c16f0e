package core

import "testing"

func TestCheckUsername(t *testing.T) {
	cases := map[string]bool{
		"alice":  true,
		"bob1":   true,
		"":       false,
		"  ":     false,
		"abc":    false,
		"   ab ": false,
	}
	for in, want := range cases {
		if got := CheckUsername(in); got != want {
			t.Errorf("CheckUsername(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestCheckPin(t *testing.T) {
	cases := map[string]bool{
		"1234": true,
		"0000": false,
		"12":   false,
		"abcd": false,
		"12a4":    false,
		" 1234 ": true,
	}
	for in, want := range cases {
		if got := CheckPin(in); got != want {
			t.Errorf("CheckPin(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestCheckPassword(t *testing.T) {
	if !CheckPassword("abcd") {
		t.Error("CheckPassword(\"abcd\") = false, want true")
	}
	if CheckPassword("abc") {
		t.Error("CheckPassword(\"abc\") = true, want false")
	}
}
