package ui

import (
	"testing"

	tea "charm.land/bubbletea/v2"

	"picturemission/internal/minigame"
)

func TestGameKey(t *testing.T) {
	tests := []struct {
		name string
		key  tea.KeyPressMsg
		want minigame.Key
		ok   bool
	}{
		{name: "enter", key: tea.KeyPressMsg{Code: tea.KeyEnter}, want: minigame.Key{Code: minigame.KeyEnter}, ok: true},
		{name: "backspace", key: tea.KeyPressMsg{Code: tea.KeyBackspace}, want: minigame.Key{Code: minigame.KeyBackspace}, ok: true},
		{name: "space", key: tea.KeyPressMsg{Code: tea.KeySpace, Text: " "}, want: minigame.Key{Code: minigame.KeySpace, Rune: ' '}, ok: true},
		{name: "left", key: tea.KeyPressMsg{Code: tea.KeyLeft}, want: minigame.Key{Code: minigame.KeyLeft}, ok: true},
		{name: "up", key: tea.KeyPressMsg{Code: tea.KeyUp}, want: minigame.Key{Code: minigame.KeyUp}, ok: true},
		{name: "digit", key: tea.KeyPressMsg{Code: '7', Text: "7"}, want: minigame.Key{Code: minigame.KeyRune, Rune: '7'}, ok: true},
		{name: "code only", key: tea.KeyPressMsg{Code: 'd'}, want: minigame.Key{Code: minigame.KeyRune, Rune: 'd'}, ok: true},
		{name: "ctrl rune", key: tea.KeyPressMsg{Code: 'c', Mod: tea.ModCtrl}, ok: false},
		{name: "alt rune", key: tea.KeyPressMsg{Code: 'b', Text: "b", Mod: tea.ModAlt}, ok: false},
		{name: "function key", key: tea.KeyPressMsg{Code: tea.KeyF5}, ok: false},
		{name: "tab", key: tea.KeyPressMsg{Code: tea.KeyTab}, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := GameKey(tt.key)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDigitKeyIgnoresZero(t *testing.T) {
	if _, ok := digitKey(tea.KeyPressMsg{Code: '0', Text: "0"}); ok {
		t.Fatalf("0 is not a slot")
	}
	if d, ok := digitKey(tea.KeyPressMsg{Code: '9', Text: "9"}); !ok || d != 9 {
		t.Fatalf("expected 9, got %d %v", d, ok)
	}
}
