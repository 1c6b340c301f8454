package ui

import (
	"unicode/utf8"

	tea "charm.land/bubbletea/v2"

	"picturemission/internal/minigame"
)

// GameKey converts a Bubble Tea key event into the key a mini-game
// understands. ok is false for keys no game reacts to, including anything
// held with Ctrl or Alt.
func GameKey(ev tea.KeyPressMsg) (minigame.Key, bool) {
	key := ev.Key()
	if key.Mod&(tea.ModCtrl|tea.ModAlt) != 0 {
		return minigame.Key{}, false
	}

	switch key.Code {
	case tea.KeyEnter:
		return minigame.Key{Code: minigame.KeyEnter}, true
	case tea.KeyBackspace:
		return minigame.Key{Code: minigame.KeyBackspace}, true
	case tea.KeyUp:
		return minigame.Key{Code: minigame.KeyUp}, true
	case tea.KeyDown:
		return minigame.Key{Code: minigame.KeyDown}, true
	case tea.KeyLeft:
		return minigame.Key{Code: minigame.KeyLeft}, true
	case tea.KeyRight:
		return minigame.Key{Code: minigame.KeyRight}, true
	case tea.KeySpace:
		return minigame.Rune(' '), true
	}

	// Printable characters arrive in Text; a bare Code covers synthetic
	// events that only set the rune.
	text := key.Text
	if text == "" && key.Code > ' ' && key.Code < utf8.RuneSelf {
		text = string(key.Code)
	}
	if utf8.RuneCountInString(text) != 1 {
		return minigame.Key{}, false
	}
	r, _ := utf8.DecodeRuneInString(text)
	if r < ' ' || r == utf8.RuneError {
		return minigame.Key{}, false
	}
	return minigame.Rune(r), true
}

// digitKey returns the value of a plain 1-9 key press.
func digitKey(ev tea.KeyPressMsg) (int, bool) {
	k, ok := GameKey(ev)
	if !ok {
		return 0, false
	}
	d, ok := k.Digit()
	if !ok || d == 0 {
		return 0, false
	}
	return d, true
}

func isRune(ev tea.KeyPressMsg, runes ...rune) bool {
	if ev.Mod&(tea.ModCtrl|tea.ModAlt) != 0 {
		return false
	}
	for _, r := range runes {
		if ev.Code == r {
			return true
		}
	}
	return false
}
