package ui

import (
	"github.com/gdamore/tcell/v2"
)

// Key identifies a shortcut: a rune for printable keys, a tcell.Key otherwise.
type Key struct {
	Code tcell.Key
	Rune rune
}

// RuneKey returns the Key for a printable character.
func RuneKey(r rune) Key {
	return Key{Code: tcell.KeyRune, Rune: r}
}

// AsKey converts a key event to a Key.
func AsKey(evt *tcell.EventKey) Key {
	if evt.Key() == tcell.KeyRune {
		return RuneKey(evt.Rune())
	}

	return Key{Code: evt.Key()}
}

func (k Key) String() string {
	if k.Code != tcell.KeyRune {
		return tcell.KeyNames[k.Code]
	}

	if k.Rune == ' ' {
		return "Space"
	}

	return string(k.Rune)
}

// These are the shortcuts on the task table.
var (
	KeySpace  = RuneKey(' ')
	KeyE      = RuneKey('e')
	KeyD      = RuneKey('d')
	KeyU      = RuneKey('u')
	KeyShiftA = RuneKey('A')
	KeyShiftN = RuneKey('N')
	KeyF      = RuneKey('f')
	KeySlash  = RuneKey('/')
	KeyA      = RuneKey('a')
	KeyShiftS = RuneKey('S')
	KeyQ      = RuneKey('q')
)
