package async

import "testing"

func TestGuard_LastTriggerWins(t *testing.T) {
	var g Guard
	a := g.Begin()
	b := g.Begin()

	if a.Live() {
		t.Error("superseded token A still live")
	}
	if !b.Live() {
		t.Error("latest token B not live")
	}
}

func TestGuard_CancelAndClose(t *testing.T) {
	var g Guard
	tok := g.Begin()
	g.Cancel()
	if tok.Live() {
		t.Error("token live after Cancel")
	}

	tok = g.Begin()
	g.Close()
	if tok.Live() {
		t.Error("token live after Close")
	}
	if g.Begin().Live() {
		t.Error("token begun after Close is live")
	}
	if !g.Closed() {
		t.Error("Closed() = false after Close")
	}
}

func TestToken_ZeroValue(t *testing.T) {
	var tok Token
	if tok.Live() {
		t.Error("zero Token reports live")
	}
}
