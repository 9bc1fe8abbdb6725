package telegram

import (
	"context"
	"testing"
)

func TestDisabledBot(t *testing.T) {
	tele, err := NewTelegram("")
	if err != nil {
		t.Fatalf("failed to create disabled bot: %s", err)
	}
	if tele.Bot != nil {
		t.Fatal("bot initialised without a token")
	}

	// all of these must be safe no-ops without a token
	err = tele.Run()
	if err != nil {
		t.Fatalf("disabled bot run failed: %s", err)
	}
	tele.AlertAdmins(context.Background(), "test message")
}
