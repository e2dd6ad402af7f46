package mail

import (
	"fmt"
	"testing"
	"time"
)

type spySender struct {
	sent []Notification
	fail map[string]bool
}

func (s *spySender) Send(n Notification) error {
	if s.fail[n.Recipient] {
		return fmt.Errorf("simulated transport failure")
	}
	s.sent = append(s.sent, n)
	return nil
}

func TestRankChangeNotificationWordsDirectionCorrectly(t *testing.T) {
	promoted := RankChangeNotification("u1", "g1", 4, 5, time.Unix(0, 0))
	if !contains(promoted.Body, "promoted") {
		t.Fatalf("expected a promotion message, got %q", promoted.Body)
	}

	demoted := RankChangeNotification("u1", "g1", 5, 4, time.Unix(0, 0))
	if !contains(demoted.Body, "demoted") {
		t.Fatalf("expected a demotion message, got %q", demoted.Body)
	}
}

func TestDispatcherSendAllCollectsFailuresWithoutAborting(t *testing.T) {
	sender := &spySender{fail: map[string]bool{"bad": true}}
	d := NewDispatcher(sender)

	errs := d.SendAll([]Notification{
		{Recipient: "good1"},
		{Recipient: "bad"},
		{Recipient: "good2"},
	})

	if len(errs) != 1 {
		t.Fatalf("expected exactly 1 error, got %v", errs)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("expected 2 successful sends, got %d", len(sender.sent))
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
