package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestConversationMemory_AppendAndHistory(t *testing.T) {
	m := NewConversationMemory()
	if got := m.History(0); len(got) != 0 {
		t.Fatalf("expected empty history, got %#v", got)
	}
	for i := 0; i < 8; i++ {
		if i%2 == 0 {
			m.AppendUser(fmt.Sprintf("q%d", i))
		} else {
			m.AppendAssistant(fmt.Sprintf("a%d", i))
		}
	}
	if m.Len() != 8 {
		t.Fatalf("expected 8 turns, got %d", m.Len())
	}

	full := m.History(0)
	if len(full) != 8 || full[0].Text != "q0" || full[7].Text != "a7" {
		t.Fatalf("unexpected full history: %#v", full)
	}
	window := m.History(6)
	if len(window) != 6 || window[0].Text != "q2" || window[5].Text != "a7" {
		t.Fatalf("unexpected window: %#v", window)
	}
	if window[0].Role != RoleUser || window[1].Role != RoleAssistant {
		t.Fatalf("roles not preserved: %#v", window[:2])
	}
	if got := m.History(100); len(got) != 8 {
		t.Fatalf("expected whole record when max exceeds length, got %d", len(got))
	}
	// The record is never trimmed by reads.
	if m.Len() != 8 {
		t.Fatalf("history call mutated memory")
	}
}

func TestConversationMemory_HistoryIsCopy(t *testing.T) {
	m := NewConversationMemory()
	m.AppendUser("hello")
	h := m.History(0)
	h[0].Text = "changed"
	if m.History(0)[0].Text != "hello" {
		t.Fatalf("expected copy isolation")
	}
}

func TestConversationMemory_Timestamps(t *testing.T) {
	m := NewConversationMemory()
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	m.now = func() time.Time { return fixed }
	m.AppendUser("x")
	explicit := fixed.Add(time.Hour)
	m.Append(Turn{Role: RoleAssistant, Text: "y", Timestamp: explicit})

	h := m.History(0)
	if !h[0].Timestamp.Equal(fixed) || !h[1].Timestamp.Equal(explicit) {
		t.Fatalf("unexpected timestamps: %#v", h)
	}
}

func TestConversationMemory_Reset(t *testing.T) {
	m := NewConversationMemory()
	m.AppendUser("a")
	m.AppendAssistant("b")
	m.Reset()
	if m.Len() != 0 || len(m.History(0)) != 0 {
		t.Fatalf("expected empty memory after reset")
	}
	m.AppendUser("c")
	if m.Len() != 1 {
		t.Fatalf("memory unusable after reset")
	}
}

func TestConversationMemory_ConcurrentAccess(t *testing.T) {
	m := NewConversationMemory()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				m.AppendUser(fmt.Sprintf("%d-%d", i, j))
				_ = m.History(6)
			}
		}(i)
	}
	wg.Wait()
	if m.Len() != 500 {
		t.Fatalf("expected 500 turns, got %d", m.Len())
	}
}
