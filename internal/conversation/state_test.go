package conversation

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewState_Seeded(t *testing.T) {
	s := NewState("ana@example.com")
	snap := s.Snapshot()

	require.Len(t, snap.Messages, 3)
	assert.Equal(t, "Hi ana@example.com, I'm your AI email assistant. 👋", snap.Messages[0].Text)
	assert.Equal(t, CommandHelp, snap.Messages[2].Text)
	for i, m := range snap.Messages {
		assert.Equal(t, i+1, m.ID)
		assert.Equal(t, RoleAssistant, m.Role)
	}
	assert.Equal(t, []string{"Dashboard initialized. Waiting for your first command…"}, snap.Activity)
	assert.Empty(t, snap.Emails)
	assert.False(t, snap.Busy.Any())
}

func TestBeginExchangeAndResolve(t *testing.T) {
	s := NewState("")
	id := s.BeginExchange("help", "Let me think about that…")

	snap := s.Snapshot()
	want := []Message{
		{ID: 4, Role: RoleUser, Text: "help"},
		{ID: 5, Role: RoleAssistant, Text: "Let me think about that…"},
	}
	if diff := cmp.Diff(want, snap.Messages[3:]); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 5, id)

	require.NoError(t, s.Resolve(id, "done"))
	assert.Equal(t, "done", s.Snapshot().Messages[4].Text)

	assert.ErrorIs(t, s.Resolve(id, "again"), ErrUnknownMessage)
	assert.ErrorIs(t, s.Resolve(1, "greeting"), ErrUnknownMessage)
	assert.Equal(t, "done", s.Snapshot().Messages[4].Text)
}

func TestActivityNewestFirst(t *testing.T) {
	s := NewState("")
	s.Log("first")
	s.Logf("second %d", 2)

	assert.Equal(t, []string{"second 2", "first", "Dashboard initialized. Waiting for your first command…"}, s.Snapshot().Activity)
}

func TestEmails_SetSelectRemove(t *testing.T) {
	s := NewState("")
	s.SetEmails([]EmailSummary{{ID: "a", Subject: "A"}, {ID: "b", Subject: "B"}})

	sel, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, "a", sel.ID)

	assert.True(t, s.Select("b"))
	assert.False(t, s.Select("zzz"))

	assert.True(t, s.RemoveEmail("a"))
	sel, _ = s.Selected()
	assert.Equal(t, "b", sel.ID, "removing another email keeps the selection")

	assert.True(t, s.RemoveEmail("b"))
	_, ok = s.Selected()
	assert.False(t, ok)
	assert.False(t, s.RemoveEmail("b"))
	assert.Empty(t, s.Emails())
}

func TestSetEmails_EmptyClearsSelection(t *testing.T) {
	s := NewState("")
	s.SetEmails([]EmailSummary{{ID: "a"}})
	s.SetEmails(nil)
	assert.Empty(t, s.Snapshot().SelectedID)
}

func TestSetReply(t *testing.T) {
	s := NewState("")
	s.SetEmails([]EmailSummary{{ID: "a", AIReply: "old"}})
	assert.True(t, s.SetReply("a", "new"))
	assert.False(t, s.SetReply("x", "new"))
	assert.Equal(t, "new", s.Emails()[0].AIReply)
}

func TestBusyFlags(t *testing.T) {
	s := NewState("")
	s.SetBusy(OpSendingReply, true)
	assert.True(t, s.Busy().Any())
	assert.False(t, s.Busy().Blocking())

	s.SetBusy(OpDeleting, true)
	assert.True(t, s.Busy().Blocking())

	s.SetBusy(OpDeleting, false)
	s.SetBusy(OpSendingReply, false)
	assert.Equal(t, Busy{}, s.Busy())
}

func TestSnapshotIsCopy(t *testing.T) {
	s := NewState("")
	s.SetEmails([]EmailSummary{{ID: "a", Subject: "A"}})
	snap := s.Snapshot()
	snap.Emails[0].Subject = "mutated"
	snap.Messages[0].Text = "mutated"

	assert.Equal(t, "A", s.Emails()[0].Subject)
	assert.NotEqual(t, "mutated", s.Snapshot().Messages[0].Text)
}

func TestSubscribe(t *testing.T) {
	s := NewState("")
	var mu sync.Mutex
	var got []Snapshot
	unsubscribe := s.Subscribe(func(snap Snapshot) {
		mu.Lock()
		got = append(got, snap)
		mu.Unlock()
	})

	id := s.BeginExchange("read my email", "Let me pull your latest emails…")
	require.NoError(t, s.Resolve(id, "ok"))
	unsubscribe()
	s.Log("unseen")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Len(t, got[0].Messages, 5)
	assert.Equal(t, "ok", got[1].Messages[4].Text)
}

func TestConcurrentMutations(t *testing.T) {
	s := NewState("")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := s.BeginExchange("u", "p")
			_ = s.Resolve(id, "r")
			s.Log("x")
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.Len(t, snap.Messages, 3+40)
	seen := make(map[int]bool)
	for _, m := range snap.Messages {
		assert.False(t, seen[m.ID], "duplicate id %d", m.ID)
		seen[m.ID] = true
	}
}

func TestRevisionGrowsWithEveryMutation(t *testing.T) {
	s := NewState("")
	last := s.Snapshot().Revision

	steps := map[string]func(){
		"exchange": func() { _ = s.Resolve(s.BeginExchange("u", "p"), "r") },
		"say":      func() { s.Say("hi") },
		"log":      func() { s.Log("x") },
		"emails":   func() { s.SetEmails([]EmailSummary{{ID: "a"}, {ID: "b"}}) },
		"select":   func() { s.Select("b") },
		"reply":    func() { s.SetReply("b", "ok") },
		"remove":   func() { s.RemoveEmail("a") },
		"busy":     func() { s.SetBusy(OpDeleting, true) },
	}
	for _, name := range []string{"exchange", "say", "log", "emails", "select", "reply", "remove", "busy"} {
		steps[name]()
		rev := s.Snapshot().Revision
		assert.Greater(t, rev, last, name)
		last = rev
	}

	s.RemoveEmail("missing")
	s.Select("missing")
	assert.Equal(t, last, s.Snapshot().Revision, "no-op calls keep the revision")
}

func TestSubscribe_ConcurrentRevisionsIdentifyNewest(t *testing.T) {
	s := NewState("")
	var mu sync.Mutex
	var newest Snapshot
	s.Subscribe(func(snap Snapshot) {
		mu.Lock()
		if snap.Revision > newest.Revision {
			newest = snap
		}
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Log("x")
		}()
	}
	wg.Wait()

	final := s.Snapshot()
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, final.Revision, newest.Revision)
	if diff := cmp.Diff(final, newest); diff != "" {
		t.Errorf("newest delivered snapshot differs from state (-want +got):\n%s", diff)
	}
}
