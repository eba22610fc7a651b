package events

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func displayEvent(id, title string, hour int) DisplayEvent {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	return DisplayEvent{
		ID:    id,
		Title: title,
		Start: day.Add(time.Duration(hour) * time.Hour),
		End:   day.Add(time.Duration(hour+1) * time.Hour),
	}
}

func TestStore_ReplaceAll(t *testing.T) {
	s := NewStore()
	s.ReplaceAll([]DisplayEvent{
		displayEvent("a", "A", 9),
		displayEvent("b", "B", 11),
	})

	s.ReplaceAll([]DisplayEvent{displayEvent("c", "C", 13)})

	all := s.All()
	if len(all) != 1 {
		t.Fatalf("len = %d, want 1 (no leftover prior entries)", len(all))
	}
	if all[0].ID != "c" {
		t.Errorf("remaining event = %q, want %q", all[0].ID, "c")
	}
}

func TestStore_ReplaceAll_PreservesOrder(t *testing.T) {
	s := NewStore()
	batch := []DisplayEvent{
		displayEvent("e1", "First", 9),
		displayEvent("e2", "Second", 11),
		displayEvent("e3", "Third", 14),
	}
	s.ReplaceAll(batch)

	all := s.All()
	for i, want := range []string{"e1", "e2", "e3"} {
		if all[i].ID != want {
			t.Errorf("all[%d].ID = %q, want %q", i, all[i].ID, want)
		}
	}
}

func TestStore_ReplaceAll_CopiesInput(t *testing.T) {
	s := NewStore()
	batch := []DisplayEvent{displayEvent("a", "A", 9)}
	s.ReplaceAll(batch)

	batch[0].Title = "mutated"

	if got := s.All()[0].Title; got != "A" {
		t.Errorf("store affected by caller mutation: Title = %q", got)
	}
}

func TestStore_Append(t *testing.T) {
	s := NewStore()
	s.ReplaceAll([]DisplayEvent{
		displayEvent("e1", "First", 9),
		displayEvent("e2", "Second", 11),
	})

	s.Append(displayEvent("abc", "Review", 13))

	all := s.All()
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[2].ID != "abc" || all[2].Title != "Review" {
		t.Errorf("appended entry = %+v, want id abc title Review at the end", all[2])
	}
}

func TestStore_AppendDuplicateID_ReplacesInPlace(t *testing.T) {
	s := NewStore()
	s.ReplaceAll([]DisplayEvent{
		displayEvent("a", "A", 9),
		displayEvent("b", "B", 11),
		displayEvent("c", "C", 13),
	})

	s.Append(displayEvent("b", "B updated", 12))

	all := s.All()
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3 (no duplicate entry)", len(all))
	}
	if all[1].ID != "b" || all[1].Title != "B updated" {
		t.Errorf("all[1] = %+v, want the replaced entry at its original position", all[1])
	}
	if all[0].ID != "a" || all[2].ID != "c" {
		t.Error("surrounding entries should be untouched")
	}
}

func TestStore_Clear(t *testing.T) {
	s := NewStore()
	s.ReplaceAll([]DisplayEvent{
		displayEvent("a", "A", 9),
		displayEvent("b", "B", 11),
	})

	s.Clear()

	if got := s.Len(); got != 0 {
		t.Errorf("Len() = %d after Clear, want 0", got)
	}
}

func TestStore_AllReturnsCopy(t *testing.T) {
	s := NewStore()
	s.ReplaceAll([]DisplayEvent{displayEvent("a", "A", 9)})

	snapshot := s.All()
	snapshot[0].Title = "mutated"

	if got := s.All()[0].Title; got != "A" {
		t.Errorf("store affected by snapshot mutation: Title = %q", got)
	}
}

func TestStore_Revision(t *testing.T) {
	s := NewStore()
	if got := s.Revision(); got != 0 {
		t.Fatalf("initial revision = %d, want 0", got)
	}

	s.ReplaceAll([]DisplayEvent{displayEvent("a", "A", 9)})
	if got := s.Revision(); got != 1 {
		t.Errorf("revision after ReplaceAll = %d, want 1", got)
	}

	s.Append(displayEvent("b", "B", 11))
	if got := s.Revision(); got != 2 {
		t.Errorf("revision after Append = %d, want 2", got)
	}

	s.Clear()
	if got := s.Revision(); got != 3 {
		t.Errorf("revision after Clear = %d, want 3", got)
	}

	// Clearing an empty store changes nothing, so pollers see no phantom
	// update.
	s.Clear()
	if got := s.Revision(); got != 3 {
		t.Errorf("revision after redundant Clear = %d, want 3", got)
	}
}

func TestStore_Snapshot(t *testing.T) {
	s := NewStore()
	s.ReplaceAll([]DisplayEvent{displayEvent("a", "A", 9)})

	events, rev := s.Snapshot()
	if len(events) != 1 || events[0].ID != "a" {
		t.Errorf("Snapshot events = %+v, want the stored entry", events)
	}
	if rev != s.Revision() {
		t.Errorf("Snapshot revision = %d, want %d", rev, s.Revision())
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Append(displayEvent(fmt.Sprintf("w%d-%d", n, j), "T", 9))
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = s.All()
				_ = s.Revision()
			}
		}()
	}
	wg.Wait()

	if got := s.Len(); got != 8*50 {
		t.Errorf("Len() = %d, want %d", got, 8*50)
	}
}
