package usecase

import (
	"errors"
	"math/rand"
	"testing"
)

func TestListStoreAppendGetRemoveLast(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	store := NewListStore(events)

	if n := store.Append("hello"); n != 1 {
		t.Fatalf("expected count 1, got %d", n)
	}
	if n := store.Append("world"); n != 2 {
		t.Fatalf("expected count 2, got %d", n)
	}

	first, err := store.Get(0)
	if err != nil || first != "hello" {
		t.Fatalf("unexpected item 0: %q, %v", first, err)
	}
	second, err := store.Get(1)
	if err != nil || second != "world" {
		t.Fatalf("unexpected item 1: %q, %v", second, err)
	}

	removed, ok := store.RemoveLast()
	if !ok || removed != "world" {
		t.Fatalf("unexpected removal: %q, %v", removed, ok)
	}
	if store.Count() != 1 {
		t.Fatalf("expected count 1, got %d", store.Count())
	}
	if got, _ := store.Get(0); got != "hello" {
		t.Fatalf("unexpected remaining item: %q", got)
	}

	if len(events.lists) != 3 {
		t.Fatalf("expected 3 list notifications, got %d", len(events.lists))
	}
	if last := events.lists[2]; len(last) != 1 || last[0] != "hello" {
		t.Fatalf("unexpected last notification: %v", last)
	}
}

func TestListStoreRemoveLastOnEmptyIsNoop(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	store := NewListStore(events)

	removed, ok := store.RemoveLast()
	if ok || removed != "" {
		t.Fatalf("expected no removal, got %q, %v", removed, ok)
	}
	if store.Count() != 0 {
		t.Fatalf("expected empty store, got %d", store.Count())
	}
	if len(events.lists) != 0 {
		t.Fatalf("expected no notification for no-op removal")
	}
}

func TestListStoreGetOutOfRange(t *testing.T) {
	t.Parallel()

	store := NewListStore(nil)
	store.Append("only")

	for _, index := range []int{-1, 1, 42} {
		if _, err := store.Get(index); !errors.Is(err, ErrIndexOutOfRange) {
			t.Fatalf("index %d: expected ErrIndexOutOfRange, got %v", index, err)
		}
	}
}

func TestListStoreItemsIsACopy(t *testing.T) {
	t.Parallel()

	store := NewListStore(nil)
	store.Append("a")
	items := store.Items()
	items[0] = "mutated"

	if got, _ := store.Get(0); got != "a" {
		t.Fatalf("store was mutated through snapshot: %q", got)
	}
}

func TestListStoreMatchesReferenceModel(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	store := NewListStore(nil)
	var model []string

	for step := 0; step < 500; step++ {
		if rng.Intn(3) == 0 {
			_, ok := store.RemoveLast()
			if ok != (len(model) > 0) {
				t.Fatalf("step %d: removal result %v with model size %d", step, ok, len(model))
			}
			if len(model) > 0 {
				model = model[:len(model)-1]
			}
		} else {
			text := string(rune('a' + rng.Intn(26)))
			store.Append(text)
			model = append(model, text)
		}

		if store.Count() != len(model) {
			t.Fatalf("step %d: count %d, want %d", step, store.Count(), len(model))
		}
	}

	for i, want := range model {
		got, err := store.Get(i)
		if err != nil || got != want {
			t.Fatalf("item %d: got %q (%v), want %q", i, got, err, want)
		}
	}
}
