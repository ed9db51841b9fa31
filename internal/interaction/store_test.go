package interaction_test

import (
	"sync"
	"testing"

	"github.com/voxbot-dev/voxbot/internal/interaction"
)

func TestTakeIsDestructive(t *testing.T) {
	s := interaction.NewStore()
	s.Set("u|c", interaction.Pending{PluginID: "echo", Name: "text"})

	first := s.Take("u|c")
	if first == nil {
		t.Fatal("expected pending interaction on first take")
	}
	if first.PluginID != "echo" || first.Name != "text" {
		t.Errorf("unexpected handler ref %s/%s", first.PluginID, first.Name)
	}

	if second := s.Take("u|c"); second != nil {
		t.Error("second take without intervening set must return nil")
	}
}

func TestTakeMissing(t *testing.T) {
	s := interaction.NewStore()
	if p := s.Take("missing"); p != nil {
		t.Error("expected nil for missing key")
	}
}

func TestSetOverwrites(t *testing.T) {
	s := interaction.NewStore()
	s.Set("k", interaction.Pending{PluginID: "a", Name: "one", State: []byte("1")})
	s.Set("k", interaction.Pending{PluginID: "b", Name: "two", State: []byte("2")})

	if s.Len() != 1 {
		t.Fatalf("expected 1 pending, got %d", s.Len())
	}

	p := s.Take("k")
	if p == nil || p.PluginID != "b" || string(p.State) != "2" {
		t.Error("set must overwrite the previous continuation, no queueing")
	}
}

func TestKeyAndCreatedAtPopulated(t *testing.T) {
	s := interaction.NewStore()
	s.Set("k", interaction.Pending{PluginID: "p", Name: "n"})

	p := s.Take("k")
	if p.Key != "k" {
		t.Errorf("Key = %q, want %q", p.Key, "k")
	}
	if p.CreatedAt.IsZero() {
		t.Error("CreatedAt must be populated on set")
	}
}

func TestConcurrentTakeSingleWinner(t *testing.T) {
	s := interaction.NewStore()
	s.Set("k", interaction.Pending{PluginID: "p", Name: "n"})

	const goroutines = 16
	var wg sync.WaitGroup
	wins := make(chan *interaction.Pending, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if p := s.Take("k"); p != nil {
				wins <- p
			}
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	if count != 1 {
		t.Errorf("exactly one taker must win, got %d", count)
	}
}
