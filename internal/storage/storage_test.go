package storage_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/voxbot-dev/voxbot/internal/storage"
)

func openTestManager(t *testing.T) *storage.Manager {
	t.Helper()
	m, err := storage.Open(filepath.Join(t.TempDir(), "voxbot.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestPutGetRoundTrip(t *testing.T) {
	m := openTestManager(t)
	s := m.Store("guess")

	if err := s.Put("wins:U1", []byte("3")); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.Get("wins:U1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "3" {
		t.Errorf("got %q, want %q", got, "3")
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	m := openTestManager(t)
	s := m.Store("guess")

	got, err := s.Get("absent")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for absent key, got %q", got)
	}
}

func TestPutOverwrites(t *testing.T) {
	m := openTestManager(t)
	s := m.Store("p")

	s.Put("k", []byte("old"))
	s.Put("k", []byte("new"))

	got, _ := s.Get("k")
	if string(got) != "new" {
		t.Errorf("got %q, want %q", got, "new")
	}
}

func TestNamespaceIsolation(t *testing.T) {
	m := openTestManager(t)
	a := m.Store("alpha")
	b := m.Store("beta")

	a.Put("k", []byte("from-a"))

	got, err := b.Get("k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("plugin beta must not see plugin alpha's keys")
	}
}

func TestDeleteAndKeys(t *testing.T) {
	m := openTestManager(t)
	s := m.Store("p")

	s.Put("b", []byte("2"))
	s.Put("a", []byte("1"))
	if err := s.Delete("b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete("never-existed"); err != nil {
		t.Fatalf("deleting absent key must not error: %v", err)
	}

	keys, err := s.Keys()
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != "a" {
		t.Errorf("keys = %v, want [a]", keys)
	}
}

func TestReleasedHandleErrors(t *testing.T) {
	m := openTestManager(t)
	s := m.Store("p")
	s.Release()

	if _, err := s.Get("k"); !errors.Is(err, storage.ErrClosed) {
		t.Errorf("get on released handle = %v, want ErrClosed", err)
	}
	if err := s.Put("k", nil); !errors.Is(err, storage.ErrClosed) {
		t.Errorf("put on released handle = %v, want ErrClosed", err)
	}
}

func TestDataSurvivesReload(t *testing.T) {
	m := openTestManager(t)

	s := m.Store("p")
	s.Put("k", []byte("v"))
	s.Release()

	// A fresh handle for the same plugin sees the old rows.
	s2 := m.Store("p")
	got, err := s2.Get("k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "v" {
		t.Error("values must survive a release/reopen cycle")
	}
}
