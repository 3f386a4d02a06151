package storage

import (
	"context"
	"errors"
	"testing"
)

func TestMockStorage_PutAndGet(t *testing.T) {
	m := NewMockStorage()
	ctx := context.Background()

	if err := m.Put(ctx, "save:1", []byte(`{"slot":1}`)); err != nil {
		t.Fatalf("Failed to put record: %v", err)
	}

	data, err := m.Get(ctx, "save:1")
	if err != nil {
		t.Fatalf("Failed to get record: %v", err)
	}
	if string(data) != `{"slot":1}` {
		t.Errorf("Expected stored record, got %q", data)
	}

	// Returned bytes are a copy.
	data[0] = 'x'
	again, _ := m.Get(ctx, "save:1")
	if string(again) != `{"slot":1}` {
		t.Errorf("Record was mutated through returned slice: %q", again)
	}
}

func TestMockStorage_GetMissing(t *testing.T) {
	m := NewMockStorage()

	data, err := m.Get(context.Background(), "save:9")
	if err != nil {
		t.Fatalf("Expected no error for missing key, got: %v", err)
	}
	if data != nil {
		t.Errorf("Expected nil data for missing key, got %q", data)
	}
}

func TestMockStorage_KeysAndDelete(t *testing.T) {
	m := NewMockStorage()
	ctx := context.Background()

	for _, k := range []string{"save:2", "settings", "save:0", "save:1"} {
		if err := m.Put(ctx, k, []byte("{}")); err != nil {
			t.Fatalf("Failed to put %s: %v", k, err)
		}
	}

	keys, err := m.Keys(ctx, "save:")
	if err != nil {
		t.Fatalf("Failed to list keys: %v", err)
	}
	want := []string{"save:0", "save:1", "save:2"}
	if len(keys) != len(want) {
		t.Fatalf("Expected %v, got %v", want, keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Expected key %d to be %s, got %s", i, want[i], keys[i])
		}
	}

	if err := m.Delete(ctx, "save:1"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if err := m.Delete(ctx, "save:1"); err != nil {
		t.Fatalf("Deleting a missing key should not fail: %v", err)
	}
	keys, _ = m.Keys(ctx, "save:")
	if len(keys) != 2 {
		t.Errorf("Expected 2 keys after delete, got %v", keys)
	}
}

func TestMockStorage_Errors(t *testing.T) {
	m := NewMockStorage()
	ctx := context.Background()
	boom := errors.New("disk full")

	m.SetPutError(boom)
	if err := m.Put(ctx, "k", []byte("v")); !errors.Is(err, boom) {
		t.Errorf("Expected put error, got %v", err)
	}
	if m.Puts() != 0 {
		t.Errorf("Expected no successful puts, got %d", m.Puts())
	}

	m.SetPingError(boom)
	if err := m.Ping(ctx); !errors.Is(err, boom) {
		t.Errorf("Expected ping error, got %v", err)
	}
	m.SetPingSuccess()
	if err := m.Ping(ctx); err != nil {
		t.Errorf("Expected ping success, got %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := m.Get(cancelled, "k"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context error, got %v", err)
	}
}
