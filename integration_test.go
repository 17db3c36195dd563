package bitcask_test

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/ananthvk/bitcask"
	"github.com/spf13/afero"
)

func openOnDisk(t *testing.T, dbPath string, maxSegmentSize int64) *bitcask.DataStore {
	t.Helper()
	store, err := bitcask.Open(afero.NewOsFs(), dbPath,
		bitcask.WithMaxSegmentSize(maxSegmentSize),
		bitcask.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		t.Fatalf("failed to open datastore: %v", err)
	}
	return store
}

func closeStore(t *testing.T, store *bitcask.DataStore) {
	t.Helper()
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close datastore: %v", err)
	}
}

func TestManyWritesToSameValue(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping in short mode")
	}
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store := openOnDisk(t, dbPath, bitcask.DefaultMaxSegmentSize)
	for i := range 50 {
		if err := store.Put(fmt.Appendf(nil, "initial_key_%d", i), []byte(strconv.Itoa(i))); err != nil {
			t.Fatalf("failed to put initial key: %v", err)
		}
	}
	specialKey := []byte("thequickbrownfoxjumpsoverthelazydogs")
	counter := 0
	if err := store.Put(specialKey, []byte(strconv.Itoa(counter))); err != nil {
		t.Fatalf("failed to put special key: %v", err)
	}
	closeStore(t, store)

	// Reopen with a small segment size, so that every few writes rotate the active segment
	store = openOnDisk(t, dbPath, 1024)
	for i := range 10000 {
		counter++
		if err := store.Put(specialKey, []byte(strconv.Itoa(counter))); err != nil {
			t.Fatalf("failed to put special key at iteration %d: %v", i, err)
		}
	}
	closeStore(t, store)

	store = openOnDisk(t, dbPath, 1024)
	val, err := store.Get(specialKey)
	if err != nil {
		t.Fatalf("failed to get special key: %v", err)
	}
	if string(val) != strconv.Itoa(counter) {
		t.Errorf("expected counter %d, got %s", counter, val)
	}
	if err := store.Merge(); err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	for i := range 2500 {
		counter++
		if err := store.Put(specialKey, []byte(strconv.Itoa(counter))); err != nil {
			t.Fatalf("failed to put special key at iteration %d (second batch): %v", i, err)
		}
	}
	if err := store.Merge(); err != nil {
		t.Fatalf("second merge failed: %v", err)
	}
	closeStore(t, store)

	store = openOnDisk(t, dbPath, 1024)
	defer store.Close()
	val, err = store.Get(specialKey)
	if err != nil {
		t.Fatalf("failed to get special key for final verification: %v", err)
	}
	if string(val) != "12500" {
		t.Errorf("expected final counter 12500, got %s", val)
	}
	if store.Size() != 51 {
		t.Errorf("expected 51 keys, got %d", store.Size())
	}
}

func TestWritesAndMerges(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store := openOnDisk(t, dbPath, 2048)

	numKeys := 500
	for i := range numKeys {
		if err := store.Put(fmt.Appendf(nil, "key_%d", i), fmt.Appendf(nil, "initial_value_%d", i)); err != nil {
			t.Fatalf("failed to put key: %v", err)
		}
	}
	closeStore(t, store)

	store = openOnDisk(t, dbPath, 2048)
	for i := range 200 {
		if err := store.Put(fmt.Appendf(nil, "second_batch_key_%d", i), fmt.Appendf(nil, "second_value_%d", i)); err != nil {
			t.Fatalf("failed to put second batch key: %v", err)
		}
	}
	keysToUpdate := 100
	for i := range keysToUpdate {
		if err := store.Put(fmt.Appendf(nil, "key_%d", i), fmt.Appendf(nil, "updated_value_%d", i)); err != nil {
			t.Fatalf("failed to update key: %v", err)
		}
	}

	if err := store.Merge(); err != nil {
		t.Fatalf("first merge failed: %v", err)
	}
	keys, err := store.ListKeys()
	if err != nil {
		t.Fatalf("failed to list keys after merge: %v", err)
	}
	if len(keys) != numKeys+200 {
		t.Errorf("expected %d keys after merge, got %d", numKeys+200, len(keys))
	}
	for i := range keysToUpdate + 10 {
		expected := fmt.Sprintf("updated_value_%d", i)
		if i >= keysToUpdate {
			expected = fmt.Sprintf("initial_value_%d", i)
		}
		val, err := store.Get(fmt.Appendf(nil, "key_%d", i))
		if err != nil {
			t.Errorf("failed to get key_%d after merge: %v", i, err)
		}
		if string(val) != expected {
			t.Errorf("key_%d: expected %s, got %s", i, expected, val)
		}
	}

	keysToDelete := 50
	for i := range keysToDelete {
		if err := store.Remove(fmt.Appendf(nil, "second_batch_key_%d", i)); err != nil {
			t.Fatalf("failed to remove key: %v", err)
		}
	}
	for i := 200; i < 300; i++ {
		if err := store.Put(fmt.Appendf(nil, "second_batch_key_%d", i), fmt.Appendf(nil, "second_value_%d", i)); err != nil {
			t.Fatalf("failed to put key: %v", err)
		}
	}
	if err := store.Merge(); err != nil {
		t.Fatalf("second merge failed: %v", err)
	}
	for i := range keysToDelete {
		if _, err := store.Get(fmt.Appendf(nil, "second_batch_key_%d", i)); !errors.Is(err, bitcask.ErrKeyNotFound) {
			t.Errorf("expected ErrKeyNotFound for removed key second_batch_key_%d, got %v", i, err)
		}
	}
	closeStore(t, store)

	store = openOnDisk(t, dbPath, 2048)
	defer store.Close()
	finalKeys, err := store.ListKeys()
	if err != nil {
		t.Fatalf("failed to list keys in final verification: %v", err)
	}
	expectedFinalKeys := numKeys + (200 - keysToDelete) + 100
	if len(finalKeys) != expectedFinalKeys {
		t.Errorf("expected final key count %d, got %d", expectedFinalKeys, len(finalKeys))
	}
	for i := range keysToDelete {
		if _, err := store.Get(fmt.Appendf(nil, "second_batch_key_%d", i)); !errors.Is(err, bitcask.ErrKeyNotFound) {
			t.Errorf("removed key second_batch_key_%d came back after reopen: %v", i, err)
		}
	}
}

func TestLargeValuesWithMerge(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "large_values.db")
	store := openOnDisk(t, dbPath, 4096)

	pattern := func(size int, base byte) []byte {
		value := make([]byte, size)
		for i := range value {
			value[i] = base + byte(i%26)
		}
		return value
	}
	testCases := []struct {
		key  string
		size int
	}{
		{"small", 100},
		{"medium", 1024},
		{"large", 2048},
		{"xlarge", 3072},
		{"oversized", 10000},
	}
	for _, tc := range testCases {
		if err := store.Put([]byte(tc.key), pattern(tc.size, 'A')); err != nil {
			t.Fatalf("failed to put large value %s: %v", tc.key, err)
		}
	}
	closeStore(t, store)

	store = openOnDisk(t, dbPath, 4096)
	defer store.Close()
	for _, tc := range testCases[:2] {
		if err := store.Put([]byte(tc.key), pattern(tc.size*2, 'a')); err != nil {
			t.Fatalf("failed to update large value %s: %v", tc.key, err)
		}
	}
	if err := store.Merge(); err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	for i, tc := range testCases {
		expected := pattern(tc.size, 'A')
		if i < 2 {
			expected = pattern(tc.size*2, 'a')
		}
		val, err := store.Get([]byte(tc.key))
		if err != nil {
			t.Errorf("failed to get key %s after merge: %v", tc.key, err)
			continue
		}
		if !bytes.Equal(val, expected) {
			t.Errorf("key %s: value mismatch, expected %d bytes, got %d", tc.key, len(expected), len(val))
		}
	}
}

func TestRapidOpenCloseCycles(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "openclose.db")
	for cycle := range 20 {
		store := openOnDisk(t, dbPath, 512)
		if store.Size() != cycle {
			t.Fatalf("cycle %d: expected %d keys, got %d", cycle, cycle, store.Size())
		}
		if err := store.Put(fmt.Appendf(nil, "cycle_%d", cycle), []byte(strconv.Itoa(cycle))); err != nil {
			t.Fatalf("failed to put in cycle %d: %v", cycle, err)
		}
		if cycle%5 == 4 {
			if err := store.Merge(); err != nil {
				t.Fatalf("merge failed in cycle %d: %v", cycle, err)
			}
		}
		closeStore(t, store)
	}
}
