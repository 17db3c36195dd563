package record

import (
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func TestNewScanner(t *testing.T) {
	fs := afero.NewMemMapFs()
	testFilePath := "/testfile.btk"
	afero.WriteFile(fs, testFilePath, nil, 0644)

	scanner, err := NewScanner(fs, testFilePath)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer scanner.Close()

	if scanner.fs == nil {
		t.Fatal("expected fs to be initialized")
	}
	if scanner.file == nil {
		t.Fatal("expected file to be initialized")
	}
	if scanner.reader == nil {
		t.Fatal("expected reader to be initialized")
	}
	if _, _, _, err := scanner.Scan(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF on empty file, got %v", err)
	}
}

func TestScanner_Scan(t *testing.T) {
	fs := afero.NewMemMapFs()
	testFilePath, locations := createTestFile(t, fs, testData)

	scanner, err := NewScanner(fs, testFilePath)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer scanner.Close()

	for i, kv := range testData {
		record, offset, size, err := scanner.Scan()
		if err != nil {
			t.Fatalf("expected no error on scan, got %v", err)
		}
		if record.Key != kv.key || record.Value != kv.value {
			t.Errorf("expected key %q and value %q, got key %q and value %q", kv.key, kv.value, record.Key, record.Value)
		}
		if offset != locations[i].offset || size != locations[i].size {
			t.Errorf("record %d: expected offset %d size %d, got offset %d size %d",
				i, locations[i].offset, locations[i].size, offset, size)
		}
	}
	if _, _, _, err := scanner.Scan(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF after last record, got %v", err)
	}
}

func TestScanner_TrailingRecordWithoutTerminator(t *testing.T) {
	fs := afero.NewMemMapFs()
	encoded, err := Encode(NewPut("key", "value", time.Now()))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	afero.WriteFile(fs, "torn.btk", encoded, 0644)

	scanner, err := NewScanner(fs, "torn.btk")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer scanner.Close()
	rec, offset, size, err := scanner.Scan()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Key != "key" || offset != 0 || int(size) != len(encoded) {
		t.Errorf("unexpected record %+v at offset %d size %d", rec, offset, size)
	}
}

func TestScanner_Corrupted(t *testing.T) {
	fs := afero.NewMemMapFs()
	testFilePath, _ := createTestFile(t, fs, testData[:2])
	f, err := fs.OpenFile(testFilePath, os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("could not open file: %v", err)
	}
	f.Seek(0, io.SeekEnd)
	f.Write([]byte("{\"key\": \"trunc"))
	f.Close()

	scanner, err := NewScanner(fs, testFilePath)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer scanner.Close()
	for range 2 {
		if _, _, _, err := scanner.Scan(); err != nil {
			t.Fatalf("expected no error on valid records, got %v", err)
		}
	}
	if _, _, _, err := scanner.Scan(); !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode on truncated record, got %v", err)
	}
}
