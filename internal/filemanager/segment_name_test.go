package filemanager

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/spf13/afero"
)

func TestNewSegmentIDSortable(t *testing.T) {
	var ids []string
	for range 100 {
		id, err := NewSegmentID()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		ids = append(ids, id)
	}
	if !slices.IsSorted(ids) {
		t.Errorf("expected identifiers to be generated in sorted order")
	}
}

func TestListSegments(t *testing.T) {
	fs := afero.NewMemMapFs()
	fs.MkdirAll("db/nested.btk", os.ModePerm)
	for _, name := range []string{
		ActiveSegmentName,
		"0190a000-0000-7000-8000-000000000002.btk",
		"0190a000-0000-7000-8000-000000000001.btk",
		"0190a000-0000-7000-8000-000000000001.hint",
		"LOCK",
		"notes.txt",
	} {
		afero.WriteFile(fs, filepath.Join("db", name), nil, 0644)
	}

	segments, err := ListSegments(fs, "db")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	expected := []string{
		filepath.Join("db", "0190a000-0000-7000-8000-000000000001.btk"),
		filepath.Join("db", "0190a000-0000-7000-8000-000000000002.btk"),
		filepath.Join("db", ActiveSegmentName),
	}
	if !slices.Equal(segments, expected) {
		t.Errorf("expected %v, got %v", expected, segments)
	}
}

func TestListSegmentsMissingDirectory(t *testing.T) {
	if _, err := ListSegments(afero.NewMemMapFs(), "missing"); err == nil {
		t.Errorf("expected error listing a missing directory")
	}
}

func TestGetHintFilePath(t *testing.T) {
	got := GetHintFilePath(filepath.Join("db", "abc.btk"))
	if got != filepath.Join("db", "abc.hint") {
		t.Errorf("unexpected hint path %s", got)
	}
}
