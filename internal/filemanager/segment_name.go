package filemanager

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const (
	SegmentExt        = ".btk"
	HintExt           = ".hint"
	ActiveSegmentName = "activelog" + SegmentExt
	mergePrefix       = "merge-"
	tempExt           = ".tmp"
)

// NewSegmentID returns a unique identifier for an archived segment. Version 7 UUIDs start with the
// creation time, so identifiers generated later sort after earlier ones
func NewSegmentID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func GetSegmentFileName(identifier string) string {
	return identifier + SegmentExt
}

// GetHintFilePath returns the path of the hint file belonging to the given segment
func GetHintFilePath(segmentPath string) string {
	return strings.TrimSuffix(segmentPath, SegmentExt) + HintExt
}

func IsActiveSegment(path string) bool {
	return filepath.Base(path) == ActiveSegmentName
}

// ListSegments returns the paths of all segment files in dir. Archived segments come first sorted by name
// (oldest first), followed by the active segment if it exists. Directories and files without the segment
// extension are skipped
func ListSegments(fs afero.Fs, dir string) ([]string, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, err
	}

	var archived []string
	hasActive := false
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) != SegmentExt {
			continue
		}
		if name == ActiveSegmentName {
			hasActive = true
			continue
		}
		archived = append(archived, name)
	}
	sort.Strings(archived)

	paths := make([]string, 0, len(archived)+1)
	for _, name := range archived {
		paths = append(paths, filepath.Join(dir, name))
	}
	if hasActive {
		paths = append(paths, filepath.Join(dir, ActiveSegmentName))
	}
	return paths, nil
}
