package keydir

import (
	"time"

	"github.com/google/btree"
)

const btreeDegree = 32

// Entry points at the encoded bytes of the latest record for a key
type Entry struct {
	// FileID is the path of the segment holding the record
	FileID string
	// EntrySize is the length of the encoded record, without the line terminator
	EntrySize uint32
	// EntryPos is the offset to the start of the record
	EntryPos  int64
	Timestamp time.Time
}

type item struct {
	key   string
	entry Entry
}

func itemLess(a, b item) bool {
	return a.key < b.key
}

// Keydir is the in-memory index of all live keys. It does not order updates, the last Insert always wins,
// and it does not hold any file handles. Keys are kept sorted so that listing and iteration are deterministic
type Keydir struct {
	tree *btree.BTreeG[item]
}

// NewKeydir initializes a new Keydir
func NewKeydir() *Keydir {
	return &Keydir{
		tree: btree.NewG(btreeDegree, itemLess),
	}
}

// Insert adds or replaces the entry for key
func (k *Keydir) Insert(key string, entry Entry) {
	k.tree.ReplaceOrInsert(item{key: key, entry: entry})
}

// Lookup retrieves the entry for key
func (k *Keydir) Lookup(key string) (Entry, bool) {
	it, exists := k.tree.Get(item{key: key})
	return it.entry, exists
}

func (k *Keydir) Remove(key string) {
	k.tree.Delete(item{key: key})
}

// Keys returns all keys in ascending order
func (k *Keydir) Keys() []string {
	keys := make([]string, 0, k.tree.Len())
	k.tree.Ascend(func(it item) bool {
		keys = append(keys, it.key)
		return true
	})
	return keys
}

// Ascend calls fn for every key in ascending order until fn returns false
func (k *Keydir) Ascend(fn func(key string, entry Entry) bool) {
	k.tree.Ascend(func(it item) bool {
		return fn(it.key, it.entry)
	})
}

// RepointFile moves every entry stored in the segment from to the segment to. Offsets are kept as is, so this
// is only valid when to is a byte-for-byte copy of from. It returns the number of entries that were moved
func (k *Keydir) RepointFile(from, to string) int {
	var moved []item
	k.tree.Ascend(func(it item) bool {
		if it.entry.FileID == from {
			moved = append(moved, it)
		}
		return true
	})
	for _, it := range moved {
		it.entry.FileID = to
		k.tree.ReplaceOrInsert(it)
	}
	return len(moved)
}

func (k *Keydir) Size() int {
	return k.tree.Len()
}
