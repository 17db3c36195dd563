// bitcask-load fills a data directory with generated records, and reports the write throughput and the time
// taken to reopen the directory
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/ananthvk/bitcask"
	"github.com/spf13/afero"
)

// UserProfile mimics a real-world document
type UserProfile struct {
	ID       string            `json:"id"`
	Username string            `json:"username"`
	Email    string            `json:"email"`
	IsActive bool              `json:"is_active"`
	Age      int               `json:"age"`
	Tags     []string          `json:"tags"`
	Metadata map[string]string `json:"metadata"`
	// Payload is used to pad the record to a specific size
	Payload string `json:"payload,omitempty"`
}

const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomString(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}

func generateJSON(targetSize int) (string, []byte) {
	key := fmt.Sprintf("user:%s", randomString(16))
	user := UserProfile{
		ID:       key,
		Username: randomString(8),
		Email:    fmt.Sprintf("%s@example.com", randomString(8)),
		IsActive: rand.Intn(2) == 1,
		Age:      rand.Intn(60) + 18,
		Tags:     []string{"developer", "golang", "db-engine", "benchmark"},
		Metadata: map[string]string{
			"login_ip": "192.168.1.1",
			"device":   "MacBook Pro",
		},
	}
	// Marshal once to see the base size, then pad up to the target
	baseBytes, _ := json.Marshal(user)
	if targetSize > len(baseBytes) {
		user.Payload = randomString(targetSize - len(baseBytes))
	}
	finalBytes, _ := json.Marshal(user)
	return key, finalBytes
}

func generateRandom(targetSize int) (string, []byte) {
	return randomString(rand.Intn(30) + 15), []byte(randomString(targetSize))
}

func main() {
	numOps := flag.Int("n", 10000, "Total number of records to write")
	targetSize := flag.Int("size", 1024, "Target size of a value in bytes")
	dbPath := flag.String("db", "./data", "Path to the data directory")
	asJSON := flag.Bool("json", false, "Write JSON documents instead of random strings")
	removeEvery := flag.Int("remove-every", 0, "Remove a previously written key every n writes (0 disables removals)")
	maxSegmentSize := flag.Int64("max-segment-size", bitcask.DefaultMaxSegmentSize, "Rotation threshold of the active segment")
	merge := flag.Bool("merge", false, "Merge archived segments after writing")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	fs := afero.NewOsFs()
	store, err := bitcask.Open(fs, *dbPath, bitcask.WithMaxSegmentSize(*maxSegmentSize), bitcask.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "(error) OPEN: %s\n", err)
		os.Exit(1)
	}

	generate := generateRandom
	if *asJSON {
		generate = generateJSON
	}

	fmt.Printf("Writing %d records (size: ~%d bytes each)...\n", *numOps, *targetSize)
	start := time.Now()
	var written []string
	removed := 0
	for i := range *numOps {
		key, value := generate(*targetSize)
		if err := store.Put([]byte(key), value); err != nil {
			fmt.Fprintf(os.Stderr, "write error: %v\n", err)
			continue
		}
		written = append(written, key)
		if *removeEvery > 0 && i%*removeEvery == *removeEvery-1 {
			victim := written[rand.Intn(len(written))]
			if err := store.Remove([]byte(victim)); err == nil {
				removed++
			}
		}
		if i%1000 == 0 && i > 0 {
			fmt.Printf("\rWrote %d/%d records...", i, *numOps)
		}
	}
	if err := store.Sync(); err != nil {
		fmt.Fprintf(os.Stderr, "(error) SYNC: %s\n", err)
		os.Exit(1)
	}
	elapsed := time.Since(start)
	fmt.Printf("\nWrote %d records (%d removed) in %s\n", *numOps, removed, elapsed)
	fmt.Printf("Throughput: %.2f records/sec\n", float64(*numOps)/elapsed.Seconds())

	if *merge {
		start = time.Now()
		if err := store.Merge(); err != nil {
			fmt.Fprintf(os.Stderr, "(error) MERGE: %s\n", err)
			os.Exit(1)
		}
		fmt.Printf("Merged in %s\n", time.Since(start))
	}
	if err := store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "(error) CLOSE: %s\n", err)
		os.Exit(1)
	}

	start = time.Now()
	store, err = bitcask.Open(fs, *dbPath, bitcask.WithMaxSegmentSize(*maxSegmentSize), bitcask.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "(error) REOPEN: %s\n", err)
		os.Exit(1)
	}
	fmt.Printf("Reopened with %d keys in %s\n", store.Size(), time.Since(start))
	store.Close()
}
