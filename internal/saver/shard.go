package saver

import (
	"fmt"
	"os"
	"path/filepath"
)

// shardPrefix names the capacity-bounded subdirectories under the save root.
const shardPrefix = "DET"

// selectShard picks the shard directory the next batch writes into, creating
// it if needed, and returns its path and index.
//
// The capacity check runs once per batch at ingress, not per file: a batch
// larger than the remaining shard capacity advances to the next shard, but a
// batch admitted into a shard may push it slightly over maxPerShard. Shard
// state is derived from the filesystem every call so a process restart
// resumes correctly.
func selectShard(root string, batchSize, maxPerShard int) (string, int, error) {
	idx := 0
	for {
		path := filepath.Join(root, fmt.Sprintf("%s%d", shardPrefix, idx))
		entries, err := os.ReadDir(path)
		if os.IsNotExist(err) {
			if err := os.MkdirAll(path, 0755); err != nil {
				return "", 0, fmt.Errorf("create shard %s: %w", path, err)
			}
			return path, idx, nil
		}
		if err != nil {
			return "", 0, fmt.Errorf("list shard %s: %w", path, err)
		}
		if len(entries)+batchSize > maxPerShard {
			idx++
			continue
		}
		return path, idx, nil
	}
}
