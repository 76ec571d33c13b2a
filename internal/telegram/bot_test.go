package telegram

import (
	"sync"
	"testing"
)

func TestLockForIsBounded(t *testing.T) {
	var b Bot
	seen := map[*sync.Mutex]bool{}
	for id := int64(-500); id < 10_000; id++ {
		mu := b.lockFor(id)
		if mu != b.lockFor(id) {
			t.Fatalf("user %d got two different locks", id)
		}
		seen[mu] = true
	}
	if len(seen) > lockShards {
		t.Errorf("locks = %d, want at most %d", len(seen), lockShards)
	}
}
