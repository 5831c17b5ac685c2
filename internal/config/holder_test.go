package config

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHolder_SnapshotAndPath(t *testing.T) {
	cfg := DefaultConfig()
	h := NewHolder(cfg, "/etc/spwalk/config.toml")

	assert.Same(t, cfg, h.Config())
	assert.Equal(t, "/etc/spwalk/config.toml", h.Path())
}

func TestHolder_UpdateLeavesOldSnapshotIntact(t *testing.T) {
	h := NewHolder(DefaultConfig(), "")

	inFlight := h.Config()

	next := DefaultConfig()
	next.Selection.FolderPath = "Documents/Contracts"
	h.Update(next)

	assert.Same(t, next, h.Config())
	assert.Empty(t, inFlight.Selection.FolderPath)
}

func TestHolder_ConcurrentReloads(t *testing.T) {
	h := NewHolder(DefaultConfig(), "")

	var wg sync.WaitGroup

	for i := range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range 200 {
				if i%4 == 0 {
					h.Update(DefaultConfig())
					continue
				}

				assert.NotEmpty(t, h.Config().Graph.Site)
			}
		}()
	}

	wg.Wait()
}
