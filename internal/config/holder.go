package config

import "sync/atomic"

// Holder is the live config shared by the server, the orchestrator and the
// file watcher. Readers take a snapshot per request; a reload swaps the
// pointer, so walks already in flight finish on the config they started with.
type Holder struct {
	cfg  atomic.Pointer[Config]
	path string
}

// NewHolder returns a Holder serving cfg, loaded from path ("" when the
// config came from defaults and the environment only).
func NewHolder(cfg *Config, path string) *Holder {
	h := &Holder{path: path}
	h.cfg.Store(cfg)

	return h
}

// Config returns the current snapshot. Callers must not modify it.
func (h *Holder) Config() *Config {
	return h.cfg.Load()
}

// Path is the file the config was loaded from.
func (h *Holder) Path() string {
	return h.path
}

// Update publishes cfg to subsequent Config calls.
func (h *Holder) Update(cfg *Config) {
	h.cfg.Store(cfg)
}
