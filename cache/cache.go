// Package cache persists the last address confirmed written for each managed
// record, so restarts do not trigger redundant provider writes.
package cache

import (
	"encoding/json"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wolfizen/ddnswolf/provider"
)

type entry struct {
	Address   netip.Addr `json:"address"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type fileData struct {
	Records map[string]entry `json:"records"`
}

// File is a JSON-backed state store, safe for concurrent use by the record
// goroutines. An unreadable or corrupt file degrades to an empty store: the
// next cycle falls back to reading the authoritative value.
type File struct {
	path string

	mu   sync.Mutex
	data fileData
}

func Open(path string) *File {
	f := &File{path: path, data: fileData{Records: map[string]entry{}}}
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", path).Msg("state file unreadable, starting empty")
		}
		return f
	}
	var data fileData
	if err := json.Unmarshal(raw, &data); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("state file corrupt, starting empty")
		return f
	}
	if data.Records != nil {
		f.data = data
	}
	return f
}

// Get reports the last confirmed address for rec and when it was confirmed.
func (f *File) Get(rec provider.Record) (netip.Addr, time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.data.Records[rec.Key()]
	if !ok || !e.Address.IsValid() {
		return netip.Addr{}, time.Time{}, false
	}
	return e.Address, e.UpdatedAt, true
}

// Put records addr as the confirmed value for rec and persists the whole
// store atomically (write-then-rename). Call only after the authoritative
// value was observed or written.
func (f *File) Put(rec provider.Record, addr netip.Addr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data.Records[rec.Key()] = entry{Address: addr, UpdatedAt: time.Now()}
	return f.persist()
}

func (f *File) persist() error {
	raw, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
