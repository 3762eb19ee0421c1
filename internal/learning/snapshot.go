package learning

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"

	"layoutd/internal/layout"
)

// snapshotVersion is bumped on incompatible snapshot layout changes.
const snapshotVersion = 1

// ErrChecksum is returned when a loaded snapshot fails verification.
var ErrChecksum = errors.New("learning: snapshot checksum mismatch")

// snapshot is the persisted form of the store.
type snapshot struct {
	Version    int                           `json:"version"`
	SavedAt    time.Time                     `json:"saved_at"`
	Checksum   string                        `json:"checksum,omitempty"`
	Words      map[string]*WordPreference    `json:"words"`
	Contexts   map[string]*ContextPattern    `json:"contexts"`
	GlobalBias map[string]float64            `json:"global_bias"`
	AppBias    map[string]map[string]float64 `json:"app_bias"`
	HourBias   [24]map[string]float64        `json:"hour_bias"`
}

// Export serializes the store to a JSON blob with an embedded blake2b
// checksum over the payload.
func (s *Store) Export() ([]byte, error) {
	s.mu.RLock()
	snap := snapshot{
		Version:    snapshotVersion,
		SavedAt:    time.Now(),
		Words:      s.words,
		Contexts:   s.contexts,
		GlobalBias: langMapOut(s.globalBias),
		AppBias:    make(map[string]map[string]float64, len(s.appBias)),
	}
	for app, m := range s.appBias {
		snap.AppBias[app] = langMapOut(m)
	}
	for i, m := range s.hourBias {
		snap.HourBias[i] = langMapOut(m)
	}
	payload, err := json.Marshal(snap)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}

	sum := blake2b.Sum256(payload)
	snap.Checksum = hex.EncodeToString(sum[:])
	return json.Marshal(struct {
		Checksum string          `json:"checksum"`
		Payload  json.RawMessage `json:"payload"`
	}{snap.Checksum, payload})
}

// Import replaces the store contents from an Export blob after verifying
// its checksum.
func (s *Store) Import(blob []byte) error {
	var wrapper struct {
		Checksum string          `json:"checksum"`
		Payload  json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(blob, &wrapper); err != nil {
		return fmt.Errorf("unmarshal snapshot: %w", err)
	}

	sum := blake2b.Sum256(wrapper.Payload)
	if hex.EncodeToString(sum[:]) != wrapper.Checksum {
		return ErrChecksum
	}

	var snap snapshot
	if err := json.Unmarshal(wrapper.Payload, &snap); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("learning: unsupported snapshot version %d", snap.Version)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.words = snap.Words
	if s.words == nil {
		s.words = make(map[string]*WordPreference)
	}
	s.contexts = snap.Contexts
	if s.contexts == nil {
		s.contexts = make(map[string]*ContextPattern)
	}
	s.globalBias = langMapIn(snap.GlobalBias)
	s.appBias = make(map[string]map[layout.Language]float64, len(snap.AppBias))
	for app, m := range snap.AppBias {
		s.appBias[app] = langMapIn(m)
	}
	for i := range s.hourBias {
		s.hourBias[i] = langMapIn(snap.HourBias[i])
	}
	s.dirty = false
	return nil
}

func langMapOut(m map[layout.Language]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for lang, w := range m {
		out[lang.String()] = w
	}
	return out
}

func langMapIn(m map[string]float64) map[layout.Language]float64 {
	out := make(map[layout.Language]float64, len(m))
	for name, w := range m {
		lang, err := layout.Parse(name)
		if err != nil {
			continue
		}
		out[lang] = w
	}
	return out
}

// LoadPersisted loads the last saved snapshot, if any. A missing or
// corrupt snapshot is logged and ignored; the store starts empty.
func (s *Store) LoadPersisted() {
	if s.persistence == nil {
		return
	}
	blob, err := s.persistence.Load()
	if err != nil || len(blob) == 0 {
		if err != nil {
			s.log.Warn("load snapshot failed, starting empty", "error", err)
		}
		return
	}
	if err := s.Import(blob); err != nil {
		s.log.Warn("import snapshot failed, starting empty", "error", err)
	}
}

// Flush persists the store now, regardless of the dirty flag.
func (s *Store) Flush() error {
	if s.persistence == nil {
		return nil
	}
	blob, err := s.Export()
	if err != nil {
		return err
	}
	if err := s.persistence.Save(blob); err != nil {
		s.mu.Lock()
		s.saveFailures++
		s.mu.Unlock()
		return err
	}
	s.mu.Lock()
	s.dirty = false
	s.lastSaved = time.Now()
	s.mu.Unlock()
	return nil
}

// Run persists the store periodically and applies decay sweeps until the
// context is cancelled. Save failures are logged and retried on the next
// interval; the store keeps operating in memory throughout.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PersistInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := s.Flush(); err != nil {
				s.log.Warn("final flush failed", "error", err)
			}
			return
		case <-ticker.C:
			s.DecaySweep(time.Now())

			s.mu.RLock()
			dirty := s.dirty
			s.mu.RUnlock()
			if !dirty {
				continue
			}
			if err := s.Flush(); err != nil {
				s.log.Warn("periodic save failed, will retry", "error", err)
			}
		}
	}
}
