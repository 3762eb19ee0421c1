// Package ipc provides the control channel between the layoutd daemon
// and the layoutctl CLI. The protocol is newline-delimited JSON over a
// unix domain socket: one Request line in, one Response line back.
package ipc

import (
	"encoding/json"
	"time"
)

// ProtocolVersion is bumped on incompatible changes to the wire types.
const ProtocolVersion = 1

// Command names accepted by the daemon.
const (
	CmdPing    = "ping"
	CmdStatus  = "status"
	CmdStats   = "stats"
	CmdFlush   = "flush"
	CmdEnable  = "enable"
	CmdDisable = "disable"
	CmdSuggest = "suggest"
)

// Request is one client command.
type Request struct {
	Version int             `json:"version"`
	ID      uint64          `json:"id"`
	Command string          `json:"command"`
	Args    json.RawMessage `json:"args,omitempty"`
}

// Response answers one request. Data is command-specific.
type Response struct {
	ID    uint64          `json:"id"`
	OK    bool            `json:"ok"`
	Error string          `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// StatusData answers CmdStatus.
type StatusData struct {
	Version     string    `json:"version"`
	PID         int       `json:"pid"`
	StartedAt   time.Time `json:"started_at"`
	Enabled     bool      `json:"enabled"`
	EngineState string    `json:"engine_state"`
	Layout      string    `json:"layout"`
}

// StatsData answers CmdStats.
type StatsData struct {
	WordsProcessed  uint64             `json:"words_processed"`
	Corrections     uint64             `json:"corrections"`
	Rejections      uint64             `json:"rejections"`
	Suppressed      uint64             `json:"suppressed"`
	SwitchFailures  uint64             `json:"switch_failures"`
	RecursionAborts uint64             `json:"recursion_aborts"`
	LearnedWords    int                `json:"learned_words"`
	Caches          []CacheStats       `json:"caches"`
	Counters        map[string]uint64  `json:"counters,omitempty"`
	Gauges          map[string]float64 `json:"gauges,omitempty"`
}

// CacheStats is the wire form of one cache's counters.
type CacheStats struct {
	Name      string  `json:"name"`
	Size      int     `json:"size"`
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	Expired   uint64  `json:"expired"`
	HitRate   float64 `json:"hit_rate"`
}

// FlushData answers CmdFlush.
type FlushData struct {
	Persisted bool `json:"persisted"`
}

// EnableData answers CmdEnable and CmdDisable.
type EnableData struct {
	Enabled bool `json:"enabled"`
}

// SuggestArgs carries the word for CmdSuggest.
type SuggestArgs struct {
	Word string `json:"word"`
}

// SuggestData answers CmdSuggest: the renderings the user previously
// chose for this word, newest first, and near-miss dictionary words per
// language.
type SuggestData struct {
	Word        string              `json:"word"`
	Selections  []string            `json:"selections,omitempty"`
	Suggestions map[string][]string `json:"suggestions,omitempty"`
}

func marshalData(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// OKResponse builds a success response carrying v.
func OKResponse(id uint64, v any) *Response {
	return &Response{ID: id, OK: true, Data: marshalData(v)}
}

// ErrResponse builds a failure response.
func ErrResponse(id uint64, err error) *Response {
	return &Response{ID: id, OK: false, Error: err.Error()}
}
