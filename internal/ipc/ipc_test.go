package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDaemon struct {
	enabled    atomic.Bool
	flushErr   error
	suggestErr error
	flushes    atomic.Int64
}

func (d *fakeDaemon) Status() StatusData {
	return StatusData{
		Version:     "test",
		PID:         os.Getpid(),
		Enabled:     d.enabled.Load(),
		EngineState: "normal",
		Layout:      "english",
	}
}

func (d *fakeDaemon) Stats() StatsData {
	return StatsData{WordsProcessed: 42, Corrections: 7}
}

func (d *fakeDaemon) Flush() error {
	d.flushes.Add(1)
	return d.flushErr
}

func (d *fakeDaemon) SetEnabled(enabled bool) { d.enabled.Store(enabled) }

func (d *fakeDaemon) Suggest(_ context.Context, word string) (SuggestData, error) {
	if d.suggestErr != nil {
		return SuggestData{}, d.suggestErr
	}
	return SuggestData{
		Word:        word,
		Selections:  []string{"привет"},
		Suggestions: map[string][]string{"english": {"hello"}},
	}, nil
}

func startTestServer(t *testing.T, d *fakeDaemon) (string, *Server) {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "layoutd.sock")
	cfg := ServerConfig{SocketPath: socket, ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second}
	srv := NewServer(cfg, NewHandler(d), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, srv.Start())
	t.Cleanup(func() { srv.Stop() })
	return socket, srv
}

func dialTest(t *testing.T, socket string) *Client {
	t.Helper()
	c, err := Dial(socket, 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestPing(t *testing.T) {
	socket, _ := startTestServer(t, &fakeDaemon{})
	c := dialTest(t, socket)
	assert.NoError(t, c.Ping())
}

func TestStatus(t *testing.T) {
	d := &fakeDaemon{}
	d.enabled.Store(true)
	socket, _ := startTestServer(t, d)
	c := dialTest(t, socket)

	status, err := c.Status()
	require.NoError(t, err)
	assert.Equal(t, "test", status.Version)
	assert.Equal(t, os.Getpid(), status.PID)
	assert.True(t, status.Enabled)
	assert.Equal(t, "normal", status.EngineState)
}

func TestStats(t *testing.T) {
	socket, _ := startTestServer(t, &fakeDaemon{})
	c := dialTest(t, socket)

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), stats.WordsProcessed)
	assert.Equal(t, uint64(7), stats.Corrections)
}

func TestFlush(t *testing.T) {
	d := &fakeDaemon{}
	socket, _ := startTestServer(t, d)
	c := dialTest(t, socket)

	data, err := c.Flush()
	require.NoError(t, err)
	assert.True(t, data.Persisted)
	assert.Equal(t, int64(1), d.flushes.Load())
}

func TestFlushError(t *testing.T) {
	d := &fakeDaemon{flushErr: errors.New("disk full")}
	socket, _ := startTestServer(t, d)
	c := dialTest(t, socket)

	_, err := c.Flush()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestSuggest(t *testing.T) {
	socket, _ := startTestServer(t, &fakeDaemon{})
	c := dialTest(t, socket)

	data, err := c.Suggest("ghbdtn")
	require.NoError(t, err)
	assert.Equal(t, "ghbdtn", data.Word)
	assert.Equal(t, []string{"привет"}, data.Selections)
	assert.Equal(t, []string{"hello"}, data.Suggestions["english"])
}

func TestSuggestRequiresWord(t *testing.T) {
	socket, _ := startTestServer(t, &fakeDaemon{})
	c := dialTest(t, socket)

	_, err := c.Suggest("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "word is required")
}

func TestSuggestError(t *testing.T) {
	d := &fakeDaemon{suggestErr: errors.New("oracle offline")}
	socket, _ := startTestServer(t, d)
	c := dialTest(t, socket)

	_, err := c.Suggest("ghbdtn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle offline")
}

func TestEnableDisable(t *testing.T) {
	d := &fakeDaemon{}
	d.enabled.Store(true)
	socket, _ := startTestServer(t, d)
	c := dialTest(t, socket)

	data, err := c.SetEnabled(false)
	require.NoError(t, err)
	assert.False(t, data.Enabled)
	assert.False(t, d.enabled.Load())

	data, err = c.SetEnabled(true)
	require.NoError(t, err)
	assert.True(t, data.Enabled)
	assert.True(t, d.enabled.Load())
}

func TestUnknownCommand(t *testing.T) {
	socket, _ := startTestServer(t, &fakeDaemon{})
	c := dialTest(t, socket)

	err := c.Do("selfdestruct", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestPipelinedRequests(t *testing.T) {
	socket, _ := startTestServer(t, &fakeDaemon{})
	c := dialTest(t, socket)

	// One connection answers a sequence of commands in order.
	for i := 0; i < 5; i++ {
		require.NoError(t, c.Ping())
	}
	_, err := c.Stats()
	assert.NoError(t, err)
}

func TestProtocolVersionRejected(t *testing.T) {
	socket, _ := startTestServer(t, &fakeDaemon{})

	conn, err := net.Dial("unix", socket)
	require.NoError(t, err)
	defer conn.Close()

	req := Request{Version: 99, ID: 1, Command: CmdPing}
	require.NoError(t, json.NewEncoder(conn).Encode(&req))

	var resp Response
	require.NoError(t, json.NewDecoder(conn).Decode(&resp))
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, "protocol version")
}

func TestMalformedRequest(t *testing.T) {
	socket, _ := startTestServer(t, &fakeDaemon{})

	conn, err := net.Dial("unix", socket)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("{not json}\n"))
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.NewDecoder(conn).Decode(&resp))
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, "malformed request")
}

func TestSocketPermissions(t *testing.T) {
	socket, _ := startTestServer(t, &fakeDaemon{})

	info, err := os.Stat(socket)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStopRemovesSocket(t *testing.T) {
	socket, srv := startTestServer(t, &fakeDaemon{})

	require.NoError(t, srv.Stop())
	_, err := os.Stat(socket)
	assert.True(t, os.IsNotExist(err))

	// Stop is idempotent.
	assert.NoError(t, srv.Stop())
}

func TestStartReplacesStaleSocket(t *testing.T) {
	dir := t.TempDir()
	socket := filepath.Join(dir, "layoutd.sock")

	// Simulate an unclean shutdown leaving a dead socket file behind.
	l, err := net.Listen("unix", socket)
	require.NoError(t, err)
	l.Close()

	cfg := ServerConfig{SocketPath: socket}
	srv := NewServer(cfg, NewHandler(&fakeDaemon{}), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, srv.Start())
	defer srv.Stop()

	c := dialTest(t, socket)
	assert.NoError(t, c.Ping())
}

func TestDialMissingSocket(t *testing.T) {
	_, err := Dial(filepath.Join(t.TempDir(), "absent.sock"), time.Second)
	assert.Error(t, err)
}
