package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"
)

// Client talks to a running daemon over the control socket.
type Client struct {
	mu      sync.Mutex
	conn    net.Conn
	scanner *bufio.Scanner
	enc     *json.Encoder
	nextID  uint64
	timeout time.Duration
}

// Dial connects to the daemon socket.
func Dial(socketPath string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, timeout)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon: %w", err)
	}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	return &Client{
		conn:    conn,
		scanner: scanner,
		enc:     json.NewEncoder(conn),
		timeout: timeout,
	}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Do sends one command and decodes the response data into out, which
// may be nil when the caller only cares about success.
func (c *Client) Do(command string, args any, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	req := Request{
		Version: ProtocolVersion,
		ID:      c.nextID,
		Command: command,
	}
	if args != nil {
		data, err := json.Marshal(args)
		if err != nil {
			return fmt.Errorf("encode args: %w", err)
		}
		req.Args = data
	}

	if c.timeout > 0 {
		deadline := time.Now().Add(c.timeout)
		_ = c.conn.SetDeadline(deadline)
	}

	if err := c.enc.Encode(&req); err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		return fmt.Errorf("daemon closed connection")
	}

	var resp Response
	if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !resp.OK {
		return fmt.Errorf("daemon error: %s", resp.Error)
	}
	if out != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}

// Ping checks that the daemon is responsive.
func (c *Client) Ping() error {
	return c.Do(CmdPing, nil, nil)
}

// Status fetches the daemon status.
func (c *Client) Status() (*StatusData, error) {
	var data StatusData
	if err := c.Do(CmdStatus, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Stats fetches engine and cache counters.
func (c *Client) Stats() (*StatsData, error) {
	var data StatsData
	if err := c.Do(CmdStats, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Flush forces a learning snapshot to disk.
func (c *Client) Flush() (*FlushData, error) {
	var data FlushData
	if err := c.Do(CmdFlush, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Suggest fetches learned selections and dictionary near-misses for a word.
func (c *Client) Suggest(word string) (*SuggestData, error) {
	var data SuggestData
	if err := c.Do(CmdSuggest, SuggestArgs{Word: word}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// SetEnabled turns correction on or off.
func (c *Client) SetEnabled(enabled bool) (*EnableData, error) {
	cmd := CmdEnable
	if !enabled {
		cmd = CmdDisable
	}
	var data EnableData
	if err := c.Do(cmd, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}
