package tcp

import (
	"bufio"
	"net"
	"strings"
	"sync"
)

// lineChannel adapts a net.Conn to the core.Channel contract. A buffered
// reader reassembles partial or coalesced TCP reads into discrete
// newline-terminated lines before they reach the dispatcher.
type lineChannel struct {
	conn net.Conn
	r    *bufio.Reader
	wmu  sync.Mutex
}

func newLineChannel(conn net.Conn) *lineChannel {
	return &lineChannel{
		conn: conn,
		r:    bufio.NewReader(conn),
	}
}

// ReadLine returns the next line with its terminator trimmed. A trailing
// unterminated line before EOF is still delivered; the EOF surfaces on
// the following call.
func (c *lineChannel) ReadLine() (string, error) {
	line, err := c.r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// WriteLine sends one newline-terminated line.
func (c *lineChannel) WriteLine(s string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_, err := c.conn.Write([]byte(s + "\n"))
	return err
}

// Close closes the underlying connection.
func (c *lineChannel) Close() error {
	return c.conn.Close()
}
