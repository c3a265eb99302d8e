package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var ErrClosed = errors.New("connection is closed")

const writeWait = 10 * time.Second

type MessageInfo struct {
	msg             []byte
	needCompression bool
}

// Client wraps a websocket connection with a reader and a writer goroutine.
// Inbound text messages are delivered on R, which is closed when the
// connection is gone.
type Client struct {
	Conn *websocket.Conn
	R    chan []byte

	w          chan MessageInfo
	done       chan struct{}
	once       sync.Once
	compressed bool
}

// NewClient starts serving conn. If compressed is true, every inbound text
// message is expected to be zlib-compressed.
func NewClient(conn *websocket.Conn, compressed bool) *Client {
	if conn == nil {
		return nil
	}

	c := &Client{
		Conn:       conn,
		R:          make(chan []byte, 128),
		w:          make(chan MessageInfo, 128),
		done:       make(chan struct{}),
		compressed: compressed,
	}

	go c.runReader()
	go c.runWriter()
	return c
}

func (c *Client) runReader() {
	defer close(c.R)
	defer c.Close()

	for {
		t, msg, err := c.Conn.ReadMessage()
		if err != nil {
			return
		}

		if t == websocket.CloseMessage {
			return
		}

		if t != websocket.TextMessage {
			continue
		}

		if c.compressed {
			msg, err = Decompress(msg)
			if err != nil {
				continue
			}
		}

		select {
		case c.R <- msg:
		case <-c.done:
			return
		}
	}
}

func (c *Client) runWriter() {
	for {
		select {
		case <-c.done:
			return

		case msgInfo := <-c.w:
			msg := msgInfo.msg
			if msgInfo.needCompression {
				var err error
				msg, err = Compress(msgInfo.msg)
				if err != nil {
					continue
				}
			}

			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.Close()
				return
			}
		}
	}
}

func (c *Client) Write(msg []byte, needCompression bool) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.w <- MessageInfo{msg: msg, needCompression: needCompression}:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// Done is closed after Close is called.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		c.Conn.Close()
	})
}
