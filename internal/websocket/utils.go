package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	// readWait bounds client silence; clients ping well within it.
	readWait = 5 * time.Minute
)

// Conn serializes writes to a gorilla connection, which allows only one
// concurrent writer.
type Conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

// Wrap takes ownership of ws.
func Wrap(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// Send writes one message.
func (c *Conn) Send(event Event, data interface{}) error {
	return c.write(Message{Event: event, Data: data})
}

// SendError writes an error message.
func (c *Conn) SendError(code, message string) error {
	return c.write(Message{Event: EventError, Error: &ErrorBody{Code: code, Message: message}})
}

func (c *Conn) write(m Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(m)
}

// Read decodes the next client message.
func (c *Conn) Read(v *Request) error {
	_ = c.ws.SetReadDeadline(time.Now().Add(readWait))
	return c.ws.ReadJSON(v)
}

// Close sends a normal close frame and closes the connection.
func (c *Conn) Close() error {
	c.mu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	c.mu.Unlock()
	return c.ws.Close()
}
