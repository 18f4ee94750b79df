package realtime

import (
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// 写超时
	writeWait = 10 * time.Second
	// 两次 pong 之间的最长间隔
	pongWait = 60 * time.Second
	// ping 周期，必须小于 pongWait
	pingPeriod = (pongWait * 9) / 10
	// 上行消息大小上限
	maxMessageSize = 4096
)

// MessageHandler 处理一条上行消息（评论提交等），由接入层注入
type MessageHandler func(c *Client, data []byte)

// Client 一条 websocket 连接在 Hub 里的代理
type Client struct {
	hub  *Hub
	room string
	conn *websocket.Conn
	send chan []byte

	onMessage MessageHandler
}

func NewClient(hub *Hub, room string, conn *websocket.Conn, onMessage MessageHandler) *Client {
	return &Client{
		hub:       hub,
		room:      room,
		conn:      conn,
		send:      make(chan []byte, 64),
		onMessage: onMessage,
	}
}

// Room 返回客户端订阅的帖子 Pid
func (c *Client) Room() string {
	return c.room
}

// Send 只向这一个客户端投递事件（用于 comment_error 等私有通知）。
// 缓冲满时丢弃而不是阻塞。
func (c *Client) Send(ev Event) {
	data := ev.encode()
	if data == nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// ReadPump 读取上行消息直到连接关闭，负责注销与关连接。
// 每个连接只允许一个 reader。
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("websocket closed unexpectedly: %v", err)
			}
			break
		}
		if c.onMessage != nil {
			c.onMessage(c, data)
		}
	}
}

// WritePump 把 send 通道里的事件写给对端，并按周期发 ping。
// 每个连接只允许一个 writer。
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 已经关闭了这个客户端
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
