package realtime

// Hub 维护按帖子分组的在线订阅者，并向房间内所有连接扇出事件。
// 纯内存、只管在线连接：断线的订阅者收不到错过的事件，
// 历史数据必须走评论树的显式拉取。

type roomEvent struct {
	room string
	data []byte
}

type Hub struct {
	// 房间 -> 订阅者集合，只在 Run 一个 goroutine 内读写
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan roomEvent
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan roomEvent, 256),
	}
}

// Run 处理注册、注销与广播，需要在独立 goroutine 中运行
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			room := h.rooms[client.room]
			if room == nil {
				room = make(map[*Client]bool)
				h.rooms[client.room] = room
			}
			room[client] = true

		case client := <-h.unregister:
			if room, ok := h.rooms[client.room]; ok {
				if _, ok := room[client]; ok {
					delete(room, client)
					close(client.send)
					// 最后一个订阅者离开后回收房间
					if len(room) == 0 {
						delete(h.rooms, client.room)
					}
				}
			}

		case ev := <-h.broadcast:
			for client := range h.rooms[ev.room] {
				select {
				case client.send <- ev.data:
				default:
					// 发送缓冲已满的慢客户端直接踢掉，不阻塞其他订阅者
					delete(h.rooms[ev.room], client)
					close(client.send)
				}
			}
		}
	}
}

// Publish 向指定帖子的所有在线订阅者扇出一个事件。
// 同一帖子内事件顺序跟随落库完成顺序；不同帖子之间无顺序保证。
func (h *Hub) Publish(postPid string, ev Event) {
	data := ev.encode()
	if data == nil {
		return
	}
	h.broadcast <- roomEvent{room: postPid, data: data}
}

// Register 把客户端加入其帖子房间
func (h *Hub) Register(c *Client) {
	h.register <- c
}

// Unregister 把客户端移出房间并关闭发送通道
func (h *Hub) Unregister(c *Client) {
	h.unregister <- c
}
