package stream

import "sync"

// JSONConn 是 *websocket.Conn 中写 JSON 帧的部分。
type JSONConn interface {
	WriteJSON(v interface{}) error
}

// Frame 是 WebSocket 上的一帧。
type Frame struct {
	Type  Kind `json:"type"`
	Value any  `json:"value"`
}

// WebSocketWriter 把事件作为 JSON 帧写到 WebSocket 连接。
// gorilla/websocket 不支持并发写，这里加锁串行化。
type WebSocketWriter struct {
	mu   sync.Mutex
	conn JSONConn
}

func NewWebSocketWriter(conn JSONConn) *WebSocketWriter {
	return &WebSocketWriter{conn: conn}
}

func (w *WebSocketWriter) Write(e Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(Frame{Type: e.Kind, Value: e.payload()})
}
