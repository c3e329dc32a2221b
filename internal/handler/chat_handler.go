package handler

import (
	"ai-chatbot-go/internal/middleware"
	"ai-chatbot-go/internal/model"
	"ai-chatbot-go/internal/service"
	"ai-chatbot-go/internal/stream"
	"ai-chatbot-go/pkg/log"
	"ai-chatbot-go/pkg/metrics"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const genericError = "An error occurred while processing your request!"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// ChatHandler 负责处理聊天请求，支持 HTTP 数据流和 WebSocket 两种传输方式。
type ChatHandler struct {
	chatService service.ChatService
	maxDuration time.Duration
}

// NewChatHandler 创建一个新的 ChatHandler。maxDuration 限制单次生成的总时长。
func NewChatHandler(chatService service.ChatService, maxDuration time.Duration) *ChatHandler {
	if maxDuration <= 0 {
		maxDuration = 60 * time.Second
	}
	return &ChatHandler{chatService: chatService, maxDuration: maxDuration}
}

// Chat 处理 POST /api/chat，以数据流协议返回模型输出。
func (h *ChatHandler) Chat(c *gin.Context) {
	var req service.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Chat: invalid request payload, error: %v", err)
		metrics.ChatRequests.WithLabelValues("error").Inc()
		c.String(http.StatusInternalServerError, genericError)
		return
	}

	user := middleware.CurrentUser(c)
	if user == nil {
		metrics.ChatRequests.WithLabelValues("unauthorized").Inc()
		c.String(http.StatusUnauthorized, "Unauthorized")
		return
	}

	// maxDuration 覆盖整个请求，包括标题生成和流式输出
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.maxDuration)
	defer cancel()

	turn, err := h.chatService.Prepare(ctx, user, req)
	if err != nil {
		metrics.ChatRequests.WithLabelValues(outcome(err)).Inc()
		textError(c, err, genericError)
		return
	}

	// 流开始后错误只能通过流内提示告知客户端
	if err := h.chatService.Stream(ctx, turn, stream.NewDataStreamWriter(c.Writer)); err != nil {
		log.Warnw("Chat: stream terminated with error", "chatId", turn.ChatID, "error", err)
	}
}

func outcome(err error) string {
	switch service.KindOf(err) {
	case service.KindBadRequest:
		return "bad_request"
	case service.KindUnauthorized:
		return "unauthorized"
	default:
		return "error"
	}
}

// Delete 处理 DELETE /api/chat?id=。
func (h *ChatHandler) Delete(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		c.String(http.StatusNotFound, "Not Found")
		return
	}
	user := middleware.CurrentUser(c)
	if user == nil {
		c.String(http.StatusUnauthorized, "Unauthorized")
		return
	}
	if err := h.chatService.Delete(c.Request.Context(), user, id); err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			log.Errorf("Delete chat %s failed: %v", id, err)
		}
		textError(c, err, genericError)
		return
	}
	c.String(http.StatusOK, "Chat deleted")
}

// Messages 处理 GET /api/chat/:id/messages。
func (h *ChatHandler) Messages(c *gin.Context) {
	msgs, err := h.chatService.Messages(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		jsonError(c, err, genericError)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// VisibilityRequest 是 PATCH /api/chat/:id/visibility 的请求体。
type VisibilityRequest struct {
	Visibility model.Visibility `json:"visibility" binding:"required"`
}

// UpdateVisibility 处理 PATCH /api/chat/:id/visibility，公开的聊天可被其他用户读取。
func (h *ChatHandler) UpdateVisibility(c *gin.Context) {
	var req VisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("UpdateVisibility: invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "visibility is required"})
		return
	}
	if err := h.chatService.UpdateVisibility(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), req.Visibility); err != nil {
		jsonError(c, err, genericError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "visibility": req.Visibility})
}

// wsCommand 是客户端通过 WebSocket 发送的消息，type 为 chat 或 stop。
type wsCommand struct {
	Type string `json:"type"`
	service.ChatRequest
}

// WebSocket 处理 GET /api/chat/ws。
// 每条 {"type":"chat", ...} 消息开启一轮生成，{"type":"stop"} 中止当前生成。
func (h *ChatHandler) WebSocket(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.String(http.StatusUnauthorized, "Unauthorized")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()
	log.Infof("WebSocket 连接已建立，用户: %s", user.ID)

	out := stream.NewWebSocketWriter(conn)
	incoming := make(chan []byte)
	go func() {
		defer close(incoming)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				log.Debugf("WebSocket 读取结束: %v", err)
				return
			}
			incoming <- message
		}
	}()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		cancel context.CancelFunc
	)
	stop := func() {
		mu.Lock()
		if cancel != nil {
			cancel()
		}
		mu.Unlock()
	}
	defer func() {
		stop()
		wg.Wait()
	}()

	for message := range incoming {
		var cmd wsCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			_ = out.Write(stream.Error("Invalid message"))
			continue
		}
		if cmd.Type == "stop" {
			stop()
			continue
		}

		mu.Lock()
		busy := cancel != nil
		mu.Unlock()
		if busy {
			_ = out.Write(stream.Error("A response is already streaming"))
			continue
		}

		ctx, cancelTurn := context.WithTimeout(c.Request.Context(), h.maxDuration)
		turn, err := h.chatService.Prepare(ctx, user, cmd.ChatRequest)
		if err != nil {
			cancelTurn()
			metrics.ChatRequests.WithLabelValues(outcome(err)).Inc()
			_ = out.Write(stream.Error(service.MessageOf(err, genericError)))
			continue
		}

		mu.Lock()
		cancel = cancelTurn
		mu.Unlock()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := h.chatService.Stream(ctx, turn, out); err != nil {
				log.Warnw("WebSocket: stream terminated with error", "chatId", turn.ChatID, "error", err)
			}
			mu.Lock()
			cancelTurn()
			cancel = nil
			mu.Unlock()
		}()
	}
}
