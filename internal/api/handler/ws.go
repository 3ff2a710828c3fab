package handler

import (
	"log"
	"net/http"

	"paidreply/backend/internal/fanout"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allows connections from any origin. Tighten in production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the connection and joins it to exactly one room.
// The routing key is either ?chat_id=<conversation> (visitor or creator
// token) or ?dashboard=1 (creator token, keyed by the token's creator id).
// Zero or two keys is a protocol error and the connection is refused.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	chatID := c.Query("chat_id")
	dashboard := c.Query("dashboard") != ""

	// Both or neither routing key is a protocol error.
	if (chatID != "") == dashboard {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Provide exactly one of chat_id or dashboard"})
		return
	}

	var (
		ns     fanout.Namespace
		key    string
		connID string
	)

	if dashboard {
		id, ok := creatorID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
			return
		}
		ns, key, connID = fanout.NamespaceDashboard, id, id
	} else {
		id, ok := h.chatParticipant(c, chatID)
		if !ok {
			return
		}
		ns, key, connID = fanout.NamespaceChat, chatID, id
	}

	wsConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written its own HTTP error response.
		log.Printf("handler: websocket upgrade failed: %v", err)
		return
	}

	conn := fanout.NewWSConn(connID, wsConn, func(conn *fanout.WSConn) {
		h.Router.Leave(ns, key, conn)
	})
	h.Router.Join(ns, key, conn)
	conn.Run()
}

// chatParticipant authenticates the caller (visitor or creator token) and
// checks they belong to the conversation. Writes the error response itself.
func (h *Handler) chatParticipant(c *gin.Context, conversationID string) (string, bool) {
	conv, err := h.Storage.GetConversationByID(conversationID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return "", false
	}

	if id, ok := visitorID(c); ok && id == conv.VisitorID {
		return id, true
	}
	if id, ok := creatorID(c); ok && id == conv.CreatorID {
		return id, true
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not a participant of this conversation"})
	return "", false
}
