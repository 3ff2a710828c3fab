package handler

import (
	"errors"
	"net/http"

	"paidreply/backend/internal/fanout"
	"paidreply/backend/internal/lives"
	"paidreply/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// OpenConversation spends one of the creator's lives to open a paid thread.
// Opening an already-opened conversation is free. Exhausted budgets come
// back as 429 with the countdown the client renders.
func (h *Handler) OpenConversation(c *gin.Context) {
	id, ok := creatorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
		return
	}

	conv, err := h.Storage.GetConversationByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}
	if conv.CreatorID != id {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your conversation"})
		return
	}
	if conv.IsOpened {
		c.JSON(http.StatusOK, gin.H{"status": "already_opened"})
		return
	}

	creator, err := h.Throttle.Consume(id)
	if err != nil {
		var insufficient *lives.ErrInsufficientLives
		if errors.As(err, &insufficient) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":             "No lives left",
				"lives":             insufficient.Lives,
				"minutes_to_refill": insufficient.MinutesToRefill,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not open conversation, retry later"})
		return
	}

	if err := h.Storage.MarkConversationOpened(conv.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not open conversation, retry later"})
		return
	}

	h.publish(fanout.NamespaceChat, conv.ID, models.Event{
		Type:           "conversation_opened",
		ConversationID: conv.ID,
		CreatorID:      creator.ID,
	})

	c.JSON(http.StatusOK, gin.H{
		"status": "opened",
		"lives":  creator.Lives,
	})
}

type postMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// PostMessage appends a message to a conversation the caller belongs to and
// fans it out to the chat room.
func (h *Handler) PostMessage(c *gin.Context) {
	conversationID := c.Param("id")
	senderID, ok := h.chatParticipant(c, conversationID)
	if !ok {
		return
	}

	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message content required"})
		return
	}

	msg := &models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Kind:           "text",
		Content:        req.Content,
	}
	if err := h.Storage.SaveMessage(msg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not save message, retry later"})
		return
	}

	h.publish(fanout.NamespaceChat, conversationID, models.Event{
		Type:           "new_message",
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        req.Content,
	})

	c.JSON(http.StatusCreated, gin.H{"message_id": msg.ID})
}

// GetHistory returns the conversation's messages in send order.
func (h *Handler) GetHistory(c *gin.Context) {
	conversationID := c.Param("id")
	if _, ok := h.chatParticipant(c, conversationID); !ok {
		return
	}

	history, err := h.Storage.GetConversationHistory(conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load history, retry later"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": history})
}
