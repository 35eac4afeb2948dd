package ginserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"rentboard/internal/app/dto"
	"rentboard/internal/app/idempotency"
	"rentboard/internal/app/services/inbox"
	"rentboard/internal/domain/messaging"
)

const idempotencyHeader = "Idempotency-Key"

// MessageHandler exposes the viewer's inbox. The viewer is always the signed-in user.
type MessageHandler struct {
	Service     *inbox.Service
	Idempotency idempotency.Store
	Logger      *slog.Logger
}

type sendMessageRequest struct {
	ListingID   string `json:"listing_id"`
	RecipientID string `json:"recipient_id"`
	Body        string `json:"body"`
	Contact     *struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	} `json:"contact"`
}

func (h MessageHandler) Threads(c *gin.Context) {
	p, ok := h.viewer(c)
	if !ok {
		return
	}
	unread, _ := strconv.ParseBool(c.Query("unread"))
	threads, err := h.Service.Threads(c.Request.Context(), p.ID(), messaging.ThreadFilter{
		Query:      c.Query("q"),
		UnreadOnly: unread,
	})
	if err != nil {
		respondError(c, h.Logger, "list threads", err)
		return
	}
	c.JSON(http.StatusOK, dto.MapThreadList(threads))
}

func (h MessageHandler) Thread(c *gin.Context) {
	p, ok := h.viewer(c)
	if !ok {
		return
	}
	thread, err := h.Service.Thread(c.Request.Context(), p.ID(), threadKey(c))
	if err != nil {
		respondError(c, h.Logger, "load thread", err)
		return
	}
	c.JSON(http.StatusOK, dto.MapThread(thread, true))
}

// Send stores a message. A repeated Idempotency-Key from the same user replays the first
// response instead of sending again.
func (h MessageHandler) Send(c *gin.Context) {
	p, ok := h.viewer(c)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithCode(c, codeInvalidRequest)
		return
	}

	key, err := idempotency.ScopedKey(p.ID(), "send_message", c.GetHeader(idempotencyHeader))
	if err != nil {
		respondError(c, h.Logger, "send message", err)
		return
	}
	if key != "" && h.Idempotency != nil {
		rec, found, err := h.Idempotency.Get(c.Request.Context(), key)
		if err != nil {
			respondError(c, h.Logger, "send message", err)
			return
		}
		if found {
			c.Header("Idempotent-Replayed", "true")
			c.Data(rec.Status, "application/json; charset=utf-8", rec.Payload)
			return
		}
	}

	params := inbox.SendParams{
		ListingID:   req.ListingID,
		SenderID:    p.ID(),
		RecipientID: req.RecipientID,
		Body:        req.Body,
	}
	if req.Contact != nil {
		params.Contact = &messaging.ContactInfo{Name: req.Contact.Name, Email: req.Contact.Email, Phone: req.Contact.Phone}
	}
	thread, err := h.Service.Send(c.Request.Context(), params)
	if err != nil {
		respondError(c, h.Logger, "send message", err)
		return
	}
	body := dto.MapThread(thread, true)
	if key != "" && h.Idempotency != nil {
		h.remember(c, key, http.StatusCreated, body)
	}
	c.JSON(http.StatusCreated, body)
}

func (h MessageHandler) remember(c *gin.Context, key string, status int, body any) {
	payload, err := json.Marshal(body)
	if err == nil {
		err = h.Idempotency.Save(c.Request.Context(), idempotency.Record{
			Key:        key,
			Status:     status,
			Payload:    payload,
			OccurredAt: time.Now().UTC(),
		})
	}
	if err != nil && h.Logger != nil {
		h.Logger.Warn("idempotency record not saved", "key", key, "error", err)
	}
}

func (h MessageHandler) MarkThreadRead(c *gin.Context) {
	p, ok := h.viewer(c)
	if !ok {
		return
	}
	thread, n, err := h.Service.MarkThreadRead(c.Request.Context(), p.ID(), threadKey(c))
	if err != nil {
		respondError(c, h.Logger, "mark thread read", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"thread": dto.MapThread(thread, true), "updated": n})
}

func (h MessageHandler) MarkMessageRead(c *gin.Context) {
	p, ok := h.viewer(c)
	if !ok {
		return
	}
	if err := h.Service.MarkMessageRead(c.Request.Context(), p.ID(), messaging.MessageID(c.Param("id"))); err != nil {
		respondError(c, h.Logger, "mark message read", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h MessageHandler) MarkListingRead(c *gin.Context) {
	p, ok := h.viewer(c)
	if !ok {
		return
	}
	n, err := h.Service.MarkListingRead(c.Request.Context(), p.ID(), strings.TrimSpace(c.Param("listing")))
	if err != nil {
		respondError(c, h.Logger, "mark listing read", err)
		return
	}
	c.JSON(http.StatusOK, dto.ReadResult{Updated: n})
}

func (h MessageHandler) Delete(c *gin.Context) {
	p, ok := h.viewer(c)
	if !ok {
		return
	}
	if err := h.Service.Delete(c.Request.Context(), p.ID(), messaging.MessageID(c.Param("id"))); err != nil {
		respondError(c, h.Logger, "delete message", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h MessageHandler) UnreadCount(c *gin.Context) {
	p, ok := h.viewer(c)
	if !ok {
		return
	}
	n, err := h.Service.UnreadCount(c.Request.Context(), p.ID())
	if err != nil {
		respondError(c, h.Logger, "unread count", err)
		return
	}
	c.JSON(http.StatusOK, dto.UnreadCount{Unread: n})
}

func (h MessageHandler) Participants(c *gin.Context) {
	p, ok := h.viewer(c)
	if !ok {
		return
	}
	pairs, err := h.Service.Participants(c.Request.Context(), p.ID(), strings.TrimSpace(c.Param("listing")))
	if err != nil {
		respondError(c, h.Logger, "listing participants", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": dto.MapParticipantPairs(pairs)})
}

func (h MessageHandler) viewer(c *gin.Context) (principal, bool) {
	p, ok := requireRole(c, "")
	if !ok {
		return principal{}, false
	}
	if h.Service == nil {
		abortWithCode(c, codeUnavailable)
		return principal{}, false
	}
	return p, true
}

func threadKey(c *gin.Context) messaging.ThreadKey {
	return messaging.ThreadKey{
		ListingID:     strings.TrimSpace(c.Param("listing")),
		CounterpartID: strings.TrimSpace(c.Param("counterpart")),
	}
}

var _ MessageHTTP = MessageHandler{}
