// Package handlers – chatbot endpoints: the inbound WhatsApp webhook and
// the operator controls (pause, resume, waiting list).
package handlers

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oaddad/nucleo-backend/internal/chatbot"
)

// webhookRequest is the inbound message payload posted by the gateway
// bridge. Either message or audio_base64 is present; audio messages are
// transcribed before entering the reply pipeline.
type webhookRequest struct {
	MessageID   string `json:"message_id"`
	Phone       string `json:"phone" binding:"required"`
	Message     string `json:"message"`
	PushName    string `json:"push_name"`
	AudioBase64 string `json:"audio_base64"`
	Mime        string `json:"mime"`
	WantAudio   bool   `json:"want_audio"`
}

// Webhook godoc
// @Summary  Ingest one inbound WhatsApp message
// @Tags     chatbot
// @Accept   json
// @Produce  json
// @Success  202 {object} map[string]bool
// @Failure  400 {object} ErrorResponse
// @Router   /webhook/whatsapp [post]
func (h *Handler) Webhook(c *gin.Context) {
	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "phone is required")
		return
	}

	// Gateways redeliver on timeout; the same message ID is handled once.
	if h.Dedup != nil && h.Dedup.Seen(req.MessageID) {
		ok(c, http.StatusOK, gin.H{"duplicate": true})
		return
	}

	in := chatbot.Inbound{
		Phone:     req.Phone,
		Body:      req.Message,
		PushName:  req.PushName,
		WantAudio: req.WantAudio,
	}
	if req.AudioBase64 != "" {
		media, err := base64.StdEncoding.DecodeString(req.AudioBase64)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "audio_base64 is not valid base64")
			return
		}
		in.Media = media
		in.MediaExt = extFromMime(req.Mime)
		in.WantAudio = true
	}

	h.Bot.Dispatch(in)
	ok(c, http.StatusAccepted, gin.H{"accepted": true})
}

// pauseRequest is the payload for POST /bot/pause. Minutes <= 0 falls back
// to the configured default.
type pauseRequest struct {
	Phone   string `json:"phone" binding:"required"`
	Minutes int    `json:"minutes"`
}

// PauseBot silences the bot for one conversation and returns the notice the
// operator can forward to the customer, with placeholders resolved.
func (h *Handler) PauseBot(c *gin.Context) {
	var req pauseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "phone is required")
		return
	}
	notice := h.Bot.PauseBot(c.Request.Context(), req.Phone, req.Minutes)
	ok(c, http.StatusOK, gin.H{"message": notice})
}

// resumeRequest is the payload for POST /bot/resume.
type resumeRequest struct {
	Phone string `json:"phone" binding:"required"`
}

// ResumeBot lifts a conversation pause immediately.
func (h *Handler) ResumeBot(c *gin.Context) {
	var req resumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "phone is required")
		return
	}
	h.Bot.ResumeBot(req.Phone)
	noContent(c)
}

// WaitingList returns the customers currently queued for a human, oldest
// first.
func (h *Handler) WaitingList(c *gin.Context) {
	ok(c, http.StatusOK, h.Bot.State.WaitingSlots())
}

// extFromMime maps the webhook's MIME type to the container extension the
// transcoder expects. WhatsApp voice notes arrive as audio/ogg (opus).
func extFromMime(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	switch mime {
	case "audio/ogg", "application/ogg":
		return "ogg"
	case "audio/mpeg", "audio/mp3":
		return "mp3"
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return "m4a"
	case "audio/wav", "audio/x-wav":
		return "wav"
	case "audio/webm":
		return "webm"
	default:
		return "ogg"
	}
}
