// Package invite renders room join links as QR codes.
package invite

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
)

const qrSize = 256

type RoomChecker interface {
	RoomExists(ctx context.Context, roomId string) (bool, error)
}

type Handler struct {
	publicURL string
	rooms     RoomChecker
}

func NewHandler(publicURL string, rooms RoomChecker) *Handler {
	return &Handler{publicURL: strings.TrimRight(publicURL, "/"), rooms: rooms}
}

// JoinLink is the page a scanned code opens.
func (h *Handler) JoinLink(roomId string) string {
	return h.publicURL + "/room/" + url.PathEscape(roomId)
}

func (h *Handler) QRCodeHandler(ctx *gin.Context) {
	roomId := ctx.Param("roomId")

	exists, err := h.rooms.RoomExists(ctx.Request.Context(), roomId)
	if err != nil {
		log.Error().Err(err).Str("roomId", roomId).Msg("invite lookup failed")
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "unknown-error"})
		return
	}
	if !exists {
		ctx.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "room-not-found"})
		return
	}

	png, err := qrcode.Encode(h.JoinLink(roomId), qrcode.Medium, qrSize)
	if err != nil {
		log.Error().Err(err).Str("roomId", roomId).Msg("qr encoding failed")
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "unknown-error"})
		return
	}
	ctx.Header("Cache-Control", "no-store")
	ctx.Data(http.StatusOK, "image/png", png)
}
