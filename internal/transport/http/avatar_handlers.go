package http

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/parleychat/parley-server/internal/core"
)

// AvatarPathPrefix is the public URL prefix avatar files are served under.
const AvatarPathPrefix = "/avatars/"

// allowedAvatarTypes maps accepted sniffed content types to file extensions.
var allowedAvatarTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// AvatarHandlers attaches avatar images to identities. Callers are keyed by
// source address: the address must already hold an identity binding, which a
// client gets by opening a websocket connection first.
type AvatarHandlers struct {
	router   *core.Router
	dir      string
	maxBytes int64
	log      *zerolog.Logger
}

// NewAvatarHandlers creates the avatar handler set.
func NewAvatarHandlers(router *core.Router, dir string, maxBytes int64, logger *zerolog.Logger) *AvatarHandlers {
	return &AvatarHandlers{
		router:   router,
		dir:      dir,
		maxBytes: maxBytes,
		log:      logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AvatarResponse reports the stored avatar reference.
type AvatarResponse struct {
	Avatar string `json:"avatar"`
}

// Upload handles avatar upload.
// POST /api/avatar (multipart field "file")
func (h *AvatarHandlers) Upload(c *gin.Context) {
	ident, ok := h.router.IdentityByAddr(sourceAddr(c.Request))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no identity for this address"})
		return
	}

	if c.Request.ContentLength > h.maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "avatar exceeds size limit"})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "avatar exceeds size limit"})
			return
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing file field"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		if isBodyTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "avatar exceeds size limit"})
			return
		}
		h.log.Error().Err(err).Msg("read avatar upload")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	ext, ok := allowedAvatarTypes[mimetype.Detect(data).String()]
	if !ok {
		c.JSON(http.StatusUnsupportedMediaType, ErrorResponse{Error: "unsupported image type"})
		return
	}

	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		h.log.Error().Err(err).Str("dir", h.dir).Msg("create avatar dir")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	name := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(h.dir, name), data, 0o644); err != nil {
		h.log.Error().Err(err).Str("file", name).Msg("write avatar file")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.removeStored(ident.AvatarRef)

	ref := AvatarPathPrefix + name
	h.router.SetAvatar(ident.ID, ref)
	h.log.Info().Str("identity_id", ident.ID).Str("avatar", ref).Msg("avatar updated")
	c.JSON(http.StatusOK, AvatarResponse{Avatar: ref})
}

// Remove clears the caller's avatar.
// DELETE /api/avatar
func (h *AvatarHandlers) Remove(c *gin.Context) {
	ident, ok := h.router.IdentityByAddr(sourceAddr(c.Request))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no identity for this address"})
		return
	}

	h.removeStored(ident.AvatarRef)
	h.router.SetAvatar(ident.ID, "")
	h.log.Info().Str("identity_id", ident.ID).Msg("avatar removed")
	c.Status(http.StatusNoContent)
}

// removeStored deletes a previously stored avatar file, best-effort.
func (h *AvatarHandlers) removeStored(ref string) {
	if !strings.HasPrefix(ref, AvatarPathPrefix) {
		return
	}
	path := filepath.Join(h.dir, filepath.Base(ref))
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		h.log.Warn().Err(err).Str("file", path).Msg("remove old avatar")
	}
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
