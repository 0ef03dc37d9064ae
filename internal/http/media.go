package http

import (
	"errors"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/library"
	"github.com/mrlokans/bookshelf/internal/media"
)

// MediaController serves stored public files. Book content is only served
// through the authenticated reader.
type MediaController struct {
	store MediaOpener
}

func NewMediaController(store MediaOpener) *MediaController {
	return &MediaController{store: store}
}

// Serve handles GET /media/*handle
func (mc *MediaController) Serve(c *gin.Context) {
	handle := strings.TrimPrefix(c.Param("handle"), "/")
	if !media.KindOf(handle).Public() {
		respondDomainError(c, library.NotFound("media", handle), "serve media")
		return
	}

	path, err := mc.store.Path(handle)
	if err != nil {
		respondDomainError(c, library.NotFound("media", handle), "resolve media")
		return
	}
	if info, err := os.Stat(path); errors.Is(err, os.ErrNotExist) || (err == nil && info.IsDir()) {
		respondDomainError(c, library.NotFound("media", handle), "serve media")
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.File(path)
}
