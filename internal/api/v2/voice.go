// internal/api/v2/voice.go
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jingnanl/infant-guard/internal/voice"
)

// GetVoiceCommand handles GET /api/v2/voice/command
//
// It returns the spoken soothing command as mp3 audio.
func (c *Controller) GetVoiceCommand(ctx echo.Context) error {
	if c.Voice == nil {
		return c.HandleError(ctx, nil, "Voice commands are disabled", http.StatusServiceUnavailable)
	}

	audio, err := c.Voice.Command(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to synthesize voice command", statusForError(err))
	}

	ctx.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return ctx.Blob(http.StatusOK, voice.ContentType, audio)
}
