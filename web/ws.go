package web

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"TreeDetServer/logger"
	"TreeDetServer/pipeline"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// decodeBase64 accepts plain base64 or a data:image/...;base64, URL.
func decodeBase64(b64 string) ([]byte, error) {
	b64 = strings.TrimSpace(b64)
	if i := strings.Index(b64, ","); i != -1 && strings.HasPrefix(b64, "data:") {
		b64 = b64[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, &pipeline.InputError{Reason: "invalid base64 image", Err: err}
	}
	return data, nil
}

// wsHandler annotates every frame of a websocket connection. Text frames carry
// base64 images, binary frames raw image bytes. Each frame gets one JSON reply.
func wsHandler(pool *pipeline.Pool) gin.HandlerFunc {
	log := logger.Named(logger.WS)
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// the upgrader has already replied
			return
		}
		defer conn.Close()
		conn.SetReadLimit(maxUpload)

		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warn("connection closed", zap.Error(err))
				}
				return
			}

			out, err := annotateFrame(c.Request.Context(), pool, mt, msg)
			var reply any = out
			if err != nil {
				reply = gin.H{"error": err.Error(), "kind": pipeline.Kind(err)}
			}
			if err := conn.WriteJSON(reply); err != nil {
				log.Warn("write failed", zap.Error(err))
				return
			}
		}
	}
}

func annotateFrame(ctx context.Context, pool *pipeline.Pool, mt int, msg []byte) (*pipeline.Output, error) {
	data := msg
	if mt == websocket.TextMessage {
		var err error
		if data, err = decodeBase64(string(msg)); err != nil {
			return nil, err
		}
	}
	return pool.Submit(ctx, "ws", data)
}
