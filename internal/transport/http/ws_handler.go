package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/netchat/netchat-server/internal/auth"
	"github.com/netchat/netchat-server/internal/core"
)

// WSHandler upgrades HTTP connections and bridges them into the session
// engine. WebSocket clients authenticate out-of-band with a token, so
// they skip the username/password line handshake.
type WSHandler struct {
	gate   *auth.Gate
	reg    *core.Registry
	worker *core.Worker
	log    *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(gate *auth.Gate, reg *core.Registry, worker *core.Worker, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		gate:   gate,
		reg:    reg,
		worker: worker,
		log:    logger,
	}
}

// Handle serves GET /ws?token=<jwt>.
func (h *WSHandler) Handle(c *gin.Context) {
	claims, err := h.gate.ValidateToken(c.Query("token"))
	if err != nil {
		h.log.Debug().Err(err).Msg("ws token rejected")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}

	ctx := c.Request.Context()
	ch := newWSChannel(ctx, conn)

	sess, err := h.reg.Admit(ch)
	if err != nil {
		_ = ch.WriteLine(core.ServerFullNotice)
		conn.Close(websocket.StatusTryAgainLater, "server full")
		return
	}

	h.log.Info().Str("username", claims.Username).Str("session_id", sess.ID).Msg("ws client connected")

	// Blocks for the lifetime of the session, like any other worker.
	h.worker.RunAuthenticated(ctx, sess, claims.Username)
}

// wsChannel maps one text message to one chat line in both directions.
type wsChannel struct {
	ctx  context.Context
	conn *websocket.Conn
}

func newWSChannel(ctx context.Context, conn *websocket.Conn) *wsChannel {
	return &wsChannel{ctx: ctx, conn: conn}
}

func (c *wsChannel) ReadLine() (string, error) {
	_, data, err := c.conn.Read(c.ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func (c *wsChannel) WriteLine(s string) error {
	return c.conn.Write(c.ctx, websocket.MessageText, []byte(s))
}

func (c *wsChannel) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "closing")
}
