// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package bridge

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeHTTP upgrades the inbound gin request to a WebSocket and runs the
// call lifecycle on it (spec §4.8/§4.12, both media-stream routes share
// this entrypoint — the dynamic-variable set differs only in what the
// telephony start frame's custom parameters carry).
func (m *Manager) ServeHTTP(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		m.logger.Warnw("bridge: websocket upgrade failed", "error", err.Error())
		return
	}
	m.Serve(c.Request.Context(), conn)
}
