package handler

import (
	"log"
	"net/http"

	"github.com/finscale/finscale-api/internal/model"
	"github.com/finscale/finscale-api/internal/ws"
	"github.com/finscale/finscale-api/pkg/auth"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Mobile clients send no Origin; browsers are covered by the CORS allow-list
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler handles WebSocket connections to the live shift board
type WSHandler struct {
	hub        *ws.Hub
	jwtManager *auth.JWTManager
	blacklist  auth.Blacklist
}

func NewWSHandler(hub *ws.Hub, jwtManager *auth.JWTManager, blacklist auth.Blacklist) *WSHandler {
	return &WSHandler{
		hub:        hub,
		jwtManager: jwtManager,
		blacklist:  blacklist,
	}
}

// HandleWebSocket upgrades HTTP to WebSocket and manages the connection
// Client connects with: ws://host/ws?token=<jwt_token>
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	// Authenticate via query parameter (WebSocket can't use Authorization header)
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "Token required"})
		return
	}

	claims, err := h.jwtManager.ValidateToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "Invalid token"})
		return
	}
	if revoked, err := h.blacklist.IsRevoked(c.Request.Context(), tokenString); err != nil || revoked {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "Token has been revoked"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := ws.NewClient(h.hub, conn, claims.UserID)
	h.hub.Register(client)

	log.Printf("✅ WS Connected: UserID=%s", claims.UserID)

	go client.WritePump()
	go client.ReadPump()
}
