package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/cafe-app/middlewares"
	"github.com/yeremiapane/cafe-app/realtime"
	"github.com/yeremiapane/cafe-app/utils"
)

type RealtimeController struct {
	Hub      *realtime.Hub
	upgrader websocket.Upgrader
}

// NewRealtimeController accepts any origin when allowedOrigins is empty.
func NewRealtimeController(hub *realtime.Hub, allowedOrigins []string) *RealtimeController {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimSpace(o)] = true
	}
	return &RealtimeController{
		Hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || allowed["*"] || origin == "" || allowed[origin]
			},
		},
	}
}

// initialRooms reads ?rooms=a,b and ?orderId=X. Staff default to staff-room.
func initialRooms(c *gin.Context, role string) []string {
	var rooms []string
	for _, r := range strings.Split(c.Query("rooms"), ",") {
		if r = strings.TrimSpace(r); r != "" {
			rooms = append(rooms, r)
		}
	}
	if orderID := strings.TrimSpace(c.Query("orderId")); orderID != "" {
		rooms = append(rooms, realtime.OrderRoom(orderID))
	}
	if len(rooms) == 0 && (role == realtime.RoleStaff || role == realtime.RoleAdmin) {
		rooms = append(rooms, realtime.StaffRoom)
	}
	return rooms
}

// ServeWS upgrades the request and hands the connection to the hub.
func (rc *RealtimeController) ServeWS(c *gin.Context) {
	p := middlewares.CurrentPrincipal(c)
	rooms := initialRooms(c, p.Role)

	conn, err := rc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Errorf("websocket upgrade failed: %v", err)
		return
	}

	utils.InfoLogger.Printf("WebSocket connected: role=%s rooms=%v", p.Role, rooms)
	rc.Hub.Serve(conn, p.Role, rooms)
	utils.InfoLogger.Printf("WebSocket disconnected: role=%s", p.Role)
}
