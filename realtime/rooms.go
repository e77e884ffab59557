package realtime

import "strings"

const (
	StaffRoom = "staff-room"
	AdminRoom = "admin-room"
	// Global receives every event regardless of its rooms.
	Global = "*"

	orderRoomPrefix = "order-"
)

const (
	RoleGuest = "guest"
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

func OrderRoom(orderID string) string {
	return orderRoomPrefix + orderID
}

// OrderRooms is where a change to one order is delivered.
func OrderRooms(orderID string) []string {
	return []string{OrderRoom(orderID), StaffRoom, AdminRoom}
}

// CanJoin reports whether a connection with role may subscribe to room.
func CanJoin(role, room string) bool {
	switch {
	case strings.HasPrefix(room, orderRoomPrefix) && len(room) > len(orderRoomPrefix):
		return true
	case room == StaffRoom:
		return role == RoleStaff || role == RoleAdmin
	case room == AdminRoom, room == Global:
		return role == RoleAdmin
	}
	return false
}
