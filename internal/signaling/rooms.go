package signaling

// RoomIndex tracks which peers are joined to which room. Like the Registry it
// is owned by the Hub and mutated only from the hub goroutine.
//
// Rooms are created implicitly on first join and deleted as soon as their
// last member leaves, except for the protected default rooms, which exist for
// the life of the process even when empty.
type RoomIndex struct {
	rooms    map[string]map[string]struct{}
	defaults map[string]struct{}
}

// NewRoomIndex creates the index with the given protected default rooms
// already present.
func NewRoomIndex(defaultRooms []string) *RoomIndex {
	ri := &RoomIndex{
		rooms:    make(map[string]map[string]struct{}),
		defaults: make(map[string]struct{}, len(defaultRooms)),
	}
	for _, id := range defaultRooms {
		ri.defaults[id] = struct{}{}
		ri.rooms[id] = make(map[string]struct{})
	}
	return ri
}

// Join adds peerID to roomID, creating the room if needed. Idempotent.
func (ri *RoomIndex) Join(roomID, peerID string) {
	members, ok := ri.rooms[roomID]
	if !ok {
		members = make(map[string]struct{})
		ri.rooms[roomID] = members
	}
	members[peerID] = struct{}{}
}

// Leave removes peerID from roomID. When the last member of a non-default
// room leaves, the room is deleted immediately and Leave returns true.
func (ri *RoomIndex) Leave(roomID, peerID string) bool {
	members, ok := ri.rooms[roomID]
	if !ok {
		return false
	}
	delete(members, peerID)
	if len(members) == 0 && !ri.IsDefault(roomID) {
		delete(ri.rooms, roomID)
		return true
	}
	return false
}

// MembersOf returns the peer ids currently in roomID, in no particular order.
func (ri *RoomIndex) MembersOf(roomID string) []string {
	members, ok := ri.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	return out
}

// Exists reports whether roomID currently exists.
func (ri *RoomIndex) Exists(roomID string) bool {
	_, ok := ri.rooms[roomID]
	return ok
}

// IsDefault reports whether roomID is one of the protected default rooms.
func (ri *RoomIndex) IsDefault(roomID string) bool {
	_, ok := ri.defaults[roomID]
	return ok
}

// Rooms returns the ids of all current rooms.
func (ri *RoomIndex) Rooms() []string {
	out := make([]string, 0, len(ri.rooms))
	for id := range ri.rooms {
		out = append(out, id)
	}
	return out
}
