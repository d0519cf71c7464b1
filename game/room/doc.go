// Package room keeps the live Uno rooms of a process.
//
// A Registry stores rooms by generated id with a secondary passcode index,
// and runs every game command against one room at a time:
//
//	reg := room.NewRegistry(room.WithLogger(logger))
//	snap, err := reg.CreateRoom("4821", room.Participant{ID: "alice", Channel: ch})
//	...
//	res, err := reg.PlayCard(snap.ID, "alice", 0, engine.Blue)
//
// Each room has its own lock, so commands on different rooms never wait on
// each other. Commands return Snapshots, copies taken under the room lock, so
// notifications can be built and sent after the lock is released.
//
// Rejected commands return an *Error whose Kind names the reason; the room is
// left exactly as it was.
package room
