package models

import (
	"github.com/aukilabs/roomlayout/geom"
)

type DebugEventType string

const (
	DebugEventCollisionRejected DebugEventType = "collision_rejected"
	DebugEventBoundsFallback    DebugEventType = "bounds_fallback"
	DebugEventInvalidTransform  DebugEventType = "invalid_transform"
)

// DebugEvent carries what a host needs to draw diagnostic overlays.
type DebugEvent struct {
	Type     DebugEventType `json:"type"`
	ObjectID ObjectID       `json:"object_id"`
	Reason   string         `json:"reason,omitempty"`

	// The volume that was checked or estimated.
	Volume geom.Box `json:"volume"`

	Conflicts       []ObjectID `json:"conflicts,omitempty"`
	ConflictVolumes []geom.Box `json:"conflict_volumes,omitempty"`
}

// DebugHook receives debug events. It is called synchronously.
type DebugHook func(DebugEvent)

// Emit calls h with e when h is set.
func (h DebugHook) Emit(e DebugEvent) {
	if h != nil {
		h(e)
	}
}
