// Package broadcast defines the gateway through which the orchestrator
// notifies a workshop's room of phase changes and timer updates.
//
// Delivery is fire-and-forget; per-room ordering is guaranteed (clients see
// events in the order the orchestrator issued them), no ordering is promised
// across rooms.
package broadcast

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Room returns the room identifier for a workshop.
func Room(workshopID int64) string {
	return fmt.Sprintf("workshop_room_%d", workshopID)
}

// TimerState is the payload of the dedicated timer-sync event sent after
// every phase change so client countdowns can resynchronize.
type TimerState struct {
	TaskID           *int64 `json:"task_id"`
	RemainingSeconds int    `json:"remaining_seconds"`
	IsPaused         bool   `json:"is_paused"`
}

// EventTimerSync is the event name of the timer-sync broadcast.
const EventTimerSync = "timer_sync"

// Envelope is the wire format delivered to room subscribers.
type Envelope struct {
	ID        uuid.UUID      `json:"id"`
	Room      string         `json:"room"`
	Event     string         `json:"event"`
	Payload   map[string]any `json:"payload"`
	EmittedAt time.Time      `json:"emitted_at"`
}

// Broadcaster delivers events to all subscribers of a room.
type Broadcaster interface {
	// Emit delivers event/payload to every subscriber of room.
	Emit(room, event string, payload map[string]any)

	// EmitTimerSync delivers the dedicated timer resynchronization event.
	EmitTimerSync(room string, state TimerState, workshopID int64)
}

// Multi fans out to several broadcasters in order (e.g. local WebSocket hub
// plus a NATS bridge for other instances).
type Multi []Broadcaster

func (m Multi) Emit(room, event string, payload map[string]any) {
	for _, b := range m {
		b.Emit(room, event, payload)
	}
}

func (m Multi) EmitTimerSync(room string, state TimerState, workshopID int64) {
	for _, b := range m {
		b.EmitTimerSync(room, state, workshopID)
	}
}

// Discard is a no-op broadcaster for tests and headless runs.
type Discard struct{}

func (Discard) Emit(string, string, map[string]any)     {}
func (Discard) EmitTimerSync(string, TimerState, int64) {}

// TimerSyncPayload renders a TimerState as a generic event payload.
func TimerSyncPayload(state TimerState, workshopID int64) map[string]any {
	return map[string]any{
		"workshop_id":       workshopID,
		"task_id":           state.TaskID,
		"remaining_seconds": state.RemainingSeconds,
		"is_paused":         state.IsPaused,
	}
}
