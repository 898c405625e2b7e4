// Package natsbus bridges workshop room broadcasts onto NATS subjects so
// other instances (or external consumers) can observe phase changes.
// Subjects follow workshop.room.<id>.<event>; subscribers interested in a
// whole room use the workshop.room.<id>.> wildcard.
package natsbus

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/broadcomms/brainstormx/internal/broadcast"
)

// Publisher implements broadcast.Broadcaster over a NATS connection.
type Publisher struct {
	nc     *nats.Conn
	logger *slog.Logger
}

// Connect dials NATS and returns a Publisher.
func Connect(url string, logger *slog.Logger) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("brainstormx-broadcast"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats at %s: %w", url, err)
	}
	logger.Info("nats broadcast bridge connected", slog.String("url", url))
	return &Publisher{nc: nc, logger: logger}, nil
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
	}
}

func subject(room, event string) string {
	// Room names are workshop_room_<id>; subjects use the dotted form.
	id := strings.TrimPrefix(room, "workshop_room_")
	return fmt.Sprintf("workshop.room.%s.%s", id, event)
}

// Emit implements broadcast.Broadcaster.
func (p *Publisher) Emit(room, event string, payload map[string]any) {
	env := broadcast.Envelope{
		ID:        uuid.New(),
		Room:      room,
		Event:     event,
		Payload:   payload,
		EmittedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(env)
	if err != nil {
		p.logger.Error("encoding nats envelope",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := p.nc.Publish(subject(room, event), data); err != nil {
		// Fire-and-forget: log and move on, never block a phase transition.
		p.logger.Warn("nats publish failed",
			slog.String("subject", subject(room, event)),
			slog.String("error", err.Error()),
		)
	}
}

// EmitTimerSync implements broadcast.Broadcaster.
func (p *Publisher) EmitTimerSync(room string, state broadcast.TimerState, workshopID int64) {
	p.Emit(room, broadcast.EventTimerSync, broadcast.TimerSyncPayload(state, workshopID))
}
