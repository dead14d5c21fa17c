package events

import (
	"context"
	"testing"
	"time"

	"github.com/DoyleJ11/simon-backend/internal/engine"
	"github.com/DoyleJ11/simon-backend/internal/pad"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubject_EscapesTokenSeparators(t *testing.T) {
	assert.Equal(t, "simon.events.ana.RoundCompleted", Subject("simon.events", "ana", engine.EvtRoundCompleted))
	assert.Equal(t, "p.a_b_c.GameEnded", Subject("p", "a.b*c", engine.EvtGameEnded))
}

func TestNewEnvelope(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	env := NewEnvelope("ana", engine.Event{Type: engine.EvtPadAppended, Pad: pad.Red, Level: 2}, at)

	_, err := uuid.Parse(env.EventID)
	require.NoError(t, err)
	assert.Equal(t, "PadAppended", env.EventType)
	assert.Equal(t, "red", env.Pad)
	assert.Equal(t, 2, env.Level)
	assert.Equal(t, time.UTC, env.Timestamp.Location())
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), "x", []engine.Event{{Type: engine.EvtGameEnded}}))
	assert.NoError(t, p.Close())
}
