package types

import "github.com/DoyleJ11/simon-backend/pkg/types"

type ServerMessage struct {
	Type      string           `json:"type"` // "StateSnapshot" | "Error"
	Version   int              `json:"version,omitempty"`
	Phase     string           `json:"phase,omitempty"`
	GameState *types.GameState `json:"gameState,omitempty"`
	Error     string           `json:"error,omitempty"`
}
