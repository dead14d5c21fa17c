package types

// Client -> Server
// PUT /api/v1/game-state: no body, starts a new game.
//
// POST /api/v1/game-state/sequence:
//
//	sequence: string[]
type SequenceRequest struct {
	Sequence []string `json:"sequence"`
}

// Server -> Client on any non-2xx response.
//
//	error: string
//	code: one of the Code* constants
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

const (
	CodeBadRequest     = "bad_request"
	CodeWrongSequence  = "wrong_sequence"
	CodeLengthMismatch = "length_mismatch"
	CodeUnknownPad     = "unknown_pad"
	CodeGameOver       = "game_over"
	CodeInternal       = "internal"
)
