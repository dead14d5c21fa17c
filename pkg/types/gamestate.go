package types

// GameState:
//
//	sequence: string[]  // "red" | "blue" | "yellow" | "green"
//	highScore: number
//	level: number       // == len(sequence) while a game is running
type GameState struct {
	Sequence  []string `json:"sequence"`
	HighScore int      `json:"highScore"`
	Level     int      `json:"level"`
}

// Every game-state endpoint wraps the state in this envelope.
type GameStateEnvelope struct {
	GameState GameState `json:"gameState"`
}

type HighScore struct {
	Player string `json:"player"`
	Score  int    `json:"score"`
}

type HighScoresResponse struct {
	HighScores []HighScore `json:"highScores"`
}
