package game

import "github.com/DoyleJ11/simon-backend/internal/pad"

type InputKind int

const (
	InputPad InputKind = iota
	InputStart
	InputReplay
	InputReset
	InputOscillator
	InputQuit
)

type Input struct {
	Kind InputKind
	Pad  pad.Color // set for InputPad
}

func PadInput(c pad.Color) Input { return Input{Kind: InputPad, Pad: c} }
