package synth

import (
	"encoding/binary"
	"fmt"
	"io"
	"os/exec"
)

// Sink plays rendered samples.
type Sink interface {
	Play(samples []int16) error
	Close() error
}

type Nop struct{}

func (Nop) Play([]int16) error { return nil }
func (Nop) Close() error       { return nil }

// Bell rings the terminal bell for every note.
type Bell struct {
	W io.Writer
}

func (b Bell) Play([]int16) error {
	_, err := b.W.Write([]byte{'\a'})
	return err
}

func (Bell) Close() error { return nil }

// Pipe streams raw little-endian PCM into a long-running player process, e.g.
// aplay -q -f S16_LE -c 1 -r 44100.
type Pipe struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

func NewPipe(argv []string) (*Pipe, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty audio command")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("audio stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", argv[0], err)
	}
	return &Pipe{cmd: cmd, stdin: stdin}, nil
}

func (p *Pipe) Play(samples []int16) error {
	return binary.Write(p.stdin, binary.LittleEndian, samples)
}

func (p *Pipe) Close() error {
	if err := p.stdin.Close(); err != nil {
		return err
	}
	return p.cmd.Wait()
}
