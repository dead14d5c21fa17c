package synth

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Synth renders pad notes and hands them to a Sink on its own goroutine so playback
// never stalls the caller. Notes arriving while the queue is full are dropped.
type Synth struct {
	mu     sync.Mutex
	osc    Oscillator
	sink   Sink
	rate   int
	length time.Duration
	log    *zap.Logger
	queue  chan []int16
	done   chan struct{}
}

func New(sink Sink, sampleRate int, noteLength time.Duration, osc Oscillator, log *zap.Logger) *Synth {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Synth{
		osc:    osc,
		sink:   sink,
		rate:   sampleRate,
		length: noteLength,
		log:    log,
		queue:  make(chan []int16, 8),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Synth) Oscillator() Oscillator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.osc
}

func (s *Synth) SetOscillator(o Oscillator) {
	s.mu.Lock()
	s.osc = o
	s.mu.Unlock()
}

// TriggerAttackRelease queues one note of the configured length.
func (s *Synth) TriggerAttackRelease(note string) error {
	freq, err := Frequency(note)
	if err != nil {
		return err
	}
	samples := Render(s.Oscillator(), freq, s.length, s.rate)
	select {
	case s.queue <- samples:
	default:
		s.log.Debug("note dropped, audio queue full", zap.String("note", note))
	}
	return nil
}

func (s *Synth) run() {
	defer close(s.done)
	for samples := range s.queue {
		if err := s.sink.Play(samples); err != nil {
			s.log.Warn("audio sink", zap.Error(err))
		}
	}
}

// Close drains queued notes and closes the sink.
func (s *Synth) Close() error {
	close(s.queue)
	<-s.done
	return s.sink.Close()
}
