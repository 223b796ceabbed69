package source

import (
	"context"
	"sync"

	"go.bug.st/serial"
)

// SerialSource reads an AIS receiver on a serial device. Failures are
// retried with backoff until ctx ends.
type SerialSource struct {
	base
	Device string
	Baud   int
}

// Run reads lines until ctx is cancelled.
func (s *SerialSource) Run(ctx context.Context, out chan<- Line) error {
	for ctx.Err() == nil {
		err := s.readPort(ctx, out)
		if ctx.Err() != nil {
			break
		}
		s.logger.Warn().Err(err).Msg("serial source failed, retrying")
		if !s.backoff.Wait(ctx) {
			break
		}
	}
	return nil
}

func (s *SerialSource) readPort(ctx context.Context, out chan<- Line) error {
	port, err := serial.Open(s.Device, &serial.Mode{BaudRate: s.Baud})
	if err != nil {
		return err
	}
	s.logger.Info().Int("baud", s.Baud).Msg("serial port opened")
	s.backoff.Reset()

	// Closing the port unblocks a pending Read.
	var once sync.Once
	closePort := func() { once.Do(func() { _ = port.Close() }) }
	defer closePort()
	stop := context.AfterFunc(ctx, closePort)
	defer stop()

	err = s.scan(ctx, port, out, true)
	if err == nil {
		err = errInputClosed
	}
	return err
}
