// r in rserial stands for "robust"
package rserial

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

const readTimeout = 5 * time.Millisecond

// maxConsecutiveErrors is how many port errors in a row mark the scale as
// failed.
const maxConsecutiveErrors = 3

// FaultReporter is told when the link to a scale board is gone for good.
type FaultReporter interface {
	MarkFault(err error)
}

type rserial struct {
	serial.Port
	MessageQueue  chan<- []byte // channels are all implicitly passed as pointers
	tempBuff      []byte
	logger        *zap.Logger
	portName      string
	stopSequence  []byte
	rawPacketSize int
	faults        FaultReporter
}

type OutOfSyncError struct {
	ByteSequence []byte
}

func (e *OutOfSyncError) Error() string {
	return fmt.Sprintf("[rserial] incorrect stop sequence detected: %v", e.ByteSequence)
}

func NewRSerial(portName string, baudrate int, messageQueue chan<- []byte, logger *zap.Logger, rawPacketSize int, stopSequence []byte, faults FaultReporter) (*rserial, error) {
	mode := &serial.Mode{
		BaudRate: baudrate,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}

	return newRSerialFromPort(port, portName, messageQueue, logger, rawPacketSize, stopSequence, faults), nil
}

func newRSerialFromPort(port serial.Port, portName string, messageQueue chan<- []byte, logger *zap.Logger, rawPacketSize int, stopSequence []byte, faults FaultReporter) *rserial {
	return &rserial{
		Port:          port,
		MessageQueue:  messageQueue,
		tempBuff:      make([]byte, rawPacketSize),
		logger:        logger,
		portName:      portName,
		stopSequence:  stopSequence,
		rawPacketSize: rawPacketSize,
		faults:        faults,
	}
}

func (r *rserial) initialize(ctx context.Context) error {
	if err := r.SetReadTimeout(readTimeout); err != nil {
		return err
	}
	if err := r.ResetInputBuffer(); err != nil {
		return err
	}
	return r.sync(ctx)
}

// Run reads frames until ctx is done. The message queue is closed on exit.
func (r *rserial) Run(ctx context.Context) {
	defer close(r.MessageQueue)

	if err := r.initialize(ctx); err != nil {
		r.fail(err)
		return
	}

	consecutiveErrors := 0
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("[rserial] exiting from rserial read loop", zap.String("portName", r.portName))
			return
		default:
		}

		err := r.ReadPacket(ctx)
		if err == nil {
			consecutiveErrors = 0
			continue
		}

		var oosError *OutOfSyncError
		if errors.As(err, &oosError) {
			r.logger.Warn("[rserial] packet out of sync", zap.Error(err), zap.String("portName", r.portName), zap.ByteString("payload", oosError.ByteSequence))
			if err := r.sync(ctx); err != nil {
				r.fail(err)
				return
			}
			continue
		}
		if errors.Is(err, context.Canceled) {
			continue
		}

		consecutiveErrors++
		r.logger.Warn("[rserial] error while attempting to read packet from serial", zap.Error(err), zap.String("portName", r.portName), zap.Int("consecutive", consecutiveErrors))
		if consecutiveErrors >= maxConsecutiveErrors {
			r.fail(err)
			return
		}
	}
}

// ReadPacket reads one frame and queues a copy of it.
func (r *rserial) ReadPacket(ctx context.Context) error {
	count := 0
	for count < r.rawPacketSize {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// a read timeout returns zero bytes and no error
		n, err := r.Read(r.tempBuff[count:])
		if err != nil {
			return err
		}
		count += n
	}

	// validate that the packet is valid by checking the trailing stop sequence
	if !bytes.Equal(r.tempBuff[r.rawPacketSize-len(r.stopSequence):], r.stopSequence) {
		byteSequenceCopy := make([]byte, r.rawPacketSize)
		copy(byteSequenceCopy, r.tempBuff)

		return &OutOfSyncError{
			ByteSequence: byteSequenceCopy,
		}
	}

	packet := make([]byte, r.rawPacketSize)
	copy(packet, r.tempBuff)

	select {
	case r.MessageQueue <- packet:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// sync discards bytes up to and including the next stop sequence.
func (r *rserial) sync(ctx context.Context) error {
	r.logger.Warn("[rserial] resyncing serial port", zap.String("portName", r.portName))
	onebyte := make([]byte, 1)
	last := r.stopSequence[len(r.stopSequence)-1]

	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := r.Read(onebyte)
		if err != nil {
			return fmt.Errorf("resync %s: %w", r.portName, err)
		}
		if n == 1 && onebyte[0] == last {
			return nil
		}
	}
}

func (r *rserial) fail(err error) {
	r.logger.Error("[rserial] scale link failed", zap.Error(err), zap.String("portName", r.portName))
	if r.faults != nil {
		r.faults.MarkFault(fmt.Errorf("serial %s: %w", r.portName, err))
	}
}
