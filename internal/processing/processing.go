package processing

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

// Status bits reported by a scale board, mirroring the HX711 timeout flags.
const (
	StatusTareTimeout   uint32 = 1 << 0
	StatusSignalTimeout uint32 = 1 << 1
)

type Processor struct {
	Name         string
	Filename     string
	MessageQueue <-chan []byte
	logger       *zap.Logger
	dataStore    *DataSampleStore
	lastPacket   int64
}

// DataPacket is one reading from a scale board, little endian.
type DataPacket struct {
	PacketNumber uint32
	Timestamp    uint32 // board millis
	Grams        float32
	Status       uint32
}

var StopSequence = []byte{'\r', '\n'}

var PacketSize = binary.Size(DataPacket{})

// FrameSize is a packet plus its stop sequence, as read off the wire.
var FrameSize = PacketSize + len(StopSequence)

// NewProcessor decodes frames for the scale called name. An empty filename
// disables the raw csv log.
func NewProcessor(name, filename string, messageQueue <-chan []byte, logger *zap.Logger, dataStore *DataSampleStore) *Processor {
	return &Processor{
		Name:         name,
		Filename:     filename,
		MessageQueue: messageQueue,
		logger:       logger,
		dataStore:    dataStore,
		lastPacket:   -1,
	}
}

func (p *Processor) Run(ctx context.Context) error {
	var out io.Writer = io.Discard
	if p.Filename != "" {
		file, err := os.OpenFile(p.Filename, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open raw log %s: %w", p.Filename, err)
		}
		defer file.Close()

		writer := bufio.NewWriter(file)
		defer writer.Flush()
		out = writer
	}

	for {
		select {
		case packet, ok := <-p.MessageQueue:
			if !ok {
				p.logger.Info("[processor] message queue closed", zap.String("scale", p.Name))
				return nil
			}

			if err := p.ProcessPacket(packet, out); err != nil {
				p.logger.Warn(
					"[processor] error decoding byte packet",
					zap.Error(err),
					zap.String("scale", p.Name),
					zap.Int("packetLength", len(packet)),
					zap.ByteString("rawBytes", packet),
				)
			}
		case <-ctx.Done():
			p.logger.Info("[processor] received shutdown signal", zap.String("scale", p.Name))
			return nil
		}
	}
}

func (p *Processor) ProcessPacket(packet []byte, outStream io.Writer) error {
	if len(packet) < PacketSize {
		return fmt.Errorf("short packet: %d of %d bytes", len(packet), PacketSize)
	}

	var decoded DataPacket
	if err := binary.Read(bytes.NewReader(packet[:PacketSize]), binary.LittleEndian, &decoded); err != nil {
		return err
	}

	if p.lastPacket >= 0 && int64(decoded.PacketNumber) != p.lastPacket+1 {
		p.logger.Warn(
			"[processor] packet sequence gap",
			zap.String("scale", p.Name),
			zap.Int64("expected", p.lastPacket+1),
			zap.Uint32("got", decoded.PacketNumber),
		)
	}
	p.lastPacket = int64(decoded.PacketNumber)

	fmt.Fprintf(outStream, "%d,%d,%.2f,%d\n",
		decoded.PacketNumber,
		decoded.Timestamp,
		decoded.Grams,
		decoded.Status,
	)

	p.dataStore.UpdateSampleStore(float64(decoded.Grams), int(decoded.Timestamp), decoded.Status)
	return nil
}
