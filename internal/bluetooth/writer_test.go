package bluetooth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// ackingPort acknowledges every chunk as soon as the writer hands it over.
type ackingPort struct {
	writer *Writer
	chunks [][]byte
	ack    bool
}

func (p *ackingPort) WriteCharacteristic(uuid string, data []byte) error {
	chunk := make([]byte, len(data))
	copy(chunk, data)
	p.chunks = append(p.chunks, chunk)
	go p.writer.OnWriteDone(uuid, p.ack)
	return nil
}

type silentPort struct{}

func (silentPort) WriteCharacteristic(string, []byte) error { return nil }

func TestWriterSingleChunk(t *testing.T) {
	port := &ackingPort{ack: true}
	w := NewWriter(port, quietLogger())
	port.writer = w

	err := w.Write(context.Background(), CharNewAlert, []byte("short"))
	require.NoError(t, err)
	require.Len(t, port.chunks, 1)
	assert.Equal(t, []byte("short"), port.chunks[0])
}

func TestWriterChunksLongWrites(t *testing.T) {
	port := &ackingPort{ack: true}
	w := NewWriter(port, quietLogger())
	port.writer = w

	data := make([]byte, 45)
	for i := range data {
		data[i] = byte(i)
	}

	err := w.Write(context.Background(), CharDeviceCommunication, data)
	require.NoError(t, err)
	require.Len(t, port.chunks, 3)
	assert.Len(t, port.chunks[0], DataMaxLen)
	assert.Len(t, port.chunks[1], DataMaxLen)
	assert.Len(t, port.chunks[2], 5)
	assert.Equal(t, data[:DataMaxLen], port.chunks[0])
	assert.Equal(t, data[40:], port.chunks[2])
}

func TestWriterRejectedChunkStopsWrite(t *testing.T) {
	port := &ackingPort{ack: false}
	w := NewWriter(port, quietLogger())
	port.writer = w

	err := w.Write(context.Background(), CharNewAlert, make([]byte, 45))
	require.Error(t, err)
	assert.Len(t, port.chunks, 1, "must stop after the first rejected chunk")
}

func TestWriterAckTimeout(t *testing.T) {
	w := NewWriter(silentPort{}, quietLogger())
	w.SetAckTimeout(20 * time.Millisecond)

	err := w.Write(context.Background(), CharNewAlert, []byte("x"))
	assert.ErrorIs(t, err, ErrWriteTimeout)
}

func TestWriterSetAckTimeout(t *testing.T) {
	w := NewWriter(silentPort{}, quietLogger())
	assert.Equal(t, WriteAckTimeout, w.timeout)

	w.SetAckTimeout(3 * time.Second)
	assert.Equal(t, 3*time.Second, w.timeout)

	// zero and negative values keep the current timeout
	w.SetAckTimeout(0)
	assert.Equal(t, 3*time.Second, w.timeout)
	w.SetAckTimeout(-time.Second)
	assert.Equal(t, 3*time.Second, w.timeout)
}

func TestWriterContextCancelled(t *testing.T) {
	w := NewWriter(silentPort{}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.Write(ctx, CharNewAlert, []byte("x"))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestWriterLateAckIgnored(t *testing.T) {
	w := NewWriter(silentPort{}, quietLogger())

	// no pending write registered for this characteristic
	w.OnWriteDone(CharNewAlert, true)
}
