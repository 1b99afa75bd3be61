package bluetooth

import (
	"context"
	"fmt"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"
)

// WriteAckTimeout bounds how long a single chunk may stay unacknowledged
// before the write is abandoned.
const WriteAckTimeout = 10 * time.Second

// Port carries chunks to the peer. Implementations hand each chunk to the
// platform stack and report completion through the writer's OnWriteDone.
type Port interface {
	WriteCharacteristic(uuid string, data []byte) error
}

// Writer performs chunked, acknowledged characteristic writes. A write
// larger than DataMaxLen is split into write-unit chunks, each of which
// must be acknowledged before the next one goes out. Acknowledgements
// arrive asynchronously per characteristic through OnWriteDone.
type Writer struct {
	port    Port
	timeout time.Duration
	pending *hashmap.Map[string, chan bool]
	logger  *logrus.Logger
}

// NewWriter builds a writer for the given port.
func NewWriter(port Port, logger *logrus.Logger) *Writer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Writer{
		port:    port,
		timeout: WriteAckTimeout,
		pending: hashmap.New[string, chan bool](),
		logger:  logger,
	}
}

// SetAckTimeout overrides the per-chunk acknowledgement timeout.
func (w *Writer) SetAckTimeout(timeout time.Duration) {
	if timeout > 0 {
		w.timeout = timeout
	}
}

// Write sends data to the characteristic, chunked to the write unit.
// Blocks until every chunk is acknowledged, the context is cancelled, or
// a chunk times out.
func (w *Writer) Write(ctx context.Context, uuid string, data []byte) error {
	log := w.logger.WithFields(logrus.Fields{
		"char": ShortenUUID(uuid),
		"len":  len(data),
	})
	log.Debug("writing characteristic")

	for start := 0; start < len(data); start += DataMaxLen {
		end := start + DataMaxLen
		if end > len(data) {
			end = len(data)
		}
		if err := w.writeChunk(ctx, uuid, data[start:end]); err != nil {
			return fmt.Errorf("write chunk at %d: %w", start, err)
		}
	}
	return nil
}

func (w *Writer) writeChunk(ctx context.Context, uuid string, chunk []byte) error {
	ack := make(chan bool, 1)
	if !w.pending.Insert(uuid, ack) {
		return fmt.Errorf("write already pending on %s", ShortenUUID(uuid))
	}
	defer w.pending.Del(uuid)

	if err := w.port.WriteCharacteristic(uuid, chunk); err != nil {
		return err
	}

	timer := time.NewTimer(w.timeout)
	defer timer.Stop()

	select {
	case ok := <-ack:
		if !ok {
			return fmt.Errorf("peer rejected write on %s", ShortenUUID(uuid))
		}
		return nil
	case <-timer.C:
		return ErrWriteTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnWriteDone reports the outcome of the outstanding write on a
// characteristic. Safe to call without a pending write.
func (w *Writer) OnWriteDone(uuid string, ok bool) {
	ack, found := w.pending.Get(uuid)
	if !found {
		w.logger.WithField("char", ShortenUUID(uuid)).Debug("ack without pending write")
		return
	}
	select {
	case ack <- ok:
	default:
	}
}
