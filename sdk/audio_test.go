package serenity

import (
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource hands out a fixed number of samples, then EOF.
type fakeSource struct {
	remaining atomic.Int32
	closed    atomic.Bool
}

func (f *fakeSource) ReadSample() (media.Sample, error) {
	if f.remaining.Add(-1) < 0 {
		return media.Sample{}, io.EOF
	}
	return media.Sample{Data: []byte{0x01}, Duration: 20 * time.Millisecond}, nil
}

func (f *fakeSource) Close() error {
	f.closed.Store(true)
	return nil
}

func TestMicrophonePumpMutingSkipsSamples(t *testing.T) {
	source := &fakeSource{}
	source.remaining.Store(3)

	pump := newMicrophonePump(nil, source)
	pump.setMuted(true)

	// Muted samples are consumed but never written, so a nil track is safe.
	pump.loop()
	assert.Equal(t, int32(-1), source.remaining.Load())
}

func TestMicrophonePumpStopClosesSource(t *testing.T) {
	source := &fakeSource{}
	pump := newMicrophonePump(nil, source)

	pump.stop()
	pump.stop()

	require.True(t, source.closed.Load())
}

func TestMicrophonePumpStopHaltsLoop(t *testing.T) {
	source := &fakeSource{}
	source.remaining.Store(1 << 30)

	pump := newMicrophonePump(nil, source)
	pump.setMuted(true)
	done := make(chan struct{})
	go func() {
		pump.loop()
		close(done)
	}()

	pump.stop()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pump loop did not stop")
	}
}
