package serenity

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

// AudioSource supplies encoded microphone samples to a real-time session.
// Go has no ambient media-device layer, so the capture device is injected:
// ReadSample blocks until the next frame is available and returns an error
// (typically io.EOF) when the device is exhausted.
type AudioSource interface {
	ReadSample() (media.Sample, error)
	Close() error
}

// AudioSink receives remote audio samples from a real-time session. When no
// sink is configured, inbound audio is drained.
type AudioSink interface {
	WriteSample(sample media.Sample) error
}

// remoteSampleDuration is assumed for inbound RTP payloads handed to the
// sink; opus vendor streams frame at 20ms.
const remoteSampleDuration = 20 * time.Millisecond

// microphonePump moves samples from an AudioSource onto a local WebRTC
// track. Muting gates the pump without touching the transport, mirroring a
// track's enabled flag.
type microphonePump struct {
	track  *webrtc.TrackLocalStaticSample
	source AudioSource

	muted    atomic.Bool
	done     chan struct{}
	stopOnce sync.Once
}

func newMicrophonePump(track *webrtc.TrackLocalStaticSample, source AudioSource) *microphonePump {
	return &microphonePump{
		track:  track,
		source: source,
		done:   make(chan struct{}),
	}
}

func (p *microphonePump) start() {
	go p.loop()
}

func (p *microphonePump) loop() {
	for {
		select {
		case <-p.done:
			return
		default:
		}

		sample, err := p.source.ReadSample()
		if err != nil {
			return
		}
		if p.muted.Load() {
			continue
		}
		if err := p.track.WriteSample(sample); err != nil {
			return
		}
	}
}

func (p *microphonePump) setMuted(muted bool) {
	p.muted.Store(muted)
}

// stop halts the pump and closes the capture device.
func (p *microphonePump) stop() {
	p.stopOnce.Do(func() {
		close(p.done)
		_ = p.source.Close()
	})
}
