package stream

import (
	"context"
	"time"

	"github.com/pion/webrtc/v4/pkg/media"
	"go.uber.org/zap"

	"github.com/sentinelid/backend/internal/logging"
)

// SampleWriter is the outbound transport track. Satisfied by
// webrtc.TrackLocalStaticSample.
type SampleWriter interface {
	WriteSample(media.Sample) error
}

// CaptureFunc produces one encoded frame from the session's page. It is
// expected to run the capture on the engine worker with a bounded
// timeout.
type CaptureFunc func(ctx context.Context) ([]byte, error)

// Streamer pushes frames from one session to one transport track at a
// target rate.
type Streamer struct {
	track    SampleWriter
	capture  CaptureFunc
	interval time.Duration
	width    int
	height   int
	log      *logging.Logger

	// clock is the track's presentation clock. It advances by exactly
	// one interval per emitted frame, error frames included.
	clock time.Duration
}

// New creates a streamer for one peer connection.
func New(track SampleWriter, capture CaptureFunc, interval time.Duration, width, height int, log *logging.Logger) *Streamer {
	if interval <= 0 {
		interval = time.Second / 15
	}
	return &Streamer{
		track:    track,
		capture:  capture,
		interval: interval,
		width:    width,
		height:   height,
		log:      log.Named("stream"),
	}
}

// Run produces frames until ctx is cancelled. Throttling waits on a
// timer rather than spinning, so other work interleaves freely.
func (s *Streamer) Run(ctx context.Context) {
	s.log.Info("streamer started", zap.Duration("interval", s.interval))
	defer s.log.Info("streamer stopped")

	var lastFrame time.Time
	for {
		if wait := s.interval - time.Since(lastFrame); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
		if ctx.Err() != nil {
			return
		}
		lastFrame = time.Now()

		frame, err := s.capture(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn("frame capture failed", zap.Error(err))
			frame = ErrorFrame(s.width, s.height, err.Error())
		}

		// The presentation clock advances on every frame so the track
		// never stalls, even when the frame is a placeholder.
		s.clock += s.interval
		if err := s.track.WriteSample(media.Sample{Data: frame, Duration: s.interval}); err != nil {
			s.log.Warn("write sample failed", zap.Error(err))
		}
	}
}

// Clock returns the current presentation timestamp.
func (s *Streamer) Clock() time.Duration {
	return s.clock
}
