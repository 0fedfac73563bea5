package stream

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelid/backend/internal/logging"
)

type recordingTrack struct {
	mu      sync.Mutex
	samples []media.Sample
}

func (r *recordingTrack) WriteSample(s media.Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, s)
	return nil
}

func (r *recordingTrack) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

func (r *recordingTrack) all() []media.Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]media.Sample, len(r.samples))
	copy(out, r.samples)
	return out
}

func TestErrorFrameIsDecodableJPEG(t *testing.T) {
	frame := ErrorFrame(1280, 720, "screenshot timed out")
	require.NotEmpty(t, frame)

	img, err := jpeg.Decode(bytes.NewReader(frame))
	require.NoError(t, err)
	assert.Equal(t, 1280, img.Bounds().Dx())
	assert.Equal(t, 720, img.Bounds().Dy())
}

func TestErrorFrameTruncatesLongMessages(t *testing.T) {
	long := make([]byte, 4096)
	for i := range long {
		long[i] = 'x'
	}
	frame := ErrorFrame(320, 240, string(long))
	require.NotEmpty(t, frame)

	_, err := jpeg.Decode(bytes.NewReader(frame))
	assert.NoError(t, err)
}

func TestStreamerEmitsCapturedFrames(t *testing.T) {
	track := &recordingTrack{}
	capture := func(ctx context.Context) ([]byte, error) {
		return []byte("frame"), nil
	}
	s := New(track, capture, 10*time.Millisecond, 320, 240, logging.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	require.Greater(t, track.count(), 2)
	for _, sample := range track.all() {
		assert.Equal(t, []byte("frame"), sample.Data)
		assert.Equal(t, 10*time.Millisecond, sample.Duration)
	}
}

func TestStreamerNeverStallsOnCaptureFailure(t *testing.T) {
	track := &recordingTrack{}
	capture := func(ctx context.Context) ([]byte, error) {
		return nil, errors.New("page gone")
	}
	s := New(track, capture, 10*time.Millisecond, 320, 240, logging.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	// Placeholder frames keep the track advancing.
	require.Greater(t, track.count(), 1)
	for _, sample := range track.all() {
		assert.NotEmpty(t, sample.Data)
	}
}

func TestStreamerClockAdvancesPerFrame(t *testing.T) {
	track := &recordingTrack{}
	fail := true
	capture := func(ctx context.Context) ([]byte, error) {
		fail = !fail
		if fail {
			return nil, errors.New("flaky")
		}
		return []byte("frame"), nil
	}
	s := New(track, capture, 5*time.Millisecond, 320, 240, logging.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	// One interval per emitted frame, error frames included.
	assert.Equal(t, time.Duration(track.count())*5*time.Millisecond, s.Clock())
}

func TestStreamerThrottlesToInterval(t *testing.T) {
	track := &recordingTrack{}
	capture := func(ctx context.Context) ([]byte, error) {
		return []byte("f"), nil
	}
	s := New(track, capture, 20*time.Millisecond, 320, 240, logging.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 110*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	// ~5 frames fit in 110ms at a 20ms interval; allow scheduling slack.
	assert.LessOrEqual(t, track.count(), 7)
}
