// Package recorder buffers one live microphone session streamed as PCM
// chunks and writes it out as a WAV file when the session stops.
package recorder

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Nephrolytics-ai/caption-generator/pkg/logging"
	"github.com/Nephrolytics-ai/caption-generator/pkg/utils"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
)

const (
	bitDepth    = 16
	numChannels = 1
	// wavFormatPCM is the WAVE_FORMAT_PCM audio format tag.
	wavFormatPCM = 1

	DefaultMaxDuration = 10 * time.Minute
)

var (
	ErrAlreadyRecording = errors.New("already recording")
	ErrNotRecording     = errors.New("not currently recording")
	ErrNoAudio          = errors.New("no audio data recorded")
	ErrInvalidRate      = errors.New("sample rate must be positive")
	ErrRecordingTooLong = errors.New("recording exceeds the maximum length")
)

// Recorder holds at most one session. The recording flag and the sample
// buffer only change together under mu.
type Recorder struct {
	dir               string
	defaultSampleRate int
	maxDuration       time.Duration

	mu         sync.Mutex
	recording  bool
	sampleRate int
	maxSamples int
	samples    []int
	// pending holds the low byte of a sample split across two chunks.
	pending []byte
}

type Option func(*Recorder)

// WithMaxDuration caps a session's audio length. Non-positive values keep
// DefaultMaxDuration.
func WithMaxDuration(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.maxDuration = d
		}
	}
}

func New(dir string, defaultSampleRate int, opts ...Option) (*Recorder, error) {
	if defaultSampleRate <= 0 {
		return nil, utils.WrapIfNotNil(ErrInvalidRate)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	r := &Recorder{dir: dir, defaultSampleRate: defaultSampleRate, maxDuration: DefaultMaxDuration}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Start opens a session. A zero sampleRate uses the recorder default.
func (r *Recorder) Start(ctx context.Context, sampleRate int) error {
	if sampleRate < 0 {
		return ErrInvalidRate
	}
	if sampleRate == 0 {
		sampleRate = r.defaultSampleRate
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		logging.NewLogger(ctx).Warnf("recording start rejected: already recording")
		return ErrAlreadyRecording
	}
	r.recording = true
	r.sampleRate = sampleRate
	r.maxSamples = int(int64(r.maxDuration) * int64(sampleRate) / int64(time.Second))
	r.samples = r.samples[:0]
	r.pending = nil

	logging.NewLogger(ctx).Infof("recording started sample_rate=%d", sampleRate)
	return nil
}

// Write appends little-endian signed 16-bit mono PCM. A chunk that would
// take the session past its maximum length is rejected whole; the session
// stays open with the audio buffered so far.
func (r *Recorder) Write(pcm []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return 0, ErrNotRecording
	}
	if len(r.samples)+(len(r.pending)+len(pcm))/2 > r.maxSamples {
		return 0, ErrRecordingTooLong
	}

	data := pcm
	if len(r.pending) > 0 {
		data = append(append([]byte(nil), r.pending...), pcm...)
		r.pending = nil
	}
	whole := len(data) &^ 1
	for i := 0; i < whole; i += 2 {
		r.samples = append(r.samples, int(int16(binary.LittleEndian.Uint16(data[i:i+2]))))
	}
	if whole < len(data) {
		r.pending = []byte{data[whole]}
	}
	return len(pcm), nil
}

// Stop closes the session and writes the buffered samples as a WAV file in
// the recorder directory. The session is closed even when writing fails.
func (r *Recorder) Stop(ctx context.Context) (string, error) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		logging.NewLogger(ctx).Warnf("recording stop rejected: not recording")
		return "", ErrNotRecording
	}
	samples := r.samples
	sampleRate := r.sampleRate
	r.recording = false
	r.samples = nil
	r.pending = nil
	r.mu.Unlock()

	log := logging.NewLogger(ctx)
	if len(samples) == 0 {
		log.Errorf("error: %v", ErrNoAudio)
		return "", ErrNoAudio
	}

	path := filepath.Join(r.dir, uuid.NewString()+".wav")
	if err := writeWAV(path, samples, sampleRate); err != nil {
		log.Errorf("error: %v", err)
		_ = os.Remove(path)
		return "", utils.WrapIfNotNil(err)
	}

	log.Infof("recording saved path=%q samples=%d sample_rate=%d", path, len(samples), sampleRate)
	return path, nil
}

func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

func writeWAV(path string, samples []int, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := wav.NewEncoder(f, sampleRate, bitDepth, numChannels, wavFormatPCM)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: numChannels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		_ = f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
