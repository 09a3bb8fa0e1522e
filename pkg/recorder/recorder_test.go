package recorder

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/suite"
)

type RecorderSuite struct {
	suite.Suite
	dir      string
	recorder *Recorder
	ctx      context.Context
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderSuite))
}

func (s *RecorderSuite) SetupTest() {
	s.dir = filepath.Join(s.T().TempDir(), "uploads")
	recorder, err := New(s.dir, 16000)
	s.Require().NoError(err)
	s.recorder = recorder
	s.ctx = context.Background()
}

func pcm(samples ...int16) []byte {
	out := make([]byte, 2*len(samples))
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(sample))
	}
	return out
}

func (s *RecorderSuite) TestNewRejectsBadRate() {
	_, err := New(s.dir, 0)
	s.ErrorIs(err, ErrInvalidRate)
}

func (s *RecorderSuite) TestRoundTripWritesMonoWAV() {
	s.Require().NoError(s.recorder.Start(s.ctx, 0))
	s.True(s.recorder.IsRecording())

	chunk := pcm(0, 1200, -1200, 32767, -32768)
	_, err := s.recorder.Write(chunk[:3])
	s.Require().NoError(err)
	_, err = s.recorder.Write(chunk[3:])
	s.Require().NoError(err)

	path, err := s.recorder.Stop(s.ctx)

	s.Require().NoError(err)
	s.False(s.recorder.IsRecording())
	s.Equal(s.dir, filepath.Dir(path))
	s.Equal(".wav", filepath.Ext(path))

	f, err := os.Open(path)
	s.Require().NoError(err)
	defer f.Close()
	decoder := wav.NewDecoder(f)
	s.Require().True(decoder.IsValidFile())
	buf, err := decoder.FullPCMBuffer()
	s.Require().NoError(err)
	s.Equal(uint32(16000), decoder.SampleRate)
	s.Equal(uint16(1), decoder.NumChans)
	s.Equal(uint16(16), decoder.BitDepth)
	s.Equal([]int{0, 1200, -1200, 32767, -32768}, buf.Data)
}

func (s *RecorderSuite) TestStartUsesRequestedRate() {
	s.Require().NoError(s.recorder.Start(s.ctx, 44100))
	_, err := s.recorder.Write(pcm(5))
	s.Require().NoError(err)

	path, err := s.recorder.Stop(s.ctx)
	s.Require().NoError(err)

	f, err := os.Open(path)
	s.Require().NoError(err)
	defer f.Close()
	decoder := wav.NewDecoder(f)
	decoder.ReadInfo()
	s.Equal(uint32(44100), decoder.SampleRate)
}

func (s *RecorderSuite) TestStartTwiceIsRejected() {
	s.Require().NoError(s.recorder.Start(s.ctx, 0))

	err := s.recorder.Start(s.ctx, 0)

	s.ErrorIs(err, ErrAlreadyRecording)
	s.True(s.recorder.IsRecording())
}

func (s *RecorderSuite) TestNegativeRateIsRejected() {
	s.ErrorIs(s.recorder.Start(s.ctx, -1), ErrInvalidRate)
	s.False(s.recorder.IsRecording())
}

func (s *RecorderSuite) TestWriteAndStopWhenIdle() {
	_, err := s.recorder.Write(pcm(1))
	s.ErrorIs(err, ErrNotRecording)

	_, err = s.recorder.Stop(s.ctx)
	s.ErrorIs(err, ErrNotRecording)
}

func (s *RecorderSuite) TestStopWithoutAudioEndsSession() {
	s.Require().NoError(s.recorder.Start(s.ctx, 0))

	_, err := s.recorder.Stop(s.ctx)

	s.ErrorIs(err, ErrNoAudio)
	s.False(s.recorder.IsRecording())
	s.NoError(s.recorder.Start(s.ctx, 0))
}

func (s *RecorderSuite) TestNewSessionStartsEmpty() {
	s.Require().NoError(s.recorder.Start(s.ctx, 0))
	_, err := s.recorder.Write(pcm(1, 2, 3))
	s.Require().NoError(err)
	_, err = s.recorder.Stop(s.ctx)
	s.Require().NoError(err)

	s.Require().NoError(s.recorder.Start(s.ctx, 0))
	_, err = s.recorder.Stop(s.ctx)
	s.ErrorIs(err, ErrNoAudio)
}

func (s *RecorderSuite) TestMaxDurationCapsSession() {
	recorder, err := New(s.dir, 100, WithMaxDuration(50*time.Millisecond))
	s.Require().NoError(err)
	s.Require().NoError(recorder.Start(s.ctx, 0))

	_, err = recorder.Write(pcm(1, 2, 3))
	s.Require().NoError(err)
	n, err := recorder.Write(pcm(4, 5, 6))
	s.ErrorIs(err, ErrRecordingTooLong)
	s.Zero(n)
	s.True(recorder.IsRecording())
	_, err = recorder.Write(pcm(4, 5))
	s.Require().NoError(err)

	path, err := recorder.Stop(s.ctx)
	s.Require().NoError(err)
	f, err := os.Open(path)
	s.Require().NoError(err)
	defer f.Close()
	buf, err := wav.NewDecoder(f).FullPCMBuffer()
	s.Require().NoError(err)
	s.Equal([]int{1, 2, 3, 4, 5}, buf.Data)
}

func (s *RecorderSuite) TestMaxDurationScalesWithSessionRate() {
	recorder, err := New(s.dir, 100, WithMaxDuration(50*time.Millisecond), WithMaxDuration(0))
	s.Require().NoError(err)
	s.Require().NoError(recorder.Start(s.ctx, 200))

	_, err = recorder.Write(pcm(make([]int16, 10)...))
	s.Require().NoError(err)
	_, err = recorder.Write(pcm(1))
	s.ErrorIs(err, ErrRecordingTooLong)
}

func (s *RecorderSuite) TestDefaultMaxDuration() {
	s.Equal(DefaultMaxDuration, s.recorder.maxDuration)
}

func (s *RecorderSuite) TestConcurrentWrites() {
	s.Require().NoError(s.recorder.Start(s.ctx, 0))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = s.recorder.Write(pcm(7, 7))
			}
		}()
	}
	wg.Wait()

	path, err := s.recorder.Stop(s.ctx)
	s.Require().NoError(err)

	f, err := os.Open(path)
	s.Require().NoError(err)
	defer f.Close()
	buf, err := wav.NewDecoder(f).FullPCMBuffer()
	s.Require().NoError(err)
	s.Len(buf.Data, 8*100*2)
}
