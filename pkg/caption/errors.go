package caption

import "errors"

var (
	ErrUnsupportedAudioType = errors.New("unsupported audio file type")
	ErrEmptyAudioPath       = errors.New("audio path is required")
)

// TranscriptionError reports a failed speech-to-text call.
type TranscriptionError struct {
	Provider string
	Err      error
}

func (e *TranscriptionError) Error() string {
	if e.Provider == "" {
		return "transcription failed: " + e.Err.Error()
	}
	return "transcription failed (" + e.Provider + "): " + e.Err.Error()
}

func (e *TranscriptionError) Unwrap() error {
	return e.Err
}

// GenerationError reports a failed caption generation call.
type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	if e.Provider == "" {
		return "caption generation failed: " + e.Err.Error()
	}
	return "caption generation failed (" + e.Provider + "): " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// IsProviderError reports whether err came from one of the external providers.
func IsProviderError(err error) bool {
	var transcriptionErr *TranscriptionError
	var generationErr *GenerationError
	return errors.As(err, &transcriptionErr) || errors.As(err, &generationErr)
}
