package caption

import (
	"path/filepath"
	"strings"
)

var allowedAudioExtensions = []string{"wav", "mp3", "ogg", "m4a", "flac", "webm"}

// AllowedAudioExtensions returns the accepted upload extensions without dots.
func AllowedAudioExtensions() []string {
	return append([]string(nil), allowedAudioExtensions...)
}

// IsAllowedAudioFile reports whether name carries an accepted audio extension.
func IsAllowedAudioFile(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return false
	}
	for _, allowed := range allowedAudioExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
