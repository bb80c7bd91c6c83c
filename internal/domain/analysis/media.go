package analysis

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinTextLength is the shortest text worth sending to the model.
const MinTextLength = 20

// DefaultAudioFormat is sent when neither MIME type nor file name tell the format.
const DefaultAudioFormat = "mp3"

var rxAudioDataURI = regexp.MustCompile(`^data:([^;,]*)(?:;[^;,]*)*;base64,`)

// InputError is a client mistake caught before the gateway is called.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

func invalid(format string, args ...any) error {
	return &InputError{Msg: fmt.Sprintf(format, args...)}
}

// ValidateText requires at least MinTextLength characters after trimming.
func ValidateText(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return invalid("No text provided")
	}
	if utf8.RuneCountInString(trimmed) < MinTextLength {
		return invalid("Please enter at least %d characters.", MinTextLength)
	}
	return nil
}

// ValidateImage accepts a base64 image data URI or an absolute http(s) URL.
func ValidateImage(data string) error {
	data = strings.TrimSpace(data)
	if data == "" {
		return invalid("No image data provided")
	}
	if strings.HasPrefix(data, "data:") {
		if !strings.HasPrefix(data, "data:image/") {
			return invalid("image data must be an image data URI")
		}
		i := strings.Index(data, ";base64,")
		if i == -1 || i+len(";base64,") == len(data) {
			return invalid("image data URI must carry a base64 payload")
		}
		return nil
	}

	u, err := url.Parse(data)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid("image must be a data URI or an http(s) URL")
	}
	return nil
}

// ParseAudio strips an audio data URI prefix and works out the format tag
// the gateway expects.
func ParseAudio(data, fileName string) (payload, format string, err error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return "", "", invalid("No audio data provided")
	}

	// browsers label unknown files application/octet-stream, and recorders
	// often produce video/webm; any base64 data URI is forwarded
	var subtype string
	if m := rxAudioDataURI.FindStringSubmatch(data); m != nil {
		mediaType, sub, _ := strings.Cut(strings.ToLower(m[1]), "/")
		if mediaType == "audio" || mediaType == "video" {
			subtype = sub
		}
		data = data[len(m[0]):]
	} else if strings.HasPrefix(data, "data:") {
		return "", "", invalid("audio data must be a base64 data URI")
	}
	if data == "" {
		return "", "", invalid("No audio data provided")
	}

	return data, AudioFormat(subtype, fileName), nil
}

// AudioFormat picks the gateway format tag from a MIME subtype, then the file
// extension, then DefaultAudioFormat.
func AudioFormat(subtype, fileName string) string {
	if f := audioFormats[strings.ToLower(subtype)]; f != "" {
		return f
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
	if f := audioFormats[ext]; f != "" {
		return f
	}
	return DefaultAudioFormat
}

var audioFormats = map[string]string{
	"mpeg":     "mp3",
	"mp3":      "mp3",
	"wav":      "wav",
	"wave":     "wav",
	"x-wav":    "wav",
	"vnd.wave": "wav",
	"ogg":      "ogg",
	"flac":     "flac",
	"x-flac":   "flac",
	"mp4":      "m4a",
	"m4a":      "m4a",
	"x-m4a":    "m4a",
	"aac":      "aac",
	"webm":     "webm",
}

// DecodeDataURI returns the bytes and content type of a base64 data URI.
func DecodeDataURI(uri string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, "", invalid("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", invalid("data URI has no payload")
	}
	contentType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return nil, "", invalid("data URI is not base64 encoded")
	}
	b, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", invalid("data URI payload is not valid base64")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return b, contentType, nil
}
