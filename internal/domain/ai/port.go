package ai

import "context"

// Media is the kind of payload submitted for analysis.
type Media string

const (
	MediaText  Media = "text"
	MediaImage Media = "image"
	MediaAudio Media = "audio"
)

// Valid reports whether m is one of the supported media kinds.
func (m Media) Valid() bool {
	switch m {
	case MediaText, MediaImage, MediaAudio:
		return true
	}
	return false
}

// Request is one gateway call. Exactly one payload field is set, matching Media.
type Request struct {
	Media       Media
	Text        string
	ImageURL    string // data URI or remote URL
	AudioData   string // raw base64, no data URI prefix
	AudioFormat string
	FileName    string
}

// Client sends a request to the model gateway and returns the model's raw
// message content. An empty string means the gateway answered without content.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}
