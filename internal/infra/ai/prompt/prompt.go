package prompt

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/authentiq/internal/domain/ai"
)

// outputContract is appended to every prompt; the normalizer relies on it.
const outputContract = `Respond ONLY with valid JSON in this exact format (no markdown, no extra text):
{
  "verdict": "AI Generated" or "Human Generated",
  "confidence": (number between 0 and 100),
  "summary": "Brief explanation of your analysis",
  "indicators": [
    {
      "label": "Specific indicator name",
      "detail": "Explanation of what you observed",
      "signal": "ai" or "human" or "neutral"
    }
  ]
}`

var textCues = []string{
	"Uniform sentence length and rhythm (low burstiness)",
	"Generic transitions and filler phrases",
	"Hedging, over-balanced or noncommittal tone",
	"Absence of personal detail, anecdotes or concrete specifics",
	"Repetitive structure across paragraphs",
	"Vocabulary that is polished but predictable",
	"Typos, slang and idiosyncrasies typical of human writing",
	"Logical leaps, digressions or informal asides",
}

var imageCues = []string{
	"Artifact patterns (blurring, distortion, unusual textures)",
	"Lighting and shadow consistency",
	"Object boundaries and edges",
	"Anatomical correctness (if applicable)",
	"Pixel patterns and compression anomalies",
	"Background-foreground coherence",
	"Text rendering (if present)",
	"Color gradients and transitions",
}

var audioCues = []string{
	"Unnatural prosody or rhythm patterns",
	"Consistent pitch without micro-variations",
	"Breathing patterns (natural vs absent/artificial)",
	"Background noise characteristics",
	"Spectral artifacts from synthesis",
	"Emotional inflection naturalness",
	"Mouth sounds and lip smacking (natural speech markers)",
	"Audio compression artifacts vs synthesis artifacts",
}

// Text builds the instruction for a text analysis; the text is embedded in the prompt.
func Text(text string) string {
	var b strings.Builder
	b.WriteString("You are an expert in detecting AI-generated text (large language models such as GPT, Claude, Gemini, Llama). ")
	b.WriteString("Analyze the following text carefully and determine if it was written by AI or by a human.\n\n")
	b.WriteString("Text to analyze:\n\"\"\"\n")
	b.WriteString(text)
	b.WriteString("\n\"\"\"\n\n")
	b.WriteString(outputContract)
	writeCues(&b, textCues)
	return b.String()
}

// Image builds the instruction sent alongside the image part.
func Image() string {
	var b strings.Builder
	b.WriteString("You are an expert in detecting AI-generated images. ")
	b.WriteString("Analyze this image carefully and determine if it was created by AI (including GANs, diffusion models, etc.) or is a genuine human-created photograph.\n\n")
	b.WriteString(outputContract)
	writeCues(&b, imageCues)
	return b.String()
}

// Audio builds the instruction sent alongside the audio part.
func Audio(fileName string) string {
	if strings.TrimSpace(fileName) == "" {
		fileName = "unknown"
	}
	var b strings.Builder
	b.WriteString("You are an expert in detecting AI-generated audio (text-to-speech, voice cloning, deepfake audio). ")
	b.WriteString("Analyze this audio file carefully and determine if it was created by AI or is a genuine human recording.\n\n")
	fmt.Fprintf(&b, "The file name is: %s\n\n", fileName)
	b.WriteString(outputContract)
	writeCues(&b, audioCues)
	return b.String()
}

// For returns the instruction matching req.Media.
func For(req ai.Request) (string, error) {
	switch req.Media {
	case ai.MediaText:
		return Text(req.Text), nil
	case ai.MediaImage:
		return Image(), nil
	case ai.MediaAudio:
		return Audio(req.FileName), nil
	default:
		return "", fmt.Errorf("no prompt for media %q", req.Media)
	}
}

func writeCues(b *strings.Builder, cues []string) {
	b.WriteString("\n\nAnalyze for:\n")
	for i, c := range cues {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(c)
	}
}
