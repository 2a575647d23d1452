package gateway

// Tagged request/response variants, one per gateway operation. The loose
// upstream payloads are confined to the adapter boundary; everything above it
// handles these explicit shapes.

// ChatMessage is one prior turn of a conversation.
type ChatMessage struct {
	Role string // "user" or "model"
	Text string
}

// ChatRequest is a conversational exchange with optional system instruction
// and image attachment.
type ChatRequest struct {
	System    string
	History   []ChatMessage
	Message   string
	ImageData []byte
	ImageMIME string
}

// ChatResponse carries the model's reply text.
type ChatResponse struct {
	Text string
}

// GenerateRequest is a single-shot content generation with an optional
// extended thinking budget and an optional JSON response schema.
type GenerateRequest struct {
	Prompt         string
	ThinkingBudget int
	ResponseSchema []byte // raw JSON schema; empty means free-form text
}

// FrameAnalysisRequest asks the model to analyze an ordered sequence of
// base64-encoded JPEG frames.
type FrameAnalysisRequest struct {
	Prompt         string
	Frames         []string
	ResponseSchema []byte
}

// SearchRequest is a grounded search with an optional maps tool and location
// bias.
type SearchRequest struct {
	Query     string
	UseMaps   bool
	Latitude  *float64
	Longitude *float64
}

// SearchSource is one citation backing a grounded answer.
type SearchSource struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// SearchResult is the grounded answer plus its citations.
type SearchResult struct {
	Text    string         `json:"text"`
	Sources []SearchSource `json:"sources"`
}

// ImageGenRequest generates Count images at the given aspect ratio.
type ImageGenRequest struct {
	Prompt      string
	AspectRatio string
	Count       int
}

// GeneratedImage is one raw generated image.
type GeneratedImage struct {
	Data     []byte
	MIMEType string
}

// SpeechRequest synthesizes speech for Text using the given voice.
type SpeechRequest struct {
	Text  string
	Voice string
}

// SpeechResult is raw signed 16-bit little-endian PCM.
type SpeechResult struct {
	PCM        []byte
	SampleRate int
	Channels   int
}

// VideoRequest starts a long-running video generation. SeedImage is an
// optional starting image; ReferenceFrames are optional base64 JPEG style
// references.
type VideoRequest struct {
	Prompt          string
	AspectRatio     string
	SeedImage       []byte
	SeedImageMIME   string
	ReferenceFrames []string
	DurationSeconds int
}

// VideoResult is the downloaded generated video.
type VideoResult struct {
	Data     []byte
	MIMEType string
}
