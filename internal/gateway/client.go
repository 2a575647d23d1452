package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Default model identifiers per operation.
const (
	DefaultChatModel   = "gemini-2.5-flash"
	DefaultImageModel  = "gemini-2.0-flash-preview-image-generation"
	DefaultSpeechModel = "gemini-2.5-flash-preview-tts"
	DefaultVideoModel  = "veo-2.0-generate-001"
	DefaultLiveModel   = "gemini-2.0-flash-live-001"
)

// ErrCredentialInvalid marks upstream failures that indicate an invalid or
// expired API credential ("entity not found" responses). Callers downgrade
// the affected panel to a credential-reselection prompt.
var ErrCredentialInvalid = errors.New("gateway: invalid or expired API credential")

// Options controls how the gateway client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
	// PollInterval and MaxPollWait bound the long-running video-generation
	// poll loop. Zero values pick the defaults.
	PollInterval time.Duration
	MaxPollWait  time.Duration
}

// Client is a thin adapter over the hosted generative-AI service. It issues
// requests per operation and normalizes the responses; it holds no
// conversational state of its own.
type Client struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	logger       *zap.Logger
	pollInterval time.Duration
	maxPollWait  time.Duration
}

// NewClient constructs a gateway client with sane defaults. A nil HTTP client
// gets a reusable one with a request timeout.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("gateway: API key is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	maxPollWait := opts.MaxPollWait
	if maxPollWait <= 0 {
		maxPollWait = 6 * time.Minute
	}
	return &Client{
		apiKey:       strings.TrimSpace(opts.APIKey),
		baseURL:      baseURL,
		httpClient:   httpClient,
		logger:       logger,
		pollInterval: pollInterval,
		maxPollWait:  maxPollWait,
	}, nil
}

// --- wire shapes ---

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts,omitempty"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type tool struct {
	GoogleSearch *struct{} `json:"google_search,omitempty"`
	GoogleMaps   *struct{} `json:"google_maps,omitempty"`
}

type speechConfig struct {
	VoiceConfig struct {
		PrebuiltVoiceConfig struct {
			VoiceName string `json:"voiceName"`
		} `json:"prebuiltVoiceConfig"`
	} `json:"voiceConfig"`
}

type thinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type generationConfig struct {
	CandidateCount     int             `json:"candidateCount,omitempty"`
	ResponseModalities []string        `json:"responseModalities,omitempty"`
	ResponseMimeType   string          `json:"responseMimeType,omitempty"`
	ResponseSchema     json.RawMessage `json:"responseSchema,omitempty"`
	SpeechConfig       *speechConfig   `json:"speechConfig,omitempty"`
	ThinkingConfig     *thinkingConfig `json:"thinkingConfig,omitempty"`
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type retrievalConfig struct {
	LatLng *latLng `json:"latLng,omitempty"`
}

type toolConfig struct {
	RetrievalConfig *retrievalConfig `json:"retrievalConfig,omitempty"`
}

type generateContentRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Tools             []tool            `json:"tools,omitempty"`
	ToolConfig        *toolConfig       `json:"toolConfig,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type groundingChunk struct {
	Web struct {
		URI   string `json:"uri"`
		Title string `json:"title"`
	} `json:"web"`
}

type candidate struct {
	Content           content `json:"content"`
	FinishReason      string  `json:"finishReason,omitempty"`
	GroundingMetadata *struct {
		GroundingChunks []groundingChunk `json:"groundingChunks"`
	} `json:"groundingMetadata,omitempty"`
}

type generateContentResponse struct {
	Candidates []candidate `json:"candidates"`
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Status  string `json:"status,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// --- operations ---

// Chat sends the conversation history plus the new message and returns the
// reply text.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	contents := make([]content, 0, len(req.History)+1)
	for _, turn := range req.History {
		contents = append(contents, content{Role: turn.Role, Parts: []part{{Text: turn.Text}}})
	}
	userParts := []part{}
	if len(req.ImageData) > 0 {
		mime := req.ImageMIME
		if mime == "" {
			mime = "image/jpeg"
		}
		userParts = append(userParts, part{InlineData: &inlineData{
			MimeType: mime,
			Data:     base64.StdEncoding.EncodeToString(req.ImageData),
		}})
	}
	userParts = append(userParts, part{Text: req.Message})
	contents = append(contents, content{Role: "user", Parts: userParts})

	payload := generateContentRequest{Contents: contents}
	if req.System != "" {
		payload.SystemInstruction = &content{Parts: []part{{Text: req.System}}}
	}

	var response generateContentResponse
	if err := c.invoke(ctx, http.MethodPost, c.modelPath(DefaultChatModel, "generateContent"), payload, &response); err != nil {
		return nil, err
	}
	text := firstText(response)
	if text == "" {
		return nil, fmt.Errorf("gateway: empty chat response")
	}
	return &ChatResponse{Text: text}, nil
}

// GenerateContent performs a single-shot generation with an optional thinking
// budget and response schema.
func (c *Client) GenerateContent(ctx context.Context, req GenerateRequest) (string, error) {
	payload := generateContentRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: req.Prompt}}}},
	}
	cfg := &generationConfig{}
	if req.ThinkingBudget > 0 {
		cfg.ThinkingConfig = &thinkingConfig{ThinkingBudget: req.ThinkingBudget}
	}
	if len(req.ResponseSchema) > 0 {
		cfg.ResponseMimeType = "application/json"
		cfg.ResponseSchema = req.ResponseSchema
	}
	if cfg.ThinkingConfig != nil || cfg.ResponseMimeType != "" {
		payload.GenerationConfig = cfg
	}

	var response generateContentResponse
	if err := c.invoke(ctx, http.MethodPost, c.modelPath(DefaultChatModel, "generateContent"), payload, &response); err != nil {
		return "", err
	}
	text := firstText(response)
	if text == "" {
		return "", fmt.Errorf("gateway: empty generation response")
	}
	return text, nil
}

// AnalyzeFrames sends an ordered sequence of base64 JPEG frames with a prompt
// (optionally schema-constrained) and returns the model's analysis.
func (c *Client) AnalyzeFrames(ctx context.Context, req FrameAnalysisRequest) (string, error) {
	if len(req.Frames) == 0 {
		return "", errors.New("gateway: no frames to analyze")
	}
	parts := make([]part, 0, len(req.Frames)+1)
	for _, frame := range req.Frames {
		parts = append(parts, part{InlineData: &inlineData{MimeType: "image/jpeg", Data: frame}})
	}
	parts = append(parts, part{Text: req.Prompt})

	payload := generateContentRequest{Contents: []content{{Role: "user", Parts: parts}}}
	if len(req.ResponseSchema) > 0 {
		payload.GenerationConfig = &generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   req.ResponseSchema,
		}
	}

	var response generateContentResponse
	if err := c.invoke(ctx, http.MethodPost, c.modelPath(DefaultChatModel, "generateContent"), payload, &response); err != nil {
		return "", err
	}
	text := firstText(response)
	if text == "" {
		return "", fmt.Errorf("gateway: empty analysis response")
	}
	return text, nil
}

// GroundedSearch answers the query grounded in live web search, optionally
// adding the maps tool with a location bias, and returns the citations.
func (c *Client) GroundedSearch(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	payload := generateContentRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: req.Query}}}},
		Tools:    []tool{{GoogleSearch: &struct{}{}}},
	}
	if req.UseMaps {
		payload.Tools = append(payload.Tools, tool{GoogleMaps: &struct{}{}})
		if req.Latitude != nil && req.Longitude != nil {
			payload.ToolConfig = &toolConfig{RetrievalConfig: &retrievalConfig{
				LatLng: &latLng{Latitude: *req.Latitude, Longitude: *req.Longitude},
			}}
		}
	}

	var response generateContentResponse
	if err := c.invoke(ctx, http.MethodPost, c.modelPath(DefaultChatModel, "generateContent"), payload, &response); err != nil {
		return nil, err
	}

	result := &SearchResult{Text: firstText(response)}
	if result.Text == "" {
		return nil, fmt.Errorf("gateway: empty search response")
	}
	for _, cand := range response.Candidates {
		if cand.GroundingMetadata == nil {
			continue
		}
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk.Web.URI == "" {
				continue
			}
			result.Sources = append(result.Sources, SearchSource{
				Title: chunk.Web.Title,
				URI:   chunk.Web.URI,
			})
		}
	}
	return result, nil
}

// GenerateImages returns Count raw generated images.
func (c *Client) GenerateImages(ctx context.Context, req ImageGenRequest) ([]GeneratedImage, error) {
	count := req.Count
	if count <= 0 {
		count = 1
	}
	prompt := req.Prompt
	if req.AspectRatio != "" {
		prompt = fmt.Sprintf("%s (aspect ratio %s)", prompt, req.AspectRatio)
	}

	images := make([]GeneratedImage, 0, count)
	for i := 0; i < count; i++ {
		payload := generateContentRequest{
			Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
			GenerationConfig: &generationConfig{
				ResponseModalities: []string{"TEXT", "IMAGE"},
			},
		}
		var response generateContentResponse
		if err := c.invoke(ctx, http.MethodPost, c.modelPath(DefaultImageModel, "generateContent"), payload, &response); err != nil {
			return nil, err
		}
		img, err := firstInline(response)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

// Speech synthesizes the text with the given voice and returns raw PCM.
func (c *Client) Speech(ctx context.Context, req SpeechRequest) (*SpeechResult, error) {
	voice := req.Voice
	if voice == "" {
		voice = "Kore"
	}
	cfg := &generationConfig{ResponseModalities: []string{"AUDIO"}, SpeechConfig: &speechConfig{}}
	cfg.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName = voice

	payload := generateContentRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: req.Text}}}},
		GenerationConfig: cfg,
	}
	var response generateContentResponse
	if err := c.invoke(ctx, http.MethodPost, c.modelPath(DefaultSpeechModel, "generateContent"), payload, &response); err != nil {
		return nil, err
	}
	audio, err := firstInline(response)
	if err != nil {
		return nil, err
	}
	// The service reports e.g. "audio/L16;codec=pcm;rate=24000".
	return &SpeechResult{PCM: audio.Data, SampleRate: pcmRate(audio.MIMEType), Channels: 1}, nil
}

func (c *Client) modelPath(model, verb string) string {
	return fmt.Sprintf("/models/%s:%s", url.PathEscape(model), verb)
}

// invoke performs one JSON round trip against the service, mapping error
// envelopes into gateway errors. A 404 / NOT_FOUND response is interpreted as
// an invalid or expired credential.
func (c *Client) invoke(ctx context.Context, method, path string, payload any, out any) error {
	endpoint := c.baseURL + path

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("key", c.apiKey)
	req.URL.RawQuery = q.Encode()
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return c.decodeError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}

func (c *Client) decodeError(resp *http.Response) error {
	var apiErr apiErrorResponse
	message := ""
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
		message = apiErr.Error.Message
	}
	if resp.StatusCode == http.StatusNotFound ||
		apiErr.Error.Status == "NOT_FOUND" ||
		strings.Contains(strings.ToLower(message), "not found") {
		c.logger.Warn("gateway reported entity not found; treating as invalid credential",
			zap.Int("status", resp.StatusCode), zap.String("message", message))
		return fmt.Errorf("%w: %s", ErrCredentialInvalid, message)
	}
	if message != "" {
		return fmt.Errorf("gateway status %d: %s", resp.StatusCode, message)
	}
	return fmt.Errorf("gateway status %d", resp.StatusCode)
}

func firstText(response generateContentResponse) string {
	for _, cand := range response.Candidates {
		for _, p := range cand.Content.Parts {
			if p.Text != "" {
				return p.Text
			}
		}
	}
	return ""
}

func firstInline(response generateContentResponse) (GeneratedImage, error) {
	for _, cand := range response.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return GeneratedImage{}, fmt.Errorf("decode inline data: %w", err)
			}
			return GeneratedImage{Data: data, MIMEType: p.InlineData.MimeType}, nil
		}
	}
	return GeneratedImage{}, errors.New("gateway: no inline content returned")
}

// pcmRate extracts the sample rate from a mime type like
// "audio/L16;codec=pcm;rate=24000"; 24000 is assumed when absent.
func pcmRate(mime string) int {
	for _, field := range strings.Split(mime, ";") {
		field = strings.TrimSpace(field)
		if rate, ok := strings.CutPrefix(field, "rate="); ok {
			var v int
			if _, err := fmt.Sscanf(rate, "%d", &v); err == nil && v > 0 {
				return v
			}
		}
	}
	return 24000
}
