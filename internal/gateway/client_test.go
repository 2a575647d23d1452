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
	"strings"
	"testing"
	"time"
)

// roundTripFunc lets a test stand in for the upstream service.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient(Options{
		APIKey:       "test-key",
		HTTPClient:   &http.Client{Transport: rt},
		PollInterval: time.Millisecond,
		MaxPollWait:  250 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return client
}

func textResponse(text string) string {
	return fmt.Sprintf(`{"candidates":[{"content":{"role":"model","parts":[{"text":%q}]}}]}`, text)
}

func TestChatSendsHistoryAndSystemInstruction(t *testing.T) {
	var captured generateContentRequest
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("key query param = %q, want test-key", r.URL.Query().Get("key"))
		}
		if !strings.Contains(r.URL.Path, DefaultChatModel) {
			t.Errorf("path %q does not target the chat model", r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &captured); err != nil {
			t.Fatalf("request body is not valid JSON: %v", err)
		}
		return jsonResponse(http.StatusOK, textResponse("hello back")), nil
	})

	resp, err := client.Chat(context.Background(), ChatRequest{
		System: "be brief",
		History: []ChatMessage{
			{Role: "user", Text: "hi"},
			{Role: "model", Text: "hey"},
		},
		Message: "how are you?",
	})
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if resp.Text != "hello back" {
		t.Errorf("reply = %q, want %q", resp.Text, "hello back")
	}
	if captured.SystemInstruction == nil || captured.SystemInstruction.Parts[0].Text != "be brief" {
		t.Error("system instruction was not forwarded")
	}
	if len(captured.Contents) != 3 {
		t.Fatalf("got %d contents, want 3 (history + message)", len(captured.Contents))
	}
	last := captured.Contents[2]
	if last.Role != "user" || last.Parts[len(last.Parts)-1].Text != "how are you?" {
		t.Errorf("final content is not the user message: %+v", last)
	}
}

func TestChatAttachesInlineImage(t *testing.T) {
	var captured generateContentRequest
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &captured)
		return jsonResponse(http.StatusOK, textResponse("a red square")), nil
	})

	_, err := client.Chat(context.Background(), ChatRequest{
		Message:   "what is this?",
		ImageData: []byte{0xFF, 0xD8, 0xFF},
		ImageMIME: "image/jpeg",
	})
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	parts := captured.Contents[0].Parts
	if len(parts) != 2 || parts[0].InlineData == nil {
		t.Fatal("image part missing from the user content")
	}
	if parts[0].InlineData.MimeType != "image/jpeg" {
		t.Errorf("mime = %q, want image/jpeg", parts[0].InlineData.MimeType)
	}
}

func TestNotFoundMapsToCredentialInvalid(t *testing.T) {
	cases := map[string]*http.Response{
		"http 404":       jsonResponse(http.StatusNotFound, `{"error":{"code":404,"message":"model missing"}}`),
		"NOT_FOUND body": jsonResponse(http.StatusBadRequest, `{"error":{"status":"NOT_FOUND","message":"entity gone"}}`),
		"not found text": jsonResponse(http.StatusBadRequest, `{"error":{"message":"requested entity was not found"}}`),
	}
	for name, resp := range cases {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, func(r *http.Request) (*http.Response, error) { return resp, nil })
			_, err := client.Chat(context.Background(), ChatRequest{Message: "hi"})
			if !errors.Is(err, ErrCredentialInvalid) {
				t.Errorf("got %v, want ErrCredentialInvalid", err)
			}
		})
	}
}

func TestOtherErrorsAreNotCredentialInvalid(t *testing.T) {
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusTooManyRequests, `{"error":{"message":"quota exceeded"}}`), nil
	})
	_, err := client.Chat(context.Background(), ChatRequest{Message: "hi"})
	if err == nil || errors.Is(err, ErrCredentialInvalid) {
		t.Errorf("quota error should not map to ErrCredentialInvalid, got %v", err)
	}
}

func TestGroundedSearchExtractsSources(t *testing.T) {
	var captured generateContentRequest
	body := `{"candidates":[{"content":{"parts":[{"text":"the answer"}]},"groundingMetadata":{"groundingChunks":[{"web":{"uri":"https://example.com/a","title":"Source A"}},{"web":{"uri":""}}]}}]}`
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &captured)
		return jsonResponse(http.StatusOK, body), nil
	})

	lat, lng := 12.97, 77.59
	result, err := client.GroundedSearch(context.Background(), SearchRequest{
		Query: "coffee nearby", UseMaps: true, Latitude: &lat, Longitude: &lng,
	})
	if err != nil {
		t.Fatalf("GroundedSearch returned error: %v", err)
	}
	if result.Text != "the answer" {
		t.Errorf("text = %q", result.Text)
	}
	if len(result.Sources) != 1 || result.Sources[0].URI != "https://example.com/a" {
		t.Errorf("sources = %+v, want one with example.com/a", result.Sources)
	}
	if len(captured.Tools) != 2 {
		t.Errorf("got %d tools, want search + maps", len(captured.Tools))
	}
	if captured.ToolConfig == nil || captured.ToolConfig.RetrievalConfig.LatLng.Latitude != lat {
		t.Error("location bias was not forwarded")
	}
}

func TestGenerateImagesIssuesOneRequestPerImage(t *testing.T) {
	requests := 0
	payload := base64.StdEncoding.EncodeToString([]byte{0x89, 0x50})
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		requests++
		body := fmt.Sprintf(`{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":%q}}]}}]}`, payload)
		return jsonResponse(http.StatusOK, body), nil
	})

	images, err := client.GenerateImages(context.Background(), ImageGenRequest{Prompt: "a cat", Count: 3})
	if err != nil {
		t.Fatalf("GenerateImages returned error: %v", err)
	}
	if len(images) != 3 {
		t.Errorf("got %d images, want 3", len(images))
	}
	if requests != 3 {
		t.Errorf("issued %d requests, want 3", requests)
	}
	if !bytes.Equal(images[0].Data, []byte{0x89, 0x50}) {
		t.Error("image bytes were not decoded from base64")
	}
}

func TestSpeechParsesSampleRate(t *testing.T) {
	pcm := base64.StdEncoding.EncodeToString([]byte{0x01, 0x02, 0x03, 0x04})
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		body := fmt.Sprintf(`{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"audio/L16;codec=pcm;rate=24000","data":%q}}]}}]}`, pcm)
		return jsonResponse(http.StatusOK, body), nil
	})

	result, err := client.Speech(context.Background(), SpeechRequest{Text: "hello"})
	if err != nil {
		t.Fatalf("Speech returned error: %v", err)
	}
	if result.SampleRate != 24000 {
		t.Errorf("sample rate = %d, want 24000", result.SampleRate)
	}
	if result.Channels != 1 {
		t.Errorf("channels = %d, want 1", result.Channels)
	}
	if len(result.PCM) != 4 {
		t.Errorf("pcm length = %d, want 4", len(result.PCM))
	}
}

func TestGenerateVideoPollsUntilDone(t *testing.T) {
	polls := 0
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		switch {
		case strings.Contains(r.URL.Path, "predictLongRunning"):
			return jsonResponse(http.StatusOK, `{"name":"operations/op-1"}`), nil
		case strings.Contains(r.URL.Path, "operations/op-1"):
			polls++
			if polls < 3 {
				return jsonResponse(http.StatusOK, `{"name":"operations/op-1","done":false}`), nil
			}
			return jsonResponse(http.StatusOK, `{"name":"operations/op-1","done":true,"response":{"generateVideoResponse":{"generatedSamples":[{"video":{"uri":"https://dl.example/clip"}}]}}}`), nil
		case r.URL.Host == "dl.example":
			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     http.Header{"Content-Type": []string{"video/mp4"}},
				Body:       io.NopCloser(bytes.NewReader([]byte("mp4-bytes"))),
			}, nil
		default:
			t.Fatalf("unexpected request: %s", r.URL)
			return nil, nil
		}
	})

	result, err := client.GenerateVideo(context.Background(), VideoRequest{Prompt: "a sunrise"})
	if err != nil {
		t.Fatalf("GenerateVideo returned error: %v", err)
	}
	if polls < 3 {
		t.Errorf("polled %d times, want at least 3", polls)
	}
	if string(result.Data) != "mp4-bytes" {
		t.Errorf("video bytes = %q", result.Data)
	}
	if result.MIMEType != "video/mp4" {
		t.Errorf("mime = %q, want video/mp4", result.MIMEType)
	}
}

func TestGenerateVideoTimesOut(t *testing.T) {
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		if strings.Contains(r.URL.Path, "predictLongRunning") {
			return jsonResponse(http.StatusOK, `{"name":"operations/op-2"}`), nil
		}
		return jsonResponse(http.StatusOK, `{"name":"operations/op-2","done":false}`), nil
	})

	_, err := client.GenerateVideo(context.Background(), VideoRequest{Prompt: "forever"})
	if !errors.Is(err, ErrVideoTimeout) {
		t.Errorf("got %v, want ErrVideoTimeout", err)
	}
}

func TestGenerateVideoOperationError(t *testing.T) {
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		if strings.Contains(r.URL.Path, "predictLongRunning") {
			return jsonResponse(http.StatusOK, `{"name":"operations/op-3"}`), nil
		}
		return jsonResponse(http.StatusOK, `{"name":"operations/op-3","done":true,"error":{"code":3,"message":"prompt rejected"}}`), nil
	})

	_, err := client.GenerateVideo(context.Background(), VideoRequest{Prompt: "bad"})
	if err == nil || !strings.Contains(err.Error(), "prompt rejected") {
		t.Errorf("got %v, want the operation error surfaced", err)
	}
}
