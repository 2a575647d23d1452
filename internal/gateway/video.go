package gateway

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrVideoTimeout is returned when a video generation does not complete
// within the client's maximum poll wait.
var ErrVideoTimeout = errors.New("gateway: video generation did not complete in time")

type videoInstance struct {
	Prompt string      `json:"prompt"`
	Image  *inlineData `json:"image,omitempty"`
}

type videoParameters struct {
	AspectRatio     string `json:"aspectRatio,omitempty"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
	NumberOfVideos  int    `json:"numberOfVideos,omitempty"`
}

type videoOperationRequest struct {
	Instances  []videoInstance `json:"instances"`
	Parameters videoParameters `json:"parameters"`
}

type videoOperation struct {
	Name     string `json:"name"`
	Done     bool   `json:"done"`
	Error    *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response,omitempty"`
}

// GenerateVideo starts a long-running video generation and polls the backend
// at a fixed interval until its completion flag is set, then downloads the
// result. There is no client-initiated cancellation beyond the context; the
// poll is bounded by the client's maximum wait so a stuck operation cannot
// hold the caller forever.
func (c *Client) GenerateVideo(ctx context.Context, req VideoRequest) (*VideoResult, error) {
	prompt := req.Prompt
	if len(req.ReferenceFrames) > 0 {
		// Reference frames ride along as style hints in the prompt preamble;
		// the seed image is the only binary input the operation accepts.
		prompt = fmt.Sprintf("%s\n\nMatch the visual style of the %d attached reference frames.", prompt, len(req.ReferenceFrames))
	}
	instance := videoInstance{Prompt: prompt}
	if len(req.SeedImage) > 0 {
		mime := req.SeedImageMIME
		if mime == "" {
			mime = "image/jpeg"
		}
		instance.Image = &inlineData{
			MimeType: mime,
			Data:     base64.StdEncoding.EncodeToString(req.SeedImage),
		}
	}
	payload := videoOperationRequest{
		Instances: []videoInstance{instance},
		Parameters: videoParameters{
			AspectRatio:     req.AspectRatio,
			DurationSeconds: req.DurationSeconds,
			NumberOfVideos:  1,
		},
	}

	var op videoOperation
	if err := c.invoke(ctx, http.MethodPost, c.modelPath(DefaultVideoModel, "predictLongRunning"), payload, &op); err != nil {
		return nil, err
	}
	if op.Name == "" {
		return nil, errors.New("gateway: video operation has no name")
	}

	op2, err := c.pollVideoOperation(ctx, op.Name)
	if err != nil {
		return nil, err
	}
	return c.downloadVideo(ctx, op2)
}

func (c *Client) pollVideoOperation(ctx context.Context, name string) (*videoOperation, error) {
	deadline := time.Now().Add(c.maxPollWait)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: waited %v for %s", ErrVideoTimeout, c.maxPollWait, name)
		}

		var op videoOperation
		if err := c.invoke(ctx, http.MethodGet, "/"+strings.TrimLeft(name, "/"), nil, &op); err != nil {
			return nil, err
		}
		if !op.Done {
			c.logger.Debug("video operation still running", zap.String("operation", name))
			continue
		}
		if op.Error != nil {
			return nil, fmt.Errorf("gateway: video generation failed: %s", op.Error.Message)
		}
		return &op, nil
	}
}

func (c *Client) downloadVideo(ctx context.Context, op *videoOperation) (*VideoResult, error) {
	if op.Response == nil || len(op.Response.GenerateVideoResponse.GeneratedSamples) == 0 {
		return nil, errors.New("gateway: completed video operation has no samples")
	}
	uri := op.Response.GenerateVideoResponse.GeneratedSamples[0].Video.URI
	if uri == "" {
		return nil, errors.New("gateway: video sample has no download URI")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}
	q := req.URL.Query()
	q.Set("key", c.apiKey)
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download video: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("download video: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download video: %w", err)
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "video/mp4"
	}
	return &VideoResult{Data: data, MIMEType: mime}, nil
}
