package api

import (
	"context"

	"nexaneuron-backend-go/internal/gateway"
)

// AIGateway is the slice of the gateway client the request handlers consume.
type AIGateway interface {
	Chat(ctx context.Context, req gateway.ChatRequest) (*gateway.ChatResponse, error)
	GenerateContent(ctx context.Context, req gateway.GenerateRequest) (string, error)
	AnalyzeFrames(ctx context.Context, req gateway.FrameAnalysisRequest) (string, error)
	GroundedSearch(ctx context.Context, req gateway.SearchRequest) (*gateway.SearchResult, error)
	GenerateImages(ctx context.Context, req gateway.ImageGenRequest) ([]gateway.GeneratedImage, error)
	Speech(ctx context.Context, req gateway.SpeechRequest) (*gateway.SpeechResult, error)
	GenerateVideo(ctx context.Context, req gateway.VideoRequest) (*gateway.VideoResult, error)
}

// LiveDialer opens bidirectional live audio sessions.
type LiveDialer interface {
	Live(ctx context.Context, liveURL string, opts gateway.LiveOptions) (*gateway.LiveSession, error)
}
