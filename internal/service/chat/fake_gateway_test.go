package chat_test

import (
	"context"
	"sync"

	"github.com/zhouzirui/medassist/backend/internal/model/genai"
)

// fakeGateway answers from a script; when gate is non-nil each call waits on it.
type fakeGateway struct {
	mu       sync.Mutex
	requests []*genai.GenerateContentRequest
	gate     chan struct{}
	started  chan struct{}
	reply    func(n int) (*genai.GenerateContentResponse, error)
}

func (f *fakeGateway) Send(_ context.Context, req *genai.GenerateContentRequest) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	n := len(f.requests)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	if f.reply != nil {
		return f.reply(n)
	}
	return okResponse("ok"), nil
}

func (f *fakeGateway) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeGateway) request(i int) *genai.GenerateContentRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[i]
}

func okResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []genai.Candidate{{
		Content: &genai.Content{Role: genai.RoleModel, Parts: []genai.Part{{Text: text}}},
	}}}
}
