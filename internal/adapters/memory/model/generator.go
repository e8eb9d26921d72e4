package model

import (
	"context"
	"errors"
	"sync"

	"github.com/nexusflow/nexusflow-client/internal/ports/out/model"
)

// ErrExhausted is returned once every scripted response has been consumed.
var ErrExhausted = errors.New("scripted generator: no responses left")

// Response is one scripted reply.
type Response struct {
	Text string
	Err  error
}

// Generator replays scripted responses in order and records every request.
// It is safe for concurrent use.
type Generator struct {
	mu        sync.Mutex
	responses []Response
	requests  []model.Request
}

func NewGenerator(responses ...Response) *Generator {
	return &Generator{responses: append([]Response(nil), responses...)}
}

// Reply is shorthand for a generator that answers once with text.
func Reply(text string) *Generator {
	return NewGenerator(Response{Text: text})
}

// Push appends responses to the script.
func (g *Generator) Push(responses ...Response) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.responses = append(g.responses, responses...)
}

func (g *Generator) Generate(ctx context.Context, req model.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(g.responses) == 0 {
		return "", ErrExhausted
	}
	r := g.responses[0]
	g.responses = g.responses[1:]
	return r.Text, r.Err
}

// Requests returns a copy of the recorded requests.
func (g *Generator) Requests() []model.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]model.Request(nil), g.requests...)
}

func (g *Generator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

// Func adapts a function to model.Generator.
type Func func(ctx context.Context, req model.Request) (string, error)

func (f Func) Generate(ctx context.Context, req model.Request) (string, error) {
	return f(ctx, req)
}
