package model

import (
	"context"
	"errors"
	"testing"

	portmodel "github.com/nexusflow/nexusflow-client/internal/ports/out/model"
)

func TestGenerator_ReplaysInOrderThenExhausts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	boom := errors.New("boom")
	g := NewGenerator(Response{Text: `["a"]`}, Response{Err: boom})

	if got, err := g.Generate(ctx, portmodel.Request{Prompt: "one"}); err != nil || got != `["a"]` {
		t.Fatalf("first=%q err=%v", got, err)
	}
	if _, err := g.Generate(ctx, portmodel.Request{Prompt: "two"}); !errors.Is(err, boom) {
		t.Fatalf("second err=%v, want boom", err)
	}
	if _, err := g.Generate(ctx, portmodel.Request{Prompt: "three"}); !errors.Is(err, ErrExhausted) {
		t.Fatalf("third err=%v, want ErrExhausted", err)
	}

	reqs := g.Requests()
	if len(reqs) != 3 || reqs[0].Prompt != "one" || reqs[2].Prompt != "three" {
		t.Fatalf("requests=%+v", reqs)
	}
}

func TestGenerator_CanceledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := Reply(`[]`)
	if _, err := g.Generate(ctx, portmodel.Request{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
	if g.Calls() != 1 {
		t.Fatalf("Calls()=%d", g.Calls())
	}
}
