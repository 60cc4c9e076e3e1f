package auth

import (
	"context"
	"errors"
	"testing"
)

type fakeVerifier struct {
	password string
	err      error
	calls    int
}

func (f *fakeVerifier) VerifyPassword(_ context.Context, pw string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return pw == f.password, nil
}

// scriptedPrompter answers prompts from a fixed list, then cancels.
type scriptedPrompter struct {
	answers  []string
	requests []PromptRequest
}

func (p *scriptedPrompter) Prompt(_ context.Context, req PromptRequest) (string, error) {
	p.requests = append(p.requests, req)
	if len(p.answers) == 0 {
		return "", ErrCanceled
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a, nil
}

func TestVerify_FailsClosed(t *testing.T) {
	v := &fakeVerifier{err: errors.New("connection refused")}
	g := NewGate(v, NewSession(), nil, nil)
	if g.Verify(context.Background(), "secret") {
		t.Fatal("verify must fail on transport error")
	}
	if g.Session().Authorized() {
		t.Error("session granted after failure")
	}
}

func TestVerify_EmptyPasswordSkipsRequest(t *testing.T) {
	v := &fakeVerifier{password: "secret"}
	g := NewGate(v, NewSession(), nil, nil)
	if g.Verify(context.Background(), "  ") {
		t.Fatal("empty password accepted")
	}
	if v.calls != 0 {
		t.Errorf("verifier calls = %d, want 0", v.calls)
	}
}

func TestRequireAuth_MemoizesSuccess(t *testing.T) {
	v := &fakeVerifier{password: "secret"}
	p := &scriptedPrompter{answers: []string{"secret"}}
	g := NewGate(v, NewSession(), p, nil)

	runs := 0
	action := func(context.Context) error { runs++; return nil }

	for i := 0; i < 2; i++ {
		if err := g.RequireAuth(context.Background(), "publish", action); err != nil {
			t.Fatalf("RequireAuth #%d: %v", i, err)
		}
	}
	if runs != 2 {
		t.Errorf("action runs = %d, want 2", runs)
	}
	if v.calls != 1 {
		t.Errorf("verify calls = %d, want 1", v.calls)
	}
	if len(p.requests) != 1 {
		t.Errorf("prompts = %d, want 1", len(p.requests))
	}
}

func TestRequireAuth_RetriesThenSucceeds(t *testing.T) {
	v := &fakeVerifier{password: "secret"}
	p := &scriptedPrompter{answers: []string{"", "wrong", "secret"}}
	g := NewGate(v, NewSession(), p, nil)

	ran := false
	err := g.RequireAuth(context.Background(), "delete article", func(context.Context) error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("RequireAuth: %v", err)
	}
	if !ran {
		t.Fatal("action did not run")
	}
	if v.calls != 2 {
		t.Errorf("verify calls = %d, want 2 (empty answer must not reach the verifier)", v.calls)
	}
	if len(p.requests) != 3 {
		t.Fatalf("prompts = %d, want 3", len(p.requests))
	}
	if p.requests[1].Problem != ProblemRequired {
		t.Errorf("second prompt problem = %q", p.requests[1].Problem)
	}
	if p.requests[2].Problem != ProblemWrong || p.requests[2].Attempt != 3 {
		t.Errorf("third prompt = %+v", p.requests[2])
	}
}

func TestRequireAuth_Cancel(t *testing.T) {
	v := &fakeVerifier{password: "secret"}
	p := &scriptedPrompter{answers: []string{"wrong"}}
	g := NewGate(v, NewSession(), p, nil)

	err := g.RequireAuth(context.Background(), "publish", func(context.Context) error {
		t.Fatal("action must not run after cancel")
		return nil
	})
	if !errors.Is(err, ErrCanceled) {
		t.Errorf("err = %v, want ErrCanceled", err)
	}
	if g.Session().Authorized() {
		t.Error("session authorized after cancel")
	}
}

func TestRequireAuth_ContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := NewGate(&fakeVerifier{}, NewSession(), &scriptedPrompter{}, nil)
	err := g.RequireAuth(ctx, "publish", func(context.Context) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSession_Clear(t *testing.T) {
	g := NewGate(&fakeVerifier{password: "p"}, NewSession(), nil, nil)
	if !g.Verify(context.Background(), "p") {
		t.Fatal("verify failed")
	}
	g.Session().Clear()
	if g.Session().Authorized() {
		t.Error("session still authorized after Clear")
	}
}
