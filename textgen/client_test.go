package textgen

import (
	"context"
	"errors"
	"testing"
)

// fakeAdapter is a scripted ProviderAdapter for tests.
type fakeAdapter struct {
	name    string
	result  *Result
	err     error
	calls   int
	lastReq Request
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Generate(_ context.Context, req Request) (*Result, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func TestClientRoutesToDefaultProvider(t *testing.T) {
	fake := &fakeAdapter{name: "fake", result: &Result{Text: "hi"}}
	c := NewClient(WithProvider("fake", fake))

	res, err := c.Send(context.Background(), Request{
		Messages: []Message{UserMessage("hello")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "hi" {
		t.Errorf("text = %q", res.Text)
	}
	if fake.lastReq.Provider != "fake" {
		t.Errorf("provider on request = %q, want fake", fake.lastReq.Provider)
	}
}

func TestClientRoutesByExplicitProvider(t *testing.T) {
	a := &fakeAdapter{name: "a", result: &Result{Text: "from a"}}
	b := &fakeAdapter{name: "b", result: &Result{Text: "from b"}}
	c := NewClient(WithProvider("a", a), WithProvider("b", b), WithDefaultProvider("a"))

	res, err := c.Send(context.Background(), Request{Provider: "b"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "from b" {
		t.Errorf("text = %q", res.Text)
	}
	if a.calls != 0 || b.calls != 1 {
		t.Errorf("calls: a=%d b=%d", a.calls, b.calls)
	}
}

func TestClientInfersProviderFromCatalog(t *testing.T) {
	fake := &fakeAdapter{name: "anthropic", result: &Result{Text: "ok"}}
	c := NewClient()
	c.RegisterProvider("openai", &fakeAdapter{name: "openai", result: &Result{}})
	c.RegisterProvider("anthropic", fake)
	// Two providers and no default forces catalog inference.
	c.defaultProvider = ""

	if _, err := c.Send(context.Background(), Request{Model: "claude-sonnet-4-5"}); err != nil {
		t.Fatal(err)
	}
	if fake.calls != 1 {
		t.Errorf("anthropic adapter calls = %d, want 1", fake.calls)
	}
}

func TestClientUnknownProviderIsConfigurationError(t *testing.T) {
	c := NewClient(WithProvider("fake", &fakeAdapter{name: "fake"}))

	_, err := c.Send(context.Background(), Request{Provider: "nope"})
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want ConfigurationError", err)
	}
}

func TestClientMiddlewareOrder(t *testing.T) {
	var order []string
	mw := func(tag string) Middleware {
		return func(ctx context.Context, req Request, next func(context.Context, Request) (*Result, error)) (*Result, error) {
			order = append(order, tag)
			return next(ctx, req)
		}
	}

	fake := &fakeAdapter{name: "fake", result: &Result{}}
	c := NewClient(WithProvider("fake", fake), WithMiddleware(mw("first"), mw("second")))

	if _, err := c.Send(context.Background(), Request{}); err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("middleware order = %v", order)
	}
}

func TestRetryMiddlewareRetriesRetryableErrors(t *testing.T) {
	fail := &RateLimitError{ProviderError: ProviderError{
		ServiceError: ServiceError{Message: "slow down"}, Retryable: true,
	}}
	fake := &scriptedAdapter{name: "fake", script: []step{{err: fail}, {res: &Result{Text: "ok"}}}}

	policy := RetryPolicy{MaxRetries: 2, BaseDelay: 0.001, MaxDelay: 0.01, BackoffMultiplier: 1}
	c := NewClient(WithProvider("fake", fake), WithMiddleware(RetryMiddleware(policy)))

	res, err := c.Send(context.Background(), Request{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "ok" || fake.calls != 2 {
		t.Errorf("text=%q calls=%d", res.Text, fake.calls)
	}
}

// initAdapter is a fakeAdapter with startup validation.
type initAdapter struct {
	fakeAdapter
	initErr     error
	initialized bool
}

func (a *initAdapter) Initialize() error {
	a.initialized = true
	return a.initErr
}

func TestRegisterProviderRunsInitializer(t *testing.T) {
	ok := &initAdapter{fakeAdapter: fakeAdapter{name: "ok", result: &Result{Text: "hi"}}}
	c := NewClient()
	if err := c.RegisterProvider("ok", ok); err != nil {
		t.Fatalf("RegisterProvider: %v", err)
	}
	if !ok.initialized {
		t.Error("Initialize was not called")
	}
	if _, err := c.Send(context.Background(), Request{}); err != nil {
		t.Errorf("Send: %v", err)
	}
}

func TestRegisterProviderRejectsFailedInitializer(t *testing.T) {
	bad := &initAdapter{
		fakeAdapter: fakeAdapter{name: "bad"},
		initErr:     errors.New("no credentials"),
	}
	c := NewClient()
	if err := c.RegisterProvider("bad", bad); err == nil {
		t.Fatal("expected an error from a failing Initialize")
	}
	if _, err := c.Send(context.Background(), Request{Provider: "bad"}); err == nil {
		t.Error("a rejected provider should not be registered")
	}
}

// scriptedAdapter returns each step in order, then repeats the last.
type scriptedAdapter struct {
	name   string
	script []step
	calls  int
}

type step struct {
	res *Result
	err error
}

func (s *scriptedAdapter) Name() string { return s.name }

func (s *scriptedAdapter) Generate(_ context.Context, _ Request) (*Result, error) {
	i := s.calls
	if i >= len(s.script) {
		i = len(s.script) - 1
	}
	s.calls++
	return s.script[i].res, s.script[i].err
}
