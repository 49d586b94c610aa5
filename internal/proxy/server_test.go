package proxy

import (
	"testing"

	"github.com/valyala/fasthttp"
)

func TestServer_Health(t *testing.T) {
	s := New(nil, nil, nil, nil)

	ctx := &fasthttp.RequestCtx{}
	s.handleHealth(ctx)

	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Errorf("expected 200, got %d", ctx.Response.StatusCode())
	}
	if !containsStr(string(ctx.Response.Body()), `"status":"ok"`) {
		t.Errorf("expected status ok in body, got %s", ctx.Response.Body())
	}
}

func TestServer_Readiness_NilProbeAlwaysOK(t *testing.T) {
	s := New(nil, nil, nil, nil)

	ctx := &fasthttp.RequestCtx{}
	s.handleReadiness(ctx)

	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Errorf("expected 200, got %d", ctx.Response.StatusCode())
	}
}

func TestServer_Readiness_UnavailableWhenProbeFails(t *testing.T) {
	s := New(nil, nil, func() bool { return false }, nil)

	ctx := &fasthttp.RequestCtx{}
	s.handleReadiness(ctx)

	if ctx.Response.StatusCode() != fasthttp.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", ctx.Response.StatusCode())
	}
}
