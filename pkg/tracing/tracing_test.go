package tracing

import (
	"testing"

	"github.com/opentracing/opentracing-go"
)

func TestDisabledTracerIsNoop(t *testing.T) {
	tr, closer, err := InitTracer(Config{})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	defer closer()
	if _, ok := tr.(opentracing.NoopTracer); !ok {
		t.Fatalf("expected noop tracer, got %T", tr)
	}
}
