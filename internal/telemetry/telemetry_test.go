package telemetry

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type fakeExporter struct {
	exported []sdktrace.ReadOnlySpan
	shutdown bool
}

func (f *fakeExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	f.exported = append(f.exported, spans...)
	return nil
}

func (f *fakeExporter) Shutdown(_ context.Context) error {
	f.shutdown = true
	return nil
}

func restoreGlobalProvider(t *testing.T) {
	t.Helper()
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })
}

func TestInitDisabledWithoutEndpoint(t *testing.T) {
	restoreGlobalProvider(t)
	called := false
	restoreFactory := setExporterFactoryForTest(func(context.Context, string) (sdktrace.SpanExporter, error) {
		called = true
		return &fakeExporter{}, nil
	})
	defer restoreFactory()

	before := otel.GetTracerProvider()
	shutdown, err := Init(context.Background(), "  ")
	if err != nil {
		t.Fatalf("init telemetry: %v", err)
	}
	shutdown()

	if called {
		t.Fatal("exporter must not be created without an endpoint")
	}
	if otel.GetTracerProvider() != before {
		t.Fatal("global tracer provider must be untouched when tracing is disabled")
	}
}

func TestInitUsesEndpointAndResourceAttributes(t *testing.T) {
	restoreGlobalProvider(t)
	originalVersion := ServiceVersion
	ServiceVersion = "v1.2.3-test"
	defer func() { ServiceVersion = originalVersion }()
	t.Setenv("PRADB_ENV", "prod")

	fake := &fakeExporter{}
	capturedEndpoint := ""
	restoreFactory := setExporterFactoryForTest(func(_ context.Context, endpoint string) (sdktrace.SpanExporter, error) {
		capturedEndpoint = endpoint
		return fake, nil
	})
	defer restoreFactory()

	shutdown, err := Init(context.Background(), "http://collector:4318")
	if err != nil {
		t.Fatalf("init telemetry: %v", err)
	}

	if capturedEndpoint != "http://collector:4318" {
		t.Fatalf("endpoint = %q, want collector endpoint", capturedEndpoint)
	}

	_, span := otel.Tracer("telemetry-test").Start(context.Background(), "adb.execute")
	span.End()

	shutdown()
	shutdown()
	if !fake.shutdown {
		t.Fatal("expected exporter shutdown on telemetry shutdown")
	}
	if len(fake.exported) == 0 {
		t.Fatal("expected at least one exported span")
	}

	attrs := fake.exported[0].Resource().Attributes()
	assertResourceAttribute(t, attrs, "service.name", ServiceName)
	assertResourceAttribute(t, attrs, "service.version", "v1.2.3-test")
	assertResourceAttribute(t, attrs, "environment", "prod")
}

func TestInitFallsBackToConsoleExporter(t *testing.T) {
	restoreGlobalProvider(t)
	var out bytes.Buffer
	previousOut := warnOut
	warnOut = &out
	defer func() { warnOut = previousOut }()

	restoreFactory := setExporterFactoryForTest(func(context.Context, string) (sdktrace.SpanExporter, error) {
		return nil, errors.New("dial failed")
	})
	defer restoreFactory()

	shutdown, err := Init(context.Background(), "http://collector:4318")
	if err != nil {
		t.Fatalf("init telemetry: %v", err)
	}

	_, span := otel.Tracer("telemetry-test").Start(context.Background(), "adb.execute")
	span.SetAttributes(attribute.String("command", "host:version"))
	span.End()
	shutdown()

	output := out.String()
	if !strings.Contains(output, "falling back to console exporter") {
		t.Fatalf("output missing fallback warning: %q", output)
	}
	if !strings.Contains(output, `[SPAN] adb.execute "host:version"`) {
		t.Fatalf("output missing console span: %q", output)
	}
}

func TestBatchConfigConstants(t *testing.T) {
	if BatchSize != 512 {
		t.Fatalf("BatchSize = %d, want 512", BatchSize)
	}
	if BatchTimeout != 5*time.Second {
		t.Fatalf("BatchTimeout = %s, want 5s", BatchTimeout)
	}
}

func TestResolveEnvironmentFallback(t *testing.T) {
	t.Setenv("PRADB_ENV", "")
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("ENV", "Staging")

	if got := resolveEnvironment(); got != "staging" {
		t.Fatalf("environment = %q, want staging", got)
	}
}

func assertResourceAttribute(t *testing.T, attrs []attribute.KeyValue, key, want string) {
	t.Helper()
	for _, attr := range attrs {
		if string(attr.Key) == key {
			if attr.Value.AsString() != want {
				t.Fatalf("resource attr %s = %q, want %q", key, attr.Value.AsString(), want)
			}
			return
		}
	}
	t.Fatalf("resource attribute %q not found", key)
}
