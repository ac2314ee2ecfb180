package filter

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/fy0/qfilter/filter"

// Telemetry operation names.
const (
	TelemetryOpFilterParse   = "filter_parse"
	TelemetryOpFilterCompile = "filter_compile"
)

// Telemetry attribute keys.
const (
	AttrFilterQuery    = "filter.query"
	AttrFilterSource   = "filter.source"
	AttrFilterOpCount  = "filter.op_count"
	AttrFilterKeyCount = "filter.key_count"
)

// traceOp runs fn inside a span named name. Errors returned by fn are
// recorded on the span.
func traceOp(ctx context.Context, provider trace.TracerProvider, name string, attrs map[string]any, fn func(ctx context.Context) error) error {
	ctx, span := provider.Tracer(tracerName).Start(ctx, name)
	defer span.End()

	span.SetAttributes(mapToAttributes(attrs)...)

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// setSpanAttributes adds attributes to the span carried by ctx, if any.
func setSpanAttributes(ctx context.Context, attrs map[string]any) {
	trace.SpanFromContext(ctx).SetAttributes(mapToAttributes(attrs)...)
}

func mapToAttributes(data map[string]any) []attribute.KeyValue {
	var attrs []attribute.KeyValue

	for k, v := range data {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, val))
		case int:
			attrs = append(attrs, attribute.Int64(k, int64(val)))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}

	return attrs
}
