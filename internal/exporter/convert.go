package exporter

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"
)

// buildRequest groups a batch of finished spans by resource and scope,
// the same two-level grouping internal/analyzer/traces.go walks when
// reading a request back apart (resource_spans -> scope_spans -> spans),
// run here in reverse to build one.
func buildRequest(spans []sdktrace.ReadOnlySpan) *coltracepb.ExportTraceServiceRequest {
	type scopeKey struct {
		name, version string
	}

	type resourceBucket struct {
		resource *resourcepb.Resource
		scopes   map[scopeKey]*tracepb.ScopeSpans
		order    []scopeKey
	}

	resources := make(map[string]*resourceBucket)
	var resourceOrder []string

	for _, s := range spans {
		resKey := s.Resource().String()
		bucket, ok := resources[resKey]
		if !ok {
			bucket = &resourceBucket{
				resource: &resourcepb.Resource{Attributes: convertAttributes(s.Resource().Attributes())},
				scopes:   make(map[scopeKey]*tracepb.ScopeSpans),
			}
			resources[resKey] = bucket
			resourceOrder = append(resourceOrder, resKey)
		}

		scope := s.InstrumentationScope()
		sk := scopeKey{name: scope.Name, version: scope.Version}
		ss, ok := bucket.scopes[sk]
		if !ok {
			ss = &tracepb.ScopeSpans{
				Scope: &commonpb.InstrumentationScope{Name: scope.Name, Version: scope.Version},
			}
			bucket.scopes[sk] = ss
			bucket.order = append(bucket.order, sk)
		}

		ss.Spans = append(ss.Spans, convertSpan(s))
	}

	req := &coltracepb.ExportTraceServiceRequest{}
	for _, rk := range resourceOrder {
		bucket := resources[rk]
		rs := &tracepb.ResourceSpans{Resource: bucket.resource}
		for _, sk := range bucket.order {
			rs.ScopeSpans = append(rs.ScopeSpans, bucket.scopes[sk])
		}
		req.ResourceSpans = append(req.ResourceSpans, rs)
	}
	return req
}

func convertSpan(s sdktrace.ReadOnlySpan) *tracepb.Span {
	sc := s.SpanContext()
	parent := s.Parent()

	traceID := sc.TraceID()
	spanID := sc.SpanID()

	var parentSpanID []byte
	if parent.HasSpanID() {
		pid := parent.SpanID()
		parentSpanID = pid[:]
	}

	pbSpan := &tracepb.Span{
		TraceId:                traceID[:],
		SpanId:                 spanID[:],
		ParentSpanId:           parentSpanID,
		Name:                   s.Name(),
		Kind:                   convertSpanKind(s.SpanKind()),
		StartTimeUnixNano:      uint64(s.StartTime().UnixNano()),
		EndTimeUnixNano:        uint64(s.EndTime().UnixNano()),
		Attributes:             convertAttributes(s.Attributes()),
		DroppedAttributesCount: uint32(s.DroppedAttributes()),
		DroppedEventsCount:     uint32(s.DroppedEvents()),
		DroppedLinksCount:      uint32(s.DroppedLinks()),
		Status:                 convertStatus(s.Status()),
	}

	if sc.TraceState().String() != "" {
		pbSpan.TraceState = sc.TraceState().String()
	}

	for _, ev := range s.Events() {
		pbSpan.Events = append(pbSpan.Events, &tracepb.Span_Event{
			TimeUnixNano: uint64(ev.Time.UnixNano()),
			Name:         ev.Name,
			Attributes:   convertAttributes(ev.Attributes),
		})
	}

	for _, link := range s.Links() {
		lid := link.SpanContext.TraceID()
		sid := link.SpanContext.SpanID()
		pbSpan.Links = append(pbSpan.Links, &tracepb.Span_Link{
			TraceId:    lid[:],
			SpanId:     sid[:],
			Attributes: convertAttributes(link.Attributes),
		})
	}

	return pbSpan
}

func convertSpanKind(kind trace.SpanKind) tracepb.Span_SpanKind {
	switch kind {
	case trace.SpanKindInternal:
		return tracepb.Span_SPAN_KIND_INTERNAL
	case trace.SpanKindServer:
		return tracepb.Span_SPAN_KIND_SERVER
	case trace.SpanKindClient:
		return tracepb.Span_SPAN_KIND_CLIENT
	case trace.SpanKindProducer:
		return tracepb.Span_SPAN_KIND_PRODUCER
	case trace.SpanKindConsumer:
		return tracepb.Span_SPAN_KIND_CONSUMER
	default:
		return tracepb.Span_SPAN_KIND_UNSPECIFIED
	}
}

func convertStatus(st sdktrace.Status) *tracepb.Status {
	pbStatus := &tracepb.Status{Message: st.Description}
	switch st.Code {
	case codes.Ok:
		pbStatus.Code = tracepb.Status_STATUS_CODE_OK
	case codes.Error:
		pbStatus.Code = tracepb.Status_STATUS_CODE_ERROR
	default:
		pbStatus.Code = tracepb.Status_STATUS_CODE_UNSET
	}
	return pbStatus
}

func convertAttributes(attrs []attribute.KeyValue) []*commonpb.KeyValue {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]*commonpb.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, &commonpb.KeyValue{
			Key:   string(a.Key),
			Value: convertValue(a.Value),
		})
	}
	return out
}

func convertValue(v attribute.Value) *commonpb.AnyValue {
	switch v.Type() {
	case attribute.BOOL:
		return &commonpb.AnyValue{Value: &commonpb.AnyValue_BoolValue{BoolValue: v.AsBool()}}
	case attribute.INT64:
		return &commonpb.AnyValue{Value: &commonpb.AnyValue_IntValue{IntValue: v.AsInt64()}}
	case attribute.FLOAT64:
		return &commonpb.AnyValue{Value: &commonpb.AnyValue_DoubleValue{DoubleValue: v.AsFloat64()}}
	case attribute.STRING:
		return &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: v.AsString()}}
	default:
		return &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: v.Emit()}}
	}
}
