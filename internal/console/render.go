package console

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/fidde/otlp-span-pipeline/pkg/models"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"
)

// Renderer prints a flushed trace's tabular timeline and event log to
// an io.Writer, implementing assembler.ConsoleRenderer.
type Renderer struct {
	out                io.Writer
	theme              Theme
	colorBy            ColorBy
	severityAttribute  string
}

// DefaultSeverityAttribute is the attribute the timeline-log section
// reads event severity from when the operator does not override it.
const DefaultSeverityAttribute = "event.severity"

// NewRenderer builds a Renderer. An empty severityAttribute defaults to
// DefaultSeverityAttribute.
func NewRenderer(out io.Writer, theme Theme, colorBy ColorBy, severityAttribute string) *Renderer {
	if severityAttribute == "" {
		severityAttribute = DefaultSeverityAttribute
	}
	return &Renderer{out: out, theme: theme, colorBy: colorBy, severityAttribute: severityAttribute}
}

// Render implements assembler.ConsoleRenderer.
func (r *Renderer) Render(traceID string, payloads []models.TelemetryPayload, sawRoot bool) {
	raws := make([][]byte, 0, len(payloads))
	for _, p := range payloads {
		raws = append(raws, p.Payload)
	}

	roots, err := buildTrees(raws)
	if err != nil || len(roots) == 0 {
		fmt.Fprintf(r.out, "trace %s: no renderable spans\n", traceID)
		return
	}

	spans := flatten(roots)
	fmt.Fprintf(r.out, "\ntrace %s (saw_root=%v, %d spans)\n", traceID, sawRoot, len(spans))

	timelineWidth := TimelineWidth()
	minStart, maxEnd := traceBounds(spans)
	totalDuration := maxEnd.Sub(minStart)

	for _, s := range spans {
		r.renderRow(s, minStart, totalDuration, timelineWidth)
	}

	r.renderEventLog(spans)
}

func traceBounds(spans []*renderSpan) (time.Time, time.Time) {
	min, max := spans[0].start, spans[0].end
	for _, s := range spans[1:] {
		if s.start.Before(min) {
			min = s.start
		}
		if s.end.After(max) {
			max = s.end
		}
	}
	return min, max
}

func (r *Renderer) renderRow(s *renderSpan, traceStart time.Time, totalDuration time.Duration, timelineWidth int) {
	key := s.serviceName
	if r.colorBy == ColorBySpanID {
		key = s.spanID
	}
	c := colorFor(r.theme, key, s.isError)

	status := "OK"
	if s.isError {
		status = "ERROR"
	}

	bar := renderBar(s.start, s.end, traceStart, totalDuration, timelineWidth)

	line := fmt.Sprintf("%-20s %-24s %-10s %8s %-10s %-6s %s",
		truncate(s.serviceName, 20),
		truncate(s.name, 24),
		spanKindName(s.kind),
		s.duration().Round(time.Microsecond),
		s.spanID[:min(8, len(s.spanID))],
		status,
		bar,
	)
	fmt.Fprintln(r.out, c.Sprint(line))
}

func renderBar(start, end, traceStart time.Time, totalDuration time.Duration, width int) string {
	if totalDuration <= 0 {
		return ""
	}
	offset := int(float64(start.Sub(traceStart)) / float64(totalDuration) * float64(width))
	length := int(float64(end.Sub(start)) / float64(totalDuration) * float64(width))
	if length < 1 {
		length = 1
	}
	if offset+length > width {
		length = width - offset
	}
	if offset < 0 {
		offset = 0
	}
	if length < 0 {
		length = 0
	}

	bar := make([]byte, width)
	for i := range bar {
		bar[i] = ' '
	}
	for i := offset; i < offset+length && i < width; i++ {
		bar[i] = '#'
	}
	return string(bar)
}

// renderEventLog emits a chronological section mixing span-start events
// and span-level events, ordered by timestamp.
func (r *Renderer) renderEventLog(spans []*renderSpan) {
	type logLine struct {
		at       time.Time
		text     string
		severity string
	}
	var lines []logLine

	for _, s := range spans {
		lines = append(lines, logLine{at: s.start, text: fmt.Sprintf("span start: %s/%s", s.serviceName, s.name)})
		for _, ev := range s.events {
			lines = append(lines, logLine{
				at:       time.Unix(0, int64(ev.TimeUnixNano)),
				text:     fmt.Sprintf("event: %s/%s %s", s.serviceName, s.name, ev.Name),
				severity: severityOf(ev.Attributes, r.severityAttribute),
			})
		}
	}

	sort.Slice(lines, func(i, j int) bool { return lines[i].at.Before(lines[j].at) })

	if len(lines) == 0 {
		return
	}
	fmt.Fprintln(r.out, "--- timeline log ---")
	for _, l := range lines {
		if l.severity != "" {
			fmt.Fprintf(r.out, "[%s] %s (%s)\n", l.at.Format(time.RFC3339Nano), l.text, l.severity)
		} else {
			fmt.Fprintf(r.out, "[%s] %s\n", l.at.Format(time.RFC3339Nano), l.text)
		}
	}
}

func severityOf(attrs []*commonpb.KeyValue, attrName string) string {
	for _, a := range attrs {
		if a.Key == attrName {
			return a.Value.GetStringValue()
		}
	}
	return ""
}

func spanKindName(k tracepb.Span_SpanKind) string {
	return k.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
