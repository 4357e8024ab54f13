package report

import (
	"strings"
	"sync"
	"testing"
	"time"

	"detectlab/internal/dto"
)

var fixedTime = time.Date(2026, 10, 17, 14, 3, 22, 0, time.Local)

func fixedClock() time.Time { return fixedTime }

func frame(index int, pairs ...interface{}) dto.FrameResult {
	f := dto.FrameResult{Index: index}
	for i := 0; i+1 < len(pairs); i += 2 {
		f.Detections = append(f.Detections, dto.Detection{
			Label:      pairs[i].(string),
			Confidence: pairs[i+1].(float64),
		})
	}
	return f
}

func sumCounts(classes []dto.ClassCount) int {
	total := 0
	for _, c := range classes {
		total += c.Count
	}
	return total
}

func TestFromResults_CatsAndDog(t *testing.T) {
	agg := NewAggregator(fixedClock)

	r := agg.FromResults([]dto.FrameResult{
		frame(0, "cat", 0.91, "cat", 0.40),
		frame(1, "dog", 0.77),
	}, "pets.jpg")

	if r.Total != 3 {
		t.Fatalf("Expected total 3, got %d", r.Total)
	}
	if r.Count("cat") != 2 || r.Count("dog") != 1 {
		t.Errorf("Unexpected counts: %+v", r.Classes)
	}
	if len(r.Classes) != 2 || r.Classes[0].Label != "cat" || r.Classes[1].Label != "dog" {
		t.Errorf("Expected first-seen order cat, dog, got %+v", r.Classes)
	}

	want := []string{
		"cat (confidence: 0.910)",
		"cat (confidence: 0.400)",
		"dog (confidence: 0.770)",
	}
	if len(r.Lines) != len(want) {
		t.Fatalf("Expected %d lines, got %d", len(want), len(r.Lines))
	}
	for i := range want {
		if r.Lines[i] != want[i] {
			t.Errorf("Line %d: expected %q, got %q", i, want[i], r.Lines[i])
		}
	}

	if r.Source != "pets.jpg" {
		t.Errorf("Expected source pets.jpg, got %q", r.Source)
	}
	if !r.GeneratedAt.Equal(fixedTime) {
		t.Errorf("Expected generation time from clock, got %v", r.GeneratedAt)
	}
	if r.Mode != ModeBatch {
		t.Errorf("Expected batch mode, got %s", r.Mode)
	}
}

func TestFromResults_Empty(t *testing.T) {
	agg := NewAggregator(fixedClock)

	r := agg.FromResults(nil, "empty.mp4")

	if r.Total != 0 {
		t.Errorf("Expected total 0, got %d", r.Total)
	}

	text := Render(r)
	if !strings.Contains(strings.ToLower(text), "no objects detected") {
		t.Errorf("Expected 'no objects detected' in report, got:\n%s", text)
	}
	if strings.Contains(text, "Summary by class:") {
		t.Errorf("Empty report should not contain a summary section:\n%s", text)
	}
	if !strings.Contains(text, "Total detections: 0") {
		t.Errorf("Expected zero total line, got:\n%s", text)
	}
}

func TestFromResults_SkipsEmptyFrames(t *testing.T) {
	agg := NewAggregator(fixedClock)

	r := agg.FromResults([]dto.FrameResult{
		frame(0),
		frame(1, "person", 0.5),
		frame(2),
	}, "clip.mp4")

	if r.Total != 1 || len(r.Lines) != 1 || r.Count("person") != 1 {
		t.Errorf("Expected a single person detection, got %+v", r)
	}
}

func TestFromResults_TotalsMatch(t *testing.T) {
	agg := NewAggregator(fixedClock)
	labels := []string{"person", "car", "bus", "person", "dog", "car"}

	var frames []dto.FrameResult
	detections := 0
	for i := 0; i < 20; i++ {
		f := dto.FrameResult{Index: i}
		for j := 0; j < i%4; j++ {
			f.Detections = append(f.Detections, dto.Detection{
				Label:      labels[(i+j)%len(labels)],
				Confidence: float64(j+1) / 10,
			})
			detections++
		}
		frames = append(frames, f)
	}

	r := agg.FromResults(frames, "generated")

	if r.Total != detections {
		t.Errorf("Expected total %d, got %d", detections, r.Total)
	}
	if sumCounts(r.Classes) != r.Total {
		t.Errorf("Class counts sum to %d, total is %d", sumCounts(r.Classes), r.Total)
	}
	if len(r.Lines) != r.Total {
		t.Errorf("Expected %d lines, got %d", r.Total, len(r.Lines))
	}
}

func TestFromCounter_FirstSeenOrder(t *testing.T) {
	agg := NewAggregator(fixedClock)
	counter := NewCounter()

	for i := 0; i < 5; i++ {
		counter.Add("person")
		if i < 2 {
			counter.Add("car")
		}
	}

	r := agg.FromCounter(counter, "camera 0")

	if r.Total != 7 {
		t.Errorf("Expected total 7, got %d", r.Total)
	}
	if len(r.Lines) != 0 {
		t.Errorf("Expected no detail lines in live mode, got %d", len(r.Lines))
	}

	text := Render(r)
	person := strings.Index(text, "person : 5")
	car := strings.Index(text, "car : 2")
	if person < 0 || car < 0 || person > car {
		t.Errorf("Expected 'person : 5' before 'car : 2', got:\n%s", text)
	}
	if strings.Contains(text, "Detections:") {
		t.Errorf("Live report should not have a detail section:\n%s", text)
	}
}

func TestFromCounter_Empty(t *testing.T) {
	agg := NewAggregator(fixedClock)

	for _, counter := range []*Counter{nil, NewCounter(), {}} {
		r := agg.FromCounter(counter, "camera 0")
		if r.Total != 0 {
			t.Errorf("Expected total 0, got %d", r.Total)
		}
		text := Render(r)
		if !strings.Contains(strings.ToLower(text), "no detections recorded for the session") {
			t.Errorf("Expected empty-session text, got:\n%s", text)
		}
	}
}

func TestRender_Format(t *testing.T) {
	agg := NewAggregator(fixedClock)
	r := agg.FromResults([]dto.FrameResult{frame(0, "cat", 0.91, "dog", 0.7777)}, "pets.jpg")

	want := "=== Object detection report (batch) ===\n" +
		"Generated at: 2026-10-17 14:03:22\n" +
		"Source: pets.jpg\n" +
		"\n" +
		"Detections:\n" +
		"cat (confidence: 0.910)\n" +
		"dog (confidence: 0.778)\n" +
		"\n" +
		"Summary by class:\n" +
		"cat : 1\n" +
		"dog : 1\n" +
		"\n" +
		"Total detections: 2\n"

	if got := Render(r); got != want {
		t.Errorf("Unexpected rendering:\n%s\nwant:\n%s", got, want)
	}
}

func TestRender_Idempotent(t *testing.T) {
	agg := NewAggregator(fixedClock)
	r := agg.FromResults([]dto.FrameResult{frame(0, "cat", 0.91), frame(1, "dog", 0.77)}, "pets.jpg")

	if Render(r) != Render(r) {
		t.Error("Rendering the same report twice gave different text")
	}
	if r.String() != Render(r) {
		t.Error("String should match Render")
	}
}

func TestRender_SourceOnOneLine(t *testing.T) {
	agg := NewAggregator(fixedClock)
	r := agg.FromResults(nil, "line one\nline two")

	if !strings.Contains(Render(r), "Source: line one line two\n") {
		t.Errorf("Expected source folded onto one line, got:\n%s", Render(r))
	}
	if r.Source != "line one\nline two" {
		t.Errorf("Report source should stay verbatim, got %q", r.Source)
	}
}

func TestCounter_ConcurrentAdds(t *testing.T) {
	counter := NewCounter()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				counter.AddFrame(frame(i, "person", 0.9, "car", 0.8))
			}
		}()
	}
	wg.Wait()

	if counter.Total() != 8000 {
		t.Errorf("Expected 8000 increments, got %d", counter.Total())
	}
	if got := counter.Snapshot(); len(got) != 2 || got[0].Label != "person" {
		t.Errorf("Expected person then car, got %+v", got)
	}
}
