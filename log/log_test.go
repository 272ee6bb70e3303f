package log

import "testing"

type captureHandler struct {
	entries []*Entry
}

func (h *captureHandler) Fire(e *Entry) {
	h.entries = append(h.entries, e)
}

func TestLoggerWithFieldsMerges(t *testing.T) {
	cap := &captureHandler{}
	l := &Logger{EntryHandler: cap, Level: DebugLevel}

	l2 := l.WithFields(Fields{"a": 1})
	l3 := l2.WithFields(Fields{"b": 2})
	l3.Info("hello")

	if len(cap.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(cap.entries))
	}
	e := cap.entries[0]
	if e.Fields["a"] != 1 || e.Fields["b"] != 2 {
		t.Fatalf("fields not merged: %#v", e.Fields)
	}
	if e.Message != "hello" || e.Level != InfoLevel {
		t.Fatalf("unexpected entry: %#v", e)
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	cap := &captureHandler{}
	l := &Logger{EntryHandler: cap, Level: WarnLevel}

	l.Info("suppressed")
	l.Warn("kept")

	if len(cap.entries) != 1 {
		t.Fatalf("expected 1 entry after filtering, got %d", len(cap.entries))
	}
	if cap.entries[0].Message != "kept" {
		t.Fatalf("wrong entry survived filtering: %#v", cap.entries[0])
	}
}
