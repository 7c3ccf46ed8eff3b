package metastore

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func Test_Store_AppendAssignsDenseSlots(t *testing.T) {
	t.Parallel()
	s := New()

	for want := 0; want < 4; want++ {
		slot := s.Append(Record{Chunk: "text", Source: "doc.txt"})
		if slot != want {
			t.Errorf("append %d: slot = %d", want, slot)
		}
	}
	if s.Len() != 4 {
		t.Errorf("len = %d, want 4", s.Len())
	}
}

func Test_Store_GetReturnsAppendedRecord(t *testing.T) {
	t.Parallel()
	s := New()

	want := Record{Chunk: "the quick brown fox", Source: "evidence/wikipedia/fox.txt"}
	slot := s.Append(want)

	got, err := s.Get(slot)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func Test_Store_GetOutOfRange(t *testing.T) {
	t.Parallel()
	s := New()
	s.Append(Record{Chunk: "only entry", Source: "a.txt"})

	for _, slot := range []int{-1, 1, 100} {
		_, err := s.Get(slot)
		var oor *OutOfRangeError
		if !errors.As(err, &oor) {
			t.Fatalf("get %d: want OutOfRangeError, got %v", slot, err)
		}
		if oor.Slot != slot || oor.Size != 1 {
			t.Errorf("get %d: error fields %+v", slot, oor)
		}
	}
}

func Test_Store_RoundTripPreservesOrderAndContent(t *testing.T) {
	t.Parallel()
	s := New()

	records := []Record{
		{Chunk: "first chunk with \"quotes\"", Source: "a.txt"},
		{Chunk: "second chunk\nwith a newline", Source: "b.txt"},
		{Chunk: "third", Source: "nested/prefix/c.txt"},
	}
	for _, r := range records {
		s.Append(r)
	}

	var buf bytes.Buffer
	if err := s.Save(&buf); err != nil {
		t.Fatalf("save: %v", err)
	}

	restored, err := Load(&buf)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if restored.Len() != len(records) {
		t.Fatalf("restored len = %d, want %d", restored.Len(), len(records))
	}
	for i, want := range records {
		got, err := restored.Get(i)
		if err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
		if got != want {
			t.Errorf("slot %d: got %+v, want %+v", i, got, want)
		}
	}
}

func Test_Store_SaveEmptyStoreWritesEmptyArray(t *testing.T) {
	t.Parallel()
	s := New()

	var buf bytes.Buffer
	if err := s.Save(&buf); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "[]" {
		t.Errorf("empty store serialized as %q, want []", got)
	}
}

func Test_Store_SaveUsesLowercaseFieldNames(t *testing.T) {
	t.Parallel()
	s := New()
	s.Append(Record{Chunk: "c", Source: "s"})

	var buf bytes.Buffer
	if err := s.Save(&buf); err != nil {
		t.Fatalf("save: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"chunk"`) || !strings.Contains(out, `"source"`) {
		t.Errorf("serialized form missing expected keys: %s", out)
	}
}

func Test_Load_RejectsMalformedJSON(t *testing.T) {
	t.Parallel()

	if _, err := Load(strings.NewReader("{not json")); err == nil {
		t.Fatal("want error for malformed input")
	}
}
