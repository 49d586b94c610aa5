package app

import (
	"context"
	"testing"

	"github.com/foamcold/gproxy/internal/model"
	"github.com/foamcold/gproxy/internal/store/memory"
)

func TestStoreSink_WritePersistsEachEntry(t *testing.T) {
	st := memory.New()
	sink := storeSink{st: st}

	entries := []model.LogEntry{
		{ID: "r1", Model: "gemini-1.5-pro"},
		{ID: "r2", Model: "gemini-1.5-flash"},
	}
	if err := sink.Write(context.Background(), entries); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := st.Logs(); len(got) != 2 {
		t.Fatalf("expected 2 persisted entries, got %d", len(got))
	}
}

func TestStoreSink_EmptyBatchIsANoOp(t *testing.T) {
	st := memory.New()
	sink := storeSink{st: st}

	if err := sink.Write(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := st.Logs(); len(got) != 0 {
		t.Errorf("expected no entries, got %d", len(got))
	}
}
