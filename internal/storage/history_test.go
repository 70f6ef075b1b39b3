package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func TestRunHistoryLifecycle(t *testing.T) {
	h, err := OpenRunHistory(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenRunHistory() error = %v", err)
	}
	defer h.Close()

	started := time.Now()
	runID, err := h.StartRun("touch", "en.wikipedia.org", started)
	if err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}
	if runID == 0 {
		t.Fatal("StartRun() returned id 0")
	}

	if err := h.RecordPage(runID, "Alpha", ActionRead, ""); err != nil {
		t.Fatalf("RecordPage() error = %v", err)
	}
	if err := h.RecordPage(runID, "Beta", ActionFailed, "edit conflict"); err != nil {
		t.Fatalf("RecordPage() error = %v", err)
	}

	if err := h.FinishRun(runID, 1, 0, 1, "successful", started.Add(time.Minute)); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}

	total, completed, err := h.RunStats()
	if err != nil {
		t.Fatalf("RunStats() error = %v", err)
	}
	if total != 1 || completed != 1 {
		t.Errorf("RunStats() = (%d, %d), want (1, 1)", total, completed)
	}
}

func TestRunHistoryUnfinishedRun(t *testing.T) {
	h, err := OpenRunHistory(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenRunHistory() error = %v", err)
	}
	defer h.Close()

	if _, err := h.StartRun("touch", "en.wikipedia.org", time.Now()); err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}

	total, completed, err := h.RunStats()
	if err != nil {
		t.Fatalf("RunStats() error = %v", err)
	}
	if total != 1 || completed != 0 {
		t.Errorf("RunStats() = (%d, %d), want (1, 0)", total, completed)
	}
}

func TestOpenRunHistoryCreatesDirectory(t *testing.T) {
	h, err := OpenRunHistory(filepath.Join(t.TempDir(), "nested", "dir", "history.db"))
	if err != nil {
		t.Fatalf("OpenRunHistory() error = %v", err)
	}
	h.Close()
}
