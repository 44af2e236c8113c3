package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"rangeTrader/internal/model"
)

func TestJsonlJournalAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cycles.jsonl")
	journal := NewJsonlJournal(path)

	first := model.CycleRecord{
		StartedAt: "2024-01-01T00:00:00Z",
		Pool:      "0x1111111111111111111111111111111111111111",
		Price:     "0.0561",
		Action:    "sell",
		Amount:    420,
		Mode:      "armed_sell",
		TxHash:    "0xabc",
	}
	second := model.CycleRecord{
		StartedAt: "2024-01-01T00:01:00Z",
		Pool:      first.Pool,
		Action:    "skipped",
		Mode:      "armed_sell",
		ErrorKind: "unavailable",
		Error:     "read pool state: rpc timeout",
	}

	if err := journal.PutCycle(context.Background(), first); err != nil {
		t.Fatalf("put first: %v", err)
	}
	if err := journal.PutCycle(context.Background(), second); err != nil {
		t.Fatalf("put second: %v", err)
	}

	got, err := readCycles(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := []model.CycleRecord{first, second}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("records mismatch:\n got %+v\nwant %+v", got, want)
	}
}

type recordingJournal struct {
	records []model.CycleRecord
	err     error
}

func (r *recordingJournal) PutCycle(_ context.Context, record model.CycleRecord) error {
	r.records = append(r.records, record)
	return r.err
}

func TestMultiJournalWritesAllSinks(t *testing.T) {
	failing := &recordingJournal{err: errors.New("disk full")}
	ok := &recordingJournal{}
	multi := MultiJournal{failing, nil, ok}

	err := multi.PutCycle(context.Background(), model.CycleRecord{Action: "none"})
	if err == nil {
		t.Fatalf("expected joined error")
	}
	if len(failing.records) != 1 || len(ok.records) != 1 {
		t.Fatalf("every sink should receive the record")
	}
}

func readCycles(path string) ([]model.CycleRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var records []model.CycleRecord
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var rec model.CycleRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, scanner.Err()
}
