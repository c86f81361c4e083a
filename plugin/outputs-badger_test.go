package plugin_test

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	Lp "github.com/maroda/livedemo/plugin"
	Lt "github.com/maroda/livedemo/types"
)

func TestNewBadgerOutput(t *testing.T) {
	t.Run("Creates new struct for output", func(t *testing.T) {
		got, err := Lp.NewBadgerOutput(filepath.Join(t.TempDir(), "badger_db"), 10)
		assertError(t, err, nil)
		defer got.Close()
		assertInt(t, got.BatchSize, 10)
		assertInt(t, len(got.Buffer), 0)
	})

	t.Run("Returns Type", func(t *testing.T) {
		adapter, closedb := makeTestBadgerOutput(t)
		defer closedb()
		assertStringContains(t, adapter.Type(), "BadgerDB")
	})
}

func TestBadgerOutput_WriteUpdate(t *testing.T) {
	adapter, closedb := makeTestBadgerOutput(t)
	defer closedb()

	start := time.Now().Truncate(time.Millisecond)
	v := 2.5

	t.Run("Buffers until the batch is full", func(t *testing.T) {
		err := adapter.WriteUpdate(&Lt.Update{Time: start.UnixMilli(), Value: &v})
		assertError(t, err, nil)
		assertInt(t, len(adapter.Buffer), 1)
	})

	t.Run("Flushes updates for writing", func(t *testing.T) {
		// the test adapter buffer size is 5
		updates := []*Lt.Update{
			{Time: start.Add(1 * time.Second).UnixMilli(), Value: &v},
			{Time: start.Add(2 * time.Second).UnixMilli(), Label: true},
			{Time: start.Add(3 * time.Second).UnixMilli(), Value: &v, Pred: true},
			{Time: start.Add(4 * time.Second).UnixMilli(), Reset: true},
		}
		for _, u := range updates {
			assertError(t, adapter.WriteUpdate(u), nil)
		}
		assertInt(t, len(adapter.Buffer), 0)

		got, err := adapter.QueryRange(start.Add(-time.Second), start.Add(5*time.Second))
		assertError(t, err, nil)
		assertInt(t, len(got), 5)

		// chronological
		for i := 1; i < len(got); i++ {
			if got[i].Time < got[i-1].Time {
				t.Errorf("updates out of order at %d", i)
			}
		}
		assertBool(t, got[2].Label, true)
		assertBool(t, got[3].Pred, true)
		assertFloat(t, *got[3].Value, 2.5)
		assertBool(t, got[4].Reset, true)
	})

	t.Run("Limits the query window", func(t *testing.T) {
		got, err := adapter.QueryRange(start.Add(500*time.Millisecond), start.Add(2500*time.Millisecond))
		assertError(t, err, nil)
		assertInt(t, len(got), 2)
	})

	t.Run("Keeps updates that share a millisecond", func(t *testing.T) {
		at := start.Add(time.Minute).UnixMilli()
		batch := []*Lt.Update{{Time: at, Value: &v}, {Time: at, Value: &v}}
		assertError(t, adapter.WriteBatch(batch), nil)

		got, err := adapter.QueryRange(time.UnixMilli(at-1), time.UnixMilli(at+1))
		assertError(t, err, nil)
		assertInt(t, len(got), 2)
	})
}

func TestBadgerOutput_Close(t *testing.T) {
	t.Run("Flushes a partial batch", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "badger_db")
		adapter, err := Lp.NewBadgerOutput(path, 100)
		assertError(t, err, nil)

		now := time.Now()
		assertError(t, adapter.WriteUpdate(&Lt.Update{Time: now.UnixMilli(), Label: true}), nil)
		assertError(t, adapter.Close(), nil)

		reopened, err := Lp.NewBadgerOutput(path, 100)
		assertError(t, err, nil)
		defer reopened.Close()

		got, err := reopened.QueryRange(now.Add(-time.Second), now.Add(time.Second))
		assertError(t, err, nil)
		assertInt(t, len(got), 1)
	})
}

func TestUpdateKey(t *testing.T) {
	t.Run("Sorts by time", func(t *testing.T) {
		early := Lp.UpdateKey(&Lt.Update{Time: 1000, Reset: true}, 9)
		late := Lp.UpdateKey(&Lt.Update{Time: 2000}, 1)
		if bytes.Compare(early, late) >= 0 {
			t.Error("earlier updates must sort first")
		}
	})

	t.Run("Carries the kind flags", func(t *testing.T) {
		key := Lp.UpdateKey(&Lt.Update{Time: 1, Label: true, Pred: true}, 1)
		assertInt(t, len(key), 13)
		assertInt(t, int(key[8]), 6)
	})
}

func TestUpdateEncode(t *testing.T) {
	v := -1.5
	buf, err := Lp.UpdateEncode(&Lt.Update{Time: 42, Value: &v, Pred: true})
	assertError(t, err, nil)

	got, err := Lp.UpdateDecode(buf)
	assertError(t, err, nil)
	assertInt64(t, got.Time, 42)
	assertFloat(t, *got.Value, -1.5)
	assertBool(t, got.Pred, true)

	_, err = Lp.UpdateDecode([]byte("nope"))
	assertGotError(t, err)
}

// Helpers //

func makeTestBadgerOutput(t *testing.T) (*Lp.BadgerOutput, func()) {
	t.Helper()
	adapter, err := Lp.NewBadgerOutput(filepath.Join(t.TempDir(), "badger_db"), 5)
	if err != nil {
		t.Fatalf("could not open badger: %v", err)
	}
	return adapter, func() {
		if err := adapter.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	}
}
