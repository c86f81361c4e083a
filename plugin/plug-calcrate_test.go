package plugin_test

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	Lp "github.com/maroda/livedemo/plugin"
)

func TestCalcRate(t *testing.T) {
	currtime := time.Now()
	timeago := currtime.Add(-5 * time.Second)

	t.Run("Returns rate calculation", func(t *testing.T) {
		// The rate of 400 -> 420 over 5 seconds is 4 (20/5)
		got := Lp.CalcRate(420, 400, currtime, timeago)
		assertFloat(t, got, 4)
	})

	t.Run("Handles counter reset to 0", func(t *testing.T) {
		got := Lp.CalcRate(0, 400, currtime, timeago)
		assertFloat(t, got, 0)
	})

	t.Run("Counts from zero after a counter reset", func(t *testing.T) {
		got := Lp.CalcRate(10, 400, currtime, timeago)
		assertFloat(t, got, 2)
	})

	t.Run("Returns zero when time does not advance", func(t *testing.T) {
		got := Lp.CalcRate(420, 400, currtime, currtime)
		assertFloat(t, got, 0)
	})
}

func TestCalcRatePlugin(t *testing.T) {
	now := time.Now()

	t.Run("Type returns the correct value", func(t *testing.T) {
		plugin := Lp.CalcRatePlugin{}
		assertStringContains(t, plugin.Type(), "calc_rate")
		assertBool(t, plugin.WholeBody(), false)
	})

	t.Run("Starts new rate measurement series at zero", func(t *testing.T) {
		plugin := Lp.CalcRatePlugin{}
		rate, err := plugin.Transform("400", now)
		assertError(t, err, nil)
		assertFloat(t, rate, 0)
	})

	t.Run("Returns transformation for sequential readings", func(t *testing.T) {
		plugin := Lp.CalcRatePlugin{}
		plugin.Transform("400", now.Add(-5*time.Second))

		rate, err := plugin.Transform("420", now)
		assertError(t, err, nil)
		assertFloat(t, rate, 4)
		assertFloat(t, plugin.PrevVal, 420)
	})

	t.Run("Rejects non numeric readings", func(t *testing.T) {
		plugin := Lp.CalcRatePlugin{}
		_, err := plugin.Transform("lots", now)
		assertGotError(t, err)
	})
}

func TestKVPlugin(t *testing.T) {
	plugin := Lp.KVPlugin{}

	t.Run("Passes the value through", func(t *testing.T) {
		v, err := plugin.Transform(" 512.5\n", time.Now())
		assertError(t, err, nil)
		assertFloat(t, v, 512.5)
	})

	t.Run("Rejects non numeric readings", func(t *testing.T) {
		_, err := plugin.Transform("high", time.Now())
		assertGotError(t, err)
	})
}

/// Helpers

func assertError(t testing.TB, got, want error) {
	t.Helper()
	if !errors.Is(got, want) {
		t.Errorf("got error %q want %q", got, want)
	}
}

func assertGotError(t testing.TB, got error) {
	t.Helper()
	if got == nil {
		t.Errorf("Expected an error but got %q", got)
	}
}

func assertInt(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("did not get correct value, got %d, want %d", got, want)
	}
}

func assertInt64(t *testing.T, got, want int64) {
	t.Helper()
	if got != want {
		t.Errorf("did not get correct value, got %d, want %d", got, want)
	}
}

func assertFloat(t testing.TB, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("did not get correct value, got %f, want %f", got, want)
	}
}

func assertBool(t testing.TB, got, want bool) {
	t.Helper()
	if got != want {
		t.Errorf("did not get correct value, got %t, want %t", got, want)
	}
}

func assertStringContains(t *testing.T, full, want string) {
	t.Helper()
	if !strings.Contains(full, want) {
		t.Errorf("Did not find %q, expected string contains %q", want, full)
	}
}
