package unittest

import (
	"testing"
	"time"

	"github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/require"
)

// RequireReturnsBefore fails the test if f is still running after duration.
func RequireReturnsBefore(t testing.TB, f func(), duration time.Duration, message string) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		f()
	}()
	RequireCloseBefore(t, done, duration, message)
}

// RequireCloseBefore fails the test unless c is closed within duration.
func RequireCloseBefore(t testing.TB, c <-chan struct{}, duration time.Duration, message string) {
	select {
	case _, ok := <-c:
		require.False(t, ok, "channel received a value instead of closing: "+message)
	case <-time.After(duration):
		require.Fail(t, "timed out: "+message)
	}
}

// RequireReceives waits for the next value on c.
func RequireReceives[T any](t testing.TB, c <-chan T, duration time.Duration, message string) T {
	select {
	case v, ok := <-c:
		require.True(t, ok, "channel closed: "+message)
		return v
	case <-time.After(duration):
		require.Fail(t, "nothing received in time: "+message)
	}
	var zero T
	return zero
}

// RequireNeverReceives fails the test if a value arrives on c within
// duration. A closed channel is fine.
func RequireNeverReceives[T any](t testing.TB, c <-chan T, duration time.Duration, message string) {
	select {
	case v, ok := <-c:
		if ok {
			require.Failf(t, "unexpected value received", "%s: %v", message, v)
		}
	case <-time.After(duration):
	}
}

// RunWithTempDir runs f with a directory removed when the test ends.
func RunWithTempDir(t testing.TB, f func(dir string)) {
	f(t.TempDir())
}

// RunWithBadgerDB runs f with an empty badger database that is closed
// afterwards.
func RunWithBadgerDB(t testing.TB, f func(*badger.DB)) {
	opts := badger.DefaultOptions(t.TempDir()).
		WithKeepL0InMemory(true).
		WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, db.Close())
	}()
	f(db)
}
