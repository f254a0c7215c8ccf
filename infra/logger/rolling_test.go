package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
}

func TestAppendsInOrder(t *testing.T) {
	dir := t.TempDir()
	r, err := New(Options{Dir: dir})
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		_, err := fmt.Fprintf(r, "line %03d\n", i)
		require.NoError(t, err)
	}
	require.NoError(t, r.Close())

	name := time.Now().Format("2006_01_02") + ".log"
	lines := readLines(t, filepath.Join(dir, name))
	require.Len(t, lines, 100)
	assert.Equal(t, "line 000", lines[0])
	assert.Equal(t, "line 099", lines[99])
}

func TestRollsAfterMaxLines(t *testing.T) {
	dir := t.TempDir()
	r, err := New(Options{Dir: dir, MaxLines: 10})
	require.NoError(t, err)

	for i := 0; i < 25; i++ {
		fmt.Fprintf(r, "line %d\n", i)
	}
	require.NoError(t, r.Close())

	day := time.Now().Format("2006_01_02")
	assert.Len(t, readLines(t, filepath.Join(dir, day+".log")), 10)
	assert.Len(t, readLines(t, filepath.Join(dir, day+"-1.log")), 10)
	assert.Len(t, readLines(t, filepath.Join(dir, day+"-2.log")), 5)
}

func TestRollsOnDayChange(t *testing.T) {
	dir := t.TempDir()
	r, err := New(Options{Dir: dir})
	require.NoError(t, err)

	day := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)
	r.now = func() time.Time { return day }
	fmt.Fprintln(r, "before midnight")
	// Wait until the drain goroutine has rolled to the faked day before
	// flipping it again.
	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "2024_03_01.log"))
		return err == nil
	}, time.Second, time.Millisecond)

	day = day.Add(2 * time.Minute)
	fmt.Fprintln(r, "after midnight")
	require.NoError(t, r.Close())

	assert.Equal(t, []string{"before midnight"}, readLines(t, filepath.Join(dir, "2024_03_01.log")))
	assert.Equal(t, []string{"after midnight"}, readLines(t, filepath.Join(dir, "2024_03_02.log")))
}

// A failed rotation must keep appending to the old file, not a closed
// descriptor. The target name is occupied by a directory to make the open
// fail deterministically.
func TestFailedRollKeepsOldFile(t *testing.T) {
	dir := t.TempDir()
	r, err := New(Options{Dir: dir})
	require.NoError(t, err)

	day := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)
	r.now = func() time.Time { return day }
	fmt.Fprintln(r, "before midnight")
	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "2024_03_01.log"))
		return err == nil
	}, time.Second, time.Millisecond)

	require.NoError(t, os.Mkdir(filepath.Join(dir, "2024_03_02.log"), 0o755))
	day = day.Add(2 * time.Minute)
	fmt.Fprintln(r, "after midnight")
	fmt.Fprintln(r, "still here")
	require.NoError(t, r.Close())

	lines := readLines(t, filepath.Join(dir, "2024_03_01.log"))
	assert.Equal(t, []string{"before midnight", "after midnight", "still here"}, lines)
}

func TestWriteAfterCloseFails(t *testing.T) {
	dir := t.TempDir()
	r, err := New(Options{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, r.Close())
	_, err = r.Write([]byte("late\n"))
	assert.Error(t, err)
}
