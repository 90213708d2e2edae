package host

import (
	"bytes"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
)

func TestConsole_PrintsNotificationsAndStatus(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.ShowError("Already running.")
	c.ShowInfo("Not running")
	st := c.NewStatus()
	st.Set("Compiling...", ToneNormal)
	st.Set("Compiling...", ToneNormal)
	st.Set("2 errors", ToneError)
	st.Hide()
	st.Set("ignored", ToneNormal)

	out := buf.String()
	require.Contains(t, out, "Already running.\n")
	require.Contains(t, out, "Not running\n")
	require.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("Compiling...")))
	require.Contains(t, out, "● 2 errors")
	require.NotContains(t, out, "ignored")
}

func TestRecorder_TracksProgressUntilDone(t *testing.T) {
	var changes atomic.Int32
	r := NewRecorder(func() { changes.Add(1) })
	done := make(chan struct{})

	r.WithProgress("Starting dev server...", done)
	require.Equal(t, []string{"Starting dev server..."}, r.Progress())

	close(done)
	require.Eventually(t, func() bool { return len(r.Progress()) == 0 }, time.Second, 5*time.Millisecond)
	require.EqualValues(t, 2, changes.Load())
}

func TestRecorder_StatusFollowsLatestVisibleItem(t *testing.T) {
	r := NewRecorder(nil)
	first := r.NewStatus()
	first.Set("old", ToneNormal)
	second := r.NewStatus()
	second.Set("1 errors", ToneError)

	text, tone, ok := r.Status()
	require.True(t, ok)
	require.Equal(t, "1 errors", text)
	require.Equal(t, ToneError, tone)

	second.Hide()
	text, _, _ = r.Status()
	require.Equal(t, "old", text)

	first.Hide()
	_, _, ok = r.Status()
	require.False(t, ok)
}
