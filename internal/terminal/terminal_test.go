package terminal

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDriver struct {
	events     []string
	releaseErr error
	restoreErr error
}

func (d *fakeDriver) ReleaseTerminal() error {
	d.events = append(d.events, "release")
	return d.releaseErr
}

func (d *fakeDriver) RestoreTerminal() error {
	d.events = append(d.events, "restore")
	return d.restoreErr
}

func (d *fakeDriver) Redraw() {
	d.events = append(d.events, "redraw")
}

func TestSuspend_RestoresAfterAction(t *testing.T) {
	d := &fakeDriver{}
	level := new(slog.LevelVar)
	level.Set(slog.LevelDebug)
	s := NewSuspender(d, level, OSStdio())

	var during slog.Level
	err := s.Suspend(func(Stdio) error {
		d.events = append(d.events, "action")
		during = level.Level()
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"release", "action", "restore", "redraw"}, d.events)
	assert.Equal(t, LevelMuted, during)
	assert.Equal(t, slog.LevelDebug, level.Level())
}

func TestSuspend_ActionErrorStillRestores(t *testing.T) {
	d := &fakeDriver{}
	s := NewSuspender(d, nil, OSStdio())
	boom := errors.New("editor exited with status 1")

	err := s.Suspend(func(Stdio) error { return boom })

	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"release", "restore", "redraw"}, d.events)
}

func TestSuspend_PanicStillRestores(t *testing.T) {
	d := &fakeDriver{}
	level := new(slog.LevelVar)
	s := NewSuspender(d, level, OSStdio())

	assert.PanicsWithValue(t, "viewer crashed", func() {
		_ = s.Suspend(func(Stdio) error { panic("viewer crashed") })
	})
	assert.Equal(t, []string{"release", "restore", "redraw"}, d.events)
	assert.Equal(t, slog.LevelInfo, level.Level())
}

func TestSuspend_ReleaseFailureSkipsAction(t *testing.T) {
	d := &fakeDriver{releaseErr: errors.New("not a tty")}
	s := NewSuspender(d, nil, OSStdio())

	ran := false
	err := s.Suspend(func(Stdio) error {
		ran = true
		return nil
	})

	require.Error(t, err)
	assert.False(t, ran)
	assert.Equal(t, []string{"release"}, d.events)
}

func TestSuspend_RestoreFailureIsReported(t *testing.T) {
	d := &fakeDriver{restoreErr: errors.New("tcsetattr failed")}
	s := NewSuspender(d, nil, OSStdio())

	err := s.Suspend(func(Stdio) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to restore terminal")
}

func TestSuspend_PassesStdio(t *testing.T) {
	var out bytes.Buffer
	s := NewSuspender(&fakeDriver{}, nil, Stdio{In: strings.NewReader(""), Out: &out, Err: &out})

	require.NoError(t, s.Suspend(func(io Stdio) error {
		_, err := io.Out.Write([]byte("hello"))
		return err
	}))
	assert.Equal(t, "hello", out.String())
}

func TestLauncher(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX utilities")
	}

	path := filepath.Join(t.TempDir(), "query.1.sql")
	require.NoError(t, os.WriteFile(path, []byte("SELECT 1 FROM DUAL\n"), 0o600))

	tests := []struct {
		name    string
		command string
		wantErr bool
		wantOut string
	}{
		{"success", "cat", false, "SELECT 1 FROM DUAL\n"},
		{"with args", "head -n 1", false, "SELECT 1 FROM DUAL\n"},
		{"non-zero exit", "false", true, ""},
		{"blank", "   ", true, ""},
		{"missing binary", "definitely-not-a-real-editor-xyz", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDriver{}
			var out bytes.Buffer
			s := NewSuspender(d, nil, Stdio{In: strings.NewReader(""), Out: &out, Err: &out})
			l := NewLauncher(s, func() string { return tt.command }, func() string { return tt.command }, nil)

			err := l.Edit(context.Background(), path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOut, out.String())
			assert.Equal(t, []string{"release", "restore", "redraw"}, d.events)

			out.Reset()
			require.NoError(t, l.View(context.Background(), path))
			assert.Equal(t, tt.wantOut, out.String())
		})
	}
}
