package ui

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer guards a bytes.Buffer against the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestColorConstants(t *testing.T) {
	colors := []lipgloss.Color{
		ColorSuccess, ColorError, ColorWarning, ColorInfo,
		ColorPrimary, ColorSecondary, ColorMuted,
	}
	colors = append(colors, GradientColors...)

	for _, color := range colors {
		s := string(color)
		require.Len(t, s, 7, "color should be #RRGGBB: %s", s)
		assert.Equal(t, byte('#'), s[0])
	}
}

func TestSemanticColorsAreUnique(t *testing.T) {
	seen := make(map[lipgloss.Color]bool)
	for _, c := range []lipgloss.Color{ColorSuccess, ColorError, ColorWarning, ColorInfo} {
		assert.False(t, seen[c], "duplicate semantic color %s", c)
		seen[c] = true
	}
}

func TestSymbolsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, s := range []string{SymbolSuccess, SymbolFail, SymbolPending, SymbolProgress, SymbolComplete, SymbolSkipped, SymbolWarning} {
		assert.False(t, seen[s], "duplicate symbol %s", s)
		seen[s] = true
	}
}

func TestDisableColors(t *testing.T) {
	prev := lipgloss.ColorProfile()
	defer lipgloss.SetColorProfile(prev)

	lipgloss.SetColorProfile(termenv.TrueColor)
	assert.NotEqual(t, "ok", SuccessStyle().Render("ok"))

	DisableColors()
	assert.Equal(t, "ok", SuccessStyle().Render("ok"))
	assert.Equal(t, "ok", ErrorStyle().Render("ok"))
}

func TestSpinner_NotAnimated(t *testing.T) {
	tests := []struct {
		name   string
		finish func(*Spinner)
		state  SpinnerState
		symbol string
	}{
		{"success", (*Spinner).Success, SpinnerSuccess, SymbolComplete},
		{"fail", (*Spinner).Fail, SpinnerFailed, SymbolFail},
		{"skip", (*Spinner).Skip, SpinnerSkipped, SymbolSkipped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			s := NewSpinner("Collecting")
			s.SetOutput(&buf, false)

			s.Start()
			assert.Equal(t, SpinnerInProgress, s.State())
			tt.finish(s)

			assert.Equal(t, tt.state, s.State())
			out := buf.String()
			assert.Contains(t, out, tt.symbol+" Collecting")
			assert.NotContains(t, out, "\r")
			assert.Equal(t, 1, strings.Count(out, "\n"))
		})
	}
}

func TestSpinner_Animated(t *testing.T) {
	buf := &syncBuffer{}
	s := NewSpinner("Collecting")
	s.SetOutput(buf, true)

	s.Start()
	s.Start() // no-op while running
	time.Sleep(3 * spinnerInterval)
	s.SetLabel("Collected")
	s.Success()

	out := buf.String()
	assert.Contains(t, out, "Collecting...")
	assert.Contains(t, out, "\r")
	assert.Regexp(t, `\d+\.\d+s`, out)
	assert.Contains(t, out, "Collected")
}

func TestSpinner_StopWithoutStart(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner("Idle")
	s.SetOutput(&buf, true)

	assert.NotPanics(t, s.Stop)
	s.Skip()
	assert.Contains(t, buf.String(), "0.00s")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0.00s"},
		{50 * time.Millisecond, "0.05s"},
		{300 * time.Millisecond, "0.3s"},
		{1234 * time.Millisecond, "1.2s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.d))
	}
}
