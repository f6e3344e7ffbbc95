package toast_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/storefront/toast"
)

func TestBuilders(t *testing.T) {
	assert.Equal(t, toast.Message{Level: toast.LevelSuccess, Title: "Success", Text: "Cart cleared"}, toast.Success("Cart cleared"))
	assert.Equal(t, toast.Message{Level: toast.LevelError, Title: "Error", Text: "Product not found"}, toast.Error("Product not found"))
	assert.Equal(t, toast.LevelWarning, toast.Warning("w").Level)
	assert.Equal(t, toast.LevelInfo, toast.Info("i").Level)
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	sink := toast.NewWriter(&buf)
	sink.Show(toast.Success("Added Cotton T-Shirt to cart"))
	sink.Show(toast.Error("Invalid email or password"))
	assert.Equal(t, "[success] Added Cotton T-Shirt to cart\n[error] Invalid email or password\n", buf.String())
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	sink := toast.NewLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	sink.Show(toast.Error("Cart could not be saved"))
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "level=error")
	assert.Contains(t, buf.String(), `message="Cart could not be saved"`)

	buf.Reset()
	quiet := toast.NewLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	quiet.Show(toast.Success("Saved"))
	assert.Empty(t, buf.String())
}

func TestMultiAndRecorder(t *testing.T) {
	a, b := &toast.Recorder{}, &toast.Recorder{}
	sink := toast.Multi(a, b, toast.Discard)
	sink.Show(toast.Info("one"))
	sink.Show(toast.Info("two"))

	require.Len(t, a.Messages(), 2)
	assert.Equal(t, a.Messages(), b.Messages())
	last, ok := a.Last()
	require.True(t, ok)
	assert.Equal(t, "two", last.Text)

	a.Reset()
	_, ok = a.Last()
	assert.False(t, ok)
}

func TestFunc(t *testing.T) {
	var got []string
	sink := toast.Func(func(m toast.Message) { got = append(got, m.Text) })
	sink.Show(toast.Success("ok"))
	assert.Equal(t, []string{"ok"}, got)
}
