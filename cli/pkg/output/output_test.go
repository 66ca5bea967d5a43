package output

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureStdout(f func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	f()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func TestSuccess(t *testing.T) {
	out := captureStdout(func() {
		Success("Sent %d payments", 10)
	})

	assert.Contains(t, out, "✓")
	assert.Contains(t, out, "Sent 10 payments")
}

func TestTableRender(t *testing.T) {
	out := captureStdout(func() {
		table := NewTable([]string{"ID", "Status"})
		table.AddRow([]string{"cycle-1", "locked"})
		table.AddRow([]string{"cycle-2", "open"})
		table.Render()
	})

	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "Status")
	assert.Contains(t, out, "cycle-1")
	assert.Contains(t, out, "locked")
	assert.Contains(t, out, "---")
}

func TestJSON(t *testing.T) {
	out := captureStdout(func() {
		assert.NoError(t, JSON(map[string]int{"amount_minor": 150000}))
	})

	assert.Contains(t, out, `"amount_minor": 150000`)
}

func TestYAML(t *testing.T) {
	out := captureStdout(func() {
		assert.NoError(t, YAML(map[string]bool{"is_balanced": true}))
	})

	assert.Contains(t, out, "is_balanced: true")
}

func TestRenderFormats(t *testing.T) {
	v := map[string]string{"id": "snap-1"}

	jsonOut := captureStdout(func() {
		assert.NoError(t, Render("json", v, nil))
	})
	assert.Contains(t, jsonOut, `"id": "snap-1"`)

	// nil table builder falls back to JSON rather than panicking.
	tableOut := captureStdout(func() {
		assert.NoError(t, Render("table", v, nil))
	})
	assert.Contains(t, tableOut, "snap-1")
}
