package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderLogHandleMessageAppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "orders.log")
	l := &OrderLog{Path: path}

	for i, name := range []string{"Standard", "Premium"} {
		body, err := json.Marshal(OrderCompletedEvent{
			OrderID: int64(i + 1), CustomerID: 7, CustomerEmail: "alice@example.com",
			PackageID: int64(i + 2), PackageName: name, AllowedMaps: 5, Total: 9.99,
			Source: "order", CompletedAt: "2026-01-02T03:04:05Z",
		})
		require.NoError(t, err)
		require.NoError(t, l.HandleMessage(body))
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "order_id=1")
	assert.Contains(t, lines[0], `package="Standard"`)
	assert.Contains(t, lines[1], `package="Premium"`)
	assert.Contains(t, lines[1], "total=9.99")
}

func TestOrderLogHandleMessageRejectsGarbage(t *testing.T) {
	l := &OrderLog{Path: filepath.Join(t.TempDir(), "orders.log")}
	assert.Error(t, l.HandleMessage([]byte("{not json")))
}
