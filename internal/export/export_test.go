package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"RedisVSCode-Webview/internal/connection"
	"RedisVSCode-Webview/internal/keys"
)

func sampleState() keys.State {
	ttl := int64(-1)
	return keys.State{Keys: []connection.KeyInfo{
		{Name: connection.RedisString("user:1"), Type: "hash", TTL: &ttl},
		{Name: connection.RedisString{'b', 0xff}, Type: "string"},
	}}
}

func TestWrite_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.xlsx")
	require.NoError(t, Write(path, FormatXLSX, sampleState()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, columns, rows[0])
	require.Equal(t, []string{"user:1", "hash", "-1"}, rows[1])
	require.Equal(t, `b\xff`, rows[2][0])
}

func TestWrite_CSVAndMarkdown(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "keys.csv")
	require.NoError(t, Write(csvPath, FormatCSV, sampleState()))
	b, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(string(b), "\ufeff")), "\n")
	require.Equal(t, "name,type,ttl,size,length", lines[0])
	require.Equal(t, "user:1,hash,-1,,", lines[1])

	mdPath := filepath.Join(dir, "keys.md")
	require.NoError(t, Write(mdPath, FormatMD, sampleState()))
	b, err = os.ReadFile(mdPath)
	require.NoError(t, err)
	require.Contains(t, string(b), "| user:1 | hash | -1 |  |  |")
}

func TestWrite_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.json")
	require.NoError(t, Write(path, FormatJSON, sampleState()))
	b, err := os.ReadFile(path)
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(b, &rows))
	require.Len(t, rows, 2)
	require.Equal(t, "user:1", rows[0]["name"])
	require.NotContains(t, rows[1], "ttl")
}

func TestFormatFromPath(t *testing.T) {
	f, err := FormatFromPath("/tmp/Keys.XLSX")
	require.NoError(t, err)
	require.Equal(t, FormatXLSX, f)

	_, err = FormatFromPath("keys.txt")
	require.Error(t, err)
}
