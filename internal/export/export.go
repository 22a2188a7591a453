package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/xuri/excelize/v2"

	"RedisVSCode-Webview/internal/connection"
	"RedisVSCode-Webview/internal/keys"
)

const sheetName = "Keys"

var columns = []string{"name", "type", "ttl", "size", "length"}

// Format is an export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatMD   Format = "md"
	FormatXLSX Format = "xlsx"
)

// FormatFromPath picks the format from the file extension
func FormatFromPath(path string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch Format(ext) {
	case FormatCSV, FormatJSON, FormatMD, FormatXLSX:
		return Format(ext), nil
	}
	return "", fmt.Errorf("不支持的导出格式：%q", ext)
}

// Write renders the listing of st to path, atomically replacing the file
func Write(path string, format Format, st keys.State) error {
	var (
		buf bytes.Buffer
		err error
	)
	switch format {
	case FormatCSV:
		err = writeCSV(&buf, st.Keys)
	case FormatJSON:
		err = writeJSON(&buf, st.Keys)
	case FormatMD:
		writeMarkdown(&buf, st.Keys)
	case FormatXLSX:
		err = writeXLSX(&buf, st.Keys)
	default:
		err = fmt.Errorf("不支持的导出格式：%q", format)
	}
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("写入导出文件失败：%w", err)
	}
	return nil
}

func record(k connection.KeyInfo) []string {
	return []string{k.Name.String(), k.Type, optional(k.TTL), optional(k.Size), optional(k.Length)}
}

func optional(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func writeCSV(buf *bytes.Buffer, list []connection.KeyInfo) error {
	buf.Write([]byte{0xEF, 0xBB, 0xBF})
	w := csv.NewWriter(buf)
	if err := w.Write(columns); err != nil {
		return err
	}
	for _, k := range list {
		if err := w.Write(record(k)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

type jsonRow struct {
	Name   string `json:"name"`
	Type   string `json:"type,omitempty"`
	TTL    *int64 `json:"ttl,omitempty"`
	Size   *int64 `json:"size,omitempty"`
	Length *int64 `json:"length,omitempty"`
}

func writeJSON(buf *bytes.Buffer, list []connection.KeyInfo) error {
	rows := make([]jsonRow, len(list))
	for i, k := range list {
		rows[i] = jsonRow{Name: k.Name.String(), Type: k.Type, TTL: k.TTL, Size: k.Size, Length: k.Length}
	}
	enc := json.NewEncoder(buf)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func writeMarkdown(buf *bytes.Buffer, list []connection.KeyInfo) {
	fmt.Fprintf(buf, "| %s |\n", strings.Join(columns, " | "))
	seps := make([]string, len(columns))
	for i := range seps {
		seps[i] = "---"
	}
	fmt.Fprintf(buf, "| %s |\n", strings.Join(seps, " | "))
	for _, k := range list {
		rec := record(k)
		for i, s := range rec {
			s = strings.ReplaceAll(s, "|", "\\|")
			rec[i] = strings.ReplaceAll(s, "\n", "<br>")
		}
		fmt.Fprintf(buf, "| %s |\n", strings.Join(rec, " | "))
	}
}

func writeXLSX(buf *bytes.Buffer, list []connection.KeyInfo) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return err
	}

	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}
	for i, k := range list {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{k.Name.String(), k.Type, cellValue(k.TTL), cellValue(k.Size), cellValue(k.Length)}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	_, err = f.WriteTo(buf)
	return err
}

func cellValue(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
