package connection

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Encoding selects how key names travel in API responses
type Encoding string

const (
	EncodingUTF8   Encoding = "utf8"
	EncodingASCII  Encoding = "ascii"
	EncodingBuffer Encoding = "buffer"
)

// ParseEncoding falls back to buffer for unknown values
func ParseEncoding(s string) Encoding {
	switch Encoding(strings.ToLower(strings.TrimSpace(s))) {
	case EncodingUTF8:
		return EncodingUTF8
	case EncodingASCII:
		return EncodingASCII
	default:
		return EncodingBuffer
	}
}

// RedisString is a binary-safe Redis name or value.
//
// On the wire it is either a plain JSON string or a Node-style buffer object
// {"type":"Buffer","data":[...]}. Both forms decode; encoding always emits
// the buffer form so non UTF-8 names survive a round trip.
type RedisString []byte

type bufferObject struct {
	Type string `json:"type"`
	Data []int  `json:"data"`
}

func (s RedisString) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	return json.Marshal(s.bufferObject())
}

func (s *RedisString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}

	switch data[0] {
	case '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = RedisString(str)
		return nil
	case '{':
		var obj bufferObject
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		if obj.Type != "Buffer" {
			return fmt.Errorf("不支持的 RedisString 类型: %q", obj.Type)
		}
		out := make([]byte, len(obj.Data))
		for i, b := range obj.Data {
			if b < 0 || b > 255 {
				return fmt.Errorf("RedisString 字节越界: data[%d]=%d", i, b)
			}
			out[i] = byte(b)
		}
		*s = out
		return nil
	default:
		return fmt.Errorf("无法解析 RedisString: %s", string(data))
	}
}

func (s RedisString) bufferObject() bufferObject {
	data := make([]int, len(s))
	for i, b := range s {
		data[i] = int(b)
	}
	return bufferObject{Type: "Buffer", Data: data}
}

// Encode renders the name for a response in the requested encoding
func (s RedisString) Encode(enc Encoding) any {
	switch enc {
	case EncodingUTF8:
		return strings.ToValidUTF8(string(s), string(utf8.RuneError))
	case EncodingASCII:
		return s.ASCII()
	default:
		return s.bufferObject()
	}
}

// ASCII escapes every non printable or non ASCII byte as \xHH
func (s RedisString) ASCII() string {
	var b strings.Builder
	for _, c := range []byte(s) {
		switch {
		case c == '\\':
			b.WriteString(`\\`)
		case c >= 0x20 && c < 0x7f:
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, `\x%02x`, c)
		}
	}
	return b.String()
}

// String is the display form: UTF-8 text when valid, escaped ASCII otherwise
func (s RedisString) String() string {
	if utf8.Valid(s) {
		return string(s)
	}
	return s.ASCII()
}

func (s RedisString) Equal(other RedisString) bool {
	return bytes.Equal(s, other)
}

// Cursor is an opaque scan continuation token. The API answers with a
// number for standalone databases and a string for clusters.
type Cursor string

// TerminalCursor both starts a scan and signals that it is complete
const TerminalCursor Cursor = "0"

func (c Cursor) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseUint(string(c), 10, 64); err == nil {
		return []byte(c), nil
	}
	return json.Marshal(string(c))
}

func (c *Cursor) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = TerminalCursor
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*c = Cursor(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("无法解析游标: %w", err)
	}
	*c = Cursor(n.String())
	return nil
}
