package formatter

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/philipp01105/lumber/core"
)

// JSONFormatter formats messages as one JSON object per line
type JSONFormatter struct {
	Config
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(cfg Config) *JSONFormatter {
	if cfg.TimestampFormat == "" {
		cfg.TimestampFormat = time.RFC3339Nano
	}
	return &JSONFormatter{Config: cfg}
}

// Format formats a message as JSON
func (f *JSONFormatter) Format(msg *core.Message) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	f.FormatMessage(msg, buf)

	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}

// FormatTo formats a message as JSON and writes it directly to the writer
func (f *JSONFormatter) FormatTo(msg *core.Message, w io.Writer) error {
	buf := getBuffer()

	f.FormatMessage(msg, buf)

	_, err := w.Write(buf.Bytes())
	putBuffer(buf)
	return err
}

// FormatMessage builds JSON manually into the buffer without allocations
func (f *JSONFormatter) FormatMessage(msg *core.Message, buf *bytes.Buffer) {
	buf.WriteString(`{"time":"`)
	buf.Write(msg.Timestamp().AppendFormat(buf.AvailableBuffer(), f.TimestampFormat))
	buf.WriteByte('"')

	buf.WriteString(`,"level":"`)
	buf.WriteString(msg.Flag().Tag())
	buf.WriteByte('"')

	buf.WriteString(`,"flag":`)
	buf.Write(strconv.AppendUint(buf.AvailableBuffer(), uint64(msg.Flag()), 10))

	if f.IncludeContext || msg.Context() != 0 {
		buf.WriteString(`,"context":`)
		buf.Write(strconv.AppendInt(buf.AvailableBuffer(), int64(msg.Context()), 10))
	}

	buf.WriteString(`,"message":"`)
	appendJSONString(buf, msg.Text())
	buf.WriteByte('"')

	if f.IncludeCaller && msg.File() != "" {
		buf.WriteString(`,"caller":{"file":"`)
		appendJSONString(buf, msg.ShortFile())
		buf.WriteString(`","line":`)
		buf.Write(strconv.AppendInt(buf.AvailableBuffer(), int64(msg.Line()), 10))
		if fn := msg.Function(); fn != "" {
			buf.WriteString(`,"function":"`)
			appendJSONString(buf, fn)
			buf.WriteByte('"')
		}
		buf.WriteByte('}')
	}

	if tag := msg.Tag(); tag != nil {
		buf.WriteString(`,"tag":"`)
		appendJSONString(buf, fmt.Sprint(tag))
		buf.WriteByte('"')
	}

	buf.WriteString("}\n")
}

// appendJSONString writes s escaped for use inside a JSON string literal.
// Invalid UTF-8 is replaced with U+FFFD; U+2028 and U+2029 are escaped
// so the output stays valid JavaScript.
func appendJSONString(buf *bytes.Buffer, s string) {
	last := 0
	for i := 0; i < len(s); {
		b := s[i]
		if b < utf8.RuneSelf {
			if b >= 0x20 && b != '"' && b != '\\' {
				i++
				continue
			}
			buf.WriteString(s[last:i])
			switch b {
			case '"', '\\':
				buf.WriteByte('\\')
				buf.WriteByte(b)
			case '\n':
				buf.WriteString(`\n`)
			case '\r':
				buf.WriteString(`\r`)
			case '\t':
				buf.WriteString(`\t`)
			default:
				writeUnicodeEscape(buf, rune(b))
			}
			i++
			last = i
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			buf.WriteString(s[last:i])
			buf.WriteString("\ufffd")
		case r == '\u2028' || r == '\u2029':
			buf.WriteString(s[last:i])
			writeUnicodeEscape(buf, r)
		default:
			i += size
			continue
		}
		i += size
		last = i
	}
	buf.WriteString(s[last:])
}

const hexDigits = "0123456789abcdef"

func writeUnicodeEscape(buf *bytes.Buffer, r rune) {
	buf.WriteString(`\u`)
	for shift := 12; shift >= 0; shift -= 4 {
		buf.WriteByte(hexDigits[(r>>uint(shift))&0xf])
	}
}
