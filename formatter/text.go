package formatter

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/philipp01105/lumber/core"
)

// TextFormatter formats messages as human-readable text
type TextFormatter struct {
	Config
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(cfg Config) *TextFormatter {
	if cfg.TimestampFormat == "" {
		cfg.TimestampFormat = time.RFC3339
	}
	return &TextFormatter{Config: cfg}
}

// Format formats a message as text
func (f *TextFormatter) Format(msg *core.Message) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	f.FormatMessage(msg, buf)

	// Copy buffer content to return
	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}

// FormatTo formats a message and writes it directly to the writer
func (f *TextFormatter) FormatTo(msg *core.Message, w io.Writer) error {
	buf := getBuffer()

	f.FormatMessage(msg, buf)

	_, err := w.Write(buf.Bytes())
	putBuffer(buf)
	return err
}

// pre-formatted flag strings, indexed by bit position
var flagBrackets = [...]string{
	" [ERROR] ",
	" [WARNING] ",
	" [INFO] ",
	" [DEBUG] ",
	" [VERBOSE] ",
}

func flagBracket(flag core.Flag) string {
	switch flag {
	case core.FlagError:
		return flagBrackets[0]
	case core.FlagWarning:
		return flagBrackets[1]
	case core.FlagInfo:
		return flagBrackets[2]
	case core.FlagDebug:
		return flagBrackets[3]
	case core.FlagVerbose:
		return flagBrackets[4]
	default:
		return " [" + flag.Tag() + "] "
	}
}

// FormatMessage writes the formatted message into the given buffer
func (f *TextFormatter) FormatMessage(msg *core.Message, buf *bytes.Buffer) {
	buf.Write(msg.Timestamp().AppendFormat(buf.AvailableBuffer(), f.TimestampFormat))
	buf.WriteString(flagBracket(msg.Flag()))

	if f.IncludeCaller && msg.File() != "" {
		buf.WriteByte('[')
		buf.WriteString(msg.ShortFile())
		buf.WriteByte(':')
		buf.Write(strconv.AppendInt(buf.AvailableBuffer(), int64(msg.Line()), 10))
		if fn := msg.Function(); fn != "" {
			buf.WriteByte(' ')
			buf.WriteString(fn)
		}
		buf.WriteString("] ")
	}

	if f.IncludeContext && msg.Context() != 0 {
		buf.WriteString("(ctx=")
		buf.Write(strconv.AppendInt(buf.AvailableBuffer(), int64(msg.Context()), 10))
		buf.WriteString(") ")
	}

	buf.WriteString(msg.Text())

	if tag := msg.Tag(); tag != nil {
		buf.WriteString(" tag=")
		fmt.Fprint(buf, tag)
	}

	buf.WriteByte('\n')
}
