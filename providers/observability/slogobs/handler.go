package slogobs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/fatih/color"
)

// Handler is a custom slog.Handler that supports multiple output formats.
// Handlers derived through WithAttrs/WithGroup share the parent's output lock.
type Handler struct {
	format Format
	level  slog.Leveler
	output io.Writer
	colors bool
	mu     *sync.Mutex
	attrs  []slog.Attr
	groups []string
}

// HandlerOptions configures a Handler.
type HandlerOptions struct {
	// Format specifies the output format (compact, pretty, json).
	Format Format
	// Level is the minimum log level to output.
	Level slog.Leveler
	// Output is where logs are written (defaults to os.Stdout).
	Output io.Writer
	// Colors enables ANSI color codes (only for compact/pretty formats).
	Colors bool
}

// NewHandler creates a new Handler with the given options.
func NewHandler(opts *HandlerOptions) *Handler {
	if opts == nil {
		opts = &HandlerOptions{}
	}

	output := opts.Output
	if output == nil {
		output = os.Stdout
	}
	format := opts.Format
	if format == "" {
		format = FormatCompact
	}
	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}

	// Auto-detect TTY for colors if not explicitly set
	colors := opts.Colors
	if !colors && format != FormatJSON {
		if f, ok := output.(*os.File); ok {
			colors = isTerminal(f)
		}
	}

	return &Handler{
		format: format,
		level:  level,
		output: output,
		colors: colors,
		mu:     &sync.Mutex{},
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes a log record.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var buf []byte
	var err error

	switch h.format {
	case FormatPretty:
		buf = h.formatPretty(r)
	case FormatJSON:
		buf, err = h.formatJSON(r)
	default:
		buf = h.formatCompact(r)
	}
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.output.Write(buf)
	return err
}

// WithAttrs returns a new Handler with additional attributes.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), h.prefixed(attrs)...)
	return &clone
}

// WithGroup returns a new Handler with a group name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}

// formatCompact renders "2006-01-02 15:04:05 LEVEL Message → {"key":"value"}".
func (h *Handler) formatCompact(r slog.Record) []byte {
	buf := make([]byte, 0, 256)

	buf = append(buf, r.Time.Format("2006-01-02 15:04:05")...)
	buf = append(buf, ' ')
	buf = append(buf, h.paint(r.Level, fmt.Sprintf("%5s", levelString(r.Level)))...)
	buf = append(buf, ' ')
	buf = append(buf, r.Message...)

	attrs := h.collectAttrs(r)
	if len(attrs) > 0 {
		buf = append(buf, " → "...)
		jsonData, err := json.Marshal(attrs)
		if err != nil {
			buf = append(buf, "[json-error]"...)
		} else {
			buf = append(buf, jsonData...)
		}
	}

	return append(buf, '\n')
}

// formatPretty renders the message on one line and each attribute, sorted by
// key, on its own tree-indented line below it.
func (h *Handler) formatPretty(r slog.Record) []byte {
	buf := make([]byte, 0, 256)

	buf = append(buf, r.Time.Format("2006-01-02 15:04:05")...)
	buf = append(buf, ' ')
	level := levelString(r.Level)
	buf = append(buf, h.paint(r.Level, level)...)
	for i := len(level); i < 7; i++ {
		buf = append(buf, ' ')
	}
	buf = append(buf, r.Message...)
	buf = append(buf, '\n')

	attrs := h.collectAttrs(r)
	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for i, key := range keys {
		if i == len(keys)-1 {
			buf = append(buf, "                   └─ "...)
		} else {
			buf = append(buf, "                   ├─ "...)
		}
		buf = append(buf, key...)
		buf = append(buf, ": "...)
		buf = append(buf, fmt.Sprintf("%v", attrs[key])...)
		buf = append(buf, '\n')
	}

	return buf
}

// formatJSON renders a single JSON object with time, level, msg and the
// attributes merged at the top level.
func (h *Handler) formatJSON(r slog.Record) ([]byte, error) {
	data := h.collectAttrs(r)
	data["time"] = r.Time.Format("2006-01-02T15:04:05")
	data["level"] = levelString(r.Level)
	data["msg"] = r.Message

	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return append(jsonData, '\n'), nil
}

// collectAttrs gathers the handler's stored attributes and the record's own
// into a single map, prefixing record keys with the active groups.
func (h *Handler) collectAttrs(r slog.Record) map[string]interface{} {
	attrs := make(map[string]interface{}, len(h.attrs)+r.NumAttrs())
	for _, attr := range h.attrs {
		attrs[attr.Key] = attrValue(attr.Value)
	}
	r.Attrs(func(attr slog.Attr) bool {
		for _, prefixed := range h.prefixed([]slog.Attr{attr}) {
			attrs[prefixed.Key] = attrValue(prefixed.Value)
		}
		return true
	})
	return attrs
}

// prefixed returns attrs with keys qualified by the handler's group names.
func (h *Handler) prefixed(attrs []slog.Attr) []slog.Attr {
	if len(h.groups) == 0 {
		return attrs
	}
	out := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		key := attr.Key
		for i := len(h.groups) - 1; i >= 0; i-- {
			key = h.groups[i] + "." + key
		}
		out = append(out, slog.Attr{Key: key, Value: attr.Value})
	}
	return out
}

// attrValue unwraps an slog.Value into something encoding/json renders
// sensibly. Durations become their string form and errors their message.
func attrValue(v slog.Value) interface{} {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		if d, ok := v.Any().(fmt.Stringer); ok {
			return d.String()
		}
	}
	return v.Any()
}

// paint wraps text in the color for level when colors are enabled.
func (h *Handler) paint(level slog.Level, text string) string {
	if !h.colors {
		return text
	}
	c := colorForLevel(level)
	c.EnableColor()
	return c.Sprint(text)
}

// colorForLevel returns the color used to render the given slog.Level.
func colorForLevel(level slog.Level) *color.Color {
	switch {
	case level < slog.LevelDebug:
		return color.New(color.FgHiBlack) // TRACE
	case level < slog.LevelInfo:
		return color.New(color.FgBlue) // DEBUG
	case level < slog.LevelWarn:
		return color.New(color.FgGreen) // INFO
	case level < slog.LevelError:
		return color.New(color.FgYellow) // WARN
	default:
		return color.New(color.FgRed, color.Bold) // ERROR
	}
}

// isTerminal checks whether the given file is connected to a terminal device.
// It returns false if the file is nil or if stat fails.
func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fileInfo, err := f.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
