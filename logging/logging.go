package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

const envLogLevel = "TXBENCH_LOG_LEVEL"

type Options struct {
	Level  string
	Pretty bool
	File   string // optional; rotated by lumberjack
}

// New builds the process logger. Console output goes to stderr so command
// output on stdout stays machine-readable.
func New(service string, opts Options) zerolog.Logger {
	var out io.Writer = os.Stderr
	if opts.Pretty {
		out = consoleWriter(os.Stderr)
	}

	if opts.File != "" {
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}

	return zerolog.New(out).
		Level(ParseLevel(opts.Level)).
		With().
		Timestamp().
		Str("service", service).
		Logger()
}

func consoleWriter(f *os.File) zerolog.ConsoleWriter {
	isTerminal := term.IsTerminal(int(f.Fd()))
	output := zerolog.ConsoleWriter{
		Out:        f,
		NoColor:    !isTerminal,
		TimeFormat: time.RFC3339,
	}

	output.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}
	output.FormatFieldName = func(i interface{}) string {
		return fmt.Sprintf("%s:", i)
	}
	return output
}

// ParseLevel resolves the effective level. TXBENCH_LOG_LEVEL wins over the
// configured value; anything unparsable means info.
func ParseLevel(configured string) zerolog.Level {
	if env, ok := os.LookupEnv(envLogLevel); ok && env != "" {
		configured = env
	}
	if configured == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(configured))
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
