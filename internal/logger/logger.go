package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger 统一日志接口，参数为键值对
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	With(kv ...any) Logger
}

// Options 日志输出配置
type Options struct {
	Level   string
	Writers []string
	File    string
	// MaxSizeMB 单个日志文件最大体积
	MaxSizeMB  int
	MaxBackups int
}

type zlog struct {
	l zerolog.Logger
}

// New 根据配置创建 zerolog 日志实现
func New(opts Options) Logger {
	var writers []io.Writer
	for _, w := range opts.Writers {
		switch strings.ToLower(w) {
		case "console":
			writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime})
		case "file":
			file := opts.File
			if file == "" {
				file = "logs/cdpmarklet.log"
			}
			writers = append(writers, &lumberjack.Logger{
				Filename:   file,
				MaxSize:    orDefault(opts.MaxSizeMB, 20),
				MaxBackups: orDefault(opts.MaxBackups, 5),
				Compress:   true,
			})
		case "stdout":
			writers = append(writers, os.Stdout)
		}
	}
	if len(writers) == 0 {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime})
	}
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}
	l := zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(level).With().Timestamp().Logger()
	return &zlog{l: l}
}

// NewWriter 创建写入指定 io.Writer 的日志实现，主要用于测试
func NewWriter(w io.Writer, level string) Logger {
	lv, err := zerolog.ParseLevel(level)
	if err != nil {
		lv = zerolog.DebugLevel
	}
	return &zlog{l: zerolog.New(w).Level(lv).With().Timestamp().Logger()}
}

func (z *zlog) Debug(msg string, kv ...any) { fields(z.l.Debug(), kv).Msg(msg) }
func (z *zlog) Info(msg string, kv ...any)  { fields(z.l.Info(), kv).Msg(msg) }
func (z *zlog) Warn(msg string, kv ...any)  { fields(z.l.Warn(), kv).Msg(msg) }
func (z *zlog) Error(msg string, kv ...any) { fields(z.l.Error(), kv).Msg(msg) }

func (z *zlog) With(kv ...any) Logger {
	ctx := z.l.With()
	for i := 0; i+1 < len(kv); i += 2 {
		ctx = ctx.Interface(keyOf(kv[i]), kv[i+1])
	}
	return &zlog{l: ctx.Logger()}
}

func fields(e *zerolog.Event, kv []any) *zerolog.Event {
	for i := 0; i < len(kv); i += 2 {
		key := keyOf(kv[i])
		if i+1 >= len(kv) {
			e = e.Interface(key, nil)
			break
		}
		switch v := kv[i+1].(type) {
		case error:
			e = e.AnErr(key, v)
		case string:
			e = e.Str(key, v)
		case int:
			e = e.Int(key, v)
		case int64:
			e = e.Int64(key, v)
		case bool:
			e = e.Bool(key, v)
		case time.Duration:
			e = e.Dur(key, v)
		default:
			e = e.Interface(key, v)
		}
	}
	return e
}

func keyOf(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	return fmt.Sprint(k)
}

func orDefault(v, d int) int {
	if v <= 0 {
		return d
	}
	return v
}

type nop struct{}

// NewNop 创建丢弃所有输出的日志实现
func NewNop() Logger { return nop{} }

func (nop) Debug(string, ...any)  {}
func (nop) Info(string, ...any)   {}
func (nop) Warn(string, ...any)   {}
func (nop) Error(string, ...any)  {}
func (n nop) With(...any) Logger { return n }
