package ui

import (
	"bytes"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
)

const maxLogLines = 1000

type LogLevel uint8

const (
	LogLevelInfo LogLevel = iota
	LogLevelWarning
	LogLevelError
)

// LogMsg is a single log line. It is also sent to the program to refresh the log view.
type LogMsg struct {
	Time  time.Time
	Level LogLevel
	Text  string
}

// UILogger keeps the last log lines in memory so they can be shown while the
// terminal is owned by the browser. It is a [zerolog.LevelWriter].
type UILogger struct {
	program *tea.Program

	mutex          sync.Mutex
	console        zerolog.ConsoleWriter
	buf            bytes.Buffer
	unreadPerLevel map[LogLevel]int
	messages       []LogMsg
}

var _ zerolog.LevelWriter = (*UILogger)(nil)

func NewUILogger() *UILogger {
	l := &UILogger{unreadPerLevel: make(map[LogLevel]int)}
	l.console = zerolog.ConsoleWriter{
		Out:          &l.buf,
		NoColor:      true,
		PartsExclude: []string{zerolog.TimestampFieldName, zerolog.LevelFieldName},
	}
	return l
}

// Attach sends a [LogMsg] to p for every new line.
func (l *UILogger) Attach(p *tea.Program) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.program = p
}

func (l *UILogger) Write(p []byte) (int, error) {
	return l.WriteLevel(zerolog.NoLevel, p)
}

func (l *UILogger) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	l.mutex.Lock()
	l.buf.Reset()
	if _, err := l.console.Write(p); err != nil {
		l.mutex.Unlock()
		return 0, err
	}
	msg := LogMsg{
		Time:  time.Now(),
		Level: levelOf(level),
		Text:  strings.TrimSpace(l.buf.String()),
	}
	if len(l.messages) >= maxLogLines {
		copy(l.messages, l.messages[1:])
		l.messages[len(l.messages)-1] = msg
	} else {
		l.messages = append(l.messages, msg)
	}
	l.unreadPerLevel[msg.Level]++
	program := l.program
	l.mutex.Unlock()

	if program != nil {
		// Send blocks until the event loop picks the message up, which
		// deadlocks when logging from within Update
		go program.Send(msg)
	}
	return len(p), nil
}

func levelOf(level zerolog.Level) LogLevel {
	switch {
	case level == zerolog.NoLevel || level < zerolog.WarnLevel:
		return LogLevelInfo
	case level == zerolog.WarnLevel:
		return LogLevelWarning
	default:
		return LogLevelError
	}
}

// Messages returns a copy of the kept log lines, oldest first.
func (l *UILogger) Messages() []LogMsg {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return append([]LogMsg(nil), l.messages...)
}

// Unread returns the number of lines per level since the last [UILogger.MarkRead].
func (l *UILogger) Unread() (info, warn, errs int) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.unreadPerLevel[LogLevelInfo], l.unreadPerLevel[LogLevelWarning], l.unreadPerLevel[LogLevelError]
}

func (l *UILogger) MarkRead() {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	clear(l.unreadPerLevel)
}
