package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"rsc.io/qr"

	"github.com/crapthings/storyboard/internal/netutil"
)

// Level orders log severities. Messages below the configured level are
// dropped.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu      sync.Mutex
	noColor bool
	level   = LevelInfo
)

const (
	reset   = "\033[0m"
	bold    = "\033[1m"
	dim     = "\033[2m"
	red     = "\033[31m"
	green   = "\033[32m"
	yellow  = "\033[33m"
	blue    = "\033[34m"
	magenta = "\033[35m"
	cyan    = "\033[36m"
	white   = "\033[37m"

	brightRed  = "\033[91m"
	brightCyan = "\033[96m"

	// 256-color accents
	amber     = "\033[38;5;214m"
	teal      = "\033[38;5;37m"
	softAmber = "\033[38;5;222m"
)

func init() {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		noColor = true
	}
	fd := os.Stderr.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		noColor = true
	}
}

// SetLevel sets the minimum level from a name: debug, info, warn or error.
// Unknown names leave the level unchanged.
func SetLevel(name string) {
	mu.Lock()
	defer mu.Unlock()
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		level = LevelDebug
	case "info":
		level = LevelInfo
	case "warn", "warning":
		level = LevelWarn
	case "error":
		level = LevelError
	}
}

func enabled(l Level) bool {
	mu.Lock()
	defer mu.Unlock()
	return l >= level
}

func c(code, text string) string {
	if noColor {
		return text
	}
	return code + text + reset
}

func ts() string {
	return c(dim, time.Now().Format("15:04:05"))
}

func write(format string, args ...interface{}) {
	mu.Lock()
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	mu.Unlock()
}

func Banner() {
	lines := "\n" +
		"  " + c(amber, `[#][#][#]`) + "  " + c(bold+brightCyan, "Storyboard") + "\n" +
		"  " + c(amber, `[ ][ ][ ]`) + "  " + c(dim, "shots in, assets out") + "\n" +
		c(dim, " ─────────────────────────────────") + "\n"
	mu.Lock()
	fmt.Fprint(os.Stderr, lines)
	mu.Unlock()
}

func Debug(format string, args ...interface{}) {
	if !enabled(LevelDebug) {
		return
	}
	msg := fmt.Sprintf(format, args...)
	write("%s  %s  %s", ts(), c(dim, "·"), c(dim, msg))
}

func Info(format string, args ...interface{}) {
	if !enabled(LevelInfo) {
		return
	}
	msg := fmt.Sprintf(format, args...)
	write("%s  %s  %s", ts(), c(cyan, "~"), msg)
}

func Success(format string, args ...interface{}) {
	if !enabled(LevelInfo) {
		return
	}
	msg := fmt.Sprintf(format, args...)
	write("%s  %s  %s", ts(), c(green, "✓"), msg)
}

func Warn(format string, args ...interface{}) {
	if !enabled(LevelWarn) {
		return
	}
	msg := fmt.Sprintf(format, args...)
	write("%s  %s  %s", ts(), c(yellow, "⚠"), c(yellow, msg))
}

func Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	write("%s  %s  %s", ts(), c(red, "✗"), c(red, msg))
}

func Fatal(format string, args ...interface{}) {
	Error(format, args...)
	os.Exit(1)
}

// Task logs one step of an asset generation: queued, running, done, failed.
func Task(event, task, detail string) {
	if !enabled(LevelInfo) {
		return
	}
	var icon, eventColor string
	switch event {
	case "done":
		icon, eventColor = c(green, "●"), green
	case "failed":
		icon, eventColor = c(red, "●"), red
	default:
		icon, eventColor = c(amber, "○"), amber
	}
	write("%s  %s %s %s %s",
		ts(),
		icon,
		c(eventColor, fmt.Sprintf("%-8s", event)),
		c(bold, task),
		c(dim, detail),
	)
}

func WS(event, detail string) {
	if !enabled(LevelDebug) && event != "connected" && event != "disconnected" {
		return
	}
	var icon, eventColor string
	switch event {
	case "connected":
		icon = c(teal, "⚡")
		eventColor = teal
	case "disconnected":
		icon = c(softAmber, "·")
		eventColor = softAmber
	default:
		icon = c(blue, "↔")
		eventColor = blue
	}
	write("%s  %s %s %s",
		ts(),
		icon,
		c(eventColor, fmt.Sprintf("%-14s", "ws:"+event)),
		c(magenta, detail),
	)
}

func Listen(addr, url string, port int) {
	write("")
	write("%s  %s  Listening on %s", ts(), c(amber, "▶"), c(bold+white, addr))
	write("              %s  %s", c(dim, "→"), c(cyan, url))

	if lanIP := netutil.GetLANIP(); lanIP != "" {
		lanURL := fmt.Sprintf("http://%s:%d", lanIP, port)
		write("              %s  %s", c(dim, "→"), c(cyan, lanURL))
		write("")
		printQR(lanURL)
		write("              %s", c(dim, "Scan to open the storyboard on another device"))
	}
	write("")
}

func printQR(url string) {
	code, err := qr.Encode(url, qr.L)
	if err != nil {
		return
	}

	size := code.Size
	quiet := 1
	full := size + quiet*2

	black := func(x, y int) bool {
		qx, qy := x-quiet, y-quiet
		if qx < 0 || qy < 0 || qx >= size || qy >= size {
			return false
		}
		return code.Black(qx, qy)
	}

	for y := 0; y < full; y += 2 {
		var line strings.Builder
		for x := 0; x < full; x++ {
			top := black(x, y)
			bot := y+1 < full && black(x, y+1)

			switch {
			case top && bot:
				line.WriteString("█")
			case top:
				line.WriteString("▀")
			case bot:
				line.WriteString("▄")
			default:
				line.WriteString(" ")
			}
		}
		write("              %s", c(amber, line.String()))
	}
}

func Shutdown(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	write("")
	write("%s  %s  %s", ts(), c(amber, "■"), c(dim, msg))
}

func Bye() {
	write("%s  %s  %s", ts(), c(dim, "~"), c(dim, "Stopped."))
	write("")
}

func HTTP(method, path string, status int, dur time.Duration) {
	if !enabled(LevelInfo) {
		return
	}
	statusStr := fmt.Sprintf("%d", status)
	var coloredStatus string
	switch {
	case status >= 500:
		coloredStatus = c("\033[41;97m", " "+statusStr+" ")
	case status >= 400:
		coloredStatus = c("\033[43;30m", " "+statusStr+" ")
	default:
		coloredStatus = c(dim+teal, statusStr)
	}

	mc := teal
	switch method {
	case "POST", "PUT", "PATCH":
		mc = amber
	case "DELETE":
		mc = brightRed
	}

	write("%s  %s %s %s %s",
		ts(),
		c(mc, "["+method+"]"),
		coloredStatus,
		c(dim, path),
		c(dim, fmtDuration(dur)),
	)
}

func fmtDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		ms := float64(d.Microseconds()) / 1000.0
		if ms < 10 {
			return fmt.Sprintf("%.1fms", ms)
		}
		return fmt.Sprintf("%.0fms", ms)
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}
