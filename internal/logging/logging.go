package logging

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gluk-w/aiterm/internal/config"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

var (
	rotator *lumberjack.Logger
	mu      sync.Mutex
)

// Init sets up dual logging to stdout and a rotating log file.
// Must be called after config.Load().
func Init() {
	path := config.Cfg.LogPath

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Printf("WARNING: cannot create log directory: %v", err)
		return
	}

	rotator = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	log.Printf("Logging to file: %s", path)
}

// ReadTail returns the last n lines from the active log file.
func ReadTail(n int) (string, error) {
	mu.Lock()
	defer mu.Unlock()

	f, err := os.Open(config.Cfg.LogPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan log file: %w", err)
	}

	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}

	return strings.Join(lines, "\n"), nil
}

// Close flushes and closes the rotating file writer.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if rotator != nil {
		rotator.Close()
	}
}
