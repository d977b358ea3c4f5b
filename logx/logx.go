// Package logx is the node-wide category logger. Output goes to a rotated
// file under ./logs, or to stderr when LOGFILE is set to "-".
package logx

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
)

var logger = newLogger()

func newLogger() *log.Logger {
	flags := log.Ldate | log.Ltime | log.Lmicroseconds
	if os.Getenv("LOGFILE") == "-" {
		return log.New(os.Stderr, "", flags)
	}
	return log.New(&lumberjack.Logger{
		Filename: logFilename(),
		MaxSize:  envInt("LOGFILE_MAX_SIZE_MB", 64),  // megabytes
		MaxAge:   envInt("LOGFILE_MAX_AGE_DAYS", 14), // days
	}, "", flags)
}

func logFilename() string {
	if logFile := os.Getenv("LOGFILE"); logFile != "" {
		return "./logs/" + logFile
	}
	return "./logs/lumen.log"
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func write(color, level, category string, content []interface{}) {
	message := fmt.Sprint(content...)
	logger.Printf("%s[%s][%s]%s: %s", color, level, category, colorReset, message)
}

func Info(category string, content ...interface{}) {
	write(colorGreen, "INFO", category, content)
}

func Error(category string, content ...interface{}) {
	write(colorRed, "ERROR", category, content)
}

func Warn(category string, content ...interface{}) {
	write(colorYellow, "WARN", category, content)
}

func Debug(category string, content ...interface{}) {
	write(colorBlue, "DEBUG", category, content)
}
