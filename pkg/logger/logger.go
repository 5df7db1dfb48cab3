package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Level representa o nível de log
type Level int

const (
	// DEBUG nível para mensagens detalhadas de depuração
	DEBUG Level = iota
	// INFO nível para informações gerais
	INFO
	// WARN nível para avisos
	WARN
	// ERROR nível para erros
	ERROR
	// FATAL nível para erros fatais (encerra o programa)
	FATAL
)

// String retorna o rótulo de 5 colunas usado na linha de log
func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO "
	case WARN:
		return "WARN "
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	}
	return "?????"
}

// ParseLevel converte "debug", "info", "warn", "error" ou "fatal" em Level
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DEBUG, nil
	case "info", "":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	case "fatal":
		return FATAL, nil
	}
	return INFO, fmt.Errorf("nível de log desconhecido: %q", name)
}

var (
	// Nível mínimo de log
	logLevel = INFO

	// Saídas de log
	logOutput     io.Writer = os.Stdout
	errorOutput   io.Writer = os.Stderr
	fileOutput    io.WriteCloser
	fileOutputErr io.WriteCloser

	// Formato de timestamp
	timeFormat = "2006-01-02 15:04:05.000"

	stdLogger *log.Logger
	errLogger *log.Logger

	includeFile = true

	mu sync.RWMutex
)

func init() {
	stdLogger = log.New(logOutput, "", 0)
	errLogger = log.New(errorOutput, "", 0)
}

// Init reconfigura as saídas padrão (stdout/stderr)
func Init() {
	mu.Lock()
	defer mu.Unlock()

	logOutput = os.Stdout
	errorOutput = os.Stderr
	stdLogger = log.New(logOutput, "", 0)
	errLogger = log.New(errorOutput, "", 0)
}

// SetLevel define o nível mínimo de log
func SetLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()
	logLevel = level
}

// GetLevel retorna o nível atual de log
func GetLevel() Level {
	mu.RLock()
	defer mu.RUnlock()
	return logLevel
}

// IsDebugEnabled verifica se o nível de debug está habilitado
func IsDebugEnabled() bool {
	return GetLevel() <= DEBUG
}

// SetOutput direciona todos os níveis para o mesmo writer (usado em testes)
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	logOutput = w
	errorOutput = w
	stdLogger = log.New(w, "", 0)
	errLogger = log.New(w, "", 0)
}

// EnableFileLogging duplica a saída em arquivos <prefix>_<início>.log e _error.log
func EnableFileLogging(logDir, prefix string) error {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("erro ao criar diretório de log: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	if prefix != "" {
		prefix = prefix + "_"
	}

	logFilePath := filepath.Join(logDir, fmt.Sprintf("%s%s.log", prefix, timestamp))
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("erro ao criar arquivo de log: %w", err)
	}

	errFilePath := filepath.Join(logDir, fmt.Sprintf("%s%s_error.log", prefix, timestamp))
	errFile, err := os.OpenFile(errFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logFile.Close()
		return fmt.Errorf("erro ao criar arquivo de log de erro: %w", err)
	}

	mu.Lock()
	closeFiles()
	fileOutput = logFile
	fileOutputErr = errFile
	stdLogger = log.New(io.MultiWriter(logOutput, logFile), "", 0)
	errLogger = log.New(io.MultiWriter(errorOutput, errFile), "", 0)
	mu.Unlock()

	Infof("Logging em arquivo iniciado: %s", logFilePath)
	return nil
}

// Sync fecha os arquivos de log e volta para a saída do terminal
func Sync() {
	mu.Lock()
	defer mu.Unlock()

	closeFiles()
	stdLogger = log.New(logOutput, "", 0)
	errLogger = log.New(errorOutput, "", 0)
}

func closeFiles() {
	if fileOutput != nil {
		fileOutput.Close()
		fileOutput = nil
	}
	if fileOutputErr != nil {
		fileOutputErr.Close()
		fileOutputErr = nil
	}
}

// logMessage escreve uma linha "[timestamp] NÍVEL [arquivo:linha]: [componente] mensagem"
func logMessage(level Level, component string, format string, args ...interface{}) {
	mu.RLock()
	minLevel := logLevel
	out := stdLogger
	if level >= ERROR {
		out = errLogger
	}
	tsFormat := timeFormat
	mu.RUnlock()

	if level < minLevel {
		return
	}

	var source string
	if includeFile {
		// 0 logMessage, 1 emit, 2 helper público, 3 chamador
		if _, file, line, ok := runtime.Caller(3); ok {
			source = fmt.Sprintf(" [%s:%d]", filepath.Base(file), line)
		}
	}

	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	if component != "" {
		msg = "[" + component + "] " + msg
	}

	out.Printf("[%s] %s%s: %s", time.Now().Format(tsFormat), level, source, msg)

	if level == FATAL {
		panic(msg)
	}
}

// emit é o ponto comum dos helpers globais, mantendo a profundidade de pilha
func emit(level Level, format string, args ...interface{}) {
	logMessage(level, "", format, args...)
}

// Debug escreve mensagem de log com nível DEBUG
func Debug(msg string) {
	emit(DEBUG, "%s", msg)
}

// Debugf escreve mensagem de log formatada com nível DEBUG
func Debugf(format string, args ...interface{}) {
	emit(DEBUG, format, args...)
}

// Info escreve mensagem de log com nível INFO
func Info(msg string) {
	emit(INFO, "%s", msg)
}

// Infof escreve mensagem de log formatada com nível INFO
func Infof(format string, args ...interface{}) {
	emit(INFO, format, args...)
}

// Warn escreve mensagem de log com nível WARN
func Warn(msg string) {
	emit(WARN, "%s", msg)
}

// Warnf escreve mensagem de log formatada com nível WARN
func Warnf(format string, args ...interface{}) {
	emit(WARN, format, args...)
}

// Error escreve mensagem de log com nível ERROR
func Error(msg string, err error) {
	if err != nil {
		emit(ERROR, "%s: %v", msg, err)
		return
	}
	emit(ERROR, "%s", msg)
}

// Errorf escreve mensagem de log formatada com nível ERROR
func Errorf(format string, args ...interface{}) {
	emit(ERROR, format, args...)
}

// Fatal escreve mensagem de log com nível FATAL e encerra o programa
func Fatal(msg string, err error) {
	if err != nil {
		emit(FATAL, "%s: %v", msg, err)
		return
	}
	emit(FATAL, "%s", msg)
}

// Fatalf escreve mensagem de log formatada com nível FATAL e encerra o programa
func Fatalf(format string, args ...interface{}) {
	emit(FATAL, format, args...)
}

// Component é um logger que prefixa as mensagens com o nome do componente
type Component struct {
	name string
}

// For retorna o logger do componente informado
func For(name string) Component {
	return Component{name: name}
}

// Name retorna o nome do componente
func (c Component) Name() string {
	return c.name
}

func (c Component) Debugf(format string, args ...interface{}) {
	c.emit(DEBUG, format, args...)
}

func (c Component) Infof(format string, args ...interface{}) {
	c.emit(INFO, format, args...)
}

func (c Component) Warnf(format string, args ...interface{}) {
	c.emit(WARN, format, args...)
}

func (c Component) Errorf(format string, args ...interface{}) {
	c.emit(ERROR, format, args...)
}

// Error registra msg e err no nível ERROR
func (c Component) Error(msg string, err error) {
	if err != nil {
		c.emit(ERROR, "%s: %v", msg, err)
		return
	}
	c.emit(ERROR, "%s", msg)
}

func (c Component) emit(level Level, format string, args ...interface{}) {
	logMessage(level, c.name, format, args...)
}
