// Package botlog is the append-only audit trail of the bot: every event and
// every trade is written as a JSON line, events into a per-day file and
// trades into a single running log. Entries are never mutated or truncated.
package botlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	LevelInfo    = "info"
	LevelWarn    = "warn"
	LevelError   = "error"
	LevelSuccess = "success"
)

// Event is a single audit log entry.
type Event struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Category  string `json:"category"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
}

// TradeRecord is an immutable record of an executed or simulated trade.
type TradeRecord struct {
	Type      string  `json:"type"`
	Timestamp string  `json:"timestamp"`
	Action    string  `json:"action"`
	TokenID   string  `json:"token_id"`
	Amount    float64 `json:"amount"`
	Price     float64 `json:"price"`
	Outcome   string  `json:"outcome"`
	Reasoning string  `json:"reasoning"`
	Simulated bool    `json:"simulated"`
}

// TradeSummary aggregates the trade log.
type TradeSummary struct {
	TotalTrades     int             `json:"total_trades"`
	ExecutedTrades  int             `json:"executed_trades"`
	SimulatedTrades int             `json:"simulated_trades"`
	TotalInvested   decimal.Decimal `json:"total_invested"`
	FirstTrade      string          `json:"first_trade,omitempty"`
	LastTrade       string          `json:"last_trade,omitempty"`
}

// Logger appends audit records under a log directory and mirrors them to the
// console.
type Logger struct {
	dir     string
	console *logrus.Logger
}

func New(dir string) *Logger {
	console := logrus.New()
	console.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return &Logger{dir: dir, console: console}
}

func (l *Logger) eventFile() string {
	return filepath.Join(l.dir, fmt.Sprintf("trading_%s.jsonl", time.Now().Format("2006-01-02")))
}

func (l *Logger) tradeFile() string {
	return filepath.Join(l.dir, "trades.jsonl")
}

// Event appends an audit event and mirrors it to the console. Persistence
// failures are reported on the console only; audit logging never aborts the
// caller.
func (l *Logger) Event(category, message, level string, data any) {
	entry := Event{
		Timestamp: time.Now().Format(time.RFC3339),
		Level:     level,
		Category:  category,
		Message:   message,
	}
	if data != nil {
		// Keep the payload serializable; fall back to its string form.
		if _, err := json.Marshal(data); err != nil {
			entry.Data = fmt.Sprint(data)
		} else {
			entry.Data = data
		}
	}

	if err := appendJSONLine(l.eventFile(), entry); err != nil {
		l.console.WithField("category", "botlog").Errorf("write event log: %v", err)
	}

	fields := logrus.Fields{"category": category}
	switch level {
	case LevelWarn:
		l.console.WithFields(fields).Warn(message)
	case LevelError:
		l.console.WithFields(fields).Error(message)
	case LevelSuccess:
		fields["success"] = true
		l.console.WithFields(fields).Info(message)
	default:
		l.console.WithFields(fields).Info(message)
	}
}

// Trade appends a trade record to the running trade log and echoes it as an
// audit event.
func (l *Logger) Trade(rec TradeRecord) {
	rec.Type = "trade"
	if rec.Timestamp == "" {
		rec.Timestamp = time.Now().Format(time.RFC3339)
	}

	if err := appendJSONLine(l.tradeFile(), rec); err != nil {
		l.console.WithField("category", "botlog").Errorf("write trade log: %v", err)
	}

	status := "EXECUTED"
	level := LevelSuccess
	if rec.Simulated {
		status = "SIMULATED"
		level = LevelInfo
	}
	msg := fmt.Sprintf("%s: %s %s $%.2f @ %.2f", status, rec.Action, rec.Outcome, rec.Amount, rec.Price)
	l.Event("trade", msg, level, rec)
}

// RecentEvents returns the most recent count entries of today's event log.
func (l *Logger) RecentEvents(count int) []Event {
	var entries []Event
	readJSONLines(l.eventFile(), func(line []byte) {
		var e Event
		if err := json.Unmarshal(line, &e); err == nil {
			entries = append(entries, e)
		}
	})
	if count > 0 && len(entries) > count {
		entries = entries[len(entries)-count:]
	}
	return entries
}

// TradeHistory returns every trade record, oldest first.
func (l *Logger) TradeHistory() []TradeRecord {
	var trades []TradeRecord
	readJSONLines(l.tradeFile(), func(line []byte) {
		var rec TradeRecord
		if err := json.Unmarshal(line, &rec); err == nil {
			trades = append(trades, rec)
		}
	})
	return trades
}

// Summarize aggregates the trade log. Total invested counts executed trades
// only.
func (l *Logger) Summarize() TradeSummary {
	trades := l.TradeHistory()
	summary := TradeSummary{TotalTrades: len(trades), TotalInvested: decimal.Zero}
	if len(trades) == 0 {
		return summary
	}

	for _, tr := range trades {
		if tr.Simulated {
			summary.SimulatedTrades++
			continue
		}
		summary.ExecutedTrades++
		summary.TotalInvested = summary.TotalInvested.Add(decimal.NewFromFloat(tr.Amount))
	}
	summary.FirstTrade = trades[0].Timestamp
	summary.LastTrade = trades[len(trades)-1].Timestamp
	return summary
}

func appendJSONLine(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(data, '\n'))
	return err
}

func readJSONLines(path string, fn func(line []byte)) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fn(scanner.Bytes())
	}
}
