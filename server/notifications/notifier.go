// Package notifications forwards monitor alert events to Telegram.
package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/vigiacam/vigia/server/monitor"
)

// Notifier consumes alert events from the monitor and delivers them to a
// Telegram chat. Delivery failures are logged and dropped; alerting must
// never stall the pipeline.
type Notifier struct {
	ShutdownComplete chan bool // Closed when we have shutdown

	log         logs.Log
	apiUrl      string
	botToken    string
	chatID      string
	httpTimeout time.Duration
	events      chan *monitor.AlertEvent
	shutdown    chan bool
}

// NewNotifier starts the delivery goroutine. events is typically the channel
// returned by Monitor.AddAlertWatcher. When botToken or chatID is empty, the
// notifier consumes events but sends nothing.
func NewNotifier(logger logs.Log, botToken, chatID string, events chan *monitor.AlertEvent, shutdown chan bool) *Notifier {
	n := &Notifier{
		ShutdownComplete: make(chan bool),
		log:              logger,
		apiUrl:           "https://api.telegram.org",
		botToken:         botToken,
		chatID:           chatID,
		httpTimeout:      10 * time.Second,
		events:           events,
		shutdown:         shutdown,
	}
	if botToken == "" || chatID == "" {
		logger.Infof("Telegram notifications are disabled (no bot token or chat ID)")
	}
	go n.run()
	return n
}

func (n *Notifier) run() {
	for {
		select {
		case ev := <-n.events:
			n.deliver(ev)
		case <-n.shutdown:
			close(n.ShutdownComplete)
			return
		}
	}
}

func (n *Notifier) deliver(ev *monitor.AlertEvent) {
	if n.botToken == "" || n.chatID == "" {
		return
	}
	if err := n.sendTelegram(formatMessage(ev)); err != nil {
		n.log.Errorf("Failed to send Telegram notification: %v", err)
	}
}

func formatMessage(ev *monitor.AlertEvent) string {
	return fmt.Sprintf("[%v] %v", strings.ToUpper(ev.Severity), ev.Message)
}

func (n *Notifier) sendTelegram(text string) error {
	body, err := json.Marshal(map[string]string{
		"chat_id": n.chatID,
		"text":    text,
	})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), n.httpTimeout)
	defer cancel()
	url := fmt.Sprintf("%v/bot%v/sendMessage", n.apiUrl, n.botToken)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("Telegram API returned %v: %v", resp.StatusCode, string(msg))
	}
	return nil
}
