package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sells-group/dux-ghl-sync/internal/config"
	"github.com/sells-group/dux-ghl-sync/internal/model"
)

type captureSink struct {
	alerts []Alert
	err    error
}

func (c *captureSink) Name() string { return "capture" }

func (c *captureSink) Deliver(_ context.Context, a Alert) error {
	if c.err != nil {
		return c.err
	}
	c.alerts = append(c.alerts, a)
	return nil
}

func TestEvaluate_BelowMinimum(t *testing.T) {
	a := NewAlerter(config.AlertConfig{FailureRateThreshold: 0.1}, zap.NewNop())
	run := model.Run{ID: "r1", Kind: model.RunKindContacts, Counters: model.Counters{Total: 4, Failed: 4}}
	assert.Empty(t, a.Evaluate(run))
}

func TestEvaluate_FailureRateExceeded(t *testing.T) {
	a := NewAlerter(config.AlertConfig{FailureRateThreshold: 0.2}, zap.NewNop())
	run := model.Run{ID: "r1", Kind: model.RunKindInvoices, Counters: model.Counters{Total: 10, Successful: 7, Failed: 3}}

	alerts := a.Evaluate(run)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertRecordFailRate, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "30.0%")
	assert.Equal(t, 3, alerts[0].Details["failed"])
}

func TestEvaluate_UnderThreshold(t *testing.T) {
	a := NewAlerter(config.AlertConfig{FailureRateThreshold: 0.5}, zap.NewNop())
	run := model.Run{Counters: model.Counters{Total: 10, Successful: 9, Failed: 1}}
	assert.Empty(t, a.Evaluate(run))
}

func TestEvaluate_Disabled(t *testing.T) {
	a := NewAlerter(config.AlertConfig{}, zap.NewNop())
	run := model.Run{Counters: model.Counters{Total: 10, Failed: 10}}
	assert.Empty(t, a.Evaluate(run))
}

func TestNotify_EnvironmentDetails(t *testing.T) {
	sink := &captureSink{}
	a := NewAlerter(config.AlertConfig{LogFile: "/var/log/sync.log"}, zap.NewNop(), sink)

	a.Notify(context.Background(), "upsert", errors.New("staging: open clients.csv"))

	require.Len(t, sink.alerts, 1)
	got := sink.alerts[0]
	assert.Equal(t, AlertSyncFailure, got.Type)
	assert.Contains(t, got.Message, "upsert failed")
	for _, key := range []string{"phase", "error", "hostname", "os", "go_version", "log_file"} {
		assert.Contains(t, got.Details, key)
	}
}

func TestNotify_NilError(t *testing.T) {
	sink := &captureSink{}
	a := NewAlerter(config.AlertConfig{}, zap.NewNop(), sink)
	a.Notify(context.Background(), "upsert", nil)
	assert.Empty(t, sink.alerts)
}

func TestSendAlerts_Webhook(t *testing.T) {
	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var alert Alert
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&alert))
		assert.Equal(t, AlertSyncFailure, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewAlerter(config.AlertConfig{WebhookURL: srv.URL}, zap.NewNop())
	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertSyncFailure, Message: "one", Timestamp: time.Now()},
		{Type: AlertSyncFailure, Message: "two", Timestamp: time.Now()},
	})

	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestSendAlerts_WebhookErrorSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	core, logs := observer.New(zap.ErrorLevel)
	a := NewAlerter(config.AlertConfig{WebhookURL: srv.URL}, zap.New(core))

	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertSyncFailure, Message: "boom"}})
	assert.Equal(t, 0, sent)
	assert.Equal(t, 1, logs.FilterMessage("monitoring: failed to send alert").Len())
}

func TestSendAlerts_SMTPUnreachable(t *testing.T) {
	a := NewAlerter(config.AlertConfig{
		SMTPHost: "127.0.0.1",
		SMTPPort: 1,
		From:     "sync@example.com",
		To:       []string{"ops@example.com"},
	}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assert.NotPanics(t, func() {
		a.Notify(ctx, "invoices", errors.New("dux: list invoices"))
	})
}

func TestSendAlerts_NoSinks(t *testing.T) {
	a := NewAlerter(config.AlertConfig{}, zap.NewNop())
	assert.Equal(t, 0, a.SendAlerts(context.Background(), []Alert{{Type: AlertSyncFailure}}))
}

func TestSMTPSink_NoRecipients(t *testing.T) {
	s := NewSMTPSink(config.AlertConfig{SMTPHost: "localhost", SMTPPort: 465})
	err := s.Deliver(context.Background(), Alert{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no recipients")
}

func TestBuildMessage(t *testing.T) {
	ts := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	msg := string(buildMessage(config.AlertConfig{
		From:    "sync@example.com",
		To:      []string{"a@example.com", "b@example.com"},
		Subject: "Sync error",
	}, Alert{
		Type:      AlertSyncFailure,
		Severity:  "high",
		Message:   "upsert failed: boom",
		Details:   map[string]any{"phase": "upsert", "hostname": "box"},
		Timestamp: ts,
	}))

	assert.Contains(t, msg, "To: a@example.com, b@example.com\r\n")
	assert.Contains(t, msg, "Subject: Sync error [sync_failure]\r\n")
	assert.Contains(t, msg, "upsert failed: boom")
	assert.Contains(t, msg, "time: 2024-03-01T08:00:00Z")
	assert.Less(t, strings.Index(msg, "hostname: box"), strings.Index(msg, "phase: upsert"))
}
