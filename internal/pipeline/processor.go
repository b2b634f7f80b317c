// Package pipeline runs one inbound WATI event end to end:
// receive, extract, map, create, notify.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/xelth-com/watibridge/internal/archive"
	"github.com/xelth-com/watibridge/internal/extractor"
	"github.com/xelth-com/watibridge/internal/models"
	"github.com/xelth-com/watibridge/internal/notify"
	"github.com/xelth-com/watibridge/internal/orders"
	"github.com/xelth-com/watibridge/internal/store"
	"github.com/xelth-com/watibridge/internal/utils"
	"github.com/xelth-com/watibridge/internal/wati"
)

// ErrInvalidPayload is returned for webhook bodies that are not JSON
var ErrInvalidPayload = errors.New("invalid webhook payload")

// Outcome is the run status reported to the webhook caller
type Outcome string

const (
	OutcomeIgnored  Outcome = "ignored"
	OutcomeError    Outcome = "error"
	OutcomeSuccess  Outcome = "success"
	OutcomeTestMode Outcome = "test_mode"
)

// Messenger is the part of the WATI API a run needs
type Messenger interface {
	DownloadMedia(ctx context.Context, url string) ([]byte, error)
	SendSessionMessage(ctx context.Context, waID, text string) error
}

// MessengerFactory builds a WATI client from the current settings
type MessengerFactory func(s *models.WatiSettings) Messenger

// Publisher receives every webhook log status change
type Publisher interface {
	Broadcast(message interface{})
}

// Event is what Publisher receives
type Event struct {
	Type        string               `json:"type"`
	LogID       string               `json:"logId"`
	Status      models.WebhookStatus `json:"status"`
	WaID        string               `json:"waId,omitempty"`
	Reason      string               `json:"reason,omitempty"`
	SalesOrders []string             `json:"salesOrders,omitempty"`
	At          time.Time            `json:"at"`
}

// Result is returned to the webhook caller
type Result struct {
	Status    Outcome              `json:"status"`
	LogID     string               `json:"log,omitempty"`
	Reason    string               `json:"reason,omitempty"`
	Message   string               `json:"message,omitempty"`
	SONumbers []string             `json:"soNumbers,omitempty"`
	Created   []string             `json:"soCreated,omitempty"`
	Lines     int                  `json:"lines"`
	Groups    []orders.GroupResult `json:"groups,omitempty"`
	Log       *models.WebhookLog   `json:"-"`
}

// Options bound every run
type Options struct {
	MaxConcurrent   int
	Timeout         time.Duration
	FallbackCompany string
}

// Processor executes pipeline runs
type Processor struct {
	logs      store.LogStore
	settings  store.SettingsStore
	builder   *orders.Builder
	archive   archive.Archive
	messenger MessengerFactory
	events    Publisher
	opts      Options
	sem       chan struct{}
	seen      *utils.Deduplicator
}

// NewProcessor creates a processor. events may be nil.
func NewProcessor(logs store.LogStore, settings store.SettingsStore, builder *orders.Builder,
	arc archive.Archive, messenger MessengerFactory, events Publisher, opts Options) *Processor {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	return &Processor{
		logs:      logs,
		settings:  settings,
		builder:   builder,
		archive:   arc,
		messenger: messenger,
		events:    events,
		opts:      opts,
		sem:       make(chan struct{}, opts.MaxConcurrent),
		seen:      utils.NewDeduplicator(10 * time.Minute),
	}
}

// Handle runs the pipeline for one raw webhook body. Errors are only returned
// when the body is unusable or the log cannot be written; every other failure
// is recorded on the log and in the Result.
func (p *Processor) Handle(ctx context.Context, body []byte) (*Result, error) {
	payload, err := wati.ParsePayload(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	settings, err := p.settings.Load(ctx)
	if err != nil {
		return nil, err
	}

	entry := &models.WebhookLog{
		Status:         models.WebhookReceived,
		Payload:        datatypes.JSON(body),
		WhatsAppNumber: payload.WaID,
		MessageType:    payload.Type,
		WatiMessageID:  payload.ID,
		TestMode:       settings.TestMode,
	}
	if err := p.logs.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("create webhook log: %w", err)
	}
	p.publish(entry)

	reason := payload.IgnoreReason()
	if reason == "" && p.seen.IsDuplicate(payload.ID) {
		reason = "duplicate delivery of " + payload.ID
	}
	if reason != "" {
		entry.Status = models.WebhookIgnored
		entry.Reason = reason
		p.save(ctx, entry)
		return &Result{Status: OutcomeIgnored, LogID: entry.ID, Reason: reason, Log: entry}, nil
	}

	select {
	case p.sem <- struct{}{}:
		defer func() { <-p.sem }()
	case <-ctx.Done():
		return p.fail(ctx, entry, fmt.Sprintf("not started: %v", ctx.Err())), nil
	}

	runCtx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()
	return p.run(runCtx, payload, settings, entry), nil
}

func (p *Processor) run(ctx context.Context, payload *wati.WebhookPayload, settings *models.WatiSettings, entry *models.WebhookLog) *Result {
	entry.Status = models.WebhookProcessing
	p.save(ctx, entry)
	log.Printf("📥 Pipeline %s: document from %s", entry.ID, payload.WaID)

	client := p.messenger(settings)
	notifier := notify.New(client)

	data, err := client.DownloadMedia(ctx, payload.MediaURL())
	if err != nil {
		// nothing was created, a redelivery may succeed
		p.seen.Forget(payload.ID)
		return p.fail(ctx, entry, err.Error())
	}

	if p.archive != nil {
		path, err := p.archive.Store(ctx, entry.ID, payload.Filename(), data)
		if err != nil {
			log.Printf("⚠️ Pipeline %s: archive failed: %v", entry.ID, err)
		} else {
			entry.PDFFile = path
			p.save(ctx, entry)
		}
	}

	doc, err := extractor.Extract(data)
	if err != nil {
		problems := err.Error()
		var layoutErr *extractor.LayoutError
		if errors.As(err, &layoutErr) {
			problems = layoutErr.Summary()
		}
		res := p.fail(ctx, entry, "Parse errors: "+problems)
		res.Message = problems
		_, _ = notifier.NotifyParseError(ctx, payload.WaID, settings, problems)
		return res
	}
	log.Printf("📄 Pipeline %s: %d lines, orders %s", entry.ID, len(doc.Lines), strings.Join(doc.SONumbers, ", "))

	opts := orders.OptionsFromSettings(settings, p.opts.FallbackCompany)
	results := p.builder.Build(ctx, orders.GroupLines(doc.Lines), opts)
	created := orders.Created(results)

	if raw, err := json.Marshal(results); err != nil {
		log.Printf("⚠️ Pipeline %s: group results not recorded: %v", entry.ID, err)
	} else {
		entry.GroupResults = datatypes.JSON(raw)
	}
	entry.SalesOrdersCreated = strings.Join(created, ", ")

	ok := false
	for _, r := range results {
		if r.OK() {
			ok = true
		}
	}

	res := &Result{
		LogID:     entry.ID,
		SONumbers: doc.SONumbers,
		Created:   created,
		Lines:     len(doc.Lines),
		Groups:    results,
		Log:       entry,
	}

	summary := orders.Summarize(results)
	switch {
	case settings.TestMode && ok:
		entry.Status = models.WebhookSuccess
		entry.ErrorLog = "TEST MODE - Would create SOs for: " + strings.Join(doc.SONumbers, ", ") +
			fmt.Sprintf("\nLines: %d\n", len(doc.Lines)) + summary
		res.Status = OutcomeTestMode
	case ok:
		entry.Status = models.WebhookSuccess
		entry.ErrorLog = failureSummary(results)
		res.Status = OutcomeSuccess
	default:
		entry.Status = models.WebhookError
		entry.ErrorLog = summary
		res.Status = OutcomeError
		res.Message = strings.Join(notify.FailureLines(results), "; ")
	}
	p.save(ctx, entry)
	log.Printf("✅ Pipeline %s: %s, created [%s]", entry.ID, entry.Status, entry.SalesOrdersCreated)

	// Replies never change the recorded outcome.
	if _, err := notifier.NotifyResults(ctx, payload.WaID, settings, results); err != nil {
		log.Printf("⚠️ Pipeline %s: reply not delivered: %v", entry.ID, err)
	}
	return res
}

func (p *Processor) fail(ctx context.Context, entry *models.WebhookLog, msg string) *Result {
	entry.Status = models.WebhookError
	entry.ErrorLog = msg
	p.save(ctx, entry)
	log.Printf("❌ Pipeline %s: %s", entry.ID, msg)
	return &Result{Status: OutcomeError, LogID: entry.ID, Message: msg, Log: entry}
}

// save persists the entry and publishes its status. Persisting uses a fresh
// context so a timed out run still records how it ended.
func (p *Processor) save(ctx context.Context, entry *models.WebhookLog) {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := p.logs.Update(saveCtx, entry); err != nil {
		log.Printf("⚠️ Pipeline %s: log update failed: %v", entry.ID, err)
	}
	p.publish(entry)
}

func (p *Processor) publish(entry *models.WebhookLog) {
	if p.events == nil {
		return
	}
	var created []string
	if entry.SalesOrdersCreated != "" {
		created = strings.Split(entry.SalesOrdersCreated, ", ")
	}
	p.events.Broadcast(Event{
		Type:        "webhook_log",
		LogID:       entry.ID,
		Status:      entry.Status,
		WaID:        entry.WhatsAppNumber,
		Reason:      entry.Reason,
		SalesOrders: created,
		At:          time.Now().UTC(),
	})
}

func failureSummary(results []orders.GroupResult) string {
	var lines []string
	for _, r := range results {
		if !r.OK() {
			lines = append(lines, fmt.Sprintf("%s %s: %s", r.SONumber, r.Status, r.Error))
		}
		for _, w := range r.Warnings {
			lines = append(lines, fmt.Sprintf("%s: %s", r.SONumber, w))
		}
		if len(r.SkippedItems) > 0 && r.OK() {
			lines = append(lines, fmt.Sprintf("%s: skipped unknown items %s", r.SONumber, strings.Join(r.SkippedItems, ", ")))
		}
	}
	return strings.Join(lines, "\n")
}
