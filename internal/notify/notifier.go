// Package notify composes the WhatsApp replies sent back to the person who
// submitted a listing.
package notify

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/xelth-com/watibridge/internal/models"
	"github.com/xelth-com/watibridge/internal/orders"
)

// Sender delivers a text message to a WhatsApp chat
type Sender interface {
	SendSessionMessage(ctx context.Context, waID, text string) error
}

// Notifier sends run summaries to the originating chat
type Notifier struct {
	sender Sender
}

// New creates a notifier
func New(sender Sender) *Notifier {
	return &Notifier{sender: sender}
}

// NotifyParseError tells the sender the document could not be read.
// It reports whether a message was sent.
func (n *Notifier) NotifyParseError(ctx context.Context, waID string, s *models.WatiSettings, problems string) (bool, error) {
	if !s.NotifySenderOnError {
		return false, nil
	}
	return n.send(ctx, waID, ParseErrorMessage(s.ParseErrorTemplate, problems))
}

// NotifyResults sends one message covering every group of the run. Test mode
// runs are summarized in the webhook log only.
func (n *Notifier) NotifyResults(ctx context.Context, waID string, s *models.WatiSettings, results []orders.GroupResult) (bool, error) {
	if s.TestMode || len(results) == 0 {
		return false, nil
	}

	var created []orders.GroupResult
	for _, r := range results {
		if r.Status == orders.StatusCreated {
			created = append(created, r)
		}
	}
	failures := FailureLines(results)

	if len(created) == 0 {
		if !s.NotifySenderOnError {
			return false, nil
		}
		return n.send(ctx, waID, CreateErrorMessage(s.CreateErrorTemplate, strings.Join(failures, "; ")))
	}

	var lines []string
	if s.NotifySenderOnSuccess {
		lines = append(lines, SuccessMessage(s.SuccessMessageTemplate, created))
	}
	if s.NotifySenderOnError {
		lines = append(lines, failures...)
	}
	if len(lines) == 0 {
		return false, nil
	}
	return n.send(ctx, waID, strings.Join(lines, "\n"))
}

func (n *Notifier) send(ctx context.Context, waID, text string) (bool, error) {
	if err := n.sender.SendSessionMessage(ctx, waID, text); err != nil {
		log.Printf("⚠️ Notify: reply to %s failed: %v", waID, err)
		return false, err
	}
	log.Printf("📤 Notify: reply sent to %s", waID)
	return true, nil
}

// SuccessMessage fills {so_name}, {item_count} and {delivery_date} for the created groups
func SuccessMessage(tmpl string, created []orders.GroupResult) string {
	if strings.TrimSpace(tmpl) == "" {
		tmpl = models.DefaultSuccessTemplate
	}
	names := make([]string, 0, len(created))
	items := 0
	delivery := ""
	for _, r := range created {
		name := r.SONumber
		if r.OrderName != "" && r.OrderName != r.SONumber {
			name = fmt.Sprintf("%s (%s)", r.SONumber, r.OrderName)
		}
		names = append(names, name)
		items += len(r.Lines)
		if r.DeliveryDate != "" && (delivery == "" || r.DeliveryDate < delivery) {
			delivery = r.DeliveryDate
		}
	}
	return strings.NewReplacer(
		"{so_name}", strings.Join(names, ", "),
		"{item_count}", strconv.Itoa(items),
		"{delivery_date}", delivery,
	).Replace(tmpl)
}

// FailureLines describes every group that did not produce an order, plus skipped items of the rest
func FailureLines(results []orders.GroupResult) []string {
	var out []string
	for _, r := range results {
		switch r.Status {
		case orders.StatusRejected, orders.StatusFailed:
			out = append(out, fmt.Sprintf("%s %s: %s", r.SONumber, r.Status, r.Error))
		default:
			if len(r.SkippedItems) > 0 {
				out = append(out, fmt.Sprintf("%s: skipped unknown items %s", r.SONumber, strings.Join(r.SkippedItems, ", ")))
			}
		}
	}
	return out
}

// ParseErrorMessage fills {error} in the parse error template
func ParseErrorMessage(tmpl, problems string) string {
	if strings.TrimSpace(tmpl) == "" {
		tmpl = models.DefaultParseErrorTemplate
	}
	return strings.ReplaceAll(tmpl, "{error}", problems)
}

// CreateErrorMessage fills {error} in the order creation error template
func CreateErrorMessage(tmpl, cause string) string {
	if strings.TrimSpace(tmpl) == "" {
		tmpl = models.DefaultCreateErrorTemplate
	}
	return strings.ReplaceAll(tmpl, "{error}", cause)
}
