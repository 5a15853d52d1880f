// Package notify assembles and dispatches convocation notices. Recipients are
// partitioned into specialized notices (invitees presenting an agenda item)
// and one general notice shared by the remaining stakeholders.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Attachment is a file included with a notice, carried in base64 form.
type Attachment struct {
	Name   string
	Base64 string
}

// Message is one outbound mail to a single recipient.
type Message struct {
	To         string
	Subject    string
	Body       string
	Attachment Attachment
}

// Mailer delivers a single message through an external transactional call.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Invitee mirrors the convoked attendee fields the dispatcher needs.
type Invitee struct {
	Name  string
	Email string
}

// AgendaItem mirrors the agenda fields rendered into notice bodies. Slice
// position determines the estimated start offset.
type AgendaItem struct {
	Title     string
	Presenter string
	Duration  int
	LinkURL   string
	LinkLabel string
}

// Announcement carries everything needed to build the notice set for one
// session.
type Announcement struct {
	Subject      string
	Greeting     string
	StartsAt     time.Time
	DateLabel    string
	TimeLabel    string
	Invitees     []Invitee
	MemberEmails []string
	Items        []AgendaItem
	Attachment   Attachment
}

// Notice is a fully assembled message for one recipient.
type Notice struct {
	Message     Message
	Specialized bool
}

// SendResult records the outcome of one recipient's send.
type SendResult struct {
	Recipient   string
	Specialized bool
	Err         error
}

// Report aggregates per-recipient outcomes for one dispatch run. A failed
// send never aborts the remaining loop; callers surface the aggregate.
type Report struct {
	Results []SendResult
}

// Sent counts successful deliveries.
func (r Report) Sent() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the recipients whose sends errored.
func (r Report) Failed() []string {
	var out []string
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res.Recipient)
		}
	}
	return out
}

// Summary renders the aggregate outcome for logs and operator messages.
func (r Report) Summary() string {
	failed := r.Failed()
	if len(failed) == 0 {
		return fmt.Sprintf("sent to %d/%d recipients", r.Sent(), len(r.Results))
	}
	return fmt.Sprintf("sent to %d/%d recipients, failures: [%s]",
		r.Sent(), len(r.Results), strings.Join(failed, ", "))
}

// Dispatcher builds and delivers notices through a Mailer.
type Dispatcher struct {
	mailer Mailer
	logger *slog.Logger
}

// NewDispatcher wires a dispatcher around the provided mailer.
func NewDispatcher(mailer Mailer, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{mailer: mailer, logger: logger}
}

// Build partitions the announcement into notices. Invitees whose name matches
// an agenda item's presenter receive one specialized notice per presented
// item; everyone else (board members plus uncovered invitees, deduplicated)
// shares the general notice.
func Build(a Announcement) []Notice {
	notices := make([]Notice, 0, len(a.Invitees)+len(a.MemberEmails))
	specialized := make(map[string]struct{})

	for idx, item := range a.Items {
		for _, invitee := range a.Invitees {
			if invitee.Name == "" || invitee.Name != item.Presenter {
				continue
			}
			specialized[strings.ToLower(invitee.Email)] = struct{}{}
			notices = append(notices, Notice{
				Specialized: true,
				Message: Message{
					To:         invitee.Email,
					Subject:    a.Subject,
					Body:       specializedBody(a, idx, item),
					Attachment: a.Attachment,
				},
			})
		}
	}

	generalBody := generalNoticeBody(a)
	seen := make(map[string]struct{})
	for _, email := range a.MemberEmails {
		addGeneral(&notices, seen, email, a, generalBody)
	}
	for _, invitee := range a.Invitees {
		if _, ok := specialized[strings.ToLower(invitee.Email)]; ok {
			continue
		}
		addGeneral(&notices, seen, invitee.Email, a, generalBody)
	}

	return notices
}

func addGeneral(notices *[]Notice, seen map[string]struct{}, email string, a Announcement, body string) {
	key := strings.ToLower(strings.TrimSpace(email))
	if key == "" {
		return
	}
	if _, ok := seen[key]; ok {
		return
	}
	seen[key] = struct{}{}
	*notices = append(*notices, Notice{
		Message: Message{
			To:         email,
			Subject:    a.Subject,
			Body:       body,
			Attachment: a.Attachment,
		},
	})
}

// BuildDocumentNotices assembles one identical notice per recipient,
// deduplicated case-insensitively. Used to distribute a finished document,
// such as the saved acta, where no recipient gets specialized content.
func BuildDocumentNotices(subject, body string, recipients []string, attachment Attachment) []Notice {
	seen := make(map[string]struct{})
	notices := make([]Notice, 0, len(recipients))
	for _, email := range recipients {
		key := strings.ToLower(strings.TrimSpace(email))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		notices = append(notices, Notice{
			Message: Message{
				To:         email,
				Subject:    subject,
				Body:       body,
				Attachment: attachment,
			},
		})
	}
	return notices
}

// EstimatedStart computes when the item at the given position is expected to
// begin: the session start plus the durations of every earlier item.
func EstimatedStart(startsAt time.Time, items []AgendaItem, index int) time.Time {
	if index < 0 || index >= len(items) {
		return startsAt
	}
	offset := 0
	for _, item := range items[:index] {
		offset += item.Duration
	}
	return startsAt.Add(time.Duration(offset) * time.Minute)
}

func specializedBody(a Announcement, index int, item AgendaItem) string {
	var b strings.Builder
	if a.Greeting != "" {
		b.WriteString(a.Greeting)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Se le convoca a presentar el punto \"%s\".\n", item.Title)
	fmt.Fprintf(&b, "Fecha: %s\n", a.DateLabel)
	if !a.StartsAt.IsZero() {
		fmt.Fprintf(&b, "Hora estimada: %s\n", EstimatedStart(a.StartsAt, a.Items, index).Format("15:04"))
	}
	fmt.Fprintf(&b, "Duración asignada: %d minutos\n", item.Duration)
	if item.LinkURL != "" {
		label := item.LinkLabel
		if label == "" {
			label = item.LinkURL
		}
		fmt.Fprintf(&b, "Documento: %s (%s)\n", label, item.LinkURL)
	}
	return b.String()
}

func generalNoticeBody(a Announcement) string {
	var b strings.Builder
	if a.Greeting != "" {
		b.WriteString(a.Greeting)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Se le convoca a la sesión del %s a las %s.\n\nAgenda:\n", a.DateLabel, a.TimeLabel)
	for i, item := range a.Items {
		fmt.Fprintf(&b, "%d. %s (%d min)", i+1, item.Title, item.Duration)
		if item.Presenter != "" {
			fmt.Fprintf(&b, ", presenta %s", item.Presenter)
		}
		if item.LinkURL != "" {
			fmt.Fprintf(&b, " [%s]", item.LinkURL)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Dispatch sends every notice sequentially, recording each outcome. A failed
// send is logged and recorded; it never aborts the remaining recipients.
func (d *Dispatcher) Dispatch(ctx context.Context, notices []Notice) Report {
	report := Report{Results: make([]SendResult, 0, len(notices))}
	if d == nil || d.mailer == nil {
		return report
	}

	for _, notice := range notices {
		err := d.mailer.Send(ctx, notice.Message)
		if err != nil {
			d.logger.ErrorContext(ctx, "notice delivery failed",
				"recipient", notice.Message.To,
				"specialized", notice.Specialized,
				"error", err,
			)
		}
		report.Results = append(report.Results, SendResult{
			Recipient:   notice.Message.To,
			Specialized: notice.Specialized,
			Err:         err,
		})
	}

	d.logger.InfoContext(ctx, "dispatch finished", "summary", report.Summary())
	return report
}
