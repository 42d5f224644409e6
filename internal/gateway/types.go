package gateway

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/korgan/korg/internal/mail"
)

// envelope wraps every gateway response.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

// APIError is the error object of a failed response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

// MessageSummary is a message as listed by GET .../messages.
type MessageSummary struct {
	ID           string   `json:"id"`
	ThreadID     string   `json:"threadId"`
	LabelIDs     []string `json:"labelIds"`
	Snippet      string   `json:"snippet"`
	From         string   `json:"from"`
	Subject      string   `json:"subject"`
	InternalDate string   `json:"internalDate"` // decimal Unix milliseconds
}

// MessageList is the data of GET .../messages.
type MessageList struct {
	Messages           []MessageSummary `json:"messages"`
	NextPageToken      string           `json:"nextPageToken"`
	ResultSizeEstimate int              `json:"resultSizeEstimate"`
}

// MessageDetail is the data of GET .../messages/{id}.
type MessageDetail struct {
	MessageSummary
	To      []string          `json:"to"`
	Cc      []string          `json:"cc"`
	Body    string            `json:"body"`
	HTML    bool              `json:"html"`
	Headers map[string]string `json:"headers"`
}

// UnreadCount is the data of GET .../unread-count.
type UnreadCount struct {
	UnreadCount      int    `json:"unreadCount"`
	Query            string `json:"query"`
	ProcessingTimeMs int64  `json:"processingTimeMs"`
}

// parseFailure builds a KindParse failure. Decoders pass an empty op so the
// calling operation names the failure.
func parseFailure(op, format string, args ...any) *mail.Failure {
	return &mail.Failure{Kind: mail.KindParse, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Item validates the summary and converts it. Read and starred state come
// from the UNREAD and STARRED labels.
func (m MessageSummary) Item() (mail.Item, error) {
	if m.ID == "" {
		return mail.Item{}, parseFailure("", "message without id")
	}
	date, err := ParseMillis(m.InternalDate)
	if err != nil {
		return mail.Item{}, parseFailure("", "message %s: %v", m.ID, err)
	}
	return mail.Item{
		ID:       m.ID,
		ThreadID: m.ThreadID,
		From:     m.From,
		Subject:  m.Subject,
		Snippet:  m.Snippet,
		Read:     !slices.Contains(m.LabelIDs, mail.LabelUnread),
		Starred:  slices.Contains(m.LabelIDs, mail.LabelStarred),
		Date:     date,
		Labels:   slices.Clone(m.LabelIDs),
	}, nil
}

// Page converts the list, failing on the first invalid message.
func (l MessageList) Page() (mail.Page, error) {
	items := make([]mail.Item, 0, len(l.Messages))
	for _, m := range l.Messages {
		it, err := m.Item()
		if err != nil {
			return mail.Page{}, err
		}
		items = append(items, it)
	}
	return mail.Page{
		Items:              items,
		NextPageToken:      l.NextPageToken,
		ResultSizeEstimate: l.ResultSizeEstimate,
		HasMore:            l.NextPageToken != "",
	}, nil
}

// Detail validates and converts a full message.
func (d MessageDetail) Detail() (mail.Detail, error) {
	it, err := d.Item()
	if err != nil {
		return mail.Detail{}, err
	}
	return mail.Detail{
		Item:    it,
		To:      d.To,
		Cc:      d.Cc,
		Body:    d.Body,
		HTML:    d.HTML,
		Headers: d.Headers,
	}, nil
}
