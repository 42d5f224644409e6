package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korgan/korg/internal/mail"
)

func TestMessageSummaryItem(t *testing.T) {
	tests := []struct {
		name        string
		msg         MessageSummary
		wantRead    bool
		wantStarred bool
		wantErr     bool
	}{
		{
			name:     "read without UNREAD label",
			msg:      MessageSummary{ID: "m1", LabelIDs: []string{"INBOX"}, InternalDate: "1700000000000"},
			wantRead: true,
		},
		{
			name:        "unread and starred",
			msg:         MessageSummary{ID: "m2", LabelIDs: []string{"INBOX", "UNREAD", "STARRED"}, InternalDate: "1700000000000"},
			wantStarred: true,
		},
		{
			name:    "missing id",
			msg:     MessageSummary{InternalDate: "1700000000000"},
			wantErr: true,
		},
		{
			name:    "bad date",
			msg:     MessageSummary{ID: "m3", InternalDate: "yesterday"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, err := tt.msg.Item()
			if tt.wantErr {
				assert.True(t, mail.IsKind(err, mail.KindParse))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRead, it.Read)
			assert.Equal(t, tt.wantStarred, it.Starred)
			assert.Equal(t, time.UnixMilli(1700000000000).UTC(), it.Date)
		})
	}
}

func TestMessageListPage(t *testing.T) {
	l := MessageList{
		Messages: []MessageSummary{
			{ID: "a", InternalDate: "2000"},
			{ID: "b", InternalDate: "1000"},
		},
		NextPageToken:      "next",
		ResultSizeEstimate: 40,
	}
	p, err := l.Page()
	require.NoError(t, err)
	assert.Len(t, p.Items, 2)
	assert.True(t, p.HasMore)
	assert.Equal(t, "next", p.NextPageToken)

	l.NextPageToken = ""
	p, err = l.Page()
	require.NoError(t, err)
	assert.False(t, p.HasMore)

	l.Messages = append(l.Messages, MessageSummary{ID: "c"})
	_, err = l.Page()
	assert.Error(t, err)
}

func TestAPIError(t *testing.T) {
	assert.Equal(t, "not found", (&APIError{Code: "NOT_FOUND", Message: "not found"}).Error())
	assert.Equal(t, "NOT_FOUND", (&APIError{Code: "NOT_FOUND"}).Error())
}
