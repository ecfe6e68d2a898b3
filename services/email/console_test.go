package emailsvc

import (
	"bytes"
	"encoding/base64"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
)

func newTestConsole(out *bytes.Buffer) consoleService {
	return consoleService{
		from:       mail.Address{Name: "Darasa", Address: "noreply@darasa.test"},
		subjPrefix: "[Darasa] ",
		out:        out,
		logger:     core.NewNopLogger(),
	}
}

func Test_consoleService_send(t *testing.T) {
	const cal = "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"

	tests := []struct {
		name       string
		attach     bool
		wantParts  []string
		wantAbsent []string
	}{
		{
			name:       "text only",
			wantParts:  []string{"Subject: [Darasa] Hello", "To: \"Student\" <student@example.com>", "multipart/alternative", "Hi there"},
			wantAbsent: []string{"multipart/mixed", "Content-Disposition"},
		},
		{
			name:   "with calendar",
			attach: true,
			wantParts: []string{
				"multipart/mixed", "multipart/alternative", "Hi there",
				"Content-Type: text/calendar; charset=utf-8",
				"Content-Transfer-Encoding: base64",
				"Content-Disposition: attachment; filename=intro.ics",
				base64.StdEncoding.EncodeToString([]byte(cal)),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := new(bytes.Buffer)
			svc := newTestConsole(out)
			msg := core.EmailMessage{
				To:      []mail.Address{{Name: "Student", Address: "student@example.com"}},
				Subject: "Hello",
				BodyStr: "Hi there",
			}
			if tt.attach {
				require.NoError(t, msg.Attach(strings.NewReader(cal), "intro.ics", "text/calendar; charset=utf-8"))
				assert.True(t, msg.HasAttachments())
			}
			require.NoError(t, msg.Render())
			require.NoError(t, svc.send(msg))

			got := out.String()
			for _, part := range tt.wantParts {
				assert.Contains(t, got, part)
			}
			for _, part := range tt.wantAbsent {
				assert.NotContains(t, got, part)
			}
		})
	}
}

func TestEmailMessage_Attach_detectsContentType(t *testing.T) {
	var msg core.EmailMessage
	require.NoError(t, msg.Attach(strings.NewReader("plain words"), "notes.txt"))
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "text/plain; charset=utf-8", msg.Attachments[0].ContentType)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("plain words")), msg.Attachments[0].Content.String())
}
