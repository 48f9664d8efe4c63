package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureTransport struct {
	sent []Message
}

func (c *captureTransport) Send(ctx context.Context, msg Message) error {
	c.sent = append(c.sent, msg)
	return nil
}

func TestMailerRendersTemplates(t *testing.T) {
	tr := &captureTransport{}
	m, err := NewMailer(tr, "no-reply@nutriadmin.org", "https://app.example.org/login")
	require.NoError(t, err)
	ctx := context.Background()
	to := Recipient{Email: "Owner@Acme.example", FirstName: "Ana", LastName: "Rivera"}

	require.NoError(t, m.SendWelcome(ctx, to, " Acme Pantry ", "9c272156"))
	require.NoError(t, m.SendTemporaryPassword(ctx, to, "1a2b3c4d"))
	require.NoError(t, m.SendAgencyAssignment(ctx, Recipient{Email: "mon@example.org"}, "Acme Pantry", true))
	require.NoError(t, m.SendPasswordReset(ctx, to, "5e6f7a8b"))
	require.Len(t, tr.sent, 4)

	welcome := tr.sent[0]
	assert.Equal(t, "no-reply@nutriadmin.org", welcome.From)
	assert.Equal(t, "Owner@Acme.example", welcome.To)
	assert.Contains(t, welcome.HTML, "Hola Ana Rivera")
	assert.Contains(t, welcome.HTML, "<strong>Acme Pantry</strong>")
	assert.Contains(t, welcome.HTML, "owner@acme.example")
	assert.Contains(t, welcome.HTML, "9c272156")
	assert.Contains(t, welcome.HTML, "https://app.example.org/login")

	assert.Contains(t, tr.sent[1].HTML, "1a2b3c4d")
	assert.Contains(t, tr.sent[2].HTML, "Hola mon@example.org")
	assert.Contains(t, tr.sent[2].HTML, "como monitor")
	assert.Contains(t, tr.sent[3].HTML, "5e6f7a8b")
}

func TestMailerEscapesInput(t *testing.T) {
	tr := &captureTransport{}
	m, err := NewMailer(tr, "from@example.org", "/")
	require.NoError(t, err)

	require.NoError(t, m.SendAgencyAssignment(context.Background(), Recipient{Email: "x@example.org"}, "<script>x</script>", false))
	assert.NotContains(t, tr.sent[0].HTML, "<script>")
	assert.NotContains(t, tr.sent[0].HTML, "como monitor")

	assert.Error(t, m.SendPasswordReset(context.Background(), Recipient{}, "pw"))
}

func TestRelayTransport(t *testing.T) {
	var got Message
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		if got.To == "reject@example.org" {
			http.Error(w, "mailbox unavailable", http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	tr := NewRelayTransport(srv.URL, "relay-key", time.Second)
	require.NoError(t, tr.Send(context.Background(), Message{To: "a@example.org", Subject: "s", HTML: "<p>x</p>"}))
	assert.Equal(t, "Bearer relay-key", auth)
	assert.Equal(t, "a@example.org", got.To)

	err := tr.Send(context.Background(), Message{To: "reject@example.org"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "502"), err.Error())
}
