// Package whatsapp sends critical-incident alerts over WhatsApp via the
// Twilio Messages API.
package whatsapp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/afrigov/sentinel/internal/incident"
)

const (
	maxDescriptionLen = 200
	httpTimeout       = 30 * time.Second

	defaultBaseURL = "https://api.twilio.com"
	dashboardURL   = "https://afrigov-sentinel.netlify.app"
)

// Notifier sends critical alerts through a Twilio WhatsApp sender. Disabled
// unless account credentials and a recipient are configured.
type Notifier struct {
	accountSID string
	authToken  string
	from       string
	to         string
	baseURL    string
	client     *http.Client
}

// New creates a WhatsApp notifier. If accountSID, authToken, or to is empty,
// SendCriticalAlert reports the notification as skipped.
func New(accountSID, authToken, from, to string) *Notifier {
	return &Notifier{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		to:         to,
		baseURL:    defaultBaseURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// Enabled reports whether the notifier has enough configuration to send.
func (n *Notifier) Enabled() bool {
	return n.accountSID != "" && n.authToken != "" && n.to != ""
}

// SendCriticalAlert posts the alert message for an escalated incident.
// Returns (false, nil) when the notifier is not configured.
func (n *Notifier) SendCriticalAlert(ctx context.Context, inc *incident.Incident, a *incident.Analysis) (bool, error) {
	if !n.Enabled() {
		return false, nil
	}

	form := url.Values{}
	form.Set("From", n.from)
	form.Set("To", "whatsapp:"+n.to)
	form.Set("Body", buildMessage(inc, a))

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", n.baseURL, n.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("whatsapp: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(n.accountSID, n.authToken)

	resp, err := n.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("whatsapp: post message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("whatsapp: twilio returned %d: %s", resp.StatusCode, string(respBody))
	}
	return true, nil
}

func buildMessage(inc *incident.Incident, a *incident.Analysis) string {
	var b strings.Builder

	fmt.Fprintf(&b, "\U0001f6a8 *ALERTE CRITIQUE AfriGov Sentinel*\n\n")
	fmt.Fprintf(&b, "*Incident :* %s\n", inc.ID)
	fmt.Fprintf(&b, "*Service :* %s\n", inc.Service)
	fmt.Fprintf(&b, "*Lieu :* %s, %s\n", inc.City, inc.Region)
	fmt.Fprintf(&b, "*Sévérité :* %d/5\n", inc.Severity)
	fmt.Fprintf(&b, "*Score de risque :* %.1f/5.0\n\n", a.RiskScore)
	fmt.Fprintf(&b, "*Description :*\n%s\n", truncate(inc.Description, maxDescriptionLen))

	if name := a.Contact["responsable"]; name != "" {
		fmt.Fprintf(&b, "\n*Responsable :* %s\n", name)
	}
	if tel := a.Contact["telephone"]; tel != "" {
		fmt.Fprintf(&b, "*Téléphone :* %s\n", tel)
	}

	if len(a.ActionPlan) > 0 {
		b.WriteString("\n*Plan d'action :*\n")
		for i, step := range a.ActionPlan {
			if i == 3 {
				break
			}
			fmt.Fprintf(&b, "→ %s\n", step)
		}
	}

	fmt.Fprintf(&b, "\nSuivi : %s", dashboardURL)
	return b.String()
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
