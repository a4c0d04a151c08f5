package whatsapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/afrigov/sentinel/internal/incident"
)

func testIncident() *incident.Incident {
	return &incident.Incident{
		ID:          "INC-0A1B2C3D",
		Description: "Incendie dans le marché central, plusieurs étals touchés",
		Service:     "Pompiers",
		Severity:    5,
		City:        "Dakar",
		Region:      "Dakar",
	}
}

func testAnalysis() *incident.Analysis {
	return &incident.Analysis{
		RiskScore:   4.5,
		Decision:    incident.DecisionCritical,
		Explanation: "Risque immédiat pour la population.",
		ActionPlan:  []string{"Dépêcher une équipe", "Sécuriser le périmètre", "Informer la mairie", "Rapport final"},
		Contact:     map[string]string{"responsable": "Responsable Pompiers", "telephone": "+221770000000"},
	}
}

func TestSendCriticalAlert_PostsForm(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuthUser string
	var gotForm map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuthUser, _, _ = r.BasicAuth()
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("content-type = %q", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotForm = r.PostForm
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	n := New("AC123", "secret", "whatsapp:+14155238886", "+221771234567")
	n.baseURL = srv.URL

	delivered, err := n.SendCriticalAlert(context.Background(), testIncident(), testAnalysis())
	if err != nil {
		t.Fatalf("SendCriticalAlert: %v", err)
	}
	if !delivered {
		t.Error("expected delivered=true on 201")
	}
	if gotPath != "/2010-04-01/Accounts/AC123/Messages.json" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuthUser != "AC123" {
		t.Errorf("basic auth user = %q, want AC123", gotAuthUser)
	}
	if got := gotForm["To"]; len(got) != 1 || got[0] != "whatsapp:+221771234567" {
		t.Errorf("To = %v", gotForm["To"])
	}
	if got := gotForm["From"]; len(got) != 1 || got[0] != "whatsapp:+14155238886" {
		t.Errorf("From = %v", gotForm["From"])
	}

	body := gotForm["Body"][0]
	for _, want := range []string{"INC-0A1B2C3D", "Pompiers", "Dakar", "5/5", "4.5/5.0", dashboardURL} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestSendCriticalAlert_SkippedWhenUnconfigured(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		n    *Notifier
	}{
		{"no sid", New("", "secret", "whatsapp:+1", "+221771234567")},
		{"no token", New("AC123", "", "whatsapp:+1", "+221771234567")},
		{"no recipient", New("AC123", "secret", "whatsapp:+1", "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			delivered, err := tt.n.SendCriticalAlert(context.Background(), testIncident(), testAnalysis())
			if err != nil {
				t.Fatalf("SendCriticalAlert: %v", err)
			}
			if delivered {
				t.Error("expected delivered=false when unconfigured")
			}
		})
	}
}

func TestSendCriticalAlert_NonCreatedStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":20003,"message":"Authenticate"}`))
	}))
	defer srv.Close()

	n := New("AC123", "wrong", "whatsapp:+1", "+221771234567")
	n.baseURL = srv.URL

	delivered, err := n.SendCriticalAlert(context.Background(), testIncident(), testAnalysis())
	if err == nil {
		t.Fatal("expected error on non-201 status")
	}
	if delivered {
		t.Error("expected delivered=false on error")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error = %q, want to contain 401", err)
	}
}

func TestBuildMessage(t *testing.T) {
	t.Parallel()

	msg := buildMessage(testIncident(), testAnalysis())

	if !strings.Contains(msg, "Responsable Pompiers") {
		t.Error("message missing contact name")
	}
	if !strings.Contains(msg, "+221770000000") {
		t.Error("message missing contact phone")
	}
	// Only the first three action plan steps go out.
	if !strings.Contains(msg, "Informer la mairie") {
		t.Error("message missing third action step")
	}
	if strings.Contains(msg, "Rapport final") {
		t.Error("message should cap the action plan at three steps")
	}
}

func TestBuildMessage_TruncatesDescription(t *testing.T) {
	t.Parallel()

	inc := testIncident()
	inc.Description = strings.Repeat("x", 500)

	msg := buildMessage(inc, testAnalysis())
	if strings.Contains(msg, strings.Repeat("x", maxDescriptionLen+1)) {
		t.Errorf("description not truncated to %d chars", maxDescriptionLen)
	}
	if !strings.Contains(msg, "...") {
		t.Error("expected truncated description to end with ...")
	}
}

func TestBuildMessage_EmptyOptionalFields(t *testing.T) {
	t.Parallel()

	a := &incident.Analysis{RiskScore: 4.5, Decision: incident.DecisionCritical}
	msg := buildMessage(testIncident(), a)

	if strings.Contains(msg, "Responsable :") {
		t.Error("message should omit the contact block without a contact")
	}
	if strings.Contains(msg, "Plan d'action") {
		t.Error("message should omit the plan block without steps")
	}
}
