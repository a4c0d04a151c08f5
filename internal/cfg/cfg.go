package cfg

import (
	"errors"
	"flag"
	"fmt"
	"strings"
)

// Config adds application-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	ElasticURL            string
	ElasticAPIKey         string
	KibanaURL             string
	KibanaAPIKey          string
	AgentID               string
	TwilioAccountSID      string
	TwilioAuthToken       string
	TwilioFrom            string
	TwilioTo              string
	APIToken              string
	CORSOrigins           string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.ElasticURL, "elastic-url", "", "Elasticsearch endpoint URL (empty = in-memory store)")
	fs.StringVar(&c.ElasticAPIKey, "elastic-api-key", "", "Elasticsearch API key")
	fs.StringVar(&c.KibanaURL, "kibana-url", "", "Kibana base URL for the agent-builder converse API (empty = fallback analysis only)")
	fs.StringVar(&c.KibanaAPIKey, "kibana-api-key", "", "Kibana API key (defaults to the Elasticsearch API key)")
	fs.StringVar(&c.AgentID, "agent-id", "afrigov-sentinel", "agent-builder agent id to converse with")
	fs.StringVar(&c.TwilioAccountSID, "twilio-account-sid", "", "Twilio account SID for WhatsApp alerts")
	fs.StringVar(&c.TwilioAuthToken, "twilio-auth-token", "", "Twilio auth token for WhatsApp alerts")
	fs.StringVar(&c.TwilioFrom, "twilio-from", "whatsapp:+14155238886", "Twilio WhatsApp sender number")
	fs.StringVar(&c.TwilioTo, "twilio-to", "", "WhatsApp recipient number for critical alerts (empty = notifications disabled)")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token guarding status updates (empty = unauthenticated)")
	fs.StringVar(&c.CORSOrigins, "cors-origins", "*", "comma-separated list of allowed CORS origins")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// Agent id is required whenever a Kibana endpoint is configured
	if c.KibanaURL != "" && c.AgentID == "" {
		errs = append(errs, errors.New("AGENT_ID is required when KIBANA_URL is set"))
	}

	// Twilio credentials come as a set
	if c.TwilioTo != "" && (c.TwilioAccountSID == "" || c.TwilioAuthToken == "") {
		errs = append(errs, errors.New("TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN are required when TWILIO_TO is set"))
	}
	if c.TwilioFrom != "" && !strings.HasPrefix(c.TwilioFrom, "whatsapp:") {
		errs = append(errs, fmt.Errorf("invalid TWILIO_FROM %q (must start with whatsapp:)", c.TwilioFrom))
	}

	if c.CORSOrigins == "" {
		errs = append(errs, errors.New("CORS_ORIGINS must not be empty"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// AgentKey returns the API key the agent client should use: the Kibana key
// when set, otherwise the Elasticsearch key.
func (c *Config) AgentKey() string {
	if c.KibanaAPIKey != "" {
		return c.KibanaAPIKey
	}
	return c.ElasticAPIKey
}

// Origins splits the configured CORS origin list.
func (c *Config) Origins() []string {
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
