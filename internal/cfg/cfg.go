package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// Config adds engine-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	APIToken              string

	CountdownSeconds int
	MinContacts      int

	LocationEndpoint       string
	LocationTimeoutSeconds int
	AttemptTimeoutSeconds  int

	SMSAPIBase string
	SMSSID     string
	SMSToken   string
	SMSFrom    string
	ChatNative bool

	SelfHostedGatewayURL     string
	SelfHostedGatewayKey     string
	SelfHostedGatewaySession string

	PaidGatewayBase     string
	PaidGatewayInstance string
	PaidGatewayToken    string

	StateDBPath          string
	DatabaseURL          string
	FlushIntervalSeconds int
	ProbeURL             string
	ProbeIntervalSeconds int
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on API requests (empty = no auth)")

	fs.IntVar(&c.CountdownSeconds, "countdown-seconds", 10, "cancellation window before dispatch (1..120)")
	fs.IntVar(&c.MinContacts, "min-contacts", 2, "minimum emergency contacts required to arm (>= 2)")

	fs.StringVar(&c.LocationEndpoint, "location-endpoint", "", "local positioning endpoint URL (empty = no location)")
	fs.IntVar(&c.LocationTimeoutSeconds, "location-timeout-seconds", 3, "budget for the location snapshot at dispatch time")
	fs.IntVar(&c.AttemptTimeoutSeconds, "attempt-timeout-seconds", 15, "budget for a single channel delivery attempt")

	fs.StringVar(&c.SMSAPIBase, "sms-api-base", "https://api.twilio.com", "SMS provider API base URL")
	fs.StringVar(&c.SMSSID, "sms-sid", "", "SMS provider account SID")
	fs.StringVar(&c.SMSToken, "sms-token", "", "SMS provider auth token")
	fs.StringVar(&c.SMSFrom, "sms-from", "", "sender phone number in E.164 form")
	fs.BoolVar(&c.ChatNative, "chat-native", false, "enable the SMS provider's native chat channel as last fallback")

	fs.StringVar(&c.SelfHostedGatewayURL, "selfhosted-gateway-url", "", "self-hosted chat gateway base URL (empty = disabled)")
	fs.StringVar(&c.SelfHostedGatewayKey, "selfhosted-gateway-key", "", "self-hosted chat gateway API key")
	fs.StringVar(&c.SelfHostedGatewaySession, "selfhosted-gateway-session", "default", "self-hosted chat gateway session name")

	fs.StringVar(&c.PaidGatewayBase, "paid-gateway-base", "", "paid chat gateway base URL (empty = disabled)")
	fs.StringVar(&c.PaidGatewayInstance, "paid-gateway-instance", "", "paid chat gateway instance ID")
	fs.StringVar(&c.PaidGatewayToken, "paid-gateway-token", "", "paid chat gateway token")

	fs.StringVar(&c.StateDBPath, "state-db-path", "guardian.db", "path to the on-device state database (empty = in-memory)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL for the contact store (empty = in-memory store)")
	fs.IntVar(&c.FlushIntervalSeconds, "flush-interval-seconds", 60, "offline-queue safety-net flush interval (1..3600)")
	fs.StringVar(&c.ProbeURL, "probe-url", "https://www.gstatic.com/generate_204", "connectivity probe URL")
	fs.IntVar(&c.ProbeIntervalSeconds, "probe-interval-seconds", 30, "connectivity probe interval (1..3600)")
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

	if c.CountdownSeconds <= 0 || c.CountdownSeconds > 120 {
		errs = append(errs, fmt.Errorf("invalid COUNTDOWN_SECONDS %d (must be 1..120)", c.CountdownSeconds))
	}
	if c.MinContacts < 2 {
		errs = append(errs, fmt.Errorf("invalid MIN_CONTACTS %d (must be >= 2)", c.MinContacts))
	}
	if c.LocationTimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("invalid LOCATION_TIMEOUT_SECONDS %d (must be > 0)", c.LocationTimeoutSeconds))
	}
	if c.AttemptTimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("invalid ATTEMPT_TIMEOUT_SECONDS %d (must be > 0)", c.AttemptTimeoutSeconds))
	}

	// SMS is the primary channel and is always required
	if c.SMSSID == "" {
		errs = append(errs, errors.New("SMS_SID is required"))
	}
	if c.SMSToken == "" {
		errs = append(errs, errors.New("SMS_TOKEN is required"))
	}
	if c.SMSFrom == "" {
		errs = append(errs, errors.New("SMS_FROM is required"))
	}

	// Gateways are optional but must be complete when enabled
	if c.SelfHostedGatewayURL != "" && c.SelfHostedGatewayKey == "" {
		errs = append(errs, errors.New("SELFHOSTED_GATEWAY_KEY is required when SELFHOSTED_GATEWAY_URL is set"))
	}
	if c.PaidGatewayBase != "" {
		if c.PaidGatewayInstance == "" {
			errs = append(errs, errors.New("PAID_GATEWAY_INSTANCE is required when PAID_GATEWAY_BASE is set"))
		}
		if c.PaidGatewayToken == "" {
			errs = append(errs, errors.New("PAID_GATEWAY_TOKEN is required when PAID_GATEWAY_BASE is set"))
		}
	}

	if c.FlushIntervalSeconds <= 0 || c.FlushIntervalSeconds > 3600 {
		errs = append(errs, fmt.Errorf("invalid FLUSH_INTERVAL_SECONDS %d (must be 1..3600)", c.FlushIntervalSeconds))
	}
	if c.ProbeIntervalSeconds <= 0 || c.ProbeIntervalSeconds > 3600 {
		errs = append(errs, fmt.Errorf("invalid PROBE_INTERVAL_SECONDS %d (must be 1..3600)", c.ProbeIntervalSeconds))
	}
	if c.ProbeURL == "" {
		errs = append(errs, errors.New("PROBE_URL is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
