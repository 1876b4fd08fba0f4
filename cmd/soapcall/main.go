// Command soapcall performs one SOAP API call from the command line.
//
// Credentials can be provided via:
//   - the TOML config file (-config)
//   - ADSOAP_* environment variables, optionally loaded from a .env file
//   - stdin prompt for the password (if neither is set)
//
// Usage:
//
//	soapcall -config adsoap.toml -service CampaignService -selector selector.yaml
//	soapcall -config adsoap.toml -service AdGroupCriterionService -ops ops.yaml
//	soapcall -config adsoap.toml -service CampaignService -envelope request.xml
//
// Selectors and operations are YAML (or JSON) documents:
//
//	# ops.yaml
//	- operator: ADD
//	  type: AdGroupCriterionOperation
//	  operand:
//	    adGroupId: 42
//	    criterion: {type: Keyword, text: mars cruise, matchType: BROAD}
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/smnsjas/go-adsoap/client"
	"github.com/smnsjas/go-adsoap/codec"
	adlog "github.com/smnsjas/go-adsoap/internal/log"
	"github.com/smnsjas/go-adsoap/soap"
	"github.com/smnsjas/go-adsoap/soap/transport"
)

var (
	okLabel    = color.New(color.FgGreen, color.Bold)
	errorLabel = color.New(color.FgRed, color.Bold)
	headerText = color.New(color.FgCyan)
	metricText = color.New(color.FgHiBlack)
)

func main() {
	configPath := flag.String("config", "", "Path to TOML config file")
	envFile := flag.String("env", ".env", "Optional .env file with ADSOAP_* variables")
	service := flag.String("service", "", "Service name (e.g. CampaignService)")
	method := flag.String("method", "", "Method name (default: get, or mutate with -ops)")
	group := flag.String("group", "", "Service group (default from config)")
	selectorFile := flag.String("selector", "", "YAML/JSON selector for get")
	opsFile := flag.String("ops", "", "YAML/JSON operation list for mutate")
	envelopeFile := flag.String("envelope", "", "Send this request envelope verbatim")
	returnType := flag.String("return-type", "", "Declared type of rval in the type table")
	raw := flag.Bool("raw", false, "Print the response body without decoding")
	showWire := flag.Bool("wire", false, "Print the captured HTTP exchange")
	logLevel := flag.String("loglevel", "", "Log level: debug, info, warn, error (empty = no logging)")
	logFile := flag.String("logfile", "", "Write logs to this file instead of stderr")
	logMaxSize := flag.Int64("log-max-size", 10<<20, "Rotate the log file at this size in bytes")
	logBackups := flag.Int("log-backups", 3, "Rotated log files to keep")
	logCompress := flag.Bool("log-compress", true, "Gzip rotated log files")
	retryAttempts := flag.Uint("retry-attempts", 1, "Total tries for retryable failures")
	retryDelay := flag.Duration("retry-delay", time.Second, "Initial retry delay")
	breakerThreshold := flag.Int("breaker-threshold", 0, "Circuit Breaker failure threshold (0 to disable)")
	breakerTimeout := flag.Duration("breaker-timeout", 30*time.Second, "Circuit Breaker reset timeout")
	flag.Parse()

	if *service == "" {
		fmt.Fprintln(os.Stderr, "Error: -service is required")
		flag.Usage()
		os.Exit(1)
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error: load %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fail(err)
	}
	if *raw {
		cfg.RawResponse = true
	}

	logger, closeLog, err := newLogger(*logLevel, *logFile, adlog.RotateOptions{
		MaxSize:    *logMaxSize,
		MaxBackups: *logBackups,
		Compress:   *logCompress,
	})
	if err != nil {
		fail(err)
	}
	defer closeLog()
	logger.Debug("config loaded", "config", cfg)

	opts := []client.Option{client.WithLogger(logger)}
	if *breakerThreshold > 0 {
		opts = append(opts, client.WithCircuitBreaker(&client.CircuitBreakerPolicy{
			Enabled:          true,
			FailureThreshold: *breakerThreshold,
			ResetTimeout:     *breakerTimeout,
			OnStateChange: func(from, to client.CircuitState) {
				logger.Warn("circuit breaker state changed", "from", from, "to", to)
			},
		}))
	}

	c, err := client.New(cfg, opts...)
	if err != nil {
		fail(err)
	}
	defer c.Close()

	req, err := buildRequest(*service, *method, *group, *selectorFile, *opsFile, *envelopeFile)
	if err != nil {
		fail(err)
	}
	req.ReturnType = *returnType

	perCall := cfg.Timeout
	if perCall <= 0 {
		perCall = transport.DefaultTimeout
	}
	ctx, stop := context.WithTimeout(context.Background(), perCall*time.Duration(*retryAttempts+1))
	defer stop()

	var resp *client.Response
	err = client.Retry(ctx, &client.RetryPolicy{
		MaxAttempts:  *retryAttempts,
		InitialDelay: *retryDelay,
		OnRetry: func(n uint, err error) {
			logger.Warn("retrying call", "attempt", n+1, "error", err)
		},
	}, func() error {
		var callErr error
		resp, callErr = c.Do(ctx, req)
		return callErr
	})
	if err != nil {
		fail(err)
	}

	if *showWire {
		headerText.Fprintln(os.Stderr, "--- wire ---")
		if cfg.PrettyPrintLogs {
			fmt.Fprintln(os.Stderr, adlog.RedactXML(resp.Wire.Pretty()))
		} else {
			fmt.Fprintln(os.Stderr, adlog.RedactXML(resp.Wire.Raw()))
		}
	}

	if req.Raw || cfg.RawResponse {
		fmt.Println(string(resp.Raw))
	} else {
		out, err := yaml.Marshal(resp.Value.Interface())
		if err != nil {
			fail(err)
		}
		fmt.Print(string(out))
	}

	okLabel.Fprint(os.Stderr, "OK ")
	metricText.Fprintf(os.Stderr, "%s request_id=%s units=%d operations=%d elapsed=%s (session: units=%d operations=%d)\n",
		resp.CallName, resp.RequestID, resp.Units, resp.Operations, resp.Elapsed.Round(time.Millisecond),
		c.UnitsConsumed(), c.OperationsPerformed())
}

// loadConfig reads the config file, if any, and applies ADSOAP_*
// environment overrides. A missing password is prompted for.
func loadConfig(path string) (client.Config, error) {
	cfg := client.DefaultConfig()
	if path != "" {
		loaded, err := client.LoadConfig(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	overrides := map[string]*string{
		"ADSOAP_SERVER":          &cfg.Server,
		"ADSOAP_VERSION":         &cfg.Version,
		"ADSOAP_EMAIL":           &cfg.Email,
		"ADSOAP_PASSWORD":        &cfg.Password,
		"ADSOAP_AUTH_TOKEN":      &cfg.AuthToken,
		"ADSOAP_DEVELOPER_TOKEN": &cfg.DeveloperToken,
		"ADSOAP_USER_AGENT":      &cfg.UserAgent,
		"ADSOAP_CLIENT_ID":       &cfg.ClientCustomerID,
		"ADSOAP_HTTP_PASSWORD":   &cfg.HTTPPassword,
		"ADSOAP_BEARER_TOKEN":    &cfg.BearerToken,
	}
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			*overrides[k] = v
		}
	}

	if cfg.UseAuthToken && cfg.AuthToken == "" && cfg.Email != "" && cfg.Password == "" {
		cfg.Password = readPassword()
	}
	return cfg, cfg.Validate()
}

func buildRequest(service, method, group, selectorFile, opsFile, envelopeFile string) (client.Request, error) {
	req := client.Request{Service: service, Method: method, Group: group}

	switch {
	case envelopeFile != "":
		data, err := os.ReadFile(envelopeFile)
		if err != nil {
			return req, fmt.Errorf("read envelope: %w", err)
		}
		req.Envelope = data
		req.Raw = true
	case opsFile != "":
		ops, err := readOperations(opsFile)
		if err != nil {
			return req, err
		}
		req.Operations = ops
		if req.Method == "" {
			req.Method = "mutate"
		}
	default:
		selector := codec.Composite(nil)
		if selectorFile != "" {
			v, err := readValue(selectorFile)
			if err != nil {
				return req, err
			}
			selector = v
		}
		req.Params = []codec.Param{{Name: "selector", Value: selector}}
		if req.Method == "" {
			req.Method = "get"
		}
	}
	return req, nil
}

func readValue(path string) (codec.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return codec.Null(), fmt.Errorf("read %s: %w", path, err)
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return codec.Null(), fmt.Errorf("parse %s: %w", path, err)
	}
	return codec.FromAny(doc)
}

type operationDoc struct {
	Operator string `yaml:"operator"`
	Type     string `yaml:"type"`
	Operand  any    `yaml:"operand"`
}

func readOperations(path string) ([]codec.Operation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var docs []operationDoc
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	ops := make([]codec.Operation, 0, len(docs))
	for i, d := range docs {
		operand, err := codec.FromAny(d.Operand)
		if err != nil {
			return nil, fmt.Errorf("%s: operation %d: %w", path, i, err)
		}
		ops = append(ops, codec.Operation{
			Operator: codec.Operator(strings.ToUpper(d.Operator)),
			Type:     d.Type,
			Operand:  operand,
		})
	}
	return ops, nil
}

// newLogger builds a redacting slog logger. With no level, logs are
// discarded.
func newLogger(level, path string, rotate adlog.RotateOptions) (*slog.Logger, func(), error) {
	noop := func() {}
	if level == "" {
		return slog.New(slog.DiscardHandler), noop, nil
	}

	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, noop, fmt.Errorf("invalid log level '%s'. Valid values: debug, info, warn, error", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if path == "" {
		return slog.New(adlog.NewRedactingHandler(slog.NewTextHandler(os.Stderr, opts))), noop, nil
	}

	rf, err := adlog.NewRotatingFile(path, rotate)
	if err != nil {
		return nil, noop, err
	}
	logger := slog.New(adlog.NewRedactingHandler(slog.NewJSONHandler(rf, opts)))
	return logger, func() { _ = rf.Close() }, nil
}

// readPassword prompts on stderr, hiding input on a terminal.
func readPassword() string {
	fmt.Fprint(os.Stderr, "Password: ")

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		passBytes, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return ""
		}
		return string(passBytes)
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}

func fail(err error) {
	errorLabel.Fprint(os.Stderr, "Error: ")
	fmt.Fprintln(os.Stderr, err)

	var fault *soap.APIFault
	var local *transport.LocalError
	switch {
	case errors.As(err, &fault):
		metricText.Fprintf(os.Stderr, "fault kind=%s types=%v\n", fault.Kind, fault.ErrorTypes())
	case errors.As(err, &local) && local.Status != 0:
		metricText.Fprintf(os.Stderr, "http status=%d\n", local.Status)
	}
	if client.IsRetryable(err) {
		metricText.Fprintln(os.Stderr, "the failure is transient; retry with -retry-attempts")
	}
	os.Exit(1)
}
