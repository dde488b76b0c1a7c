// invoke runs the resource provider locally against a request event, using
// the default AWS credential chain instead of caller credentials.
//
//	invoke -event testdata/create.yaml -follow
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/cloud9-environment-ssm/internal/cfn"
	"github.com/chainguard-dev/cloud9-environment-ssm/internal/handler"
	"github.com/chainguard-dev/cloud9-environment-ssm/internal/provision"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

func main() {
	var (
		eventPath string
		follow    bool
		maxWait   time.Duration
		logDir    string
		region    string
		debug     bool
	)
	flag.StringVar(&eventPath, "event", "", "path to a request event (YAML or JSON)")
	flag.BoolVar(&follow, "follow", false, "keep invoking while the operation is IN_PROGRESS")
	flag.DurationVar(&maxWait, "max-wait", 0, "cap on the delay between follow-up invocations (0 honors the requested delay)")
	flag.StringVar(&logDir, "log-dir", "", "directory for per-resource log files")
	flag.StringVar(&region, "region", os.Getenv("AWS_REGION"), "region used when the event has none")
	flag.BoolVar(&debug, "debug", false, "enable debug logging")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	console := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           log.InfoLevel,
	})
	if debug {
		console.SetLevel(log.DebugLevel)
	}
	ctx = clog.WithLogger(ctx, clog.New(console))

	if err := run(ctx, eventPath, follow, maxWait, logDir, region); err != nil {
		clog.ErrorContext(ctx, "invoke failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, eventPath string, follow bool, maxWait time.Duration, logDir, region string) error {
	if eventPath == "" {
		return fmt.Errorf("-event is required")
	}
	inv, err := loadEvent(eventPath)
	if err != nil {
		return err
	}

	h := handler.New(provision.NewMachine(provision.Options{}),
		handler.WithRegion(region),
		handler.WithLogDirectory(logDir),
	)

	for {
		event := h.Handle(ctx, inv)
		if err := printEvent(event); err != nil {
			return err
		}
		if event.Done() || !follow {
			if event.Status == cfn.StatusFailed {
				return fmt.Errorf("operation failed: %s: %s", event.ErrorCode, event.Message)
			}
			return nil
		}

		wait := time.Duration(event.CallbackDelaySeconds) * time.Second
		if maxWait > 0 && wait > maxWait {
			wait = maxWait
		}
		clog.InfoContext(ctx, "operation in progress, waiting", "delay", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		// Feed the returned state back, the way CloudFormation does.
		inv.Context = event.CallbackContext
		if event.ResourceModel != nil {
			inv.Request.Desired = event.ResourceModel
		}
	}
}

// loadEvent reads a handler request. YAML is a superset of JSON, so both are
// accepted.
func loadEvent(path string) (*cfn.Invocation, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read event: %w", err)
	}
	var hr cfn.HandlerRequest
	if err := yaml.Unmarshal(b, &hr); err != nil {
		return nil, fmt.Errorf("failed to parse event %s: %w", path, err)
	}
	if hr.BearerToken == "" {
		hr.BearerToken = uuid.NewString()
	}
	if hr.RequestData.LogicalResourceID == "" {
		hr.RequestData.LogicalResourceID = "LocalEnvironment"
	}
	// Local runs always use the default credential chain.
	hr.RequestData.CallerCredentials = nil
	return hr.Invocation()
}

func printEvent(event *cfn.ProgressEvent) error {
	b, err := json.MarshalIndent(event, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(b))
	return err
}
