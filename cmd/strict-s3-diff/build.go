package main

import (
	"errors"
	"fmt"

	"github.com/yuya-takeyama/strict-s3-diff/internal/config"
	"github.com/yuya-takeyama/strict-s3-diff/pkg/bucket"
	"github.com/yuya-takeyama/strict-s3-diff/pkg/compare"
	"github.com/yuya-takeyama/strict-s3-diff/pkg/lister"
	"github.com/yuya-takeyama/strict-s3-diff/pkg/logger"
	"github.com/yuya-takeyama/strict-s3-diff/pkg/runner"
)

const (
	exitOK            = 0
	exitFailure       = 1
	exitConfigError   = 2
	exitListingError  = 3
	exitReportFailure = 4
)

// buildLister assembles the backend selected in settings, wrapped with
// the exclude filter and retry decorators when they are configured
func buildLister(settings config.Settings, log logger.Logger) (lister.Lister, error) {
	listLog := log.With("component", "lister", "backend", settings.Backend)
	timeout := settings.TimeoutDuration()

	var l lister.Lister
	switch settings.Backend {
	case config.BackendCommand, "":
		newRunner := func(endpoint bucket.Endpoint) runner.Runner {
			return runner.NewCommandRunner(settings.Tool, endpoint, log.With("component", "runner"))
		}
		l = lister.NewCommandLister(newRunner, timeout, listLog)
	case config.BackendSDK:
		l = lister.NewSDKLister(lister.AWSClientFactory(settings.RequestsPerSecond), timeout, listLog)
	case config.BackendMinio:
		l = lister.NewSDKLister(lister.MinioClientFactory(), timeout, listLog)
	default:
		return nil, &config.Error{Reason: fmt.Sprintf("unsupported backend %q", settings.Backend)}
	}

	if len(settings.Exclude) > 0 {
		filtered, err := lister.NewFiltered(l, settings.Exclude, listLog)
		if err != nil {
			return nil, &config.Error{Reason: "invalid exclude pattern", Err: err}
		}
		l = filtered
	}

	if settings.Retries > 0 {
		l = lister.NewRetrying(l, settings.Retries, listLog)
	}
	return l, nil
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	var cfgErr *config.Error
	var listErr *compare.ListingError
	var reportErr *compare.ReportError
	switch {
	case errors.As(err, &cfgErr):
		return exitConfigError
	case errors.As(err, &listErr):
		return exitListingError
	case errors.As(err, &reportErr):
		return exitReportFailure
	default:
		return exitFailure
	}
}
