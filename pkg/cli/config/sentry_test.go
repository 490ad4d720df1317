package config_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/contactbook/pkg/cli/config"
)

func TestSentryDisabledWithoutDSN(t *testing.T) {
	var cfg config.Sentry
	flush, err := cfg.Configure()
	gt.NoError(t, err).Required()
	gt.Value(t, flush).NotNil()
	flush()
}
