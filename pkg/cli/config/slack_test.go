package config_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/contactbook/pkg/cli/config"
)

func TestSlackValidate(t *testing.T) {
	tests := []struct {
		name          string
		botToken      string
		signingSecret string
		wantErr       bool
	}{
		{"both set", "xoxb-test", "secret", false},
		{"missing token", "", "secret", true},
		{"missing secret", "xoxb-test", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := config.NewSlackForTest(tt.botToken, tt.signingSecret).Validate()
			if tt.wantErr {
				gt.Error(t, err).Is(config.ErrMissingFlag)
				return
			}
			gt.NoError(t, err)
		})
	}
}

func TestSlackConfigure(t *testing.T) {
	t.Run("returns service", func(t *testing.T) {
		cfg := config.NewSlackForTest("xoxb-test", "secret")
		svc, err := cfg.Configure()
		gt.NoError(t, err).Required()
		gt.Value(t, svc).NotNil()
		gt.Value(t, cfg.SigningSecret()).Equal("secret")
	})

	t.Run("fails without token", func(t *testing.T) {
		_, err := config.NewSlackForTest("", "secret").Configure()
		gt.Error(t, err).Is(config.ErrMissingFlag)
	})
}
