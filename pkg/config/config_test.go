package config

import "testing"

type backendConfig struct {
	Endpoint string `envconfig:"ENDPOINT" required:"true"`
	Timeout  int    `envconfig:"TIMEOUT" default:"5"`
}

func TestNewFillsPrefixedFields(t *testing.T) {
	t.Setenv("BILLING_ENDPOINT", "https://billing.internal")

	conf, err := New[backendConfig]("BILLING")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if conf.Endpoint != "https://billing.internal" {
		t.Fatalf("endpoint = %q", conf.Endpoint)
	}
	if conf.Timeout != 5 {
		t.Fatalf("timeout default = %d, want 5", conf.Timeout)
	}
}

func TestNewReportsMissingRequiredVariable(t *testing.T) {
	if _, err := New[backendConfig]("UNWIRED"); err == nil {
		t.Fatal("expected error when the required variable is absent")
	}
}

func TestMustNewPanicsOnFailure(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	MustNew[backendConfig]("UNWIRED")
}
