package stripe

import (
	"context"
	"errors"
	"testing"

	"github.com/felipecardoza/agrolink-backend/pkg/config"
)

func TestNewClientRequiresCredentials(t *testing.T) {
	ctx := context.Background()

	_, err := NewClient(ctx, config.StripeConfig{Env: "test"}, nil)
	if !errors.Is(err, ErrAPIKeyRequired) {
		t.Fatalf("expected ErrAPIKeyRequired, got %v", err)
	}

	_, err = NewClient(ctx, config.StripeConfig{Env: "test", APIKey: "sk_test_abc"}, nil)
	if !errors.Is(err, ErrSecretRequired) {
		t.Fatalf("expected ErrSecretRequired, got %v", err)
	}

	if !IsCredentialError(err) {
		t.Fatal("expected IsCredentialError to report missing credentials")
	}
}

func TestNewClientRejectsMismatchedKeyForEnv(t *testing.T) {
	ctx := context.Background()

	_, err := NewClient(ctx, config.StripeConfig{Env: "live", APIKey: "sk_test_abc", Secret: "whsec_x"}, nil)
	if err == nil {
		t.Fatal("expected live env to reject test key")
	}

	_, err = NewClient(ctx, config.StripeConfig{Env: "test", APIKey: "sk_live_abc", Secret: "whsec_x"}, nil)
	if err == nil {
		t.Fatal("expected test env to reject live key")
	}
}

func TestNewClientAcceptsValidTestKey(t *testing.T) {
	client, err := NewClient(context.Background(), config.StripeConfig{Env: "test", APIKey: "sk_test_abc", Secret: "whsec_x"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Environment() != "test" {
		t.Fatalf("expected env test, got %q", client.Environment())
	}
	if client.API() == nil {
		t.Fatal("expected initialized api client")
	}
	if client.SigningSecret() != "whsec_x" {
		t.Fatalf("unexpected signing secret %q", client.SigningSecret())
	}
}

func TestNormalizeEnvDefaultsToTest(t *testing.T) {
	env, err := normalizeEnv("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env != testEnv {
		t.Fatalf("expected test, got %q", env)
	}
	if _, err := normalizeEnv("staging"); err == nil {
		t.Fatal("expected invalid env error")
	}
}
