// Package config loads the gateway configuration from environment variables,
// prefixed with ZKVOTE_.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/zkpoll/zkvote/auth"
	"github.com/zkpoll/zkvote/types"
	"github.com/zkpoll/zkvote/voting"
)

// Config contains the gateway configuration parameters.
type Config struct {
	Host     string `env:"HOST" envDefault:"0.0.0.0"`
	Port     int    `env:"PORT" envDefault:"8080"`
	DataDir  string `env:"DATADIR" envDefault:".zkvote"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Ledger    Ledger    `envPrefix:"LEDGER_"`
	Auth      Auth      `envPrefix:"AUTH_"`
	Voting    Voting    `envPrefix:"VOTING_"`
	Providers Providers `envPrefix:"PROVIDER_"`
}

// Ledger contains the fullnode connection parameters.
type Ledger struct {
	RPCURL              string        `env:"RPC_URL" envDefault:"https://fullnode.devnet.sui.io:443"`
	BalancePollInterval time.Duration `env:"BALANCE_POLL_INTERVAL" envDefault:"30s"`
}

// Auth contains the login flow parameters. An empty SaltServiceURL selects
// the deterministic demo salt resolver.
type Auth struct {
	ProverURL      string `env:"PROVER_URL" envDefault:"https://prover-dev.mystenlabs.com/v1"`
	SaltServiceURL string `env:"SALT_SERVICE_URL"`
	RedirectURI    string `env:"REDIRECT_URI" envDefault:"http://localhost:3000/auth"`
	EpochOffset    uint64 `env:"EPOCH_OFFSET" envDefault:"2"`
}

// Voting contains the deployed voting program object ids.
type Voting struct {
	PackageID        string `env:"PACKAGE_ID"`
	VotingRegistryID string `env:"REGISTRY_ID"`
	PollRegistryID   string `env:"POLL_REGISTRY_ID"`
}

// Providers contains the OAuth client ids registered with each identity
// provider. Providers without a client id are not offered.
type Providers struct {
	GoogleClientID   string `env:"GOOGLE_CLIENT_ID"`
	TwitchClientID   string `env:"TWITCH_CLIENT_ID"`
	FacebookClientID string `env:"FACEBOOK_CLIENT_ID"`
	// Extra declares additional providers, such as university SSO
	// endpoints, as semicolon-separated name|auth-endpoint|client-id
	// entries.
	Extra []string `env:"EXTRA" envSeparator:";"`
}

// New loads the configuration from the environment.
func New() (*Config, error) {
	cfg := Config{}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "ZKVOTE_"}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// AuthProviders assembles the provider map from the configured client ids
// and the extra provider entries.
func (c *Config) AuthProviders() (auth.Providers, error) {
	providers := auth.Providers{}
	for provider, clientID := range map[types.OpenIDProvider]string{
		types.ProviderGoogle:   c.Providers.GoogleClientID,
		types.ProviderTwitch:   c.Providers.TwitchClientID,
		types.ProviderFacebook: c.Providers.FacebookClientID,
	} {
		if clientID == "" {
			continue
		}
		providers[provider] = auth.ProviderConfig{
			AuthEndpoint: auth.DefaultAuthEndpoints[provider],
			ClientID:     clientID,
		}
	}
	for _, entry := range c.Providers.Extra {
		parts := strings.Split(entry, "|")
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return nil, fmt.Errorf("invalid provider entry %q, want name|auth-endpoint|client-id", entry)
		}
		name := types.OpenIDProvider(parts[0])
		if _, ok := providers[name]; ok {
			return nil, fmt.Errorf("provider %q configured twice", parts[0])
		}
		providers[name] = auth.ProviderConfig{
			AuthEndpoint: parts[1],
			ClientID:     parts[2],
		}
	}
	return providers, nil
}

// VotingConfig parses the voting program object ids.
func (c *Config) VotingConfig() (voting.Config, error) {
	cfg := voting.Config{}
	var err error
	if cfg.PackageID, err = types.ParseAddress(c.Voting.PackageID); err != nil {
		return cfg, fmt.Errorf("invalid voting package id: %w", err)
	}
	if cfg.VotingRegistryID, err = types.ParseAddress(c.Voting.VotingRegistryID); err != nil {
		return cfg, fmt.Errorf("invalid voting registry id: %w", err)
	}
	if c.Voting.PollRegistryID != "" {
		if cfg.PollRegistryID, err = types.ParseAddress(c.Voting.PollRegistryID); err != nil {
			return cfg, fmt.Errorf("invalid poll registry id: %w", err)
		}
	}
	return cfg, nil
}

// SaltResolver selects the salt backend: the remote service when configured,
// the demo resolver otherwise.
func (c *Config) SaltResolver() auth.SaltResolver {
	if c.Auth.SaltServiceURL != "" {
		return auth.NewRemoteSaltResolver(c.Auth.SaltServiceURL)
	}
	return auth.DeterministicDemoSaltResolver{}
}
