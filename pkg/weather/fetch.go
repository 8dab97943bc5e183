package weather

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// AuthMethod represents the type of SSH authentication.
type AuthMethod string

const (
	// AuthMethodPassword uses password authentication
	AuthMethodPassword AuthMethod = "password"

	// AuthMethodKey uses private key authentication
	AuthMethodKey AuthMethod = "key"
)

// FetchConfig holds the connection settings for a weather data server.
type FetchConfig struct {
	// Host is the remote hostname or IP address
	Host string

	// Port is the SSH port (default: 22)
	Port int

	// User is the SSH username
	User string

	// AuthMethod specifies which authentication method to use
	AuthMethod AuthMethod

	// Password for password-based authentication
	Password string

	// PrivateKeyPath is the path to the private key file
	PrivateKeyPath string

	// PrivateKeyPassphrase is the passphrase for encrypted private keys
	PrivateKeyPassphrase string

	// KnownHostsPath is the path to the known_hosts file. If empty and
	// strict checking is off, host keys are not verified.
	KnownHostsPath string

	// StrictHostKeyChecking rejects unknown host keys
	StrictHostKeyChecking bool

	// ConnectionTimeout is the timeout for establishing a connection
	ConnectionTimeout time.Duration
}

// DefaultFetchConfig returns a FetchConfig with sensible defaults.
func DefaultFetchConfig(host, user string) *FetchConfig {
	return &FetchConfig{
		Host:                  host,
		Port:                  22,
		User:                  user,
		AuthMethod:            AuthMethodKey,
		KnownHostsPath:        filepath.Join(os.Getenv("HOME"), ".ssh", "known_hosts"),
		StrictHostKeyChecking: true,
		ConnectionTimeout:     30 * time.Second,
	}
}

// Validate checks if the configuration is valid.
func (c *FetchConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.User == "" {
		return fmt.Errorf("user is required")
	}

	switch c.AuthMethod {
	case AuthMethodPassword:
		if c.Password == "" {
			return fmt.Errorf("password is required for password authentication")
		}
	case AuthMethodKey:
		if c.PrivateKeyPath == "" {
			return fmt.Errorf("private key path is required for key authentication")
		}
		if _, err := os.Stat(c.PrivateKeyPath); os.IsNotExist(err) {
			return fmt.Errorf("private key file not found: %s", c.PrivateKeyPath)
		}
	default:
		return fmt.Errorf("unsupported auth method: %s", c.AuthMethod)
	}

	if c.ConnectionTimeout <= 0 {
		return fmt.Errorf("connection timeout must be positive")
	}

	return nil
}

// Address returns the formatted SSH address (host:port).
func (c *FetchConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// buildClientConfig creates an ssh.ClientConfig from the FetchConfig.
func (c *FetchConfig) buildClientConfig() (*ssh.ClientConfig, error) {
	var authMethods []ssh.AuthMethod

	switch c.AuthMethod {
	case AuthMethodPassword:
		authMethods = append(authMethods, ssh.Password(c.Password))
	case AuthMethodKey:
		keyBytes, err := os.ReadFile(c.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key: %w", err)
		}
		var signer ssh.Signer
		if c.PrivateKeyPassphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(keyBytes, []byte(c.PrivateKeyPassphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(keyBytes)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		authMethods = append(authMethods, ssh.PublicKeys(signer))
	}

	var hostKeyCallback ssh.HostKeyCallback
	if c.KnownHostsPath != "" && c.StrictHostKeyChecking {
		var err error
		hostKeyCallback, err = knownhosts.New(c.KnownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load known_hosts: %w", err)
		}
	} else {
		// Insecure: accept any host key (only for testing/development)
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	}

	return &ssh.ClientConfig{
		User:            c.User,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         c.ConnectionTimeout,
	}, nil
}

// Fetcher downloads timeseries files from a weather data server over
// SFTP.
type Fetcher struct {
	config *FetchConfig
	logger zerolog.Logger
}

// NewFetcher creates a fetcher for the given server.
func NewFetcher(cfg *FetchConfig, logger zerolog.Logger) (*Fetcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fetch config: %w", err)
	}
	return &Fetcher{
		config: cfg,
		logger: logger.With().Str("component", "weather-fetcher").Logger(),
	}, nil
}

// Fetch downloads and parses one remote CSV timeseries file.
func (f *Fetcher) Fetch(ctx context.Context, remotePath string) (*Dataset, error) {
	clientConfig, err := f.config.buildClientConfig()
	if err != nil {
		return nil, err
	}

	f.logger.Debug().Str("address", f.config.Address()).Msg("Connecting to data server")

	type dialResult struct {
		client *ssh.Client
		err    error
	}
	dialCh := make(chan dialResult, 1)
	go func() {
		client, err := ssh.Dial("tcp", f.config.Address(), clientConfig)
		dialCh <- dialResult{client: client, err: err}
	}()

	var sshClient *ssh.Client
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("connect canceled: %w", ctx.Err())
	case res := <-dialCh:
		if res.err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", f.config.Address(), res.err)
		}
		sshClient = res.client
	}
	defer sshClient.Close()

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		return nil, fmt.Errorf("failed to open sftp session: %w", err)
	}
	defer sftpClient.Close()

	remote, err := sftpClient.Open(remotePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open remote file %s: %w", remotePath, err)
	}
	defer remote.Close()

	ds, err := ReadSeries(remote)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", remotePath, err)
	}

	f.logger.Info().
		Str("path", remotePath).
		Int("series", len(ds.Series)).
		Int("rows", ds.Len()).
		Msg("Timeseries fetched")

	return ds, nil
}
