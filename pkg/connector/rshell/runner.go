package rshell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"os/exec"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/snamp-platform/snamp-go/pkg/model"
)

// Option keys for the SSH transport (resource options).
const (
	OptionPrivateKey = "privateKey"
	OptionKnownHosts = "knownHosts"
	OptionTimeout    = "timeout"
)

// runner executes one command and returns its standard output.
type runner interface {
	Run(ctx context.Context, command string) (string, error)
	Close() error
}

type localRunner struct{}

func (localRunner) Run(ctx context.Context, command string) (string, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%q: %w: %s", command, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return string(out), nil
}

func (localRunner) Close() error { return nil }

type sshRunner struct {
	client *ssh.Client
}

func (r *sshRunner) Run(ctx context.Context, command string) (string, error) {
	session, err := r.client.NewSession()
	if err != nil {
		return "", err
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()
	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return "", ctx.Err()
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("%q: %w: %s", command, err, bytes.TrimSpace(stderr.Bytes()))
		}
		return stdout.String(), nil
	}
}

func (r *sshRunner) Close() error { return r.client.Close() }

// sshConfig builds the client configuration for u.
func sshConfig(u *url.URL, opts model.Options, logger *slog.Logger) (*ssh.ClientConfig, error) {
	cfg := &ssh.ClientConfig{
		User:    u.User.Username(),
		Timeout: opts.Duration(OptionTimeout, 10*time.Second),
	}
	if path := opts.String(OptionPrivateKey, ""); path != "" {
		pem, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		cfg.Auth = append(cfg.Auth, ssh.PublicKeys(signer))
	}
	if pw, ok := u.User.Password(); ok {
		cfg.Auth = append(cfg.Auth, ssh.Password(pw))
	}
	if len(cfg.Auth) == 0 {
		return nil, errors.New("no SSH credentials")
	}

	if path := opts.String(OptionKnownHosts, ""); path != "" {
		cb, err := knownhosts.New(path)
		if err != nil {
			return nil, fmt.Errorf("known hosts: %w", err)
		}
		cfg.HostKeyCallback = cb
	} else {
		cfg.HostKeyCallback = func(hostname string, remote net.Addr, key ssh.PublicKey) error {
			logger.Warn("SSH host key not verified", "host", hostname, "remote", remote.String(), "key_type", key.Type())
			return nil
		}
	}
	return cfg, nil
}

// dialFunc opens a runner for the parsed connection string. Replaced in
// tests.
var dialFunc = func(u *url.URL, opts model.Options, logger *slog.Logger) (runner, error) {
	if u.Scheme == "local" || u.Opaque == "local" || u.String() == "local" {
		return localRunner{}, nil
	}
	cfg, err := sshConfig(u, opts, logger)
	if err != nil {
		return nil, err
	}
	host := u.Host
	if u.Port() == "" {
		host = net.JoinHostPort(u.Hostname(), "22")
	}
	client, err := ssh.Dial("tcp", host, cfg)
	if err != nil {
		return nil, err
	}
	return &sshRunner{client: client}, nil
}
