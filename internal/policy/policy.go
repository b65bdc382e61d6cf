// Package policy supplies the password-policy parameters and the
// common-password rejection set. It is read-only to the rest of the system;
// the caller owns the reload lifecycle.
package policy

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Complexity holds the per-character-class requirements.
type Complexity struct {
	Uppercase bool `json:"uppercase"`
	Lowercase bool `json:"lowercase"`
	Digits    bool `json:"digits"`
	Special   bool `json:"special"`
}

// Config is one immutable snapshot of the password policy.
type Config struct {
	MinLength       int        `json:"min_length"`
	Complexity      Complexity `json:"complexity"`
	HistoryCount    int        `json:"history_count"`
	MaxFailedLogins int        `json:"max_failed_logins"`
	PreventReuse    bool       `json:"prevent_reuse"`
}

// CommonPasswordSet is a set of known-weak passwords, lowercased.
type CommonPasswordSet map[string]struct{}

// Contains reports whether pw is in the set, case-insensitively.
func (s CommonPasswordSet) Contains(pw string) bool {
	_, ok := s[strings.ToLower(pw)]
	return ok
}

// Provider loads the policy file and common-password list and serves
// consistent snapshots to validators. Reload may be called at any time;
// readers between reloads always see a complete configuration.
type Provider struct {
	policyPath string
	commonPath string

	mu     sync.RWMutex
	config Config
	common CommonPasswordSet
}

// NewProvider loads both resources once. A missing or unreadable policy file
// is a hard error; a missing common-password file degrades to an empty set.
func NewProvider(policyPath, commonPath string) (*Provider, error) {
	p := &Provider{
		policyPath: policyPath,
		commonPath: commonPath,
	}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Reload re-reads the policy file and the common-password list. On error the
// previously loaded snapshot stays in effect.
func (p *Provider) Reload() error {
	cfg, err := loadConfig(p.policyPath)
	if err != nil {
		return err
	}

	common, err := loadCommonPasswords(p.commonPath)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.config = cfg
	p.common = common
	p.mu.Unlock()
	return nil
}

// Current returns the active policy snapshot.
func (p *Provider) Current() Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.config
}

// CommonPasswords returns the active common-password set.
func (p *Provider) CommonPasswords() CommonPasswordSet {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.common
}

func loadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read policy file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse policy file: %w", err)
	}

	if cfg.MinLength < 1 {
		return Config{}, fmt.Errorf("policy min_length must be at least 1")
	}
	if cfg.MaxFailedLogins < 1 {
		return Config{}, fmt.Errorf("policy max_failed_logins must be at least 1")
	}
	if cfg.PreventReuse && cfg.HistoryCount < 1 {
		return Config{}, fmt.Errorf("policy history_count must be at least 1 when prevent_reuse is set")
	}

	return cfg, nil
}

// loadCommonPasswords reads a line-delimited list of weak passwords. A
// missing file disables the check rather than failing the system.
func loadCommonPasswords(path string) (CommonPasswordSet, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return CommonPasswordSet{}, nil
		}
		return nil, fmt.Errorf("failed to read common-password file: %w", err)
	}
	defer f.Close()

	set := CommonPasswordSet{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if line == "" {
			continue
		}
		set[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read common-password file: %w", err)
	}

	return set, nil
}
