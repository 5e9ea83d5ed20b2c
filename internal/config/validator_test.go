package config

import (
	"strings"
	"testing"
)

func TestValidate_RequiresSecretHashWhenAuthEnabled(t *testing.T) {
	c := minimalConfig()
	c.SetDefaults()
	c.AdminAuth.Enabled = true

	err := c.Validate()
	if err == nil {
		t.Fatal("Validate() accepted admin_auth.enabled with no secret_hash")
	}
	if !strings.Contains(err.Error(), "secret_hash") {
		t.Errorf("error = %v, want a secret_hash complaint", err)
	}
}

func TestValidate_AcceptsSecretHashWhenAuthEnabled(t *testing.T) {
	c := minimalConfig()
	c.SetDefaults()
	c.AdminAuth.Enabled = true
	c.AdminAuth.SecretHash = "$argon2id$v=19$m=65536,t=1,p=4$c29tZXNhbHQ$aGFzaA"

	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() error with a secret_hash set: %v", err)
	}
}

func TestValidate_RequiresWatchRootsForPosixfs(t *testing.T) {
	c := minimalConfig()
	c.SetDefaults()
	c.HostAdapter.WatchRoots = nil

	err := c.Validate()
	if err == nil {
		t.Fatal("Validate() accepted kind=posixfs with no watch_roots")
	}
	if !strings.Contains(err.Error(), "watch_roots") {
		t.Errorf("error = %v, want a watch_roots complaint", err)
	}
}

func TestValidate_RequiresDBPathWhenHistoryEnabled(t *testing.T) {
	c := minimalConfig()
	c.SetDefaults()
	c.History.Enabled = true

	if err := c.Validate(); err == nil {
		t.Fatal("Validate() accepted history.enabled with no db_path")
	}
}

func TestValidate_AcceptsDBPathWhenHistoryEnabled(t *testing.T) {
	c := minimalConfig()
	c.SetDefaults()
	c.History.Enabled = true
	c.History.DBPath = "/var/lib/fileguardcore/history.db"

	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
}

func TestValidate_RejectsBadMetricsAddr(t *testing.T) {
	c := minimalConfig()
	c.SetDefaults()
	c.MetricsAddr = "not a host port"

	if err := c.Validate(); err == nil {
		t.Fatal("Validate() accepted an invalid metrics_addr")
	}
}
