package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const minimalYAML = `
environment: test
sources:
  fund:
    codes: ["110022", "161725"]
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Server.Port != 8080 {
		t.Fatalf("port = %d, want 8080", c.Server.Port)
	}
	if c.Refresh.Crypto != time.Minute || c.Refresh.Equity != 5*time.Minute || c.Refresh.Fund != 10*time.Minute {
		t.Fatalf("refresh defaults = %+v", c.Refresh)
	}
	if c.Cache.DefaultTTL != 5*time.Minute {
		t.Fatalf("cache ttl = %v", c.Cache.DefaultTTL)
	}
	if c.Sources.Crypto.RateLimit.Requests != 10 || c.Sources.Equity.RateLimit.Requests != 30 || c.Sources.Fund.RateLimit.Requests != 20 {
		t.Fatalf("rate-limit defaults: crypto=%d equity=%d fund=%d",
			c.Sources.Crypto.RateLimit.Requests,
			c.Sources.Equity.RateLimit.Requests,
			c.Sources.Fund.RateLimit.Requests)
	}
	if c.Indicators.RSIPeriod != 14 || c.Indicators.MACDSlow != 26 {
		t.Fatalf("indicator defaults = %+v", c.Indicators)
	}
	if c.Model.Horizon != 3 || c.Model.TargetReturn != 0.05 || c.Model.TrainSplit != 0.8 {
		t.Fatalf("model defaults = %+v", c.Model)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, `
environment: production
server:
  port: 9090
refresh:
  crypto: 30s
sources:
  crypto:
    rate_limit:
      requests: 5
      window: 2m
  fund:
    codes: ["110022"]
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Server.Port != 9090 {
		t.Fatalf("port = %d", c.Server.Port)
	}
	if c.Refresh.Crypto != 30*time.Second {
		t.Fatalf("crypto refresh = %v", c.Refresh.Crypto)
	}
	if rl := c.RateLimitFor("crypto"); rl.Requests != 5 || rl.Window != 2*time.Minute {
		t.Fatalf("crypto rate limit = %+v", rl)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"no environment", `
sources:
  fund:
    codes: ["110022"]
`},
		{"no fund codes", `
environment: test
`},
		{"bad port", `
environment: test
server:
  port: 70000
sources:
  fund:
    codes: ["110022"]
`},
		{"macd fast above slow", `
environment: test
indicators:
  macd_fast: 30
  macd_slow: 26
sources:
  fund:
    codes: ["110022"]
`},
		{"stop above take", `
environment: test
risk:
  stop_loss_pct: 0.2
  take_profit_pct: 0.1
sources:
  fund:
    codes: ["110022"]
`},
		{"history without host", `
environment: test
history:
  enabled: true
sources:
  fund:
    codes: ["110022"]
`},
		{"kafka without brokers", `
environment: test
kafka:
  enabled: true
sources:
  fund:
    codes: ["110022"]
`},
	}
	for _, c := range cases {
		if _, err := Load(writeConfig(t, c.yaml)); err == nil {
			t.Fatalf("%s: expected validation error", c.name)
		}
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("FUND_CODES", "110022,005827")
	t.Setenv("LOG_LEVEL", "debug")

	c, err := LoadWithEnv(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("LoadWithEnv: %v", err)
	}
	if c.Server.Port != 7070 {
		t.Fatalf("port = %d, want env override 7070", c.Server.Port)
	}
	if len(c.Sources.Fund.Codes) != 2 || c.Sources.Fund.Codes[1] != "005827" {
		t.Fatalf("fund codes = %v", c.Sources.Fund.Codes)
	}
	if c.Logging.Level != "debug" {
		t.Fatalf("log level = %q", c.Logging.Level)
	}
}

func TestRateLimitForUnknownSource(t *testing.T) {
	var c Config
	rl := c.RateLimitFor("other")
	if rl.Requests != 10 || rl.Window != time.Minute {
		t.Fatalf("fallback quota = %+v", rl)
	}
}
