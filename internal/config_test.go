package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	pkgconfig "github.com/jwintz/obsidianp-sub000/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if !cfg.SQLite.Enabled() {
		t.Error("default config should enable the index")
	}
	if diff := cmp.Diff([]string{".md", ".base"}, cfg.Vault.Extensions()); diff != "" {
		t.Errorf("extensions (-want +got):\n%s", diff)
	}
}

func TestSQLiteConfig_EmptyPathDisables(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.SQLite.Path = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty sqlite path should pass: %v", err)
	}
	if cfg.SQLite.Enabled() {
		t.Error("empty path should disable the index")
	}
}

func TestVaultConfig_Extensions(t *testing.T) {
	cases := []struct {
		exts    []string
		wantErr bool
	}{
		{[]string{".base"}, false},
		{[]string{".base", ".json"}, false},
		{[]string{"base"}, true},
		{[]string{".a/b"}, true},
		{nil, true},
	}
	for _, c := range cases {
		cfg := VaultConfig{Path: "./vault", CollectionExtensions: c.exts}
		if err := cfg.Validate(); (err != nil) != c.wantErr {
			t.Errorf("extensions %v: err = %v, wantErr %v", c.exts, err, c.wantErr)
		}
	}
}

func TestBuildConfig_Validate(t *testing.T) {
	cases := map[string]struct {
		cfg     BuildConfig
		wantErr bool
	}{
		"ok":          {BuildConfig{MaxEmbedDepth: 4, OutputPath: "out.json"}, false},
		"no depth":    {BuildConfig{OutputPath: "out.json"}, true},
		"neg workers": {BuildConfig{Workers: -1, MaxEmbedDepth: 4, OutputPath: "out.json"}, true},
		"no output":   {BuildConfig{MaxEmbedDepth: 4}, true},
	}
	for name, c := range cases {
		if err := c.cfg.Validate(); (err != nil) != c.wantErr {
			t.Errorf("%s: err = %v, wantErr %v", name, err, c.wantErr)
		}
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("VAULTGRAPH_TEST_VAULT", "/srv/notes")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "vault:\n  path: ${VAULTGRAPH_TEST_VAULT}\n  ignore_dirs: [templates]\nbuild:\n  max_embed_depth: 2\nsqlite:\n  path: \"\"\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Vault.Path != "/srv/notes" || cfg.Build.MaxEmbedDepth != 2 || cfg.SQLite.Enabled() {
		t.Errorf("config = %+v", cfg)
	}
	if diff := cmp.Diff([]string{"templates"}, cfg.Vault.IgnoreDirs); diff != "" {
		t.Errorf("ignore dirs (-want +got):\n%s", diff)
	}
	if cfg.Build.OutputPath != "./graph.json" || cfg.App.HTTP.Port != 8080 {
		t.Error("defaults lost on load")
	}
}
