package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Fatalf("server address = %s", cfg.Server.Address)
	}
	if cfg.Storage.Driver != "memory" {
		t.Fatalf("storage driver = %s", cfg.Storage.Driver)
	}
	if cfg.Queue.Driver != "memory" {
		t.Fatalf("queue driver = %s", cfg.Queue.Driver)
	}
	if cfg.LLM.Provider != "openrouter" {
		t.Fatalf("llm provider = %s", cfg.LLM.Provider)
	}
	if cfg.LLM.OpenRouter.APIKeyEnv != "OPENROUTER_API_KEY" {
		t.Fatalf("api key env = %s", cfg.LLM.OpenRouter.APIKeyEnv)
	}
	if cfg.Wallet.EncryptionKeyEnv != "WALLET_ENCRYPTION_KEY" {
		t.Fatalf("wallet key env = %s", cfg.Wallet.EncryptionKeyEnv)
	}
	if cfg.Lifecycle.Workers != 4 {
		t.Fatalf("workers = %d", cfg.Lifecycle.Workers)
	}
}

func TestLoadResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	raw := `{
		"tools": {"catalog_path": "tools.yaml"},
		"web3": {"chain_config": "chains.yaml", "default_chain": "sepolia"}
	}`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if want := filepath.Join(dir, "tools.yaml"); cfg.Tools.CatalogPath != want {
		t.Fatalf("catalog path = %s, want %s", cfg.Tools.CatalogPath, want)
	}
	if want := filepath.Join(dir, "chains.yaml"); cfg.Web3.ChainConfig != want {
		t.Fatalf("chain config = %s, want %s", cfg.Web3.ChainConfig, want)
	}
	if cfg.Web3.DefaultChain != "sepolia" {
		t.Fatalf("default chain = %s", cfg.Web3.DefaultChain)
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for empty path")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
