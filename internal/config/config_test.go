package config

import "testing"

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Config{
		HTTP:  HTTPConfig{Port: 0},
		Store: StoreConfig{Driver: "embedded"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingRedisAddrs(t *testing.T) {
	cfg := Config{
		HTTP:  HTTPConfig{Port: 8080},
		Store: StoreConfig{Driver: "redis"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing redis addrs")
	}
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := Config{
		HTTP:  HTTPConfig{Port: 8080},
		Store: StoreConfig{Driver: "mongo"},
	}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown store driver")
	}
}

func TestValidate_ShowBelowFloor(t *testing.T) {
	cfg := Config{
		HTTP:    HTTPConfig{Port: 8080},
		Store:   StoreConfig{Driver: "embedded"},
		Predict: PredictConfig{ConfidenceFloor: 0.5, ShowThreshold: 0.3},
	}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when show_threshold < confidence_floor")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 8787 {
		t.Errorf("expected Port=8787, got %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Store.Driver != "embedded" {
		t.Errorf("expected driver=embedded, got %q", cfg.Store.Driver)
	}
	if cfg.Index.WorkingSetSize != 50 {
		t.Errorf("expected WorkingSetSize=50, got %d", cfg.Index.WorkingSetSize)
	}
	if len(cfg.Index.SkipDirs) == 0 {
		t.Error("expected default skip dirs to be populated")
	}
	if cfg.Predict.ConfidenceFloor != 0.40 {
		t.Errorf("expected ConfidenceFloor=0.40, got %v", cfg.Predict.ConfidenceFloor)
	}
	if cfg.Predict.ShowThreshold != 0.60 {
		t.Errorf("expected ShowThreshold=0.60, got %v", cfg.Predict.ShowThreshold)
	}
	if cfg.Predict.FinalizeWindow != 300 {
		t.Errorf("expected FinalizeWindow=300, got %d", cfg.Predict.FinalizeWindow)
	}
	if cfg.Tuner.ArmOverflowCap != 1e6 {
		t.Errorf("expected ArmOverflowCap=1e6, got %v", cfg.Tuner.ArmOverflowCap)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:    HTTPConfig{Port: 9000, ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Store:   StoreConfig{Driver: "redis", Addrs: []string{"localhost:6379"}, ReadinessTimeout: 15},
		Index:   IndexConfig{WorkingSetSize: 20, RegexScanCap: 1000},
		Predict: PredictConfig{ConfidenceFloor: 0.5, ShowThreshold: 0.7},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 9000 {
		t.Errorf("expected Port=9000, got %d", cfg.HTTP.Port)
	}
	if cfg.Store.Driver != "redis" {
		t.Errorf("expected driver=redis, got %q", cfg.Store.Driver)
	}
	if cfg.Index.WorkingSetSize != 20 {
		t.Errorf("expected WorkingSetSize=20, got %d", cfg.Index.WorkingSetSize)
	}
	if cfg.Predict.ConfidenceFloor != 0.5 {
		t.Errorf("expected ConfidenceFloor=0.5, got %v", cfg.Predict.ConfidenceFloor)
	}
}
