package cfg

import (
	"testing"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestConfigFields(t *testing.T) {
	cfg := &Cfg{
		Port:            "8080",
		BaseUrl:         "https://app.example.com",
		UserAgent:       "Test Agent",
		WorkerLimit:     5,
		EnableScheduler: true,
		OpenAIAPIKey:    "sk-test",
		OpenAIModel:     "gpt-3.5-turbo",
		ResendAPIKey:    "re_test",
		EmailFrom:       "Test <test@example.com>",
		Version:         "test-version",
		DBHost:          "localhost",
		DBPort:          "5432",
		DBUser:          "test_user",
		DBPassword:      "test_password",
		DBName:          "test_db",
		Timezone:        "UTC",
		Debug:           true,
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.BaseUrl != "https://app.example.com" {
		t.Errorf("Expected base URL 'https://app.example.com', got '%s'", cfg.BaseUrl)
	}
	if cfg.WorkerLimit != 5 {
		t.Errorf("Expected worker limit 5, got %d", cfg.WorkerLimit)
	}
	if !cfg.EnableScheduler {
		t.Error("Expected scheduler to be enabled")
	}
	if cfg.OpenAIModel != "gpt-3.5-turbo" {
		t.Errorf("Expected model 'gpt-3.5-turbo', got '%s'", cfg.OpenAIModel)
	}
	if cfg.EmailFrom != "Test <test@example.com>" {
		t.Errorf("Expected from address 'Test <test@example.com>', got '%s'", cfg.EmailFrom)
	}
	if cfg.DBHost != "localhost" {
		t.Errorf("Expected DB host 'localhost', got '%s'", cfg.DBHost)
	}
	if cfg.Timezone != "UTC" {
		t.Errorf("Expected timezone 'UTC', got '%s'", cfg.Timezone)
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
}

func TestGetPanicsWhenUnloaded(t *testing.T) {
	saved := globalCfg
	globalCfg = nil
	defer func() {
		globalCfg = saved
		if recover() == nil {
			t.Error("Expected Get to panic before Load")
		}
	}()
	Get()
}

func TestGetReturnsLoadedConfig(t *testing.T) {
	saved := globalCfg
	defer func() { globalCfg = saved }()

	globalCfg = &Cfg{Port: "9090"}
	if Get().Port != "9090" {
		t.Errorf("Expected loaded config from Get, got port '%s'", Get().Port)
	}
}

func TestApplyTimezone(t *testing.T) {
	if err := applyTimezone("UTC"); err != nil {
		t.Errorf("Expected UTC to be valid, got: %v", err)
	}
	if err := applyTimezone("Not/AZone"); err == nil {
		t.Error("Expected error for invalid timezone")
	}
}
