package config

import "testing"

func TestParseWindow(t *testing.T) {
	tests := []struct {
		in      string
		want    Window
		wantErr bool
	}{
		{in: "7-11", want: Window{Start: 7, End: 11}},
		{in: " 20 - 24 ", want: Window{Start: 20, End: 24}},
		{in: "11-7", wantErr: true},
		{in: "5", wantErr: true},
		{in: "a-b", wantErr: true},
		{in: "0-25", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseWindow(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseWindow(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseWindow(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseWindow(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestWindowContains(t *testing.T) {
	w := Window{Start: 20, End: 23}
	for hour, want := range map[int]bool{19: false, 20: true, 22: true, 23: false} {
		if got := w.Contains(hour); got != want {
			t.Errorf("Contains(%d) = %v, want %v", hour, got, want)
		}
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("DATABASE_URL", "memory://")
	t.Setenv("EVENING_WINDOW", "19-22")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.EveningWindow != (Window{Start: 19, End: 22}) {
		t.Errorf("EveningWindow = %+v", cfg.EveningWindow)
	}
	if cfg.ResetWindow != (Window{Start: 0, End: 2}) {
		t.Errorf("ResetWindow = %+v, want default 0-2", cfg.ResetWindow)
	}
	if cfg.WebhookSecret == "" || cfg.JWTSecret == "" {
		t.Errorf("expected derived secrets to be set")
	}
	if cfg.WebhookSecret == cfg.JWTSecret {
		t.Errorf("derived secrets must differ")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.UseWebhook() {
		t.Errorf("UseWebhook should be false without a base URL")
	}
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("DATABASE_URL", "memory://")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without token")
	}
}
