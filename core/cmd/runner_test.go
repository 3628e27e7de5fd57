package cmd

import (
	"context"
	"errors"
	"testing"

	coreconfig "github.com/m3rciful/refbot/core/config"
	coretelegram "github.com/m3rciful/refbot/core/telegram"
)

type fakeConfig struct{ core *coreconfig.Config }

func (f fakeConfig) CoreConfig() *coreconfig.Config { return f.core }

type fakeApp struct {
	closed bool
}

func (a *fakeApp) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{}, nil
}

func (a *fakeApp) Close() error {
	a.closed = true
	return nil
}

func TestRunWiresHooksAndCloses(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	app := &fakeApp{}
	var loadedPath = "unset"
	started, stopped := false, false

	err := Run(Options{
		LoadConfig: func(path string) (ConfigCarrier, error) {
			loadedPath = path
			return fakeConfig{core: &coreconfig.Config{}}, nil
		},
		Bootstrap:      func(ConfigCarrier) (TelegramApp, error) { return app, nil },
		ShutdownLogger: func() error { return nil },
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			started = opts.OnStart(ctx, coretelegram.Runtime{}) == nil
			stopped = opts.OnStop(ctx, coretelegram.Runtime{}) == nil
			return nil
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if loadedPath != "" {
		t.Fatalf("config path = %q, want env-only load", loadedPath)
	}
	if !started || !stopped || !app.closed {
		t.Fatalf("started=%v stopped=%v closed=%v", started, stopped, app.closed)
	}
}

func TestRunPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	err := Run(Options{
		LoadConfig: func(string) (ConfigCarrier, error) { return nil, boom },
		Bootstrap:  func(ConfigCarrier) (TelegramApp, error) { return nil, nil },
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}

	err = Run(Options{
		LoadConfig: func(string) (ConfigCarrier, error) { return fakeConfig{}, nil },
		Bootstrap:  func(ConfigCarrier) (TelegramApp, error) { return nil, nil },
	})
	if err == nil {
		t.Fatal("missing core config accepted")
	}
}

func TestConfigPathPrefersEnv(t *testing.T) {
	t.Setenv("REFBOT_CONFIG", "/etc/refbot/config.yaml")
	opts := Options{ConfigEnvVar: "REFBOT_CONFIG", DefaultConfigPath: "config.yaml"}
	if got := opts.configPath(); got != "/etc/refbot/config.yaml" {
		t.Fatalf("path = %q", got)
	}

	t.Setenv("REFBOT_CONFIG", "")
	if got := opts.configPath(); got != "config.yaml" {
		t.Fatalf("path = %q, want default", got)
	}
}
