package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fleetwave/fleetwave/internal/common/httpclient"
	"github.com/fleetwave/fleetwave/internal/fleetapi"
	"github.com/fleetwave/fleetwave/internal/journal"
)

// journalFlushInterval batches journal writes. Kept small because CLI
// processes are short-lived and exit right after the last request.
const journalFlushInterval = 1

// runtime wires one command invocation: the loaded config, the transport,
// the session store, the request journal, and the executor on top of them.
type runtime struct {
	cfg    *Config
	client *httpclient.HTTPClient
	store  *fleetapi.SessionStore
	exec   *fleetapi.Executor
	jw     *journal.Writer
}

// newRuntime builds the execution stack from the loaded config. The caller
// must Close the runtime so buffered journal entries reach disk.
func newRuntime() (*runtime, error) {
	cfg := GetConfig()
	if cfg == nil {
		return nil, fmt.Errorf("no configuration loaded")
	}

	engine, err := loadEngineConfig()
	if err != nil {
		return nil, err
	}

	clientCfg := &fleetapi.ClientConfig{
		ServerURL: cfg.GetServerURL(),
		APIKey:    cfg.GetAPIKey(),
	}
	client := httpclient.NewClient(clientCfg)

	issuer := fleetapi.NewAPITokenIssuer(client, clientCfg)
	store := fleetapi.NewSessionStore(issuer, fleetapi.StoreOptions{
		RefreshSkew: engine.RefreshSkew,
		OnUpdate:    persistSession(cfg),
	})
	clientCfg.Store = store

	// Restore the session saved by a previous invocation. An expired token
	// is fine here; the executor refreshes it on first use.
	if cfg.WorkspaceID != "" && cfg.GetToken() != "" {
		store.Set(fleetapi.Session{
			WorkspaceID:   cfg.WorkspaceID,
			WorkspaceName: cfg.WorkspaceName,
			Token:         cfg.GetToken(),
			Expiry:        cfg.GetTokenExpiry(),
		})
	}

	jw, err := journal.NewWriter(JournalPath(), journalFlushInterval)
	if err != nil {
		return nil, fmt.Errorf("unable to open request journal: %w", err)
	}

	exec, err := fleetapi.NewExecutor(fleetapi.ExecutorOptions{
		Client:   client,
		Config:   clientCfg,
		Sessions: store,
		Engine:   engine,
		Recorder: jw,
	})
	if err != nil {
		jw.Close()
		return nil, err
	}

	return &runtime{cfg: cfg, client: client, store: store, exec: exec, jw: jw}, nil
}

// Close flushes and closes the request journal.
func (rt *runtime) Close() {
	if rt.jw != nil {
		if err := rt.jw.Close(); err != nil {
			log.Warn().Err(err).Msg("unable to close request journal")
		}
	}
}

// loadEngineConfig reads the optional engine.toml next to the config file.
// A missing file means defaults; a broken file is an error the user should
// see rather than silently losing their tuning.
func loadEngineConfig() (fleetapi.EngineConfig, error) {
	path := EngineConfigPath()
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fleetapi.DefaultEngineConfig(), nil
		}
		return fleetapi.EngineConfig{}, fmt.Errorf("unable to read engine config: %w", err)
	}
	cfg, err := fleetapi.LoadEngineConfig(path)
	if err != nil {
		return fleetapi.EngineConfig{}, fmt.Errorf("invalid engine config %s: %w", path, err)
	}
	return cfg, nil
}

// persistSession writes session changes through to the config file so the
// next invocation starts where this one left off. The no-change guard keeps
// the startup restore from rewriting an identical config.
func persistSession(cfg *Config) func(fleetapi.Session) {
	return func(s fleetapi.Session) {
		expiry := ""
		if !s.Expiry.IsZero() {
			expiry = s.Expiry.Format(time.RFC3339)
		}
		if cfg.CurrentToken == s.Token && cfg.TokenExpiry == expiry &&
			cfg.WorkspaceID == s.WorkspaceID && cfg.WorkspaceName == s.WorkspaceName {
			return
		}
		cfg.WorkspaceID = s.WorkspaceID
		cfg.WorkspaceName = s.WorkspaceName
		cfg.CurrentToken = s.Token
		cfg.TokenExpiry = expiry
		if err := cfg.WriteConfig(configFile); err != nil {
			log.Warn().Err(err).Msg("unable to persist session to config file")
		}
	}
}

// outcomeError converts a non-success outcome into a command error. Dry-run
// and partial-success outcomes are not errors at this level; commands that
// expect them handle those states before calling this.
func outcomeError(o fleetapi.Outcome) error {
	switch o.Status {
	case fleetapi.StatusComplete, fleetapi.StatusDryRun:
		return nil
	case fleetapi.StatusPartialSuccess:
		if o.Partial != nil {
			return fmt.Errorf("%d of %d items failed", o.Partial.Failed, len(o.Partial.Items))
		}
		return fmt.Errorf("request partially failed")
	}
	if o.Failure == nil {
		return fmt.Errorf("request failed")
	}
	if o.Status == fleetapi.StatusAuthentication && o.Failure.Code == fleetapi.CodeNoSession {
		return fmt.Errorf("%s: run \"fleetwave set-workspace <workspace>\"", o.Failure.Message)
	}
	return fmt.Errorf("%s", o.Failure.Message)
}

// renderDryRun prints the rendered request of a dry-run outcome.
func renderDryRun(o fleetapi.Outcome) error {
	if o.Rendered == nil {
		return fmt.Errorf("dry run produced no rendering")
	}
	if jsonOutput {
		printJSON(map[string]any{
			"result":  1,
			"dry_run": true,
			"request": o.Rendered,
		})
		return nil
	}

	warnLabel.Println("Dry run: no request sent")
	fmt.Printf("%s %s\n", o.Rendered.Method, o.Rendered.URL)

	keys := make([]string, 0, len(o.Rendered.Headers))
	for k := range o.Rendered.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s: %s\n", k, o.Rendered.Headers[k])
	}

	if len(o.Rendered.Body) > 0 {
		var pretty []byte
		var v any
		if err := json.Unmarshal(o.Rendered.Body, &v); err == nil {
			pretty, _ = json.MarshalIndent(v, "", "  ")
		}
		if pretty == nil {
			pretty = o.Rendered.Body
		}
		fmt.Printf("\n%s\n", string(pretty))
	}
	return nil
}
