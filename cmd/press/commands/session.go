package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/openfroyo/press/pkg/config"
	"github.com/openfroyo/press/pkg/engine"
	"github.com/openfroyo/press/pkg/modules"
	"github.com/openfroyo/press/pkg/policy"
	"github.com/openfroyo/press/pkg/stores"
	"github.com/openfroyo/press/pkg/telemetry"
	"github.com/openfroyo/press/pkg/trace"
)

// settingsFiles are looked up in the root folder when --config is not given.
var settingsFiles = []string{"press.yaml", "press.yml", "press.cue"}

// loadSettings resolves the settings file and applies the global flags on top.
func loadSettings() (*config.Settings, error) {
	path := configPath
	if path == "" {
		base := rootFolder
		if base == "" {
			base = "."
		}
		for _, name := range settingsFiles {
			candidate := filepath.Join(base, name)
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	s := config.DefaultSettings()
	if path != "" {
		loaded, err := config.LoadSettings(path)
		if err != nil {
			return nil, err
		}
		s = loaded
		log.Debug().Str("path", path).Msg("Loaded settings")
	}

	if rootFolder != "" {
		s.RootFolder = rootFolder
	}
	if s.RootFolder == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
		s.RootFolder = wd
	}
	if logLevel != "" {
		lvl, err := trace.ParseLevel(logLevel)
		if err != nil {
			return nil, err
		}
		s.Trace.Level = lvl.String()
	}

	if err := config.ValidateSettings(s); err != nil {
		return nil, err
	}
	return s, nil
}

// resolvePath joins relative paths to the root folder.
func resolvePath(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// session wires one engine instance to its collaborators. An engine configures
// once, so every build gets a fresh session.
type session struct {
	settings     *config.Settings
	script       string
	trace        *trace.Trace
	engine       *engine.Engine
	configurator *config.Configurator
	telemetry    *telemetry.Telemetry
	ownTelemetry bool
	observer     *telemetry.Observer
	store        *stores.SQLiteStore
	recorder     *stores.Recorder
	policies     *policy.Engine
}

// newSession builds a session. When tel is nil the session creates and owns
// its telemetry.
func newSession(ctx context.Context, s *config.Settings, script string, tel *telemetry.Telemetry) (sess *session, err error) {
	tr, err := trace.New(s.Trace)
	if err != nil {
		return nil, err
	}

	sess = &session{settings: s, script: script, trace: tr, telemetry: tel}
	defer func() {
		if err != nil {
			_ = sess.close(context.Background())
		}
	}()

	if sess.telemetry == nil {
		sess.telemetry, err = newTelemetry(s)
		if err != nil {
			return nil, err
		}
		sess.ownTelemetry = true
	}
	sess.observer = sess.telemetry.Observer()

	filename := "config.star"
	if script != "" {
		filename = script
	}
	sess.configurator = config.NewConfigurator(config.Options{
		Timeout:  time.Duration(s.ScriptTimeoutSeconds) * time.Second,
		Filename: filename,
		Registry: modules.DefaultRegistry(),
	})

	opts := []engine.Option{
		engine.WithTrace(tr),
		engine.WithRootFolder(s.RootFolder),
		engine.WithConfigurator(sess.configurator),
		engine.WithObserver(sess.observer),
	}

	if s.History.Enabled {
		sess.store, err = stores.Open(ctx, stores.Config{Path: resolvePath(s.RootFolder, s.History.Path)})
		if err != nil {
			return nil, fmt.Errorf("failed to open run history: %w", err)
		}
		sess.recorder = stores.NewRecorder(sess.store, log.Logger, s.RootFolder, script)
		opts = append(opts, engine.WithObserver(sess.recorder))
	}

	if !s.Policy.Disabled {
		sess.policies, err = policy.NewEngine(log.Logger)
		if err != nil {
			return nil, err
		}
		if len(s.Policy.Files) > 0 {
			paths := make([]string, len(s.Policy.Files))
			for i, f := range s.Policy.Files {
				paths[i] = resolvePath(s.RootFolder, f)
			}
			if err := sess.policies.LoadPolicies(ctx, paths); err != nil {
				return nil, err
			}
		}
	}

	sess.engine = engine.New(opts...)
	for k, v := range s.Metadata {
		sess.engine.Metadata()[k] = v
	}

	return sess, nil
}

func newTelemetry(s *config.Settings) (*telemetry.Telemetry, error) {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceVersion = serviceVersion
	cfg.Tracing = s.Tracing
	cfg.Metrics = s.Metrics
	return telemetry.NewTelemetry(cfg)
}

// configure runs the configuration script and the policy checks.
func (s *session) configure(ctx context.Context) (*policy.Result, error) {
	var src string
	if s.script != "" {
		data, err := os.ReadFile(s.script)
		if err != nil {
			return nil, fmt.Errorf("failed to read script: %w", err)
		}
		src = string(data)
		if strings.TrimSpace(src) == "" {
			log.Warn().Str("script", s.script).Msg("Script is empty, using default pipelines")
			src = ""
		}
	}

	if err := s.engine.Configure(ctx, src); err != nil {
		return nil, err
	}
	if s.policies == nil {
		return nil, nil
	}

	result, err := s.policies.Evaluate(ctx, s.engine)
	if err != nil {
		return nil, fmt.Errorf("policy evaluation failed: %w", err)
	}
	for _, v := range result.Violations {
		if err := engine.TraceDiagnostic(s.trace, v.Diagnostic()); err != nil {
			return result, err
		}
	}
	for _, w := range result.Warnings {
		s.trace.Warning("%s", w)
	}
	if !result.Allowed {
		return result, fmt.Errorf("policy check denied execution: %d violation(s)", len(result.Violations))
	}
	return result, nil
}

// runInfo identifies an engine run.
type runInfo struct {
	RunID   string
	TraceID string
}

// execute runs the configured engine under a fresh run ID. TraceID is empty
// unless tracing is enabled.
func (s *session) execute(ctx context.Context) (runInfo, []engine.Document, error) {
	info := runInfo{RunID: uuid.NewString()}
	ctx = s.observer.StartRun(ctx, info.RunID)
	info.TraceID = telemetry.TraceID(ctx)
	if s.recorder != nil {
		s.recorder.SetRunID(info.RunID)
	}

	docs, err := s.engine.Execute(ctx)
	if s.recorder != nil {
		if recErr := s.recorder.Err(); recErr != nil {
			log.Warn().Err(recErr).Msg("Run history was not updated")
		}
	}
	return info, docs, err
}

func (s *session) close(ctx context.Context) error {
	var errs []error
	if s.ownTelemetry && s.telemetry != nil {
		errs = append(errs, s.telemetry.Shutdown(ctx))
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	return errors.Join(errs...)
}
