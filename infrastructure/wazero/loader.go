package wazero

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"
	"go.uber.org/zap/zapio"

	domainerrors "github.com/wasmfn/wasmfn/domain/errors"
	"github.com/wasmfn/wasmfn/domain/ports"
	"github.com/wasmfn/wasmfn/log"
)

// Init stages reported in errors.InitError.
const (
	StageWASI        = "wasi"
	StageHostModule  = "host_module"
	StageCompile     = "compile"
	StageInstantiate = "instantiate"
	StageStart       = "start"
	StageValidate    = "validate"
)

const guestCallExport = "__guest_call"

var _ ports.GuestLoader = (*Loader)(nil)

// Loader compiles and instantiates waPC guests. Every Load gets its own
// wazero runtime, so guests share no state.
type Loader struct {
	cfg LoaderConfig
}

// NewLoader creates a Loader with the given options.
func NewLoader(opts ...LoaderOption) *Loader {
	cfg := defaultLoaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Loader{cfg: cfg}
}

// Load implements ports.GuestLoader. Failures are *errors.InitError.
func (l *Loader) Load(ctx context.Context, bytecode []byte, host ports.HostCallHandler) (ports.Guest, error) {
	logger := log.Or(l.cfg.Logger).Named("guest")
	if host == nil {
		host = func(context.Context, string, string, string, []byte) ([]byte, error) {
			return nil, errors.New("host calls are not supported")
		}
	}

	runtimeCfg := l.cfg.RuntimeConfig
	if runtimeCfg == nil {
		runtimeCfg = wazero.NewRuntimeConfig()
	}
	rt := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	fail := func(stage string, err error) (ports.Guest, error) {
		_ = rt.Close(ctx)
		return nil, &domainerrors.InitError{Stage: stage, Err: err}
	}

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		return fail(StageWASI, err)
	}

	hm := &hostModule{host: host, logger: logger, maxPayload: l.cfg.MaxPayloadSize}
	if err := hm.instantiate(ctx, rt, l.cfg.ModuleName); err != nil {
		return fail(StageHostModule, err)
	}

	compiled, err := rt.CompileModule(ctx, bytecode)
	if err != nil {
		return fail(StageCompile, err)
	}

	stdout, stderr := l.cfg.Stdout, l.cfg.Stderr
	if stdout == nil {
		stdout = &zapio.Writer{Log: logger.With(zap.String("stream", "stdout")), Level: zap.InfoLevel}
	}
	if stderr == nil {
		stderr = &zapio.Writer{Log: logger.With(zap.String("stream", "stderr")), Level: zap.WarnLevel}
	}

	// Start functions run below so that their failures are reported per stage.
	modCfg := wazero.NewModuleConfig().
		WithStartFunctions().
		WithStdout(stdout).
		WithStderr(stderr)

	mod, err := rt.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		return fail(StageInstantiate, err)
	}

	for _, name := range startFunctions(mod) {
		if err := callStart(ctx, mod, name); err != nil {
			return fail(StageStart, err)
		}
	}

	guestCall := mod.ExportedFunction(guestCallExport)
	if guestCall == nil {
		return fail(StageValidate, fmt.Errorf("module does not export %s", guestCallExport))
	}
	if def := guestCall.Definition(); len(def.ParamTypes()) != 2 || len(def.ResultTypes()) != 1 {
		return fail(StageValidate, fmt.Errorf("%s has signature %v -> %v, want (i32, i32) -> i32",
			guestCallExport, def.ParamTypes(), def.ResultTypes()))
	}

	g := &Guest{runtime: rt, module: mod, guestCall: guestCall}
	logger.Debug("guest loaded", zap.Uint32("memory_bytes", g.MemorySize()))
	return g, nil
}

// startFunctions lists the initialization exports to run, in order: the WASI
// reactor or command entry point, then the waPC registration hook.
func startFunctions(mod api.Module) []string {
	var names []string
	switch {
	case mod.ExportedFunction("_initialize") != nil:
		names = append(names, "_initialize")
	case mod.ExportedFunction("_start") != nil:
		names = append(names, "_start")
	}
	if mod.ExportedFunction("wapc_init") != nil {
		names = append(names, "wapc_init")
	}
	return names
}

func callStart(ctx context.Context, mod api.Module, name string) error {
	_, err := mod.ExportedFunction(name).Call(ctx)
	if err == nil {
		return nil
	}
	var exitErr *sys.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 0 {
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}
