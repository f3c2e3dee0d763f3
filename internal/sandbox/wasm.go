package sandbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// Guest ABI. A program artifact is a WebAssembly module that exports
// "memory" and "entrypoint(ptr, len) -> u64". Instruction data is written
// into guest memory at inputOffset before the call; a zero return means
// success, any other value is a guest error code. Host syscalls live in
// module "sol".
const (
	entrypointExport = "entrypoint"
	inputOffset      = 0x1000
	wasmPageSize     = 65536
)

// callCtxKey carries the active *Call into host functions.
type callCtxKey struct{}

func callFromContext(ctx context.Context) *Call {
	call, _ := ctx.Value(callCtxKey{}).(*Call)
	return call
}

// newWasmRuntime creates a wazero runtime with the "sol" host module
// instantiated. Host functions charge the per-transaction meter; on
// budget exhaustion they panic, which wazero surfaces as a call error
// and Execute maps back to ErrComputeExceeded via the call frame.
func newWasmRuntime(ctx context.Context) (wazero.Runtime, error) {
	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))

	_, err := r.NewHostModuleBuilder("sol").
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, mod api.Module, ptr, size uint32) {
			call := callFromContext(ctx)
			if call == nil {
				panic(errors.New("sol.log called outside a submission"))
			}
			msg, ok := mod.Memory().Read(ptr, size)
			if !ok {
				panic(fmt.Errorf("sol.log: out of bounds read at %#x+%d", ptr, size))
			}
			if err := call.Log(string(msg)); err != nil {
				panic(err)
			}
		}).
		Export("log").
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, mod api.Module, inPtr, inLen, outPtr uint32) uint32 {
			call := callFromContext(ctx)
			if call == nil {
				panic(errors.New("sol.poseidon called outside a submission"))
			}
			input, ok := mod.Memory().Read(inPtr, inLen)
			if !ok {
				panic(fmt.Errorf("sol.poseidon: out of bounds read at %#x+%d", inPtr, inLen))
			}
			digest, err := call.Poseidon(input)
			if err != nil {
				if call.meterExceeded {
					panic(err)
				}
				return 1
			}
			if !mod.Memory().Write(outPtr, digest[:]) {
				panic(fmt.Errorf("sol.poseidon: out of bounds write at %#x", outPtr))
			}
			return 0
		}).
		Export("poseidon").
		Instantiate(ctx)
	if err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("instantiating sol host module: %w", err)
	}

	return r, nil
}

// wasmProgram is a compiled program artifact. A fresh instance is created
// per submission so programs cannot carry state between transactions.
type wasmProgram struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
}

func newWasmProgram(ctx context.Context, runtime wazero.Runtime, artifact []byte) (*wasmProgram, error) {
	compiled, err := runtime.CompileModule(ctx, artifact)
	if err != nil {
		return nil, fmt.Errorf("compiling program artifact: %w", err)
	}
	return &wasmProgram{runtime: runtime, compiled: compiled}, nil
}

// Execute instantiates the module, writes the instruction data into guest
// memory and invokes the entrypoint.
func (p *wasmProgram) Execute(ctx context.Context, call *Call) error {
	mod, err := p.runtime.InstantiateModule(ctx, p.compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return fmt.Errorf("instantiating program: %w", err)
	}
	defer mod.Close(ctx)

	mem := mod.Memory()
	if mem == nil {
		return errors.New("program exports no memory")
	}
	if need := uint64(inputOffset + len(call.Data)); uint64(mem.Size()) < need {
		pages := (need - uint64(mem.Size()) + wasmPageSize - 1) / wasmPageSize
		if _, ok := mem.Grow(uint32(pages)); !ok {
			return errors.New("growing program memory failed")
		}
	}
	if !mem.Write(inputOffset, call.Data) {
		return errors.New("writing instruction data into program memory failed")
	}

	entry := mod.ExportedFunction(entrypointExport)
	if entry == nil {
		return fmt.Errorf("program exports no %q function", entrypointExport)
	}

	results, err := entry.Call(context.WithValue(ctx, callCtxKey{}, call), inputOffset, uint64(len(call.Data)))
	if err != nil {
		if call.meterExceeded {
			return ErrComputeExceeded
		}
		return fmt.Errorf("program trapped: %w", err)
	}
	if len(results) > 0 && results[0] != 0 {
		return &ProgramError{Code: results[0]}
	}
	return nil
}
