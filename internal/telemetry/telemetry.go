// Package telemetry is a small hook layer for counters and timings emitted
// by the validator, registry and fixture runner. The default emitter is a
// no-op; wiring code may register a real one (metrics backend, test spy).
package telemetry

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// Emitter receives one measurement.
type Emitter func(ctx context.Context, name string, labels map[string]string, value any)

var (
	mu   sync.Mutex
	impl Emitter = func(ctx context.Context, name string, labels map[string]string, value any) {}
)

// RegisterEmitter installs fn. A nil fn restores the no-op emitter.
func RegisterEmitter(fn Emitter) {
	mu.Lock()
	defer mu.Unlock()
	if fn == nil {
		impl = func(ctx context.Context, name string, labels map[string]string, value any) {}
		return
	}
	impl = fn
}

func emit(ctx context.Context, name string, labels map[string]string, value any) {
	mu.Lock()
	fn := impl
	mu.Unlock()
	fn(ctx, name, labels, value)
}

// EmitValidatorBuild records how long compiling a schema took.
// name: "astroschema_validator_build_ms" with label {"schema": "<title>"}
func EmitValidatorBuild(ctx context.Context, schema string, elapsed time.Duration) {
	emit(ctx, "astroschema_validator_build_ms", map[string]string{"schema": schema}, elapsed.Milliseconds())
}

// EmitValidation counts one instance validation.
// name: "astroschema_validation_total" with labels {"schema", "valid"}
func EmitValidation(ctx context.Context, schema string, valid bool) {
	labels := map[string]string{"schema": schema, "valid": strconv.FormatBool(valid)}
	emit(ctx, "astroschema_validation_total", labels, int64(1))
}

// EmitIndexBuild records the number of schema files indexed.
func EmitIndexBuild(ctx context.Context, source string, files int) {
	emit(ctx, "astroschema_index_files", map[string]string{"source": source}, int64(files))
}

// EmitFixtureResult counts one fixture check.
// name: "astroschema_fixture_total" with labels {"schema", "passed"}
func EmitFixtureResult(ctx context.Context, schema string, passed bool) {
	labels := map[string]string{"schema": schema, "passed": strconv.FormatBool(passed)}
	emit(ctx, "astroschema_fixture_total", labels, int64(1))
}

// EmitObjectTransfer counts objects moved to or from remote storage.
// name: "astroschema_s3_objects" with label {"direction": "download"|"upload"}
func EmitObjectTransfer(ctx context.Context, direction string, objects int) {
	emit(ctx, "astroschema_s3_objects", map[string]string{"direction": direction}, int64(objects))
}
