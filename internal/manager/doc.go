// Package manager owns the process-wide model handle: the tokenizer and model
// bound to a llama-server backend plus the device they run on. It is structured
// into small files by concern:
//
//   - manager.go: core Manager type, constructor, readiness getters.
//   - config.go: ManagerConfig, package defaults and FromConfig.
//   - types.go: State, ModelInfo and Snapshot.
//   - errors.go: startup error types and Is* helpers.
//   - load.go: Load resolves the artifact, starts or connects to llama-server and attaches it.
//   - generate.go: Generate resolves generation options and runs one invocation.
//   - unload.go: Detach and Close.
//   - events.go: lifecycle events and publishers.
//   - sanity.go: dependency checks reported by the CLI.
//
// The Manager is constructed explicitly and injected into the HTTP layer; there
// are no package-level globals. Tests bind fakes with Attach.
package manager
