// Package exec provides a testable command execution abstraction.
// The git source depends on Runner instead of calling exec.Command directly,
// so the pipeline can be tested without invoking any external process.
package exec

import (
	"context"
	"strings"

	osexec "os/exec"
)

// Runner defines the interface for executing external commands.
type Runner interface {
	// Run executes a command and returns its stdout.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)

	// RunInDir executes a command in a specific directory and returns its stdout.
	RunInDir(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// OSRunner implements Runner using os/exec.
type OSRunner struct{}

// NewOSRunner creates a new OS-based command runner.
func NewOSRunner() *OSRunner {
	return &OSRunner{}
}

// Run executes a command and returns stdout.
func (r *OSRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return osexec.CommandContext(ctx, name, args...).Output()
}

// RunInDir executes a command in a specific directory.
func (r *OSRunner) RunInDir(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := osexec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.Output()
}

// MockRunner implements Runner for testing. Responses are keyed by the full
// command line ("git rev-parse --abbrev-ref HEAD"); unmatched commands fall
// back to the bare command name.
type MockRunner struct {
	// Calls records all command invocations.
	Calls []MockCall

	// Responses maps command lines to responses.
	Responses map[string]MockResponse
}

// MockCall records a single command invocation.
type MockCall struct {
	Name string
	Args []string
	Dir  string
}

// MockResponse defines the response for a mocked command.
type MockResponse struct {
	Stdout []byte
	Err    error
}

// NewMockRunner creates a new mock runner.
func NewMockRunner() *MockRunner {
	return &MockRunner{Responses: make(map[string]MockResponse)}
}

// AddResponse sets the response for a command line.
func (m *MockRunner) AddResponse(cmdline string, resp MockResponse) {
	m.Responses[cmdline] = resp
}

func (m *MockRunner) respond(name string, args []string, dir string) ([]byte, error) {
	m.Calls = append(m.Calls, MockCall{Name: name, Args: args, Dir: dir})
	key := name
	if len(args) > 0 {
		key = name + " " + strings.Join(args, " ")
	}
	if resp, ok := m.Responses[key]; ok {
		return resp.Stdout, resp.Err
	}
	resp := m.Responses[name]
	return resp.Stdout, resp.Err
}

// Run records the call and returns the configured response.
func (m *MockRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return m.respond(name, args, "")
}

// RunInDir records the call and returns the configured response.
func (m *MockRunner) RunInDir(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	return m.respond(name, args, dir)
}
