package executor

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/iarunsaragadam/isobox/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

// scriptedResult is one canned outcome for the fake runner.
type scriptedResult struct {
	result *RunResult
	err    error
}

// fakeRunner satisfies ContainerRunner and records every invocation so tests
// can assert on the synthesized argv and stdin without docker.
type fakeRunner struct {
	script []scriptedResult
	calls  []fakeCall
}

type fakeCall struct {
	args  []string
	wall  time.Duration
	stdin string
	piped bool
}

func (f *fakeRunner) next() scriptedResult {
	if len(f.script) == 0 {
		return scriptedResult{result: &RunResult{ExitCode: 0, Duration: time.Millisecond}}
	}
	head := f.script[0]
	f.script = f.script[1:]
	return head
}

func (f *fakeRunner) Run(ctx context.Context, args []string, wall time.Duration) (*RunResult, error) {
	f.calls = append(f.calls, fakeCall{args: args, wall: wall})
	head := f.next()
	return head.result, head.err
}

func (f *fakeRunner) RunWithStdin(ctx context.Context, args []string, wall time.Duration, stdin string) (*RunResult, error) {
	f.calls = append(f.calls, fakeCall{args: args, wall: wall, stdin: stdin, piped: true})
	head := f.next()
	return head.result, head.err
}

func newTestExecutor(t *testing.T, runner ContainerRunner) (*CodeExecutor, string) {
	t.Helper()
	scratch := t.TempDir()
	return New(NewRegistry(), NewWorkspaceManager(scratch), runner, 0), scratch
}

func assertNoWorkspaceLeft(t *testing.T, scratch string) {
	t.Helper()
	entries, err := os.ReadDir(scratch)
	require.NoError(t, err)
	assert.Empty(t, entries, "workspace directories must be reclaimed")
}

func TestExecuteUnsupportedLanguage(t *testing.T) {
	runner := &fakeRunner{}
	exec, scratch := newTestExecutor(t, runner)

	_, err := exec.Execute(context.Background(), model.ExecuteRequest{Language: "brainfuck", Code: "+"})
	require.Error(t, err)

	var execErr *Error
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, KindUnsupportedLanguage, execErr.Kind)

	// No container ran and no workspace was allocated
	assert.Empty(t, runner.calls)
	assertNoWorkspaceLeft(t, scratch)
}

func TestExecuteSingleShot(t *testing.T) {
	runner := &fakeRunner{script: []scriptedResult{
		{result: &RunResult{ExitCode: 0, Stdout: "hi\n", Duration: 42 * time.Millisecond}},
	}}
	exec, scratch := newTestExecutor(t, runner)

	resp, err := exec.Execute(context.Background(), model.ExecuteRequest{Language: "python", Code: `print("hi")`})
	require.NoError(t, err)

	assert.Equal(t, "hi\n", resp.Stdout)
	assert.Equal(t, "", resp.Stderr)
	assert.Equal(t, 0, resp.ExitCode)
	require.NotNil(t, resp.TimeTaken)
	assert.Greater(t, *resp.TimeTaken, 0.0)
	assert.Nil(t, resp.TestResults)

	// One run invocation, without stdin, with the run command and no compile
	require.Len(t, runner.calls, 1)
	call := runner.calls[0]
	assert.False(t, call.piped)
	assert.Equal(t, 10*time.Second, call.wall)
	joined := strings.Join(call.args, " ")
	assert.Contains(t, joined, "python:3.11-slim python main.py")
	assert.Contains(t, joined, "--rm")
	assert.Contains(t, joined, "--network none")

	assertNoWorkspaceLeft(t, scratch)
}

func TestExecuteWritesSourceToWorkspace(t *testing.T) {
	code := `print("write check")`
	var sourceSeen string

	runner := &fakeRunner{}
	scratch := t.TempDir()
	manager := NewWorkspaceManager(scratch)
	exec := New(NewRegistry(), manager, &inspectingRunner{fakeRunner: runner, onCall: func(args []string) {
		// The workspace path is the -v source; read the file while it exists
		for i, arg := range args {
			if arg == "-v" {
				hostPath := strings.SplitN(args[i+1], ":", 2)[0]
				data, err := os.ReadFile(hostPath + "/main.py")
				require.NoError(t, err)
				sourceSeen = string(data)
			}
		}
	}}, 0)

	_, err := exec.Execute(context.Background(), model.ExecuteRequest{Language: "python", Code: code})
	require.NoError(t, err)
	assert.Equal(t, code, sourceSeen)
	assertNoWorkspaceLeft(t, scratch)
}

// inspectingRunner lets a test observe the live workspace during a call.
type inspectingRunner struct {
	*fakeRunner
	onCall func(args []string)
}

func (r *inspectingRunner) Run(ctx context.Context, args []string, wall time.Duration) (*RunResult, error) {
	r.onCall(args)
	return r.fakeRunner.Run(ctx, args, wall)
}

func (r *inspectingRunner) RunWithStdin(ctx context.Context, args []string, wall time.Duration, stdin string) (*RunResult, error) {
	r.onCall(args)
	return r.fakeRunner.RunWithStdin(ctx, args, wall, stdin)
}

func TestExecuteCompilePhase(t *testing.T) {
	runner := &fakeRunner{script: []scriptedResult{
		{result: &RunResult{ExitCode: 0, Duration: time.Second}},                       // compile
		{result: &RunResult{ExitCode: 0, Stdout: "ok\n", Duration: time.Millisecond}}, // run
	}}
	exec, _ := newTestExecutor(t, runner)

	resp, err := exec.Execute(context.Background(), model.ExecuteRequest{Language: "c", Code: "int main(){return 0;}"})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.ExitCode)

	require.Len(t, runner.calls, 2)
	compile := strings.Join(runner.calls[0].args, " ")
	run := strings.Join(runner.calls[1].args, " ")
	assert.Contains(t, compile, "gcc -O2 -o main main.c")
	assert.Contains(t, run, "gcc:13 ./main")
}

func TestExecuteCompileFailureStopsRun(t *testing.T) {
	runner := &fakeRunner{script: []scriptedResult{
		{result: &RunResult{ExitCode: 1, Stderr: "error[E0308]: mismatched types\n", Duration: time.Second}},
	}}
	exec, scratch := newTestExecutor(t, runner)

	resp, err := exec.Execute(context.Background(), model.ExecuteRequest{
		Language:  "rust",
		Code:      `fn main() { let x: i32 = "oops"; }`,
		TestCases: []model.TestCase{{Name: "t1", Input: "1"}},
	})
	require.NoError(t, err, "a compile failure is a reportable outcome, not an error")

	assert.Equal(t, "", resp.Stdout)
	assert.Contains(t, resp.Stderr, "mismatched types")
	assert.NotEqual(t, 0, resp.ExitCode)
	assert.Nil(t, resp.TestResults)
	require.NotNil(t, resp.TimeTaken)
	assert.Equal(t, 0.0, *resp.TimeTaken)

	// Only the compile invocation happened
	require.Len(t, runner.calls, 1)
	assertNoWorkspaceLeft(t, scratch)
}

func TestExecuteGoUsesOverrideLimits(t *testing.T) {
	runner := &fakeRunner{}
	exec, _ := newTestExecutor(t, runner)

	_, err := exec.Execute(context.Background(), model.ExecuteRequest{Language: "go", Code: "package main\nfunc main(){}"})
	require.NoError(t, err)

	require.Len(t, runner.calls, 1)
	call := runner.calls[0]
	assert.Equal(t, 30*time.Second, call.wall)
	joined := strings.Join(call.args, " ")
	assert.Contains(t, joined, "--ulimit cpu=15:15")
	assert.Contains(t, joined, "--memory 536870912")
	assert.Contains(t, joined, "--ulimit nproc=100:100")
}

func TestExecuteTestCases(t *testing.T) {
	runner := &fakeRunner{script: []scriptedResult{
		{result: &RunResult{ExitCode: 0, Stdout: "15\n", Duration: 10 * time.Millisecond}},
		{result: &RunResult{ExitCode: 0, Stdout: "3\n", Duration: 12 * time.Millisecond}},
	}}
	exec, scratch := newTestExecutor(t, runner)

	resp, err := exec.Execute(context.Background(), model.ExecuteRequest{
		Language: "python",
		Code:     "import sys; print(sum(map(int, sys.stdin.read().split())))",
		TestCases: []model.TestCase{
			{Name: "t1", Input: "1 2 3 4 5", ExpectedOutput: strPtr("15")},
			{Name: "t2", Input: "1 2", ExpectedOutput: strPtr("3")},
		},
	})
	require.NoError(t, err)

	require.Len(t, resp.TestResults, 2)
	assert.Equal(t, 0, resp.ExitCode)

	first := resp.TestResults[0]
	assert.Equal(t, "t1", first.Name)
	assert.True(t, first.Passed)
	assert.Equal(t, "15", strings.TrimSpace(first.ActualOutput))
	assert.Equal(t, first.Stdout, first.ActualOutput)
	assert.Equal(t, "1 2 3 4 5", first.Input)
	assert.Greater(t, first.TimeTaken, 0.0)

	// Aggregate streams carry per-case headers in order
	assert.Contains(t, resp.Stdout, "=== Test Case: t1 ===")
	assert.Contains(t, resp.Stdout, "=== Test Case: t2 ===")
	assert.Less(t, strings.Index(resp.Stdout, "t1"), strings.Index(resp.Stdout, "t2"))

	// Each case ran with its stdin piped
	require.Len(t, runner.calls, 2)
	assert.True(t, runner.calls[0].piped)
	assert.Equal(t, "1 2 3 4 5", runner.calls[0].stdin)
	assert.Equal(t, "1 2", runner.calls[1].stdin)

	assertNoWorkspaceLeft(t, scratch)
}

func TestExecuteTestCaseExpectedMismatch(t *testing.T) {
	runner := &fakeRunner{script: []scriptedResult{
		{result: &RunResult{ExitCode: 0, Stdout: "5\n", Duration: time.Millisecond}},
	}}
	exec, _ := newTestExecutor(t, runner)

	resp, err := exec.Execute(context.Background(), model.ExecuteRequest{
		Language:  "python",
		Code:      "print(5)",
		TestCases: []model.TestCase{{Name: "t1", Input: "", ExpectedOutput: strPtr("10")}},
	})
	require.NoError(t, err)

	require.Len(t, resp.TestResults, 1)
	result := resp.TestResults[0]
	assert.False(t, result.Passed)
	assert.Equal(t, "Expected: '10', Got: '5'", result.ErrorMessage)
	assert.Equal(t, 1, resp.ExitCode)
}

func TestExecuteTestCaseNonZeroExit(t *testing.T) {
	runner := &fakeRunner{script: []scriptedResult{
		{result: &RunResult{ExitCode: 2, Stderr: "boom\n", Duration: time.Millisecond}},
	}}
	exec, _ := newTestExecutor(t, runner)

	resp, err := exec.Execute(context.Background(), model.ExecuteRequest{
		Language:  "python",
		Code:      "raise SystemExit(2)",
		TestCases: []model.TestCase{{Name: "t1", Input: ""}},
	})
	require.NoError(t, err)

	result := resp.TestResults[0]
	assert.False(t, result.Passed)
	assert.Equal(t, "Exit code: 2", result.ErrorMessage)
	assert.Equal(t, 1, resp.ExitCode)
}

func TestExecuteTestCaseWithoutExpectedOutputPassesOnZeroExit(t *testing.T) {
	runner := &fakeRunner{script: []scriptedResult{
		{result: &RunResult{ExitCode: 0, Stdout: "anything\n", Duration: time.Millisecond}},
	}}
	exec, _ := newTestExecutor(t, runner)

	resp, err := exec.Execute(context.Background(), model.ExecuteRequest{
		Language:  "python",
		Code:      "print('anything')",
		TestCases: []model.TestCase{{Name: "t1", Input: ""}},
	})
	require.NoError(t, err)
	assert.True(t, resp.TestResults[0].Passed)
	assert.Equal(t, 0, resp.ExitCode)
}

func TestExecuteTestCaseTimeoutIsAFailedResult(t *testing.T) {
	runner := &fakeRunner{script: []scriptedResult{
		{err: timeoutError(1.0)},
		{result: &RunResult{ExitCode: 0, Stdout: "ok\n", Duration: time.Millisecond}},
	}}
	exec, _ := newTestExecutor(t, runner)

	resp, err := exec.Execute(context.Background(), model.ExecuteRequest{
		Language: "python",
		Code:     "import time; time.sleep(2)",
		TestCases: []model.TestCase{
			{Name: "slow", Input: "", ExpectedOutput: strPtr("x"), TimeoutSeconds: intPtr(1)},
			{Name: "fast", Input: ""},
		},
	})
	require.NoError(t, err, "a per-case timeout must not abort the request")

	require.Len(t, resp.TestResults, 2)
	assert.False(t, resp.TestResults[0].Passed)
	assert.Contains(t, resp.TestResults[0].ErrorMessage, "timed out")
	assert.True(t, resp.TestResults[1].Passed, "later cases still run after a timeout")
	assert.Equal(t, 1, resp.ExitCode)

	// The lowered per-case wall deadline reached the runner
	assert.Equal(t, 1*time.Second, runner.calls[0].wall)
	assert.Equal(t, 10*time.Second, runner.calls[1].wall)
}

func TestExecuteSingleShotTimeoutIsAnError(t *testing.T) {
	runner := &fakeRunner{script: []scriptedResult{
		{err: timeoutError(10.0)},
	}}
	exec, scratch := newTestExecutor(t, runner)

	_, err := exec.Execute(context.Background(), model.ExecuteRequest{Language: "python", Code: "import time; time.sleep(60)"})
	require.Error(t, err)

	var execErr *Error
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, KindTimeout, execErr.Kind)
	assertNoWorkspaceLeft(t, scratch)
}

func TestExecuteEmptyTestCaseList(t *testing.T) {
	runner := &fakeRunner{}
	exec, _ := newTestExecutor(t, runner)

	resp, err := exec.Execute(context.Background(), model.ExecuteRequest{
		Language:  "python",
		Code:      "print(1)",
		TestCases: []model.TestCase{},
	})
	require.NoError(t, err)

	assert.Empty(t, resp.Stdout)
	assert.Equal(t, 0, resp.ExitCode)
	assert.Empty(t, resp.TestResults)
	assert.Empty(t, runner.calls, "no cases means no container runs")
}

func TestExecuteInfrastructureFailurePropagates(t *testing.T) {
	runner := &fakeRunner{script: []scriptedResult{
		{err: executionError("failed to start docker", nil)},
	}}
	exec, scratch := newTestExecutor(t, runner)

	_, err := exec.Execute(context.Background(), model.ExecuteRequest{Language: "python", Code: "print(1)"})
	require.Error(t, err)

	var execErr *Error
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, KindExecution, execErr.Kind)
	assertNoWorkspaceLeft(t, scratch)
}

func TestExecuteConcurrencyCap(t *testing.T) {
	runner := &fakeRunner{}
	exec := New(NewRegistry(), NewWorkspaceManager(t.TempDir()), runner, 1)

	// The cap is a worker slot, not a queue: a canceled context while waiting
	// surfaces as an execution error.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec.workers <- struct{}{} // occupy the only slot
	_, err := exec.Execute(ctx, model.ExecuteRequest{Language: "python", Code: "print(1)"})
	require.Error(t, err)

	var execErr *Error
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, KindExecution, execErr.Kind)
	<-exec.workers
}

// Integration test - only run if Docker is available and tests are explicitly enabled
func TestExecuteWithDocker(t *testing.T) {
	if os.Getenv("ENABLE_DOCKER_TESTS") != "true" {
		t.Skip("Docker tests are disabled by default. Set ENABLE_DOCKER_TESTS=true to enable")
	}
	if !isCommandAvailable("docker") {
		t.Skip("Docker is not available")
	}

	exec := New(NewRegistry(), NewWorkspaceManager(""), NewRunner(), 0)

	t.Run("python hello", func(t *testing.T) {
		resp, err := exec.Execute(context.Background(), model.ExecuteRequest{
			Language: "python",
			Code:     `print("hi")`,
		})
		require.NoError(t, err)
		assert.Equal(t, "hi\n", resp.Stdout)
		assert.Equal(t, "", resp.Stderr)
		assert.Equal(t, 0, resp.ExitCode)
		require.NotNil(t, resp.TimeTaken)
		assert.Greater(t, *resp.TimeTaken, 0.0)
	})

	t.Run("python stdin sum", func(t *testing.T) {
		resp, err := exec.Execute(context.Background(), model.ExecuteRequest{
			Language: "python",
			Code:     "import sys; print(sum(map(int, sys.stdin.read().split())))",
			TestCases: []model.TestCase{
				{Name: "t1", Input: "1 2 3 4 5", ExpectedOutput: strPtr("15")},
			},
		})
		require.NoError(t, err)
		require.Len(t, resp.TestResults, 1)
		assert.True(t, resp.TestResults[0].Passed)
		assert.Equal(t, "15", strings.TrimSpace(resp.TestResults[0].ActualOutput))
		assert.Equal(t, 0, resp.ExitCode)
	})

	t.Run("deterministic output", func(t *testing.T) {
		req := model.ExecuteRequest{Language: "python", Code: `print("hi")`}
		first, err := exec.Execute(context.Background(), req)
		require.NoError(t, err)
		second, err := exec.Execute(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, first.Stdout, second.Stdout)
		assert.Equal(t, first.Stderr, second.Stderr)
		assert.Equal(t, first.ExitCode, second.ExitCode)
	})
}
