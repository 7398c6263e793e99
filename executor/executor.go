package executor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/iarunsaragadam/isobox/model"
)

// ContainerRunner is the engine's view of the container runtime process
// launcher. It is an interface so orchestration can be tested without docker.
type ContainerRunner interface {
	Run(ctx context.Context, args []string, wallDeadline time.Duration) (*RunResult, error)
	RunWithStdin(ctx context.Context, args []string, wallDeadline time.Duration, stdin string) (*RunResult, error)
}

// CodeExecutor is the execution orchestrator: it resolves the language,
// allocates the workspace, runs the compile phase when the language has one,
// then a single run or the test-case loop, and guarantees workspace cleanup on
// every exit path.
type CodeExecutor struct {
	registry   *Registry
	workspaces *WorkspaceManager
	runner     ContainerRunner
	workers    chan struct{}
}

// New creates a code executor. maxConcurrent bounds the number of in-flight
// executions; zero disables the cap.
func New(registry *Registry, workspaces *WorkspaceManager, runner ContainerRunner, maxConcurrent int) *CodeExecutor {
	var workers chan struct{}
	if maxConcurrent > 0 {
		workers = make(chan struct{}, maxConcurrent)
	}
	return &CodeExecutor{
		registry:   registry,
		workspaces: workspaces,
		runner:     runner,
		workers:    workers,
	}
}

// Languages returns the supported-language enumeration.
func (e *CodeExecutor) Languages() []model.LanguageInfo {
	return e.registry.List()
}

// Execute runs the request to completion and returns the aggregated response.
// Compile failures are a reportable outcome, not an error; infrastructure
// failures and single-shot timeouts surface as *Error.
func (e *CodeExecutor) Execute(ctx context.Context, req model.ExecuteRequest) (*model.ExecuteResponse, error) {
	entry, err := e.registry.Lookup(req.Language)
	if err != nil {
		return nil, err
	}

	if e.workers != nil {
		select {
		case e.workers <- struct{}{}:
			defer func() { <-e.workers }()
		case <-ctx.Done():
			return nil, executionError("canceled while waiting for a worker slot", ctx.Err())
		}
	}

	ws, err := e.workspaces.Create()
	if err != nil {
		return nil, err
	}
	defer e.workspaces.Destroy(ws)

	if err := e.workspaces.WriteSource(ws, entry.SourceFile, []byte(req.Code)); err != nil {
		return nil, err
	}

	baseLimits := DefaultLimits()
	if entry.Limits != nil {
		baseLimits = *entry.Limits
	}

	if entry.RequiresCompilation() {
		args := BuildDockerArgs(ws.HostPath, entry.Image, baseLimits, entry.CompileCommand)
		result, err := e.runner.Run(ctx, args, baseLimits.WallTime)
		if err != nil {
			return nil, err
		}
		if result.ExitCode != 0 {
			log.Printf("Compilation failed for language %s (exit code %d)", req.Language, result.ExitCode)
			zero := 0.0
			return &model.ExecuteResponse{
				Stdout:    "",
				Stderr:    result.Stderr,
				ExitCode:  result.ExitCode,
				TimeTaken: &zero,
			}, nil
		}
	}

	if req.TestCases == nil {
		args := BuildDockerArgs(ws.HostPath, entry.Image, baseLimits, entry.RunCommand)
		result, err := e.runner.Run(ctx, args, baseLimits.WallTime)
		if err != nil {
			return nil, err
		}
		elapsed := result.Duration.Seconds()
		return &model.ExecuteResponse{
			Stdout:    result.Stdout,
			Stderr:    result.Stderr,
			ExitCode:  result.ExitCode,
			TimeTaken: &elapsed,
		}, nil
	}

	return e.runTestCases(ctx, ws, entry, baseLimits, req.TestCases)
}

// runTestCases executes the test cases strictly in submitted order; each case
// starts only after the previous one has exited. Per-case timeouts become
// failed results rather than errors so later cases are not hidden.
func (e *CodeExecutor) runTestCases(ctx context.Context, ws *Workspace, entry LanguageEntry, baseLimits ResourceLimits, testCases []model.TestCase) (*model.ExecuteResponse, error) {
	var aggStdout, aggStderr strings.Builder
	results := make([]model.TestCaseResult, 0, len(testCases))
	allPassed := true

	for i := range testCases {
		tc := testCases[i]
		limits := EffectiveLimits(baseLimits, &tc)
		args := BuildDockerArgs(ws.HostPath, entry.Image, limits, entry.RunCommand)

		result, err := e.runner.RunWithStdin(ctx, args, limits.WallTime, tc.Input)
		if err != nil {
			var execErr *Error
			if errors.As(err, &execErr) && execErr.Kind == KindTimeout {
				results = append(results, model.TestCaseResult{
					Name:           tc.Name,
					Passed:         false,
					ExitCode:       -1,
					TimeTaken:      execErr.Elapsed,
					ErrorMessage:   execErr.Error(),
					Input:          tc.Input,
					ExpectedOutput: tc.ExpectedOutput,
				})
				appendCaseBlock(&aggStdout, tc.Name, "")
				appendCaseBlock(&aggStderr, tc.Name, execErr.Error()+"\n")
				allPassed = false
				continue
			}
			return nil, err
		}

		caseResult := judgeTestCase(&tc, result)
		if !caseResult.Passed {
			allPassed = false
		}
		results = append(results, caseResult)
		appendCaseBlock(&aggStdout, tc.Name, result.Stdout)
		appendCaseBlock(&aggStderr, tc.Name, result.Stderr)
	}

	exitCode := 0
	if !allPassed {
		exitCode = 1
	}

	return &model.ExecuteResponse{
		Stdout:      aggStdout.String(),
		Stderr:      aggStderr.String(),
		ExitCode:    exitCode,
		TestResults: results,
	}, nil
}

// judgeTestCase composes the verdict for one completed trial. A case passes
// when the child exited zero and, if a reference output was supplied, the
// whitespace-trimmed outputs are byte equal.
func judgeTestCase(tc *model.TestCase, result *RunResult) model.TestCaseResult {
	caseResult := model.TestCaseResult{
		Name:           tc.Name,
		Stdout:         result.Stdout,
		Stderr:         result.Stderr,
		ExitCode:       result.ExitCode,
		TimeTaken:      result.Duration.Seconds(),
		Input:          tc.Input,
		ExpectedOutput: tc.ExpectedOutput,
		ActualOutput:   result.Stdout,
	}

	passed := result.ExitCode == 0
	if passed && tc.ExpectedOutput != nil {
		passed = strings.TrimSpace(result.Stdout) == strings.TrimSpace(*tc.ExpectedOutput)
	}
	caseResult.Passed = passed

	if !passed {
		if tc.ExpectedOutput != nil {
			caseResult.ErrorMessage = fmt.Sprintf("Expected: '%s', Got: '%s'",
				strings.TrimSpace(*tc.ExpectedOutput), strings.TrimSpace(result.Stdout))
		} else {
			caseResult.ErrorMessage = fmt.Sprintf("Exit code: %d", result.ExitCode)
		}
	}

	return caseResult
}

// appendCaseBlock appends one per-case block to an aggregate stream.
func appendCaseBlock(b *strings.Builder, name, content string) {
	fmt.Fprintf(b, "=== Test Case: %s ===\n", name)
	b.WriteString(content)
	if content != "" && !strings.HasSuffix(content, "\n") {
		b.WriteString("\n")
	}
}
