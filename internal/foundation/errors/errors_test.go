package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "assetpack.yaml").
			Build()

		if err.Category() != CategoryConfig {
			t.Errorf("expected category %s, got %s", CategoryConfig, err.Category())
		}
		if err.Severity() != SeverityFatal {
			t.Errorf("expected severity %s, got %s", SeverityFatal, err.Severity())
		}
		file, exists := err.Context().GetString("file")
		if !exists || file != "assetpack.yaml" {
			t.Errorf("expected context file=assetpack.yaml, got %v", file)
		}
		if err.Error() != "[config] invalid configuration" {
			t.Errorf("unexpected message %q", err.Error())
		}
	})

	t.Run("Error detection through wrapping", func(t *testing.T) {
		err := fmt.Errorf("load: %w", ConfigError("test error").Build())

		if !IsClassified(err) {
			t.Error("expected error to be classified")
		}
		if !HasCategory(err, CategoryConfig) {
			t.Error("expected error to have config category")
		}
		if GetCategory(errors.New("plain")) != CategoryInternal {
			t.Error("plain errors should default to internal")
		}
	})

	t.Run("Retry semantics", func(t *testing.T) {
		if ConfigError("x").Build().CanRetry() {
			t.Error("config errors require user action")
		}
		if !FileSystemError("x").Build().CanRetry() {
			t.Error("filesystem errors are retryable")
		}
		if !BuildError("x").Build().IsFatal() {
			t.Error("build errors are fatal")
		}
	})
}

func TestErrorBuilder(t *testing.T) {
	originalErr := errors.New("original error")
	err := WrapError(originalErr, CategoryLoader, "transpile failed").
		WithContext("loader", "babel-loader").
		Build()

	if !errors.Is(err, originalErr) {
		t.Error("expected cause to be reachable with errors.Is")
	}
	if err.Error() != "[loader] transpile failed: original error" {
		t.Errorf("unexpected message %q", err.Error())
	}

	withModule := err.WithContext("module", "src/App.jsx")
	if _, ok := err.Context().Get("module"); ok {
		t.Error("WithContext must not mutate the receiver")
	}
	if m, _ := withModule.Context().GetString("module"); m != "src/App.jsx" {
		t.Errorf("expected module context, got %q", m)
	}
}

func TestErrorContextMerge(t *testing.T) {
	var nilCtx ErrorContext
	merged := nilCtx.Merge(ErrorContext{"a": 1})
	if v, _ := merged.Get("a"); v != 1 {
		t.Errorf("expected merged value, got %v", v)
	}

	left := ErrorContext{"a": 1, "b": 2}
	right := ErrorContext{"b": 3}
	out := left.Merge(right)
	if v, _ := out.Get("b"); v != 3 {
		t.Errorf("expected right to win, got %v", v)
	}
	if v, _ := left.Get("b"); v != 2 {
		t.Error("merge must not mutate the receiver")
	}
}

func TestClassifiedErrorIs(t *testing.T) {
	sentinel := notFoundSentinel()
	err := fmt.Errorf("wrap: %w", NewError(CategoryNotFound, "entry not found").Build())
	if !errors.Is(err, sentinel) {
		t.Error("errors with equal category and message should match")
	}
}

func notFoundSentinel() error {
	return NewError(CategoryNotFound, "entry not found").Build()
}
