package build

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"git.home.luguber.info/inful/assetpack/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpack/internal/plugin"
)

const (
	writeAttempts   = 3
	writeRetryDelay = 50 * time.Millisecond
)

// escapes reports whether a path relative to some base leaves that base.
func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// checkCleanTarget refuses output directories that contain the source root.
func checkCleanTarget(outDir, root string) error {
	rel, err := filepath.Rel(outDir, root)
	if err == nil && !escapes(rel) {
		return errors.ValidationError("output path contains the source root").
			WithContext("output", outDir).
			WithContext("context", root).
			Build()
	}
	return nil
}

// stagingDir is the hidden sibling of outDir a cleaning build writes into.
func stagingDir(outDir, buildID string) string {
	if len(buildID) > 8 {
		buildID = buildID[:8]
	}
	return filepath.Join(filepath.Dir(outDir), "."+filepath.Base(outDir)+".staging-"+buildID)
}

// swapIn replaces outDir with staging. The previous output is renamed aside
// and removed only once the new output is in place, so a failure leaves
// the previous output untouched.
func swapIn(staging, outDir string) error {
	previous := staging + ".previous"
	hadPrevious := false
	if _, err := os.Stat(outDir); err == nil {
		if err := os.Rename(outDir, previous); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "move previous output aside").
				WithContext("path", outDir).
				Build()
		}
		hadPrevious = true
	}
	if err := os.Rename(staging, outDir); err != nil {
		if hadPrevious {
			_ = os.Rename(previous, outDir)
		}
		return errors.WrapError(err, errors.CategoryFileSystem, "replace output directory").
			WithContext("path", outDir).
			Build()
	}
	if hadPrevious {
		if err := os.RemoveAll(previous); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "remove previous output").
				WithContext("path", previous).
				Build()
		}
	}
	return nil
}

// writeOutputs writes every output below outDir. Transient failures are
// retried with exponential backoff.
func writeOutputs(ctx context.Context, outputs *plugin.Outputs, outDir string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "create output directory").
			WithContext("path", outDir).
			Build()
	}
	paths := outputs.Paths()
	for _, p := range paths {
		data, _ := outputs.Get(p)
		target := filepath.Join(outDir, filepath.FromSlash(p))
		rel, err := filepath.Rel(outDir, target)
		if err != nil || escapes(rel) {
			return nil, errors.ValidationError("output escapes the output directory").
				WithContext("output", p).
				Build()
		}

		_, err = backoff.Retry(ctx, func() (struct{}, error) {
			return struct{}{}, writeFile(target, data)
		},
			backoff.WithBackOff(&backoff.ExponentialBackOff{
				InitialInterval:     writeRetryDelay,
				RandomizationFactor: backoff.DefaultRandomizationFactor,
				Multiplier:          backoff.DefaultMultiplier,
				MaxInterval:         time.Second,
			}),
			backoff.WithMaxTries(writeAttempts),
		)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "write output").
				WithContext("output", p).
				Build()
		}
	}
	return paths, nil
}

func writeFile(target string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return err
	}
	return os.WriteFile(target, data, 0o600)
}

// outputHash digests output paths and contents in path order.
func outputHash(outputs *plugin.Outputs) string {
	paths := outputs.Paths()
	sort.Strings(paths)
	h := sha256.New()
	for _, p := range paths {
		data, _ := outputs.Get(p)
		h.Write([]byte(p))
		h.Write([]byte{0})
		h.Write(data)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:20]
}
