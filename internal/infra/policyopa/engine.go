package policyopa

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sentinel/internal/domain"
	cryptoinfra "sentinel/internal/infra/crypto"

	"github.com/open-policy-agent/opa/rego"
)

const defaultQuery = "data.sentinel.governance.result"

// Engine evaluates the governance rego bundle: which action types require a
// human approval, and optional per-user quota overrides. The bundle hash is
// pinned at load so audit payloads can name the exact policy that decided.
type Engine struct {
	query      rego.PreparedEvalQuery
	bundleHash string
	bundleID   string
}

func NewEngineFromBundlePath(ctx context.Context, bundlePath, bundleID string) (*Engine, error) {
	bundleHash, err := computeBundleHash(bundlePath)
	if err != nil {
		return nil, err
	}

	r := rego.New(
		rego.Query(defaultQuery),
		rego.StrictBuiltinErrors(true),
		rego.Load([]string{bundlePath}, nil),
	)
	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, err
	}

	return &Engine{
		query:      prepared,
		bundleHash: bundleHash,
		bundleID:   bundleID,
	}, nil
}

func (e *Engine) BundleHash() string {
	return e.bundleHash
}

func (e *Engine) Evaluate(ctx context.Context, input domain.GovernanceInput) (domain.GovernanceEvaluation, error) {
	if e == nil {
		return domain.GovernanceEvaluation{}, errors.New("governance engine is nil")
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return domain.GovernanceEvaluation{}, err
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return domain.GovernanceEvaluation{}, errors.New("empty governance result")
	}
	raw := results[0].Expressions[0].Value
	payload, err := json.Marshal(raw)
	if err != nil {
		return domain.GovernanceEvaluation{}, err
	}
	var result domain.GovernanceResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return domain.GovernanceEvaluation{}, err
	}
	sort.Strings(result.Deny)
	return domain.GovernanceEvaluation{
		BundleID:   e.bundleID,
		BundleHash: e.bundleHash,
		Result:     result,
	}, nil
}

type bundleFileDigest struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
}

func computeBundleHash(bundlePath string) (string, error) {
	fsys := os.DirFS(bundlePath)
	var files []bundleFileDigest
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == "." || d.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if strings.HasPrefix(base, ".") {
			return nil
		}
		if base != "data.json" && !strings.HasSuffix(base, ".rego") {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		files = append(files, bundleFileDigest{
			Path:   filepath.ToSlash(path),
			SHA256: cryptoinfra.SHA256Hex(data),
		})
		return nil
	})
	if err != nil {
		return "", err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	canonical, err := cryptoinfra.Canonicalize(map[string]any{"files": files})
	if err != nil {
		return "", err
	}
	return cryptoinfra.SHA256Hex(canonical), nil
}
