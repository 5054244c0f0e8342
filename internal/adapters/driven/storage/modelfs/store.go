// Package modelfs stores model versions as flat files in one directory.
//
// Each version is xgboost_model_<id>.json, where id is the creation time
// formatted as YYYYMMDD_HHMMSS, with a _NN suffix when two versions share a
// second. Its evaluation record sits beside it as
// xgboost_model_<id>_evaluation.txt.
package modelfs

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/carat/internal/core/domain"
	"github.com/custodia-labs/carat/internal/core/ports/driven"
	"github.com/custodia-labs/carat/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.ModelStore = (*Store)(nil)

const (
	filePrefix     = "xgboost_model_"
	modelSuffix    = ".json"
	evalSuffix     = "_evaluation.txt"
	maxCollisions  = 99
	evalModelName  = "Model Name"
	evalRandom     = "Random Number"
	evalRMSE       = "RMSE"
	evalMAE        = "MAE"
	evalRSquared   = "R-squared"
	dirPermissions = 0755
)

var modelFileRE = regexp.MustCompile(`^xgboost_model_(\d{8}_\d{6}(?:_\d{2})?)\.json$`)

// Store is a driven.ModelStore over a local directory.
type Store struct {
	dir string

	// mu serialises writers so version ids are unique within the process.
	mu sync.Mutex
}

// NewStore returns a store rooted at dir. The directory is created on first
// write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// Latest returns the version with the greatest id.
func (s *Store) Latest(ctx context.Context) (domain.StoredModel, bool, error) {
	versions, err := s.List(ctx)
	if err != nil {
		return domain.StoredModel{}, false, err
	}
	if len(versions) == 0 {
		return domain.StoredModel{}, false, nil
	}

	latest := versions[len(versions)-1]
	logger.Debug("latest model is %s", latest.Path)

	model, err := s.read(latest)
	if err != nil {
		return domain.StoredModel{}, false, err
	}
	return model, true, nil
}

// Load returns the version with the given id.
func (s *Store) Load(ctx context.Context, id string) (domain.StoredModel, error) {
	if err := ctx.Err(); err != nil {
		return domain.StoredModel{}, err
	}

	v, ok := s.version(filePrefix + id + modelSuffix)
	if !ok {
		return domain.StoredModel{}, fmt.Errorf("%w: invalid model id %q", domain.ErrInvalidInput, id)
	}
	return s.read(v)
}

// List returns all versions sorted by id, oldest first. A missing directory
// holds no versions.
func (s *Store) List(ctx context.Context) ([]domain.ModelVersion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: list %s: %w", domain.ErrStoreIO, s.dir, err)
	}

	var versions []domain.ModelVersion
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if v, ok := s.version(e.Name()); ok {
			versions = append(versions, v)
		}
	}

	sort.Slice(versions, func(i, j int) bool { return versions[i].ID < versions[j].ID })
	return versions, nil
}

// Save writes payload as a new version. The id comes from createdAt; a
// _NN suffix is added when that id is already taken.
func (s *Store) Save(ctx context.Context, createdAt time.Time, payload []byte) (domain.ModelVersion, error) {
	if err := ctx.Err(); err != nil {
		return domain.ModelVersion{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureDir(); err != nil {
		return domain.ModelVersion{}, err
	}

	base := createdAt.Format(domain.VersionLayout)
	id := base
	for n := 1; s.exists(filePrefix + id + modelSuffix); n++ {
		if n > maxCollisions {
			return domain.ModelVersion{}, fmt.Errorf("%w: too many versions at %s", domain.ErrStoreIO, base)
		}
		id = fmt.Sprintf("%s_%02d", base, n)
	}

	path := filepath.Join(s.dir, filePrefix+id+modelSuffix)
	if err := writeAtomic(path, payload); err != nil {
		return domain.ModelVersion{}, err
	}

	logger.Debug("saved model %s", path)
	return domain.ModelVersion{ID: id, CreatedAt: createdAt, Path: path}, nil
}

// SaveEvaluation writes the evaluation record beside its model.
func (s *Store) SaveEvaluation(ctx context.Context, rec domain.EvaluationRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !modelFileRE.MatchString(filePrefix + rec.ModelID + modelSuffix) {
		return "", fmt.Errorf("%w: invalid model id %q", domain.ErrInvalidInput, rec.ModelID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureDir(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s: %s\n", evalModelName, rec.ModelID)
	fmt.Fprintf(&buf, "%s: %d\n", evalRandom, rec.Seed)
	fmt.Fprintf(&buf, "%s: %s\n", evalRMSE, formatFloat(rec.Metrics.RMSE))
	fmt.Fprintf(&buf, "%s: %s\n", evalMAE, formatFloat(rec.Metrics.MAE))
	fmt.Fprintf(&buf, "%s: %s\n", evalRSquared, formatFloat(rec.Metrics.R2))

	path := s.evaluationPath(rec.ModelID)
	if err := writeAtomic(path, buf.Bytes()); err != nil {
		return "", err
	}

	logger.Info("Model evaluation results saved to %s", path)
	return path, nil
}

// LoadEvaluation reads the evaluation record of a version.
func (s *Store) LoadEvaluation(ctx context.Context, id string) (domain.EvaluationRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.EvaluationRecord{}, false, err
	}

	path := s.evaluationPath(id)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.EvaluationRecord{}, false, nil
		}
		return domain.EvaluationRecord{}, false, fmt.Errorf("%w: read %s: %w", domain.ErrStoreIO, path, err)
	}

	rec, err := parseEvaluation(data)
	if err != nil {
		return domain.EvaluationRecord{}, false, fmt.Errorf("%w: parse %s: %w", domain.ErrStoreIO, path, err)
	}
	if rec.ModelID == "" {
		rec.ModelID = id
	}
	return rec, true, nil
}

func (s *Store) version(name string) (domain.ModelVersion, bool) {
	m := modelFileRE.FindStringSubmatch(name)
	if m == nil {
		return domain.ModelVersion{}, false
	}
	id := m[1]
	createdAt, err := time.ParseInLocation(domain.VersionLayout, id[:len(domain.VersionLayout)], time.Local)
	if err != nil {
		return domain.ModelVersion{}, false
	}
	return domain.ModelVersion{ID: id, CreatedAt: createdAt, Path: filepath.Join(s.dir, name)}, true
}

func (s *Store) read(v domain.ModelVersion) (domain.StoredModel, error) {
	data, err := os.ReadFile(v.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.StoredModel{}, fmt.Errorf("model %s: %w", v.ID, domain.ErrNotFound)
		}
		return domain.StoredModel{}, fmt.Errorf("%w: read %s: %w", domain.ErrStoreIO, v.Path, err)
	}
	return domain.StoredModel{Version: v, Payload: data}, nil
}

func (s *Store) exists(name string) bool {
	_, err := os.Lstat(filepath.Join(s.dir, name))
	return err == nil
}

func (s *Store) ensureDir() error {
	if err := os.MkdirAll(s.dir, dirPermissions); err != nil {
		return fmt.Errorf("%w: create %s: %w", domain.ErrStoreIO, s.dir, err)
	}
	return nil
}

func (s *Store) evaluationPath(id string) string {
	return filepath.Join(s.dir, filePrefix+id+evalSuffix)
}

// writeAtomic writes data to a hidden temp file in the target directory,
// syncs it and renames it into place.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", domain.ErrStoreIO, tmp, err)
	}

	_, werr := f.Write(data)
	if werr == nil {
		werr = f.Sync()
	}
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Rename(tmp, path)
	}
	if werr != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: write %s: %w", domain.ErrStoreIO, path, werr)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseEvaluation(data []byte) (domain.EvaluationRecord, error) {
	var rec domain.EvaluationRecord
	seen := map[string]bool{}

	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		var err error
		switch key {
		case evalModelName:
			rec.ModelID = value
		case evalRandom:
			rec.Seed, err = strconv.ParseUint(value, 10, 64)
		case evalRMSE:
			rec.Metrics.RMSE, err = strconv.ParseFloat(value, 64)
		case evalMAE:
			rec.Metrics.MAE, err = strconv.ParseFloat(value, 64)
		case evalRSquared:
			rec.Metrics.R2, err = strconv.ParseFloat(value, 64)
		default:
			continue
		}
		if err != nil {
			return rec, fmt.Errorf("%s: %w", key, err)
		}
		seen[key] = true
	}
	if err := sc.Err(); err != nil {
		return rec, err
	}

	for _, key := range []string{evalRMSE, evalMAE, evalRSquared} {
		if !seen[key] {
			return rec, fmt.Errorf("missing %s line", key)
		}
	}
	return rec, nil
}
