// Package storage implements the persistence port: durable YAML documents,
// one per specification, under <basePath>/specs/.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gopkg.in/yaml.v3"

	"github.com/sdd-tools/specflow/pkg/models"
)

// SpecStoreManager defines the interface for durably saving and loading
// specifications.
type SpecStoreManager interface {
	Save(spec *models.Specification) error
	Load(specID string) (*models.Specification, error)
	List() ([]string, error)
}

// fileSpecStore implements SpecStoreManager with one YAML file per
// specification.
type fileSpecStore struct {
	basePath string
}

// NewSpecStore creates a SpecStoreManager rooted at basePath.
func NewSpecStore(basePath string) SpecStoreManager {
	return &fileSpecStore{basePath: basePath}
}

// specsDir returns the directory holding specification documents.
func (s *fileSpecStore) specsDir() string {
	return filepath.Join(s.basePath, "specs")
}

// specPath returns the document path for a specification id. Ids are
// filename-sanitized so path separators cannot escape the specs directory.
func (s *fileSpecStore) specPath(specID string) string {
	name := strings.NewReplacer("/", "_", `\`, "_").Replace(specID)
	return filepath.Join(s.specsDir(), name+".yaml")
}

// saveRetryBackoff bounds retries of a failed write. Transient filesystem
// errors (NFS hiccups, editor locks) resolve within a few hundred
// milliseconds; anything longer is reported to the caller as fatal.
func saveRetryBackoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxInterval = 250 * time.Millisecond
	bo.MaxElapsedTime = 2 * time.Second
	return bo
}

// Save writes the specification document, replacing any previous version
// atomically via a temp file and rename.
func (s *fileSpecStore) Save(spec *models.Specification) error {
	if spec == nil || spec.ID == "" {
		return fmt.Errorf("saving specification: id must not be empty")
	}
	if err := os.MkdirAll(s.specsDir(), 0o750); err != nil {
		return fmt.Errorf("creating specs directory: %w", err)
	}

	data, err := yaml.Marshal(spec)
	if err != nil {
		return fmt.Errorf("marshalling specification %s: %w", spec.ID, err)
	}

	path := s.specPath(spec.ID)
	tmp := path + ".tmp"
	write := func() error {
		if err := os.WriteFile(tmp, data, 0o600); err != nil {
			return err
		}
		return os.Rename(tmp, path)
	}
	if err := backoff.Retry(write, saveRetryBackoff()); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("writing specification %s: %w", spec.ID, err)
	}
	return nil
}

// Load reads and parses a specification document.
func (s *fileSpecStore) Load(specID string) (*models.Specification, error) {
	data, err := os.ReadFile(s.specPath(specID))
	if err != nil {
		return nil, fmt.Errorf("reading specification %s: %w", specID, err)
	}
	var spec models.Specification
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing specification %s: %w", specID, err)
	}
	return &spec, nil
}

// List returns the ids of all stored specifications, sorted.
func (s *fileSpecStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.specsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing specifications: %w", err)
	}
	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".yaml"))
	}
	sort.Strings(ids)
	return ids, nil
}
