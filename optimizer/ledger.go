package optimizer

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// LedgerFileName is the checksum ledger written into a session's backup
// directory.
const LedgerFileName = "checksums.yaml"

// LedgerVersion is the ledger format version.
const LedgerVersion = 1

// Ledger records the MD5 digest of every original locale file copied into a
// session backup, so the copies can later be verified against corruption.
type Ledger struct {
	Version   int               `yaml:"version"`
	Checksums map[string]string `yaml:"checksums"` // relative path -> md5

	mu   sync.Mutex `yaml:"-"`
	path string     `yaml:"-"`
}

// NewLedger creates an empty ledger rooted at the given backup directory.
func NewLedger(backupDir string) *Ledger {
	return &Ledger{
		Version:   LedgerVersion,
		Checksums: make(map[string]string),
		path:      filepath.Join(backupDir, LedgerFileName),
	}
}

// LoadLedger reads the ledger of an existing backup directory.
func LoadLedger(backupDir string) (*Ledger, error) {
	path := filepath.Join(backupDir, LedgerFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	l := &Ledger{path: path}
	if err := yaml.Unmarshal(data, l); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if l.Checksums == nil {
		l.Checksums = make(map[string]string)
	}
	return l, nil
}

// Record stores the digest of one backed-up file under its relative path.
func (l *Ledger) Record(rel string, data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Checksums[filepath.ToSlash(rel)] = fmt.Sprintf("%x", md5.Sum(data))
}

// Save writes the ledger to its backup directory.
func (l *Ledger) Save() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := yaml.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshaling ledger: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", l.path, err)
	}
	return nil
}

// Path returns the ledger file path.
func (l *Ledger) Path() string {
	return l.path
}

// Verify re-hashes every recorded file under backupDir and returns the
// relative paths whose content no longer matches, sorted.
func (l *Ledger) Verify(backupDir string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var bad []string
	for rel, want := range l.Checksums {
		data, err := os.ReadFile(filepath.Join(backupDir, filepath.FromSlash(rel)))
		if err != nil {
			return nil, fmt.Errorf("reading backup %s: %w", rel, err)
		}
		if fmt.Sprintf("%x", md5.Sum(data)) != want {
			bad = append(bad, rel)
		}
	}
	sort.Strings(bad)
	return bad, nil
}
