package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/celerix-dev/looply/internal/vault"
	"github.com/celerix-dev/looply/pkg/habit"
	"github.com/celerix-dev/looply/pkg/sdk"
	"go.uber.org/zap"
)

// Persistence handles the disk I/O for the MemStore.
// Each profile lives in <DataDir>/<profile>.json.
type Persistence struct {
	DataDir string
	key     []byte
	log     *zap.Logger

	mu      sync.Mutex // Protects concurrent writes to the filesystem
	written map[string]uint64
}

// NewPersistence initializes a persistence handler. A non-nil key enables
// AES-GCM encryption of the profile files.
func NewPersistence(dir string, key []byte, logger *zap.Logger) (*Persistence, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Persistence{
		DataDir: dir,
		key:     key,
		log:     logger,
		written: make(map[string]uint64),
	}, nil
}

func (p *Persistence) path(profileID string) string {
	return filepath.Join(p.DataDir, profileID+".json")
}

// SaveProfile writes a single profile atomically. Writes carrying a version
// older than the last one applied are dropped; version 0 always writes.
func (p *Persistence) SaveProfile(profileID string, version uint64, s habit.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stale(profileID, version) {
		return nil
	}

	body, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if p.key != nil {
		sealed, err := vault.Encrypt(body, p.key)
		if err != nil {
			return fmt.Errorf("encrypt profile %s: %w", profileID, err)
		}
		body = []byte(sealed)
	}

	filePath := p.path(profileID)
	tempPath := filePath + ".tmp"

	if err := os.WriteFile(tempPath, body, 0o600); err != nil {
		return err
	}
	// Readers see either the old file or the new one, never a partial write.
	if err := os.Rename(tempPath, filePath); err != nil {
		return err
	}
	p.mark(profileID, version)
	return nil
}

// RemoveProfile deletes the profile file, honoring the same version ordering as SaveProfile.
func (p *Persistence) RemoveProfile(profileID string, version uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stale(profileID, version) {
		return nil
	}
	if err := os.Remove(p.path(profileID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	p.mark(profileID, version)
	return nil
}

func (p *Persistence) stale(profileID string, version uint64) bool {
	return version != 0 && version <= p.written[profileID]
}

func (p *Persistence) mark(profileID string, version uint64) {
	if version != 0 {
		p.written[profileID] = version
	}
}

// LoadAll returns every profile found in the data directory.
// Unreadable files are logged and skipped.
func (p *Persistence) LoadAll() (map[string]habit.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	files, err := os.ReadDir(p.DataDir)
	if err != nil {
		return nil, err
	}

	all := make(map[string]habit.Snapshot)
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}
		profileID := strings.TrimSuffix(file.Name(), ".json")
		if sdk.ValidateProfileID(profileID) != nil {
			p.log.Warn("skipping file with invalid profile name", zap.String("file", file.Name()))
			continue
		}

		content, err := os.ReadFile(filepath.Join(p.DataDir, file.Name()))
		if err != nil {
			p.log.Warn("could not read profile file", zap.String("file", file.Name()), zap.Error(err))
			continue
		}

		s, err := p.decode(content)
		if err != nil {
			p.log.Warn("could not decode profile file", zap.String("file", file.Name()), zap.Error(err))
			continue
		}
		all[profileID] = s
	}
	return all, nil
}

// decode accepts both encrypted and plain JSON bodies, so a key can be
// introduced on an existing data directory.
func (p *Persistence) decode(content []byte) (habit.Snapshot, error) {
	var s habit.Snapshot
	body := bytes.TrimSpace(content)
	if p.key != nil && len(body) > 0 && body[0] != '{' {
		plain, err := vault.Decrypt(string(body), p.key)
		if err != nil {
			return s, err
		}
		body = plain
	}
	if err := json.Unmarshal(body, &s); err != nil {
		return s, err
	}
	s.Normalize()
	return s, nil
}
