// Package store persists the pipeline's documents as JSON files under a
// single data directory. The pipeline is a single-writer batch job, so there
// is no database: a lock file serializes whole runs and every write is an
// atomic temp-file rename.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/helpdesk-proxy/backend/internal/models"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrLocked   = errors.New("another run is in progress")
)

const (
	rawTicketsFile     = "raw/tickets_full.json"
	requesterCacheFile = "cache/requesters_cache.json"
	simplifiedFile     = "processed/tickets_simplified.json"
	companiesFile      = "processed/companies.json"
	groupsFile         = "processed/company_groups.json"
	historyFile        = "update_history.json"
	lockFile           = "sync.lock"
	tenantsDir         = "tenants"
)

type Store struct {
	dir    string
	logger zerolog.Logger
}

func New(dir string, logger zerolog.Logger) (*Store, error) {
	for _, sub := range []string{"raw", "cache", "processed", tenantsDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir %s: %w", sub, err)
		}
	}
	return &Store{dir: dir, logger: logger}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Lock acquires the run lock. The returned release func must be called when
// the run finishes. A stale lock has to be removed manually, matching the
// single-operator deployment this serves.
func (s *Store) Lock() (func(), error) {
	path := filepath.Join(s.dir, lockFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrLocked
		}
		return nil, err
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()
	return func() { _ = os.Remove(path) }, nil
}

// load reads a required document. A missing file is ErrNotFound; a corrupt
// file is an error. Both are fatal preconditions for the caller.
func (s *Store) load(rel string, v any) error {
	path := filepath.Join(s.dir, rel)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		return fmt.Errorf("read %s: %w", rel, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", rel, err)
	}
	return nil
}

// loadOptional reads a tolerated document: missing or corrupt files leave v
// at its zero value, logging a warning for the corrupt case.
func (s *Store) loadOptional(rel string, v any) {
	path := filepath.Join(s.dir, rel)
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.logger.Warn().Str("file", rel).Err(err).Msg("corrupt document, using empty fallback")
	}
}

func (s *Store) save(rel string, v any) error {
	path := filepath.Join(s.dir, rel)
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", rel, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", rel, err)
	}
	return nil
}

func (s *Store) LoadRawTickets() ([]models.RawTicket, error) {
	var out []models.RawTicket
	if err := s.load(rawTicketsFile, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) LoadRawTicketsOptional() []models.RawTicket {
	var out []models.RawTicket
	s.loadOptional(rawTicketsFile, &out)
	return out
}

func (s *Store) SaveRawTickets(tickets []models.RawTicket) error {
	return s.save(rawTicketsFile, tickets)
}

func (s *Store) LoadRequesterCache() models.RequesterCache {
	cache := models.RequesterCache{}
	s.loadOptional(requesterCacheFile, &cache)
	if cache == nil {
		cache = models.RequesterCache{}
	}
	return cache
}

func (s *Store) SaveRequesterCache(cache models.RequesterCache) error {
	return s.save(requesterCacheFile, cache)
}

func (s *Store) LoadSimplifiedTickets() ([]models.SimplifiedTicket, error) {
	var out []models.SimplifiedTicket
	if err := s.load(simplifiedFile, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) LoadSimplifiedTicketsOptional() []models.SimplifiedTicket {
	var out []models.SimplifiedTicket
	s.loadOptional(simplifiedFile, &out)
	return out
}

func (s *Store) SaveSimplifiedTickets(tickets []models.SimplifiedTicket) error {
	return s.save(simplifiedFile, tickets)
}

func (s *Store) LoadCompanies() ([]models.CompanyRecord, error) {
	var out []models.CompanyRecord
	if err := s.load(companiesFile, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) LoadCompaniesOptional() []models.CompanyRecord {
	var out []models.CompanyRecord
	s.loadOptional(companiesFile, &out)
	return out
}

func (s *Store) SaveCompanies(companies []models.CompanyRecord) error {
	return s.save(companiesFile, companies)
}

func (s *Store) LoadGroupsOptional() map[string]models.UnifiedGroup {
	out := map[string]models.UnifiedGroup{}
	s.loadOptional(groupsFile, &out)
	if out == nil {
		out = map[string]models.UnifiedGroup{}
	}
	return out
}

func (s *Store) SaveGroups(groups map[string]models.UnifiedGroup) error {
	return s.save(groupsFile, groups)
}

func (s *Store) LoadHistory() models.UpdateHistory {
	out := models.UpdateHistory{}
	s.loadOptional(historyFile, &out)
	if out == nil {
		out = models.UpdateHistory{}
	}
	return out
}

func (s *Store) SaveHistory(history models.UpdateHistory) error {
	return s.save(historyFile, history)
}

func (s *Store) SaveTenant(key string, tickets []models.SimplifiedTicket) error {
	return s.save(filepath.Join(tenantsDir, key+".json"), tickets)
}

func (s *Store) LoadTenant(key string) ([]models.SimplifiedTicket, error) {
	var out []models.SimplifiedTicket
	if err := s.load(filepath.Join(tenantsDir, key+".json"), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListTenants returns the tenant keys present on disk, sorted.
func (s *Store) ListTenants() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, tenantsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		out = append(out, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(out)
	return out, nil
}
