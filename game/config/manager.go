package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/mcp-training/unoroom/game/engine"
	"github.com/wricardo/mcp-training/unoroom/game/service"
)

var (
	ErrRulesNotFound = errors.New("rules preset not found")
	ErrInvalidRules  = errors.New("invalid rules preset")
)

// DefaultPreset is the preset loaded as default when present.
const DefaultPreset = "classic"

// Manager handles house rules preset loading and caching
type Manager struct {
	rulesDir     string
	defaultName  string
	defaultRules *engine.Rules
	presets      map[string]*engine.Rules
	mu           sync.RWMutex
}

// NewManager creates a new rules manager over a directory of JSON presets
func NewManager(rulesDir string) (*Manager, error) {
	if _, err := os.Stat(rulesDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("rules directory does not exist: %s", rulesDir)
	}

	m := &Manager{
		rulesDir: rulesDir,
		presets:  make(map[string]*engine.Rules),
	}

	if err := m.loadDefaultRules(); err != nil {
		return nil, fmt.Errorf("failed to load default rules: %w", err)
	}

	return m, nil
}

// LoadRules loads a preset by name, with or without the .json extension
func (m *Manager) LoadRules(name string) (*engine.Rules, error) {
	name = strings.TrimSuffix(name, ".json")
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return nil, ErrRulesNotFound
	}

	m.mu.RLock()
	if rules, exists := m.presets[name]; exists {
		m.mu.RUnlock()
		return rules, nil
	}
	m.mu.RUnlock()

	rules, err := m.readRules(name)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another caller may have loaded it meanwhile
	if cached, exists := m.presets[name]; exists {
		return cached, nil
	}
	m.presets[name] = rules
	return rules, nil
}

func (m *Manager) readRules(name string) (*engine.Rules, error) {
	data, err := os.ReadFile(filepath.Join(m.rulesDir, name+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrRulesNotFound
		}
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes and validates one preset. Omitted fields take the
// classic values.
func ParseRules(data []byte) (*engine.Rules, error) {
	rules := engine.DefaultRules()
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	if err := engine.ValidateRules(&rules); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}
	return &rules, nil
}

// ListRules returns information about every valid preset in the directory
func (m *Manager) ListRules() ([]*service.RulesInfo, error) {
	entries, err := os.ReadDir(m.rulesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules directory: %w", err)
	}

	m.mu.RLock()
	defaultName := m.defaultName
	m.mu.RUnlock()

	var infos []*service.RulesInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".json")

		rules, err := m.LoadRules(name)
		if err != nil {
			// Skip invalid presets
			continue
		}
		info := service.NewRulesInfo(entry.Name(), name, rules)
		info.Default = name == defaultName
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].RulesID < infos[j].RulesID })
	return infos, nil
}

// GetDefault returns the default rules
func (m *Manager) GetDefault() *engine.Rules {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultRules
}

// SetDefault sets the default rules by preset name
func (m *Manager) SetDefault(name string) error {
	rules, err := m.LoadRules(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultName = strings.TrimSuffix(name, ".json")
	m.defaultRules = rules
	return nil
}

// RefreshCache drops cached presets and reloads the default from disk
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.presets = make(map[string]*engine.Rules)
	name := m.defaultName
	m.mu.Unlock()

	if name != "" && name != DefaultPreset {
		if err := m.SetDefault(name); err == nil {
			return nil
		}
	}
	return m.loadDefaultRules()
}

// loadDefaultRules picks classic.json, else the first valid preset, else
// the built-in classic rules
func (m *Manager) loadDefaultRules() error {
	if err := m.SetDefault(DefaultPreset); err == nil {
		return nil
	}

	infos, err := m.ListRules()
	if err == nil && len(infos) > 0 {
		if err := m.SetDefault(infos[0].RulesID); err == nil {
			return nil
		}
	}

	rules := engine.DefaultRules()
	m.mu.Lock()
	m.defaultName = ""
	m.defaultRules = &rules
	m.mu.Unlock()
	return nil
}

// SaveRules validates and writes a preset to disk
func (m *Manager) SaveRules(name string, rules *engine.Rules) error {
	if err := engine.ValidateRules(rules); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}
	name = strings.TrimSuffix(name, ".json")
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: bad preset name %q", ErrInvalidRules, name)
	}

	data, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal rules: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.rulesDir, name+".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write rules file: %w", err)
	}

	m.mu.Lock()
	m.presets[name] = rules
	m.mu.Unlock()

	return nil
}
