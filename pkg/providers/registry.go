package providers

import (
	"fmt"
	"sort"
	"sync"
)

// Settings 创建提供商所需的通用参数
type Settings struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

// Constructor 提供商构造函数
type Constructor func(settings Settings) (TranslationProvider, error)

// Registry 提供商注册表
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewRegistry 创建新的注册表
func NewRegistry() *Registry {
	return &Registry{
		constructors: make(map[string]Constructor),
	}
}

// Register 注册提供商
func (r *Registry) Register(name string, ctor Constructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.constructors[name]; exists {
		return fmt.Errorf("provider %s already registered", name)
	}

	r.constructors[name] = ctor
	return nil
}

// Create 按名称创建提供商
func (r *Registry) Create(name string, settings Settings) (TranslationProvider, error) {
	r.mu.RLock()
	ctor, exists := r.constructors[name]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("provider %s not found (available: %v)", name, r.List())
	}

	return ctor(settings)
}

// List 列出所有提供商
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
