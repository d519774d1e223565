package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/dice"
)

// globalArenaID is the reserved key for shared scripts loaded via LoadGlobal.
// CallHook falls back to this VM when no arena VM is found.
const globalArenaID = "__global__"

// Manager owns one sandboxed LState per arena and exposes hook dispatch.
//
// Manager is safe for concurrent CallHook after all LoadArena calls complete.
// Each arena's LState is single-threaded; the read lock serializes concurrent
// calls to the same arena while allowing different arenas to run concurrently.
type Manager struct {
	mu      sync.RWMutex
	states  map[string]*lua.LState
	cancels map[string]func()
	rng     dice.Source
	logger  *zap.Logger

	// Injected after construction. nil = no-op in engine.* modules.
	Broadcast func(cellID, msg string)
}

// NewManager creates a Manager.
//
// Precondition: rng and logger must be non-nil.
// Postcondition: Returns a non-nil Manager with an empty VM map.
func NewManager(rng dice.Source, logger *zap.Logger) *Manager {
	return &Manager{
		states:  make(map[string]*lua.LState),
		cancels: make(map[string]func()),
		rng:     rng,
		logger:  logger,
	}
}

// LoadArena creates a sandboxed VM for arenaID, registers all engine.*
// modules, then executes every *.lua file in scriptDir in lexicographic
// order.
//
// Precondition: arenaID must be non-empty; scriptDir must be a readable directory.
// Postcondition: Arena VM is registered; returns error on Lua load failure.
func (m *Manager) LoadArena(arenaID, scriptDir string, instLimit int) error {
	return m.loadInto(arenaID, scriptDir, instLimit)
}

// LoadGlobal creates the "__global__" VM for shared hook scripts accessible
// as a CallHook fallback from any arena.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: Global VM is registered; returns error on Lua load failure.
func (m *Manager) LoadGlobal(scriptDir string, instLimit int) error {
	return m.loadInto(globalArenaID, scriptDir, instLimit)
}

func (m *Manager) loadInto(key, scriptDir string, instLimit int) error {
	L, cancel := NewSandboxedState(instLimit)
	m.RegisterModules(L)

	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		cancel()
		L.Close()
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, key, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	for _, path := range luaFiles {
		if err := L.DoFile(path); err != nil {
			cancel()
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, key, err)
		}
	}

	m.mu.Lock()
	if old, ok := m.states[key]; ok {
		if oldCancel := m.cancels[key]; oldCancel != nil {
			oldCancel()
		}
		old.Close()
	}
	m.states[key] = L
	m.cancels[key] = cancel
	m.mu.Unlock()
	return nil
}

// CallHook calls the named Lua global function in arenaID's VM. If the arena
// has no VM, the __global__ VM is tried as a fallback. Returns (LNil, nil)
// if the hook is not defined or no VM exists. Lua runtime errors are logged
// at Warn level and never propagated.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(arenaID, hook string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.RLock()
	L, ok := m.states[arenaID]
	if !ok {
		L = m.states[globalArenaID]
	}
	m.mu.RUnlock()

	if L == nil {
		m.logger.Info("scripting: no VM for arena",
			zap.String("arena", arenaID),
			zap.String("hook", hook),
		)
		return lua.LNil, nil
	}

	fn := L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("arena", arenaID),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}

	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

// Close shuts down every VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, L := range m.states {
		if cancel := m.cancels[key]; cancel != nil {
			cancel()
		}
		L.Close()
		delete(m.states, key)
		delete(m.cancels, key)
	}
}
