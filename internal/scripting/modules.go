package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/dice"
)

// RegisterModules registers all engine.* Lua tables into L.
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L with log, broadcast, and
// roll_check functions.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()

	L.SetField(engine, "log", L.NewFunction(func(L *lua.LState) int {
		msg := L.CheckString(1)
		m.logger.Info("lua", zap.String("msg", msg))
		return 0
	}))

	L.SetField(engine, "broadcast", L.NewFunction(func(L *lua.LState) int {
		cellID := L.CheckString(1)
		msg := L.CheckString(2)
		if m.Broadcast != nil {
			m.Broadcast(cellID, msg)
		}
		return 0
	}))

	// engine.roll_check(modifier, dc) → total, success
	L.SetField(engine, "roll_check", L.NewFunction(func(L *lua.LState) int {
		modifier := L.CheckInt(1)
		dc := L.CheckInt(2)
		r := dice.Check(m.rng, modifier, dc)
		L.Push(lua.LNumber(r.Total()))
		L.Push(lua.LBool(r.Success()))
		return 2
	}))

	L.SetGlobal("engine", engine)
}
