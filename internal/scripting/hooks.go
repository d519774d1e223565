package scripting

import (
	lua "github.com/yuin/gopher-lua"
)

// BoutContext carries the fixed, positionally-typed argument tuple handed to
// every arena hook. Hooks receive, in order: a table of participant stage
// names, the side index, a representative cell id, the event name, the event
// type name, the arena name, the event id, the scheduled time as a unix
// timestamp, and the time limit in seconds (nil when the bout is untimed).
type BoutContext struct {
	ParticipantNames []string
	SideIndex        int
	CellID           string
	EventName        string
	TypeName         string
	ArenaName        string
	EventID          string
	ScheduledUnix    int64
	// TimeLimitSeconds is zero when the bout has no time limit.
	TimeLimitSeconds int64
}

func (c BoutContext) push(L *lua.LState) []lua.LValue {
	names := L.NewTable()
	for _, n := range c.ParticipantNames {
		names.Append(lua.LString(n))
	}
	limit := lua.LValue(lua.LNil)
	if c.TimeLimitSeconds > 0 {
		limit = lua.LNumber(c.TimeLimitSeconds)
	}
	return []lua.LValue{
		names,
		lua.LNumber(c.SideIndex),
		lua.LString(c.CellID),
		lua.LString(c.EventName),
		lua.LString(c.TypeName),
		lua.LString(c.ArenaName),
		lua.LString(c.EventID),
		lua.LNumber(c.ScheduledUnix),
		limit,
	}
}

// CallLoader invokes an NPC loader hook and decodes its result: a table of
// NPC template id strings, truncated to slots entries. A missing hook, a
// non-table result, or a Lua error yields an empty slice.
//
// Precondition: slots must be >= 0.
func (m *Manager) CallLoader(arenaID, hook string, ctx BoutContext, slots int) []string {
	m.mu.RLock()
	L, ok := m.states[arenaID]
	if !ok {
		L = m.states[globalArenaID]
	}
	m.mu.RUnlock()
	if L == nil {
		return nil
	}

	ret, err := m.CallHook(arenaID, hook, ctx.push(L)...)
	if err != nil {
		return nil
	}
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil
	}

	var ids []string
	tbl.ForEach(func(_, v lua.LValue) {
		if len(ids) >= slots {
			return
		}
		if s, ok := v.(lua.LString); ok {
			ids = append(ids, string(s))
		}
	})
	return ids
}

// CallOutfit invokes a side-outfitting hook. The hook's return value, if
// any, is ignored.
func (m *Manager) CallOutfit(arenaID, hook string, ctx BoutContext) {
	m.mu.RLock()
	L, ok := m.states[arenaID]
	if !ok {
		L = m.states[globalArenaID]
	}
	m.mu.RUnlock()
	if L == nil {
		return
	}

	_, _ = m.CallHook(arenaID, hook, ctx.push(L)...)
}
