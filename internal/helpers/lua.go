package helpers

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Shopify/go-lua"

	"github.com/roach88/reach/internal/ir"
)

// Lua helper scripts declare the game they serve and a global helpers
// table of functions. Each function receives a state table first, then the
// evaluated rule arguments:
//
//	game = "Sample"
//	helpers = {}
//	function helpers.can_lift(state, level)
//	  return state.count("Progressive Glove") >= level
//	end
//
// The state table exposes has, count, count_group, flag, setting,
// can_reach (name, kind), and player.

// luaScript owns one interpreter. The interpreter is not safe for
// concurrent use; the engine calls helpers from a single goroutine.
type luaScript struct {
	name  string
	state *lua.State
	ctx   Context
}

// LoadLuaFile loads a helper script from disk.
func LoadLuaFile(path string) (*Table, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read helper script: %w", err)
	}
	return LoadLua(filepath.Base(path), string(src))
}

// LoadLua loads a helper script from source. name is used in error messages.
func LoadLua(name, src string) (*Table, error) {
	s := &luaScript{name: name, state: lua.NewState()}
	lua.OpenLibraries(s.state)

	if err := lua.LoadBuffer(s.state, src, name, ""); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if err := s.state.ProtectedCall(0, 0, 0); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	s.state.Global("game")
	game, _ := s.state.ToString(-1)
	s.state.Pop(1)
	if game == "" {
		return nil, fmt.Errorf("%s: script must set global 'game'", name)
	}

	s.state.Global("helpers")
	if s.state.TypeOf(-1) != lua.TypeTable {
		s.state.Pop(1)
		return nil, fmt.Errorf("%s: script must define a global 'helpers' table", name)
	}
	var names []string
	s.state.PushNil()
	for s.state.Next(-2) {
		if s.state.TypeOf(-2) == lua.TypeString && s.state.TypeOf(-1) == lua.TypeFunction {
			key, _ := s.state.ToString(-2)
			names = append(names, key)
		}
		s.state.Pop(1)
	}
	s.state.Pop(1)

	s.registerState()

	t := NewTable(game)
	for _, helper := range names {
		t.Register(helper, s.call(helper))
	}
	slog.Debug("loaded lua helpers", "script", name, "game", game, "count", len(names))
	return t, nil
}

// LoadDir loads every *.lua script in dir into the registry.
// A missing directory is not an error.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read helper dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".lua") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(paths)

	for _, path := range paths {
		t, err := LoadLuaFile(path)
		if err != nil {
			return err
		}
		r.Register(t)
	}
	return nil
}

func (s *luaScript) call(helper string) Func {
	return func(ctx Context, args []ir.Value) (ir.Value, error) {
		// Helpers may re-enter through state.can_reach; restore the
		// outer call's context on return.
		prev := s.ctx
		s.ctx = ctx
		defer func() { s.ctx = prev }()

		l := s.state
		top := l.Top()
		defer l.SetTop(top)

		l.Global("helpers")
		l.Field(-1, helper)
		l.Global("state")
		for _, arg := range args {
			pushValue(l, arg)
		}
		if err := l.ProtectedCall(len(args)+1, 1, 0); err != nil {
			return nil, fmt.Errorf("%s: helper %s: %w", s.name, helper, err)
		}
		return toValue(l, -1)
	}
}

// registerState installs the global state table whose functions read the
// context of the call in progress.
func (s *luaScript) registerState() {
	l := s.state
	l.NewTable()
	lua.SetFunctions(l, []lua.RegistryFunction{
		{Name: "has", Function: func(l *lua.State) int {
			l.PushBoolean(s.ctx.Has(lua.CheckString(l, 1)))
			return 1
		}},
		{Name: "count", Function: func(l *lua.State) int {
			l.PushInteger(s.ctx.Count(lua.CheckString(l, 1)))
			return 1
		}},
		{Name: "count_group", Function: func(l *lua.State) int {
			l.PushInteger(s.ctx.CountGroup(lua.CheckString(l, 1)))
			return 1
		}},
		{Name: "flag", Function: func(l *lua.State) int {
			l.PushBoolean(s.ctx.Flag(lua.CheckString(l, 1)))
			return 1
		}},
		{Name: "setting", Function: func(l *lua.State) int {
			v, ok := s.ctx.Setting(lua.CheckString(l, 1))
			if !ok {
				l.PushNil()
				return 1
			}
			pushValue(l, v)
			return 1
		}},
		{Name: "can_reach", Function: func(l *lua.State) int {
			name := lua.CheckString(l, 1)
			kind := lua.OptString(l, 2, KindRegion)
			v, err := CanReach(s.ctx, name, kind)
			if err != nil {
				lua.Errorf(l, "%s", err.Error())
			}
			l.PushBoolean(ir.Truthy(v))
			return 1
		}},
		{Name: "player", Function: func(l *lua.State) int {
			l.PushInteger(int(s.ctx.Player()))
			return 1
		}},
	}, 0)
	l.SetGlobal("state")
}

func pushValue(l *lua.State, v ir.Value) {
	switch val := v.(type) {
	case ir.Bool:
		l.PushBoolean(bool(val))
	case ir.Number:
		l.PushInteger(int(val))
	case ir.String:
		l.PushString(string(val))
	case ir.List:
		l.NewTable()
		for i, elem := range val {
			pushValue(l, elem)
			l.RawSetInt(-2, i+1)
		}
	case ir.Object:
		l.NewTable()
		for _, k := range val.SortedKeys() {
			pushValue(l, val[k])
			l.SetField(-2, k)
		}
	default:
		l.PushNil()
	}
}

func toValue(l *lua.State, index int) (ir.Value, error) {
	switch l.TypeOf(index) {
	case lua.TypeNil, lua.TypeNone:
		return ir.Nothing{}, nil
	case lua.TypeBoolean:
		return ir.Bool(l.ToBoolean(index)), nil
	case lua.TypeNumber:
		n, _ := l.ToNumber(index)
		if math.Mod(n, 1) != 0 {
			return nil, fmt.Errorf("helper returned non-integer number %v", n)
		}
		return ir.Number(int64(n)), nil
	case lua.TypeString:
		s, _ := l.ToString(index)
		return ir.String(s), nil
	case lua.TypeTable:
		return tableToValue(l, index)
	default:
		return nil, fmt.Errorf("helper returned unsupported %s", lua.TypeNameOf(l, index))
	}
}

// tableToValue converts a sequence table to a List and anything else to
// an Object keyed by string.
func tableToValue(l *lua.State, index int) (ir.Value, error) {
	index = l.AbsIndex(index)

	length := l.RawLength(index)
	count := 0
	l.PushNil()
	for l.Next(index) {
		count++
		l.Pop(1)
	}

	if length > 0 && length == count {
		list := make(ir.List, 0, length)
		for i := 1; i <= length; i++ {
			l.RawGetInt(index, i)
			v, err := toValue(l, -1)
			l.Pop(1)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	}

	obj := ir.Object{}
	l.PushNil()
	for l.Next(index) {
		if l.TypeOf(-2) == lua.TypeString {
			key, _ := l.ToString(-2)
			v, err := toValue(l, -1)
			if err != nil {
				l.Pop(2)
				return nil, err
			}
			obj[key] = v
		}
		l.Pop(1)
	}
	return obj, nil
}
