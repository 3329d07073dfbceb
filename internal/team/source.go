package team

import (
	"fmt"
	"log/slog"
)

// Built-in team kinds.
const (
	KindPassive   = "passive"
	KindPool      = "pool"
	KindDedicated = "dedicated"
)

// SourceContext is what a team source receives when asked for a team.
type SourceContext struct {
	Name     string
	Size     int
	Logger   *slog.Logger
	Observer Observer
}

// Source creates teams.
type Source interface {
	CreateTeam(sc SourceContext) (Team, error)
}

// SourceFunc adapts a function to a Source.
type SourceFunc func(sc SourceContext) (Team, error)

// CreateTeam implements Source.
func (f SourceFunc) CreateTeam(sc SourceContext) (Team, error) { return f(sc) }

// Builtins returns the sources for the built-in kinds. An Executor only runs
// when driven, so it is built directly by code that drives it and is not a kind.
func Builtins() map[string]Source {
	return map[string]Source{
		KindPassive: SourceFunc(func(sc SourceContext) (Team, error) {
			return NewPassive(sc.Name, sc.Logger), nil
		}),
		KindPool: SourceFunc(func(sc SourceContext) (Team, error) {
			if sc.Size < 1 {
				return nil, fmt.Errorf("team '%s': pool size must be at least 1, got %d", sc.Name, sc.Size)
			}
			return NewPool(sc.Name, sc.Size, sc.Logger, sc.Observer), nil
		}),
		KindDedicated: SourceFunc(func(sc SourceContext) (Team, error) {
			return NewDedicated(sc.Name, sc.Logger, sc.Observer), nil
		}),
	}
}
