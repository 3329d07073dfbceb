package env_vars

import (
	"context"
	"testing"

	"github.com/specialistvlad/officegrid/internal/kernel"
	"github.com/specialistvlad/officegrid/internal/kerneltest"
	"github.com/specialistvlad/officegrid/internal/registry"
	"github.com/stretchr/testify/require"
)

func TestSource_Prefix(t *testing.T) {
	// Arrange
	t.Setenv("OGTEST_COLOR", "blue")
	t.Setenv("OTHER_COLOR", "red")
	src, err := kerneltest.Decode(t, registry.NewFactory(nil, NewSource), `prefix = "OGTEST_"`)
	require.NoError(t, err)

	// Act
	obj, err := src.(kernel.SyncSource).Source(context.Background())

	// Assert
	require.NoError(t, err)
	env := obj.(map[string]string)
	require.Equal(t, "blue", env["COLOR"])
	require.NotContains(t, env, "OTHER_COLOR")
}

func TestSource_BadPrefix(t *testing.T) {
	_, err := kerneltest.Decode(t, registry.NewFactory(nil, NewSource), `prefix = ["OGTEST_"]`)
	require.ErrorContains(t, err, "Unsuitable value type")
}

func TestSource_AsManagedObject(t *testing.T) {
	// Arrange
	t.Setenv("OGTEST_NAME", "office")
	meta := &kernel.OfficeMetaData{
		Name:           "office",
		ManagedObjects: []*kernel.ManagedObject{{Name: "env", Source: &Source{Prefix: "OGTEST_"}, Scope: kernel.ScopeProcess}},
		Functions: []*kernel.Function{{
			Name:           "read",
			ManagedObjects: []int{0},
			Body: func(fc *kernel.FunctionContext) (any, error) {
				return fc.Object(0).(map[string]string)["NAME"], nil
			},
		}},
	}

	// Act
	res := kerneltest.Run(t, meta, "read", nil, nil)

	// Assert
	require.NoError(t, res.Err)
	require.Equal(t, "office", res.Value)
}
