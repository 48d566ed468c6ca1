package inject

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeter interface {
	Greet() string
}

type englishGreeter struct{ prefix string }

func (g *englishGreeter) Greet() string { return g.prefix + "hello" }

func TestRegistryRegisterAndLookup(t *testing.T) {
	registry := NewServiceRegistry()
	svc := &englishGreeter{}

	require.NoError(t, registry.Register("greeter", svc))

	found, ok := registry.Lookup("greeter")
	assert.True(t, ok)
	assert.Same(t, svc, found)

	_, ok = registry.Lookup("absent")
	assert.False(t, ok)
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	registry := NewServiceRegistry()
	require.NoError(t, registry.Register("svc", &englishGreeter{}))

	err := registry.Register("svc", &englishGreeter{})
	assert.ErrorIs(t, err, ErrServiceAlreadyRegistered)
}

func TestRegistryNames(t *testing.T) {
	registry := NewServiceRegistry()
	require.NoError(t, registry.Register("b", 2))
	require.NoError(t, registry.Register("a", 1))

	assert.Equal(t, []string{"a", "b"}, registry.Names())
}

func TestRegistryImplementorsOf(t *testing.T) {
	registry := NewServiceRegistry()
	require.NoError(t, registry.Register("greeter", &englishGreeter{}))
	require.NoError(t, registry.Register("number", 42))

	iface := reflect.TypeOf((*greeter)(nil)).Elem()
	assert.Equal(t, []string{"greeter"}, registry.ImplementorsOf(iface))

	assert.Nil(t, registry.ImplementorsOf(nil))
	assert.Nil(t, registry.ImplementorsOf(reflect.TypeOf(42)))
}

func TestRegistryAssign(t *testing.T) {
	registry := NewServiceRegistry()
	svc := &englishGreeter{prefix: "x-"}
	require.NoError(t, registry.Register("greeter", svc))

	// Into an interface variable.
	var iface greeter
	require.NoError(t, registry.Assign("greeter", &iface))
	assert.Equal(t, "x-hello", iface.Greet())

	// Into the concrete pointer type.
	var ptr *englishGreeter
	require.NoError(t, registry.Assign("greeter", &ptr))
	assert.Same(t, svc, ptr)

	// Into the element type, copying the value.
	var val englishGreeter
	require.NoError(t, registry.Assign("greeter", &val))
	assert.Equal(t, "x-", val.prefix)
}

func TestRegistryAssignErrors(t *testing.T) {
	registry := NewServiceRegistry()
	require.NoError(t, registry.Register("number", 42))

	var s string
	assert.ErrorIs(t, registry.Assign("number", &s), ErrServiceIncompatible)
	assert.ErrorIs(t, registry.Assign("absent", &s), ErrServiceNotFound)

	var n int
	assert.ErrorIs(t, registry.Assign("number", n), ErrTargetNotPointer)
}

func TestInjectFieldsByName(t *testing.T) {
	registry := NewServiceRegistry()
	svc := &englishGreeter{}
	require.NoError(t, registry.Register("greeter", svc))

	holder := struct {
		Greeter *englishGreeter `inject:"greeter"`
		Skipped string
	}{}
	require.NoError(t, registry.InjectFields(&holder))
	assert.Same(t, svc, holder.Greeter)
	assert.Empty(t, holder.Skipped)
}

func TestInjectFieldsByInterface(t *testing.T) {
	registry := NewServiceRegistry()
	svc := &englishGreeter{}
	require.NoError(t, registry.Register("greeter", svc))

	holder := struct {
		Greeter greeter `inject:""`
	}{}
	require.NoError(t, registry.InjectFields(&holder))
	assert.Equal(t, "hello", holder.Greeter.Greet())
}

func TestInjectFieldsMissingService(t *testing.T) {
	registry := NewServiceRegistry()

	named := struct {
		Greeter *englishGreeter `inject:"greeter"`
	}{}
	assert.ErrorIs(t, registry.InjectFields(&named), ErrServiceNotFound)

	byInterface := struct {
		Greeter greeter `inject:""`
	}{}
	assert.ErrorIs(t, registry.InjectFields(&byInterface), ErrServiceNotFound)
}
