//go:build unit

package nilcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type source interface{ Name() string }

type memorySource struct{}

func (*memorySource) Name() string { return "memory" }

func TestInterface(t *testing.T) {
	t.Parallel()

	var typedNil *memorySource

	var iface source = typedNil

	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{name: "untyped nil", value: nil, want: true},
		{name: "typed nil pointer in interface", value: iface, want: true},
		{name: "nil map", value: map[string]int(nil), want: true},
		{name: "nil func", value: (func())(nil), want: true},
		{name: "non-nil pointer", value: &memorySource{}, want: false},
		{name: "value type", value: 42, want: false},
		{name: "empty string", value: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, Interface(tt.value))
		})
	}
}
