package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactoryDispatch(t *testing.T) {
	factory := NewFactory()

	t.Run("creates adapters for supported codes", func(t *testing.T) {
		for _, code := range []string{"godaddy", "namecheap", "porkbun"} {
			adapter, err := factory.Create(code, Credentials{APIKey: "k", APISecret: "s"})
			require.NoError(t, err)
			assert.Equal(t, code, adapter.Code())
		}
	})

	t.Run("unknown code returns ErrUnsupportedRegistrar", func(t *testing.T) {
		_, err := factory.Create("enom", Credentials{})
		require.ErrorIs(t, err, ErrUnsupportedRegistrar)
	})

	t.Run("IsSupported matches dispatch table", func(t *testing.T) {
		assert.True(t, factory.IsSupported("godaddy"))
		assert.False(t, factory.IsSupported("enom"))
	})

	t.Run("Supported lists registrars by priority", func(t *testing.T) {
		infos := factory.Supported()
		require.Len(t, infos, 3)
		assert.Equal(t, "godaddy", infos[0].Code)
		assert.Equal(t, "namecheap", infos[1].Code)
		assert.Equal(t, "porkbun", infos[2].Code)
	})
}

func TestNormalizeDomain(t *testing.T) {
	cases := map[string]string{
		"Example.COM":      "example.com",
		" www.Example.com": "example.com",
		"example.com.":     "example.com",
		"www.sub.dom.io":   "sub.dom.io",
	}
	for input, want := range cases {
		assert.Equal(t, want, NormalizeDomain(input), "input %q", input)
	}
}
