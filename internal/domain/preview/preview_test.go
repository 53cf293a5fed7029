package preview

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockBackend struct {
	puts map[string][]byte
	err  error
}

func (m *mockBackend) Put(_ context.Context, name string, data []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.puts == nil {
		m.puts = make(map[string][]byte)
	}
	m.puts[name] = data
	return "/static/images/previews/" + name, nil
}

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func TestDecodePayload(t *testing.T) {
	raw := base64.StdEncoding.EncodeToString(pngHeader)

	tests := []struct {
		name    string
		input   string
		want    []byte
		wantErr bool
	}{
		{name: "raw base64", input: raw, want: pngHeader},
		{name: "data uri", input: "data:image/png;base64," + raw, want: pngHeader},
		{name: "only first comma stripped", input: "prefix," + raw + ",tail", wantErr: true},
		{name: "invalid base64", input: "data:image/png;base64,@@@", wantErr: true},
		{name: "empty", input: "", want: []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodePayload(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileName(t *testing.T) {
	name, err := FileName("perso-123")
	require.NoError(t, err)
	assert.Equal(t, "perso-123.png", name)

	for _, key := range []string{"", ".", "..", "../etc/passwd", `a\b`, "a/b"} {
		_, err := FileName(key)
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
}

func TestStore_Save(t *testing.T) {
	backend := &mockBackend{}
	s := NewStore(backend)

	ref := s.Save(context.Background(), "perso-1", "data:image/png;base64,"+base64.StdEncoding.EncodeToString(pngHeader))

	require.NotNil(t, ref)
	assert.Equal(t, "/static/images/previews/perso-1.png", *ref)
	assert.Equal(t, pngHeader, backend.puts["perso-1.png"])
}

func TestStore_SaveOverwrites(t *testing.T) {
	backend := &mockBackend{}
	s := NewStore(backend)
	ctx := context.Background()

	require.NotNil(t, s.Save(ctx, "k", base64.StdEncoding.EncodeToString([]byte("first"))))
	require.NotNil(t, s.Save(ctx, "k", base64.StdEncoding.EncodeToString([]byte("second"))))

	assert.Len(t, backend.puts, 1)
	assert.Equal(t, []byte("second"), backend.puts["k.png"])
}

func TestStore_SaveFailsSoft(t *testing.T) {
	ctx := context.Background()

	t.Run("bad payload", func(t *testing.T) {
		backend := &mockBackend{}
		assert.Nil(t, NewStore(backend).Save(ctx, "k", "not base64!"))
		assert.Empty(t, backend.puts)
	})

	t.Run("backend error", func(t *testing.T) {
		backend := &mockBackend{err: errors.New("disk full")}
		assert.Nil(t, NewStore(backend).Save(ctx, "k", base64.StdEncoding.EncodeToString(pngHeader)))
	})

	t.Run("invalid key", func(t *testing.T) {
		backend := &mockBackend{}
		assert.Nil(t, NewStore(backend).Save(ctx, "../k", base64.StdEncoding.EncodeToString(pngHeader)))
		assert.Empty(t, backend.puts)
	})
}
