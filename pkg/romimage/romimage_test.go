package romimage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFlatBinaryFallback(t *testing.T) {
	data := []byte{0x01, 0x00, 0xa0, 0xe3, 0x00, 0x00, 0x00, 0x00}
	img, err := Load(data)
	require.NoError(t, err)
	require.EqualValues(t, flatImageBase, img.CodeStart())
	require.EqualValues(t, len(data), img.CodeSize())
}

func TestReadWordRoundTrip(t *testing.T) {
	data := []byte{0x01, 0x00, 0xa0, 0xe3}
	img, err := Load(data)
	require.NoError(t, err)
	word, ok := img.ReadWord(flatImageBase)
	require.True(t, ok)
	require.EqualValues(t, 0xe3a00001, word)
}

func TestReadWordOutOfRange(t *testing.T) {
	img, err := Load([]byte{0x01, 0x00, 0xa0, 0xe3})
	require.NoError(t, err)
	_, ok := img.ReadWord(flatImageBase + 4)
	require.False(t, ok)
}
