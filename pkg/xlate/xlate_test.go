package xlate

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bassosimone/armxlate/pkg/irbuild"
)

// wordROM is a minimal instr.ROMInfo backed by a flat little-endian word
// slice starting at codeStart, the same shape pkg/romimage.Image
// presents but built in-memory so these tests don't need a real ELF
// file on disk.
type wordROM struct {
	codeStart uint32
	words     []uint32
}

func (r wordROM) CodeStart() uint32   { return r.codeStart }
func (r wordROM) CodeSize() uint32    { return uint32(len(r.words)) * 4 }
func (r wordROM) RODataStart() uint32 { return 0 }
func (r wordROM) RODataSize() uint32  { return 0 }
func (r wordROM) ReadWord(addr uint32) (uint32, bool) {
	if addr < r.codeStart {
		return 0, false
	}
	i := (addr - r.codeStart) / 4
	if i >= uint32(len(r.words)) {
		return 0, false
	}
	return r.words[i], true
}

func TestBuildDecodesAndLinksMovThenBX(t *testing.T) {
	rom := wordROM{codeStart: 0x1000, words: []uint32{
		0xE3A00001, // mov r0, #1
		0xE12FFF1E, // bx lr
	}}
	bld := irbuild.NewBuilder("mov_bx", false)
	m, err := Build(bld, rom)
	require.NoError(t, err)
	require.Len(t, m.Blocks(), 2)
	require.Equal(t, 1, m.ColorCount())

	_, ok := m.BlockAt(0x1000)
	require.True(t, ok)
	_, ok = m.BlockAt(0x1004)
	require.True(t, ok)
}

func TestBuildColorsDisjointRegionsSeparately(t *testing.T) {
	words := make([]uint32, 0x100/4)
	words[0] = 0xE12FFF1E               // bx lr at 0x1000
	words[len(words)-1] = 0xE12FFF1E    // bx lr at the last word of the region
	rom := wordROM{codeStart: 0x1000, words: words}

	bld := irbuild.NewBuilder("two_colors", false)
	m, err := Build(bld, rom)
	require.NoError(t, err)
	require.Len(t, m.Blocks(), 2)
	require.Equal(t, 2, m.ColorCount())
}

func TestBuildRejectsMissingROMMetadata(t *testing.T) {
	rom := wordROM{codeStart: 0, words: []uint32{0xE12FFF1E}}
	bld := irbuild.NewBuilder("missing_meta", false)
	_, err := Build(bld, rom)
	require.ErrorIs(t, err, ErrMissingROMMetadata)
}

func TestBuildSkipsZeroWords(t *testing.T) {
	rom := wordROM{codeStart: 0x1000, words: []uint32{0, 0xE12FFF1E, 0}}
	bld := irbuild.NewBuilder("skip_zero", false)
	m, err := Build(bld, rom)
	require.NoError(t, err)
	require.Len(t, m.Blocks(), 1)
	_, ok := m.BlockAt(0x1004)
	require.True(t, ok)
}

func TestVerifyIRPassesOnWellFormedModule(t *testing.T) {
	rom := wordROM{codeStart: 0x1000, words: []uint32{0xE3A00001, 0xE12FFF1E}}
	bld := irbuild.NewBuilder("verify_ir", false)
	m, err := Build(bld, rom)
	require.NoError(t, err)
	require.NoError(t, m.VerifyIR())
}

func TestRunEmitsModuleText(t *testing.T) {
	rom := wordROM{codeStart: 0x1000, words: []uint32{0xE3A00001, 0xE12FFF1E}}
	var buf bytes.Buffer
	m, err := Run(Config{ModuleName: "emit_test"}, rom, &buf)
	require.NoError(t, err)
	require.NotNil(t, m)
	require.Contains(t, buf.String(), "@Run")
	require.Contains(t, buf.String(), "@CanRun")
	require.Contains(t, buf.String(), "@GetBlockAddress")
}

func TestLDMSTMRoundTripDecodesBothForms(t *testing.T) {
	// stmdb r0!, {r1, r2} ; ldm r0, {r1, r2}
	rom := wordROM{codeStart: 0x2000, words: []uint32{0xE9200006, 0xE8900006}}
	bld := irbuild.NewBuilder("ldm_stm", false)
	m, err := Build(bld, rom)
	require.NoError(t, err)
	require.Len(t, m.Blocks(), 2)
	require.NoError(t, m.VerifyIR())
}
