// Package romimage turns a ROM file on disk into the ExternalConfig and
// raw-word reader the module builder's decode phase needs: where the
// code region starts and how big it is, where the read-only data region
// is (for PC-relative literal inlining), and a little-endian word
// reader over the loaded bytes. It is grounded on
// other_examples/manifests/robertodauria-ebpf-vm, the pack's own
// ELF-backed VM image loader, generalized from eBPF's single-section
// model to recover the code and rodata extents spec.md §9's "external
// config struct" names.
package romimage

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/yalue/elf_reader"
)

// ErrNoCodeSection is returned when an ELF image has no section that
// looks like executable code, the "missing loader metadata" fatal case
// spec.md §7 names.
var ErrNoCodeSection = errors.New("romimage: ELF image has no executable section")

const flagExecInstr = 0x4 // SHF_EXECINSTR

// flatImageBase is the guest load address assumed for a flat binary
// that carries no loader metadata of its own. It must be nonzero: the
// module builder treats ROMCodeStart == 0 as "metadata never set"
// (original_source/src/core/loader/loader.cpp's ROMCodeStart = 0 is
// that same unset sentinel), so a flat image loaded at 0 would be
// rejected before any instruction is ever decoded from it. 0x8000 is
// ARM's own conventional flat-image load address (e.g. the Linux zImage
// entry point), reused here for the same reason.
const flatImageBase = 0x00008000

// Image is a loaded ROM: the raw bytes backing it, and the
// ExternalConfig describing where its code and read-only data regions
// sit in the guest address space.
type Image struct {
	bytes  []byte
	loadAt uint32 // guest address of bytes[0]
	cfg    ExternalConfig
}

// ExternalConfig is the `{rom_code_start, rom_code_size,
// rom_rodata_start, rom_rodata_size}` struct spec.md §9 names: the
// loader metadata that makes PC-relative literal inlining (and the
// block-address table's base/length) possible.
type ExternalConfig struct {
	ROMCodeStart     uint32
	ROMCodeSize      uint32
	ROMReadOnlyStart uint32
	ROMReadOnlySize  uint32
}

// Load parses data as an ELF image and recovers its code/rodata
// extents from the section table. If data isn't a valid ELF image, it
// falls back to treating the whole file as one flat code region loaded
// at flatImageBase — a degraded but always-available path for raw ROM
// dumps that carry no section metadata at all.
func Load(data []byte) (*Image, error) {
	elfFile, err := elf_reader.ParseELFFile(data)
	if err != nil {
		return loadFlat(data), nil
	}
	return loadELF(elfFile, data)
}

func loadFlat(data []byte) *Image {
	return &Image{
		bytes:  data,
		loadAt: flatImageBase,
		cfg: ExternalConfig{
			ROMCodeStart: flatImageBase,
			ROMCodeSize:  uint32(len(data)),
		},
	}
}

func loadELF(f elf_reader.ELFFile, data []byte) (*Image, error) {
	img := &Image{bytes: data}

	count := f.GetSectionCount()
	var haveCode bool
	for i := uint16(0); i < count; i++ {
		header, err := f.GetSectionHeader(i)
		if err != nil {
			continue
		}
		addr := uint32(header.GetVirtualAddress())
		size := uint32(header.GetSize())
		if size == 0 {
			continue
		}

		name, _ := f.GetSectionName(i)
		switch {
		case header.GetFlags()&flagExecInstr != 0:
			img.cfg.ROMCodeStart = addr
			img.cfg.ROMCodeSize = size
			haveCode = true
			if img.loadAt == 0 || addr < img.loadAt {
				img.loadAt = addr
			}
		case name == ".rodata":
			img.cfg.ROMReadOnlyStart = addr
			img.cfg.ROMReadOnlySize = size
		}
	}

	if !haveCode {
		return nil, ErrNoCodeSection
	}
	return img, nil
}

// CodeStart implements instr.ROMInfo.
func (img *Image) CodeStart() uint32 { return img.cfg.ROMCodeStart }

// CodeSize implements instr.ROMInfo.
func (img *Image) CodeSize() uint32 { return img.cfg.ROMCodeSize }

// RODataStart implements instr.ROMInfo.
func (img *Image) RODataStart() uint32 { return img.cfg.ROMReadOnlyStart }

// RODataSize implements instr.ROMInfo.
func (img *Image) RODataSize() uint32 { return img.cfg.ROMReadOnlySize }

// ReadWord implements instr.ROMInfo: a little-endian 32-bit read
// against the loaded bytes, translating the guest address through the
// image's load address. Returns false for any address outside the
// backing bytes, including misaligned reads that would straddle the
// end of the buffer.
func (img *Image) ReadWord(addr uint32) (uint32, bool) {
	if addr < img.loadAt {
		return 0, false
	}
	off := uint64(addr-img.loadAt)
	if off+4 > uint64(len(img.bytes)) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(img.bytes[off : off+4]), true
}

// Config returns the image's ExternalConfig.
func (img *Image) Config() ExternalConfig { return img.cfg }
