package xlate

import (
	"io"

	"github.com/pkg/errors"

	"github.com/bassosimone/armxlate/pkg/instr"
	"github.com/bassosimone/armxlate/pkg/irbuild"
)

// ErrIRVerificationFailed is the fatal error spec.md §7 names for a
// built module that fails IR verification: here, a reachable
// instruction block whose entry point was never terminated, which
// would otherwise crash the opaque external IR toolchain downstream.
var ErrIRVerificationFailed = errors.New("xlate: IR verification failed")

// Config bundles the pipeline driver's settings: the verify-mode flag
// baked into the emitted module's Verify global, and the name given to
// the resulting IR module. The ROM itself is passed to Run separately.
type Config struct {
	ModuleName string
	Verify     bool
}

// Run is the pipeline driver spec.md §2 names "initialize IR targets,
// invoke module builder, verify, optimize, emit." It builds bld fresh,
// runs the full module-builder phase sequence over rom, verifies the
// result, and writes the emitted object to out.
func Run(cfg Config, rom instr.ROMInfo, out io.Writer) (*Module, error) {
	bld := irbuild.NewBuilder(cfg.ModuleName, cfg.Verify)

	m, err := Build(bld, rom)
	if err != nil {
		return nil, errors.WithMessage(err, "xlate: module build failed")
	}

	if err := m.VerifyIR(); err != nil {
		return m, errors.WithMessage(err, "xlate: module verification failed")
	}

	if _, err := bld.WriteTo(out); err != nil {
		return m, errors.Wrap(err, "xlate: object emission failed")
	}

	return m, nil
}

// VerifyIR performs the lightweight structural check spec.md §4.9 phase
// 8's "verify" step stands for in this repo: every decoded instruction's
// entry block must have been terminated by GenerateCode. A violation
// here means a code-generation bug upstream, not a malformed ROM, so it
// is always treated as fatal rather than "no translation".
func (m *Module) VerifyIR() error {
	for _, blk := range m.blocks {
		if !irbuild.Terminated(blk.EntryBlock()) {
			return errors.Wrapf(ErrIRVerificationFailed, "block at address %#08x was never terminated", blk.Address())
		}
	}
	return nil
}
