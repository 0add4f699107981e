package xlate

import (
	"github.com/bassosimone/armxlate/pkg/alias"
	"github.com/bassosimone/armxlate/pkg/armreg"
	"github.com/bassosimone/armxlate/pkg/irbuild"
)

// generateDispatchBodies fills in GetBlockAddress/CanRun/Run's bodies,
// the three exported functions spec.md §4.9 specifies by pseudocode.
// Run after the block-address array is fully populated, though the
// bodies only reference the array global, not its current contents.
func (m *Module) generateDispatchBodies() {
	m.generateGetBlockAddress()
	m.generateCanRun()
	m.generateRun()
}

// generateGetBlockAddress implements:
//
//	index = pc/4 - base
//	return sentinel unless (pc & 3 == 0) && index < length
//	else return block_address_array[index] (tagged const load)
func (m *Module) generateGetBlockAddress() {
	fn := m.getBlockAddressFn
	entry := irbuild.NewBlock("Entry")
	found := irbuild.NewBlock("Found")
	sentinel := irbuild.NewBlock("Sentinel")
	irbuild.AppendBlock(fn, entry)
	irbuild.AppendBlock(fn, found)
	irbuild.AppendBlock(fn, sentinel)

	pc := fn.Params[0]

	aligned := entry.NewICmp(irbuild.IntEQ, entry.NewAnd(pc, irbuild.ConstI32(3)), irbuild.ConstI32(0))
	shifted := entry.NewLShr(pc, irbuild.ConstI32(2))
	index := entry.NewSub(shifted, irbuild.ConstI32(int64(m.base)))
	inRange := entry.NewICmp(irbuild.IntULT, index, irbuild.ConstI32(int64(m.length)))
	ok := entry.NewAnd(aligned, inRange)
	entry.NewCondBr(ok, found, sentinel)

	ptr := m.bld.BlockAddressArrayPtr(found, index)
	loaded := found.NewLoad(ptr)
	alias.Attach(&loaded.Metadata, m.tags, alias.ClassConst)
	found.NewRet(loaded)

	sentinel.NewRet(m.bld.BlockAddressSentinel())
}

// generateCanRun implements: GetBlockAddress(ReadRegister(PC)).function
// != null.
func (m *Module) generateCanRun() {
	fn := m.canRunFn
	entry := irbuild.NewBlock("Entry")
	irbuild.AppendBlock(fn, entry)

	pc := m.state.ReadRegister(entry, armreg.PC, true)
	addr := entry.NewCall(m.getBlockAddressFn, pc)
	fnField := entry.NewExtractValue(addr, 0)
	cond := entry.NewICmp(irbuild.IntNE, fnField, m.bld.ConstNullFuncPtr())
	entry.NewRet(cond)
}

// generateRun implements: b = GetBlockAddress(ReadRegister(PC)); if
// b.function == null return; else tail-call b.function(b.index).
func (m *Module) generateRun() {
	fn := m.runFn
	entry := irbuild.NewBlock("Entry")
	dispatch := irbuild.NewBlock("Dispatch")
	ret := irbuild.NewBlock("Return")
	irbuild.AppendBlock(fn, entry)
	irbuild.AppendBlock(fn, dispatch)
	irbuild.AppendBlock(fn, ret)

	pc := m.state.ReadRegister(entry, armreg.PC, true)
	addr := entry.NewCall(m.getBlockAddressFn, pc)
	fnField := entry.NewExtractValue(addr, 0)
	idxField := entry.NewExtractValue(addr, 1)
	isNull := entry.NewICmp(irbuild.IntEQ, fnField, m.bld.ConstNullFuncPtr())
	entry.NewCondBr(isNull, ret, dispatch)

	dispatch.NewCall(fnField, idxField)
	dispatch.NewRet(nil)

	ret.NewRet(nil)
}
