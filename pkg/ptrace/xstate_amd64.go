package ptrace

import "unsafe"

// XstateGeometry describes where the AVX state component lives inside the
// XSAVE area of this CPU and how large the area is.
type XstateGeometry struct {
	Offset    int
	Size      int
	Supported bool
}

func cpuid(axIn, cxIn uint32) (axOut, bxOut, cxOut, dxOut uint32)

// ProbeXstate queries the CPU for the XSAVE layout. It is meant to run
// once at startup, the result is handed to NewTracer.
//
// See Intel 64 and IA-32 Architecture Software Developer's Manual, Vol. 1
// chapter 13.2 and Vol. 2A CPUID instruction for the constants.
func ProbeXstate() XstateGeometry {
	_, _, cx, _ := cpuid(0x01, 0x00)
	if cx&(1<<26) == 0 { // XSAVE not supported by this processor
		return XstateGeometry{}
	}

	_, bx, _, _ := cpuid(0x0d, 0x02) // AVX is component #2
	offset := int(bx & 0x3fff)

	_, _, cx, _ = cpuid(0x0d, 0x00) // processor extended state enumeration main leaf
	size := int(cx & 0x3fff)

	return newXstateGeometry(offset, size)
}

func newXstateGeometry(offset, size int) XstateGeometry {
	var regs ExtendedRegs
	geo := XstateGeometry{Offset: offset, Size: size}
	geo.Supported = size > 0 && size <= int(unsafe.Sizeof(regs.Xsave))
	return geo
}

// Init stamps the geometry metadata into an extended register snapshot.
func (g XstateGeometry) Init(r *ExtendedRegs) {
	r.ComponentSize = uint32(g.Size)
	r.AvxOffset = uint32(g.Offset)
}
