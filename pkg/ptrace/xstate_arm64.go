package ptrace

// XstateGeometry describes the extended register layout. On arm64 the
// FP/SIMD layout is fixed, so the geometry only records that it is usable.
type XstateGeometry struct {
	Offset    int
	Size      int
	Supported bool
}

// ProbeXstate returns the fixed FP/SIMD geometry.
func ProbeXstate() XstateGeometry {
	return XstateGeometry{Size: 32*16 + 16, Supported: true}
}

// Init is a no-op, the arm64 layout carries no metadata.
func (g XstateGeometry) Init(r *ExtendedRegs) {}
