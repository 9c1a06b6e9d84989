package x86

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// These tests exercise the pure descriptor-building arithmetic only; they
// never call InitGDT, which ends in lgdt/ltr (real instructions with no
// host-safe stand-in), matching this package's no-test-for-hardware
// convention for anything that actually touches the CPU.

func TestFlatDescriptorSetsAccessAndGranularity(t *testing.T) {
	d := flatDescriptor(0x9A, 0xCF)
	require.EqualValues(t, 0xFFFF, d.limitLow)
	require.EqualValues(t, 0x9A, d.access)
	require.EqualValues(t, 0xCF, d.granularity)
	require.Zero(t, d.baseLow)
	require.Zero(t, d.baseMiddle)
	require.Zero(t, d.baseHigh)
}

func TestTSSDescriptorUsesPresentRing3AvailableTSSType(t *testing.T) {
	d := tssDescriptor()
	require.EqualValues(t, 0xE9, d.access)
}
