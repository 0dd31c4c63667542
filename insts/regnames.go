package insts

import "fmt"

var abiNames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// RegName returns the ABI name of general-purpose register reg.
func RegName(reg uint8) string {
	if reg >= 32 {
		return fmt.Sprintf("x%d", reg)
	}
	return abiNames[reg]
}
