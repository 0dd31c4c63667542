package benchmarks

// GetMicrobenchmarks returns the standard set of microbenchmarks.
// Each benchmark targets a specific pipeline characteristic.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		loadUse(),
		memorySequential(),
		branchLoop(),
		functionCalls(),
	}
}

// GetCoreBenchmarks returns a minimal set for quick validation: a loop,
// a load-use chain and calls.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		branchLoop(),
		loadUse(),
		functionCalls(),
	}
}

func program(words ...uint32) []uint32 {
	return append(words, EncodeHalt())
}

// 1. Arithmetic Sequential - Tests ALU throughput with independent operations
func arithmeticSequential() Benchmark {
	words := make([]uint32, 0, 20)
	for i := 0; i < 20; i++ {
		rd := uint8(5 + i%5)
		words = append(words, EncodeADDI(rd, rd, 1))
	}

	return Benchmark{
		Name:           "arithmetic_sequential",
		Description:    "20 independent ADDIs over x5-x9 - measures ALU throughput",
		Program:        program(words...),
		ResultReg:      9,
		ExpectedResult: 4,
	}
}

// 2. Dependency Chain - Tests back-to-back ALU dependencies
func dependencyChain() Benchmark {
	words := make([]uint32, 0, 20)
	for i := 0; i < 20; i++ {
		words = append(words, EncodeADDI(5, 5, 1))
	}

	return Benchmark{
		Name:           "dependency_chain",
		Description:    "20 dependent ADDIs (x5 = x5 + 1) - writeback feeds execute without stalls",
		Program:        program(words...),
		ResultReg:      5,
		ExpectedResult: 20,
	}
}

// 3. Load Use - Tests the load hazard stall
func loadUse() Benchmark {
	words := []uint32{EncodeADDI(5, 0, 7)}
	for i := 0; i < 5; i++ {
		words = append(words,
			EncodeSD(5, 0, dataBase),
			EncodeLD(6, 0, dataBase),
			EncodeADD(5, 5, 6),
		)
	}

	return Benchmark{
		Name:           "load_use",
		Description:    "5 store/load/add rounds doubling x5 - each add waits on its load",
		Program:        program(words...),
		ResultReg:      5,
		ExpectedResult: 7 << 5,
	}
}

// 4. Memory Sequential - Tests the load buffer and D-cache locality
func memorySequential() Benchmark {
	words := []uint32{EncodeADDI(5, 0, 1)}
	for i := int32(0); i < 8; i++ {
		words = append(words, EncodeSD(5, 0, dataBase+8*i))
	}
	for i := int32(0); i < 8; i++ {
		words = append(words, EncodeLD(uint8(6+i), 0, dataBase+8*i))
	}
	words = append(words,
		EncodeNOP(),
		EncodeNOP(),
		EncodeADD(14, 6, 13),
	)

	return Benchmark{
		Name:           "memory_sequential",
		Description:    "8 stores then 8 loads over one cache block",
		Program:        program(words...),
		ResultReg:      14,
		ExpectedResult: 2,
	}
}

// 5. Branch Loop - Tests taken-branch flushes
func branchLoop() Benchmark {
	return Benchmark{
		Name:        "branch_loop",
		Description: "10-iteration countdown loop - 9 taken branches",
		Program: program(
			EncodeADDI(5, 0, 10),
			EncodeADDI(6, 6, 2),
			EncodeADDI(5, 5, -1),
			EncodeBNE(5, 0, -8),
			EncodeNOP(),
		),
		ResultReg:      6,
		ExpectedResult: 20,
	}
}

// 6. Function Calls - Tests JAL/JALR redirects
func functionCalls() Benchmark {
	return Benchmark{
		Name:        "function_calls",
		Description: "3 calls to a leaf function that increments x10",
		Program: program(
			EncodeJAL(1, 16), // 0x00: call leaf
			EncodeJAL(1, 12), // 0x04: call leaf
			EncodeJAL(1, 8),  // 0x08: call leaf
			EncodeJAL(0, 16), // 0x0c: jump to the end
			EncodeADDI(10, 10, 1),
			EncodeJALR(0, 1, 0), // ret
			EncodeNOP(),
		),
		ResultReg:      10,
		ExpectedResult: 3,
	}
}
