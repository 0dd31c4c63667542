package benchmarks

// Helper functions for building RISC-V programs.

func encodeI(opcode, funct3 uint32, rd, rs1 uint8, imm int32) uint32 {
	return uint32(imm&0xFFF)<<20 | uint32(rs1)<<15 | funct3<<12 | uint32(rd)<<7 | opcode
}

// EncodeADDI encodes ADDI rd, rs1, imm.
func EncodeADDI(rd, rs1 uint8, imm int32) uint32 {
	return encodeI(0x13, 0, rd, rs1, imm)
}

// EncodeNOP encodes ADDI x0, x0, 0.
func EncodeNOP() uint32 {
	return EncodeADDI(0, 0, 0)
}

// EncodeADD encodes ADD rd, rs1, rs2.
func EncodeADD(rd, rs1, rs2 uint8) uint32 {
	return uint32(rs2)<<20 | uint32(rs1)<<15 | uint32(rd)<<7 | 0x33
}

// EncodeLD encodes LD rd, imm(rs1).
func EncodeLD(rd, rs1 uint8, imm int32) uint32 {
	return encodeI(0x03, 3, rd, rs1, imm)
}

// EncodeSD encodes SD rs2, imm(rs1).
func EncodeSD(rs2, rs1 uint8, imm int32) uint32 {
	u := uint32(imm)
	return (u>>5&0x7F)<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 | 3<<12 | (u&0x1F)<<7 | 0x23
}

// EncodeBNE encodes BNE rs1, rs2, offset.
func EncodeBNE(rs1, rs2 uint8, offset int32) uint32 {
	u := uint32(offset)
	return (u>>12&1)<<31 | (u>>5&0x3F)<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 |
		1<<12 | (u>>1&0xF)<<8 | (u>>11&1)<<7 | 0x63
}

// EncodeJAL encodes JAL rd, offset.
func EncodeJAL(rd uint8, offset int32) uint32 {
	u := uint32(offset)
	return (u>>20&1)<<31 | (u>>1&0x3FF)<<21 | (u>>11&1)<<20 | (u>>12&0xFF)<<12 |
		uint32(rd)<<7 | 0x6F
}

// EncodeJALR encodes JALR rd, imm(rs1).
func EncodeJALR(rd, rs1 uint8, imm int32) uint32 {
	return encodeI(0x67, 0, rd, rs1, imm)
}

// EncodeHalt encodes the all-zero word, which is illegal and ends a program.
func EncodeHalt() uint32 {
	return 0
}
