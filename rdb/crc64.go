package rdb

import (
	"hash/crc64"
)

// Redis uses CRC-64/Jones, reflected, zero initial value and no final xor.
// hash/crc64 inverts on the way in and out, so invert around it.
var crcTable = crc64.MakeTable(0x95ac9329ac4bc9b5)

func crc64Update(crc uint64, p []byte) uint64 {
	return ^crc64.Update(^crc, crcTable, p)
}

// Checksum computes the trailing checksum Redis writes over p.
func Checksum(p []byte) uint64 {
	return crc64Update(0, p)
}
