package sb9600

// crcTable is the SB9600 link-layer CRC-8 lookup table.
var crcTable = [256]byte{
	0x00, 0x99, 0xad, 0x34, 0xc5, 0x5c, 0x68, 0xf1, 0x15, 0x8c, 0xb8, 0x21, 0xd0, 0x49, 0x7d, 0xe4,
	0x2a, 0xb3, 0x87, 0x1e, 0xef, 0x76, 0x42, 0xdb, 0x3f, 0xa6, 0x92, 0x0b, 0xfa, 0x63, 0x57, 0xce,
	0x54, 0xcd, 0xf9, 0x60, 0x91, 0x08, 0x3c, 0xa5, 0x41, 0xd8, 0xec, 0x75, 0x84, 0x1d, 0x29, 0xb0,
	0x7e, 0xe7, 0xd3, 0x4a, 0xbb, 0x22, 0x16, 0x8f, 0x6b, 0xf2, 0xc6, 0x5f, 0xae, 0x37, 0x03, 0x9a,
	0xa8, 0x31, 0x05, 0x9c, 0x6d, 0xf4, 0xc0, 0x59, 0xbd, 0x24, 0x10, 0x89, 0x78, 0xe1, 0xd5, 0x4c,
	0x82, 0x1b, 0x2f, 0xb6, 0x47, 0xde, 0xea, 0x73, 0x97, 0x0e, 0x3a, 0xa3, 0x52, 0xcb, 0xff, 0x66,
	0xfc, 0x65, 0x51, 0xc8, 0x39, 0xa0, 0x94, 0x0d, 0xe9, 0x70, 0x44, 0xdd, 0x2c, 0xb5, 0x81, 0x18,
	0xd6, 0x4f, 0x7b, 0xe2, 0x13, 0x8a, 0xbe, 0x27, 0xc3, 0x5a, 0x6e, 0xf7, 0x06, 0x9f, 0xab, 0x32,
	0xcf, 0x56, 0x62, 0xfb, 0x0a, 0x93, 0xa7, 0x3e, 0xda, 0x43, 0x77, 0xee, 0x1f, 0x86, 0xb2, 0x2b,
	0xe5, 0x7c, 0x48, 0xd1, 0x20, 0xb9, 0x8d, 0x14, 0xf0, 0x69, 0x5d, 0xc4, 0x35, 0xac, 0x98, 0x01,
	0x9b, 0x02, 0x36, 0xaf, 0x5e, 0xc7, 0xf3, 0x6a, 0x8e, 0x17, 0x23, 0xba, 0x4b, 0xd2, 0xe6, 0x7f,
	0xb1, 0x28, 0x1c, 0x85, 0x74, 0xed, 0xd9, 0x40, 0xa4, 0x3d, 0x09, 0x90, 0x61, 0xf8, 0xcc, 0x55,
	0x67, 0xfe, 0xca, 0x53, 0xa2, 0x3b, 0x0f, 0x96, 0x72, 0xeb, 0xdf, 0x46, 0xb7, 0x2e, 0x1a, 0x83,
	0x4d, 0xd4, 0xe0, 0x79, 0x88, 0x11, 0x25, 0xbc, 0x58, 0xc1, 0xf5, 0x6c, 0x9d, 0x04, 0x30, 0xa9,
	0x33, 0xaa, 0x9e, 0x07, 0xf6, 0x6f, 0x5b, 0xc2, 0x26, 0xbf, 0x8b, 0x12, 0xe3, 0x7a, 0x4e, 0xd7,
	0x19, 0x80, 0xb4, 0x2d, 0xdc, 0x45, 0x71, 0xe8, 0x0c, 0x95, 0xa1, 0x38, 0xc9, 0x50, 0x64, 0xfd,
}

// FrameCRC folds the bytes through the link-layer CRC table.
func FrameCRC(b []byte) byte {
	var crc byte
	for _, v := range b {
		crc = crcTable[crc^v]
	}
	return crc
}

// SBEPCRC is the inverted byte sum used by the expanded protocol.
func SBEPCRC(b []byte) byte {
	var sum byte
	for _, v := range b {
		sum += v
	}
	return sum ^ 0xFF
}
