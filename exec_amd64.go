package mapr

// callByte jumps to machine code at ptr that follows the C calling
// convention and returns a byte in AL. Only used to exercise executable
// mappings.
func callByte(ptr uintptr) byte
