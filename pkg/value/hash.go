package value

// HashString computes the 32-bit FNV-1a hash of s, used both for string
// interning and as the probe seed in Table.
func HashString(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}
