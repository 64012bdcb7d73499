// Package emit renders a resolved global initializer into the flat bytes it
// occupies in the output artifact, together with generic relocation records
// for the address-bearing slots.
//
// Integers are rendered little-endian. Pointer-sized address slots are
// rendered as zeros with an absolute relocation against the target global.
// Relative-offset slots (target minus here) fold to a plain constant when
// both addresses land in the global being rendered; a cross-global delta
// becomes a relative relocation instead.
//
// Target-specific relocation encoding is out of scope: records carry the
// target symbol, addend, width, and whether they are relative, and a consumer
// maps them onto its object format.
//
//	img, err := emit.Encode(global, layout)
//	if err != nil {
//	    return err
//	}
//	copy(section[base:], img.Bytes)
//	for _, r := range img.Relocs {
//	    // translate r onto the object format
//	}
package emit
