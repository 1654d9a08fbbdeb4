package metadata

import "unsafe"

// The staging-upload path moves host arrays to the device as raw bytes.
// Every type viewed here is composed solely of float32/int32 fields, so the
// Go in-memory layout carries no padding and matches the shader-side scalar
// block layout exactly.

func sliceBytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	size := int(unsafe.Sizeof(s[0]))
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*size)
}

func VerticesBytes(v []Vertex) []byte {
	return sliceBytes(v)
}

func IndicesBytes(i []uint32) []byte {
	return sliceBytes(i)
}

func MaterialsBytes(m []Material) []byte {
	return sliceBytes(m)
}

func MatIndicesBytes(mi []int32) []byte {
	return sliceBytes(mi)
}

func InstancesBytes(in []InstanceData) []byte {
	return sliceBytes(in)
}

func ImplicitsBytes(ip []ImplicitPrimitive) []byte {
	return sliceBytes(ip)
}

func CameraMatricesBytes(c *CameraMatrices) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(c)), int(unsafe.Sizeof(*c)))
}
