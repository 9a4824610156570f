package noise

import "math"

// Hashed lattice value noise. Lattice values are in [-1,1] and corners are
// blended with a smoothstep.

func valueNoise2(x, y float64, seed int64) float64 {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	x1 := x0 + 1
	y1 := y0 + 1

	sx := smooth(x - float64(x0))
	sy := smooth(y - float64(y0))

	ix0 := lerp(lattice(x0, y0, 0, seed), lattice(x1, y0, 0, seed), sx)
	ix1 := lerp(lattice(x0, y1, 0, seed), lattice(x1, y1, 0, seed), sx)
	return lerp(ix0, ix1, sy)
}

func valueNoise3(x, y, z float64, seed int64) float64 {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	z0 := int(math.Floor(z))
	x1, y1, z1 := x0+1, y0+1, z0+1

	sx := smooth(x - float64(x0))
	sy := smooth(y - float64(y0))
	sz := smooth(z - float64(z0))

	i00 := lerp(lattice(x0, y0, z0, seed), lattice(x1, y0, z0, seed), sx)
	i10 := lerp(lattice(x0, y1, z0, seed), lattice(x1, y1, z0, seed), sx)
	i01 := lerp(lattice(x0, y0, z1, seed), lattice(x1, y0, z1, seed), sx)
	i11 := lerp(lattice(x0, y1, z1, seed), lattice(x1, y1, z1, seed), sx)

	return lerp(lerp(i00, i10, sy), lerp(i01, i11, sy), sz)
}

func smooth(t float64) float64 {
	return t * t * (3 - 2*t)
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

func lattice(x, y, z int, seed int64) float64 {
	return float64(hash4(x, y, z, int(seed))&0xFFFF)/0x8000 - 1.0
}

func hash4(x, y, z, w int) uint32 {
	h := uint32(x*374761393 + y*668265263 + z*1274126177 + w*2147483647)
	h = (h ^ (h >> 13)) * 1274126177
	return h ^ (h >> 16)
}
