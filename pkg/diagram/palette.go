package diagram

import (
	"fmt"
	"math/rand/v2"
	"strconv"
)

// Rand is the source of randomness for positions and colours
type Rand interface {
	Float64() float64
}

// NewRand returns a seeded source. The same seed yields the same diagram.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Palette hands out one light fill colour per group and derives darker line
// colours from it.
type Palette struct {
	rnd    Rand
	colors map[string]string
}

// NewPalette creates a palette drawing from rnd
func NewPalette(rnd Rand) *Palette {
	return &Palette{
		rnd:    rnd,
		colors: make(map[string]string),
	}
}

// GroupColor returns the fill colour of a group, picking a new random one on first use.
// Each channel lies in [175, 255).
func (p *Palette) GroupColor(group string) string {
	if c, ok := p.colors[group]; ok {
		return c
	}
	c := p.randomColor()
	p.colors[group] = c
	return c
}

// LineColor returns the colour for relations drawn from a group: the group
// colour darkened so lines stay readable.
func (p *Palette) LineColor(group string) string {
	c := p.GroupColor(group)
	var out [3]uint64
	for i := range out {
		v, _ := strconv.ParseUint(c[2*i:2*i+2], 16, 8)
		out[i] = v - 120
	}
	return fmt.Sprintf("%02X%02X%02X", out[0], out[1], out[2])
}

func (p *Palette) randomColor() string {
	r := int(p.rnd.Float64()*80) + 175
	g := int(p.rnd.Float64()*80) + 175
	b := int(p.rnd.Float64()*80) + 175
	return fmt.Sprintf("%02X%02X%02X", r, g, b)
}
