package physics

// CollisionLayer is the bit set a collider belongs to
type CollisionLayer uint32

// CollisionMask is the bit set of layers a collider accepts contact from
type CollisionMask uint32

const (
	LayerDefault     CollisionLayer = 1 << 0
	LayerPlayer      CollisionLayer = 1 << 1
	LayerNPC         CollisionLayer = 1 << 2
	LayerEnvironment CollisionLayer = 1 << 3
	LayerTrigger     CollisionLayer = 1 << 4
	LayerProjectile  CollisionLayer = 1 << 5
	LayerItem        CollisionLayer = 1 << 6
	LayerTerrain     CollisionLayer = 1 << 7

	LayerNone CollisionLayer = 0
)

const (
	MaskAll  CollisionMask = ^CollisionMask(0)
	MaskNone CollisionMask = 0
)

// CustomLayer returns the layer for bit n (0..31)
func CustomLayer(bit uint) CollisionLayer {
	return CollisionLayer(1) << (bit & 31)
}

// MaskOf combines layers into a mask
func MaskOf(layers ...CollisionLayer) CollisionMask {
	var m CollisionMask
	for _, l := range layers {
		m |= CollisionMask(l)
	}
	return m
}

// With adds a layer to the mask
func (m CollisionMask) With(l CollisionLayer) CollisionMask {
	return m | CollisionMask(l)
}

// Without clears a layer from the mask
func (m CollisionMask) Without(l CollisionLayer) CollisionMask {
	return m &^ CollisionMask(l)
}

// Includes reports whether any bit of l is accepted
func (m CollisionMask) Includes(l CollisionLayer) bool {
	return uint32(m)&uint32(l) != 0
}

// Interacts is the two-way gate: each side's mask must accept the other side's layer
func Interacts(layerA CollisionLayer, maskA CollisionMask, layerB CollisionLayer, maskB CollisionMask) bool {
	return maskB.Includes(layerA) && maskA.Includes(layerB)
}
