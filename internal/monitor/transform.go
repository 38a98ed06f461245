package monitor

import "strconv"

// Transform is the rotation/flip applied to a logical monitor.
type Transform uint32

// Transform values as defined by the display service.
const (
	TransformNormal Transform = iota
	Transform90
	Transform180
	Transform270
	TransformFlipped
	TransformFlipped90
	TransformFlipped180
	TransformFlipped270
)

var transformNames = [...]string{
	"normal",
	"90",
	"180",
	"270",
	"flipped",
	"flipped-90",
	"flipped-180",
	"flipped-270",
}

// String returns a short human label.
func (t Transform) String() string {
	if int(t) < len(transformNames) {
		return transformNames[t]
	}
	return "transform(" + strconv.FormatUint(uint64(t), 10) + ")"
}
