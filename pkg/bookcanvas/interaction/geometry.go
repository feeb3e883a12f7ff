package interaction

// Point is a canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Size is a width/height pair.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Minimum group size enforced while resizing.
const (
	MinWidth  = 200
	MinHeight = 100
)

// ClampSize raises s to the minimum group size.
func ClampSize(s Size) Size {
	return Size{Width: max(MinWidth, s.Width), Height: max(MinHeight, s.Height)}
}
