package grid

// BoundingBox is a rectangle in normalized image coordinates.
// Values lie in [0,1], the origin is the bottom-left corner and Y grows upward.
type BoundingBox struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// MidX returns the horizontal center of the box
func (b BoundingBox) MidX() float64 {
	return b.X + b.Width/2
}

// MidY returns the vertical center of the box
func (b BoundingBox) MidY() float64 {
	return b.Y + b.Height/2
}

// Fragment is one text detection reported by a recognizer, possibly spanning
// several letters.
type Fragment struct {
	Text        string      `json:"text" yaml:"text"`
	BoundingBox BoundingBox `json:"boundingBox" yaml:"boundingBox"`
}

// ObservedLetter is a single grapheme cut out of a fragment together with its
// estimated box.
type ObservedLetter struct {
	Character   string      `json:"character" yaml:"character"`
	BoundingBox BoundingBox `json:"boundingBox" yaml:"boundingBox"`
}
