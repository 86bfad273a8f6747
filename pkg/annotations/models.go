package annotations

import "strings"

// OCRResponse mirrors the JSON returned by Vision-style document text
// detection: pixel coordinates with the origin at the top-left corner.
// Only the fields needed to rebuild word boxes are kept.
type OCRResponse struct {
	Responses []Response `json:"responses"`
}

type Response struct {
	FullTextAnnotation *FullTextAnnotation `json:"fullTextAnnotation"`
}

type FullTextAnnotation struct {
	Pages []Page `json:"pages"`
}

type Page struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Blocks []Block `json:"blocks"`
}

type Block struct {
	Paragraphs []Paragraph `json:"paragraphs"`
}

type Paragraph struct {
	Words []Word `json:"words"`
}

type Word struct {
	BoundingBox BoundingPoly `json:"boundingBox"`
	Symbols     []Symbol     `json:"symbols"`
}

type Symbol struct {
	Text string `json:"text"`
}

type BoundingPoly struct {
	Vertices []Vertex `json:"vertices"`
}

type Vertex struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Text joins the symbols of a word
func (w Word) Text() string {
	var sb strings.Builder
	for _, s := range w.Symbols {
		sb.WriteString(s.Text)
	}
	return sb.String()
}
