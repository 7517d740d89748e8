// Package geometry maps rectangles between canvas pixels and PDF user space.
//
// Canvas space has its origin at the top-left corner with Y growing down.
// PDF space has its origin at the bottom-left with Y growing up, in points.
// Both the capture path and the preview path go through the same Scale so
// the two cannot disagree.
package geometry

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/a3tai/mcp-pdf-overlay/internal/document"
	pdferrors "github.com/a3tai/mcp-pdf-overlay/internal/pdf/errors"
)

// DefaultPadding is the interior inset written into every finalized box
const DefaultPadding = 3.0

// Point is a canvas position in pixels
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair; pixels for canvases, points for pages
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether both dimensions are positive and finite
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0 && !math.IsInf(s.Width, 0) && !math.IsInf(s.Height, 0)
}

// CanvasRect is a rectangle in canvas pixels anchored at its top-left corner.
// Width and Height may be negative only for live, unnormalized drags.
type CanvasRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Scale holds the canvas-per-point factors for one page rendering
type Scale struct {
	X float64
	Y float64
	// CanvasHeight is the canvas height in pixels, the pivot of the Y flip
	CanvasHeight float64
}

// NewScale derives the factors for a page rendered onto a canvas
func NewScale(canvas, page Size) (Scale, error) {
	if !page.Valid() {
		return Scale{}, pdferrors.InvalidGeometry("scale", "page size %.2fx%.2f must be positive", page.Width, page.Height)
	}
	if !canvas.Valid() {
		return Scale{}, pdferrors.InvalidGeometry("scale", "canvas size %.2fx%.2f must be positive", canvas.Width, canvas.Height)
	}
	return Scale{
		X:            canvas.Width / page.Width,
		Y:            canvas.Height / page.Height,
		CanvasHeight: canvas.Height,
	}, nil
}

// ToPdf converts a normalized canvas rectangle to a PDF-space box with no
// padding. The lower-left corner is the flipped bottom edge of the rect.
func (s Scale) ToPdf(rect CanvasRect) document.BoundingBox {
	return document.BoundingBox{
		XPosition: rect.X / s.X,
		YPosition: (s.CanvasHeight - (rect.Y + rect.Height)) / s.Y,
		Width:     rect.Width / s.X,
		Height:    rect.Height / s.Y,
	}
}

// ToCanvas is the inverse of ToPdf
func (s Scale) ToCanvas(box document.BoundingBox) CanvasRect {
	height := box.Height * s.Y
	return CanvasRect{
		X:      box.XPosition * s.X,
		Y:      s.CanvasHeight - box.YPosition*s.Y - height,
		Width:  box.Width * s.X,
		Height: height,
	}
}

// ToPdfSpace converts a normalized canvas rectangle captured against canvas
// into a stored PDF-space box for a page of the given size. The box carries
// DefaultPadding on both axes.
func ToPdfSpace(rect CanvasRect, canvas, page Size) (document.BoundingBox, error) {
	if rect.Width < 0 || rect.Height < 0 {
		return document.BoundingBox{}, pdferrors.InvalidGeometry("to pdf space",
			"rectangle %.2fx%.2f is not normalized", rect.Width, rect.Height)
	}
	scale, err := NewScale(canvas, page)
	if err != nil {
		return document.BoundingBox{}, err
	}
	box := scale.ToPdf(rect)
	box.PaddingX = DefaultPadding
	box.PaddingY = DefaultPadding
	return box, nil
}

// ToCanvasSpace maps a stored box back onto a canvas for preview. Padding is
// not represented in canvas space.
func ToCanvasSpace(box document.BoundingBox, canvas, page Size) (CanvasRect, error) {
	scale, err := NewScale(canvas, page)
	if err != nil {
		return CanvasRect{}, err
	}
	return scale.ToCanvas(box), nil
}

// LiveRect is the signed rectangle shown while dragging from start to end
func LiveRect(start, end Point) CanvasRect {
	return CanvasRect{
		X:      start.X,
		Y:      start.Y,
		Width:  end.X - start.X,
		Height: end.Y - start.Y,
	}
}

// Normalize returns the rectangle spanned by two drag corners with
// non-negative width and height, whatever the drag direction
func Normalize(start, end Point) CanvasRect {
	r := r2.RectFromPoints(r2.Point{X: start.X, Y: start.Y}, r2.Point{X: end.X, Y: end.Y})
	lo, size := r.Lo(), r.Size()
	return CanvasRect{X: lo.X, Y: lo.Y, Width: size.X, Height: size.Y}
}

// NormalizeRect normalizes a possibly negative live rectangle
func NormalizeRect(rect CanvasRect) CanvasRect {
	return Normalize(Point{X: rect.X, Y: rect.Y}, Point{X: rect.X + rect.Width, Y: rect.Y + rect.Height})
}

// TooSmall reports whether a normalized rect falls below epsilon on either axis
func (r CanvasRect) TooSmall(epsilon float64) bool {
	return r.Width < epsilon || r.Height < epsilon
}
