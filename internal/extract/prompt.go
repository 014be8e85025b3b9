package extract

import (
	"fmt"
	"strings"
)

const FormPrompt = `You are given rendered images of the pages of a PDF form. Find every fillable form field and measure where it sits on its page.

Measure each bounding box in pixels of the image you were shown, with the origin at the TOP-LEFT corner of the page:
- "x": distance from the left edge
- "y": distance from the top edge
- "width": horizontal extent of the field
- "height": vertical extent of the field

Report every box twice:
- "coordinates": the box in the page's original, unscaled units (the pixel box divided by the render scale)
- "coordinates_norm": the box as fractions between 0 and 1 of the rendered page width and height

Return a single JSON object with this shape:
{
  "fields": [
    {
      "name": "the field's own name or label text, unique within the form",
      "value": "the filled-in value, or an empty string",
      "type": "text|checkbox|radio|dropdown|date|email|phone|address|other",
      "label": "visible label, if any",
      "pageNumber": 0,
      "confidence": 0.9,
      "coordinates": {"x": 50, "y": 100, "width": 150, "height": 25},
      "coordinates_norm": {"x": 0.1, "y": 0.2, "width": 0.3, "height": 0.05}
    }
  ],
  "formTitle": "title of the form, if present",
  "description": "one sentence on what the form is for"
}

Rules:
- pageNumber is 0-based and follows the order of the images
- measure tightly: no padding or margins around the field
- confidence is between 0 and 1
- respond with the JSON object only`

// BuildPrompt appends the page sizes and render scale to FormPrompt.
func BuildPrompt(dims []PageSize, scale float64) string {
	var sb strings.Builder
	sb.WriteString(FormPrompt)
	sb.WriteString("\n\n---\n")
	if scale > 0 {
		sb.WriteString(fmt.Sprintf("Render scale: %g\n", scale))
	}
	for i, d := range dims {
		sb.WriteString(fmt.Sprintf("Page %d: %gpx wide x %gpx high\n", i, d.Width, d.Height))
	}
	sb.WriteString("---\n")
	return sb.String()
}
