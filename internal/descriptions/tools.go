package descriptions

// Tool descriptions with practical examples and use cases

const (
	// Discovery
	OverlayCatalogDescription = `List the document types the server knows and the field types each one needs.

**When to use:** At the start of a session, before arming any field, to learn field type IDs, kinds and placeholders.

**Why it's useful:** Field types carry the placeholder text that gets rendered and the kind that decides how many slots a field takes.

**Examples:**
• Start a W-9 layout: "Show the catalog and pick the W-9 document type"
• Check a placeholder: "What text will field type 12 render?"

**Common workflows:**
1. New layout: overlay_catalog → overlay_page_sizes → overlay_arm
2. Review: overlay_catalog → overlay_fields to see what is still unplaced

**Best practices:** The document type is fixed per session; every field placed belongs to it.`

	OverlayPageSizesDescription = `Get the width and height in points of every page of a template.

**When to use:** Before drawing, to scale the canvas to the page it shows.

**Why it's useful:** Rectangles are drawn in canvas pixels and stored in PDF points; the page size is the other half of that conversion.

**Examples:**
• "Get page sizes of forms/w9.pdf"
• "Is page 3 of contract.pdf landscape?"

**Common workflows:**
1. overlay_page_sizes → draw on a canvas of the same aspect ratio → overlay_accept with canvas and page size

**Best practices:** Pages of one template can differ in size; look up the size of the page you are drawing on.`

	// Capture
	OverlayArmDescription = `Arm a field type for placement and queue the slots the next rectangles will fill.

**When to use:** Before drawing the rectangles of a field.

**Why it's useful:** A slot is a character range of the placeholder plus a style. Splitting a placeholder into slots lets one field span several boxes, such as a date written into three separate boxes.

**Examples:**
• Whole name in one box: "Arm field type 1"
• Date in three boxes: "Arm field type 4 with slot lengths 2, 2, 4"
• Large Courier text: "Arm field type 1 with font Courier size 14"

**Common workflows:**
1. overlay_arm → overlay_pointer down/move/up → overlay_accept (repeat per slot)

**Best practices:** Boolean and underline fields always get a single one-character slot regardless of the lengths asked for.`

	OverlayPointerDescription = `Send a pointer event in canvas pixels: down starts a rectangle, move stretches it, up finishes it.

**When to use:** While a field is armed, to draw the rectangle of the next slot.

**Why it's useful:** The live rectangle is returned with every event so a client can draw the rubber band.

**Examples:**
• "Pointer down at 120,300" → "move to 260,330" → "up"

**Common workflows:**
1. overlay_pointer down → move (any number) → up → overlay_accept or overlay_discard

**Best practices:** Dragging in any direction is fine; rectangles are normalized to a top-left corner and positive size.`

	OverlayAcceptDescription = `Store the drawn rectangle as a section of the armed field, using the next queued slot.

**When to use:** After pointer up, when the rectangle is where the text should go.

**Why it's useful:** The rectangle is converted to PDF points for the given page, attached to the field and the template is re-rendered so the result can be checked immediately.

**Examples:**
• "Accept on page 1 with canvas 612x792"
• "Accept on page 2 with canvas 1224x1584" (a 2x canvas)

**Common workflows:**
1. overlay_accept → overlay_read_text to confirm placement
2. overlay_accept until no slots remain, then overlay_arm the next field

**Best practices:** Rectangles smaller than the minimum extent are ignored and the slot stays queued.`

	OverlayDiscardDescription = `Throw away the drawn rectangle. The slot stays queued for the next attempt.

**When to use:** After pointer up, when the rectangle is wrong.

**Examples:**
• "Discard and redraw the box"

**Best practices:** Use overlay_cancel instead to give up on the whole field.`

	OverlayCancelDescription = `Abandon the current gesture and clear every queued slot.

**When to use:** When the armed field should not be placed after all.

**Examples:**
• "Cancel the current field"

**Best practices:** Sections already accepted are kept; only the pending slots are dropped.`

	// Editing and output
	OverlayUpdateSectionDescription = `Change the character range or style of a stored section.

**When to use:** To fine-tune a placed field: move a character between boxes, change the font, size or spacing.

**Why it's useful:** The line height is derived again from the new font and size, and the template is re-rendered.

**Examples:**
• "Set section 0 of field type 4 to characters 0 to 2"
• "Make section 1 of field type 1 Times-Roman 9pt with 1pt spacing"

**Common workflows:**
1. overlay_fields → overlay_update_section → overlay_read_text

**Best practices:** Ranges past the end of the placeholder are clamped; a start past the end is rejected.`

	OverlayFieldsDescription = `Show the current document definition: every field and its sections in PDF points.

**When to use:** To review or save what has been placed so far.

**Why it's useful:** The definition is the same JSON accepted by overlay_render and the batch renderer.

**Examples:**
• "Show the fields placed so far"
• "Save the definition to defs/w9.json"

**Best practices:** Save definitions next to their templates so they can be rendered again later.`

	OverlayRenderDescription = `Composite a definition onto a template and write the filled PDF.

**When to use:** To produce the final document, either from the session or from a saved definition file.

**Why it's useful:** Each character is drawn at its measured position in the section's font, on top of the original page content.

**Examples:**
• "Render the session onto forms/w9.pdf and write out/w9-filled.pdf"
• "Render defs/w9.json onto forms/w9.pdf, only page 2"

**Common workflows:**
1. overlay_render → overlay_read_text on the output to verify

**Best practices:** Nothing is written when any section points past the last page or uses an unknown font; the output only appears once rendering succeeded.`

	OverlayReadTextDescription = `Read back the characters on a PDF with their positions, fonts and sizes.

**When to use:** To check where rendered text landed.

**Why it's useful:** Positions are reported in PDF points from the bottom-left of the page, the same space as stored sections.

**Examples:**
• "Read text of out/w9-filled.pdf page 1"

**Best practices:** Characters the fonts cannot encode appear as '?'.`

	OverlayServerInfoDescription = `Get server information, available tools and the templates in the working directory.

**When to use:** First call in a new session, or to find templates.

**Examples:**
• "What templates are available?"
• "Which fonts can I use?"

**Best practices:** The template listing is cached for a few minutes and refreshed when an output is written.`
)

// ToolDescriptions maps tool names to their comprehensive descriptions
var ToolDescriptions = map[string]string{
	"overlay_catalog":        OverlayCatalogDescription,
	"overlay_page_sizes":     OverlayPageSizesDescription,
	"overlay_arm":            OverlayArmDescription,
	"overlay_pointer":        OverlayPointerDescription,
	"overlay_accept":         OverlayAcceptDescription,
	"overlay_discard":        OverlayDiscardDescription,
	"overlay_cancel":         OverlayCancelDescription,
	"overlay_update_section": OverlayUpdateSectionDescription,
	"overlay_fields":         OverlayFieldsDescription,
	"overlay_render":         OverlayRenderDescription,
	"overlay_read_text":      OverlayReadTextDescription,
	"overlay_server_info":    OverlayServerInfoDescription,
}

// GetToolDescription returns the comprehensive description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns a list of all available tool names
func GetAllToolNames() []string {
	var names []string
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	return names
}
