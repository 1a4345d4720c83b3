package render

import "bizledger/internal/core"

type (
	// Document is the render tree. Blocks appear in section order and only
	// for sections that are switched on.
	Document struct {
		Style  Style   `json:"style"`
		Blocks []Block `json:"blocks"`
	}

	Block struct {
		Section Section   `json:"section"`
		Align   Alignment `json:"align"`
		Style   Style     `json:"style"`
		Lines   []Line    `json:"lines"`
		Table   *Table    `json:"table,omitempty"`
		// Image is set only on the logo block.
		Image string `json:"image,omitempty"`
		Alt   string `json:"alt,omitempty"`
	}

	// Line is a label/value pair. Either side may be empty but never both.
	Line struct {
		Label    string `json:"label"`
		Text     string `json:"text"`
		Style    Style  `json:"style,omitempty"`
		Emphasis bool   `json:"emphasis,omitempty"`
	}

	Table struct {
		Preset  TablePreset `json:"preset"`
		Columns []string    `json:"columns"`
		Rows    [][]string  `json:"rows"`
	}

	// Result is a rendered document plus the style fallbacks that were
	// applied while rendering it.
	Result struct {
		Document Document                       `json:"document"`
		Warnings []core.ConfigValidationWarning `json:"warnings"`
	}
)

// ItemColumns are the item table headings.
var ItemColumns = []string{"Description", "Qty", "Unit price", "Amount"}

type renderContext struct {
	layout  LayoutConfig
	style   StyleConfig
	content ContentConfig
	logo    string
	fields  Fields
}

type sectionStep struct {
	section Section
	show    func(rc renderContext) bool
	build   func(rc renderContext) Block
}

func shown(s Section) func(rc renderContext) bool {
	return func(rc renderContext) bool { return rc.layout.Shows(s) }
}

// pipeline is the fixed render order. The discounts line is part of the
// summary builder.
var pipeline = []sectionStep{
	{SectionHeader, shown(SectionHeader), buildHeader},
	{SectionLogo, shown(SectionLogo), buildLogo},
	{SectionBusinessInfo, shown(SectionBusinessInfo), buildBusinessInfo},
	{SectionClientInfo, shown(SectionClientInfo), buildClientInfo},
	{SectionInvoiceInfo, shown(SectionInvoiceInfo), buildInvoiceInfo},
	{SectionItemTable, shown(SectionItemTable), buildItemTable},
	{SectionSummary, shown(SectionSummary), buildSummary},
	{SectionNotes, shown(SectionNotes), buildNotes},
	{SectionFooter, shown(SectionFooter), buildFooter},
}

// Render builds the document for tpl filled with fields.
//
// A template with no layout, style or content configuration fails with a
// *core.TemplateConfigError. Invalid style enumerations do not fail; they
// fall back to defaults and are listed in Result.Warnings.
func Render(tpl Template, fields Fields) (Result, error) {
	if err := tpl.Validate(); err != nil {
		return Result{}, err
	}
	layout, style, content, warnings := tpl.Normalize()
	rc := renderContext{layout: layout, style: style, content: content, logo: tpl.Logo, fields: fields}

	doc := Document{Style: documentStyle(style), Blocks: []Block{}}
	for _, step := range pipeline {
		if !step.show(rc) {
			continue
		}
		doc.Blocks = append(doc.Blocks, step.build(rc))
	}
	return Result{Document: doc, Warnings: warnings}, nil
}

func newBlock(s Section, align Alignment, style Style) Block {
	if style == nil {
		style = Style{}
	}
	return Block{Section: s, Align: align, Style: style, Lines: []Line{}}
}

func (b *Block) add(label, text string) {
	if label == "" && text == "" {
		return
	}
	b.Lines = append(b.Lines, Line{Label: label, Text: text})
}

func buildHeader(rc renderContext) Block {
	b := newBlock(SectionHeader, rc.style.HeaderAlignment, headerStyle(rc.style))
	b.Lines = append(b.Lines, Line{Text: Substitute(rc.content.HeaderText, rc.fields), Emphasis: true})
	return b
}

func buildLogo(rc renderContext) Block {
	b := newBlock(SectionLogo, rc.style.LogoPosition, nil)
	b.Image = rc.logo
	b.Alt = rc.fields.BusinessName
	if b.Alt == "" {
		b.Alt = "Logo"
	}
	return b
}

func buildBusinessInfo(rc renderContext) Block {
	b := newBlock(SectionBusinessInfo, AlignLeft, panelStyle(rc.style))
	b.add("", rc.fields.BusinessName)
	b.add("", rc.fields.BusinessAddress)
	b.add("", rc.fields.BusinessEmail)
	return b
}

func buildClientInfo(rc renderContext) Block {
	b := newBlock(SectionClientInfo, AlignLeft, panelStyle(rc.style))
	b.add("Bill to", rc.fields.ClientName)
	b.add("", rc.fields.ClientAddress)
	b.add("", rc.fields.ClientEmail)
	return b
}

func buildInvoiceInfo(rc renderContext) Block {
	b := newBlock(SectionInvoiceInfo, AlignRight, panelStyle(rc.style))
	b.add("Invoice #", rc.fields.InvoiceNumber)
	b.add("Issue date", rc.fields.IssueDate)
	b.add("Due date", rc.fields.DueDate)
	return b
}

func buildItemTable(rc renderContext) Block {
	b := newBlock(SectionItemTable, AlignLeft, nil)
	rows := make([][]string, 0, len(rc.fields.Items))
	for _, it := range rc.fields.Items {
		rows = append(rows, []string{it.Description, it.Quantity, it.UnitPrice, it.Amount})
	}
	b.Table = &Table{Preset: Preset(rc.style), Columns: ItemColumns, Rows: rows}
	return b
}

func buildSummary(rc renderContext) Block {
	b := newBlock(SectionSummary, AlignRight, nil)
	b.add("Subtotal", rc.fields.Subtotal)
	if rc.layout.Shows(SectionDiscounts) && rc.fields.Discount != "" {
		b.add(Substitute(rc.content.DiscountLabel, rc.fields), rc.fields.Discount)
	}
	b.add("Tax", rc.fields.TaxAmount)
	b.Lines = append(b.Lines, Line{Label: "Total", Text: rc.fields.Total, Style: summaryTotalStyle(rc.style), Emphasis: true})
	return b
}

func buildNotes(rc renderContext) Block {
	b := newBlock(SectionNotes, AlignLeft, nil)
	b.add(Substitute(rc.content.NotesLabel, rc.fields), rc.fields.Notes)
	if rc.fields.Terms != "" {
		b.add(Substitute(rc.content.TermsLabel, rc.fields), rc.fields.Terms)
	}
	return b
}

func buildFooter(rc renderContext) Block {
	b := newBlock(SectionFooter, AlignCenter, footerStyle(rc.style))
	b.Lines = append(b.Lines, Line{Text: Substitute(rc.content.FooterText, rc.fields)})
	return b
}
