// Package render turns an invoice template plus invoice field values into a
// render tree, and serializes that tree to HTML.
//
// Templates are typed: layout toggles, style and content are separate
// records, and constrained style values are enumerations with documented
// defaults. Invalid enumeration values fall back to the default and are
// reported as core.ConfigValidationWarning.
package render

import "bizledger/internal/core"

// Section names a template block. The order of Sections is the render order.
type Section string

const (
	SectionHeader       Section = "header"
	SectionLogo         Section = "logo"
	SectionBusinessInfo Section = "businessInfo"
	SectionClientInfo   Section = "clientInfo"
	SectionInvoiceInfo  Section = "invoiceInfo"
	SectionItemTable    Section = "itemTable"
	SectionSummary      Section = "summary"
	SectionDiscounts    Section = "discounts" // sub-toggle of summary
	SectionNotes        Section = "notes"
	SectionFooter       Section = "footer"
)

type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

type TableStyle string

const (
	TableBordered   TableStyle = "bordered"
	TableBorderless TableStyle = "borderless"
	TableStriped    TableStyle = "striped"
)

// Style and content defaults.
const (
	DefaultFontFamily      = "Helvetica, Arial, sans-serif"
	DefaultFontSize        = "12px"
	DefaultPrimaryColor    = "#1f2937"
	DefaultSecondaryColor  = "#f3f4f6"
	DefaultTextColor       = "#111827"
	DefaultBorderStyle     = "1px solid #d1d5db"
	DefaultHeaderAlignment = AlignLeft
	DefaultLogoPosition    = AlignLeft
	DefaultTableStyle      = TableBordered

	DefaultHeaderText    = "Invoice {{invoice_number}}"
	DefaultFooterText    = "Thank you for your business."
	DefaultNotesLabel    = "Notes"
	DefaultTermsLabel    = "Terms"
	DefaultDiscountLabel = "Discount"
)

type (
	// LayoutConfig holds one visibility flag per section. Absent flags are
	// false: a section is never shown unless asked for.
	LayoutConfig struct {
		Header       bool `json:"header"`
		Logo         bool `json:"logo"`
		BusinessInfo bool `json:"businessInfo"`
		ClientInfo   bool `json:"clientInfo"`
		InvoiceInfo  bool `json:"invoiceInfo"`
		ItemTable    bool `json:"itemTable"`
		Discounts    bool `json:"discounts"`
		Summary      bool `json:"summary"`
		Notes        bool `json:"notes"`
		Footer       bool `json:"footer"`
	}

	StyleConfig struct {
		FontFamily      string     `json:"fontFamily"`
		FontSize        string     `json:"fontSize"`
		PrimaryColor    string     `json:"primaryColor"`
		SecondaryColor  string     `json:"secondaryColor"`
		TextColor       string     `json:"textColor"`
		BorderStyle     string     `json:"borderStyle"`
		HeaderAlignment Alignment  `json:"headerAlignment"`
		LogoPosition    Alignment  `json:"logoPosition"`
		TableStyle      TableStyle `json:"tableStyle"`
	}

	// ContentConfig strings may contain {{token}} placeholders.
	ContentConfig struct {
		HeaderText    string `json:"headerText"`
		FooterText    string `json:"footerText"`
		NotesLabel    string `json:"notesLabel"`
		TermsLabel    string `json:"termsLabel"`
		DiscountLabel string `json:"discountLabel"`
	}

	// Template is a stored invoice template. A nil config means the template
	// did not carry that part at all.
	Template struct {
		ID      string         `json:"id"`
		Name    string         `json:"name"`
		Layout  *LayoutConfig  `json:"layoutConfig,omitempty"`
		Style   *StyleConfig   `json:"styleConfig,omitempty"`
		Content *ContentConfig `json:"contentConfig,omitempty"`
		// Logo is an image URL or data URI.
		Logo string `json:"logo,omitempty"`
	}
)

// Shows reports whether a section is switched on. Discounts additionally
// require the summary to be shown.
func (l LayoutConfig) Shows(s Section) bool {
	switch s {
	case SectionHeader:
		return l.Header
	case SectionLogo:
		return l.Logo
	case SectionBusinessInfo:
		return l.BusinessInfo
	case SectionClientInfo:
		return l.ClientInfo
	case SectionInvoiceInfo:
		return l.InvoiceInfo
	case SectionItemTable:
		return l.ItemTable
	case SectionSummary:
		return l.Summary
	case SectionDiscounts:
		return l.Summary && l.Discounts
	case SectionNotes:
		return l.Notes
	case SectionFooter:
		return l.Footer
	default:
		return false
	}
}

func (a Alignment) Valid() bool {
	switch a {
	case AlignLeft, AlignCenter, AlignRight:
		return true
	default:
		return false
	}
}

func (t TableStyle) Valid() bool {
	switch t {
	case TableBordered, TableBorderless, TableStriped:
		return true
	default:
		return false
	}
}

// Validate reports a TemplateConfigError when the template has no layout,
// style or content configuration at all.
func (t Template) Validate() error {
	if t.Layout == nil && t.Style == nil && t.Content == nil {
		return &core.TemplateConfigError{TemplateID: t.ID, Err: core.ErrMissingConfig}
	}
	return nil
}

// Normalize returns the effective layout, style and content with every
// blank value replaced by its default. Enumeration values outside their set
// and free-form style values that are not a single plain CSS value are
// replaced too, and each replacement is reported as a warning.
func (t Template) Normalize() (LayoutConfig, StyleConfig, ContentConfig, []core.ConfigValidationWarning) {
	var layout LayoutConfig
	if t.Layout != nil {
		layout = *t.Layout
	}
	var style StyleConfig
	if t.Style != nil {
		style = *t.Style
	}
	var content ContentConfig
	if t.Content != nil {
		content = *t.Content
	}
	warnings := []core.ConfigValidationWarning{}

	normalizeCSSValues(&style, &warnings)
	style.HeaderAlignment = normalizeAlignment(style.HeaderAlignment, DefaultHeaderAlignment, "styleConfig.headerAlignment", &warnings)
	style.LogoPosition = normalizeAlignment(style.LogoPosition, DefaultLogoPosition, "styleConfig.logoPosition", &warnings)
	switch {
	case style.TableStyle == "":
		style.TableStyle = DefaultTableStyle
	case !style.TableStyle.Valid():
		warnings = append(warnings, core.ConfigValidationWarning{
			Field: "styleConfig.tableStyle", Value: string(style.TableStyle), Fallback: string(DefaultTableStyle),
		})
		style.TableStyle = DefaultTableStyle
	}

	orDefault(&content.HeaderText, DefaultHeaderText)
	orDefault(&content.FooterText, DefaultFooterText)
	orDefault(&content.NotesLabel, DefaultNotesLabel)
	orDefault(&content.TermsLabel, DefaultTermsLabel)
	orDefault(&content.DiscountLabel, DefaultDiscountLabel)

	return layout, style, content, warnings
}

func normalizeAlignment(a, def Alignment, field string, warnings *[]core.ConfigValidationWarning) Alignment {
	if a == "" {
		return def
	}
	if !a.Valid() {
		*warnings = append(*warnings, core.ConfigValidationWarning{Field: field, Value: string(a), Fallback: string(def)})
		return def
	}
	return a
}

func orDefault(s *string, def string) {
	if *s == "" {
		*s = def
	}
}
