package render

import "strings"

// Style mapping. Every rendered style value comes from StyleConfig through
// this table; nothing else in the package picks colors or fonts.
//
//	element                      property           StyleConfig field
//	---------------------------  -----------------  -----------------
//	document                     font-family        FontFamily
//	document                     font-size          FontSize
//	document                     color              TextColor
//	header block                 color              PrimaryColor
//	header block                 Block.Align        HeaderAlignment
//	logo block                   Block.Align        LogoPosition
//	businessInfo/clientInfo      background-color   SecondaryColor
//	invoiceInfo                  background-color   SecondaryColor
//	item table header row        background-color   SecondaryColor
//	item table header row        color              PrimaryColor
//	item table                   border presets     TableStyle, BorderStyle
//	summary total line           color              PrimaryColor
//	footer block                 border-top         BorderStyle
//
// headerAlignment and logoPosition affect only their own blocks. Block.Align
// is the only source of text-align.

// Declaration is one CSS property.
type Declaration struct {
	Property string `json:"property"`
	Value    string `json:"value"`
}

// Style is an ordered list of declarations.
type Style []Declaration

// CSS renders the declarations as an inline style attribute value.
func (s Style) CSS() string {
	parts := make([]string, 0, len(s))
	for _, d := range s {
		parts = append(parts, d.Property+": "+d.Value)
	}
	return strings.Join(parts, "; ")
}

// Get returns the value of the last declaration for property.
func (s Style) Get(property string) string {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Property == property {
			return s[i].Value
		}
	}
	return ""
}

func decl(property, value string) Declaration {
	return Declaration{Property: property, Value: value}
}

func documentStyle(s StyleConfig) Style {
	return Style{decl("font-family", s.FontFamily), decl("font-size", s.FontSize), decl("color", s.TextColor)}
}

func headerStyle(s StyleConfig) Style {
	return Style{decl("color", s.PrimaryColor)}
}

func panelStyle(s StyleConfig) Style {
	return Style{decl("background-color", s.SecondaryColor)}
}

func summaryTotalStyle(s StyleConfig) Style {
	return Style{decl("color", s.PrimaryColor), decl("font-weight", "bold")}
}

func footerStyle(s StyleConfig) Style {
	return Style{decl("border-top", s.BorderStyle)}
}

// TablePreset is the resolved item table styling for one TableStyle.
type TablePreset struct {
	Table  Style  `json:"table"`
	Head   Style  `json:"head"`
	Cell   Style  `json:"cell"`
	// Stripe is the background applied to every second body row; empty
	// when the preset is not striped.
	Stripe string `json:"stripe,omitempty"`
}

// Preset returns the item table styling for the normalized style.
//
//	bordered    outer border and a border on every cell
//	borderless  no borders at all
//	striped     a rule under the header and SecondaryColor on alternate rows
func Preset(s StyleConfig) TablePreset {
	head := Style{decl("background-color", s.SecondaryColor), decl("color", s.PrimaryColor)}
	switch s.TableStyle {
	case TableBorderless:
		return TablePreset{
			Table: Style{decl("border-collapse", "collapse"), decl("border", "none")},
			Head:  head,
			Cell:  Style{decl("border", "none")},
		}
	case TableStriped:
		return TablePreset{
			Table:  Style{decl("border-collapse", "collapse"), decl("border", "none")},
			Head:   append(head, decl("border-bottom", s.BorderStyle)),
			Cell:   Style{decl("border", "none")},
			Stripe: s.SecondaryColor,
		}
	default:
		return TablePreset{
			Table: Style{decl("border-collapse", "collapse"), decl("border", s.BorderStyle)},
			Head:  append(head, decl("border", s.BorderStyle)),
			Cell:  Style{decl("border", s.BorderStyle)},
		}
	}
}
