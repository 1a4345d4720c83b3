package render

import (
	"encoding/json"
	"fmt"
	"strings"
)

// looseTemplate mirrors how templates are stored by the web client: open
// key/value maps under camelCase or snake_case keys.
type looseTemplate struct {
	ID           string                     `json:"id"`
	Name         string                     `json:"name"`
	Layout       map[string]json.RawMessage `json:"layoutConfig"`
	LayoutSnake  map[string]json.RawMessage `json:"layout_config"`
	Style        map[string]json.RawMessage `json:"styleConfig"`
	StyleSnake   map[string]json.RawMessage `json:"style_config"`
	Content      map[string]json.RawMessage `json:"contentConfig"`
	ContentSnake map[string]json.RawMessage `json:"content_config"`
	Logo         json.RawMessage            `json:"logo"`
	LogoURL      string                     `json:"logo_url"`
}

// DecodeTemplate converts a stored template document into a Template.
//
// Unknown keys are ignored. A layout flag is on only when it is the JSON
// value true. Style and content values that are not strings are converted
// with their JSON text; a bare number for fontSize is read as pixels.
func DecodeTemplate(data []byte) (Template, error) {
	var raw looseTemplate
	if err := json.Unmarshal(data, &raw); err != nil {
		return Template{}, fmt.Errorf("decode template: %w", err)
	}
	tpl := Template{ID: raw.ID, Name: raw.Name}

	if layout := firstMap(raw.Layout, raw.LayoutSnake); layout != nil {
		l := LayoutConfig{}
		flags := map[string]*bool{
			"header": &l.Header, "logo": &l.Logo, "businessInfo": &l.BusinessInfo,
			"clientInfo": &l.ClientInfo, "invoiceInfo": &l.InvoiceInfo, "itemTable": &l.ItemTable,
			"discounts": &l.Discounts, "summary": &l.Summary, "notes": &l.Notes, "footer": &l.Footer,
		}
		for key, val := range layout {
			if dst, ok := flags[key]; ok {
				var on bool
				if json.Unmarshal(val, &on) == nil {
					*dst = on
				}
			}
		}
		tpl.Layout = &l
	}

	if style := firstMap(raw.Style, raw.StyleSnake); style != nil {
		s := StyleConfig{
			FontFamily:      looseString(style["fontFamily"]),
			FontSize:        looseString(style["fontSize"]),
			PrimaryColor:    looseString(style["primaryColor"]),
			SecondaryColor:  looseString(style["secondaryColor"]),
			TextColor:       looseString(style["textColor"]),
			BorderStyle:     looseString(style["borderStyle"]),
			HeaderAlignment: Alignment(strings.ToLower(looseString(style["headerAlignment"]))),
			LogoPosition:    Alignment(strings.ToLower(looseString(style["logoPosition"]))),
			TableStyle:      TableStyle(strings.ToLower(looseString(style["tableStyle"]))),
		}
		if isNumber(style["fontSize"]) {
			s.FontSize += "px"
		}
		tpl.Style = &s
	}

	if content := firstMap(raw.Content, raw.ContentSnake); content != nil {
		tpl.Content = &ContentConfig{
			HeaderText:    looseString(content["headerText"]),
			FooterText:    looseString(content["footerText"]),
			NotesLabel:    looseString(content["notesLabel"]),
			TermsLabel:    looseString(content["termsLabel"]),
			DiscountLabel: looseString(content["discountLabel"]),
		}
	}

	tpl.Logo = looseString(raw.Logo)
	if tpl.Logo == "" {
		tpl.Logo = raw.LogoURL
	}
	return tpl, nil
}

func firstMap(a, b map[string]json.RawMessage) map[string]json.RawMessage {
	if a != nil {
		return a
	}
	return b
}

func looseString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}

func isNumber(raw json.RawMessage) bool {
	var f float64
	return len(raw) > 0 && json.Unmarshal(raw, &f) == nil
}
