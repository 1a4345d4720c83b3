package ctl

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"bizledger/internal/log"
	"bizledger/internal/render"
)

func newRenderCommand(a *app) *cobra.Command {
	var (
		templatePath string
		fieldsPath   string
		asHTML       bool
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render an invoice template against a set of field values",
		Long: `Render a template against invoice fields and print the render tree with
any style fallbacks as JSON, or the standalone HTML page with --html.

The template file uses the same loose JSON form the API accepts: unknown keys
are ignored and section keys may be camelCase or snake_case.`,
		Example: `  bizledgerctl render --template template.json --fields fields.json
  bizledgerctl render --template template.json --fields fields.json --html > invoice.html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(templatePath)
			if err != nil {
				return fmt.Errorf("failed to read template %s: %w", templatePath, err)
			}
			tpl, err := render.DecodeTemplate(raw)
			if err != nil {
				return fmt.Errorf("template %s: %w", templatePath, err)
			}

			var fields render.Fields
			if fieldsPath != "" {
				b, err := os.ReadFile(fieldsPath)
				if err != nil {
					return fmt.Errorf("failed to read fields %s: %w", fieldsPath, err)
				}
				if err := json.Unmarshal(b, &fields); err != nil {
					return fmt.Errorf("decode %s: %w", fieldsPath, err)
				}
			}

			res, err := render.Render(tpl, fields)
			if err != nil {
				return err
			}
			if len(res.Warnings) > 0 {
				names := make([]string, 0, len(res.Warnings))
				for _, w := range res.Warnings {
					names = append(names, w.Field)
				}
				a.logger.Warn("Template style fallbacks applied",
					log.FieldOperation, log.OpRender,
					log.FieldTemplateID, tpl.ID,
					"fields", strings.Join(names, ","))
			}

			if asHTML {
				return render.WriteHTML(cmd.OutOrStdout(), res.Document)
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&templatePath, "template", "", "Template file (JSON)")
	cmd.Flags().StringVar(&fieldsPath, "fields", "", "Field values file (JSON)")
	cmd.Flags().BoolVar(&asHTML, "html", false, "Print the HTML page instead of the render tree")
	_ = cmd.MarkFlagRequired("template")
	return cmd
}
