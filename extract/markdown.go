package extract

import (
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// NewMarkdownConverter returns a goroutine-safe converter that keeps tables.
func NewMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(
				table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
			),
		),
	)
}

// Markdown converts htmlContent, resolving relative links against domain.
func Markdown(conv *converter.Converter, htmlContent, domain string) (string, error) {
	if domain == "" {
		return conv.ConvertString(htmlContent)
	}
	return conv.ConvertString(htmlContent, converter.WithDomain(domain))
}
