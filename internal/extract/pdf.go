package extract

import (
	"strings"

	"github.com/ledongthuc/pdf"
)

// ReadPDF extracts text page by page, one newline after each page.
func ReadPDF(path string) (string, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	fonts := make(map[string]*pdf.Font)
	var b strings.Builder

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; ok {
				continue
			}
			font := page.Font(name)
			fonts[name] = &font
		}

		text, err := page.GetPlainText(fonts)
		if err != nil {
			return "", err
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	return b.String(), nil
}
