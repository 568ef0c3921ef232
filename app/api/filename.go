package api

import (
	"fmt"
	"strings"

	"github.com/lysyi3m/listing-comb/app/links"
	"github.com/lysyi3m/listing-comb/app/scraper"
)

var filenameReplacer = strings.NewReplacer(
	" ", "_", "/", "_", `\`, "_", ":", "_", "*", "_",
	"?", "_", `"`, "_", "<", "_", ">", "_", "|", "_",
)

// exportFilename names an export after its filters, e.g.
// alle_links_2025_06_15_Immo_Nord.csv.
func exportFilename(base string, c links.Criteria, format scraper.Format) string {
	var b strings.Builder
	b.WriteString(base)

	if c.Year != 0 && c.Month != 0 {
		fmt.Fprintf(&b, "_%d_%02d", c.Year, c.Month)
		if c.Day != 0 {
			fmt.Fprintf(&b, "_%02d", c.Day)
		}
	}

	switch agencies := c.Agencies; {
	case len(agencies) == 1:
		b.WriteString("_" + filenameReplacer.Replace(agencies[0]))
	case len(agencies) > 1:
		b.WriteString("_mehrere_makler")
	}

	b.WriteString("." + string(format))
	return b.String()
}
