package ingest

import "strings"

// StandardColumns is the 15-column layout of a plain-text invoice export.
// The first four are also the names CSV headers are checked against.
var StandardColumns = []string{
	"NOMBRE USUARIO",
	"NIT USUARIO",
	"CIUDAD DE ENTREGA",
	"FACT NRO",
	"FECHA",
	"FORMA DE PAGO",
	"PRODUCTO",
	"PRESENTACION",
	"CANTIDAD",
	"VALOR UNITARIO",
	"TOTAL",
	"% IVA",
	"NIT VENDEDOR",
	"NOMBRE VENDEDOR",
	"UNIDAD DE MEDIDA",
}

// coreHeaderKeywords identify a header even when few other columns match.
var coreHeaderKeywords = []string{"FACT NRO", "FECHA", "PRODUCTO"}

// bannerKeywords mark report decoration lines in text exports.
var bannerKeywords = []string{
	"TOTAL GENERAL",
	"FIN DEL REPORTE",
	"REPORTE",
	"PAGINA",
	"PÁGINA",
	"RESUMEN",
	"SUBTOTAL",
}

// Invoice container element names in XML, highest priority first.
var invoiceContainerTags = []string{
	"Invoice",
	"FacturaElectronica",
	"Factura",
	"CreditNote",
	"DebitNote",
	"AttachedDocument",
}

// rootInvoiceHints are substrings of a root tag that mark it as one invoice.
var rootInvoiceHints = []string{"invoice", "factura"}

// invoiceFieldTags holds document number, issue date and total tag names.
var invoiceFieldTags = []string{
	"ID", "NumeroFactura", "InvoiceNumber",
	"IssueDate", "FechaEmision", "Fecha",
	"PayableAmount", "TaxInclusiveAmount", "ValorTotal", "Total",
}

const (
	// headerSearchLines bounds the scan for a text header.
	headerSearchLines = 20

	// headerMinKeywords is how many standard names make a line a header.
	headerMinKeywords = 3

	// headerCheckColumns and headerCheckMinMatches define the standard
	// structure test applied to a found header.
	headerCheckColumns    = 10
	headerCheckMinMatches = 5

	// minRecordFields is how many fields a split line needs to count.
	minRecordFields = 10

	maxSampleRows   = 3
	maxSampleFields = 15

	// csvHeaderCheckColumns is how many standard names a CSV header may match.
	csvHeaderCheckColumns = 4
)

// countContained returns how many names appear in s, case-insensitively.
func countContained(s string, names []string) int {
	upper := strings.ToUpper(s)
	n := 0
	for _, name := range names {
		if strings.Contains(upper, strings.ToUpper(name)) {
			n++
		}
	}
	return n
}
