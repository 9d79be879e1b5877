package finance

// kindSlugs maps URL path segments to document kinds.
var kindSlugs = map[string]DocKind{
	"sales-orders":    KindSalesOrder,
	"purchase-orders": KindPurchaseOrder,
	"ar-invoices":     KindARInvoice,
	"ap-invoices":     KindAPInvoice,
	"ar-receipts":     KindARReceipt,
	"ap-payments":     KindAPPayment,
}

var slugByKind = func() map[DocKind]string {
	m := make(map[DocKind]string, len(kindSlugs))
	for slug, kind := range kindSlugs {
		m[kind] = slug
	}
	return m
}()

// KindFromSlug resolves a URL path segment like "ar-invoices".
func KindFromSlug(slug string) (DocKind, bool) {
	kind, ok := kindSlugs[slug]
	return kind, ok
}

// Slug returns the kind's URL path segment.
func (k DocKind) Slug() string {
	return slugByKind[k]
}
