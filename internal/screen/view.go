package screen

import (
	"github.com/go-faster/jx"

	"github.com/xenking/product-detail/internal/domain/product"
)

// DetailView is the outcome of one screen load. Exactly one of Product and
// ProductErr is set; the same holds for OtherProducts and OtherProductsErr.
type DetailView struct {
	ProductID        int64
	Product          *product.Product
	ProductErr       error
	OtherProducts    []product.Product
	OtherProductsErr error

	imageBaseURL string
	currency     string
}

// ImageLocation returns the fetchable image URL for p.
func (v *DetailView) ImageLocation(p product.Product) string {
	return p.ImageLocation(v.imageBaseURL)
}

// PriceLabel returns the display price for p.
func (v *DetailView) PriceLabel(p product.Product) string {
	return p.PriceLabel(v.currency)
}

// Encode writes the view as JSON:
//
//	{"productId":1,"product":{...}|null,"productError":"...",
//	 "otherProducts":[...]|null,"otherProductsError":"..."}
//
// Error fields are omitted when the matching fetch succeeded.
func (v *DetailView) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("productId")
	e.Int64(v.ProductID)

	e.FieldStart("product")
	if v.Product != nil {
		v.encodeProduct(e, *v.Product)
	} else {
		e.Null()
	}
	if v.ProductErr != nil {
		e.FieldStart("productError")
		e.Str(v.ProductErr.Error())
	}

	e.FieldStart("otherProducts")
	if v.OtherProductsErr == nil {
		e.ArrStart()
		for _, p := range v.OtherProducts {
			v.encodeProduct(e, p)
		}
		e.ArrEnd()
	} else {
		e.Null()
		e.FieldStart("otherProductsError")
		e.Str(v.OtherProductsErr.Error())
	}
	e.ObjEnd()
}

func (v *DetailView) encodeProduct(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	p.EncodeFields(e)
	e.FieldStart("imageLocation")
	e.Str(v.ImageLocation(p))
	e.FieldStart("priceLabel")
	e.Str(v.PriceLabel(p))
	e.ObjEnd()
}
