package product

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Bit flags for the required product fields.
const (
	fieldID uint8 = 1 << iota
	fieldName
	fieldPrice
	fieldDescription
	fieldImageURL

	requiredFields = fieldID | fieldName | fieldPrice | fieldDescription | fieldImageURL
)

var fieldNames = []struct {
	bit  uint8
	name string
}{
	{fieldID, "id"},
	{fieldName, "name"},
	{fieldPrice, "price"},
	{fieldDescription, "description"},
	{fieldImageURL, "imageUrl"},
}

// MissingFieldsError is returned when a product object lacks required fields.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// FieldTypeError is returned when a product field holds a value of the wrong
// JSON type, including null.
type FieldTypeError struct {
	Field string
	Want  jx.Type
	Got   jx.Type
}

func (e *FieldTypeError) Error() string {
	return "field " + e.Field + ": expected " + e.Want.String() + ", got " + e.Got.String()
}

// Price bounds. Larger exponents expand into huge digit strings on format.
const (
	maxPriceLen      = 64
	maxPriceExponent = 18
)

// ErrPriceOutOfRange is returned for prices whose literal or exponent
// exceeds the supported bounds.
var ErrPriceOutOfRange = errors.New("price out of range")

func expect(d *jx.Decoder, field string, want jx.Type) error {
	if got := d.Next(); got != want {
		return &FieldTypeError{Field: field, Want: want, Got: got}
	}
	return nil
}

// Decode reads a product object from d. All five fields must be present with
// their exact JSON types; unknown fields are skipped.
func (p *Product) Decode(d *jx.Decoder) error {
	if err := expect(d, "product", jx.Object); err != nil {
		return err
	}

	var (
		out  Product
		seen uint8
	)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "id":
			if err := expect(d, "id", jx.Number); err != nil {
				return err
			}
			v, err := d.Int64()
			if err != nil {
				return errors.Wrap(err, "id")
			}
			out.ID = v
			seen |= fieldID
		case "name":
			if err := expect(d, "name", jx.String); err != nil {
				return err
			}
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "name")
			}
			out.Name = v
			seen |= fieldName
		case "price":
			if err := expect(d, "price", jx.Number); err != nil {
				return err
			}
			n, err := d.Num()
			if err != nil {
				return errors.Wrap(err, "price")
			}
			if len(n) > maxPriceLen {
				return errors.Wrapf(ErrPriceOutOfRange, "price literal of %d bytes", len(n))
			}
			v, err := decimal.NewFromString(n.String())
			if err != nil {
				return errors.Wrap(err, "price")
			}
			if exp := v.Exponent(); exp < -maxPriceExponent || exp > maxPriceExponent {
				return errors.Wrapf(ErrPriceOutOfRange, "price exponent %d", exp)
			}
			out.Price = v
			seen |= fieldPrice
		case "description":
			if err := expect(d, "description", jx.String); err != nil {
				return err
			}
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "description")
			}
			out.Description = v
			seen |= fieldDescription
		case "imageUrl":
			if err := expect(d, "imageUrl", jx.String); err != nil {
				return err
			}
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "imageUrl")
			}
			out.ImageURL = v
			seen |= fieldImageURL
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		return errors.Wrap(err, "decode product")
	}

	if seen != requiredFields {
		var missing []string
		for _, f := range fieldNames {
			if seen&f.bit == 0 {
				missing = append(missing, f.name)
			}
		}
		return &MissingFieldsError{Fields: missing}
	}

	*p = out
	return nil
}

// Encode writes p as a JSON object using the API field names.
func (p Product) Encode(e *jx.Encoder) {
	e.ObjStart()
	p.EncodeFields(e)
	e.ObjEnd()
}

// EncodeFields writes the five API fields without the enclosing braces, so
// callers can append their own fields to the same object.
func (p Product) EncodeFields(e *jx.Encoder) {
	e.FieldStart("id")
	e.Int64(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("price")
	e.Num(jx.Num(p.Price.String()))
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("imageUrl")
	e.Str(p.ImageURL)
}

// MarshalJSON implements json.Marshaler.
func (p Product) MarshalJSON() ([]byte, error) {
	var e jx.Encoder
	p.Encode(&e)
	return e.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Product) UnmarshalJSON(data []byte) error {
	return p.Decode(jx.DecodeBytes(data))
}

// DecodeList reads a JSON array of product objects, preserving order.
func DecodeList(d *jx.Decoder) ([]Product, error) {
	if err := expect(d, "products", jx.Array); err != nil {
		return nil, err
	}

	products := []Product{}
	if err := d.Arr(func(d *jx.Decoder) error {
		var p Product
		if err := p.Decode(d); err != nil {
			return errors.Wrapf(err, "element %d", len(products))
		}
		products = append(products, p)
		return nil
	}); err != nil {
		return nil, err
	}
	return products, nil
}
