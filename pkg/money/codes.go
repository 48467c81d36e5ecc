package money

// Code represents a currency code (e.g., "USD", "EUR").
type Code string

// Common currency codes
const (
	USD Code = "USD" // US Dollar
	EUR Code = "EUR" // Euro
	JPY Code = "JPY" // Japanese Yen
	KWD Code = "KWD" // Kuwaiti Dinar
	GBP Code = "GBP" // British Pound
	CHF Code = "CHF" // Swiss Franc
)

// decimalsByCode lists the currencies whose minor unit is not the usual cent.
var decimalsByCode = map[Code]int{
	JPY: 0,
	KWD: 3,
	"BHD": 3,
	"OMR": 3,
	"KRW": 0,
	"CLP": 0,
	"ISK": 0,
}
