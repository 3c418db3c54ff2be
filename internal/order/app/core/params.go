package core

const (
	MinCustomerPhoneLen = 3
	MinItems            = 1
	MinItemQuantity     = 1

	DefaultOrderType = "takeaway"

	ChangedBySystem   = "system"
	ChangedByAdmin    = "admin"
	ChangedByCustomer = "customer"
)

var AllowedTypes = map[string]bool{
	"dine_in":  true,
	"takeaway": true,
}
